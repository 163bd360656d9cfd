package launchd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlist(t *testing.T) {
	data, err := BuildPlist(InstallOptions{
		Label:            DefaultLabel,
		Hour:             6,
		Minute:           30,
		ProgramPath:      "/usr/local/bin/bookmarksync",
		ProgramArgs:      []string{"run", "--env-file", "/Users/me/a&b/.env"},
		LogPath:          "/tmp/bookmarksync.log",
		WorkingDirectory: "/Users/me",
	})
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, "<string>com.bookmarksync.daily</string>")
	assert.Contains(t, s, "<string>/usr/local/bin/bookmarksync</string>\n      <string>run</string>")
	assert.Contains(t, s, "<string>/Users/me/a&amp;b/.env</string>")
	assert.Contains(t, s, "<key>Hour</key>\n      <integer>6</integer>")
	assert.Contains(t, s, "<key>Minute</key>\n      <integer>30</integer>")
	assert.Contains(t, s, "<key>WorkingDirectory</key>\n    <string>/Users/me</string>")
	assert.Contains(t, s, "<key>StandardErrorPath</key>\n    <string>/tmp/bookmarksync.log</string>")
	assert.NotContains(t, s, "KeepAlive")
	assert.NotContains(t, s, "StartInterval<")
}

func TestBuildPlistValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  InstallOptions
	}{
		{"no label", InstallOptions{ProgramPath: "/bin/x"}},
		{"no program", InstallOptions{Label: "l"}},
		{"hour", InstallOptions{Label: "l", ProgramPath: "/bin/x", Hour: 24}},
		{"minute", InstallOptions{Label: "l", ProgramPath: "/bin/x", Minute: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPlist(tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestExtractSchedule(t *testing.T) {
	data, err := BuildPlist(InstallOptions{Label: "l", ProgramPath: "/bin/x", Hour: 23, Minute: 5})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "l.plist")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	hour, minute, err := ExtractSchedule(path)
	require.NoError(t, err)
	assert.Equal(t, 23, hour)
	assert.Equal(t, 5, minute)
}

func TestExtractScheduleMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "l.plist")
	require.NoError(t, os.WriteFile(path, []byte("<plist><dict></dict></plist>"), 0o644))

	_, _, err := ExtractSchedule(path)
	assert.Error(t, err)

	_, _, err = ExtractSchedule(filepath.Join(t.TempDir(), "nope.plist"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
