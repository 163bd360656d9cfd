package launchd

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

const DefaultLabel = "com.bookmarksync.daily"

// InstallOptions config for creating/loading a launchd agent that runs
// once a day.
type InstallOptions struct {
	Label            string
	Hour             int
	Minute           int
	ProgramPath      string   // absolute path to this binary
	ProgramArgs      []string // args after ProgramPath
	LogPath          string   // stdout and stderr
	WorkingDirectory string   // where .env is looked up
	PlistPath        string   // optional custom plist path
}

func DefaultAgentPath(label string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents", label+".plist"), nil
}

func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Logs", "bookmarksync", "run.log")
}

// BuildPlist renders a plist that starts the program at Hour:Minute local time.
func BuildPlist(opt InstallOptions) ([]byte, error) {
	if opt.Label == "" {
		return nil, errors.New("label required")
	}
	if opt.ProgramPath == "" {
		return nil, errors.New("program path required")
	}
	if opt.Hour < 0 || opt.Hour > 23 {
		return nil, fmt.Errorf("hour %d out of range 0-23", opt.Hour)
	}
	if opt.Minute < 0 || opt.Minute > 59 {
		return nil, fmt.Errorf("minute %d out of range 0-59", opt.Minute)
	}

	escape := func(s string) string {
		var b bytes.Buffer
		xml.EscapeText(&b, []byte(s))
		return b.String()
	}
	str := func(buf *bytes.Buffer, key, value string) {
		buf.WriteString("    <key>" + key + "</key>\n    <string>")
		buf.WriteString(escape(value))
		buf.WriteString("</string>\n")
	}

	args := append([]string{opt.ProgramPath}, opt.ProgramArgs...)
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<!DOCTYPE plist PUBLIC \"-//Apple//DTD PLIST 1.0//EN\" \"http://www.apple.com/DTDs/PropertyList-1.0.dtd\">\n")
	buf.WriteString("<plist version=\"1.0\">\n  <dict>\n")
	str(&buf, "Label", opt.Label)
	buf.WriteString("    <key>ProgramArguments</key>\n    <array>\n")
	for _, a := range args {
		buf.WriteString("      <string>")
		buf.WriteString(escape(a))
		buf.WriteString("</string>\n")
	}
	buf.WriteString("    </array>\n")
	buf.WriteString("    <key>StartCalendarInterval</key>\n    <dict>\n")
	buf.WriteString("      <key>Hour</key>\n      <integer>" + strconv.Itoa(opt.Hour) + "</integer>\n")
	buf.WriteString("      <key>Minute</key>\n      <integer>" + strconv.Itoa(opt.Minute) + "</integer>\n")
	buf.WriteString("    </dict>\n")
	// one-shot job: launchd must not restart it after it exits
	buf.WriteString("    <key>RunAtLoad</key>\n    <false/>\n")
	if opt.WorkingDirectory != "" {
		str(&buf, "WorkingDirectory", opt.WorkingDirectory)
	}
	if opt.LogPath != "" {
		str(&buf, "StandardOutPath", opt.LogPath)
		str(&buf, "StandardErrorPath", opt.LogPath)
	}
	buf.WriteString("  </dict>\n</plist>\n")
	return buf.Bytes(), nil
}

// Install writes the plist and loads it via launchctl.
func Install(opt InstallOptions) (string, error) {
	if runtime.GOOS != "darwin" {
		return "", errors.New("launchd is only available on macOS")
	}
	if opt.Label == "" {
		opt.Label = DefaultLabel
	}
	if opt.LogPath == "" {
		opt.LogPath = DefaultLogPath()
	}
	plistPath := opt.PlistPath
	if strings.TrimSpace(plistPath) == "" {
		var err error
		plistPath, err = DefaultAgentPath(opt.Label)
		if err != nil {
			return "", err
		}
	}
	data, err := BuildPlist(opt)
	if err != nil {
		return "", err
	}
	if opt.LogPath != "" {
		_ = os.MkdirAll(filepath.Dir(opt.LogPath), 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(plistPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(plistPath, data, 0o644); err != nil {
		return "", err
	}

	lctl := launchctlPath()
	if lctl == "" {
		return plistPath, errors.New("launchctl not found in /bin, /usr/bin, or PATH")
	}

	domain := fmt.Sprintf("gui/%d", os.Getuid())
	if err := exec.Command(lctl, "bootstrap", domain, plistPath).Run(); err != nil {
		// Fallback to legacy load -w
		if err2 := exec.Command(lctl, "load", "-w", plistPath).Run(); err2 != nil {
			return plistPath, fmt.Errorf("launchctl bootstrap/load failed: %v / %v", err, err2)
		}
	} else {
		_ = exec.Command(lctl, "enable", domain+"/"+opt.Label).Run()
	}
	return plistPath, nil
}

// Uninstall unloads and removes the plist.
func Uninstall(label string, plistPath string) error {
	if runtime.GOOS != "darwin" {
		return errors.New("launchd is only available on macOS")
	}
	if label == "" {
		label = DefaultLabel
	}
	if strings.TrimSpace(plistPath) == "" {
		var err error
		plistPath, err = DefaultAgentPath(label)
		if err != nil {
			return err
		}
	}
	lctl := launchctlPath()
	if lctl == "" {
		return errors.New("launchctl not found")
	}
	domain := fmt.Sprintf("gui/%d", os.Getuid())
	if err := exec.Command(lctl, "bootout", domain, plistPath).Run(); err != nil {
		_ = exec.Command(lctl, "unload", "-w", plistPath).Run()
	}
	if err := os.Remove(plistPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Status returns whether the agent is loaded and a short human string.
func Status(label string) (bool, string) {
	if runtime.GOOS != "darwin" || strings.TrimSpace(label) == "" {
		return false, "unsupported"
	}
	lctl := launchctlPath()
	if lctl == "" {
		return false, "launchctl not found"
	}
	domain := fmt.Sprintf("gui/%d", os.Getuid())
	out, err := exec.Command(lctl, "print", domain+"/"+label).CombinedOutput()
	if err != nil {
		return false, "not loaded"
	}
	state := "loaded"
	for _, ln := range strings.Split(string(out), "\n") {
		if strings.Contains(ln, "state = ") {
			state = strings.TrimSpace(ln)
			break
		}
	}
	return true, state
}

func launchctlPath() string {
	for _, c := range []string{"/bin/launchctl", "/usr/bin/launchctl"} {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	if p, err := exec.LookPath("launchctl"); err == nil {
		return p
	}
	return ""
}

// ExtractSchedule best-effort parse of the daily Hour and Minute from a plist file.
func ExtractSchedule(plistPath string) (hour, minute int, err error) {
	b, err := os.ReadFile(plistPath)
	if err != nil {
		return 0, 0, err
	}
	s := string(b)
	i := strings.Index(s, "<key>StartCalendarInterval</key>")
	if i < 0 {
		return 0, 0, errors.New("StartCalendarInterval not found")
	}
	sub := s[i:]
	if end := strings.Index(sub, "</dict>"); end >= 0 {
		sub = sub[:end]
	}
	if hour, err = integerAfter(sub, "Hour"); err != nil {
		return 0, 0, err
	}
	if minute, err = integerAfter(sub, "Minute"); err != nil {
		return 0, 0, err
	}
	return hour, minute, nil
}

func integerAfter(s, key string) (int, error) {
	i := strings.Index(s, "<key>"+key+"</key>")
	if i < 0 {
		return 0, fmt.Errorf("%s not found", key)
	}
	sub := s[i:]
	open := strings.Index(sub, "<integer>")
	close := strings.Index(sub, "</integer>")
	if open < 0 || close < 0 || close <= open+9 {
		return 0, errors.New("invalid integer tag")
	}
	return strconv.Atoi(strings.TrimSpace(sub[open+9 : close]))
}
