package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WriteTemplate writes a commented config file with the non-secret
// settings of ac. Credentials are left to the environment. An existing
// file is backed up first.
func WriteTemplate(path string, ac AppConfig) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := BackupFile(path); err != nil {
			return fmt.Errorf("failed to back up existing config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	var sb strings.Builder
	sb.WriteString("# bookmarksync configuration\n")
	sb.WriteString("# Credentials are read from the environment (or .env):\n")
	sb.WriteString("#   RAINDROP_TOKEN, HATENA_CONSUMER_KEY, HATENA_CONSUMER_SECRET,\n")
	sb.WriteString("#   HATENA_ACCESS_TOKEN, HATENA_ACCESS_TOKEN_SECRET\n")
	sb.WriteString(fmt.Sprintf("timezone: %q\n", ac.Timezone))
	sb.WriteString(fmt.Sprintf("http_timeout: %d\n", ac.HTTPTimeoutSec))
	sb.WriteString(fmt.Sprintf("log_level: %q\n", ac.LogLevel))
	if strings.TrimSpace(ac.HistoryPath) != "" {
		sb.WriteString(fmt.Sprintf("history_path: %q\n", ac.HistoryPath))
	} else {
		sb.WriteString("# history_path: \"~/.local/share/bookmarksync/history.db\"\n")
	}

	sb.WriteString("hatena:\n")
	if strings.TrimSpace(ac.Hatena.Username) != "" {
		sb.WriteString(fmt.Sprintf("  username: %q\n", ac.Hatena.Username))
	} else {
		sb.WriteString("  # username: \"your-hatena-id\"\n")
	}
	sb.WriteString(fmt.Sprintf("  feed_base_url: %q\n", ac.Hatena.FeedBaseURL))
	sb.WriteString(fmt.Sprintf("  api_base_url: %q\n", ac.Hatena.APIBaseURL))

	sb.WriteString("raindrop:\n")
	sb.WriteString(fmt.Sprintf("  base_url: %q\n", ac.Raindrop.BaseURL))
	sb.WriteString(fmt.Sprintf("  collection_id: %d\n", ac.Raindrop.CollectionID))
	sb.WriteString(fmt.Sprintf("  per_page: %d\n", ac.Raindrop.PerPage))
	sb.WriteString(fmt.Sprintf("  max_pages: %d\n", ac.Raindrop.MaxPages))

	return os.WriteFile(path, []byte(sb.String()), 0o600)
}

// BackupFile creates a backup of the specified file with a timestamp
func BackupFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ts := time.Now().Format("20060102-150405")
	bak := path + ".bak-" + ts
	return os.WriteFile(bak, b, 0o600)
}
