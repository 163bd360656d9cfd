package list

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"bookmarksync/internal/history"
)

type Options struct {
	HistoryPath string
	Hours       int
	FailedOnly  bool
	Now         time.Time
}

// Run prints the sync history of the last opts.Hours hours, newest first.
func Run(ctx context.Context, w io.Writer, opts Options) error {
	hours := opts.Hours
	if hours <= 0 {
		hours = 24
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	if strings.TrimSpace(opts.HistoryPath) == "" {
		fmt.Fprintln(w, "Sync history is disabled.")
		fmt.Fprintln(w, "Hint: set BOOKMARKSYNC_HISTORY_PATH or history_path in the config file.")
		return nil
	}
	if !fileExists(opts.HistoryPath) {
		fmt.Fprintf(w, "History database not found at %s\n", opts.HistoryPath)
		fmt.Fprintln(w, "Hint: run 'bookmarksync run' once to create it.")
		return nil
	}

	store, err := history.Open(opts.HistoryPath)
	if err != nil {
		return fmt.Errorf("failed opening the history database: %w", err)
	}
	defer store.Close()

	var outcome history.Outcome
	if opts.FailedOnly {
		outcome = history.OutcomeFailed
	}
	since := now.Add(-time.Duration(hours) * time.Hour)
	entries, err := store.Since(ctx, since, outcome, 0)
	if err != nil {
		return fmt.Errorf("query failed while reading the history database: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintf(w, "No sync activity in the last %d hours.\n", hours)
		return nil
	}

	fmt.Fprintf(w, "Found %d entries from the last %d hours:\n\n", len(entries), hours)
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = "No title"
		}
		fmt.Fprintf(w, "Run: %s\n", e.RunID)
		fmt.Fprintf(w, "Direction: %s\n", e.Direction)
		fmt.Fprintf(w, "Title: %s\n", title)
		fmt.Fprintf(w, "URL: %s\n", e.URL)
		fmt.Fprintf(w, "Outcome: %s\n", e.Outcome)
		if e.StatusCode != 0 {
			fmt.Fprintf(w, "Status: %d\n", e.StatusCode)
		}
		if e.Error != "" {
			fmt.Fprintf(w, "Error: %s\n", e.Error)
		}
		fmt.Fprintf(w, "Date: %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintln(w, strings.Repeat("-", 80))
	}
	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	if _, err := os.Stat(path); err == nil {
		return true
	}
	return false
}
