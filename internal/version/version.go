package version

import "fmt"

const (
	// Version is the current version of bookmarksync
	Version = "0.1.0"
)

// GetVersion returns the current version string
func GetVersion() string {
	return fmt.Sprintf("bookmarksync %s", Version)
}

// UserAgent is sent with every outgoing request.
func UserAgent() string {
	return "bookmarksync/" + Version
}
