package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHatenaFeedBaseURL = "https://b.hatena.ne.jp"
	DefaultHatenaAPIBaseURL  = "https://bookmark.hatenaapis.com"
	DefaultRaindropBaseURL   = "https://api.raindrop.io"
)

// Loader returns the configuration for a run. Commands take a Loader so
// tests can inject a fixed configuration.
type Loader func() (AppConfig, error)

// NewLoader returns a Loader that calls Load with opts.
func NewLoader(opts Options) Loader {
	return func() (AppConfig, error) {
		return Load(opts)
	}
}

type HatenaConfig struct {
	Username          string `yaml:"username"`
	ConsumerKey       string `yaml:"consumer_key"`
	ConsumerSecret    string `yaml:"consumer_secret"`
	AccessToken       string `yaml:"access_token"`
	AccessTokenSecret string `yaml:"access_token_secret"`
	FeedBaseURL       string `yaml:"feed_base_url"`
	APIBaseURL        string `yaml:"api_base_url"`
}

type RaindropConfig struct {
	Token        string `yaml:"token"`
	BaseURL      string `yaml:"base_url"`
	CollectionID int    `yaml:"collection_id"`
	PerPage      int    `yaml:"per_page"`
	MaxPages     int    `yaml:"max_pages"`
}

// AppConfig carries everything a sync run needs. It is built once and
// passed explicitly to each component.
type AppConfig struct {
	Hatena   HatenaConfig   `yaml:"hatena"`
	Raindrop RaindropConfig `yaml:"raindrop"`

	Timezone       string `yaml:"timezone"`
	HTTPTimeoutSec int    `yaml:"http_timeout"`
	LogLevel       string `yaml:"log_level"`
	HistoryPath    string `yaml:"history_path"`

	Location *time.Location `yaml:"-"`
}

// Options selects where configuration is read from. Empty fields use the defaults.
type Options struct {
	ConfigPath string
	EnvFile    string
}

// MissingError lists the required settings that were not provided.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Vars, ", ")
}

func defaults() AppConfig {
	return AppConfig{
		Hatena: HatenaConfig{
			FeedBaseURL: DefaultHatenaFeedBaseURL,
			APIBaseURL:  DefaultHatenaAPIBaseURL,
		},
		Raindrop: RaindropConfig{
			BaseURL:      DefaultRaindropBaseURL,
			CollectionID: 0,
			PerPage:      25,
			MaxPages:     50,
		},
		Timezone:       "UTC",
		HTTPTimeoutSec: 30,
		LogLevel:       "info",
		Location:       time.UTC,
	}
}

// DefaultConfigPath returns ~/.config/bookmarksync/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bookmarksync", "config.yaml"), nil
}

// Load merges defaults, the YAML config file, the .env file and the process
// environment, later sources winning. It does not check required settings;
// call Validate before a sync run.
func Load(opts Options) (AppConfig, error) {
	ac := defaults()

	cfgPath := strings.TrimSpace(opts.ConfigPath)
	explicit := cfgPath != ""
	if !explicit {
		if p, err := DefaultConfigPath(); err == nil {
			cfgPath = p
		}
	}
	if cfgPath != "" {
		if err := readFile(ExpandPath(cfgPath), &ac); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return ac, fmt.Errorf("failed to read config %s: %w", cfgPath, err)
			}
		}
	}

	envFile := strings.TrimSpace(opts.EnvFile)
	if envFile != "" {
		if err := godotenv.Load(ExpandPath(envFile)); err != nil {
			return ac, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		// .env in the working directory is optional
		_ = godotenv.Load()
	}

	if err := applyEnv(&ac); err != nil {
		return ac, err
	}

	ac.HistoryPath = ExpandPath(ac.HistoryPath)
	if ac.HTTPTimeoutSec <= 0 {
		ac.HTTPTimeoutSec = 30
	}
	if ac.Raindrop.PerPage <= 0 {
		ac.Raindrop.PerPage = 25
	}
	if strings.TrimSpace(ac.Timezone) == "" {
		ac.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(ac.Timezone)
	if err != nil {
		return ac, fmt.Errorf("invalid timezone %q: %w", ac.Timezone, err)
	}
	ac.Location = loc

	return ac, nil
}

func readFile(path string, ac *AppConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, ac)
}

func applyEnv(ac *AppConfig) error {
	setString(&ac.Hatena.Username, "HATENA_USERNAME")
	setString(&ac.Hatena.ConsumerKey, "HATENA_CONSUMER_KEY")
	setString(&ac.Hatena.ConsumerSecret, "HATENA_CONSUMER_SECRET")
	setString(&ac.Hatena.AccessToken, "HATENA_ACCESS_TOKEN")
	setString(&ac.Hatena.AccessTokenSecret, "HATENA_ACCESS_TOKEN_SECRET")
	setString(&ac.Hatena.FeedBaseURL, "HATENA_FEED_BASE_URL")
	setString(&ac.Hatena.APIBaseURL, "HATENA_API_BASE_URL")

	setString(&ac.Raindrop.Token, "RAINDROP_TOKEN")
	setString(&ac.Raindrop.BaseURL, "RAINDROP_BASE_URL")
	setString(&ac.Timezone, "BOOKMARKSYNC_TIMEZONE")
	setString(&ac.LogLevel, "BOOKMARKSYNC_LOG_LEVEL")
	setString(&ac.HistoryPath, "BOOKMARKSYNC_HISTORY_PATH")

	ints := []struct {
		dst *int
		key string
	}{
		{&ac.Raindrop.CollectionID, "RAINDROP_COLLECTION_ID"},
		{&ac.Raindrop.PerPage, "RAINDROP_PER_PAGE"},
		{&ac.Raindrop.MaxPages, "RAINDROP_MAX_PAGES"},
		{&ac.HTTPTimeoutSec, "HTTP_TIMEOUT"},
	}
	for _, i := range ints {
		if err := setInt(i.dst, i.key); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: not an integer", key, v)
	}
	*dst = n
	return nil
}

// Validate reports every required credential that is empty.
func (ac AppConfig) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"HATENA_USERNAME", ac.Hatena.Username},
		{"RAINDROP_TOKEN", ac.Raindrop.Token},
		{"HATENA_CONSUMER_KEY", ac.Hatena.ConsumerKey},
		{"HATENA_CONSUMER_SECRET", ac.Hatena.ConsumerSecret},
		{"HATENA_ACCESS_TOKEN", ac.Hatena.AccessToken},
		{"HATENA_ACCESS_TOKEN_SECRET", ac.Hatena.AccessTokenSecret},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Vars: missing}
	}
	return nil
}

// HTTPTimeout returns the per-request timeout.
func (ac AppConfig) HTTPTimeout() time.Duration {
	return time.Duration(ac.HTTPTimeoutSec) * time.Second
}

// ExpandPath expands leading ~ and environment variables in a filesystem path.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			if p == "~" {
				p = home
			} else if strings.HasPrefix(p, "~/") {
				p = filepath.Join(home, p[2:])
			}
		}
	}
	return p
}
