package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the console's connection and logging settings.
type Config struct {
	APIURL           string
	APIPrefix        string
	SearchURL        string
	SearchAPIKey     string
	SearchCollection string
	LogFile          string
	OTelEndpoint     string
	PollInterval     time.Duration
}

const (
	defaultConfigPath       = "~/.config/filebrain/console.toml"
	defaultLogFile          = "~/.local/state/filebrain/fbconsole.log"
	defaultAPIURL           = "http://127.0.0.1:8000"
	defaultAPIPrefix        = "/api/v1"
	defaultSearchURL        = "http://127.0.0.1:8108"
	defaultSearchCollection = "files"
	defaultPollInterval     = 5 * time.Second

	// DefaultSearchAPIKey matches the search engine's sample configuration.
	// It is not a scoped key and must not be used outside local setups.
	DefaultSearchAPIKey = "xyz"
)

// Environment variables that override file values.
const (
	EnvAPIURL           = "FILEBRAIN_API_URL"
	EnvAPIPrefix        = "FILEBRAIN_API_PREFIX"
	EnvSearchURL        = "FILEBRAIN_SEARCH_URL"
	EnvSearchAPIKey     = "FILEBRAIN_SEARCH_API_KEY"
	EnvSearchCollection = "FILEBRAIN_SEARCH_COLLECTION"
	EnvLogFile          = "FILEBRAIN_LOG_FILE"
	EnvOTelEndpoint     = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:           defaultAPIURL,
		APIPrefix:        defaultAPIPrefix,
		SearchURL:        defaultSearchURL,
		SearchAPIKey:     DefaultSearchAPIKey,
		SearchCollection: defaultSearchCollection,
		LogFile:          mustExpand(defaultLogFile),
		PollInterval:     defaultPollInterval,
	}
}

// Load reads the config file, falling back to defaults when it is missing,
// then applies environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer func() { _ = file.Close() }()
		if err := cfg.readFrom(file); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.LogFile = mustExpand(cfg.LogFile)
	return cfg, nil
}

func (c *Config) readFrom(r io.Reader) error {
	bytes, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL              string `toml:"api_url"`
		APIPrefix           string `toml:"api_prefix"`
		SearchURL           string `toml:"search_url"`
		SearchAPIKey        string `toml:"search_api_key"`
		SearchCollection    string `toml:"search_collection"`
		LogFile             string `toml:"log_file"`
		OTelEndpoint        string `toml:"otel_endpoint"`
		PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setIfPresent(&c.APIURL, raw.APIURL)
	// "/" selects a backend mounted at the root.
	setIfPresent(&c.APIPrefix, raw.APIPrefix)
	setIfPresent(&c.SearchURL, raw.SearchURL)
	setIfPresent(&c.SearchAPIKey, raw.SearchAPIKey)
	setIfPresent(&c.SearchCollection, raw.SearchCollection)
	setIfPresent(&c.LogFile, raw.LogFile)
	setIfPresent(&c.OTelEndpoint, raw.OTelEndpoint)
	if raw.PollIntervalSeconds > 0 {
		c.PollInterval = time.Duration(raw.PollIntervalSeconds) * time.Second
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		key string
		dst *string
	}{
		{EnvAPIURL, &c.APIURL},
		{EnvAPIPrefix, &c.APIPrefix},
		{EnvSearchURL, &c.SearchURL},
		{EnvSearchAPIKey, &c.SearchAPIKey},
		{EnvSearchCollection, &c.SearchCollection},
		{EnvLogFile, &c.LogFile},
		{EnvOTelEndpoint, &c.OTelEndpoint},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.key); ok {
			setIfPresent(o.dst, v)
		}
	}
}

// UsesDefaultSearchKey reports whether the search key is the sample key.
func (c Config) UsesDefaultSearchKey() bool {
	return c.SearchAPIKey == DefaultSearchAPIKey
}

// WithPollSeconds returns c with the poll interval overridden when secs > 0.
func (c Config) WithPollSeconds(secs int) Config {
	if secs > 0 {
		c.PollInterval = time.Duration(secs) * time.Second
	}
	return c
}

// String renders the config for logs with the search key masked.
func (c Config) String() string {
	key := "unset"
	if c.SearchAPIKey != "" {
		key = "set"
	}
	return "api=" + c.APIURL + c.APIPrefix +
		" search=" + c.SearchURL + "/" + c.SearchCollection +
		" search_key=" + key +
		" poll=" + strconv.Itoa(int(c.PollInterval/time.Second)) + "s"
}

func setIfPresent(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
