package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Suite modes for the new feed selection checks
const (
	// ModeStrict awaits the first load before taking the first snapshot
	ModeStrict = "strict"
	// ModeFaithful fires the first load without waiting for it
	ModeFaithful = "faithful"
)

// TomlFeed represents a feed descriptor in the registry
type TomlFeed struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// TomlLoader configures how feeds are fetched and rendered
type TomlLoader struct {
	Timeout    time.Duration `toml:"timeout"`
	MaxRetries int           `toml:"max_retries"`
	MaxEntries int           `toml:"max_entries"`
	UserAgent  string        `toml:"user_agent,omitempty"`
	Languages  []string      `toml:"languages,omitempty"` // ISO 639-1 codes used for entry language tagging
}

// TomlSuite configures the behavioral check suite
type TomlSuite struct {
	Mode          string        `toml:"mode"`
	IsolateGroups *bool         `toml:"isolate_groups,omitempty"`
	CheckTimeout  time.Duration `toml:"check_timeout"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Feeds  []TomlFeed `toml:"feeds"`
	Loader TomlLoader `toml:"loader"`
	Suite  TomlSuite  `toml:"suite"`
}

// Isolated reports whether the page is reset between check groups. Defaults to true.
func (s TomlSuite) Isolated() bool {
	if s.IsolateGroups == nil {
		return true
	}
	return *s.IsolateGroups
}

// Default returns a configuration with every optional value filled in and no feeds
func Default() *TomlConfig {
	cfg := &TomlConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *TomlConfig) applyDefaults() {
	if c.Loader.Timeout <= 0 {
		c.Loader.Timeout = 10 * time.Second
	}
	if c.Loader.MaxRetries < 0 {
		c.Loader.MaxRetries = 0
	}
	if c.Loader.MaxEntries <= 0 {
		c.Loader.MaxEntries = 20
	}
	if c.Loader.UserAgent == "" {
		c.Loader.UserAgent = "feedreader/1.0"
	}
	if c.Suite.Mode == "" {
		c.Suite.Mode = ModeStrict
	}
	if c.Suite.CheckTimeout <= 0 {
		c.Suite.CheckTimeout = 15 * time.Second
	}
}

// Validate checks values that have no sensible default
func (c *TomlConfig) Validate() error {
	switch c.Suite.Mode {
	case ModeStrict, ModeFaithful:
	default:
		return fmt.Errorf("invalid suite mode %q: expected %q or %q", c.Suite.Mode, ModeStrict, ModeFaithful)
	}
	return nil
}

// Parse decodes a TOML document into a configuration
func Parse(data []byte) (*TomlConfig, error) {
	var config TomlConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func LoadConfig(path string) (*TomlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return Parse(data)
}

// AppendFeed appends a [[feeds]] table to the configuration file at path,
// creating the file if it does not exist. Existing content is left as is.
func AppendFeed(path string, feed TomlFeed) error {
	var buf bytes.Buffer
	buf.WriteString("\n")
	if err := toml.NewEncoder(&buf).Encode(struct {
		Feeds []TomlFeed `toml:"feeds"`
	}{Feeds: []TomlFeed{feed}}); err != nil {
		return fmt.Errorf("error encoding feed: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}
