package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"pdfseek/internal/eventbus"
)

// Marker placement modes
const (
	PlacementFixed = "fixed" // constant offset inside the view, ignores the match position
	PlacementMatch = "match" // next to the matched line
)

// Config represents the application configuration
type Config struct {
	Version  int              `toml:"version"`
	Search   SearchSettings   `toml:"search"`
	Marker   MarkerSettings   `toml:"marker"`
	Document DocumentSettings `toml:"document"`
	UI       UISettings       `toml:"ui"`
}

// SearchSettings controls the find engine
type SearchSettings struct {
	CaseInsensitive bool `toml:"case_insensitive"`
	Workers         int  `toml:"workers"`
}

// MarkerSettings controls where the marker is drawn
type MarkerSettings struct {
	Placement string `toml:"placement"`
	OffsetX   int    `toml:"offset_x"`
	OffsetY   int    `toml:"offset_y"`
	Symbol    string `toml:"symbol"`
}

// DocumentSettings controls loading of the PDF
type DocumentSettings struct {
	Validate   bool `toml:"validate"`
	CachePages int  `toml:"cache_pages"`
	Watch      bool `toml:"watch"`
}

// UISettings represents UI-related configuration
type UISettings struct {
	FoundColor      string `toml:"found_color"`
	SelectionColor  string `toml:"selection_color"`
	ShowLineNumbers bool   `toml:"show_line_numbers"`
}

// ConfigService handles configuration management
type ConfigService interface {
	Path() string
	Load() (*Config, error)
	Save(config *Config) error
	LoadFromPath(path string) (*Config, error)
	SaveToPath(config *Config, path string) error
}

// configService is the concrete implementation
type configService struct {
	bus      eventbus.EventBus
	filePath string
}

// DefaultPath returns the per-user config file location
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		configDir, err = os.UserHomeDir()
		if err != nil {
			configDir = "."
		}
		configDir = filepath.Join(configDir, ".config")
	}
	return filepath.Join(configDir, "pdfseek", "config.toml")
}

// NewConfigService creates a config service reading from path.
// An empty path selects DefaultPath.
func NewConfigService(path string) ConfigService {
	if path == "" {
		path = DefaultPath()
	}
	return &configService{filePath: path}
}

// NewConfigServiceWithBus creates a config service with event bus support
func NewConfigServiceWithBus(path string, bus eventbus.EventBus) ConfigService {
	cs := NewConfigService(path).(*configService)
	cs.bus = bus
	return cs
}

func (cs *configService) Path() string {
	return cs.filePath
}

// Load loads the configuration from file.
// A missing file is not an error: the defaults are returned.
func (cs *configService) Load() (*Config, error) {
	cfg, err := cs.LoadFromPath(cs.filePath)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	if cs.bus != nil {
		cs.bus.Publish(eventbus.ConfigLoadedEvent{Path: cs.filePath})
	}
	return cfg, nil
}

// Save saves the configuration to file
func (cs *configService) Save(config *Config) error {
	return cs.SaveToPath(config, cs.filePath)
}

// LoadFromPath loads configuration from a specific path.
// Keys absent from the file keep their default values.
func (cs *configService) LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToPath saves configuration to a specific path
func (cs *configService) SaveToPath(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(config); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks values that cannot be corrected silently
func (c *Config) Validate() error {
	switch c.Marker.Placement {
	case PlacementFixed, PlacementMatch:
	default:
		return fmt.Errorf("unknown marker placement %q (want %q or %q)", c.Marker.Placement, PlacementFixed, PlacementMatch)
	}
	if c.Search.Workers < 1 {
		return fmt.Errorf("search.workers must be at least 1, got %d", c.Search.Workers)
	}
	if c.Document.CachePages < 1 {
		return fmt.Errorf("document.cache_pages must be at least 1, got %d", c.Document.CachePages)
	}
	if c.Marker.OffsetX < 0 || c.Marker.OffsetY < 0 {
		return fmt.Errorf("marker offsets must not be negative")
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchSettings{
			CaseInsensitive: true,
			Workers:         4,
		},
		Marker: MarkerSettings{
			Placement: PlacementFixed,
			OffsetX:   4,
			OffsetY:   2,
			Symbol:    "■",
		},
		Document: DocumentSettings{
			Validate:   false,
			CachePages: 64,
			Watch:      true,
		},
		UI: UISettings{
			FoundColor:      "226", // yellow
			SelectionColor:  "214",
			ShowLineNumbers: false,
		},
	}
}
