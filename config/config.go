// Package config loads javasyn settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
)

// DefaultFile is read when no --config flag is given. A missing default
// file is not an error.
const DefaultFile = "javasyn.toml"

type Config struct {
	UI     UI     `toml:"ui"`
	Scan   Scan   `toml:"scan"`
	Output Output `toml:"output"`
	Watch  Watch  `toml:"watch"`
}

type UI struct {
	Addr           string  `toml:"addr"`
	RateLimit      float64 `toml:"rate_limit"`
	Burst          int     `toml:"burst"`
	MaxSourceBytes int64   `toml:"max_source_bytes"`
	// ScanRoot confines the paths a UI scan may read. Relative roots
	// resolve against the working directory.
	ScanRoot string `toml:"scan_root"`
}

type Scan struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
	Jobs    int      `toml:"jobs"`
}

type Output struct {
	Format string `toml:"format"`
	Color  bool   `toml:"color"`
}

type Watch struct {
	Debounce Duration `toml:"debounce"`
}

// Duration decodes TOML strings such as "300ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

var Formats = []string{"text", "json", "msgpack"}

func Default() *Config {
	return &Config{
		UI: UI{
			Addr:           "localhost:8080",
			RateLimit:      20,
			Burst:          40,
			MaxSourceBytes: 1 << 20,
			ScanRoot:       ".",
		},
		Scan: Scan{
			Include: []string{"**.java"},
			Exclude: []string{"**/build/**", "**/.git/**"},
		},
		Output: Output{
			Format: "text",
			Color:  true,
		},
		Watch: Watch{
			Debounce: Duration{300 * time.Millisecond},
		},
	}
}

// Load reads path on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("decode config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional behaves like Load but returns the defaults when path does
// not exist.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

func (c *Config) Validate() error {
	if !IsFormat(c.Output.Format) {
		return fmt.Errorf("output.format: unknown format %q", c.Output.Format)
	}
	if c.UI.RateLimit <= 0 {
		return fmt.Errorf("ui.rate_limit: must be positive, got %v", c.UI.RateLimit)
	}
	if c.UI.Burst <= 0 {
		return fmt.Errorf("ui.burst: must be positive, got %d", c.UI.Burst)
	}
	if c.UI.MaxSourceBytes <= 0 {
		return fmt.Errorf("ui.max_source_bytes: must be positive, got %d", c.UI.MaxSourceBytes)
	}
	if c.UI.ScanRoot == "" {
		return errors.New("ui.scan_root: must not be empty")
	}
	if c.Scan.Jobs < 0 {
		return fmt.Errorf("scan.jobs: must not be negative, got %d", c.Scan.Jobs)
	}
	if c.Watch.Debounce.Duration < 0 {
		return fmt.Errorf("watch.debounce: must not be negative, got %v", c.Watch.Debounce)
	}
	for _, pattern := range append(append([]string{}, c.Scan.Include...), c.Scan.Exclude...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("scan: invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func IsFormat(name string) bool {
	for _, f := range Formats {
		if f == name {
			return true
		}
	}
	return false
}
