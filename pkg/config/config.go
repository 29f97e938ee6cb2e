// Package config loads the tree view configuration (.treegrid/config.yaml).
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/treegrid/pkg/treetable"
)

// Config represents a tree view configuration file (.treegrid/config.yaml)
type Config struct {
	// ShowRoot shows the document root as a row (default: true)
	ShowRoot *bool `yaml:"show_root,omitempty" json:"show_root,omitempty"`

	// ShowRootHandles draws expand handles on top-level rows (default: true)
	ShowRootHandles *bool `yaml:"show_root_handles,omitempty" json:"show_root_handles,omitempty"`

	// Direction is "ltr" or "rtl" (default: ltr)
	Direction string `yaml:"direction,omitempty" json:"direction,omitempty"`

	// Indent is the per-level indent in terminal cells
	Indent IndentConfig `yaml:"indent,omitempty" json:"indent,omitempty"`

	// HandleWidth is the width of the expand handle in cells (default: 1)
	HandleWidth int `yaml:"handle_width,omitempty" json:"handle_width,omitempty"`

	// DefaultExpandDepth opens every node shallower than this on load (default: 1)
	DefaultExpandDepth *int `yaml:"default_expand_depth,omitempty" json:"default_expand_depth,omitempty"`

	// StateDir is where tree-state.json is kept, relative to the config
	// directory's parent or absolute (default: .treegrid)
	StateDir string `yaml:"state_dir,omitempty" json:"state_dir,omitempty"`

	// Watch reloads the document when it changes on disk (default: true)
	Watch *bool `yaml:"watch,omitempty" json:"watch,omitempty"`

	// DebounceMS coalesces bursts of file events (default: 200)
	DebounceMS int `yaml:"debounce_ms,omitempty" json:"debounce_ms,omitempty"`

	// dir is the project directory the config was found in.
	dir string
}

// IndentConfig splits the per-level indent into its left and right parts.
type IndentConfig struct {
	Left  int `yaml:"left,omitempty" json:"left,omitempty"`
	Right int `yaml:"right,omitempty" json:"right,omitempty"`
}

const (
	defaultIndentLeft  = 1
	defaultIndentRight = 2
	defaultHandleWidth = 1
	defaultExpandDepth = 1
	defaultDebounceMS  = 200
)

// DefaultConfig returns the configuration used when no file is found
func DefaultConfig() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func (c *Config) applyDefaults() {
	if c.ShowRoot == nil {
		c.ShowRoot = boolPtr(true)
	}
	if c.ShowRootHandles == nil {
		c.ShowRootHandles = boolPtr(true)
	}
	if c.Direction == "" {
		c.Direction = "ltr"
	}
	if c.Indent.Left == 0 && c.Indent.Right == 0 {
		c.Indent = IndentConfig{Left: defaultIndentLeft, Right: defaultIndentRight}
	}
	if c.HandleWidth == 0 {
		c.HandleWidth = defaultHandleWidth
	}
	if c.DefaultExpandDepth == nil {
		c.DefaultExpandDepth = intPtr(defaultExpandDepth)
	}
	if c.StateDir == "" {
		c.StateDir = ConfigDirName
	}
	if c.Watch == nil {
		c.Watch = boolPtr(true)
	}
	if c.DebounceMS == 0 {
		c.DebounceMS = defaultDebounceMS
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	switch strings.ToLower(c.Direction) {
	case "", "ltr", "rtl":
	default:
		return errors.Newf("direction must be ltr or rtl, got %q", c.Direction)
	}
	if c.Indent.Left < 0 || c.Indent.Right < 0 {
		return errors.Newf("indent must not be negative, got left=%d right=%d", c.Indent.Left, c.Indent.Right)
	}
	if c.HandleWidth < 0 {
		return errors.Newf("handle_width must not be negative, got %d", c.HandleWidth)
	}
	if c.Indent.Right > 0 && c.HandleWidth > c.Indent.Left+c.Indent.Right {
		return errors.Newf("handle_width %d does not fit in an indent of %d",
			c.HandleWidth, c.Indent.Left+c.Indent.Right)
	}
	if c.DefaultExpandDepth != nil && *c.DefaultExpandDepth < 0 {
		return errors.Newf("default_expand_depth must not be negative, got %d", *c.DefaultExpandDepth)
	}
	if c.DebounceMS < 0 {
		return errors.Newf("debounce_ms must not be negative, got %d", c.DebounceMS)
	}
	return nil
}

// LoadConfig loads a configuration from a file and applies defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing treegrid config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid treegrid config %s", path)
	}
	cfg.applyDefaults()
	cfg.dir = filepath.Dir(filepath.Dir(path))
	return &cfg, nil
}

// Resolve finds and loads the config for a document directory. A missing
// config yields the defaults rooted at dir.
func Resolve(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		cfg.dir = dir
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}
	return LoadConfig(path)
}

// Dir returns the project directory the config applies to.
func (c *Config) Dir() string {
	return c.dir
}

// Layout converts the config into tree column geometry in terminal cells.
func (c *Config) Layout() treetable.Layout {
	l := treetable.Layout{
		LeftIndent:      c.Indent.Left,
		RightIndent:     c.Indent.Right,
		HandleWidth:     c.HandleWidth,
		RowHeight:       1,
		ShowRoot:        c.ShowRoot == nil || *c.ShowRoot,
		ShowRootHandles: c.ShowRootHandles == nil || *c.ShowRootHandles,
	}
	if strings.EqualFold(c.Direction, "rtl") {
		l.Direction = treetable.RightToLeft
	}
	return l
}

// ExpandDepth returns the effective default expansion depth.
func (c *Config) ExpandDepth() int {
	if c.DefaultExpandDepth == nil {
		return defaultExpandDepth
	}
	return *c.DefaultExpandDepth
}

// WatchEnabled returns whether file watching is on.
func (c *Config) WatchEnabled() bool {
	return c.Watch == nil || *c.Watch
}

// Debounce returns the watcher debounce interval.
func (c *Config) Debounce() time.Duration {
	if c.DebounceMS <= 0 {
		return defaultDebounceMS * time.Millisecond
	}
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// StatePath returns the tree-state.json location.
func (c *Config) StatePath() string {
	dir := expandHome(c.StateDir)
	if dir == "" {
		dir = ConfigDirName
	}
	if !filepath.IsAbs(dir) && c.dir != "" {
		dir = filepath.Join(c.dir, dir)
	}
	return treetable.TreeStatePath(dir)
}

// ExampleConfig returns the configuration written by WriteExample
func ExampleConfig() Config {
	return Config{
		ShowRoot:           boolPtr(false),
		ShowRootHandles:    boolPtr(true),
		Direction:          "ltr",
		Indent:             IndentConfig{Left: 1, Right: 2},
		HandleWidth:        1,
		DefaultExpandDepth: intPtr(2),
		StateDir:           ConfigDirName,
		Watch:              boolPtr(true),
		DebounceMS:         defaultDebounceMS,
	}
}

// WriteExample writes ExampleConfig to dir/.treegrid/config.yaml.
func WriteExample(dir string) (string, error) {
	cfg := ExampleConfig()
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return "", errors.Wrap(err, "marshal example config")
	}
	path := filepath.Join(dir, ConfigDirName, ConfigFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}
