// Package config loads runtime settings from TOML.
package config

import (
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Runtime  RuntimeConfig     `toml:"runtime"`
	Trace    TraceConfig       `toml:"trace"`
	Cache    CacheConfig       `toml:"cache"`
	Debug    DebugConfig       `toml:"debug"`
	Programs map[string]string `toml:"programs,omitempty"` // name -> assembly or image file
}

type RuntimeConfig struct {
	StrongTyping bool `toml:"strong_typing"`
	MaxStack     int  `toml:"max_stack"`
	MaxDepth     int  `toml:"max_depth"`
}

type TraceConfig struct {
	Statements   bool `toml:"statements"`
	Instructions bool `toml:"instructions"`
}

type CacheConfig struct {
	Size int `toml:"size"`
}

type DebugConfig struct {
	Prompt string `toml:"prompt"`
}

const (
	DefaultMaxStack  = 4096
	DefaultMaxDepth  = 256
	DefaultCacheSize = 64
	DefaultPrompt    = "DBG> "
)

func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Runtime.MaxStack <= 0 {
		c.Runtime.MaxStack = DefaultMaxStack
	}
	if c.Runtime.MaxDepth <= 0 {
		c.Runtime.MaxDepth = DefaultMaxDepth
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = DefaultCacheSize
	}
	if c.Debug.Prompt == "" {
		c.Debug.Prompt = DefaultPrompt
	}
	if c.Programs == nil {
		c.Programs = make(map[string]string)
	}
}

func Parse(r io.Reader) (*Config, error) {
	var out Config
	if _, err := toml.NewDecoder(r).Decode(&out); err != nil {
		return nil, err
	}
	out.applyDefaults()
	return &out, nil
}

// LoadFromFile reads a config file. Program paths are resolved relative to
// the directory holding the file. A missing file yields the defaults.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Parse(f)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for name, p := range c.Programs {
		if !filepath.IsAbs(p) {
			c.Programs[name] = filepath.Clean(filepath.Join(dir, p))
		}
	}
	return c, nil
}
