package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Selector keys for the configured test files.
const (
	KeySmall  = "small"
	KeyMedium = "medium"
	KeyLarge  = "large"
)

var keyOrder = []string{KeySmall, KeyMedium, KeyLarge}

// FileSpec describes one downloadable test file.
type FileSpec struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	DisplaySize string `json:"size"`
}

// Config holds the read-only test-file table. It is built once at process
// start and never mutated afterwards.
type Config struct {
	specs map[string]FileSpec
}

// Default returns the built-in test-file table pointing at public test
// endpoints.
func Default() *Config {
	return &Config{specs: map[string]FileSpec{
		KeySmall:  {Key: KeySmall, URL: "https://proof.ovh.net/files/10Mb.dat", DisplaySize: "10 MB"},
		KeyMedium: {Key: KeyMedium, URL: "https://proof.ovh.net/files/100Mb.dat", DisplaySize: "100 MB"},
		KeyLarge:  {Key: KeyLarge, URL: "https://proof.ovh.net/files/1Gb.dat", DisplaySize: "1 GB"},
	}}
}

type fileEntry struct {
	URL  string `yaml:"url"`
	Size string `yaml:"size"`
}

// Load builds the table from defaults, an optional YAML file and environment
// overrides, in that order. An empty path skips the file entirely.
//
// YAML shape:
//
//	files:
//	  small:
//	    url: https://example.com/10MB.bin
//	    size: 10 MB
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		var raw struct {
			Files map[string]fileEntry `yaml:"files"`
		}
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		for key, entry := range raw.Files {
			spec, ok := cfg.specs[key]
			if !ok {
				return nil, fmt.Errorf("unknown file key %q in config file", key)
			}
			if entry.URL != "" {
				spec.URL = entry.URL
			}
			if entry.Size != "" {
				spec.DisplaySize = entry.Size
			}
			cfg.specs[key] = spec
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets SPEEDTEST_URL_SMALL and friends override the table. Env wins
// over the config file.
func (c *Config) applyEnv() {
	for _, key := range keyOrder {
		if v := os.Getenv("SPEEDTEST_URL_" + strings.ToUpper(key)); v != "" {
			spec := c.specs[key]
			spec.URL = v
			c.specs[key] = spec
		}
	}
}

// Lookup returns the spec for a selector key.
func (c *Config) Lookup(key string) (FileSpec, bool) {
	spec, ok := c.specs[key]
	return spec, ok
}

// Files returns all specs in selector order.
func (c *Config) Files() []FileSpec {
	out := make([]FileSpec, 0, len(keyOrder))
	for _, key := range keyOrder {
		out = append(out, c.specs[key])
	}
	return out
}
