// Package config holds the service configuration: named sections of key/value
// pairs with typed accessors.
//
// The file format is YAML, one mapping per section:
//
//	general:
//	  dbpath: postgres://isso@localhost/isso
//	  host:
//	    - https://example.com/
//	  max-age: 15m
//	server:
//	  listen: http://localhost:8080
//
// Values absent from the file fall back to Default. A Config is immutable;
// With returns a modified copy.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io/fs"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SessionKeyEnv names the environment variable that supplies general.session-key
// when the file does not. Worker processes inherit the parent's key through it.
const SessionKeyEnv = "ISSO_SESSION_KEY"

// Config is a read-only set of configuration sections.
type Config struct {
	sections map[string]map[string]any
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{sections: map[string]map[string]any{
		"general": {
			"dbpath":      "memory:",
			"host":        []any{"http://localhost:8080/"},
			"session-key": defaultSessionKey(),
			"max-age":     "15m",
			"notify":      "stdout",
			"log-level":   "info",
			"log-format":  "json",
		},
		"server": {
			"listen":           "http://localhost:8080",
			"execution":        "goroutines",
			"workers":          4,
			"max-connections":  0,
			"profile":          false,
			"assets":           "/usr/share/isso",
			"shutdown-timeout": "30s",
		},
		"moderation": {
			"enabled":     false,
			"purge-after": "720h",
		},
		"guard": {
			"enabled":   true,
			"ratelimit": 2,
		},
		"smtp": {
			"host":     "localhost",
			"port":     25,
			"username": "",
			"password": "",
			"from":     "",
			"to":       "",
		},
		"resend": {
			"api-key": "",
		},
		"cache": {
			"redis-url": "",
			"ttl":       "1m",
		},
		"sentry": {
			"dsn":         "",
			"environment": "production",
		},
	}}
}

// Load reads the file at path over the defaults.
// A missing file is not an error: the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, errors.Join(ErrReadConfig, err)
	}

	return Parse(data)
}

// Parse decodes YAML data over the defaults.
func Parse(data []byte) (*Config, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Join(ErrParseConfig, err)
	}

	cfg := Default()
	for section, values := range raw {
		section = normalize(section)
		if cfg.sections[section] == nil {
			cfg.sections[section] = make(map[string]any, len(values))
		}
		for key, value := range values {
			cfg.sections[section][normalize(key)] = value
		}
	}
	return cfg, nil
}

// With returns a copy of the configuration with section.key set to value.
func (c *Config) With(section, key string, value any) *Config {
	sections := make(map[string]map[string]any, len(c.sections))
	for name, values := range c.sections {
		sections[name] = maps.Clone(values)
	}

	section = normalize(section)
	if sections[section] == nil {
		sections[section] = make(map[string]any)
	}
	sections[section][normalize(key)] = value

	return &Config{sections: sections}
}

// Has reports whether section.key is set.
func (c *Config) Has(section, key string) bool {
	_, ok := c.lookup(section, key)
	return ok
}

// String returns section.key as a string, or "" if unset.
func (c *Config) String(section, key string) string {
	v, ok := c.lookup(section, key)
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		return strings.Join(c.List(section, key), ", ")
	}
	return ""
}

// Bool returns section.key as a boolean. Accepts on/off and yes/no besides the
// strconv forms. Unset or unparsable values are false.
func (c *Config) Bool(section, key string) bool {
	v, ok := c.lookup(section, key)
	if !ok {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case int:
		return val != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "on", "yes":
			return true
		case "off", "no":
			return false
		}
		b, _ := strconv.ParseBool(strings.TrimSpace(val))
		return b
	}
	return false
}

// Int returns section.key as an integer, or 0 if unset or unparsable.
func (c *Config) Int(section, key string) int {
	v, ok := c.lookup(section, key)
	if !ok {
		return 0
	}
	switch val := v.(type) {
	case int:
		return val
	case float64:
		return int(val)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(val))
		return n
	}
	return 0
}

// Duration returns section.key as a duration. Strings use time.ParseDuration
// syntax plus "d" (days) and "w" (weeks) suffixes; bare numbers are seconds.
func (c *Config) Duration(section, key string) time.Duration {
	v, ok := c.lookup(section, key)
	if !ok {
		return 0
	}
	switch val := v.(type) {
	case int:
		return time.Duration(val) * time.Second
	case float64:
		return time.Duration(val * float64(time.Second))
	case string:
		d, _ := parseDuration(strings.TrimSpace(val))
		return d
	}
	return 0
}

// List returns section.key as a list of strings. A scalar string is split on
// commas and newlines; empty items are dropped.
func (c *Config) List(section, key string) []string {
	v, ok := c.lookup(section, key)
	if !ok || v == nil {
		return nil
	}

	var items []string
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
	case []string:
		items = val
	case string:
		items = strings.FieldsFunc(val, func(r rune) bool { return r == ',' || r == '\n' })
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Config) lookup(section, key string) (any, bool) {
	values, ok := c.sections[normalize(section)]
	if !ok {
		return nil, false
	}
	v, ok := values[normalize(key)]
	return v, ok
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}

	unit := time.Duration(0)
	switch {
	case strings.HasSuffix(s, "d"):
		unit = 24 * time.Hour
	case strings.HasSuffix(s, "w"):
		unit = 7 * 24 * time.Hour
	}
	if unit > 0 {
		n, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * unit, nil
	}

	return time.ParseDuration(s)
}

func defaultSessionKey() string {
	if key := os.Getenv(SessionKeyEnv); key != "" {
		return key
	}
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
