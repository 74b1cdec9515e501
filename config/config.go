// Package config loads qrun settings from a YAML file, a .env file and
// QCIRCUIT_* environment variables, in increasing order of precedence.
package config

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/qcircuit/errors"
	"github.com/wippyai/qcircuit/plugin"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "QCIRCUIT_"

// Backend names.
const (
	BackendSim  = "sim"
	BackendNone = "none"
)

// Output formats.
const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// Config holds driver configuration
type Config struct {
	LogLevel         string `yaml:"log_level"`
	Backend          string `yaml:"backend"`
	PluginDir        string `yaml:"plugin_dir"`
	ABIConstraint    string `yaml:"abi_constraint"`
	Format           string `yaml:"format"`
	Shots            int    `yaml:"shots"`
	CacheSize        int    `yaml:"cache_size"`
	MaxQubits        int    `yaml:"max_qubits"`
	Seed             uint64 `yaml:"seed"`
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`
	Watch            bool   `yaml:"watch"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		Backend:       BackendSim,
		ABIConstraint: plugin.DefaultABIConstraint,
		Format:        FormatText,
		Shots:         1,
		CacheSize:     plugin.DefaultCacheSize,
		MaxQubits:     24,
	}
}

// Load reads path (if not empty), then a .env file in the working directory
// (if present), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "open config "+path)
		}
		defer f.Close()
		if err := cfg.Decode(f); err != nil {
			return nil, err
		}
	}

	// Load .env file if it exists
	_ = godotenv.Load()

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode merges YAML from r into c. Unknown keys are rejected.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode config")
	}
	return nil
}

// ParseEnv reads KEY=value lines in .env syntax into c.
func (c *Config) ParseEnv(data []byte) error {
	env, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse env")
	}
	return c.ApplyEnv(func(k string) string { return env[k] })
}

// ApplyEnv overrides fields from QCIRCUIT_* variables looked up with get.
// Empty values are ignored.
func (c *Config) ApplyEnv(get func(string) string) error {
	str := func(key string, dst *string) {
		if v := get(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	str("LOG_LEVEL", &c.LogLevel)
	str("BACKEND", &c.Backend)
	str("PLUGIN_DIR", &c.PluginDir)
	str("ABI_CONSTRAINT", &c.ABIConstraint)
	str("FORMAT", &c.Format)

	var errs []string
	num := func(key string, bits int, set func(uint64)) {
		v := get(EnvPrefix + key)
		if v == "" {
			return
		}
		n, err := strconv.ParseUint(v, 10, bits)
		if err != nil {
			errs = append(errs, EnvPrefix+key+"="+v)
			return
		}
		set(n)
	}
	num("SHOTS", 31, func(n uint64) { c.Shots = int(n) })
	num("CACHE_SIZE", 31, func(n uint64) { c.CacheSize = int(n) })
	num("MAX_QUBITS", 31, func(n uint64) { c.MaxQubits = int(n) })
	num("SEED", 64, func(n uint64) { c.Seed = n })
	num("MEMORY_LIMIT_PAGES", 32, func(n uint64) { c.MemoryLimitPages = uint32(n) })

	if v := get(EnvPrefix + "WATCH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, EnvPrefix+"WATCH="+v)
		} else {
			c.Watch = b
		}
	}

	if len(errs) > 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(errs).
			Detail("invalid environment override %s", strings.Join(errs, ", ")).
			Build()
	}
	return nil
}

// Level returns the zap level named by LogLevel.
func (c *Config) Level() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return lvl, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log_level")
	}
	return lvl, nil
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	invalid := func(field, detail string) error {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(field).
			Detail("%s", detail).
			Build()
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.Backend {
	case BackendSim, BackendNone:
	default:
		return invalid("backend", "backend must be sim or none, got "+strconv.Quote(c.Backend))
	}
	switch c.Format {
	case FormatText, FormatJSON, FormatMsgpack:
	default:
		return invalid("format", "format must be text, json or msgpack, got "+strconv.Quote(c.Format))
	}
	if c.Shots < 1 {
		return invalid("shots", "shots must be at least 1")
	}
	if c.CacheSize < 1 {
		return invalid("cache_size", "cache_size must be at least 1")
	}
	if c.MaxQubits < 1 {
		return invalid("max_qubits", "max_qubits must be at least 1")
	}
	if _, err := semver.NewConstraint(c.ABIConstraint); err != nil {
		return invalid("abi_constraint", err.Error())
	}
	if c.Watch && c.PluginDir == "" {
		return invalid("watch", "watch requires plugin_dir")
	}
	return nil
}

// WasmConfig returns the loader settings.
func (c *Config) WasmConfig() *plugin.WasmConfig {
	return &plugin.WasmConfig{
		ABIConstraint:    c.ABIConstraint,
		CacheSize:        c.CacheSize,
		MemoryLimitPages: c.MemoryLimitPages,
	}
}
