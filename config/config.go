package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/someapp/riak-dt/crdt"
)

// Structs

// Config holds all information parsed from a supplied TOML config file.
type Config struct {
	DefaultActor string
	Metrics      Metrics
	compression  crdt.CompressionSetting
}

// Metrics configures the instrumentation backend used by the metrics
// package: a non-empty Namespace selects Prometheus, an empty one falls
// back to a discarding backend.
type Metrics struct {
	Namespace string
	Subsystem string
}

// tomlConfig mirrors the on-disk schema. Compression is kept as a
// toml.Primitive here because the field accepts either a bare keyword
// string ("enabled", "disabled") or an integer gzip level (0-9); resolving
// which one was supplied happens once, in LoadConfig, via PrimitiveDecode.
type tomlConfig struct {
	DefaultActor string
	Compression  toml.Primitive
	Metrics      Metrics
}

// Functions

// LoadConfig reads the TOML config file at configFile and resolves it
// into a Config, including decoding the Compression field's keyword-or-
// integer representation into a crdt.CompressionSetting.
func LoadConfig(configFile string) (*Config, error) {

	var raw tomlConfig

	meta, err := toml.DecodeFile(configFile, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read in TOML config file at '%s' with: %v", configFile, err)
	}

	conf := &Config{
		DefaultActor: raw.DefaultActor,
		Metrics:      raw.Metrics,
	}

	if err := decodeCompression(meta, raw.Compression, conf); err != nil {
		return nil, fmt.Errorf("failed to decode Compression in '%s' with: %v", configFile, err)
	}

	return conf, nil
}

// decodeCompression resolves prim, a TOML primitive holding either a
// keyword string or an integer level, into conf.compression.
func decodeCompression(meta toml.MetaData, prim toml.Primitive, conf *Config) error {

	var asString string
	if err := meta.PrimitiveDecode(prim, &asString); err == nil {
		switch asString {
		case "", "enabled":
			conf.compression = crdt.CompressionDefault
		case "disabled":
			conf.compression = crdt.CompressionDisabled
		default:
			return fmt.Errorf("unrecognized compression keyword %q", asString)
		}
		return nil
	}

	var asInt int
	if err := meta.PrimitiveDecode(prim, &asInt); err == nil {
		if asInt < 0 || asInt > 9 {
			return fmt.Errorf("compression level %d out of range 0-9", asInt)
		}
		conf.compression = crdt.CompressionSetting(asInt)
		return nil
	}

	// Compression was never set in the file; default applies.
	conf.compression = crdt.CompressionDefault
	return nil
}

// Compression returns the process-wide compression level this Config
// resolved from its TOML source.
func (c *Config) Compression() crdt.CompressionSetting {
	return c.compression
}
