// Package config loads readpe settings from TOML.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// Formats lists the supported output formats.
var Formats = []string{"text", "json", "yaml"}

var ErrInvalidConfig = errors.New("invalid configuration")

// Config controls how headers are decoded and reported.
type Config struct {
	Format         string `mapstructure:"format" default:"text"`
	NoColor        bool   `mapstructure:"no_color"`
	LabelWidth     int    `mapstructure:"label_width" default:"34"`
	FlagIndent     int    `mapstructure:"flag_indent" default:"42"`
	FlagsFile      string `mapstructure:"flags_file"`
	SerialValidate bool   `mapstructure:"serial_validate"`
	Verbose        bool   `mapstructure:"verbose"`
}

// Default returns the built-in settings.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Load returns the defaults overlaid with the keys set in the TOML file
// at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	var raw map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := Decode(raw, cfg); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return cfg, nil
}

// Decode overlays raw onto cfg. Unknown keys are rejected.
func Decode(raw map[string]interface{}, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}

// Validate checks the settings for consistency.
func (c *Config) Validate() error {
	if !slices.Contains(Formats, c.Format) {
		return errors.Wrapf(ErrInvalidConfig, "unknown format %q", c.Format)
	}
	if c.LabelWidth <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "label_width must be positive, got %d", c.LabelWidth)
	}
	if c.FlagIndent <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "flag_indent must be positive, got %d", c.FlagIndent)
	}
	return nil
}
