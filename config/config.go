// Package config loads faceverify settings from FACE_* environment variables.
package config

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/sugarme/faceir/backbone"
	"github.com/sugarme/faceir/encoder"
)

// Prefix is the environment variable prefix.
const Prefix = "FACE"

type Config struct {
	// Model
	Resolution int64  `envconfig:"RESOLUTION" default:"112"`
	Depth      int    `envconfig:"DEPTH" default:"50"`
	Variant    string `envconfig:"VARIANT" default:"ir"`
	Weights    string `envconfig:"WEIGHTS"`
	BGR        bool   `envconfig:"BGR" default:"false"`

	// Runtime
	Cuda    bool `envconfig:"CUDA" default:"false"`
	Workers int  `envconfig:"WORKERS" default:"4"`
}

// Load reads the environment. Values are not validated here; see Backbone.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return &cfg, nil
}

// Backbone converts the model fields into a validated backbone.Config.
func (c *Config) Backbone() (backbone.Config, error) {
	variant, err := encoder.ParseVariant(c.Variant)
	if err != nil {
		return backbone.Config{}, err
	}
	cfg := backbone.Config{
		Resolution: c.Resolution,
		Depth:      encoder.Depth(c.Depth),
		Variant:    variant,
	}
	if err := cfg.Validate(); err != nil {
		return backbone.Config{}, err
	}
	return cfg, nil
}
