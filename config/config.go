// Package config loads the workflow configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables prefixed with PRICINGWIZARD (for example
// PRICINGWIZARD_TUNING_N_ITER=20). The result is validated before use.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "PRICINGWIZARD"

// Config represents the complete workflow configuration
type Config struct {
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Tuning  TuningConfig  `yaml:"tuning" envconfig:"TUNING"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json console"`
}

// TuningConfig contains the search and evaluation constants
type TuningConfig struct {
	NIter       int     `yaml:"n_iter" envconfig:"N_ITER" validate:"min=1"`
	CVFolds     int     `yaml:"cv_folds" envconfig:"CV_FOLDS" validate:"min=2"`
	NRepeats    int     `yaml:"n_repeats" envconfig:"N_REPEATS" validate:"min=1"`
	RandomState uint64  `yaml:"random_state" envconfig:"RANDOM_STATE"`
	NJobs       int     `yaml:"n_jobs" envconfig:"N_JOBS" validate:"min=-1"`
	TestSize    float64 `yaml:"test_size" envconfig:"TEST_SIZE" validate:"gt=0,lt=1"`
}

// PathsConfig contains output locations
type PathsConfig struct {
	ModelsDir string `yaml:"models_dir" envconfig:"MODELS_DIR" validate:"required"`
	PlotsDir  string `yaml:"plots_dir" envconfig:"PLOTS_DIR" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tuning: TuningConfig{
			NIter:       10,
			CVFolds:     5,
			NRepeats:    10,
			RandomState: 42,
			NJobs:       1,
			TestSize:    0.2,
		},
		Paths: PathsConfig{
			ModelsDir: "models/pickled_models",
			PlotsDir:  "visualization",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}

	// タグに default を付けていないので、未設定の変数は既存の値を上書きしない
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load config from env")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewValidationError(fe.Namespace(), "failed on the '"+fe.Tag()+"' rule", fe.Value())
		}
		return errors.Wrap(err, "config validation failed")
	}
	return nil
}
