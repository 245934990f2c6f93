package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config captures the knobs of one training run. Values come from an optional
// YAML file, with command-line flags overriding individual fields.
type Config struct {
	// Data is the path of the sample CSV: one row per sample, flattened
	// row-major pixels with the label as the last field.
	Data string `yaml:"data"`

	// GridDim is the image dimension N of the N×N grid.
	GridDim int `yaml:"grid_dim"`

	// Labels is the allowed label set.
	Labels []float64 `yaml:"labels"`

	// TestFraction of samples held out for evaluation.
	TestFraction float64 `yaml:"test_fraction"`

	// Backend configuration, "<name>:<config>" (see backends.NewWithConfig).
	Backend string `yaml:"backend"`

	// Optimizer registry name, e.g. "neldermead" or "cmaes".
	Optimizer string `yaml:"optimizer"`

	// Layers of the ansatz.
	Layers int `yaml:"layers"`

	// BatchSize of mini-batches.
	BatchSize int `yaml:"batch_size"`

	// MaxIterations bounds objective evaluations.
	MaxIterations int `yaml:"max_iterations"`

	// Tolerance for optimizer convergence.
	Tolerance float64 `yaml:"tolerance"`

	// Shots per execution; 0 asks for exact expectations (simulators only).
	Shots int `yaml:"shots"`

	// Seed for θ initialization, batching and the train/test split.
	Seed int64 `yaml:"seed"`

	// Device to transpile for: "", "linear", "grid" or "full".
	Device string `yaml:"device"`

	// Output path for the trained θ and loss history (JSON).
	Output string `yaml:"output"`
}

// DefaultConfig returns the configuration used when neither file nor flags
// say otherwise.
func DefaultConfig() Config {
	return Config{
		GridDim:       3,
		Labels:        []float64{-1, 0, 1},
		TestFraction:  0.2,
		Backend:       "statevector",
		Optimizer:     "neldermead",
		Layers:        1,
		BatchSize:     4,
		MaxIterations: 100,
		Tolerance:     1e-6,
		Output:        "qugrid-model.json",
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	contents, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.UnmarshalStrict(contents, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.Data == "" {
		return errors.New("config: data CSV path is required")
	}
	if c.GridDim <= 0 {
		return errors.Errorf("config: grid_dim must be positive, got %d", c.GridDim)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("config: batch_size must be positive, got %d", c.BatchSize)
	}
	if c.MaxIterations <= 0 {
		return errors.Errorf("config: max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Layers <= 0 {
		return errors.Errorf("config: layers must be positive, got %d", c.Layers)
	}
	if c.Shots < 0 {
		return errors.Errorf("config: shots must be non-negative, got %d", c.Shots)
	}
	if c.TestFraction < 0 || c.TestFraction >= 1 {
		return errors.Errorf("config: test_fraction must be in [0, 1), got %g", c.TestFraction)
	}
	switch c.Device {
	case "", "linear", "grid", "full":
	default:
		return errors.Errorf("config: unknown device %q (want linear, grid or full)", c.Device)
	}
	return nil
}
