// Package config provides configuration loading for the dfc command.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KyungWonPark/DynamicConnectivity/internal/volume"
	"github.com/KyungWonPark/DynamicConnectivity/internal/window"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Sliding window parameters
	Window window.Params `yaml:"window"`

	// Processing parameters
	Processing struct {
		// Workers is the number of goroutines computing windows
		Workers int `yaml:"workers"`

		// QueueSize is the number of series the batch command keeps loaded ahead
		QueueSize int `yaml:"queueSize"`

		// Sequential computes windows one after another on the calling goroutine
		Sequential bool `yaml:"sequential"`

		// Debug logs worker pool activity
		Debug bool `yaml:"debug"`
	} `yaml:"processing"`

	// Region naming and selection
	Regions struct {
		// NamesFile is a csv file with one row per region in label order
		NamesFile string `yaml:"namesFile"`

		// NameColumn is the csv column holding the region name
		NameColumn string `yaml:"nameColumn"`

		// OfInterest lists region names averaged into the ROI series
		OfInterest []string `yaml:"ofInterest,omitempty"`
	} `yaml:"regions"`

	// Label volume used for reconstruction
	Volume struct {
		LabelFile string `yaml:"labelFile"`

		// Shape is the voxel grid, x y z
		Shape []int `yaml:"shape"`
	} `yaml:"volume"`

	// Output parameters
	Output struct {
		Dir string `yaml:"dir"`

		// Raw also writes the global series as raw little-endian float64
		Raw bool `yaml:"raw"`

		// SharedMemory exports the stack to a shared memory segment and runs
		// Consumer on it before the segment is destroyed
		SharedMemory bool `yaml:"sharedMemory"`

		// Consumer is called as: consumer <windows> <regions> <segment id>
		Consumer string `yaml:"consumer"`
	} `yaml:"output"`

	Metrics struct {
		// Textfile is a Prometheus textfile collector path, empty to skip
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Window = window.Params{Size: 44, Step: 2, FrameDuration: 0.9}

	cfg.Processing.Workers = runtime.NumCPU()
	cfg.Processing.QueueSize = 4

	cfg.Regions.NameColumn = "full_name"

	cfg.Volume.Shape = []int{91, 109, 91}

	cfg.Output.Dir = "."

	cfg.Logging.Level = "info"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// Validate checks the values that cannot be checked against the input data.
// Window size against the series length is checked when the series is known.
func (c *Config) Validate() error {
	if err := c.Window.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Processing.QueueSize < 1 {
		return fmt.Errorf("%w: processing.queueSize=%d", ErrInvalidConfig, c.Processing.QueueSize)
	}
	if len(c.Regions.OfInterest) > 0 && c.Regions.NamesFile == "" {
		return fmt.Errorf("%w: regions.ofInterest needs regions.namesFile", ErrInvalidConfig)
	}
	if c.Output.SharedMemory && c.Output.Consumer == "" {
		return fmt.Errorf("%w: output.sharedMemory needs output.consumer", ErrInvalidConfig)
	}
	if c.Volume.LabelFile != "" {
		if _, err := c.VolumeShape(); err != nil {
			return err
		}
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// VolumeShape returns volume.shape as a volume.Shape
func (c *Config) VolumeShape() (volume.Shape, error) {
	s := c.Volume.Shape
	if len(s) != 3 || s[0] < 1 || s[1] < 1 || s[2] < 1 {
		return volume.Shape{}, fmt.Errorf("%w: volume.shape=%v", ErrInvalidConfig, s)
	}
	return volume.Shape{X: s[0], Y: s[1], Z: s[2]}, nil
}

// LogLevel parses logging.level
func (c *Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: logging.level=%q", ErrInvalidConfig, c.Logging.Level)
}
