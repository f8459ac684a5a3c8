// Package config holds the celltraj configuration and loads it from files,
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/celltraj/internal/batch"
	"github.com/MeKo-Tech/celltraj/internal/features"
	"github.com/MeKo-Tech/celltraj/internal/trajectory"
)

// Output backends.
const (
	BackendFile  = "file"
	BackendMinio = "minio"
)

// Config is the complete configuration for every celltraj command.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Input    InputConfig    `mapstructure:"input" yaml:"input" json:"input"`
	Tracking TrackingConfig `mapstructure:"tracking" yaml:"tracking" json:"tracking"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine" json:"engine"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output" json:"output"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage" json:"storage"`
	Batch    BatchConfig    `mapstructure:"batch" yaml:"batch" json:"batch"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// InputConfig locates the per-frame artifacts and the trajectory file.
type InputConfig struct {
	FramesDir        string `mapstructure:"frames_dir" yaml:"frames_dir" json:"frames_dir"`
	MasksDir         string `mapstructure:"masks_dir" yaml:"masks_dir" json:"masks_dir"`
	TrajectoriesFile string `mapstructure:"trajectories_file" yaml:"trajectories_file" json:"trajectories_file"`
}

// TrackingConfig parameterizes the external tracker.
type TrackingConfig struct {
	ExpectedDiameter float64 `mapstructure:"expected_diameter" yaml:"expected_diameter" json:"expected_diameter"`
	SearchScale      float64 `mapstructure:"search_scale" yaml:"search_scale" json:"search_scale"`
}

// EngineConfig controls record assembly.
type EngineConfig struct {
	MaxNeighbors int `mapstructure:"max_neighbors" yaml:"max_neighbors" json:"max_neighbors"`
}

// OutputConfig selects where and how output units are written.
type OutputConfig struct {
	Dir       string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Format    string `mapstructure:"format" yaml:"format" json:"format"`
	IncludeID bool   `mapstructure:"include_id" yaml:"include_id" json:"include_id"`
	Backend   string `mapstructure:"backend" yaml:"backend" json:"backend"`
}

// StorageConfig configures the object store backend.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key" json:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key" json:"-"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl" json:"use_ssl"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool   `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Progress        string `mapstructure:"progress" yaml:"progress" json:"progress"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" json:"addr"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	b := batch.DefaultConfig()
	return Config{
		LogLevel: "info",
		Input: InputConfig{
			FramesDir:        "frames",
			MasksDir:         "masks",
			TrajectoriesFile: "trajectories.json",
		},
		Tracking: TrackingConfig{
			ExpectedDiameter: 25,
			SearchScale:      2,
		},
		Engine: EngineConfig{MaxNeighbors: features.DefaultMaxNeighbors},
		Output: OutputConfig{
			Dir:     "features",
			Format:  string(features.FormatCSV),
			Backend: BackendFile,
		},
		Batch: BatchConfig{
			Workers:         b.Workers,
			ContinueOnError: b.ContinueOnError,
			Progress:        batch.ProgressLog,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}

	if c.Engine.MaxNeighbors < 1 {
		errs = append(errs, fmt.Errorf("engine.max_neighbors must be at least 1, got %d", c.Engine.MaxNeighbors))
	}
	if c.Tracking.ExpectedDiameter < 0 || c.Tracking.SearchScale < 0 {
		errs = append(errs, errors.New("tracking parameters must be non-negative"))
	}

	if _, err := features.ParseFormat(c.Output.Format); err != nil {
		errs = append(errs, err)
	}
	switch c.Output.Backend {
	case BackendFile:
		if c.Output.Dir == "" {
			errs = append(errs, errors.New("output.dir is required for the file backend"))
		}
	case BackendMinio:
		if c.Storage.Endpoint == "" || c.Storage.Bucket == "" {
			errs = append(errs, errors.New("storage.endpoint and storage.bucket are required for the minio backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid output backend %q (use file or minio)", c.Output.Backend))
	}

	if err := c.RunnerConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := batch.NewProgress(c.Batch.Progress, nil, nil); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// AssemblerConfig returns the assembler configuration.
func (c *Config) AssemblerConfig() features.Config {
	return features.Config{MaxNeighbors: c.Engine.MaxNeighbors}
}

// RunnerConfig returns the runner configuration.
func (c *Config) RunnerConfig() batch.Config {
	return batch.Config{Workers: c.Batch.Workers, ContinueOnError: c.Batch.ContinueOnError}
}

// Encoding returns the output unit encoding.
func (c *Config) Encoding() (features.Encoding, error) {
	f, err := features.ParseFormat(c.Output.Format)
	if err != nil {
		return features.Encoding{}, err
	}
	return features.Encoding{Format: f, MaxNeighbors: c.Engine.MaxNeighbors, IncludeID: c.Output.IncludeID}, nil
}

// TrajectoryFormat returns the serialization format implied by the
// trajectory file extension.
func (c *Config) TrajectoryFormat() (string, error) {
	return trajectory.FormatFromPath(c.Input.TrajectoriesFile)
}
