package batch

import (
	"fmt"
	"runtime"
)

// Config controls a batch run.
type Config struct {
	// Workers is the number of cells assembled concurrently (0 = runtime.NumCPU()).
	Workers int
	// ContinueOnError keeps dispatching cells after a cell fails. When false the
	// first failure stops dispatch; cells already running still finish.
	ContinueOnError bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:         runtime.NumCPU(),
		ContinueOnError: true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return nil
}
