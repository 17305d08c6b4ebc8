package actionkit

import (
	"time"

	"github.com/dshills/actionkit/logging"
)

// ExecutionMode selects the concurrency strategy for one dispatch's
// filtered handler set.
type ExecutionMode string

const (
	// ModeSequential runs handlers one at a time in priority order.
	ModeSequential ExecutionMode = "sequential"
	// ModeParallel starts all handlers concurrently and waits for the
	// blocking ones.
	ModeParallel ExecutionMode = "parallel"
	// ModeRace starts all handlers concurrently; the first settled
	// handler's outcome becomes the run's outcome.
	ModeRace ExecutionMode = "race"
)

// IsValid reports whether the mode is one of the defined execution modes.
func (m ExecutionMode) IsValid() bool {
	switch m {
	case ModeSequential, ModeParallel, ModeRace:
		return true
	}
	return false
}

// RegistryConfig holds the behavioral configuration of an ActionRegister.
type RegistryConfig struct {
	// Debug enables verbose logging of guard drops, handler faults, and
	// fire-and-forget outcomes.
	Debug bool

	// MaxHandlers limits the number of handlers per action. Zero means
	// unlimited. Registration beyond the limit fails with
	// ErrCapacityExceeded.
	MaxHandlers int

	// MaxRetries and RetryDelay are reserved configuration surfaced to
	// handlers via the pipeline controller. The engine itself does not
	// retry; handlers implementing retry read these explicitly.
	MaxRetries int
	RetryDelay time.Duration

	// DefaultExecutionMode is used when neither the dispatch options nor
	// a per-action override specify a mode.
	DefaultExecutionMode ExecutionMode

	// AutoCleanup removes an action's table entry when its last handler
	// is unregistered and no mode override remains.
	AutoCleanup bool
}

// Config holds construction-time configuration for an ActionRegister.
type Config struct {
	// Name identifies this register instance in logs.
	Name string

	// Registry configures dispatch behavior.
	Registry RegistryConfig

	// Logger receives engine logging. Defaults to a no-op logger.
	Logger logging.Logger
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name: "action-register",
		Registry: RegistryConfig{
			DefaultExecutionMode: ModeSequential,
			AutoCleanup:          true,
		},
		Logger: logging.NoOpLogger{},
	}
}

// WithName returns a copy of the config with the register name set.
func (c Config) WithName(name string) Config {
	c.Name = name
	return c
}

// WithDebug returns a copy of the config with debug logging set.
func (c Config) WithDebug(debug bool) Config {
	c.Registry.Debug = debug
	return c
}

// WithMaxHandlers returns a copy of the config with the per-action
// handler limit set.
func (c Config) WithMaxHandlers(n int) Config {
	c.Registry.MaxHandlers = n
	return c
}

// WithDefaultExecutionMode returns a copy of the config with the default
// execution mode set. Invalid modes are ignored.
func (c Config) WithDefaultExecutionMode(mode ExecutionMode) Config {
	if mode.IsValid() {
		c.Registry.DefaultExecutionMode = mode
	}
	return c
}

// WithRetryPolicy returns a copy of the config with the reserved retry
// configuration set.
func (c Config) WithRetryPolicy(maxRetries int, delay time.Duration) Config {
	c.Registry.MaxRetries = maxRetries
	c.Registry.RetryDelay = delay
	return c
}

// WithAutoCleanup returns a copy of the config with auto-cleanup set.
func (c Config) WithAutoCleanup(cleanup bool) Config {
	c.Registry.AutoCleanup = cleanup
	return c
}

// WithLogger returns a copy of the config with the logger set.
func (c Config) WithLogger(logger logging.Logger) Config {
	if logger != nil {
		c.Logger = logger
	}
	return c
}
