// Package config loads ActionRegister configuration from TOML files and
// applies it, including hot-reapplying runtime-changeable settings when
// the file changes on disk.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/actionkit"
)

// RegistrySection mirrors actionkit.RegistryConfig in file form.
type RegistrySection struct {
	Debug                bool   `toml:"debug"`
	MaxHandlers          int    `toml:"max_handlers"`
	MaxRetries           int    `toml:"max_retries"`
	RetryDelay           string `toml:"retry_delay"`
	DefaultExecutionMode string `toml:"default_execution_mode"`
	AutoCleanup          *bool  `toml:"auto_cleanup"`
}

// File is the on-disk configuration schema.
//
//	name = "editor-actions"
//
//	[registry]
//	debug = true
//	max_handlers = 32
//	retry_delay = "250ms"
//	default_execution_mode = "sequential"
//
//	[modes]
//	"file.save" = "parallel"
type File struct {
	Name     string            `toml:"name"`
	Registry RegistrySection   `toml:"registry"`
	Modes    map[string]string `toml:"modes"`
}

// ParseError describes a configuration file that could not be parsed.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing config file %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads configuration from the given path. A missing file is not an
// error; it returns (nil, nil).
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return parse(path, data)
}

// LoadFromReader reads configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse("<reader>", data)
}

func parse(source string, data []byte) (*File, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, &ParseError{
			Path:    source,
			Message: err.Error(),
			Err:     err,
		}
	}
	return &f, nil
}

// Config converts the file into an actionkit.Config, starting from
// defaults and overlaying the values the file sets. It fails on an
// invalid execution mode or an unparseable retry delay.
func (f *File) Config() (actionkit.Config, error) {
	cfg := actionkit.DefaultConfig()

	if f.Name != "" {
		cfg = cfg.WithName(f.Name)
	}
	cfg = cfg.WithDebug(f.Registry.Debug)
	if f.Registry.MaxHandlers > 0 {
		cfg = cfg.WithMaxHandlers(f.Registry.MaxHandlers)
	}
	if f.Registry.AutoCleanup != nil {
		cfg = cfg.WithAutoCleanup(*f.Registry.AutoCleanup)
	}

	if f.Registry.DefaultExecutionMode != "" {
		mode := actionkit.ExecutionMode(f.Registry.DefaultExecutionMode)
		if !mode.IsValid() {
			return actionkit.Config{}, fmt.Errorf("%w: default_execution_mode %q",
				actionkit.ErrInvalidMode, f.Registry.DefaultExecutionMode)
		}
		cfg = cfg.WithDefaultExecutionMode(mode)
	}

	delay, err := f.retryDelay()
	if err != nil {
		return actionkit.Config{}, err
	}
	if f.Registry.MaxRetries > 0 || delay > 0 {
		cfg = cfg.WithRetryPolicy(f.Registry.MaxRetries, delay)
	}

	for action, mode := range f.Modes {
		if !actionkit.ExecutionMode(mode).IsValid() {
			return actionkit.Config{}, fmt.Errorf("%w: mode %q for action %s",
				actionkit.ErrInvalidMode, mode, action)
		}
	}

	return cfg, nil
}

// NewRegister builds an ActionRegister from the file, including the
// per-action mode overrides in [modes].
func (f *File) NewRegister() (*actionkit.ActionRegister, error) {
	cfg, err := f.Config()
	if err != nil {
		return nil, err
	}
	r := actionkit.New(cfg)
	for action, mode := range f.Modes {
		if err := r.SetActionExecutionMode(action, actionkit.ExecutionMode(mode)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Apply re-applies the file's runtime-changeable settings to an existing
// register: the debug flag and the per-action mode overrides. Settings
// fixed at construction time (handler limits, default mode, retry
// policy) are left alone.
func (f *File) Apply(r *actionkit.ActionRegister) error {
	for action, mode := range f.Modes {
		if err := r.SetActionExecutionMode(action, actionkit.ExecutionMode(mode)); err != nil {
			return err
		}
	}
	r.SetDebug(f.Registry.Debug)
	return nil
}

func (f *File) retryDelay() (time.Duration, error) {
	if f.Registry.RetryDelay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(f.Registry.RetryDelay)
	if err != nil {
		return 0, fmt.Errorf("invalid retry_delay %q: %w", f.Registry.RetryDelay, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid retry_delay %q: negative", f.Registry.RetryDelay)
	}
	return d, nil
}
