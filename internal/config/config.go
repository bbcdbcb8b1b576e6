package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds all scenetx settings.
type Config struct {
	History HistoryConfig `toml:"history"`
	Logging LoggingConfig `toml:"logging"`
	Script  ScriptConfig  `toml:"script"`
}

// HistoryConfig configures the undo history.
type HistoryConfig struct {
	// Capacity bounds the undo list. Zero keeps unlimited history.
	Capacity int `toml:"capacity"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// ScriptConfig configures the Lua script host.
type ScriptConfig struct {
	// Timeout bounds a single script run. Zero disables the limit.
	Timeout Duration `toml:"timeout"`

	// QueueSize is the executor queue length.
	QueueSize int `toml:"queue_size"`
}

// Duration is a time.Duration that decodes from strings like "5s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		History: HistoryConfig{Capacity: 0},
		Logging: LoggingConfig{Level: "info"},
		Script: ScriptConfig{
			Timeout:   Duration(5 * time.Second),
			QueueSize: 100,
		},
	}
}

var validLevels = []string{"debug", "info", "warn", "error"}

// Validate checks every setting and joins all violations.
func (c Config) Validate() error {
	var errs []error
	if c.History.Capacity < 0 {
		errs = append(errs, &ValidationError{Field: "history.capacity", Value: c.History.Capacity, Message: "must be zero or positive"})
	}
	level := strings.ToLower(c.Logging.Level)
	valid := false
	for _, l := range validLevels {
		if level == l || (l == "warn" && level == "warning") {
			valid = true
			break
		}
	}
	if !valid {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of %s", strings.Join(validLevels, ", ")),
		})
	}
	if c.Script.Timeout < 0 {
		errs = append(errs, &ValidationError{Field: "script.timeout", Value: c.Script.Timeout.Std(), Message: "must not be negative"})
	}
	if c.Script.QueueSize <= 0 {
		errs = append(errs, &ValidationError{Field: "script.queue_size", Value: c.Script.QueueSize, Message: "must be positive"})
	}
	return errors.Join(errs...)
}
