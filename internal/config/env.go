package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "SCENETX_"

// EnvLoader applies environment variable overrides to a Config.
type EnvLoader struct {
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvLoader creates an environment loader for the given prefix.
// The prefix should include the trailing underscore (e.g., "SCENETX_").
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{prefix: prefix, lookup: os.LookupEnv}
}

// NewEnvLoaderWithLookup creates a loader reading variables through lookup.
func NewEnvLoaderWithLookup(prefix string, lookup func(string) (string, bool)) *EnvLoader {
	return &EnvLoader{prefix: prefix, lookup: lookup}
}

// Apply overrides cfg fields from the environment.
// Empty values are treated as valid values, not as unset.
func (l *EnvLoader) Apply(cfg *Config) error {
	if v, ok := l.lookup(l.prefix + "HISTORY_CAPACITY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sHISTORY_CAPACITY: %w", l.prefix, err)
		}
		cfg.History.Capacity = n
	}
	if v, ok := l.lookup(l.prefix + "LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := l.lookup(l.prefix + "SCRIPT_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSCRIPT_TIMEOUT: %w", l.prefix, err)
		}
		cfg.Script.Timeout = Duration(d)
	}
	if v, ok := l.lookup(l.prefix + "SCRIPT_QUEUE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sSCRIPT_QUEUE_SIZE: %w", l.prefix, err)
		}
		cfg.Script.QueueSize = n
	}
	return nil
}
