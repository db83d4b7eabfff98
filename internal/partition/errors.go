package partition

import (
	"errors"
	"fmt"
)

// ErrConfig marks partition options rejected before any work is done.
var ErrConfig = errors.New("partition: invalid configuration")

// ConfigError names the offending option.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfig
}
