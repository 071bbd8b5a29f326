package sods

import (
	"errors"
	"fmt"
)

// Failure kinds. Configuration errors are fatal and reported before any scoring; source and
// export errors come from the external collaborators and are passed through to the caller.
var (
	ErrConfig = errors.New("configuration error")
	ErrSource = errors.New("data source error")
	ErrExport = errors.New("export error")
)

// ConfigError names the configuration element that is invalid.
type ConfigError struct {
	Element string
	Reason  string
}

func NewConfigError(element, format string, args ...any) *ConfigError {
	return &ConfigError{Element: element, Reason: fmt.Sprintf(format, args...)}
}

func (c *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrConfig, c.Element, c.Reason)
}

func (c *ConfigError) Unwrap() error {
	return ErrConfig
}

func SourceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSource, op, err)
}

func ExportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrExport, op, err)
}
