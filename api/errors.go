package api

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupported   = errors.New("unsupported")
	ErrEmptyResponse = errors.New("empty response")
)

// ConfigError reports an invalid adapter configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

func NewConfigError(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.Message
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{Message: msg}
}

// UnsupportedError matches ErrUnsupported with errors.Is.
type UnsupportedError struct {
	Message string
}

func (e *UnsupportedError) Error() string {
	return "unsupported: " + e.Message
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

func NewUnsupportedError(msg string) error {
	return &UnsupportedError{Message: msg}
}
