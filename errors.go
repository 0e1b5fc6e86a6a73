package main

import (
	"errors"
	"fmt"
)

var (
	ErrTooFewPlayers     = errors.New("too few players")
	ErrInvalidRoleConfig = errors.New("invalid role distribution")
	ErrInvalidRule       = errors.New("invalid rule")
	ErrNoRoster          = errors.New("no active players in roster")
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrEmptyResponse     = errors.New("empty response")
)

// ConfigError is returned by game setup validation. It is always fatal and
// always raised before the first turn.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config %s: %v", e.Field, e.Err) }

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(field string, err error, format string, args ...any) error {
	return &ConfigError{Field: field, Err: fmt.Errorf("%w: "+format, append([]any{err}, args...)...)}
}
