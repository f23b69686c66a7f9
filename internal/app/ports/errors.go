package ports

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

var (
	ErrTransport     = errors.New("generation transport error")
	ErrService       = errors.New("generation service error")
	ErrParse         = errors.New("unparsable generation reply")
	ErrTimeout       = errors.New("generation timeout")
	ErrConfiguration = errors.New("invalid configuration")
)

type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", ErrService, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrService, e.StatusCode, e.Body)
}

func (e *ServiceError) Unwrap() error { return ErrService }

type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// IsDegradingFailure reports whether err counts toward remote-degradation.
func IsDegradingFailure(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrService) || errors.Is(err, ErrTimeout)
}
