package domain

import (
	"errors"
	"fmt"
)

var (
	ErrStoreUnavailable = errors.New("security store unavailable")
	ErrMalformedEvent   = errors.New("malformed activity event")
	ErrDuplicateAlertID = errors.New("alert id already exists")
	ErrAlertNotFound    = errors.New("alert not found")
	ErrInvalidConfig    = errors.New("invalid detection config")
)

type fieldError struct {
	Field  string
	Reason string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *fieldError) Unwrap() error {
	return ErrInvalidConfig
}

// NewConfigError reports a misconfigured setting. It matches ErrInvalidConfig
// with errors.Is.
func NewConfigError(field, reason string) error {
	return &fieldError{Field: field, Reason: reason}
}

func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var fe *fieldError
	return errors.As(err, &fe)
}
