package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by lookups that match nothing.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey marks an insert that collided on external_id.
	// Callers treat it as "not newly inserted", not as a failure.
	ErrDuplicateKey = errors.New("duplicate external_id")
)

// UpstreamError covers every way a source query can fail: network errors,
// timeouts, non-2xx responses and malformed bodies.
type UpstreamError struct {
	Source     string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("upstream %s: HTTP %d: %v", e.Source, e.StatusCode, e.Err)
		}
		return fmt.Sprintf("upstream %s: HTTP %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("upstream %s: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// RecordParseError is returned when a raw result lacks a required field.
type RecordParseError struct {
	Source string
	Field  string
	Err    error // optional decode error
}

func (e *RecordParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s record: %s: %v", e.Source, e.Field, e.Err)
	}
	return fmt.Sprintf("parse %s record: missing %s", e.Source, e.Field)
}

func (e *RecordParseError) Unwrap() error {
	return e.Err
}
