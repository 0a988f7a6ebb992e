package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind classifies why a source did not finish cleanly
type ErrorKind string

const (
	KindTransport   ErrorKind = "transport"    // Connection, DNS, timeout, unexpected status
	KindParse       ErrorKind = "parse"        // Malformed feed or HTML
	KindCancelled   ErrorKind = "cancelled"    // Cooperative stop
	KindRateLimited ErrorKind = "rate_limited" // HTTP 429
)

var (
	ErrTransport   = errors.New("transport error")
	ErrParse       = errors.New("parse error")
	ErrCancelled   = errors.New("cancelled")
	ErrRateLimited = errors.New("rate limited")
)

// SourceError is the error attached to a source run result
type SourceError struct {
	Kind   ErrorKind `json:"kind"`
	Source string    `json:"source,omitempty"`
	Err    error     `json:"-"`
}

func NewError(kind ErrorKind, err error) *SourceError {
	return &SourceError{Kind: kind, Err: err}
}

func (e *SourceError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a SourceError against the kind sentinels
func (e *SourceError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrParse:
		return e.Kind == KindParse
	case ErrCancelled:
		return e.Kind == KindCancelled
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	}
	return false
}

// MarshalJSON keeps the wrapped message, which the Err field alone would lose
func (e *SourceError) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		Kind    ErrorKind `json:"kind"`
		Source  string    `json:"source,omitempty"`
		Message string    `json:"message"`
	}{e.Kind, e.Source, msg})
}

// KindOf classifies an arbitrary error. Unknown errors count as transport
// failures since they come from the network layer.
func KindOf(err error) ErrorKind {
	var se *SourceError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &se):
		return se.Kind
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrParse):
		return KindParse
	default:
		return KindTransport
	}
}
