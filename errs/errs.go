// Package errs provides structured error types and helpers for the tracker.
package errs

import (
	"strconv"
	"strings"
)

// Kind identifies a tracker-specific failure category.
type Kind string

const (
	// KindInvalidID marks an identifier that is not a syntactic UUID.
	KindInvalidID Kind = "invalid_id"
	// KindNotFound marks an identifier that remains unbound after a refresh.
	KindNotFound Kind = "not_found"
	// KindInvalidResponse marks an upstream response or snapshot payload that
	// is malformed JSON or is missing its payload field.
	KindInvalidResponse Kind = "invalid_response"
	// KindDuplicateBinding marks an identifier bound more than once.
	KindDuplicateBinding Kind = "duplicate_binding"
	// KindInvalidEntry marks a dictionary pair with an empty id or name.
	KindInvalidEntry Kind = "invalid_entry"
	// KindNoEntries marks a dictionary payload with no valid pairs.
	KindNoEntries Kind = "no_entries"
	// KindInvalidRecord marks a feed line that fails the record grammar.
	KindInvalidRecord Kind = "invalid_record"
	// KindInvalidMatchID marks a feed line whose first field is not a UUID.
	KindInvalidMatchID Kind = "invalid_match_id"
	// KindFetchFailed marks a non-2xx or transport-level HTTP failure, or a
	// poll cycle whose listener rejected the snapshot.
	KindFetchFailed Kind = "fetch_failed"
	// KindTimeout marks an HTTP request that exceeded its deadline.
	KindTimeout Kind = "timeout"
	// KindNotInitialized marks use of a decoder/resolver before it is ready.
	KindNotInitialized Kind = "not_initialized"
)

// E captures structured error information produced across the tracker.
type E struct {
	Component string
	Kind      Kind
	Message   string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the component and kind.
func New(component string, kind Kind, opts ...Option) *E {
	e := &E{
		Component: strings.TrimSpace(component),
		Kind:      kind,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	component := strings.TrimSpace(e.Component)
	if component == "" {
		component = "tracker"
	}
	parts = append(parts, "component="+component)
	parts = append(parts, "kind="+string(e.Kind))
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}
	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*E); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Unwrap()
			continue
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
