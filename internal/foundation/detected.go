// Package foundation provides generic utilities for type-safe operations.
package foundation

import "fmt"

// Detected represents the outcome of a heuristic that either recognized a
// value or could not decide. Unlike Option, the negative case carries the
// reason no value was detected, so callers can report why a fallback was
// applied instead of silently defaulting.
type Detected[T any] struct {
	value  T
	known  bool
	reason string
}

// Known creates a Detected holding a recognized value.
func Known[T any](value T) Detected[T] {
	return Detected[T]{
		value: value,
		known: true,
	}
}

// Unknown creates a Detected for a value no heuristic matched.
func Unknown[T any](reason string) Detected[T] {
	return Detected[T]{
		reason: reason,
	}
}

// IsKnown returns true if a value was detected.
func (d Detected[T]) IsKnown() bool {
	return d.known
}

// Value returns the detected value and whether it is present.
func (d Detected[T]) Value() (T, bool) {
	return d.value, d.known
}

// Reason returns why detection failed. Empty for known values.
func (d Detected[T]) Reason() string {
	if d.known {
		return ""
	}
	return d.reason
}

// UnwrapOr returns the detected value, or the fallback when unknown.
// Fallback application belongs at the presentation boundary; intermediate
// layers should pass Detected through unchanged.
func (d Detected[T]) UnwrapOr(fallback T) T {
	if d.known {
		return d.value
	}
	return fallback
}

// Match executes onKnown with the value, or onUnknown with the reason.
func (d Detected[T]) Match(onKnown func(T), onUnknown func(reason string)) {
	if d.known {
		onKnown(d.value)
	} else {
		onUnknown(d.reason)
	}
}

// MapDetected transforms a Detected[T] to Detected[U], preserving the reason
// when unknown.
func MapDetected[T, U any](d Detected[T], fn func(T) U) Detected[U] {
	if d.known {
		return Known(fn(d.value))
	}
	return Unknown[U](d.reason)
}

// String provides a string representation of the Detected.
func (d Detected[T]) String() string {
	if d.known {
		return fmt.Sprintf("Known(%v)", d.value)
	}
	return fmt.Sprintf("Unknown(%s)", d.reason)
}
