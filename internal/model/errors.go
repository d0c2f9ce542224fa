package model

import (
	"errors"
	"fmt"
)

// The engine's error taxonomy. All are typed so callers can distinguish
// "fix your input" from "retry is safe" without string matching. An uncertain
// or unknown evaluation outcome is a status, never one of these errors.

// ValidationError reports malformed or out-of-range caller input. It is
// raised before any scoring happens and surfaced to the caller verbatim.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a lookup for an entity the corpus does not contain.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ExtractionUnavailableError means the text-understanding collaborator was
// unreachable or timed out. Callers may fall back to the structured input
// path; the engine never substitutes an empty or default profile.
type ExtractionUnavailableError struct {
	Err error
}

func (e *ExtractionUnavailableError) Error() string {
	return "extraction unavailable: " + e.Err.Error()
}

func (e *ExtractionUnavailableError) Unwrap() error { return e.Err }

// CorpusUnavailableError means the catalog store failed. It is fatal for the
// request: ranking over a silently truncated corpus would be misleading for
// a clinical decision-support tool, so no partial result is ever returned.
type CorpusUnavailableError struct {
	Err error
}

func (e *CorpusUnavailableError) Error() string {
	return "corpus unavailable: " + e.Err.Error()
}

func (e *CorpusUnavailableError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsExtractionUnavailable reports whether err is (or wraps) an
// ExtractionUnavailableError.
func IsExtractionUnavailable(err error) bool {
	var ee *ExtractionUnavailableError
	return errors.As(err, &ee)
}

// IsCorpusUnavailable reports whether err is (or wraps) a
// CorpusUnavailableError.
func IsCorpusUnavailable(err error) bool {
	var ce *CorpusUnavailableError
	return errors.As(err, &ce)
}
