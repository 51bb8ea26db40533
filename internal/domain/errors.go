package domain

import (
	"errors"
	"fmt"
)

// Sync failures.
var (
	// ErrNoArtifactFound indicates the output directory holds no report artifact.
	ErrNoArtifactFound = errors.New("no report artifact found")
	// ErrLinkNotFound indicates the matched message carries no document link.
	ErrLinkNotFound = errors.New("no document link found in message")
)

// ErrEmptyResult marks a partial-data warning for an optional service that answered with nothing.
var ErrEmptyResult = errors.New("optional service returned empty")

// AdapterUnavailableError reports that a required external service could not be reached.
type AdapterUnavailableError struct {
	Adapter Adapter
	Err     error
}

func (e *AdapterUnavailableError) Error() string {
	return fmt.Sprintf("required adapter %s is unavailable: %v", e.Adapter, e.Err)
}

func (e *AdapterUnavailableError) Unwrap() error { return e.Err }

// IncompleteDataError reports that a required adapter result is missing entirely.
type IncompleteDataError struct {
	Adapter Adapter
}

func (e *IncompleteDataError) Error() string {
	return fmt.Sprintf("incomplete data: no result from required adapter %s", e.Adapter)
}

// MissingPlaceholderError names a template placeholder that has no value.
type MissingPlaceholderError struct {
	Name string
}

func (e *MissingPlaceholderError) Error() string {
	return fmt.Sprintf("template placeholder {%s} has no value", e.Name)
}

// AmbiguousOrMissingReferenceError reports that the inbox search did not yield exactly one message.
type AmbiguousOrMissingReferenceError struct {
	Label      string
	Candidates int
}

func (e *AmbiguousOrMissingReferenceError) Error() string {
	if e.Candidates == 0 {
		return fmt.Sprintf("no message found for %q", e.Label)
	}
	return fmt.Sprintf("%d messages match %q, refusing to guess", e.Candidates, e.Label)
}

// WarningKind classifies a non-fatal condition.
type WarningKind string

const (
	PartialDataWarning        WarningKind = "partial_data"
	SummarizationFallbackUsed WarningKind = "summarization_fallback"
)

// Warning is a non-fatal condition recorded while the pipeline continues with degraded data.
type Warning struct {
	Kind    WarningKind
	Subject string // adapter or repository the warning is about
	Err     error
}

func (w Warning) String() string {
	if w.Err == nil {
		return fmt.Sprintf("%s: %s", w.Kind, w.Subject)
	}
	return fmt.Sprintf("%s: %s: %v", w.Kind, w.Subject, w.Err)
}
