// Package apperr defines the error kinds surfaced by ingest and filtering,
// and a bounded retry helper for transient store failures.
package apperr

import "errors"

// Error kinds. Callers wrap these with fmt.Errorf("...: %w", ErrX) and
// test with errors.Is.
var (
	// ErrBadInput marks malformed VCF, PED or configuration input.
	ErrBadInput = errors.New("bad input")

	// ErrSchemaMismatch marks JSON that matches no known schema version.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrConflict marks re-ingest of an existing analysis or an invalid append.
	ErrConflict = errors.New("conflict")

	// ErrMissingReference marks an unknown gene, gene panel or transcript
	// where the caller required a match.
	ErrMissingReference = errors.New("missing reference")

	// ErrInconsistent marks annotation shadows built from a different
	// frequency-group configuration than the live one.
	ErrInconsistent = errors.New("inconsistent")

	// ErrTransient marks store unavailability or temp table collisions.
	ErrTransient = errors.New("transient")
)

// Kind returns the matching sentinel for err, or nil if err is not one of
// the known kinds.
func Kind(err error) error {
	for _, k := range []error{
		ErrBadInput, ErrSchemaMismatch, ErrConflict,
		ErrMissingReference, ErrInconsistent, ErrTransient,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
