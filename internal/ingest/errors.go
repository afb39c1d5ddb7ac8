package ingest

import "errors"

// ErrEntityNotFound signals that the entity behind a queued operation no
// longer exists; the sweep resolves such items instead of failing them.
var ErrEntityNotFound = errors.New("entity not found")

// PermanentError marks a failure that retrying cannot fix, such as content
// the provider rejects as unembeddable. The queue promotes these to
// dead_letter on first sight instead of burning attempts.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err as a PermanentError. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether any error in the chain is a PermanentError.
// Everything else (network, timeout, rate limit) is treated as transient.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
