package latticevault

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is() checks.
var (
	// ErrUnknownVariant is returned for a parameter variant name that is not
	// part of the published tables.
	ErrUnknownVariant = errors.New("unknown parameter variant")

	// ErrParameterMismatch is returned when a key, ciphertext or signature has
	// the wrong size for its variant. Detected before any arithmetic begins;
	// inputs are never truncated or padded.
	ErrParameterMismatch = errors.New("parameter mismatch")

	// ErrDecryptionFailed is returned when the authenticated payload cipher
	// rejects the ciphertext.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrSignatureInvalid is returned when an envelope signature fails
	// verification. Distinct from ErrDecryptionFailed.
	ErrSignatureInvalid = errors.New("signature verification failed")

	// ErrSigningAttemptsExceeded is returned when the bounded rejection
	// sampling loop exhausts its per-variant attempt budget. This implies a
	// parameter or entropy problem and is fatal for the call.
	ErrSigningAttemptsExceeded = errors.New("signing rejection attempts exceeded")

	// ErrKeyNotFound is returned by registry lookups for unknown identifiers.
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyRevoked is returned when an operation references a revoked key.
	ErrKeyRevoked = errors.New("key has been revoked")

	// ErrDelegationFailed is returned when a configured HSM backend cannot
	// service an operation. The operation fails closed; the software path is
	// never used as a silent fallback.
	ErrDelegationFailed = errors.New("hsm delegation failed")

	// ErrDelegationTimeout is returned when an HSM call exceeds its deadline.
	// Callers must treat this as distinct from a cryptographic rejection.
	ErrDelegationTimeout = errors.New("hsm delegation timed out")
)

// ParameterMismatchError reports a wrong-size input with what was expected.
type ParameterMismatchError struct {
	Field   string
	Variant string
	Got     int
	Want    int
}

func (e *ParameterMismatchError) Error() string {
	return fmt.Sprintf("%s: %s for %s is %d bytes, want %d",
		ErrParameterMismatch, e.Field, e.Variant, e.Got, e.Want)
}

// Is implements errors.Is for sentinel matching.
func (e *ParameterMismatchError) Is(target error) bool {
	return target == ErrParameterMismatch
}

// DelegationError reports a failed HSM delegation with its cause and how many
// attempts were made before failing closed.
type DelegationError struct {
	Op       string
	Backend  string
	Attempts int
	Timeout  time.Duration
	Err      error
}

func (e *DelegationError) Error() string {
	return fmt.Sprintf("hsm delegation of %s to %s failed after %d attempt(s): %v",
		e.Op, e.Backend, e.Attempts, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *DelegationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel matching.
func (e *DelegationError) Is(target error) bool {
	if target == ErrDelegationFailed {
		return true
	}
	return target == ErrDelegationTimeout && errors.Is(e.Err, ErrDelegationTimeout)
}
