package session

import "errors"

var (
	// ErrStoreUnavailable is matched by every error caused by the
	// persistence medium (unreadable, unwritable, corrupt or undecryptable).
	ErrStoreUnavailable = errors.New("session store unavailable")

	// ErrNoEncryptionKey is returned when no at-rest key is configured and
	// plaintext storage was not explicitly allowed.
	ErrNoEncryptionKey = errors.New("session encryption key is not configured")

	// ErrDecryptionFailed is returned when a stored token cannot be opened
	// with the configured key.
	ErrDecryptionFailed = errors.New("stored token could not be decrypted")
)

// StoreError indicates a credential storage error.
type StoreError struct {
	Op    string // "load", "save", "clear"
	Path  string
	Cause error
}

func (e *StoreError) Error() string {
	msg := e.Op + " session"
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is reports every StoreError as ErrStoreUnavailable.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}
