package repository

import "errors"

// Sentinel kinds for preference store errors.
var (
	// ErrStorageUnavailable wraps any failure to read or write durable state.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")
	// ErrCorruptRecord reports persisted profiles that could not be decoded.
	// LoadAll returns it together with every record it could read.
	ErrCorruptRecord = errors.New("corrupt profile record")
)
