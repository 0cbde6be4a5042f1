package world

import "errors"

var (
	// ErrCapacityExceeded is returned by Create/Register at the live-entity ceiling.
	ErrCapacityExceeded = errors.New("entity capacity exceeded")
	// ErrInvalidReference marks a handle that no longer resolves.
	ErrInvalidReference = errors.New("invalid entity reference")
	// ErrConfiguration is wrapped by NewController for unusable options.
	ErrConfiguration = errors.New("invalid world configuration")
	// ErrAlreadyRegistered is returned when registering a tracked or pooled entity.
	ErrAlreadyRegistered = errors.New("entity already registered")
	// ErrSerialsExhausted is returned by Create/Register once every serial has been minted.
	ErrSerialsExhausted = errors.New("entity serials exhausted")
	// ErrInvalidKind is returned for KindUnknown or out-of-range kinds.
	ErrInvalidKind = errors.New("invalid entity kind")
)
