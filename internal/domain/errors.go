package domain

import "errors"

// Failure taxonomy of the feed subsystem. None of these are fatal to
// the process; every one resolves to a retry, a resync, or a degraded
// projection.
var (
	// ErrNetwork covers snapshot/metadata fetch failures. Recovered via
	// bounded-delay retry gated on the owning session generation.
	ErrNetwork = errors.New("network error")

	// ErrParse covers malformed feed messages. The message is dropped
	// and the stream continues.
	ErrParse = errors.New("parse error")

	// ErrSequenceGap is a diff discontinuity; it forces a full
	// resynchronization and is expected to occur under normal operation.
	ErrSequenceGap = errors.New("sequence gap")

	// ErrTransportClosed triggers a scheduled reconnect with backoff.
	ErrTransportClosed = errors.New("transport closed")

	// ErrSpreadSanity marks a non-finite or excessive spread; the
	// projector degrades to an empty or quote-only projection.
	ErrSpreadSanity = errors.New("spread sanity violation")
)
