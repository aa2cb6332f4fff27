package harvest

import "errors"

var (
	// ErrRosterMissing means no roster file exists yet. Run discovery to
	// build one before harvesting.
	ErrRosterMissing = errors.New("moisson: roster file not found, run discovery first")

	// ErrIndexUnavailable means a player index page could not be fetched
	// or parsed. Discovery aborts rather than write a partial roster.
	ErrIndexUnavailable = errors.New("moisson: player index page unavailable")
)
