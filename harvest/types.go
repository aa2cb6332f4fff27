package harvest

import (
	"github.com/hazyhaar/moisson/harvest/internal/fetch"
	"github.com/hazyhaar/moisson/harvest/internal/journal"
	"github.com/hazyhaar/moisson/harvest/internal/normalize"
	"github.com/hazyhaar/moisson/harvest/internal/roster"
)

// Re-exported types so callers only import harvest.
type (
	RosterEntry  = roster.Entry
	StatRecord   = normalize.Record
	Cell         = normalize.Cell
	FetchError   = fetch.Error
	ExtractError = normalize.ExtractError
	JournalEntry = journal.Entry
)

// ErrNotFound is returned when a player id is absent from the roster.
var ErrNotFound = roster.ErrNotFound
