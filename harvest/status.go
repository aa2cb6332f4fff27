package harvest

import (
	"context"
	"errors"
	"io/fs"

	"github.com/hazyhaar/moisson/harvest/internal/journal"
	"github.com/hazyhaar/moisson/harvest/internal/roster"
)

// Progress reports harvest coverage from the roster checkpoint.
type Progress struct {
	RosterTotal int `json:"roster_total"`
	Scraped     int `json:"scraped"`
	Pending     int `json:"pending"`
}

// Progress reads the roster file and counts coverage. Returns
// ErrRosterMissing when discovery has not run yet.
func (s *Service) Progress() (Progress, error) {
	store, err := roster.Load(s.cfg.RosterPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Progress{}, ErrRosterMissing
		}
		return Progress{}, err
	}
	scraped := store.ScrapedCount()
	return Progress{
		RosterTotal: store.Len(),
		Scraped:     scraped,
		Pending:     store.Len() - scraped,
	}, nil
}

// Totals returns all-time journal counts by attempt status.
func (s *Service) Totals(ctx context.Context) (map[string]int, error) {
	return s.journal.Totals(ctx)
}

// Failures returns recent non-ok journal entries, newest first.
func (s *Service) Failures(ctx context.Context, limit int) ([]journal.Entry, error) {
	return s.journal.RecentFailures(ctx, limit)
}

// History returns the attempt trail for one player, newest first.
func (s *Service) History(ctx context.Context, playerID string, limit int) ([]journal.Entry, error) {
	return s.journal.History(ctx, playerID, limit)
}
