// Package harvest collects career statistics for NFL players from
// pro-football-reference.com into flat CSV tables.
//
// A run walks the roster checkpoint file, fetches each pending
// player's page, extracts the career totals row of every stat table,
// appends one row to the stats table, and flips the player's scraped
// flag. The flag is only set once the stats row is durably appended,
// so an interrupted run can always be resumed without refetching or
// duplicating committed players.
package harvest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/moisson/harvest/internal/fetch"
	"github.com/hazyhaar/moisson/harvest/internal/journal"
	"github.com/hazyhaar/moisson/harvest/internal/normalize"
	"github.com/hazyhaar/moisson/harvest/internal/roster"
	"github.com/hazyhaar/moisson/harvest/internal/statfile"
)

// Run states reported by Status.
const (
	StateIdle    = "idle"
	StateRunning = "running"
	StateDone    = "done"
	StateStopped = "stopped"
	StateFailed  = "failed"
)

// Status is a snapshot of the current or most recent run.
type Status struct {
	State          string    `json:"state"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	RosterTotal    int       `json:"roster_total"`
	PendingAtStart int       `json:"pending_at_start"`
	Processed      int       `json:"processed"`
	Committed      int       `json:"committed"`
	Repaired       int       `json:"repaired"`
	FetchErrors    int       `json:"fetch_errors"`
	ExtractErrors  int       `json:"extract_errors"`
}

// Service drives roster discovery and the harvest loop.
type Service struct {
	cfg     Config
	logger  *slog.Logger
	client  *fetch.Client
	journal *journal.Journal

	mu     sync.Mutex
	status Status
}

// New builds a Service from cfg. The attempt journal is opened
// immediately; the roster and stats files are opened per run.
func New(cfg Config, logger *slog.Logger) (*Service, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	j, err := journal.Open(cfg.JournalPath())
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:     cfg,
		logger:  logger,
		client:  fetch.New(cfg.fetchConfig()),
		journal: j,
		status:  Status{State: StateIdle},
	}, nil
}

func (s *Service) Close() error { return s.journal.Close() }

// Status returns a snapshot of the current or most recent run.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Run processes every pending roster entry in stored order. Not safe
// for concurrent calls; the status API may read while it runs.
//
// Re-running after an interruption is safe: committed players are
// skipped via their scraped flag, and a stats row whose flag was lost
// to a crash is repaired without refetching.
func (s *Service) Run(ctx context.Context) error {
	store, err := roster.Load(s.cfg.RosterPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrRosterMissing
		}
		return err
	}
	table, err := statfile.Open(s.cfg.StatsPath(), normalize.Columns())
	if err != nil {
		return err
	}
	defer table.Close()

	pending := store.Pending()
	s.beginRun(store.Len(), len(pending))
	s.logger.Info("run starting",
		"roster", store.Len(),
		"pending", len(pending),
		"committed", table.Count())

	err = s.process(ctx, store, table, pending)
	s.endRun(err)

	st := s.Status()
	s.logger.Info("run finished",
		"state", st.State,
		"processed", st.Processed,
		"committed", st.Committed,
		"repaired", st.Repaired,
		"fetch_errors", st.FetchErrors,
		"extract_errors", st.ExtractErrors)
	return err
}

func (s *Service) process(ctx context.Context, store *roster.Store, table *statfile.Table, pending []roster.Entry) error {
	for i, entry := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.cfg.Limit > 0 && i >= s.cfg.Limit {
			s.logger.Info("limit reached", "limit", s.cfg.Limit)
			return nil
		}
		if err := s.processOne(ctx, store, table, entry); err != nil {
			return err
		}
	}
	return nil
}

// processOne handles a single pending player. Page-level failures
// (fetch, extract) are journaled and swallowed so the run moves on;
// anything touching local state is fatal.
func (s *Service) processOne(ctx context.Context, store *roster.Store, table *statfile.Table, entry roster.Entry) error {
	log := s.logger.With("player_id", entry.PlayerID, "name", entry.Name)

	// A stats row without its roster flag means a previous run died
	// between append and checkpoint. Flip the flag instead of
	// refetching; appending again would duplicate the row.
	if table.Has(entry.PlayerID) {
		if err := store.MarkScraped(entry.PlayerID); err != nil {
			return err
		}
		s.count(func(st *Status) { st.Processed++; st.Repaired++ })
		log.Info("repaired checkpoint")
		s.record(ctx, log, journal.Entry{
			PlayerID: entry.PlayerID,
			Status:   journal.StatusRepaired,
		})
		return nil
	}

	page, err := s.client.Fetch(ctx, entry.Link)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var fe *fetch.Error
		if errors.As(err, &fe) {
			s.count(func(st *Status) { st.Processed++; st.FetchErrors++ })
			log.Warn("fetch failed", "kind", fe.Kind.String(), "status", fe.StatusCode, "err", err)
			s.record(ctx, log, journal.Entry{
				PlayerID:   entry.PlayerID,
				Status:     journal.StatusFetchError,
				StatusCode: fe.StatusCode,
				Error:      err.Error(),
			})
			return nil
		}
		return err
	}

	rec, err := normalize.Normalize(page.Body, entry)
	if err != nil {
		var xe *normalize.ExtractError
		if errors.As(err, &xe) {
			s.count(func(st *Status) { st.Processed++; st.ExtractErrors++ })
			log.Warn("extract failed", "err", err)
			s.record(ctx, log, journal.Entry{
				PlayerID:   entry.PlayerID,
				Status:     journal.StatusExtractError,
				StatusCode: page.StatusCode,
				Error:      err.Error(),
			})
			return nil
		}
		return err
	}

	if err := table.Append(entry.PlayerID, rec.Row()); err != nil {
		return err
	}
	if err := store.MarkScraped(entry.PlayerID); err != nil {
		return err
	}
	s.count(func(st *Status) { st.Processed++; st.Committed++ })
	log.Info("committed", "status", page.StatusCode, "dur", page.Duration)
	s.record(ctx, log, journal.Entry{
		PlayerID:   entry.PlayerID,
		Status:     journal.StatusOK,
		StatusCode: page.StatusCode,
		DurationMs: page.Duration.Milliseconds(),
	})
	return nil
}

// record journals one attempt. The journal is best-effort observability;
// a write failure never fails the player.
func (s *Service) record(ctx context.Context, log *slog.Logger, e journal.Entry) {
	if err := s.journal.Record(ctx, e); err != nil {
		log.Warn("journal write failed", "err", err)
	}
}

func (s *Service) beginRun(total, pending int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = Status{
		State:          StateRunning,
		StartedAt:      time.Now(),
		RosterTotal:    total,
		PendingAtStart: pending,
	}
}

func (s *Service) endRun(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.FinishedAt = time.Now()
	switch {
	case err == nil:
		s.status.State = StateDone
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		s.status.State = StateStopped
	default:
		s.status.State = StateFailed
	}
}

func (s *Service) count(f func(*Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(&s.status)
}
