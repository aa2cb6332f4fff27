// Package roster owns the roster table: the authoritative, ordered list of
// known players and their scrape status. The table lives in memory for the
// duration of a run and is checkpointed to its CSV file after every mutation,
// so a crash at any instant loses at most the player currently in flight.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// ErrNotFound is returned when an operation names a player id that is not in
// the roster. Callers treat it as an invariant violation, not a retryable
// condition.
var ErrNotFound = errors.New("roster: unknown player id")

// Entry is one player in the roster table.
type Entry struct {
	PlayerID    string
	Link        string
	Name        string
	Position    string
	CareerBegin int
	CareerEnd   *int // nil when the roster row leaves it blank
	Active      bool
	Scraped     bool
}

// Header is the roster CSV column set, in file order.
var Header = []string{
	"player_id", "link", "name", "position",
	"career_begin", "career_end", "active", "scraped",
}

// Store is the in-memory roster backed by a CSV file. A single worker owns
// it; it is not safe for concurrent mutation.
type Store struct {
	path    string
	entries []Entry
	byID    map[string]int
}

// Load reads the roster file at path. Column positions are resolved from the
// header row, not assumed, and every listed column must be present. Duplicate
// player ids are a corruption of the one-row-per-player contract and fail the
// load.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("roster: open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	head, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("roster: read header: %w", err)
	}
	col := make(map[string]int, len(head))
	for i, name := range head {
		col[name] = i
	}
	for _, name := range Header {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("roster: header missing column %q", name)
		}
	}

	s := &Store{path: path, byID: make(map[string]int)}
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("roster: line %d: %w", line, err)
		}
		e, err := parseRow(row, col)
		if err != nil {
			return nil, fmt.Errorf("roster: line %d: %w", line, err)
		}
		if _, dup := s.byID[e.PlayerID]; dup {
			return nil, fmt.Errorf("roster: line %d: duplicate player id %q", line, e.PlayerID)
		}
		s.byID[e.PlayerID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return s, nil
}

func parseRow(row []string, col map[string]int) (Entry, error) {
	field := func(name string) string {
		i := col[name]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	var e Entry
	e.PlayerID = field("player_id")
	if e.PlayerID == "" {
		return Entry{}, errors.New("empty player_id")
	}
	e.Link = field("link")
	e.Name = field("name")
	e.Position = field("position")

	begin, err := strconv.Atoi(field("career_begin"))
	if err != nil {
		return Entry{}, fmt.Errorf("career_begin: %w", err)
	}
	e.CareerBegin = begin

	if v := field("career_end"); v != "" {
		end, err := strconv.Atoi(v)
		if err != nil {
			return Entry{}, fmt.Errorf("career_end: %w", err)
		}
		e.CareerEnd = &end
	}

	e.Active, err = strconv.ParseBool(field("active"))
	if err != nil {
		return Entry{}, fmt.Errorf("active: %w", err)
	}
	e.Scraped, err = strconv.ParseBool(field("scraped"))
	if err != nil {
		return Entry{}, fmt.Errorf("scraped: %w", err)
	}
	return e, nil
}

// Len returns the number of roster entries.
func (s *Store) Len() int { return len(s.entries) }

// ScrapedCount returns how many entries have been committed.
func (s *Store) ScrapedCount() int {
	n := 0
	for i := range s.entries {
		if s.entries[i].Scraped {
			n++
		}
	}
	return n
}

// Get returns the entry for id.
func (s *Store) Get(id string) (Entry, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// All returns a copy of every entry in stored order.
func (s *Store) All() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Pending returns the entries still to be scraped, in stored order. The
// stored order is what makes interrupting and resuming deterministic: a
// restart continues from the first pending entry instead of re-deciding.
func (s *Store) Pending() []Entry {
	var out []Entry
	for i := range s.entries {
		if !s.entries[i].Scraped {
			out = append(out, s.entries[i])
		}
	}
	return out
}

// MarkScraped flips the entry's scraped flag and checkpoints the whole table
// to disk. The flip is one-way; marking an already-scraped entry is a no-op
// that still reports success. Returns ErrNotFound for an unknown id.
func (s *Store) MarkScraped(id string) error {
	i, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if s.entries[i].Scraped {
		return nil
	}
	s.entries[i].Scraped = true
	if err := Write(s.path, s.entries); err != nil {
		s.entries[i].Scraped = false
		return err
	}
	return nil
}

// Write persists entries as a roster CSV at path. The file is written to a
// temporary sibling, synced, then renamed into place so a reader (or a crash)
// never observes a half-written table.
func Write(path string, entries []Entry) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".roster-*.csv")
	if err != nil {
		return fmt.Errorf("roster: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(Header); err != nil {
		tmp.Close()
		return fmt.Errorf("roster: write header: %w", err)
	}
	for i := range entries {
		if err := w.Write(row(&entries[i])); err != nil {
			tmp.Close()
			return fmt.Errorf("roster: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("roster: flush: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("roster: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("roster: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("roster: rename: %w", err)
	}
	return nil
}

func row(e *Entry) []string {
	end := ""
	if e.CareerEnd != nil {
		end = strconv.Itoa(*e.CareerEnd)
	}
	return []string{
		e.PlayerID,
		e.Link,
		e.Name,
		e.Position,
		strconv.Itoa(e.CareerBegin),
		end,
		strconv.FormatBool(e.Active),
		strconv.FormatBool(e.Scraped),
	}
}
