// Package statfile owns the stats table: an append-only, header-described
// CSV with one row per player. Rows are flushed and synced individually so
// that a crash can lose at most the row being written, and the file is
// repaired on open by truncating a torn trailing line. The set of player ids
// already present is indexed on open; it is what the orchestrator's
// duplicate/repair check runs against.
package statfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// ErrDuplicate is returned when an append names a player id that already has
// a row. The table never holds two rows for one player.
var ErrDuplicate = errors.New("statfile: duplicate player id")

// Table is the open stats file. A single worker owns it.
type Table struct {
	path   string
	header []string
	idCol  int
	ids    map[string]bool
	f      *os.File
	w      *csv.Writer
}

// Open opens or creates the stats table at path with the given header. An
// existing file must carry exactly the same header: appending rows in a
// different column layout would corrupt the table. A trailing partial line
// left by a crash during append is truncated before reading; any row that
// survived intact was necessarily written before the crash and stays.
func Open(path string, header []string) (*Table, error) {
	idCol := slices.Index(header, "player_id")
	if idCol < 0 {
		return nil, errors.New("statfile: header has no player_id column")
	}

	t := &Table{
		path:   path,
		header: append([]string(nil), header...),
		idCol:  idCol,
		ids:    make(map[string]bool),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := t.create(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("statfile: read: %w", err)
	default:
		if err := t.load(data); err != nil {
			return nil, err
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("statfile: open for append: %w", err)
	}
	t.f = f
	t.w = csv.NewWriter(f)
	return t, nil
}

func (t *Table) create() error {
	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("statfile: create: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(t.header); err != nil {
		f.Close()
		return fmt.Errorf("statfile: write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("statfile: write header: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("statfile: sync header: %w", err)
	}
	return f.Close()
}

func (t *Table) load(data []byte) error {
	// Torn tail: every complete append ends in a newline, so bytes after
	// the last newline belong to a row whose player was never checkpointed.
	// Dropping them is safe; keeping them would corrupt the next append.
	if n := len(data); n > 0 && data[n-1] != '\n' {
		cut := bytes.LastIndexByte(data, '\n') + 1
		if err := os.Truncate(t.path, int64(cut)); err != nil {
			return fmt.Errorf("statfile: truncate torn tail: %w", err)
		}
		data = data[:cut]
	}
	if len(data) == 0 {
		// Crashed before the header landed; start over.
		if err := os.Remove(t.path); err != nil {
			return fmt.Errorf("statfile: remove empty file: %w", err)
		}
		return t.create()
	}

	// The reader pins FieldsPerRecord from the header row, so every data
	// row is checked against the file's own width.
	r := csv.NewReader(bytes.NewReader(data))
	head, err := r.Read()
	if err != nil {
		return fmt.Errorf("statfile: read header: %w", err)
	}
	if !slices.Equal(head, t.header) {
		return fmt.Errorf("statfile: header mismatch: file has %d columns in a different layout", len(head))
	}
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("statfile: line %d: %w", line, err)
		}
		id := row[t.idCol]
		if t.ids[id] {
			return fmt.Errorf("line %d: %w: %q", line, ErrDuplicate, id)
		}
		t.ids[id] = true
	}
	return nil
}

// Has reports whether a row for the player id is already present.
func (t *Table) Has(id string) bool { return t.ids[id] }

// Count returns the number of player rows (excluding the header).
func (t *Table) Count() int { return len(t.ids) }

// Append writes one player row, flushes, and syncs. The row must match the
// header layout; appending a second row for an id fails with ErrDuplicate.
func (t *Table) Append(id string, row []string) error {
	if len(row) != len(t.header) {
		return fmt.Errorf("statfile: row has %d fields, header has %d", len(row), len(t.header))
	}
	if t.ids[id] {
		return fmt.Errorf("%w: %q", ErrDuplicate, id)
	}
	if err := t.w.Write(row); err != nil {
		return fmt.Errorf("statfile: append: %w", err)
	}
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		return fmt.Errorf("statfile: append: %w", err)
	}
	if err := t.f.Sync(); err != nil {
		return fmt.Errorf("statfile: sync: %w", err)
	}
	t.ids[id] = true
	return nil
}

// Close closes the underlying file.
func (t *Table) Close() error {
	if t.f == nil {
		return nil
	}
	err := t.f.Close()
	t.f = nil
	return err
}
