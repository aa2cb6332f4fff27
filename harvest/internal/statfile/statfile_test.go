package statfile

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testHeader = []string{"player_id", "name", "pass_att_reg", "pass_att_post"}

func openTest(t *testing.T, path string) *Table {
	t.Helper()
	tbl, err := Open(path, testHeader)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { tbl.Close() })
	return tbl
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return rows
}

func TestOpen_CreatesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")

	tbl := openTest(t, path)
	if tbl.Count() != 0 {
		t.Fatalf("count = %d, want 0", tbl.Count())
	}
	tbl.Close()

	// Reopen: header must not be duplicated.
	openTest(t, path).Close()

	rows := readAll(t, path)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want header only", len(rows))
	}
	if rows[0][0] != "player_id" {
		t.Fatalf("header = %v", rows[0])
	}
}

func TestAppend_ThenReopen(t *testing.T) {
	// WHAT: Appended rows and their ids survive a close/reopen cycle.
	// WHY: The id index is what the restart-time duplicate check queries;
	// losing it would re-append players after an interruption.
	path := filepath.Join(t.TempDir(), "stats.csv")

	tbl := openTest(t, path)
	if err := tbl.Append("1", []string{"1", "Alan Abel", "520", ""}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := tbl.Append("2", []string{"2", "Chris Baker", "", "33"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	tbl.Close()

	re := openTest(t, path)
	if !re.Has("1") || !re.Has("2") || re.Has("3") {
		t.Fatal("id index wrong after reopen")
	}
	if re.Count() != 2 {
		t.Fatalf("count = %d, want 2", re.Count())
	}

	rows := readAll(t, path)
	if len(rows) != 3 {
		t.Fatalf("file rows = %d, want header + 2", len(rows))
	}
	if rows[1][2] != "520" || rows[2][3] != "33" {
		t.Fatalf("rows = %v", rows[1:])
	}
	// Missing values are empty fields, never "0".
	if rows[1][3] != "" || rows[2][2] != "" {
		t.Fatalf("missing fields serialized as %q/%q, want empty", rows[1][3], rows[2][2])
	}
}

func TestAppend_DuplicateID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	tbl := openTest(t, path)

	if err := tbl.Append("1", []string{"1", "Alan", "1", ""}); err != nil {
		t.Fatalf("append: %v", err)
	}
	err := tbl.Append("1", []string{"1", "Alan", "2", ""})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	if tbl.Count() != 1 {
		t.Fatalf("count = %d, want 1", tbl.Count())
	}
}

func TestAppend_WrongWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	tbl := openTest(t, path)

	if err := tbl.Append("1", []string{"1", "short"}); err == nil {
		t.Fatal("expected width error")
	}
}

func TestOpen_TruncatesTornTail(t *testing.T) {
	// WHAT: A trailing partial line (crash mid-append) is dropped on open.
	// WHY: The torn row's player was never checkpointed, so it will be
	// re-harvested; keeping the fragment would corrupt the CSV.
	path := filepath.Join(t.TempDir(), "stats.csv")
	tbl := openTest(t, path)
	if err := tbl.Append("1", []string{"1", "Alan", "520", ""}); err != nil {
		t.Fatalf("append: %v", err)
	}
	tbl.Close()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`2,"Chris Ba`); err != nil {
		t.Fatal(err)
	}
	f.Close()

	re := openTest(t, path)
	if re.Has("2") {
		t.Fatal("torn row should not register an id")
	}
	if re.Count() != 1 {
		t.Fatalf("count = %d, want 1", re.Count())
	}

	// The table is appendable again and stays valid CSV.
	if err := re.Append("2", []string{"2", "Chris Baker", "", "33"}); err != nil {
		t.Fatalf("append after repair: %v", err)
	}
	re.Close()
	rows := readAll(t, path)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
}

func TestOpen_HeaderMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	if err := os.WriteFile(path, []byte("player_id,other\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path, testHeader)
	if err == nil || !strings.Contains(err.Error(), "header mismatch") {
		t.Fatalf("err = %v, want header mismatch", err)
	}
}

func TestOpen_DuplicateInFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	body := "player_id,name,pass_att_reg,pass_att_post\n1,Alan,5,\n1,Alan,5,\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path, testHeader)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestOpen_QuotedFieldsWithCommas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	tbl := openTest(t, path)
	if err := tbl.Append("1", []string{"1", `Abel, Jr., Alan`, "9", ""}); err != nil {
		t.Fatalf("append: %v", err)
	}
	tbl.Close()

	re := openTest(t, path)
	if !re.Has("1") {
		t.Fatal("quoted row not indexed")
	}
	rows := readAll(t, path)
	if rows[1][1] != "Abel, Jr., Alan" {
		t.Fatalf("name = %q", rows[1][1])
	}
}
