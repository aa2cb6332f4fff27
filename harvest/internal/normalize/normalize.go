// Package normalize turns a fetched player page into the unified 162-column
// career record. The page presents statistics as independently-present
// career-total tables (per category, per season scope) that vary with the
// player's position and era; the normalizer reshapes whatever subset exists
// into the fixed schema, recording everything else as missing. It is a
// structural transform only: values are taken verbatim from the source,
// never computed.
package normalize

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/moisson/harvest/internal/roster"
)

// ExtractError reports a fetched page whose fundamental shape could not be
// recognized. It is distinct from a missing category table, which is an
// expected per-player variation, not an error. Repeated ExtractErrors across
// runs usually mean the site changed its page format.
type ExtractError struct {
	Reason string
}

func (e *ExtractError) Error() string { return "normalize: " + e.Reason }

// The site wraps most tables in HTML comments to defer rendering; the
// markers are stripped so the parser sees the tables.
var commentStripper = strings.NewReplacer("<!--", "", "-->", "")

// Height and weight are parsed independently: either can be absent on old
// or sparse pages, and a single combined pattern would drop both when one
// is missing.
var (
	heightRe = regexp.MustCompile(`\b(\d-\d{1,2})\b`)
	weightRe = regexp.MustCompile(`\b(\d{2,3})lb\b`)
)

// Normalize parses a player page body into a Record, copying identity from
// the roster entry. It returns *ExtractError when the player info block
// cannot be located; a page with the info block but no statistic tables is
// normal and yields a record of missing fields.
func Normalize(body []byte, entry roster.Entry) (*Record, error) {
	doc, err := goquery.NewDocumentFromReader(
		strings.NewReader(commentStripper.Replace(string(bytes.ToValidUTF8(body, nil)))))
	if err != nil {
		return nil, &ExtractError{Reason: "parse html: " + err.Error()}
	}

	meta := doc.Find("div#meta")
	if meta.Length() == 0 {
		return nil, &ExtractError{Reason: "player info block (div#meta) not found"}
	}

	rec := &Record{
		PlayerID:    entry.PlayerID,
		Name:        entry.Name,
		Position:    entry.Position,
		CareerBegin: entry.CareerBegin,
		CareerEnd:   entry.CareerEnd,
		Active:      entry.Active,
		Stats:       make(map[string]Cell),
	}

	metaText := meta.Text()
	if m := heightRe.FindString(metaText); m != "" {
		rec.Height = cellOf(m)
	}
	if m := weightRe.FindStringSubmatch(metaText); m != nil {
		if lb, err := strconv.Atoi(m[1]); err == nil {
			rec.Weight = &lb
		}
	}

	rec.GamesReg, rec.GamesStartedReg = normalizeScope(doc, rec, "reg")
	rec.GamesPost, rec.GamesStartedPost = normalizeScope(doc, rec, "post")
	return rec, nil
}

// normalizeScope extracts every category present in one season scope and
// returns the merged games/games-started counts: the maximum reported by
// any table in the scope (the dedicated games table and each category
// table repeat them, and sparse older tables undercount), or nil when no
// table in the scope reports them.
func normalizeScope(doc *goquery.Document, rec *Record, scope string) (games, started *int) {
	var gamesVals, startedVals []int

	gamesID := gamesTableReg
	if scope == "post" {
		gamesID = gamesTablePost
	}
	if row := careerRow(doc, []string{gamesID}); row != nil {
		if v, ok := intCell(row, "g"); ok {
			gamesVals = append(gamesVals, v)
		}
		if v, ok := intCell(row, "gs"); ok {
			startedVals = append(startedVals, v)
		}
	}

	for _, c := range categories {
		ids := c.reg
		if scope == "post" {
			ids = c.post
		}
		row := careerRow(doc, ids)
		if row == nil {
			continue // every key in this category+scope stays missing
		}
		for _, k := range c.keys {
			if text, ok := statCell(row, k); ok {
				rec.Stats[k+"_"+scope] = cellOf(text)
			}
		}
		if v, ok := intCell(row, "games"); ok {
			gamesVals = append(gamesVals, v)
		}
		if v, ok := intCell(row, "games_started"); ok {
			startedVals = append(startedVals, v)
		}
	}
	return maxOf(gamesVals), maxOf(startedVals)
}

// careerRow locates the first table present among ids and returns its career
// totals row: the first row of the table footer. Returns nil when no
// candidate table exists on the page.
func careerRow(doc *goquery.Document, ids []string) *goquery.Selection {
	for _, id := range ids {
		row := doc.Find("table#" + id + " tfoot tr").First()
		if row.Length() > 0 {
			return row
		}
	}
	return nil
}

// statCell reads one cell from a career row by its stable data-stat key.
// Present-but-blank cells count as missing: the source leaves cells blank
// for statistics it did not track in that era, which is not a zero.
func statCell(row *goquery.Selection, key string) (string, bool) {
	cell := row.Find(`td[data-stat="` + key + `"]`).First()
	if cell.Length() == 0 {
		return "", false
	}
	text := strings.TrimSpace(cell.Text())
	if text == "" {
		return "", false
	}
	return text, true
}

func intCell(row *goquery.Selection, key string) (int, bool) {
	text, ok := statCell(row, key)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return v, true
}

func maxOf(vals []int) *int {
	if len(vals) == 0 {
		return nil
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return &m
}
