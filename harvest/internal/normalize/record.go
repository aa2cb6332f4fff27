package normalize

import "strconv"

// Cell is one statistic value: either missing, or the verbatim text the
// source tabulated. Missing and "0" are different things (a kicker with 0
// recorded rushing attempts is not a player whose rushing table never
// existed), so absence is explicit rather than a sentinel number.
type Cell struct {
	Text  string
	Valid bool
}

func cellOf(text string) Cell { return Cell{Text: text, Valid: true} }

// field returns the CSV serialization: the text, or empty when missing.
func (c Cell) field() string {
	if !c.Valid {
		return ""
	}
	return c.Text
}

// Record is the unified per-player career record: identity copied from the
// roster entry at scrape time, measurements from the page's info block, and
// one Cell per statistic column. Records are built once by Normalize and
// never mutated afterward.
type Record struct {
	PlayerID    string
	Name        string
	Position    string
	CareerBegin int
	CareerEnd   *int
	Active      bool

	Height Cell // canonical feet-inches text, e.g. "6-2"
	Weight *int // pounds

	GamesReg         *int
	GamesStartedReg  *int
	GamesPost        *int
	GamesStartedPost *int

	// Stats is keyed by output column name (e.g. "pass_att_reg"). Columns
	// absent from the map are missing.
	Stats map[string]Cell
}

// Cell returns the value for an output statistic column.
func (r *Record) Cell(column string) Cell { return r.Stats[column] }

// Row serializes the record in Columns() order. Missing values become empty
// fields, never "0".
func (r *Record) Row() []string {
	row := make([]string, 0, len(infoColumns)+154)
	row = append(row,
		r.PlayerID,
		r.Name,
		r.Position,
		strconv.Itoa(r.CareerBegin),
		optInt(r.CareerEnd),
		strconv.FormatBool(r.Active),
		r.Height.field(),
		optInt(r.Weight),
	)
	row = append(row,
		optInt(r.GamesReg),
		optInt(r.GamesStartedReg),
		optInt(r.GamesPost),
		optInt(r.GamesStartedPost),
	)
	for _, c := range categories {
		for _, k := range c.keys {
			row = append(row, r.Stats[k+"_reg"].field())
		}
		for _, k := range c.keys {
			row = append(row, r.Stats[k+"_post"].field())
		}
	}
	return row
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
