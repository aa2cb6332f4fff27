package normalize

// The column registry below is the single definition of the stats table
// layout: which statistic keys exist, which source tables they come from,
// and the output column order. Source pages identify tables by HTML id and
// cells by their data-stat attribute; both are stable across site redesigns
// in a way that visual column position is not, so extraction is keyed on
// them exclusively.

// category groups the statistic keys that share a source table. A category
// table may appear under alternate ids (receiving-primary players get
// "receiving_and_rushing" instead of "rushing_and_receiving"); the first id
// present on the page wins.
type category struct {
	name string
	reg  []string // candidate table ids, regular season
	post []string // candidate table ids, postseason
	keys []string // data-stat keys, output order
}

var categories = []category{
	{
		name: "passing",
		reg:  []string{"passing"},
		post: []string{"passing_post"},
		keys: []string{
			"qb_rec", "pass_cmp", "pass_att", "pass_cmp_pct", "pass_yds",
			"pass_td", "pass_td_pct", "pass_int", "pass_int_pct",
			"pass_first_down", "pass_success", "pass_long",
			"pass_yds_per_att", "pass_adj_yds_per_att", "pass_yds_per_cmp",
			"pass_yds_per_g", "pass_rating", "pass_sacked",
			"pass_sacked_yds", "pass_sacked_pct", "pass_net_yds_per_att",
			"pass_adj_net_yds_per_att", "comebacks", "gwd",
		},
	},
	{
		name: "rushing_receiving",
		reg:  []string{"rushing_and_receiving", "receiving_and_rushing"},
		post: []string{"rushing_and_receiving_post", "receiving_and_rushing_post"},
		keys: []string{
			"rush_att", "rush_yds", "rush_td", "rush_first_down",
			"rush_success", "rush_long", "rush_yds_per_att",
			"rush_yds_per_g", "rush_att_per_g", "targets", "rec",
			"rec_yds", "rec_yds_per_rec", "rec_td", "rec_first_down",
			"rec_success", "rec_long", "rec_per_g", "rec_yds_per_g",
			"catch_pct", "rec_yds_per_tgt", "touches", "yds_per_touch",
			"rush_receive_td",
		},
	},
	{
		name: "defense",
		reg:  []string{"defense"},
		post: []string{"defense_post"},
		keys: []string{
			"def_int", "def_int_yds", "def_int_td", "def_int_long",
			"pass_defended", "fumbles_forced", "fumbles", "fumbles_rec",
			"fumbles_rec_yds", "fumbles_rec_td", "sacks",
			"tackles_combined", "tackles_solo", "tackles_assists",
			"tackles_loss", "qb_hits", "safety_md",
		},
	},
	{
		name: "returns",
		reg:  []string{"returns"},
		post: []string{"returns_post"},
		keys: []string{
			"punt_ret", "punt_ret_yds", "punt_ret_td", "punt_ret_long",
			"punt_ret_yds_per_ret", "kick_ret", "kick_ret_yds",
			"kick_ret_td", "kick_ret_long", "kick_ret_yds_per_ret",
		},
	},
}

// Dedicated games tables. Unlike category tables these carry their games
// columns under the short keys "g"/"gs"; category tables repeat the same
// counts under "games"/"games_started".
const (
	gamesTableReg  = "games_played"
	gamesTablePost = "games_played_playoffs"
)

// infoColumns are the identity columns leading every stats row.
var infoColumns = []string{
	"player_id", "name", "position", "career_begin", "career_end",
	"active", "height", "weight",
}

// gamesColumns are inherently scoped; they have no _reg/_post doubling
// beyond the suffix itself.
var gamesColumns = []string{
	"games_reg", "games_started_reg", "games_post", "games_started_post",
}

// StatColumns returns the 154 statistic column names in output order: the
// games columns, then for each category every key's _reg variant followed by
// every key's _post variant.
func StatColumns() []string {
	cols := make([]string, 0, 154)
	cols = append(cols, gamesColumns...)
	for _, c := range categories {
		for _, k := range c.keys {
			cols = append(cols, k+"_reg")
		}
		for _, k := range c.keys {
			cols = append(cols, k+"_post")
		}
	}
	return cols
}

// Columns returns the full stats table header: 8 identity columns followed
// by the 154 statistic columns.
func Columns() []string {
	cols := make([]string, 0, len(infoColumns)+154)
	cols = append(cols, infoColumns...)
	cols = append(cols, StatColumns()...)
	return cols
}
