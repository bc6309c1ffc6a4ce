package models

// RegularSeason is the only season_type partition this engine
// reconciles. Post-season rows are never read or written.
const RegularSeason = "Regular Season"

// SeasonTotals represents one side's metric totals for one season.
// Seasons are compared by their string key (e.g. "2019-20"); a season
// never appears twice within one side's series.
type SeasonTotals struct {
	Season string
	Totals Totals
}

// AlignedSeason is the outer-join of the official and local series for
// one season. A side that did not report the season carries zero-filled
// totals and a false presence flag.
type AlignedSeason struct {
	Season          string
	Official        Totals
	Local           Totals
	OfficialPresent bool
	LocalPresent    bool
}

// SeasonDelta holds the signed per-metric correction for one player
// season: official minus local, so a positive value means the local
// store under-counts.
type SeasonDelta struct {
	PlayerID string
	Season   string
	Deltas   Totals
}

// NonZero reports whether at least one metric delta is non-zero.
// All-zero seasons are never persisted.
func (d SeasonDelta) NonZero() bool {
	for _, v := range d.Deltas {
		if v != 0 {
			return true
		}
	}
	return false
}

// Override is a persisted corrective record for one
// (player, season, season_type) key. The latest computed delta set
// replaces the prior record wholesale.
type Override struct {
	PlayerID   string
	Season     string
	SeasonType string
	Deltas     Totals
}

// LeaderRow is one entry of a per-metric leaderboard, either from the
// provider or computed from the local store.
type LeaderRow struct {
	Rank       int
	PlayerID   string
	PlayerName string
	Value      int
}

// ReportRow is one line of the validation report consumed by the batch
// override driver. Delta follows the official-minus-local convention.
type ReportRow struct {
	Metric             Metric
	Rank               int
	PlayerID           string
	PlayerName         string
	Official           int
	LocalTotal         int
	Delta              int
	NullSeasonTypeRows int
}
