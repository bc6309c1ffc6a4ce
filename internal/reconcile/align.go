// Package reconcile implements the season-diffing engine: it aligns
// the official and local per-season series for a player, computes
// signed per-metric deltas, and turns non-zero deltas into corrective
// override records.
package reconcile

import (
	"sort"

	"nbastats/reconciliation/internal/models"
)

// Align performs a full outer join of the two season series on season
// key. A season present on only one side gets zero-filled totals on
// the absent side and a false presence flag. The result is sorted by
// season for stable logs and reports; consumers must not rely on
// order, persistence is keyed.
func Align(official, local []models.SeasonTotals) []models.AlignedSeason {
	type sides struct {
		official models.Totals
		local    models.Totals
	}
	merged := make(map[string]*sides)

	for _, s := range official {
		merged[s.Season] = &sides{official: s.Totals}
	}
	for _, s := range local {
		if m, ok := merged[s.Season]; ok {
			m.local = s.Totals
		} else {
			merged[s.Season] = &sides{local: s.Totals}
		}
	}

	seasons := make([]string, 0, len(merged))
	for season := range merged {
		seasons = append(seasons, season)
	}
	sort.Strings(seasons)

	aligned := make([]models.AlignedSeason, 0, len(seasons))
	for _, season := range seasons {
		m := merged[season]
		row := models.AlignedSeason{
			Season:          season,
			Official:        m.official,
			Local:           m.local,
			OfficialPresent: m.official != nil,
			LocalPresent:    m.local != nil,
		}
		if row.Official == nil {
			row.Official = models.ZeroTotals()
		}
		if row.Local == nil {
			row.Local = models.ZeroTotals()
		}
		aligned = append(aligned, row)
	}
	return aligned
}

// Deltas computes the signed per-metric correction for each aligned
// season: official minus local, so a positive delta means the local
// store under-counts. Seasons whose deltas are all zero are dropped;
// agreement is the expected steady state, not an event.
func Deltas(playerID string, aligned []models.AlignedSeason) []models.SeasonDelta {
	var out []models.SeasonDelta
	for _, row := range aligned {
		deltas := make(models.Totals, len(models.Metrics))
		for _, m := range models.Metrics {
			deltas[m] = row.Official[m] - row.Local[m]
		}
		d := models.SeasonDelta{PlayerID: playerID, Season: row.Season, Deltas: deltas}
		if d.NonZero() {
			out = append(out, d)
		}
	}
	return out
}
