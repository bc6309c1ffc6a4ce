package reconcile

import (
	"context"
	"errors"
	"testing"

	"nbastats/reconciliation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAgainstProviderLeaderboard(t *testing.T) {
	provider := &fakeProvider{
		boards: map[models.Metric][]models.LeaderRow{
			models.Points: {
				{Rank: 1, PlayerID: "2544", PlayerName: "LeBron James", Value: 38652},
				{Rank: 2, PlayerID: "1449", PlayerName: "Karl Malone", Value: 36928},
			},
		},
	}
	local := &fakeLocal{
		seasons: map[string][]models.SeasonTotals{
			"2544": {{Season: "2019-20", Totals: totalsWith(38652)}},
			"1449": {{Season: "1997-98", Totals: totalsWith(36920)}},
		},
		nullRows: map[string]int{"1449": 3},
	}

	v := NewValidator(provider, local)
	res, err := v.Validate(context.Background(), 2)
	require.NoError(t, err)

	var pointsRows []models.ReportRow
	for _, row := range res.Report {
		if row.Metric == models.Points {
			pointsRows = append(pointsRows, row)
		}
	}
	require.Len(t, pointsRows, 2, "Every leaderboard row is checked")

	assert.Equal(t, 0, pointsRows[0].Delta, "Matching totals report a zero delta")
	assert.Equal(t, 8, pointsRows[1].Delta, "Delta is official minus corrected local")
	assert.Equal(t, 3, pointsRows[1].NullSeasonTypeRows, "NULL season_type rows surface as a diagnostic")

	require.Len(t, res.Discrepancies, 1, "Only non-zero deltas are discrepancies")
	assert.Equal(t, "1449", res.Discrepancies[0].PlayerID)
}

func TestValidateCorrectedTotalsIncludeOverrides(t *testing.T) {
	provider := &fakeProvider{
		boards: map[models.Metric][]models.LeaderRow{
			models.Points: {
				{Rank: 1, PlayerID: "2544", PlayerName: "LeBron James", Value: 38652},
			},
		},
	}
	local := &fakeLocal{
		seasons: map[string][]models.SeasonTotals{
			"2544": {{Season: "2019-20", Totals: totalsWith(38644)}},
		},
		corrections: map[string]models.Totals{
			"2544": totalsWith(8),
		},
	}

	v := NewValidator(provider, local)
	res, err := v.Validate(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, res.Discrepancies,
		"An already-reconciled player reads as zero-delta through the override sum")
}

func TestValidateFallsBackToLocalTopN(t *testing.T) {
	provider := &fakeProvider{
		seasons: map[string][]models.SeasonTotals{
			"a": {{Season: "2019-20", Totals: totalsWith(1000)}},
			"b": {{Season: "2019-20", Totals: totalsWith(800)}},
		},
		// No leaderboard tables at all.
		boards: map[models.Metric][]models.LeaderRow{},
	}
	local := &fakeLocal{
		seasons: map[string][]models.SeasonTotals{
			"a": {{Season: "2019-20", Totals: totalsWith(990)}},
			"b": {{Season: "2019-20", Totals: totalsWith(800)}},
		},
	}

	v := NewValidator(provider, local)
	res, err := v.Validate(context.Background(), 2)
	require.NoError(t, err)

	require.Len(t, res.Discrepancies, 1, "Fallback path still finds the under-count")
	assert.Equal(t, "a", res.Discrepancies[0].PlayerID)
	assert.Equal(t, 10, res.Discrepancies[0].Delta)
}

func TestValidateLeaderboardFetchFailureUsesFallback(t *testing.T) {
	// AllTimeLeaderRows fails but per-player career fetches succeed:
	// the validator downgrades to the local fallback for every metric.
	provider := &boardlessProvider{fakeProvider{
		seasons: map[string][]models.SeasonTotals{
			"a": {{Season: "2019-20", Totals: totalsWith(500)}},
		},
	}}
	local := &fakeLocal{
		seasons: map[string][]models.SeasonTotals{
			"a": {{Season: "2019-20", Totals: totalsWith(450)}},
		},
	}

	v := NewValidator(provider, local)
	res, err := v.Validate(context.Background(), 1)
	require.NoError(t, err, "A failed leaderboard fetch is not a run failure")
	require.NotEmpty(t, res.Discrepancies)
	assert.Equal(t, 50, res.Discrepancies[0].Delta)
}

// boardlessProvider fails only the leaderboard call.
type boardlessProvider struct {
	fakeProvider
}

func (p *boardlessProvider) AllTimeLeaderRows(ctx context.Context, topN int) (map[models.Metric][]models.LeaderRow, error) {
	return nil, errors.New("503 service unavailable")
}

func TestValidateUnavailableOfficialTotalsNeverSelect(t *testing.T) {
	provider := &fakeProvider{
		seasons: map[string][]models.SeasonTotals{}, // provider knows nobody
		boards:  map[models.Metric][]models.LeaderRow{},
	}
	local := &fakeLocal{
		seasons: map[string][]models.SeasonTotals{
			"a": {{Season: "2019-20", Totals: totalsWith(450)}},
		},
	}

	v := NewValidator(provider, local)
	res, err := v.Validate(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, res.Discrepancies,
		"Players without official data report a zero delta so they never enter the batch")
}
