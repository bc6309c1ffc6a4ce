package report

import (
	"os"
	"path/filepath"
	"testing"

	"nbastats/reconciliation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDiscrepantPlayersFromWrittenReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "leaders_validation.csv")

	rows := []models.ReportRow{
		{Metric: models.Points, Rank: 1, PlayerID: "2544", PlayerName: "LeBron James", Official: 38652, LocalTotal: 38652, Delta: 0},
		{Metric: models.Points, Rank: 2, PlayerID: "1449", PlayerName: "Karl Malone", Official: 36928, LocalTotal: 36920, Delta: 8},
		{Metric: models.Rebounds, Rank: 1, PlayerID: "76003", PlayerName: "Wilt Chamberlain", Official: 23924, LocalTotal: 23930, Delta: -6},
		// The same player discrepant on a second metric must not duplicate.
		{Metric: models.Assists, Rank: 9, PlayerID: "1449", PlayerName: "Karl Malone", Official: 5248, LocalTotal: 5240, Delta: 8},
	}
	require.NoError(t, WriteCSV(path, rows))

	players, err := LoadDiscrepantPlayers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1449", "76003"}, players,
		"Should return sorted, de-duplicated players with non-zero deltas")
}

func TestLoadDiscrepantPlayersIgnoresMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	csv := "metric,rank,player_id,player,official,local_total,delta,null_season_type_rows\n" +
		"points,1,2544,LeBron James,100,92,8,0\n" +
		"points,2,,Unknown,100,92,8,0\n" +
		"points,3,1449,Karl Malone,100,92,not-a-number,0\n" +
		"points,4,304,John Stockton,100,100,0,0\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	players, err := LoadDiscrepantPlayers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"2544"}, players,
		"Rows without an id or with an unparseable delta are skipped")
}

func TestLoadDiscrepantPlayersMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	_, err := LoadDiscrepantPlayers(path)
	assert.Error(t, err, "A report without the driving columns is unusable")
}

func TestLoadDiscrepantPlayersMissingFile(t *testing.T) {
	_, err := LoadDiscrepantPlayers(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestWriteMarkdownListsDiscrepancies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaders_validation.md")

	discrepancies := []models.ReportRow{
		{Metric: models.Points, Rank: 2, PlayerID: "1449", PlayerName: "Karl Malone",
			Official: 36928, LocalTotal: 36920, Delta: 8, NullSeasonTypeRows: 3},
	}
	require.NoError(t, WriteMarkdown(path, discrepancies))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Karl Malone", "Discrepant players appear in the summary")
	assert.Contains(t, string(data), "NULL season_type", "Diagnostics guidance is included")
}

func TestWriteMarkdownCleanRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaders_validation.md")
	require.NoError(t, WriteMarkdown(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "No discrepancies found")
}

func TestWriteCoverage(t *testing.T) {
	dir := t.TempDir()

	official := models.ZeroTotals()
	official[models.Points] = 1500
	aligned := []models.AlignedSeason{
		{Season: "2018-19", Official: official, Local: models.ZeroTotals(), OfficialPresent: true},
		{Season: "2019-20", Official: official, Local: official, OfficialPresent: true, LocalPresent: true},
	}

	path, err := WriteCoverage(dir, "2544", "LeBron James", aligned)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2544_lebron-james.md"), path,
		"Report file name combines the id and a slug of the name")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Missing locally (1): 2018-19",
		"Seasons the local store lacks are called out")
	assert.Contains(t, string(data), "2019-20", "Every aligned season appears in the table")
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "lebron-james", slugify("LeBron James"))
	assert.Equal(t, "shaquille-o-neal", slugify("Shaquille O'Neal"))
	assert.Equal(t, "unknown", slugify(""))
}
