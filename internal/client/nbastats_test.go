package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"nbastats/reconciliation/internal/cache"
	"nbastats/reconciliation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Options{
		BaseURL:  srv.URL,
		Timeout:  5 * time.Second,
		Executor: testExecutor(5),
	})
	return c, srv
}

const careerStatsBody = `{
	"resource": "playercareerstats",
	"resultSets": [
		{
			"name": "CareerTotalsRegularSeason",
			"headers": ["PLAYER_ID", "PTS", "REB", "AST", "STL", "BLK"],
			"rowSet": [[2544, 38000, 10000, 9000, 2000, 1000]]
		},
		{
			"name": "SeasonTotalsRegularSeason",
			"headers": ["PLAYER_ID", "SEASON_ID", "TEAM_ABBREVIATION", "GP", "PTS", "REB", "AST", "STL", "BLK"],
			"rowSet": [
				[2544, "2017-18", "CLE", 82, 2251, 709, 747, 116, 71],
				[2544, "2018-19", "LAL", 55, 1505, 465, 454, 72, 33]
			]
		}
	]
}`

func TestCareerBySeason(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/playercareerstats", r.URL.Path, "Should call the career stats endpoint")
		assert.Equal(t, "2544", r.URL.Query().Get("PlayerID"), "Should pass the player id")
		fmt.Fprint(w, careerStatsBody)
	}))

	seasons, err := c.CareerBySeason(context.Background(), "2544")
	require.NoError(t, err, "Should fetch and decode the career series")
	require.Len(t, seasons, 2, "Should return one entry per season")

	assert.Equal(t, "2017-18", seasons[0].Season)
	assert.Equal(t, 2251, seasons[0].Totals[models.Points])
	assert.Equal(t, 709, seasons[0].Totals[models.Rebounds])
	assert.Equal(t, "2018-19", seasons[1].Season)
	assert.Equal(t, 33, seasons[1].Totals[models.Blocks])
}

func TestCareerBySeasonPrefersCombinedRowForTradedPlayer(t *testing.T) {
	body := `{
		"resultSets": [{
			"name": "SeasonTotalsRegularSeason",
			"headers": ["SEASON_ID", "TEAM_ABBREVIATION", "GP", "PTS", "REB", "AST", "STL", "BLK"],
			"rowSet": [
				["2021-22", "BKN", 40, 900, 200, 250, 30, 20],
				["2021-22", "PHI", 26, 600, 150, 180, 25, 15],
				["2021-22", "TOT", 66, 1500, 350, 430, 55, 35],
				["2022-23", "PHI", 70, 2000, 400, 500, 60, 40],
				["2022-23", "HOU", 10, 200, 50, 60, 5, 4]
			]
		}]
	}`
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))

	seasons, err := c.CareerBySeason(context.Background(), "201935")
	require.NoError(t, err)
	require.Len(t, seasons, 2, "Per-team rows must collapse into one entry per season")

	// 2021-22 carries a combined row; it wins over the per-team sum.
	assert.Equal(t, 1500, seasons[0].Totals[models.Points], "Combined TOT row should be preferred")
	// 2022-23 has no combined row; per-team rows are summed.
	assert.Equal(t, 2200, seasons[1].Totals[models.Points], "Per-team rows should be summed without a TOT row")
	assert.Equal(t, 44, seasons[1].Totals[models.Blocks])
}

func TestCareerBySeasonUnrecognizedSchema(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resultSets": [{"name": "Meta", "headers": ["LEAGUE_ID"], "rowSet": [["00"]]}]}`)
	}))

	seasons, err := c.CareerBySeason(context.Background(), "2544")
	require.NoError(t, err, "An unusable schema is empty data, not an error")
	assert.Empty(t, seasons, "No covering result set should yield an empty series")
}

func TestCareerTotalsReadsThroughFileCache(t *testing.T) {
	var hits atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, careerStatsBody)
	}))
	c.totalsCache = cache.NewFileCache(filepath.Join(t.TempDir(), "totals.json"))

	totals, ok, err := c.CareerTotals(context.Background(), "2544")
	require.NoError(t, err)
	require.True(t, ok, "Provider data should yield totals")
	assert.Equal(t, 3756, totals[models.Points], "Career total should sum the seasons")
	assert.Equal(t, int32(1), hits.Load())

	again, ok, err := c.CareerTotals(context.Background(), "2544")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, totals, again, "Cached totals should match the fetched ones")
	assert.Equal(t, int32(1), hits.Load(), "Second read must be served from the cache")
}

func TestGetRetriesTransientStatus(t *testing.T) {
	var hits atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "upstream busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, careerStatsBody)
	}))

	seasons, err := c.CareerBySeason(context.Background(), "2544")
	require.NoError(t, err, "A transient 503 should be retried to success")
	assert.Len(t, seasons, 2)
	assert.Equal(t, int32(2), hits.Load(), "Exactly one retry should follow the 503")
}

func TestGetDoesNotRetryClientError(t *testing.T) {
	var hits atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "no such player", http.StatusNotFound)
	}))

	_, err := c.CareerBySeason(context.Background(), "999")
	require.Error(t, err, "A 404 should propagate")
	assert.Equal(t, int32(1), hits.Load(), "Client errors must not be retried")
}

func TestAllTimeLeaderRows(t *testing.T) {
	body := `{
		"resultSets": [
			{
				"name": "PTSLeaders",
				"headers": ["PLAYER_ID", "PLAYER_NAME", "PTS", "PTS_RANK"],
				"rowSet": [
					[893, "Michael Jordan", 32292, 5],
					[2544, "LeBron James", 38652, 1],
					[1449, "Karl Malone", 36928, 3]
				]
			},
			{
				"name": "ASTLeaders",
				"headers": ["PLAYER_ID", "PLAYER_NAME", "AST", "AST_RANK"],
				"rowSet": [
					[304, "John Stockton", 15806, 1],
					[2544, "LeBron James", 10600, 4]
				]
			}
		]
	}`
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alltimeleadersgrids", r.URL.Path)
		fmt.Fprint(w, body)
	}))

	boards, err := c.AllTimeLeaderRows(context.Background(), 2)
	require.NoError(t, err)

	points := boards[models.Points]
	require.Len(t, points, 2, "Leaderboard should truncate to top N")
	assert.Equal(t, "2544", points[0].PlayerID, "Rows should order by rank")
	assert.Equal(t, 38652, points[0].Value)
	assert.Equal(t, "1449", points[1].PlayerID)

	assists := boards[models.Assists]
	require.Len(t, assists, 2)
	assert.Equal(t, "John Stockton", assists[0].PlayerName)

	_, ok := boards[models.Blocks]
	assert.False(t, ok, "Metrics without a table should be absent, enabling the local fallback")
}

func TestAllTimeLeaderRowsSharedTableKeepsBoardsIndependent(t *testing.T) {
	// One table carries both PTS and REB. Ranking and truncating the
	// points board must not reorder or drop rows under the rebounds
	// board: player 3 is the rebounds leader even though the points
	// pass would truncate them away.
	body := `{
		"resultSets": [{
			"name": "AllTimeLeaders",
			"headers": ["PLAYER_ID", "PLAYER_NAME", "PTS", "PTS_RANK", "REB", "REB_RANK"],
			"rowSet": [
				[1, "Point Leader", 300, 1, 100, 3],
				[2, "Middle", 200, 2, 150, 2],
				[3, "Board Leader", 100, 3, 200, 1]
			]
		}]
	}`
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))

	boards, err := c.AllTimeLeaderRows(context.Background(), 2)
	require.NoError(t, err)

	points := boards[models.Points]
	require.Len(t, points, 2)
	assert.Equal(t, "1", points[0].PlayerID)
	assert.Equal(t, "2", points[1].PlayerID)

	rebounds := boards[models.Rebounds]
	require.Len(t, rebounds, 2)
	assert.Equal(t, "3", rebounds[0].PlayerID, "Rebounds leader must survive the points truncation")
	assert.Equal(t, 200, rebounds[0].Value)
	assert.Equal(t, "2", rebounds[1].PlayerID)
}

func TestAllTimeLeaderRowsPivotsCategoryTable(t *testing.T) {
	body := `{
		"resultSets": [{
			"name": "AllTimeLeaders",
			"headers": ["CATEGORY", "PLAYER_ID", "PLAYER_NAME", "VALUE", "RANK"],
			"rowSet": [
				["PTS", 2544, "LeBron James", 38652, 1],
				["REB", 76003, "Wilt Chamberlain", 23924, 1],
				["PTS", 1449, "Karl Malone", 36928, 2]
			]
		}]
	}`
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))

	boards, err := c.AllTimeLeaderRows(context.Background(), 25)
	require.NoError(t, err)

	points := boards[models.Points]
	require.Len(t, points, 2, "CATEGORY/VALUE rows should pivot into the points table")
	assert.Equal(t, 38652, points[0].Value, "Pivoted VALUE should materialize as the metric column")

	rebounds := boards[models.Rebounds]
	require.Len(t, rebounds, 1)
	assert.Equal(t, "76003", rebounds[0].PlayerID)
}

func TestAllTimeLeaderRowsPivotHandlesRaggedRows(t *testing.T) {
	// Rows shorter than the header list still pivot correctly: the
	// value must land under the appended metric column, not under the
	// absent trailing column.
	body := `{
		"resultSets": [{
			"name": "AllTimeLeaders",
			"headers": ["CATEGORY", "PLAYER_ID", "PLAYER_NAME", "VALUE", "RANK", "SEASON_TYPE"],
			"rowSet": [
				["PTS", 2544, "LeBron James", 38652, 1]
			]
		}]
	}`
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))

	boards, err := c.AllTimeLeaderRows(context.Background(), 25)
	require.NoError(t, err)

	points := boards[models.Points]
	require.Len(t, points, 1)
	assert.Equal(t, 38652, points[0].Value, "Pivoted value should read through the metric column")
}
