package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"nbastats/reconciliation/internal/cache"
	"nbastats/reconciliation/internal/metrics"
	"nbastats/reconciliation/internal/models"

	"github.com/rs/zerolog/log"
)

// Endpoint paths on the stats provider.
const (
	endpointCareerStats    = "playercareerstats"
	endpointAllTimeLeaders = "alltimeleadersgrids"
)

// careerSeasonColumns are the identity columns a career result set
// must carry before we trust it as the per-season totals table.
var careerSeasonColumns = []string{"SEASON_ID", "GP", "PTS", "REB", "AST", "STL", "BLK"}

// playerIDColumns and playerNameColumns vary by endpoint and schema
// version; probed in order.
var (
	playerIDColumns   = []string{"PLAYER_ID", "PERSON_ID", "PLAYERID", "PERSONID"}
	playerNameColumns = []string{"PLAYER", "PLAYER_NAME", "PLAYER_NAME_LAST_FIRST", "DISPLAY_FIRST_LAST"}
)

// Client is the stats provider API client. All remote calls run
// through the resilient executor; career totals are read through the
// durable file cache and leaderboard responses through the optional
// Redis cache.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	exec        *Executor
	totalsCache *cache.FileCache
	responses   *cache.RedisCache
}

// Options configures a Client. TotalsCache and Responses may be nil;
// the client then always fetches.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	Executor    *Executor
	TotalsCache *cache.FileCache
	Responses   *cache.RedisCache
}

// NewClient creates a stats provider client.
func NewClient(opts Options) *Client {
	exec := opts.Executor
	if exec == nil {
		exec = NewExecutor(0, 0, 0, 0)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: opts.BaseURL,
		exec:    exec,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		totalsCache: opts.TotalsCache,
		responses:   opts.Responses,
	}
}

// apiResponse is the provider's generic tabular envelope.
type apiResponse struct {
	Resource   string `json:"resource"`
	ResultSets []struct {
		Name    string   `json:"name"`
		Headers []string `json:"headers"`
		RowSet  [][]any  `json:"rowSet"`
	} `json:"resultSets"`
}

func (r *apiResponse) resultSets() []*ResultSet {
	sets := make([]*ResultSet, 0, len(r.ResultSets))
	for _, rs := range r.ResultSets {
		sets = append(sets, NewResultSet(rs.Name, rs.Headers, rs.RowSet))
	}
	return sets
}

// get performs one GET against the provider through the executor and
// returns the decoded result sets.
func (c *Client) get(ctx context.Context, endpoint string, params map[string]string) ([]*ResultSet, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, endpoint)

	var body []byte
	start := time.Now()
	err := c.exec.Do(ctx, endpoint, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "stats-reconciler/1.0")

		q := req.URL.Query()
		for key, value := range params {
			q.Add(key, value)
		}
		req.URL.RawQuery = q.Encode()

		log.Debug().
			Str("endpoint", endpoint).
			Str("url", req.URL.String()).
			Msg("Making provider request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("provider request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			// StatusText puts "Too Many Requests" / "Service
			// Unavailable" into the message so the transient
			// predicate can match on it.
			return fmt.Errorf("provider returned status %d %s: %s",
				resp.StatusCode, http.StatusText(resp.StatusCode), truncate(data, 200))
		}

		body = data
		return nil
	})

	duration := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordRemoteCall(endpoint, "error", duration)
		return nil, err
	}
	metrics.RecordRemoteCall(endpoint, "success", duration)

	var decoded apiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}

	log.Debug().
		Str("endpoint", endpoint).
		Int("result_sets", len(decoded.ResultSets)).
		Int("size", len(body)).
		Msg("Provider request successful")

	return decoded.resultSets(), nil
}

// CareerBySeason returns the player's official regular-season totals
// keyed by season. A response with no usable result set yields an
// empty series, not an error.
func (c *Client) CareerBySeason(ctx context.Context, playerID string) ([]models.SeasonTotals, error) {
	sets, err := c.get(ctx, endpointCareerStats, map[string]string{
		"PlayerID": playerID,
		"PerMode":  "Totals",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch career stats for player %s: %w", playerID, err)
	}

	rs := SelectResultSet(sets, careerSeasonColumns...)
	if rs == nil {
		log.Warn().Str("player_id", playerID).Msg("No result set with season totals columns, treating as empty")
		return nil, nil
	}

	// A traded player has one row per franchise plus a combined "TOT"
	// row for the season. Prefer the combined row; otherwise sum the
	// per-team rows.
	type seasonAcc struct {
		totals   models.Totals
		combined bool
	}
	bySeason := make(map[string]*seasonAcc)
	order := make([]string, 0, len(rs.Rows))

	for _, row := range rs.Rows {
		season := rs.String(row, "SEASON_ID")
		if season == "" {
			continue
		}
		rowTotals := models.ZeroTotals()
		for _, m := range models.Metrics {
			rowTotals[m] = rs.Int(row, m.Column())
		}
		isCombined := rs.String(row, "TEAM_ABBREVIATION") == "TOT"

		acc, ok := bySeason[season]
		if !ok {
			bySeason[season] = &seasonAcc{totals: rowTotals, combined: isCombined}
			order = append(order, season)
			continue
		}
		if acc.combined {
			continue
		}
		if isCombined {
			acc.totals = rowTotals
			acc.combined = true
			continue
		}
		acc.totals = acc.totals.Add(rowTotals)
	}

	out := make([]models.SeasonTotals, 0, len(order))
	for _, season := range order {
		out = append(out, models.SeasonTotals{Season: season, Totals: bySeason[season].totals})
	}
	return out, nil
}

// CareerTotals returns the player's official career totals summed
// across seasons. A complete cached record short-circuits the remote
// call; a successful fetch is written through. The second return value
// is false when the provider had no usable data for the player.
func (c *Client) CareerTotals(ctx context.Context, playerID string) (models.Totals, bool, error) {
	if c.totalsCache != nil {
		if totals, ok := c.totalsCache.Get(playerID); ok {
			return totals, true, nil
		}
	}

	seasons, err := c.CareerBySeason(ctx, playerID)
	if err != nil {
		return nil, false, err
	}
	if len(seasons) == 0 {
		return nil, false, nil
	}

	totals := models.ZeroTotals()
	for _, s := range seasons {
		totals = totals.Add(s.Totals)
	}

	if c.totalsCache != nil {
		c.totalsCache.Put(playerID, totals)
	}
	return totals, true, nil
}

// FetchAllTimeLeaders fetches the regular-season all-time leaderboard
// grids and returns one ranked result set per tracked metric. Metrics
// whose table is missing from the response are absent from the map;
// callers fall back to the local top-N path for those.
func (c *Client) FetchAllTimeLeaders(ctx context.Context, topN int) (map[models.Metric]*ResultSet, error) {
	sets, err := c.fetchLeaderGrids(ctx, topN)
	if err != nil {
		return nil, err
	}

	byMetric := make(map[models.Metric]*ResultSet)
	for _, rs := range sets {
		for _, m := range models.Metrics {
			if _, done := byMetric[m]; done {
				continue
			}
			if rs.HasColumns(m.Column()) {
				byMetric[m] = rs
				continue
			}
			// Some schema versions publish a single long table with
			// CATEGORY/VALUE pairs instead of one table per metric.
			if rs.HasColumns("CATEGORY", "VALUE") {
				if pivoted := pivotCategory(rs, m.Column()); pivoted != nil {
					byMetric[m] = pivoted
				}
			}
		}
	}

	for _, m := range models.Metrics {
		if rs, ok := byMetric[m]; ok {
			// One table can carry several metrics; rank and truncate a
			// per-metric copy so the boards stay independent.
			board := rs.Clone()
			board.SortByRank(m.Column())
			if topN > 0 && len(board.Rows) > topN {
				board.Rows = board.Rows[:topN]
			}
			byMetric[m] = board
		} else {
			log.Warn().Str("metric", string(m)).Msg("Leaderboard table missing from provider response")
		}
	}
	return byMetric, nil
}

// AllTimeLeaderRows fetches the leaderboard grids and converts each
// metric's table into typed, ranked rows. Metrics with no usable table
// are absent from the map.
func (c *Client) AllTimeLeaderRows(ctx context.Context, topN int) (map[models.Metric][]models.LeaderRow, error) {
	byMetric, err := c.FetchAllTimeLeaders(ctx, topN)
	if err != nil {
		return nil, err
	}
	out := make(map[models.Metric][]models.LeaderRow, len(byMetric))
	for m, rs := range byMetric {
		if rows := LeaderRows(rs, m); len(rows) > 0 {
			out[m] = rows
		}
	}
	return out, nil
}

// fetchLeaderGrids returns the leaderboard result sets, consulting the
// Redis response cache first.
func (c *Client) fetchLeaderGrids(ctx context.Context, topN int) ([]*ResultSet, error) {
	key := fmt.Sprintf("alltime_leaders:%d", topN)

	if payload, ok := c.responses.Get(ctx, key); ok {
		var decoded apiResponse
		if err := json.Unmarshal(payload, &decoded); err == nil {
			log.Debug().Str("key", key).Msg("Leaderboard served from response cache")
			return decoded.resultSets(), nil
		}
		// Fall through to a fresh fetch on a corrupt cache entry.
	}

	sets, err := c.get(ctx, endpointAllTimeLeaders, map[string]string{
		"LeagueID":   "00",
		"SeasonType": models.RegularSeason,
		"PerMode":    "Totals",
		"TopX":       fmt.Sprintf("%d", topN),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch all-time leaders: %w", err)
	}

	if c.responses != nil {
		if payload, err := encodeResultSets(sets); err == nil {
			c.responses.Set(ctx, key, payload)
		}
	}
	return sets, nil
}

// pivotCategory extracts the rows of one metric from a CATEGORY/VALUE
// table, materializing the metric as a regular column so downstream
// code sees the canonical shape. Returns nil when the table has no
// rows for the metric.
func pivotCategory(rs *ResultSet, metricCol string) *ResultSet {
	catIdx := rs.Column("CATEGORY")
	valIdx := rs.Column("VALUE")

	var rows [][]any
	for _, row := range rs.Rows {
		if catIdx >= len(row) || valIdx >= len(row) {
			continue
		}
		cat, _ := row[catIdx].(string)
		if !strings.EqualFold(cat, metricCol) {
			continue
		}
		// Pad ragged rows to the header width so the appended value
		// lines up with the new metric column.
		extended := make([]any, len(rs.Headers)+1)
		copy(extended, row)
		extended[len(rs.Headers)] = row[valIdx]
		rows = append(rows, extended)
	}
	if len(rows) == 0 {
		return nil
	}

	headers := make([]string, len(rs.Headers)+1)
	copy(headers, rs.Headers)
	headers[len(rs.Headers)] = metricCol
	return NewResultSet(rs.Name, headers, rows)
}

// LeaderRows converts a ranked leaderboard result set into typed rows.
// Rows without a resolvable player id or metric value are skipped.
func LeaderRows(rs *ResultSet, metric models.Metric) []models.LeaderRow {
	col := metric.Column()
	rankCol := ""
	for _, candidate := range []string{col + "_RANK", "RANK"} {
		if rs.Column(candidate) >= 0 {
			rankCol = candidate
			break
		}
	}

	rows := make([]models.LeaderRow, 0, len(rs.Rows))
	for i, row := range rs.Rows {
		playerID := rs.FirstString(row, playerIDColumns...)
		if playerID == "" {
			continue
		}
		name := rs.FirstString(row, playerNameColumns...)
		if name == "" {
			name = "Unknown"
		}
		rank := i + 1
		if rankCol != "" {
			rank = rs.Int(row, rankCol)
		}
		rows = append(rows, models.LeaderRow{
			Rank:       rank,
			PlayerID:   playerID,
			PlayerName: name,
			Value:      rs.Int(row, col),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })
	return rows
}

func encodeResultSets(sets []*ResultSet) ([]byte, error) {
	var resp apiResponse
	for _, rs := range sets {
		resp.ResultSets = append(resp.ResultSets, struct {
			Name    string   `json:"name"`
			Headers []string `json:"headers"`
			RowSet  [][]any  `json:"rowSet"`
		}{Name: rs.Name, Headers: rs.Headers, RowSet: rs.Rows})
	}
	return json.Marshal(&resp)
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
