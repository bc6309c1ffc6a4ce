// Package report handles the discrepancy report boundary: reading the
// validation CSV that drives batch reconciliation, and rendering the
// CSV/Markdown reports themselves.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"nbastats/reconciliation/internal/models"

	"github.com/rs/zerolog/log"
)

var csvHeader = []string{
	"metric", "rank", "player_id", "player",
	"official", "local_total", "delta", "null_season_type_rows",
}

// LoadDiscrepantPlayers reads a validation report CSV and returns the
// sorted, de-duplicated IDs of players with a parseable non-zero
// delta. Rows with a missing player_id or an unparseable delta are
// ignored; "non-zero delta" is the sole selection predicate.
func LoadDiscrepantPlayers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	idIdx, deltaIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "player_id":
			idIdx = i
		case "delta":
			deltaIdx = i
		}
	}
	if idIdx < 0 || deltaIdx < 0 {
		return nil, fmt.Errorf("report %s missing player_id/delta columns", path)
	}

	seen := make(map[string]struct{})
	for _, rec := range records[1:] {
		if idIdx >= len(rec) || deltaIdx >= len(rec) {
			continue
		}
		playerID := strings.TrimSpace(rec[idIdx])
		if playerID == "" {
			continue
		}
		delta, err := strconv.Atoi(strings.TrimSpace(rec[deltaIdx]))
		if err != nil || delta == 0 {
			continue
		}
		seen[playerID] = struct{}{}
	}

	players := make([]string, 0, len(seen))
	for id := range seen {
		players = append(players, id)
	}
	sort.Strings(players)
	return players, nil
}

// WriteCSV writes the full validation report.
func WriteCSV(path string, rows []models.ReportRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, row := range rows {
		rec := []string{
			string(row.Metric),
			strconv.Itoa(row.Rank),
			row.PlayerID,
			row.PlayerName,
			strconv.Itoa(row.Official),
			strconv.Itoa(row.LocalTotal),
			strconv.Itoa(row.Delta),
			strconv.Itoa(row.NullSeasonTypeRows),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}

	log.Info().Str("path", path).Int("rows", len(rows)).Msg("Validation report written")
	return nil
}

// WriteMarkdown writes a human-readable summary of the validation run,
// listing only the discrepant rows.
func WriteMarkdown(path string, discrepancies []models.ReportRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# All-Time Leaders Validation (Regular Season)\n\n")
	b.WriteString("Official totals from the stats provider; local totals from game_summary plus season overrides.\n\n")

	if len(discrepancies) == 0 {
		b.WriteString("No discrepancies found across checked metrics.\n")
	} else {
		b.WriteString("## Discrepancies\n\n")
		b.WriteString("Metric | Rank | Player | Official | Local | Delta | NULL season_type\n")
		b.WriteString("---|---:|---|---:|---:|---:|---:\n")
		for _, r := range discrepancies {
			fmt.Fprintf(&b, "%s|%d|%s (%s)|%d|%d|%d|%d\n",
				r.Metric, r.Rank, r.PlayerName, r.PlayerID,
				r.Official, r.LocalTotal, r.Delta, r.NullSeasonTypeRows)
		}
	}

	b.WriteString("\n## Notes\n")
	b.WriteString("- Local totals are regular-season only.\n")
	b.WriteString("- If deltas are non-zero, first check for NULL season_type rows in player_stats.\n")
	b.WriteString("- Next, check for missing seasons or mis-bucketed Playoffs vs Regular Season.\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write markdown report %s: %w", path, err)
	}

	log.Info().Str("path", path).Msg("Markdown report written")
	return nil
}

// WriteCoverage writes a per-season coverage report for one player:
// which seasons each side knows about and the per-metric deltas.
func WriteCoverage(dir, playerID, playerName string, aligned []models.AlignedSeason) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create coverage directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.md", playerID, slugify(playerName)))

	var missingLocal, extraLocal []string
	for _, row := range aligned {
		if row.OfficialPresent && !row.LocalPresent {
			missingLocal = append(missingLocal, row.Season)
		}
		if row.LocalPresent && !row.OfficialPresent {
			extraLocal = append(extraLocal, row.Season)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Coverage scan for %s (%s)\n\n", playerName, playerID)
	b.WriteString("Totals are Regular Season only. Official = stats provider; Local = game_summary.\n\n")

	if len(missingLocal) > 0 {
		fmt.Fprintf(&b, "- Missing locally (%d): %s\n", len(missingLocal), strings.Join(missingLocal, ", "))
	}
	if len(extraLocal) > 0 {
		fmt.Fprintf(&b, "- Extra locally, unknown to provider (%d): %s\n", len(extraLocal), strings.Join(extraLocal, ", "))
	}
	if len(missingLocal) == 0 && len(extraLocal) == 0 {
		b.WriteString("- Season coverage matches exactly.\n")
	}
	b.WriteString("\n")

	b.WriteString("Season")
	for _, m := range models.Metrics {
		fmt.Fprintf(&b, " | Official %s", m.Column())
	}
	for _, m := range models.Metrics {
		fmt.Fprintf(&b, " | Local %s", m.Column())
	}
	for _, m := range models.Metrics {
		fmt.Fprintf(&b, " | Δ %s", m.Column())
	}
	b.WriteString("\n---|")
	b.WriteString(strings.Repeat("---:|", len(models.Metrics)*3))
	b.WriteString("\n")

	for _, row := range aligned {
		b.WriteString(row.Season)
		for _, m := range models.Metrics {
			fmt.Fprintf(&b, "|%d", row.Official[m])
		}
		for _, m := range models.Metrics {
			fmt.Fprintf(&b, "|%d", row.Local[m])
		}
		for _, m := range models.Metrics {
			fmt.Fprintf(&b, "|%d", row.Official[m]-row.Local[m])
		}
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write coverage report %s: %w", path, err)
	}

	log.Info().Str("path", path).Msg("Coverage report written")
	return path, nil
}

func slugify(name string) string {
	if name == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, ch := range strings.ToLower(name) {
		if ('a' <= ch && ch <= 'z') || ('0' <= ch && ch <= '9') {
			b.WriteRune(ch)
		} else {
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
