package client

import (
	"sort"
	"strconv"
	"strings"
)

// ResultSet is one tabular block of a stats provider response:
// positional rows under a named header list. Column names vary in case
// and coverage between endpoints, so all access goes through the
// case-insensitive index built at construction.
type ResultSet struct {
	Name    string
	Headers []string
	Rows    [][]any

	index map[string]int
}

// NewResultSet builds a result set with its header index.
func NewResultSet(name string, headers []string, rows [][]any) *ResultSet {
	rs := &ResultSet{Name: name, Headers: headers, Rows: rows}
	rs.index = make(map[string]int, len(headers))
	for i, h := range headers {
		rs.index[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	return rs
}

// HasColumns reports whether the result set's column set is a superset
// of the required columns (case-insensitive).
func (rs *ResultSet) HasColumns(required ...string) bool {
	for _, col := range required {
		if _, ok := rs.index[strings.ToUpper(col)]; !ok {
			return false
		}
	}
	return true
}

// Column returns the index of a column, or -1 when absent.
func (rs *ResultSet) Column(name string) int {
	if i, ok := rs.index[strings.ToUpper(name)]; ok {
		return i
	}
	return -1
}

// Int reads an integer cell from a row, coercing numeric strings and
// floats. Missing columns and non-numeric values read as 0.
func (rs *ResultSet) Int(row []any, col string) int {
	i := rs.Column(col)
	if i < 0 || i >= len(row) {
		return 0
	}
	return coerceInt(row[i])
}

// String reads a string cell from a row; missing values read as "".
func (rs *ResultSet) String(row []any, col string) string {
	i := rs.Column(col)
	if i < 0 || i >= len(row) {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// FirstString returns the value of the first listed column that exists
// and is non-empty on the row. Identity columns vary by endpoint
// (PLAYER_ID vs PERSON_ID, PLAYER vs PLAYER_NAME), so callers probe in
// preference order.
func (rs *ResultSet) FirstString(row []any, cols ...string) string {
	for _, col := range cols {
		if rs.Column(col) < 0 {
			continue
		}
		if v := rs.String(row, col); v != "" {
			return v
		}
	}
	return ""
}

// Clone returns a view with an independent row slice, so sorting or
// truncating one view cannot reorder another built from the same
// response table.
func (rs *ResultSet) Clone() *ResultSet {
	rows := make([][]any, len(rs.Rows))
	copy(rows, rs.Rows)
	return NewResultSet(rs.Name, rs.Headers, rows)
}

// SortByRank orders rows by the most specific rank column available
// (ascending), falling back to descending order on the raw metric
// column when no rank column is present. Rows are sorted in place.
func (rs *ResultSet) SortByRank(metricCol string) {
	for _, rankCol := range []string{metricCol + "_RANK", "RANK"} {
		if rs.Column(rankCol) >= 0 {
			sort.SliceStable(rs.Rows, func(i, j int) bool {
				return rs.Int(rs.Rows[i], rankCol) < rs.Int(rs.Rows[j], rankCol)
			})
			return
		}
	}
	if rs.Column(metricCol) >= 0 {
		sort.SliceStable(rs.Rows, func(i, j int) bool {
			return rs.Int(rs.Rows[i], metricCol) > rs.Int(rs.Rows[j], metricCol)
		})
	}
}

// SelectResultSet returns the first result set whose columns cover the
// required set, or nil when none match. Callers treat nil as "no data"
// rather than an error: the provider reshuffles result sets between
// schema versions and an unusable response zero-fills downstream.
func SelectResultSet(sets []*ResultSet, required ...string) *ResultSet {
	for _, rs := range sets {
		if rs.HasColumns(required...) {
			return rs
		}
	}
	return nil
}

func coerceInt(v any) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case int64:
		return int(val)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
		return 0
	default:
		return 0
	}
}
