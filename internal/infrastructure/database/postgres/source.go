package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/turtacn/RiskOverlay/internal/domain/facility"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// QuerySource yields the result set of a fixed SQL query as a table. Column
// names come from the result's field descriptions, so the query decides
// which columns the alias table sees.
type QuerySource struct {
	name  string
	db    Querier
	query string
}

// NewQuerySource builds a dataset source over db.
func NewQuerySource(name string, db Querier, query string) *QuerySource {
	return &QuerySource{name: name, db: db, query: query}
}

// Name returns the dataset name.
func (s *QuerySource) Name() string { return s.name }

// Load runs the query and collects every row.
func (s *QuerySource) Load(ctx context.Context) (*facility.Table, error) {
	rows, err := s.db.Query(ctx, s.query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatasetUnavailable, "dataset query failed").WithDetail(s.name)
	}
	t, err := tableFromRows(s.name, rows)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatasetUnavailable, "failed to read dataset rows").WithDetail(s.name)
	}
	return t, nil
}

func tableFromRows(name string, rows pgx.Rows) (*facility.Table, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	t := &facility.Table{Name: name, Columns: make([]string, len(fields))}
	for i, f := range fields {
		t.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// formatValue renders a decoded column value the way it would appear in a
// delimited export. NULL becomes the empty string.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return ""
		}
		return strconv.FormatFloat(f.Float64, 'f', -1, 64)
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
