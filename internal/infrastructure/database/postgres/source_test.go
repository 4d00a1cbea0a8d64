package postgres

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/RiskOverlay/pkg/errors"
)

type fakeRows struct {
	fields []pgconn.FieldDescription
	data   [][]any
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) Scan(dest ...any) error                       { return errors.New("not supported") }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.data[r.pos-1], nil }

type fakeQuerier struct {
	rows  pgx.Rows
	err   error
	query string
}

func (q *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.query = sql
	return q.rows, q.err
}

func TestTableFromRows(t *testing.T) {
	rows := &fakeRows{
		fields: []pgconn.FieldDescription{{Name: "nome"}, {Name: "longitude"}, {Name: "latitude"}, {Name: "ativo"}, {Name: "atualizado"}},
		data: [][]any{
			{"UBS Centro", -49.27, -25.43, true, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
			{nil, float32(-49.5), int64(-25), false, nil},
		},
	}

	tbl, err := tableFromRows("ubs", rows)
	require.NoError(t, err)
	assert.True(t, rows.closed)
	assert.Equal(t, []string{"nome", "longitude", "latitude", "ativo", "atualizado"}, tbl.Columns)
	assert.Equal(t, []string{"UBS Centro", "-49.27", "-25.43", "true", "2024-05-01T00:00:00Z"}, tbl.Rows[0])
	assert.Equal(t, []string{"", "-49.5", "-25", "false", ""}, tbl.Rows[1])
}

func TestQuerySource_Load(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{
		fields: []pgconn.FieldDescription{{Name: "x"}, {Name: "y"}},
		data:   [][]any{{1.5, 2.5}},
	}}
	src := NewQuerySource("dams", q, "SELECT x, y FROM barragens")

	tbl, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dams", src.Name())
	assert.Equal(t, "SELECT x, y FROM barragens", q.query)
	assert.Equal(t, [][]string{{"1.5", "2.5"}}, tbl.Rows)
}

func TestQuerySource_QueryError(t *testing.T) {
	src := NewQuerySource("dams", &fakeQuerier{err: errors.New("connection refused")}, "SELECT 1")
	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDatasetUnavailable))
}

func TestQuerySource_RowsError(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{fields: []pgconn.FieldDescription{{Name: "x"}}, err: errors.New("broken")}}
	_, err := NewQuerySource("d", q, "SELECT x").Load(context.Background())
	assert.Error(t, err)
}

func TestFormatValue_Numeric(t *testing.T) {
	n := pgtype.Numeric{Int: big.NewInt(-4927), Exp: -2, Valid: true}
	assert.Equal(t, "-49.27", formatValue(n))
	assert.Equal(t, "", formatValue(pgtype.Numeric{}))
}
