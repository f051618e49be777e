package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
)

// rowDriver serves the same fixed result set for every query, letting scan
// code be exercised against values (NULLs included) a live database would
// return.
type rowDriver struct {
	columns []string
	rows    [][]driver.Value
}

func (d *rowDriver) Open(string) (driver.Conn, error) {
	return &rowConn{d: d}, nil
}

type rowConn struct {
	d *rowDriver
}

func (c *rowConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *rowConn) Close() error                        { return nil }
func (c *rowConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

func (c *rowConn) QueryContext(_ context.Context, _ string, _ []driver.NamedValue) (driver.Rows, error) {
	rows := make([][]driver.Value, len(c.d.rows))
	for i, row := range c.d.rows {
		rows[i] = append([]driver.Value(nil), row...)
	}
	return &rowSet{columns: c.d.columns, rows: rows}, nil
}

type rowSet struct {
	columns []string
	rows    [][]driver.Value
	pos     int
}

func (r *rowSet) Columns() []string { return r.columns }
func (r *rowSet) Close() error      { return nil }

func (r *rowSet) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var payoutTestColumns = []string{
	"id", "vendor_id", "period_year", "period_month", "amount", "status",
	"external_tx_ref", "created_at", "completed_at",
}

func openRowDB(t *testing.T, name string, d *rowDriver) *sql.DB {
	t.Helper()

	if !slices.Contains(sql.Drivers(), name) {
		sql.Register(name, d)
	}
	db, err := sql.Open(name, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestPayoutRepository_ScansNullExternalTxRef(t *testing.T) {
	createdAt := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
	db := openRowDB(t, "payout_null_ref", &rowDriver{
		columns: payoutTestColumns,
		rows: [][]driver.Value{
			{int64(9), int64(3), int64(2026), int64(8), "4250.00", "pending", nil, createdAt, nil},
		},
	})

	repo := NewPayoutRepository(db, testLogger())

	request, err := repo.FindByVendorPeriod(context.Background(), 3, 2026, 8)
	require.NoError(t, err)
	require.NotNil(t, request)
	assert.Equal(t, int64(9), request.ID)
	assert.Equal(t, domain.PayoutPending, request.Status)
	assert.Equal(t, "", request.ExternalTxRef)
	assert.Nil(t, request.CompletedAt)
	assert.Equal(t, "4250.00", request.Amount.StringFixed(2))
}

func TestPayoutRepository_ListPendingWithNullExternalTxRef(t *testing.T) {
	createdAt := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
	db := openRowDB(t, "payout_null_ref_list", &rowDriver{
		columns: payoutTestColumns,
		rows: [][]driver.Value{
			{int64(9), int64(3), int64(2026), int64(8), "4250.00", "pending", nil, createdAt, nil},
			{int64(10), int64(4), int64(2026), int64(7), "900.00", "pending", nil, createdAt, nil},
		},
	})

	repo := NewPayoutRepository(db, testLogger())

	requests, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 2)
	for _, request := range requests {
		assert.Equal(t, "", request.ExternalTxRef)
		assert.Nil(t, request.CompletedAt)
	}
}
