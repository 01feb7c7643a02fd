package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type stubDB struct {
	execs   []execCall
	execErr error
	rows    [][]any
}

func (s *stubDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, s.execErr
}

func (s *stubDB) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	offset, limit := args[0].(int), args[1].(int)
	end := min(len(s.rows), offset+limit)
	if offset > end {
		offset = end
	}
	return &stubRows{rows: s.rows[offset:end], index: -1}, nil
}

type stubRows struct {
	pgx.Rows
	rows  [][]any
	index int
}

func (r *stubRows) Close()     {}
func (r *stubRows) Err() error { return nil }

func (r *stubRows) Next() bool {
	r.index++
	return r.index < len(r.rows)
}

func (r *stubRows) Scan(dest ...any) error {
	row := r.rows[r.index]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: want %d columns, got %d", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *int64:
			*d = v.(int64)
		case *string:
			*d = v.(string)
		case *[]byte:
			*d = v.([]byte)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("unsupported destination %T", d)
		}
	}
	return nil
}

func TestRecordInsertsEntry(t *testing.T) {
	db := &stubDB{}
	store := NewPGStore(db)
	err := store.Record(context.Background(), Entry{
		Action: ActionDelete, Screen: "villages", RecordID: "11", RequestID: "req-1",
		Detail: map[string]any{"query": "state=KA"},
	})
	require.NoError(t, err)
	require.Len(t, db.execs, 1)
	call := db.execs[0]
	assert.Contains(t, call.sql, "INSERT INTO console_audit_log")
	assert.Equal(t, "delete", call.args[0])
	assert.Equal(t, "ok", call.args[3])
	assert.JSONEq(t, `{"query":"state=KA"}`, string(call.args[4].([]byte)))
	assert.Nil(t, call.args[6])
}

func TestRecordValidates(t *testing.T) {
	store := NewPGStore(&stubDB{})
	assert.Error(t, store.Record(context.Background(), Entry{Screen: "villages"}))
}

func TestRecordClassifiesMissingTable(t *testing.T) {
	store := NewPGStore(&stubDB{execErr: &pgconn.PgError{Code: "42P01", Message: `relation "console_audit_log" does not exist`}})
	err := store.Record(context.Background(), Entry{Action: ActionCreate, Screen: "states"})
	assert.ErrorIs(t, err, ErrSchemaMissing)

	store = NewPGStore(&stubDB{execErr: errors.New("conn reset")})
	err = store.Record(context.Background(), Entry{Action: ActionCreate, Screen: "states"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSchemaMissing)
}

func TestEnsureSchema(t *testing.T) {
	db := &stubDB{}
	require.NoError(t, NewPGStore(db).EnsureSchema(context.Background()))
	assert.True(t, strings.HasPrefix(db.execs[0].sql, "CREATE TABLE IF NOT EXISTS console_audit_log"))
}

func TestRecentPaging(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	db := &stubDB{}
	for i := range 5 {
		db.rows = append(db.rows, []any{int64(5 - i), "update", "districts", fmt.Sprint(i), "ok", []byte(`{"name":"x"}`), "", now.Add(-time.Duration(i) * time.Minute)})
	}
	store := NewPGStore(db)

	first, err := store.Recent(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Len(t, first.Entries, 2)
	assert.True(t, first.HasNext)
	assert.Equal(t, "x", first.Entries[0].Detail["name"])

	last, err := store.Recent(context.Background(), 3, 2)
	require.NoError(t, err)
	assert.Len(t, last.Entries, 1)
	assert.False(t, last.HasNext)
}

func TestNopStore(t *testing.T) {
	var store Store = NopStore{}
	require.NoError(t, store.Record(context.Background(), Entry{}))
	page, err := store.Recent(context.Background(), 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 50, page.PageSize)
}
