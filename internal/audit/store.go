// Package audit records console mutations of registry records.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Actions recorded by the console.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ErrSchemaMissing means console_audit_log does not exist yet.
var ErrSchemaMissing = errors.New("audit: console_audit_log table missing")

// Entry is one audited mutation.
type Entry struct {
	ID        int64
	Action    string
	Screen    string
	RecordID  string
	Outcome   string
	Detail    map[string]any
	RequestID string
	At        time.Time
}

// Page is one window of the timeline.
type Page struct {
	Entries  []Entry
	Page     int
	PageSize int
	HasNext  bool
}

// Store persists audit entries.
type Store interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, page, pageSize int) (Page, error)
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
}

// PGStore writes entries into Postgres.
type PGStore struct {
	db dbtx
}

// NewPGStore returns a PGStore over a pool or transaction.
func NewPGStore(db dbtx) *PGStore {
	return &PGStore{db: db}
}

const schema = `CREATE TABLE IF NOT EXISTS console_audit_log (
	id BIGSERIAL PRIMARY KEY,
	action TEXT NOT NULL,
	screen TEXT NOT NULL,
	record_id TEXT NOT NULL,
	outcome TEXT NOT NULL,
	detail JSONB,
	request_id TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// EnsureSchema creates the audit table when it is missing.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("audit: ensure schema: %w", err)
	}
	return nil
}

// Record persists the entry.
func (s *PGStore) Record(ctx context.Context, entry Entry) error {
	if entry.Action == "" || entry.Screen == "" {
		return errors.New("audit: entry requires action and screen")
	}
	if entry.Outcome == "" {
		entry.Outcome = "ok"
	}
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return err
	}
	var at *time.Time
	if !entry.At.IsZero() {
		at = &entry.At
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO console_audit_log (action, screen, record_id, outcome, detail, request_id, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`,
		entry.Action, entry.Screen, entry.RecordID, entry.Outcome, detail, entry.RequestID, at)
	return classify(err)
}

// Recent returns the newest entries, pageSize at a time.
func (s *PGStore) Recent(ctx context.Context, page, pageSize int) (Page, error) {
	page, pageSize = normalizePage(page, pageSize)
	rows, err := s.db.Query(ctx,
		`SELECT id, action, screen, record_id, outcome, detail, request_id, occurred_at
		 FROM console_audit_log ORDER BY occurred_at DESC, id DESC OFFSET $1 LIMIT $2`,
		(page-1)*pageSize, pageSize+1)
	if err != nil {
		return Page{}, classify(err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, pageSize)
	for rows.Next() {
		var e Entry
		var detail []byte
		if err := rows.Scan(&e.ID, &e.Action, &e.Screen, &e.RecordID, &e.Outcome, &detail, &e.RequestID, &e.At); err != nil {
			return Page{}, err
		}
		if len(detail) > 0 {
			_ = json.Unmarshal(detail, &e.Detail)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return Page{}, classify(err)
	}
	hasNext := len(entries) > pageSize
	if hasNext {
		entries = entries[:pageSize]
	}
	return Page{Entries: entries, Page: page, PageSize: pageSize, HasNext: hasNext}, nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, pgErr.Message)
	}
	return fmt.Errorf("audit: %w", err)
}

func normalizePage(page, pageSize int) (int, int) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	if page <= 0 {
		page = 1
	}
	return page, pageSize
}

// NopStore discards entries; used when no database is configured.
type NopStore struct{}

// Record implements Store.
func (NopStore) Record(context.Context, Entry) error { return nil }

// Recent implements Store.
func (NopStore) Recent(_ context.Context, page, pageSize int) (Page, error) {
	page, pageSize = normalizePage(page, pageSize)
	return Page{Page: page, PageSize: pageSize}, nil
}
