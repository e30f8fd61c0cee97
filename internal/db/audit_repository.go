package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Flarenzy/trials-authorizer/internal/auth"
)

const maxListLimit = 500

var schema = []string{
	`CREATE TABLE IF NOT EXISTS authorization_decisions (
		id           uuid PRIMARY KEY,
		principal_id text NOT NULL DEFAULT '',
		effect       text NOT NULL,
		reason       text NOT NULL DEFAULT '',
		resource     text NOT NULL,
		key_id       text NOT NULL DEFAULT '',
		decided_at   timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS authorization_decisions_decided_at_idx
		ON authorization_decisions (decided_at DESC)`,
}

const insertDecision = `INSERT INTO authorization_decisions
	(id, principal_id, effect, reason, resource, key_id, decided_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

const listRecentDecisions = `SELECT id, principal_id, effect, reason, resource, key_id, decided_at
	FROM authorization_decisions
	ORDER BY decided_at DESC
	LIMIT $1`

// DBTX is the subset of pgxpool.Pool and pgx.Tx the repository uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// AuditRecord is a stored decision.
type AuditRecord struct {
	ID uuid.UUID
	auth.AuditEntry
}

type AuditRepository struct {
	db    DBTX
	newID func() uuid.UUID
}

func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db, newID: uuid.New}
}

// EnsureSchema creates the decisions table when it does not exist.
func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure audit schema: %w", err)
		}
	}
	return nil
}

func (r *AuditRepository) Record(ctx context.Context, entry auth.AuditEntry) error {
	decidedAt := entry.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now()
	}

	_, err := r.db.Exec(ctx, insertDecision,
		r.newID(),
		entry.PrincipalID,
		string(entry.Effect),
		string(entry.Reason),
		entry.Resource,
		entry.KeyID,
		decidedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// ListRecent returns up to limit decisions, newest first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.Query(ctx, listRecentDecisions, limit)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	out := make([]AuditRecord, 0, limit)
	for rows.Next() {
		record, err := scanAuditRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}

	return out, nil
}

func scanAuditRecord(row pgx.Row) (AuditRecord, error) {
	var (
		record         AuditRecord
		effect, reason string
	)
	err := row.Scan(
		&record.ID,
		&record.PrincipalID,
		&effect,
		&reason,
		&record.Resource,
		&record.KeyID,
		&record.DecidedAt,
	)
	if err != nil {
		return AuditRecord{}, fmt.Errorf("scan decision: %w", err)
	}

	record.Effect = auth.Effect(effect)
	record.Reason = auth.Reason(reason)
	return record, nil
}
