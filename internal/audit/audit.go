// Package audit records a human-readable trace of state-changing actions.
// The trail is deliberately isolated from custody record keeping: a failure
// to write an audit row must never abort or roll back the operation that
// triggered it.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Entry is one audit trail row.
type Entry struct {
	ID        int64     `json:"log_id"`
	UserID    int64     `json:"user_id"`
	Action    string    `json:"action"` // e.g. LOGIN_SUCCESS, CREATE_EVIDENCE
	Details   string    `json:"details"`
	IPAddress string    `json:"ip_address,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder writes audit entries to the audit_log table.
type Recorder struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRecorder creates a Recorder backed by the given connection pool.
func NewRecorder(pool *pgxpool.Pool, logger *zap.Logger) *Recorder {
	return &Recorder{pool: pool, logger: logger}
}

// Record implements custody.AuditEmitter.
func (r *Recorder) Record(ctx context.Context, actorID int64, action, details string) error {
	return r.RecordIP(ctx, actorID, action, details, "")
}

// RecordIP writes an audit entry with the caller's remote address attached.
// actorID 0 means the actor is unknown (e.g. a failed login) and is stored
// as NULL.
func (r *Recorder) RecordIP(ctx context.Context, actorID int64, action, details, ip string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_log (user_id, action, details, ip_address, timestamp)
		 VALUES (NULLIF($1, 0), $2, $3, NULLIF($4, ''), $5)`,
		actorID, action, details, ip, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit audit entries, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx,
		`SELECT log_id, COALESCE(user_id, 0), action, details, COALESCE(ip_address, ''), timestamp
		 FROM audit_log ORDER BY timestamp DESC, log_id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Details, &e.IPAddress, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
