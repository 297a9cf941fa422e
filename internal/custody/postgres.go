package custody

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore persists the custody ledger to PostgreSQL. It implements the
// Store interface.
//
// Concurrency model: AppendTransfer takes a row-level lock (SELECT ... FOR
// UPDATE) on the evidence item, so two concurrent transfers on the same item
// serialise while transfers on different items proceed independently. The
// UNIQUE constraint on evidence_transfers.link_hash is a second line of
// defence: a forked chain would insert a duplicate predecessor-derived hash
// and be rejected.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

const transferColumns = `transfer_id, evidence_id, from_user_id, to_user_id, transfer_timestamp, notes, link_hash`

// Intake implements Store.
func (s *PostgresStore) Intake(ctx context.Context, item *EvidenceItem, genesis func(evidenceID int64) *TransferRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := tx.QueryRow(ctx,
		`INSERT INTO evidence_items (case_id, item_name, description, evidence_type, initial_hash, status, current_custodian_id, acquired_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING evidence_id`,
		item.CaseID, item.ItemName, item.Description, item.EvidenceType,
		item.InitialHash, item.Status, item.CurrentCustodianID, item.AcquiredAt,
	).Scan(&item.ID); err != nil {
		return mapPgError("insert evidence item", err)
	}

	rec := genesis(item.ID)
	if err := tx.QueryRow(ctx,
		`INSERT INTO evidence_transfers (evidence_id, from_user_id, to_user_id, transfer_timestamp, notes, link_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING transfer_id`,
		rec.EvidenceID, rec.FromUserID, rec.ToUserID, rec.Timestamp, rec.Notes, rec.LinkHash,
	).Scan(&rec.ID); err != nil {
		return mapPgError("insert genesis transfer", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit intake tx", err)
	}
	return nil
}

// AppendTransfer implements Store.
func (s *PostgresStore) AppendTransfer(ctx context.Context, evidenceID int64, build func(item *EvidenceItem, last *TransferRecord) (*TransferRecord, error)) (*TransferRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageErr("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Lock the head row; concurrent appends on this item queue here.
	item := &EvidenceItem{}
	if err := tx.QueryRow(ctx,
		`SELECT evidence_id, case_id, item_name, description, evidence_type, initial_hash, status, current_custodian_id, acquired_at
		 FROM evidence_items WHERE evidence_id = $1 FOR UPDATE`, evidenceID,
	).Scan(
		&item.ID, &item.CaseID, &item.ItemName, &item.Description, &item.EvidenceType,
		&item.InitialHash, &item.Status, &item.CurrentCustodianID, &item.AcquiredAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: evidence %d", ErrEvidenceNotFound, evidenceID)
		}
		return nil, storageErr("lock evidence item", err)
	}

	var last *TransferRecord
	rec := &TransferRecord{}
	err = tx.QueryRow(ctx,
		`SELECT `+transferColumns+` FROM evidence_transfers
		 WHERE evidence_id = $1
		 ORDER BY transfer_timestamp DESC, transfer_id DESC
		 LIMIT 1`, evidenceID,
	).Scan(&rec.ID, &rec.EvidenceID, &rec.FromUserID, &rec.ToUserID, &rec.Timestamp, &rec.Notes, &rec.LinkHash)
	switch {
	case err == nil:
		last = rec
	case errors.Is(err, pgx.ErrNoRows):
		// last stays nil; the engine rejects the malformed chain.
	default:
		return nil, storageErr("read chain tail", err)
	}

	next, err := build(item, last)
	if err != nil {
		return nil, err
	}

	if err := tx.QueryRow(ctx,
		`INSERT INTO evidence_transfers (evidence_id, from_user_id, to_user_id, transfer_timestamp, notes, link_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING transfer_id`,
		next.EvidenceID, next.FromUserID, next.ToUserID, next.Timestamp, next.Notes, next.LinkHash,
	).Scan(&next.ID); err != nil {
		return nil, mapPgError("insert transfer", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE evidence_items SET current_custodian_id = $2, status = $3 WHERE evidence_id = $1`,
		evidenceID, next.ToUserID, StatusTransferred,
	); err != nil {
		return nil, storageErr("update evidence head", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("commit transfer tx", err)
	}

	s.logger.Debug("transfer appended",
		zap.Int64("transfer_id", next.ID),
		zap.Int64("evidence_id", evidenceID),
		zap.Int64("to_user_id", next.ToUserID),
	)
	return next, nil
}

// GetEvidence implements Store.
func (s *PostgresStore) GetEvidence(ctx context.Context, id int64) (*EvidenceItem, error) {
	item := &EvidenceItem{}
	if err := s.pool.QueryRow(ctx,
		`SELECT evidence_id, case_id, item_name, description, evidence_type, initial_hash, status, current_custodian_id, acquired_at
		 FROM evidence_items WHERE evidence_id = $1`, id,
	).Scan(
		&item.ID, &item.CaseID, &item.ItemName, &item.Description, &item.EvidenceType,
		&item.InitialHash, &item.Status, &item.CurrentCustodianID, &item.AcquiredAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: evidence %d", ErrEvidenceNotFound, id)
		}
		return nil, storageErr("get evidence item", err)
	}
	return item, nil
}

// Transfers implements Store.
func (s *PostgresStore) Transfers(ctx context.Context, evidenceID int64) ([]*TransferRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+transferColumns+` FROM evidence_transfers
		 WHERE evidence_id = $1
		 ORDER BY transfer_timestamp ASC, transfer_id ASC`, evidenceID,
	)
	if err != nil {
		return nil, storageErr("query transfers", err)
	}
	defer rows.Close()

	var out []*TransferRecord
	for rows.Next() {
		rec := &TransferRecord{}
		if err := rows.Scan(&rec.ID, &rec.EvidenceID, &rec.FromUserID, &rec.ToUserID, &rec.Timestamp, &rec.Notes, &rec.LinkHash); err != nil {
			return nil, storageErr("scan transfer row", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate transfers", err)
	}
	return out, nil
}

// AllTransfers implements Store.
func (s *PostgresStore) AllTransfers(ctx context.Context, limit int) ([]*TransferLogEntry, error) {
	if limit < 0 {
		limit = 0
	}
	rows, err := s.pool.Query(ctx,
		`SELECT t.transfer_id, t.evidence_id, t.from_user_id, t.to_user_id, t.transfer_timestamp, t.notes, t.link_hash,
		        fu.first_name || ' ' || fu.last_name,
		        tu.first_name || ' ' || tu.last_name
		 FROM evidence_transfers t
		 JOIN users fu ON fu.user_id = t.from_user_id
		 JOIN users tu ON tu.user_id = t.to_user_id
		 ORDER BY t.transfer_timestamp DESC, t.transfer_id DESC
		 LIMIT NULLIF($1, 0)`, limit,
	)
	if err != nil {
		return nil, storageErr("query transfer log", err)
	}
	defer rows.Close()

	var out []*TransferLogEntry
	for rows.Next() {
		entry := &TransferLogEntry{}
		if err := rows.Scan(
			&entry.ID, &entry.EvidenceID, &entry.FromUserID, &entry.ToUserID,
			&entry.Timestamp, &entry.Notes, &entry.LinkHash,
			&entry.FromUserName, &entry.ToUserName,
		); err != nil {
			return nil, storageErr("scan transfer log row", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate transfer log", err)
	}
	return out, nil
}

// EvidenceByCase implements Store.
func (s *PostgresStore) EvidenceByCase(ctx context.Context, caseID int64) ([]*EvidenceItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT evidence_id, case_id, item_name, description, evidence_type, initial_hash, status, current_custodian_id, acquired_at
		 FROM evidence_items WHERE case_id = $1 ORDER BY evidence_id ASC`, caseID,
	)
	if err != nil {
		return nil, storageErr("query case evidence", err)
	}
	defer rows.Close()

	var out []*EvidenceItem
	for rows.Next() {
		item := &EvidenceItem{}
		if err := rows.Scan(
			&item.ID, &item.CaseID, &item.ItemName, &item.Description, &item.EvidenceType,
			&item.InitialHash, &item.Status, &item.CurrentCustodianID, &item.AcquiredAt,
		); err != nil {
			return nil, storageErr("scan evidence row", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate case evidence", err)
	}
	return out, nil
}

// DeleteEvidence implements Store. The status check and the delete run in
// one transaction under the same row lock AppendTransfer takes, so a delete
// can never race a concurrent status change or hand-off on the item. The
// transfer log rows go with the item via ON DELETE CASCADE.
func (s *PostgresStore) DeleteEvidence(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var status Status
	if err := tx.QueryRow(ctx,
		`SELECT status FROM evidence_items WHERE evidence_id = $1 FOR UPDATE`, id,
	).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: evidence %d", ErrEvidenceNotFound, id)
		}
		return storageErr("lock evidence item", err)
	}
	if status == StatusUnderAnalysis {
		return fmt.Errorf("%w: evidence %d is under analysis and cannot be deleted", ErrValidation, id)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM evidence_items WHERE evidence_id = $1`, id); err != nil {
		return storageErr("delete evidence item", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit delete tx", err)
	}
	return nil
}

// UpdateStatus implements Store.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE evidence_items SET status = $2 WHERE evidence_id = $1`, id, status,
	)
	if err != nil {
		return storageErr("update status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: evidence %d", ErrEvidenceNotFound, id)
	}
	return nil
}

// CaseExists implements Store.
func (s *PostgresStore) CaseExists(ctx context.Context, caseID int64) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM cases WHERE case_id = $1)`, caseID,
	).Scan(&ok); err != nil {
		return false, storageErr("check case", err)
	}
	return ok, nil
}

// UserExists implements Store.
func (s *PostgresStore) UserExists(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1 AND is_active)`, userID,
	).Scan(&ok); err != nil {
		return false, storageErr("check user", err)
	}
	return ok, nil
}

// storageErr classifies a persistence failure under ErrStorage while keeping
// the cause on the chain.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// mapPgError translates constraint violations into domain errors. Unique
// violations on link_hash mean a forked or tampered chain; foreign-key
// violations mean the referenced case or user vanished between validation and
// commit.
func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if pgErr.ConstraintName == "evidence_transfers_link_hash_key" {
				return fmt.Errorf("%w: %s", ErrHashCollision, pgErr.Detail)
			}
		case "23503":
			return fmt.Errorf("%w: %s", ErrValidation, pgErr.ConstraintName)
		}
	}
	return storageErr(op, err)
}
