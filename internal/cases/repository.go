package cases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a case lookup finds no matching record.
var ErrNotFound = errors.New("case not found")

// ErrDuplicateNumber is returned when a case number is already taken.
var ErrDuplicateNumber = errors.New("case number already exists")

// CaseRepository provides CRUD operations for cases against PostgreSQL.
type CaseRepository struct {
	db *pgxpool.Pool
}

// NewCaseRepository creates a new CaseRepository.
func NewCaseRepository(db *pgxpool.Pool) *CaseRepository {
	return &CaseRepository{db: db}
}

// Create inserts a new case. Sets ID and CreatedAt on the case.
func (r *CaseRepository) Create(ctx context.Context, cs *Case) error {
	cs.CreatedAt = time.Now().UTC()
	err := r.db.QueryRow(ctx,
		`INSERT INTO cases (case_number, case_title, description, status, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING case_id`,
		cs.CaseNumber, cs.Title, cs.Description, cs.Status, cs.CreatedBy, cs.CreatedAt,
	).Scan(&cs.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateNumber
		}
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

const caseColumns = `case_id, case_number, case_title, description, status, created_by, created_at`

// GetByID retrieves a case by its internal ID.
func (r *CaseRepository) GetByID(ctx context.Context, id int64) (*Case, error) {
	cs := &Case{}
	err := r.db.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE case_id = $1`, id,
	).Scan(&cs.ID, &cs.CaseNumber, &cs.Title, &cs.Description, &cs.Status, &cs.CreatedBy, &cs.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get case: %w", err)
	}
	return cs, nil
}

// List returns all cases, newest first.
func (r *CaseRepository) List(ctx context.Context) ([]*Case, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+caseColumns+` FROM cases ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []*Case
	for rows.Next() {
		cs := &Case{}
		if err := rows.Scan(&cs.ID, &cs.CaseNumber, &cs.Title, &cs.Description, &cs.Status, &cs.CreatedBy, &cs.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// UpdateStatus sets the case workflow status.
func (r *CaseRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE cases SET status = $2 WHERE case_id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update case status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
