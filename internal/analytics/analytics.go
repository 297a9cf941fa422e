// Package analytics serves read-only rollups for the dashboard: case and
// evidence counts, and monthly transfer volume. Nothing here mutates state.
package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StatusCount is one bucket of a group-by-status rollup.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// EvidenceBucket is one bucket of the evidence type/status rollup.
type EvidenceBucket struct {
	EvidenceType string `json:"evidence_type"`
	Status       string `json:"status"`
	Count        int64  `json:"count"`
}

// MonthCount is one month of transfer volume, month formatted "2006-01".
type MonthCount struct {
	Month     string `json:"month"`
	Transfers int64  `json:"transfers"`
}

// Service runs the rollup queries.
type Service struct {
	db *pgxpool.Pool
}

// NewService creates an analytics Service.
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// CasesByStatus returns case counts grouped by workflow status.
func (s *Service) CasesByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := s.db.Query(ctx,
		`SELECT status, COUNT(*) FROM cases GROUP BY status ORDER BY status`,
	)
	if err != nil {
		return nil, fmt.Errorf("cases by status: %w", err)
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// EvidenceByTypeAndStatus returns evidence counts grouped by type and status.
func (s *Service) EvidenceByTypeAndStatus(ctx context.Context) ([]EvidenceBucket, error) {
	rows, err := s.db.Query(ctx,
		`SELECT evidence_type, status, COUNT(*)
		 FROM evidence_items GROUP BY evidence_type, status
		 ORDER BY evidence_type, status`,
	)
	if err != nil {
		return nil, fmt.Errorf("evidence by type/status: %w", err)
	}
	defer rows.Close()

	var out []EvidenceBucket
	for rows.Next() {
		var b EvidenceBucket
		if err := rows.Scan(&b.EvidenceType, &b.Status, &b.Count); err != nil {
			return nil, fmt.Errorf("scan evidence bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// MonthlyTransfers returns transfer counts per calendar month, ascending.
func (s *Service) MonthlyTransfers(ctx context.Context) ([]MonthCount, error) {
	rows, err := s.db.Query(ctx,
		`SELECT to_char(date_trunc('month', transfer_timestamp), 'YYYY-MM') AS month, COUNT(*)
		 FROM evidence_transfers GROUP BY month ORDER BY month ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("monthly transfers: %w", err)
	}
	defer rows.Close()

	var out []MonthCount
	for rows.Next() {
		var mc MonthCount
		if err := rows.Scan(&mc.Month, &mc.Transfers); err != nil {
			return nil, fmt.Errorf("scan month count: %w", err)
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}
