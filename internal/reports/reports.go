// Package reports produces analyst findings records and assembled
// chain-of-custody reports for court or review.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/decms-project/decms/internal/custody"
)

// ErrNotFound is returned when a report lookup finds no matching record.
var ErrNotFound = errors.New("report not found")

// AnalysisReport records an analyst's findings on one evidence item.
type AnalysisReport struct {
	ID         int64     `json:"report_id"`
	EvidenceID int64     `json:"evidence_id"`
	AnalystID  int64     `json:"analyst_id"`
	Findings   string    `json:"findings"`
	CreatedAt  time.Time `json:"created_at"`
}

// CustodyReport is the assembled, serialization-ready chain-of-custody view
// of one evidence item: its head state, the full ordered transfer log, and a
// fresh verification result. GeneratedAt is the assembly time, not a stored
// field.
type CustodyReport struct {
	Item        *custody.EvidenceItem     `json:"item"`
	Transfers   []*custody.TransferRecord `json:"transfers"`
	Verify      *custody.VerifyResult     `json:"verification"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// chainReader is the slice of the custody engine the report service needs.
type chainReader interface {
	VerifyChain(ctx context.Context, evidenceID int64) (*custody.VerifyResult, error)
}

// ReportService writes analysis reports and assembles custody reports.
type ReportService struct {
	db     *pgxpool.Pool
	store  custody.Store
	engine chainReader
}

// NewReportService creates a ReportService.
func NewReportService(db *pgxpool.Pool, store custody.Store, engine chainReader) *ReportService {
	return &ReportService{db: db, store: store, engine: engine}
}

// CreateAnalysis records analyst findings for an evidence item.
func (s *ReportService) CreateAnalysis(ctx context.Context, evidenceID, analystID int64, findings string) (*AnalysisReport, error) {
	if findings == "" {
		return nil, fmt.Errorf("findings are required")
	}
	if _, err := s.store.GetEvidence(ctx, evidenceID); err != nil {
		return nil, err
	}

	r := &AnalysisReport{
		EvidenceID: evidenceID,
		AnalystID:  analystID,
		Findings:   findings,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.db.QueryRow(ctx,
		`INSERT INTO analysis_reports (evidence_id, analyst_id, findings, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING report_id`,
		r.EvidenceID, r.AnalystID, r.Findings, r.CreatedAt,
	).Scan(&r.ID); err != nil {
		return nil, fmt.Errorf("insert analysis report: %w", err)
	}
	return r, nil
}

// ListAnalysisForEvidence returns findings for one item, newest first.
func (s *ReportService) ListAnalysisForEvidence(ctx context.Context, evidenceID int64) ([]*AnalysisReport, error) {
	rows, err := s.db.Query(ctx,
		`SELECT report_id, evidence_id, analyst_id, findings, created_at
		 FROM analysis_reports WHERE evidence_id = $1 ORDER BY created_at DESC`, evidenceID,
	)
	if err != nil {
		return nil, fmt.Errorf("query analysis reports: %w", err)
	}
	defer rows.Close()

	var out []*AnalysisReport
	for rows.Next() {
		r := &AnalysisReport{}
		if err := rows.Scan(&r.ID, &r.EvidenceID, &r.AnalystID, &r.Findings, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetAnalysis returns one analysis report by ID.
func (s *ReportService) GetAnalysis(ctx context.Context, id int64) (*AnalysisReport, error) {
	r := &AnalysisReport{}
	err := s.db.QueryRow(ctx,
		`SELECT report_id, evidence_id, analyst_id, findings, created_at
		 FROM analysis_reports WHERE report_id = $1`, id,
	).Scan(&r.ID, &r.EvidenceID, &r.AnalystID, &r.Findings, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get analysis report: %w", err)
	}
	return r, nil
}

// CustodyReport assembles the full chain-of-custody view for one item,
// including a fresh verification pass, so the consumer can see at a glance
// whether the chain it is about to print still holds.
func (s *ReportService) CustodyReport(ctx context.Context, evidenceID int64) (*CustodyReport, error) {
	item, err := s.store.GetEvidence(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	transfers, err := s.store.Transfers(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	verify, err := s.engine.VerifyChain(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	return &CustodyReport{
		Item:        item,
		Transfers:   transfers,
		Verify:      verify,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
