package cases

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// caseRepo is the storage interface consumed by CaseService.
type caseRepo interface {
	Create(ctx context.Context, cs *Case) error
	GetByID(ctx context.Context, id int64) (*Case, error)
	List(ctx context.Context) ([]*Case, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

// auditor is the best-effort audit hook; failures are logged and suppressed.
type auditor interface {
	Record(ctx context.Context, actorID int64, action, details string) error
}

// CaseService implements case lifecycle logic around the repository.
type CaseService struct {
	repo   caseRepo
	audit  auditor // nil = no audit trail
	logger *zap.Logger
}

// NewCaseService creates a new CaseService. audit may be nil.
func NewCaseService(repo caseRepo, audit auditor, logger *zap.Logger) *CaseService {
	return &CaseService{repo: repo, audit: audit, logger: logger}
}

// Create opens a new case. When caseNumber is empty, one is generated from
// the current year and a nanosecond suffix; uniqueness is enforced by the
// store either way.
func (s *CaseService) Create(ctx context.Context, caseNumber, title, description string, creatorID int64) (*Case, error) {
	if title == "" {
		return nil, fmt.Errorf("case title is required")
	}
	if caseNumber == "" {
		now := time.Now().UTC()
		caseNumber = fmt.Sprintf("CASE-%d-%06d", now.Year(), now.UnixNano()%1000000)
	}

	cs := &Case{
		CaseNumber:  caseNumber,
		Title:       title,
		Description: description,
		Status:      StatusOpen,
		CreatedBy:   creatorID,
	}
	if err := s.repo.Create(ctx, cs); err != nil {
		return nil, err
	}

	s.emit(ctx, creatorID, "CREATE_CASE",
		fmt.Sprintf("Case %q (ID: %d) opened.", cs.CaseNumber, cs.ID))
	return cs, nil
}

// Get returns one case by ID.
func (s *CaseService) Get(ctx context.Context, id int64) (*Case, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all cases, newest first.
func (s *CaseService) List(ctx context.Context) ([]*Case, error) {
	return s.repo.List(ctx)
}

// UpdateStatus moves a case through its workflow.
func (s *CaseService) UpdateStatus(ctx context.Context, id int64, status Status, actorID int64) error {
	switch status {
	case StatusOpen, StatusInProgress, StatusClosed:
	default:
		return fmt.Errorf("invalid case status %q", status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	s.emit(ctx, actorID, "UPDATE_CASE",
		fmt.Sprintf("Case %d status set to %q.", id, status))
	return nil
}

func (s *CaseService) emit(ctx context.Context, actorID int64, action, details string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, actorID, action, details); err != nil {
		s.logger.Error("audit record failed (non-fatal)",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
