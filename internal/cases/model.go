package cases

import "time"

// Status values for a case. Statuses gate nothing in the custody core; they
// drive the investigation workflow and the analytics rollups.
type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusClosed     Status = "Closed"
)

// Case groups evidence items under one investigation.
type Case struct {
	ID          int64     `json:"case_id"`
	CaseNumber  string    `json:"case_number"` // unique human-facing reference, e.g. "CASE-2025-0001"
	Title       string    `json:"case_title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}
