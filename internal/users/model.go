package users

import "time"

// Role carries the boolean permission flags checked by the HTTP layer's
// permission middleware. These are orthogonal to the custody engine's own
// current-custodian check; the two gates compose, they are never merged.
type Role struct {
	ID                  int64  `json:"role_id"`
	Name                string `json:"role_name"` // e.g. "Administrator", "Forensic Analyst"
	CanManageUsers      bool   `json:"can_manage_users"`
	CanCreateCases      bool   `json:"can_create_cases"`
	CanTransferEvidence bool   `json:"can_transfer_evidence"`
}

// User is an authenticated DECMS account holder.
type User struct {
	ID           int64     `json:"user_id"`
	RoleID       int64     `json:"role_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	BadgeNumber  string    `json:"badge_number,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`

	// Role is populated on reads that join the roles table.
	Role *Role `json:"role,omitempty"`
}
