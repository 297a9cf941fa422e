package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a user or role lookup finds no matching record.
var ErrNotFound = errors.New("user not found")

// ErrDuplicateEmail is returned when a registration reuses an email address.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrDuplicateBadge is returned when a registration reuses a badge number.
var ErrDuplicateBadge = errors.New("badge number already registered")

// UserRepository provides CRUD operations for users and roles against
// PostgreSQL.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user record. Sets ID and CreatedAt on the user.
func (r *UserRepository) Create(ctx context.Context, u *User) error {
	u.CreatedAt = time.Now().UTC()
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (role_id, first_name, last_name, email, password_hash, badge_number, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		 RETURNING user_id`,
		u.RoleID, u.FirstName, u.LastName, u.Email, u.PasswordHash,
		u.BadgeNumber, u.IsActive, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "users_email_key" {
				return ErrDuplicateEmail
			}
			return ErrDuplicateBadge
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

const userWithRole = `
	SELECT u.user_id, u.role_id, u.first_name, u.last_name, u.email, u.password_hash,
	       COALESCE(u.badge_number, ''), u.is_active, u.created_at,
	       r.role_id, r.role_name, r.can_manage_users, r.can_create_cases, r.can_transfer_evidence
	  FROM users u
	  JOIN roles r ON r.role_id = u.role_id`

// GetByID retrieves a user (with role) by their internal ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.scanOne(ctx, userWithRole+` WHERE u.user_id = $1`, id)
}

// GetByEmail retrieves a user (with role) by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanOne(ctx, userWithRole+` WHERE u.email = $1`, email)
}

// List returns all users ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]*User, error) {
	rows, err := r.db.Query(ctx, userWithRole+` ORDER BY u.created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetActive flips the account's active flag. Deactivated users cannot log in
// and are rejected as custody actors.
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET is_active = $2 WHERE user_id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRoleByName retrieves a role by its unique name.
func (r *UserRepository) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	role := &Role{}
	err := r.db.QueryRow(ctx,
		`SELECT role_id, role_name, can_manage_users, can_create_cases, can_transfer_evidence
		 FROM roles WHERE role_name = $1`, name,
	).Scan(&role.ID, &role.Name, &role.CanManageUsers, &role.CanCreateCases, &role.CanTransferEvidence)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

func (r *UserRepository) scanOne(ctx context.Context, q string, args ...any) (*User, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	u, err := scanUser(rows)
	if err != nil {
		return nil, err
	}
	return u, rows.Err()
}

func scanUser(rows pgx.Rows) (*User, error) {
	u := &User{Role: &Role{}}
	if err := rows.Scan(
		&u.ID, &u.RoleID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.BadgeNumber, &u.IsActive, &u.CreatedAt,
		&u.Role.ID, &u.Role.Name, &u.Role.CanManageUsers, &u.Role.CanCreateCases, &u.Role.CanTransferEvidence,
	); err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
