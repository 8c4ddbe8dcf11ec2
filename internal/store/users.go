package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adiwira/gudang/internal/model"
)

const userColumns = `u.id, u.email, u.password_hash, u.created_at, u.deleted_at,
	p.full_name, p.username, p.status, r.role`

// CreateUser creates an account with its profile and role assignment.
func CreateUser(ctx context.Context, db *sql.DB, email, passwordHash, fullName, username, role string) (*model.User, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES (?, ?)`,
		email, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (user_id, full_name, username) VALUES (?, ?, ?)`,
		id, fullName, username,
	); err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES (?, ?)`,
		id, role,
	); err != nil {
		return nil, fmt.Errorf("assigning role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user creation: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID with profile and role joined.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	return getUserWhere(ctx, db, `u.id = ?`, id)
}

// GetUserByEmail returns a user by email. An active account wins over a
// soft-deleted one when the address was reused; a lone deleted match is
// still returned so the caller can tell deleted from missing.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*model.User, error) {
	return getUserWhere(ctx, db, `u.email = ?`, email)
}

func getUserWhere(ctx context.Context, db *sql.DB, cond string, arg any) (*model.User, error) {
	u := &model.User{}
	var fullName, username, status, role sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 LEFT JOIN profiles p ON p.user_id = u.id
		 LEFT JOIN user_roles r ON r.user_id = u.id
		 WHERE `+cond+`
		 ORDER BY (u.deleted_at IS NULL) DESC LIMIT 1`, arg,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.DeletedAt,
		&fullName, &username, &status, &role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u.FullName = fullName.String
	u.Username = username.String
	u.Status = status.String
	u.Role = role.String
	return u, nil
}

// ListUsers returns all non-deleted users with profiles and roles.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 LEFT JOIN profiles p ON p.user_id = u.id
		 LEFT JOIN user_roles r ON r.user_id = u.id
		 WHERE u.deleted_at IS NULL ORDER BY u.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var fullName, username, status, role sql.NullString
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.DeletedAt,
			&fullName, &username, &status, &role); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		u.FullName = fullName.String
		u.Username = username.String
		u.Status = status.String
		u.Role = role.String
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateProfile updates a user's display identity.
func UpdateProfile(ctx context.Context, db *sql.DB, userID int64, fullName, username string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE profiles SET full_name = ?, username = ? WHERE user_id = ?`,
		fullName, username, userID,
	)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return nil
}

// SetProfileStatus activates or deactivates a user's profile.
func SetProfileStatus(ctx context.Context, db *sql.DB, userID int64, status string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE profiles SET status = ? WHERE user_id = ?`,
		status, userID,
	)
	if err != nil {
		return fmt.Errorf("setting profile status: %w", err)
	}
	return nil
}

// SetRole upserts a user's role assignment (one assignment per account).
func SetRole(ctx context.Context, db *sql.DB, userID int64, role string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET role = ?`,
		userID, role, role,
	)
	if err != nil {
		return fmt.Errorf("setting role: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user and deactivates its profile.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id,
	); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE profiles SET status = ? WHERE user_id = ?`, model.ProfileInactive, id,
	); err != nil {
		return fmt.Errorf("deactivating profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing user deletion: %w", err)
	}
	return nil
}
