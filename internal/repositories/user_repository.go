package repositories

import (
	"context"
	"errors"
	"fmt"

	"gatepass-backend/internal/apperrors"
	"gatepass-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `
	id, name, email, phone, password_hash, role, totp_enabled, is_active, created_at, updated_at`

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, phone, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, totp_enabled, is_active, created_at, updated_at
	`

	err := r.DB.QueryRow(ctx, query,
		user.Name, user.Email, user.Phone, user.PasswordHash, user.Role,
	).Scan(&user.ID, &user.TOTPEnabled, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Validation("email already registered")
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (r *UserRepository) scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.Phone, &user.PasswordHash,
		&user.Role, &user.TOTPEnabled, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) Get(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.DB.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.DB.QueryRow(ctx, query, email))
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	query := `SELECT` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID, &user.Name, &user.Email, &user.Phone, &user.PasswordHash,
			&user.Role, &user.TOTPEnabled, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// ListByRole returns the active users holding a role. Used to pick
// notification recipients for workflow events.
func (r *UserRepository) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE role = $1 AND is_active ORDER BY id`

	rows, err := r.DB.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID, &user.Name, &user.Email, &user.Phone, &user.PasswordHash,
			&user.Role, &user.TOTPEnabled, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $1, email = $2, phone = $3, role = $4, is_active = $5,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
	`

	tag, err := r.DB.Exec(ctx, query,
		user.Name, user.Email, user.Phone, user.Role, user.IsActive, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Validation("email already registered")
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`

	tag, err := r.DB.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// SetTOTPSecret stores a provisioned secret without enabling 2FA yet.
func (r *UserRepository) SetTOTPSecret(ctx context.Context, id int, secret string) error {
	query := `UPDATE users SET totp_secret = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`

	tag, err := r.DB.Exec(ctx, query, secret, id)
	if err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *UserRepository) GetTOTPSecret(ctx context.Context, id int) (string, error) {
	var secret *string
	err := r.DB.QueryRow(ctx, `SELECT totp_secret FROM users WHERE id = $1`, id).Scan(&secret)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNotFound
		}
		return "", err
	}
	if secret == nil {
		return "", nil
	}
	return *secret, nil
}

func (r *UserRepository) SetTOTPEnabled(ctx context.Context, id int, enabled bool) error {
	query := `UPDATE users SET totp_enabled = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	if !enabled {
		query = `UPDATE users SET totp_enabled = $1, totp_secret = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	}

	tag, err := r.DB.Exec(ctx, query, enabled, id)
	if err != nil {
		return fmt.Errorf("set totp enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
