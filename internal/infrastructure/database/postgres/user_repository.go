package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"corebank/internal/domain/identity"
	"corebank/internal/infrastructure/monitoring"
	"corebank/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, code, username, email, phone, password_hash, first_name, last_name,
        gender, date_of_birth, role, status, last_activity, created_at, updated_at`

type UserRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ identity.Repository = (*UserRepository)(nil)

func NewUserRepository(db DBPool, logger *slog.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger.With("component", "UserRepository")}
}

func scanUser(row pgx.Row) (*identity.User, error) {
	var u identity.User
	err := row.Scan(
		&u.ID, &u.Code, &u.Username, &u.Email, &u.Phone, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.Gender, &u.DateOfBirth,
		&u.Role, &u.Status, &u.LastActivity, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *identity.User) (*identity.User, error) {
	query := `
        INSERT INTO users (code, username, email, phone, password_hash, first_name, last_name,
            gender, date_of_birth, role, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
        RETURNING ` + userColumns

	status := "success"
	startTime := time.Now()

	created, err := scanUser(r.db.QueryRow(ctx, query,
		user.Code, user.Username, user.Email, user.Phone, user.PasswordHash,
		user.FirstName, user.LastName, user.Gender, user.DateOfBirth,
		user.Role, user.Status,
	))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("CreateUser", status, time.Since(startTime))

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			return nil, translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to insert user", "error", err)
		return nil, fmt.Errorf("%w: failed to insert user: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "User created in DB", "user_id", created.ID, "code", created.Code)
	return created, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getUser(ctx, "GetUserByEmail", query, email)
}

func (r *UserRepository) GetUserByEmailOrPhone(ctx context.Context, email, phone string) (*identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 OR phone = $2`
	return r.getUser(ctx, "GetUserByEmailOrPhone", query, email, phone)
}

func (r *UserRepository) GetUserByCode(ctx context.Context, code string) (*identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE code = $1`
	return r.getUser(ctx, "GetUserByCode", query, code)
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getUser(ctx, "GetUserByID", query, id)
}

func (r *UserRepository) getUser(ctx context.Context, queryName, query string, args ...any) (*identity.User, error) {
	status := "success"
	startTime := time.Now()

	u, err := scanUser(r.db.QueryRow(ctx, query, args...))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery(queryName, status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get user", "query", queryName, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return u, nil
}

func (r *UserRepository) ListUsers(ctx context.Context) ([]identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query users", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	users := make([]identity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan user row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		users = append(users, *u)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating user rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return users, nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, user *identity.User) error {
	query := `
        UPDATE users
        SET username = $1, email = $2, phone = $3, password_hash = $4, first_name = $5,
            last_name = $6, gender = $7, date_of_birth = $8, status = $9, updated_at = NOW()
        WHERE id = $10`

	status := "success"
	startTime := time.Now()

	cmdTag, err := r.db.Exec(ctx, query,
		user.Username, user.Email, user.Phone, user.PasswordHash, user.FirstName,
		user.LastName, user.Gender, user.DateOfBirth, user.Status, user.ID,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("UpdateUser", status, time.Since(startTime))

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			return translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to update user", "user_id", user.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d not found", apperrors.ErrNotFound, user.ID)
	}
	return nil
}

func (r *UserRepository) DeleteUser(ctx context.Context, id int64) error {
	query := `DELETE FROM users WHERE id = $1`

	status := "success"
	startTime := time.Now()

	cmdTag, err := r.db.Exec(ctx, query, id)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("DeleteUser", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete user", "user_id", id, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d not found", apperrors.ErrNotFound, id)
	}

	r.logger.InfoContext(ctx, "User deleted", "user_id", id)
	return nil
}

func (r *UserRepository) TouchLastActivity(ctx context.Context, id int64) error {
	query := `UPDATE users SET last_activity = NOW() WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		r.logger.WarnContext(ctx, "Failed to touch last activity", "user_id", id, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *UserRepository) NextUserCode(ctx context.Context, prefix string) (string, error) {
	return nextCode(ctx, r.db, prefix)
}
