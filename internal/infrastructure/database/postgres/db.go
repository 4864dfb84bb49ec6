package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"corebank/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

const nextCodeSQL = `
        INSERT INTO code_sequences (prefix, value) VALUES ($1, 1)
        ON CONFLICT (prefix) DO UPDATE SET value = code_sequences.value + 1
        RETURNING value`

// nextCode allocates the next code for a prefix, e.g. CUST0007. The upsert
// keeps the counter transactional so concurrent callers never share a value.
func nextCode(ctx context.Context, db DBPool, prefix string) (string, error) {
	var n int64
	if err := db.QueryRow(ctx, nextCodeSQL, prefix).Scan(&n); err != nil {
		return "", fmt.Errorf("%w: failed to allocate code for prefix %s: %w", apperrors.ErrDatabase, prefix, err)
	}
	return fmt.Sprintf("%s%04d", prefix, n), nil
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {

		if pgErr.Code == "23505" {
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}
