package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"corebank/internal/domain/account"
	"corebank/internal/infrastructure/monitoring"
	"corebank/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

const ownedAccountColumns = `a.id, a.number, a.customer_id, a.type, a.balance, a.secret_code,
        a.status, a.created_at, a.updated_at, c.user_id`

type AccountRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ account.Repository = (*AccountRepository)(nil)

func NewAccountRepository(db DBPool, logger *slog.Logger) *AccountRepository {
	return &AccountRepository{db: db, logger: logger.With("component", "AccountRepository")}
}

func (r *AccountRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *AccountRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *AccountRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func scanOwnedAccount(row pgx.Row) (*account.OwnedAccount, error) {
	var a account.OwnedAccount
	err := row.Scan(
		&a.ID, &a.Number, &a.CustomerID, &a.Type, &a.Balance, &a.SecretCode,
		&a.Status, &a.CreatedAt, &a.UpdatedAt, &a.OwnerUserID,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) CreateAccount(ctx context.Context, acc *account.Account, initialDeposit *account.Transaction) (*account.Account, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer r.RollbackTx(ctx, tx)

	accountSQL := `
        INSERT INTO accounts (number, customer_id, type, balance, secret_code, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING id, number, customer_id, type, balance, secret_code, status, created_at, updated_at`

	status := "success"
	startTime := time.Now()

	var created account.Account
	err = tx.QueryRow(ctx, accountSQL,
		acc.Number, acc.CustomerID, acc.Type, acc.Balance, acc.SecretCode, acc.Status,
	).Scan(
		&created.ID, &created.Number, &created.CustomerID, &created.Type,
		&created.Balance, &created.SecretCode, &created.Status,
		&created.CreatedAt, &created.UpdatedAt,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("CreateAccount", status, time.Since(startTime))

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			return nil, translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to insert account", "error", err)
		return nil, fmt.Errorf("%w: failed to insert account: %w", apperrors.ErrDatabase, err)
	}

	if initialDeposit != nil {
		initialDeposit.AccountID = created.ID
		if err := r.InsertTransactionInTx(ctx, tx, initialDeposit); err != nil {
			return nil, err
		}
	}

	if err := r.CommitTx(ctx, tx); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "Account created in DB", "account_id", created.ID, "number", created.Number)
	return &created, nil
}

func (r *AccountRepository) GetAccountByNumber(ctx context.Context, number string) (*account.OwnedAccount, error) {
	query := `
        SELECT ` + ownedAccountColumns + `
        FROM accounts a
        JOIN customers c ON c.id = a.customer_id
        WHERE a.number = $1`

	status := "success"
	startTime := time.Now()

	a, err := scanOwnedAccount(r.db.QueryRow(ctx, query, number))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetAccountByNumber", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get account", "number", number, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return a, nil
}

// LockAccountByNumber takes a row lock on the account so a concurrent deposit
// or withdrawal waits until this transaction resolves.
func (r *AccountRepository) LockAccountByNumber(ctx context.Context, tx pgx.Tx, number string) (*account.OwnedAccount, error) {
	query := `
        SELECT ` + ownedAccountColumns + `
        FROM accounts a
        JOIN customers c ON c.id = a.customer_id
        WHERE a.number = $1
        FOR UPDATE OF a`

	a, err := scanOwnedAccount(tx.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock account", "number", number, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return a, nil
}

func (r *AccountRepository) UpdateBalanceInTx(ctx context.Context, tx pgx.Tx, accountID int64, newBalance float64) error {
	query := `UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := tx.Exec(ctx, query, newBalance, accountID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update balance", "account_id", accountID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %d not found", apperrors.ErrNotFound, accountID)
	}
	return nil
}

func (r *AccountRepository) InsertTransactionInTx(ctx context.Context, tx pgx.Tx, txn *account.Transaction) error {
	query := `
        INSERT INTO account_transactions (account_id, type, amount, description, occurred_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`

	err := tx.QueryRow(ctx, query,
		txn.AccountID, txn.Type, txn.Amount, txn.Description, txn.Timestamp,
	).Scan(&txn.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert transaction", "account_id", txn.AccountID, "error", err)
		return fmt.Errorf("%w: failed to insert transaction: %w", apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *AccountRepository) ListTransactions(ctx context.Context, accountID int64, limit int) ([]account.Transaction, error) {
	query := `
        SELECT id, account_id, type, amount, description, occurred_at
        FROM account_transactions
        WHERE account_id = $1
        ORDER BY occurred_at DESC, id DESC
        LIMIT $2`

	rows, err := r.db.Query(ctx, query, accountID, limit)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query transactions", "account_id", accountID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	txns := make([]account.Transaction, 0)
	for rows.Next() {
		var t account.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount, &t.Description, &t.Timestamp); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan transaction row", "account_id", accountID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		txns = append(txns, t)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating transaction rows", "account_id", accountID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return txns, nil
}

func (r *AccountRepository) FindActiveAccountsInactiveSince(ctx context.Context, cutoff time.Time) ([]account.Account, error) {
	query := `
        SELECT a.id, a.number, a.customer_id, a.type, a.balance, a.secret_code, a.status, a.created_at, a.updated_at
        FROM accounts a
        WHERE a.status = 'Active'
          AND NOT EXISTS (
              SELECT 1 FROM account_transactions t
              WHERE t.account_id = a.id AND t.occurred_at > $1
          )
          AND a.created_at <= $1`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query inactive accounts", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	accounts := make([]account.Account, 0)
	for rows.Next() {
		var a account.Account
		err := rows.Scan(
			&a.ID, &a.Number, &a.CustomerID, &a.Type, &a.Balance,
			&a.SecretCode, &a.Status, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan account row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		accounts = append(accounts, a)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating account rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return accounts, nil
}

func (r *AccountRepository) SetAccountStatus(ctx context.Context, accountID int64, status account.AccountStatus) error {
	query := `UPDATE accounts SET status = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := r.db.Exec(ctx, query, status, accountID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to set account status", "account_id", accountID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %d not found", apperrors.ErrNotFound, accountID)
	}

	r.logger.InfoContext(ctx, "Account status updated", "account_id", accountID, "status", string(status))
	return nil
}
