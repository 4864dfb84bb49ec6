package account

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	// CreateAccount inserts the account and its initial deposit transaction
	// in a single database transaction.
	CreateAccount(ctx context.Context, acc *Account, initialDeposit *Transaction) (*Account, error)

	GetAccountByNumber(ctx context.Context, number string) (*OwnedAccount, error)

	LockAccountByNumber(ctx context.Context, tx pgx.Tx, number string) (*OwnedAccount, error)

	UpdateBalanceInTx(ctx context.Context, tx pgx.Tx, accountID int64, newBalance float64) error

	InsertTransactionInTx(ctx context.Context, tx pgx.Tx, txn *Transaction) error

	ListTransactions(ctx context.Context, accountID int64, limit int) ([]Transaction, error)

	FindActiveAccountsInactiveSince(ctx context.Context, cutoff time.Time) ([]Account, error)

	SetAccountStatus(ctx context.Context, accountID int64, status AccountStatus) error

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}
