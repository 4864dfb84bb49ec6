package postgres

import (
	"regexp"
	"testing"
	"time"

	"corebank/internal/domain/account"
	"corebank/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
)

var accountRowColumns = []string{
	"id", "number", "customer_id", "type", "balance", "secret_code", "status", "created_at", "updated_at",
}

var ownedAccountRowColumns = []string{
	"id", "number", "customer_id", "type", "balance", "secret_code", "status", "created_at", "updated_at", "user_id",
}

func testAccount() *account.Account {
	now := time.Now()
	return &account.Account{
		ID:         3,
		Number:     "123456789012",
		CustomerID: 5,
		Type:       account.TypeSavings,
		Balance:    1000,
		SecretCode: "4321",
		Status:     account.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func ownedAccountRow(a *account.Account, ownerUserID int64) *pgxmock.Rows {
	return pgxmock.NewRows(ownedAccountRowColumns).AddRow(
		a.ID, a.Number, a.CustomerID, a.Type, a.Balance, a.SecretCode,
		a.Status, a.CreatedAt, a.UpdatedAt, ownerUserID,
	)
}

func TestCreateAccountWithInitialDeposit(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	defer mockPool.Close()
	repo := NewAccountRepository(mockPool, testLogger)

	a := testAccount()
	deposit := &account.Transaction{
		Type:        account.TransactionDeposit,
		Amount:      1000,
		Description: "Initial deposit",
		Timestamp:   time.Now(),
	}

	mockPool.ExpectBegin()
	mockPool.ExpectQuery("INSERT INTO accounts").
		WithArgs(a.Number, a.CustomerID, a.Type, a.Balance, a.SecretCode, a.Status).
		WillReturnRows(pgxmock.NewRows(accountRowColumns).AddRow(
			a.ID, a.Number, a.CustomerID, a.Type, a.Balance, a.SecretCode,
			a.Status, a.CreatedAt, a.UpdatedAt,
		))
	mockPool.ExpectQuery("INSERT INTO account_transactions").
		WithArgs(a.ID, deposit.Type, deposit.Amount, deposit.Description, deposit.Timestamp).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mockPool.ExpectCommit()
	mockPool.ExpectRollback()

	created, err := repo.CreateAccount(ctx, a, deposit)
	assert.NoError(t, err)
	assert.Equal(t, a.Number, created.Number)
	assert.Equal(t, a.ID, deposit.AccountID)
	assert.Equal(t, int64(1), deposit.ID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestCreateAccountNumberCollision(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	defer mockPool.Close()
	repo := NewAccountRepository(mockPool, testLogger)

	a := testAccount()
	mockPool.ExpectBegin()
	mockPool.ExpectQuery("INSERT INTO accounts").
		WithArgs(a.Number, a.CustomerID, a.Type, a.Balance, a.SecretCode, a.Status).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_number_key"})
	mockPool.ExpectRollback()

	_, err := repo.CreateAccount(ctx, a, nil)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestBalanceUpdateFlow(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	defer mockPool.Close()
	repo := NewAccountRepository(mockPool, testLogger)

	a := testAccount()
	lockQuery := `
        SELECT ` + ownedAccountColumns + `
        FROM accounts a
        JOIN customers c ON c.id = a.customer_id
        WHERE a.number = $1
        FOR UPDATE OF a`

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(lockQuery)).
		WithArgs(a.Number).
		WillReturnRows(ownedAccountRow(a, 10))
	mockPool.ExpectExec("UPDATE accounts SET balance").
		WithArgs(1500.0, a.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectCommit()

	tx, err := repo.BeginTx(ctx)
	assert.NoError(t, err)

	locked, err := repo.LockAccountByNumber(ctx, tx, a.Number)
	assert.NoError(t, err)
	assert.Equal(t, int64(10), locked.OwnerUserID)
	assert.Equal(t, 1000.0, locked.Balance)

	assert.NoError(t, repo.UpdateBalanceInTx(ctx, tx, a.ID, 1500.0))
	assert.NoError(t, repo.CommitTx(ctx, tx))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestLockAccountByNumberNotFound(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	defer mockPool.Close()
	repo := NewAccountRepository(mockPool, testLogger)

	mockPool.ExpectBegin()
	mockPool.ExpectQuery("FOR UPDATE OF a").
		WithArgs("000000000000").
		WillReturnError(pgx.ErrNoRows)

	tx, err := repo.BeginTx(ctx)
	assert.NoError(t, err)

	_, err = repo.LockAccountByNumber(ctx, tx, "000000000000")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListTransactionsOrdering(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	defer mockPool.Close()
	repo := NewAccountRepository(mockPool, testLogger)

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "account_id", "type", "amount", "description", "occurred_at"}).
		AddRow(int64(2), int64(3), account.TransactionWithdrawal, 200.0, "ATM", now).
		AddRow(int64(1), int64(3), account.TransactionDeposit, 1000.0, "Initial deposit", now.Add(-time.Hour))

	mockPool.ExpectQuery("SELECT id, account_id, type, amount, description, occurred_at").
		WithArgs(int64(3), 20).
		WillReturnRows(rows)

	txns, err := repo.ListTransactions(ctx, 3, 20)
	assert.NoError(t, err)
	assert.Len(t, txns, 2)
	assert.Equal(t, account.TransactionWithdrawal, txns[0].Type)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestSetAccountStatusNotFound(t *testing.T) {
	ctx, mockPool := newMockPool(t)
	defer mockPool.Close()
	repo := NewAccountRepository(mockPool, testLogger)

	mockPool.ExpectExec("UPDATE accounts SET status").
		WithArgs(account.StatusDormant, int64(404)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetAccountStatus(ctx, 404, account.StatusDormant)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
