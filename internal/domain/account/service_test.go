package account

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"corebank/internal/domain/customer"
	"corebank/internal/domain/identity"
	"corebank/internal/event"
	"corebank/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

var adminActor = identity.Principal{UserID: 2, Code: "ADM0001", Role: identity.RoleAdmin}
var ownerActor = identity.Principal{UserID: 10, Code: "CST0001", Role: identity.RoleCustomer}

type MockCustomerService struct {
	mock.Mock
}

func (_m *MockCustomerService) CreateCustomer(ctx context.Context, actor identity.Principal, input customer.NewCustomerInput) (*customer.Customer, error) {
	ret := _m.Called(ctx, actor, input)
	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) GetOwnCustomer(ctx context.Context, actor identity.Principal) (*customer.Customer, error) {
	ret := _m.Called(ctx, actor)
	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) GetCustomerByCode(ctx context.Context, actor identity.Principal, code string) (*customer.Customer, error) {
	ret := _m.Called(ctx, actor, code)
	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) ListCustomers(ctx context.Context, actor identity.Principal) ([]customer.Customer, error) {
	ret := _m.Called(ctx, actor)
	var r0 []customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) UpdateIdentityDocuments(ctx context.Context, actor identity.Principal, input customer.IdentityDocumentsInput) (*customer.Customer, error) {
	ret := _m.Called(ctx, actor, input)
	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) UpdateKYCStatus(ctx context.Context, actor identity.Principal, code string, status customer.KYCStatus) (*customer.Customer, error) {
	ret := _m.Called(ctx, actor, code, status)
	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) OpenDocument(ctx context.Context, actor identity.Principal, code string, docType customer.DocumentType) (io.ReadCloser, string, error) {
	ret := _m.Called(ctx, actor, code, docType)
	var r0 io.ReadCloser
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(io.ReadCloser)
	}
	return r0, ret.String(1), ret.Error(2)
}

// fakeRepository is an in-memory ledger used to exercise full flows without
// a database. It ignores the pgx.Tx handles.
type fakeRepository struct {
	nextID       int64
	accounts     map[string]*OwnedAccount
	transactions map[int64][]Transaction
	failCreates  int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		accounts:     make(map[string]*OwnedAccount),
		transactions: make(map[int64][]Transaction),
	}
}

func (f *fakeRepository) CreateAccount(ctx context.Context, acc *Account, initialDeposit *Transaction) (*Account, error) {
	if f.failCreates > 0 {
		f.failCreates--
		return nil, apperrors.ErrAlreadyExists
	}
	if _, exists := f.accounts[acc.Number]; exists {
		return nil, apperrors.ErrAlreadyExists
	}
	f.nextID++
	stored := *acc
	stored.ID = f.nextID
	stored.CreatedAt = time.Now()
	f.accounts[stored.Number] = &OwnedAccount{Account: stored, OwnerUserID: ownerActor.UserID}

	dep := *initialDeposit
	dep.AccountID = stored.ID
	dep.Timestamp = time.Now()
	f.transactions[stored.ID] = append(f.transactions[stored.ID], dep)
	return &stored, nil
}

func (f *fakeRepository) GetAccountByNumber(ctx context.Context, number string) (*OwnedAccount, error) {
	owned, ok := f.accounts[number]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *owned
	return &cp, nil
}

func (f *fakeRepository) LockAccountByNumber(ctx context.Context, tx pgx.Tx, number string) (*OwnedAccount, error) {
	return f.GetAccountByNumber(ctx, number)
}

func (f *fakeRepository) UpdateBalanceInTx(ctx context.Context, tx pgx.Tx, accountID int64, newBalance float64) error {
	for _, owned := range f.accounts {
		if owned.ID == accountID {
			owned.Balance = newBalance
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (f *fakeRepository) InsertTransactionInTx(ctx context.Context, tx pgx.Tx, txn *Transaction) error {
	f.transactions[txn.AccountID] = append(f.transactions[txn.AccountID], *txn)
	return nil
}

func (f *fakeRepository) ListTransactions(ctx context.Context, accountID int64, limit int) ([]Transaction, error) {
	txns := f.transactions[accountID]
	// newest first
	out := make([]Transaction, 0, limit)
	for i := len(txns) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, txns[i])
	}
	return out, nil
}

func (f *fakeRepository) FindActiveAccountsInactiveSince(ctx context.Context, cutoff time.Time) ([]Account, error) {
	return nil, nil
}

func (f *fakeRepository) SetAccountStatus(ctx context.Context, accountID int64, status AccountStatus) error {
	for _, owned := range f.accounts {
		if owned.ID == accountID {
			owned.Status = status
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (f *fakeRepository) BeginTx(ctx context.Context) (pgx.Tx, error)     { return nil, nil }
func (f *fakeRepository) CommitTx(ctx context.Context, tx pgx.Tx) error   { return nil }
func (f *fakeRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error { return nil }

func verifiedCustomer() *customer.Customer {
	return &customer.Customer{
		ID:        5,
		Code:      "CUST0001",
		Status:    customer.StatusActive,
		KYCStatus: customer.KYCVerified,
		UserID:    ownerActor.UserID,
	}
}

func newServiceWithFake(t *testing.T, repo Repository, cs customer.CustomerService) AccountService {
	t.Helper()
	return NewAccountService(repo, cs, event.NewNoopPublisher(logger), logger)
}

func TestOpenAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a savings account at the minimum deposit", func(t *testing.T) {
		repo := newFakeRepository()
		cs := new(MockCustomerService)
		svc := newServiceWithFake(t, repo, cs)

		cs.On("GetCustomerByCode", ctx, adminActor, "CUST0001").Return(verifiedCustomer(), nil)

		acc, err := svc.OpenAccount(ctx, adminActor, "CUST0001", TypeSavings, 1000, "4321")
		require.NoError(t, err)
		assert.Len(t, acc.Number, 12)
		assert.Equal(t, 1000.0, acc.Balance)
		assert.Equal(t, StatusActive, acc.Status)

		txns, _ := repo.ListTransactions(ctx, acc.ID, 10)
		require.Len(t, txns, 1)
		assert.Equal(t, TransactionDeposit, txns[0].Type)
		assert.Equal(t, "Initial deposit", txns[0].Description)
	})

	t.Run("retries account number collisions", func(t *testing.T) {
		repo := newFakeRepository()
		repo.failCreates = 2
		cs := new(MockCustomerService)
		svc := newServiceWithFake(t, repo, cs)

		cs.On("GetCustomerByCode", ctx, adminActor, "CUST0001").Return(verifiedCustomer(), nil)

		acc, err := svc.OpenAccount(ctx, adminActor, "CUST0001", TypeSavings, 1500, "4321")
		require.NoError(t, err)
		assert.NotEmpty(t, acc.Number)
	})

	t.Run("gives up after too many collisions", func(t *testing.T) {
		repo := newFakeRepository()
		repo.failCreates = 10
		cs := new(MockCustomerService)
		svc := newServiceWithFake(t, repo, cs)

		cs.On("GetCustomerByCode", ctx, adminActor, "CUST0001").Return(verifiedCustomer(), nil)

		_, err := svc.OpenAccount(ctx, adminActor, "CUST0001", TypeSavings, 1500, "4321")
		assert.ErrorIs(t, err, apperrors.ErrInternalServer)
	})

	t.Run("enforces minimum deposit per type", func(t *testing.T) {
		repo := newFakeRepository()
		cs := new(MockCustomerService)
		svc := newServiceWithFake(t, repo, cs)

		cs.On("GetCustomerByCode", ctx, adminActor, "CUST0001").Return(verifiedCustomer(), nil)

		_, err := svc.OpenAccount(ctx, adminActor, "CUST0001", TypeSavings, 999, "4321")
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

		_, err = svc.OpenAccount(ctx, adminActor, "CUST0001", TypeCurrent, 4999, "4321")
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	})

	t.Run("requires verified KYC and active status", func(t *testing.T) {
		repo := newFakeRepository()
		cs := new(MockCustomerService)
		svc := newServiceWithFake(t, repo, cs)

		unverified := verifiedCustomer()
		unverified.KYCStatus = customer.KYCPending
		cs.On("GetCustomerByCode", ctx, adminActor, "CUST0001").Return(unverified, nil).Once()

		_, err := svc.OpenAccount(ctx, adminActor, "CUST0001", TypeSavings, 1000, "4321")
		assert.ErrorIs(t, err, apperrors.ErrPreconditionFailed)

		suspended := verifiedCustomer()
		suspended.Status = customer.StatusSuspended
		cs.On("GetCustomerByCode", ctx, adminActor, "CUST0001").Return(suspended, nil).Once()

		_, err = svc.OpenAccount(ctx, adminActor, "CUST0001", TypeSavings, 1000, "4321")
		assert.ErrorIs(t, err, apperrors.ErrPreconditionFailed)
	})

	t.Run("forbids non-admin roles", func(t *testing.T) {
		svc := newServiceWithFake(t, newFakeRepository(), new(MockCustomerService))

		_, err := svc.OpenAccount(ctx, ownerActor, "CUST0001", TypeSavings, 1000, "4321")
		assert.ErrorIs(t, err, apperrors.ErrForbidden)

		auditor := identity.Principal{UserID: 4, Role: identity.RoleAuditor}
		_, err = svc.OpenAccount(ctx, auditor, "CUST0001", TypeSavings, 1000, "4321")
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func openTestAccount(t *testing.T, svc AccountService, cs *MockCustomerService, ctx context.Context) *Account {
	t.Helper()
	cs.On("GetCustomerByCode", ctx, adminActor, "CUST0001").Return(verifiedCustomer(), nil)
	acc, err := svc.OpenAccount(ctx, adminActor, "CUST0001", TypeSavings, 1000, "4321")
	require.NoError(t, err)
	return acc
}

func TestDepositAndWithdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("ledger stays consistent across a deposit and a withdrawal", func(t *testing.T) {
		repo := newFakeRepository()
		cs := new(MockCustomerService)
		svc := newServiceWithFake(t, repo, cs)
		acc := openTestAccount(t, svc, cs, ctx)

		afterDeposit, err := svc.Deposit(ctx, ownerActor, acc.Number, 500, "")
		require.NoError(t, err)
		assert.Equal(t, 1500.0, afterDeposit.Balance)

		afterWithdraw, err := svc.Withdraw(ctx, ownerActor, acc.Number, 300, "4321")
		require.NoError(t, err)
		assert.Equal(t, 1200.0, afterWithdraw.Balance)

		balanceAcc, txns, err := svc.ListTransactions(ctx, ownerActor, acc.Number, 0)
		require.NoError(t, err)
		require.Len(t, txns, 3)

		// the balance equals the signed sum of the ledger
		var sum float64
		for _, txn := range txns {
			if txn.Type == TransactionDeposit {
				sum += txn.Amount
			} else {
				sum -= txn.Amount
			}
		}
		assert.Equal(t, sum, balanceAcc.Balance)
	})

	t.Run("deposit does not require ownership", func(t *testing.T) {
		repo := newFakeRepository()
		cs := new(MockCustomerService)
		svc := newServiceWithFake(t, repo, cs)
		acc := openTestAccount(t, svc, cs, ctx)

		stranger := identity.Principal{UserID: 77, Role: identity.RoleCustomer}
		after, err := svc.Deposit(ctx, stranger, acc.Number, 250, "gift")
		require.NoError(t, err)
		assert.Equal(t, 1250.0, after.Balance)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		repo := newFakeRepository()
		cs := new(MockCustomerService)
		svc := newServiceWithFake(t, repo, cs)
		acc := openTestAccount(t, svc, cs, ctx)

		_, err := svc.Deposit(ctx, ownerActor, acc.Number, 0, "")
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

		_, err = svc.Withdraw(ctx, ownerActor, acc.Number, -5, "4321")
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	})

	t.Run("withdrawal never drives the balance negative", func(t *testing.T) {
		repo := newFakeRepository()
		cs := new(MockCustomerService)
		svc := newServiceWithFake(t, repo, cs)
		acc := openTestAccount(t, svc, cs, ctx)

		_, err := svc.Withdraw(ctx, ownerActor, acc.Number, 1000.01, "4321")
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

		balanceAcc, err := svc.GetBalance(ctx, ownerActor, acc.Number)
		require.NoError(t, err)
		assert.Equal(t, 1000.0, balanceAcc.Balance)
	})

	t.Run("withdrawal requires the secret code", func(t *testing.T) {
		repo := newFakeRepository()
		cs := new(MockCustomerService)
		svc := newServiceWithFake(t, repo, cs)
		acc := openTestAccount(t, svc, cs, ctx)

		_, err := svc.Withdraw(ctx, ownerActor, acc.Number, 100, "9999")
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("withdrawal requires ownership", func(t *testing.T) {
		repo := newFakeRepository()
		cs := new(MockCustomerService)
		svc := newServiceWithFake(t, repo, cs)
		acc := openTestAccount(t, svc, cs, ctx)

		stranger := identity.Principal{UserID: 77, Role: identity.RoleCustomer}
		_, err := svc.Withdraw(ctx, stranger, acc.Number, 100, "4321")
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("dormant accounts reject deposits and withdrawals", func(t *testing.T) {
		repo := newFakeRepository()
		cs := new(MockCustomerService)
		svc := newServiceWithFake(t, repo, cs)
		acc := openTestAccount(t, svc, cs, ctx)

		require.NoError(t, repo.SetAccountStatus(ctx, acc.ID, StatusDormant))

		_, err := svc.Deposit(ctx, ownerActor, acc.Number, 100, "")
		assert.ErrorIs(t, err, apperrors.ErrPreconditionFailed)

		_, err = svc.Withdraw(ctx, ownerActor, acc.Number, 100, "4321")
		assert.ErrorIs(t, err, apperrors.ErrPreconditionFailed)
	})

	t.Run("unknown account returns not found", func(t *testing.T) {
		repo := newFakeRepository()
		cs := new(MockCustomerService)
		svc := newServiceWithFake(t, repo, cs)

		_, err := svc.Deposit(ctx, ownerActor, "000000000000", 100, "")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestBalanceAndHistoryOwnership(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	cs := new(MockCustomerService)
	svc := newServiceWithFake(t, repo, cs)
	acc := openTestAccount(t, svc, cs, ctx)

	stranger := identity.Principal{UserID: 77, Role: identity.RoleCustomer}

	_, err := svc.GetBalance(ctx, stranger, acc.Number)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, _, err = svc.ListTransactions(ctx, stranger, acc.Number, 10)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestListTransactionsDefaultLimit(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	cs := new(MockCustomerService)
	svc := newServiceWithFake(t, repo, cs)
	acc := openTestAccount(t, svc, cs, ctx)

	for i := 0; i < 25; i++ {
		_, err := svc.Deposit(ctx, ownerActor, acc.Number, 10, fmt.Sprintf("deposit %d", i))
		require.NoError(t, err)
	}

	_, txns, err := svc.ListTransactions(ctx, ownerActor, acc.Number, 0)
	require.NoError(t, err)
	assert.Len(t, txns, 20)
	// newest first
	assert.Equal(t, "deposit 24", txns[0].Description)
}
