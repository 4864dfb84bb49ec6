package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"corebank/internal/domain/customer"
	"corebank/internal/domain/identity"
	"corebank/internal/event"
	"corebank/internal/infrastructure/monitoring"
	"corebank/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

const maxAccountNumberAttempts = 5

const defaultTransactionLimit = 20

type AccountService interface {
	OpenAccount(ctx context.Context, actor identity.Principal, customerCode string, accType AccountType, initialDeposit float64, secretCode string) (*Account, error)

	Deposit(ctx context.Context, actor identity.Principal, accountNumber string, amount float64, description string) (*Account, error)

	Withdraw(ctx context.Context, actor identity.Principal, accountNumber string, amount float64, secretCode string) (*Account, error)

	GetBalance(ctx context.Context, actor identity.Principal, accountNumber string) (*Account, error)

	ListTransactions(ctx context.Context, actor identity.Principal, accountNumber string, limit int) (*Account, []Transaction, error)
}

type accountServiceImpl struct {
	repo            Repository
	customerService customer.CustomerService
	publisher       event.EventPublisher
	logger          *slog.Logger
}

func NewAccountService(r Repository, cs customer.CustomerService, publisher event.EventPublisher, logger *slog.Logger) AccountService {
	return &accountServiceImpl{
		repo:            r,
		customerService: cs,
		publisher:       publisher,
		logger:          logger.With("component", "AccountService"),
	}
}

func (s *accountServiceImpl) OpenAccount(ctx context.Context, actor identity.Principal, customerCode string, accType AccountType, initialDeposit float64, secretCode string) (*Account, error) {
	if actor.Role != identity.RoleAdmin {
		return nil, fmt.Errorf("%w: only an Admin may open accounts", apperrors.ErrForbidden)
	}
	if customerCode == "" {
		return nil, apperrors.NewValidationError("customerCode", "is required")
	}
	if _, err := ParseAccountType(string(accType)); err != nil {
		return nil, err
	}
	if len(secretCode) < 4 {
		return nil, apperrors.NewValidationError("secretCode", "must be at least 4 characters")
	}

	s.logger.Info("Opening account", "customerCode", customerCode, "type", accType)

	cust, err := s.customerService.GetCustomerByCode(ctx, actor, customerCode)
	if err != nil {
		return nil, err
	}
	if cust.Status != customer.StatusActive {
		return nil, fmt.Errorf("%w: customer %s is not active", apperrors.ErrPreconditionFailed, customerCode)
	}
	if cust.KYCStatus != customer.KYCVerified {
		return nil, fmt.Errorf("%w: customer %s KYC is not verified", apperrors.ErrPreconditionFailed, customerCode)
	}

	if min := accType.MinimumOpeningDeposit(); initialDeposit < min {
		return nil, fmt.Errorf("%w: minimum initial deposit for %s is %.2f", apperrors.ErrInvalidArgument, accType, min)
	}

	acc := &Account{
		CustomerID: cust.ID,
		Type:       accType,
		Balance:    initialDeposit,
		SecretCode: secretCode,
		Status:     StatusActive,
	}
	deposit := &Transaction{
		Type:        TransactionDeposit,
		Amount:      initialDeposit,
		Description: "Initial deposit",
	}

	var created *Account
	for attempt := 1; attempt <= maxAccountNumberAttempts; attempt++ {
		acc.Number = NewAccountNumber()
		created, err = s.repo.CreateAccount(ctx, acc, deposit)
		if err == nil {
			break
		}
		if errors.Is(err, apperrors.ErrAlreadyExists) || errors.Is(err, apperrors.ErrConflict) {
			s.logger.Warn("Account number collision, retrying", "attempt", attempt)
			continue
		}
		s.logger.Error("Failed to create account", "error", err)
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: could not allocate a unique account number", apperrors.ErrInternalServer)
	}

	monitoring.RecordTransaction(string(TransactionDeposit))
	if err := s.publisher.PublishAccountTransaction(ctx, event.AccountTransactionEvent{
		AccountNumber: created.Number,
		Type:          string(TransactionDeposit),
		Amount:        initialDeposit,
	}); err != nil {
		s.logger.Warn("Failed to publish transaction event", "accountNumber", created.Number, "error", err)
	}

	s.logger.Info("Account opened", "accountNumber", created.Number, "customerCode", customerCode)
	return created, nil
}

// Deposit credits any account the caller can name. Ownership is deliberately
// not required so third parties can transfer money in; the caller still has
// to be authenticated.
func (s *accountServiceImpl) Deposit(ctx context.Context, actor identity.Principal, accountNumber string, amount float64, description string) (*Account, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: deposit amount must be greater than zero", apperrors.ErrInvalidArgument)
	}
	if description == "" {
		description = "Deposit"
	}

	acc, err := s.applyBalanceChange(ctx, accountNumber, func(owned *OwnedAccount) (float64, error) {
		return owned.Balance + amount, nil
	}, &Transaction{Type: TransactionDeposit, Amount: amount, Description: description})
	if err != nil {
		return nil, err
	}

	monitoring.RecordTransaction(string(TransactionDeposit))
	if err := s.publisher.PublishAccountTransaction(ctx, event.AccountTransactionEvent{
		AccountNumber: accountNumber,
		Type:          string(TransactionDeposit),
		Amount:        amount,
	}); err != nil {
		s.logger.Warn("Failed to publish transaction event", "accountNumber", accountNumber, "error", err)
	}

	s.logger.Info("Deposit recorded", "accountNumber", accountNumber, "amount", amount)
	return acc, nil
}

func (s *accountServiceImpl) Withdraw(ctx context.Context, actor identity.Principal, accountNumber string, amount float64, secretCode string) (*Account, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: withdrawal amount must be greater than zero", apperrors.ErrInvalidArgument)
	}

	acc, err := s.applyBalanceChange(ctx, accountNumber, func(owned *OwnedAccount) (float64, error) {
		if owned.SecretCode != secretCode {
			return 0, fmt.Errorf("%w: invalid secret code", apperrors.ErrForbidden)
		}
		if owned.OwnerUserID != actor.UserID {
			return 0, fmt.Errorf("%w: not authorized to withdraw from this account", apperrors.ErrForbidden)
		}
		if amount > owned.Balance {
			return 0, fmt.Errorf("%w: insufficient balance", apperrors.ErrInvalidArgument)
		}
		return owned.Balance - amount, nil
	}, &Transaction{Type: TransactionWithdrawal, Amount: amount, Description: "Withdrawal"})
	if err != nil {
		return nil, err
	}

	monitoring.RecordTransaction(string(TransactionWithdrawal))
	if err := s.publisher.PublishAccountTransaction(ctx, event.AccountTransactionEvent{
		AccountNumber: accountNumber,
		Type:          string(TransactionWithdrawal),
		Amount:        amount,
	}); err != nil {
		s.logger.Warn("Failed to publish transaction event", "accountNumber", accountNumber, "error", err)
	}

	s.logger.Info("Withdrawal recorded", "accountNumber", accountNumber, "amount", amount)
	return acc, nil
}

// applyBalanceChange locks the account row, lets decide compute the new
// balance, then writes the balance and the ledger entry in one transaction.
func (s *accountServiceImpl) applyBalanceChange(ctx context.Context, accountNumber string, decide func(*OwnedAccount) (float64, error), txn *Transaction) (acc *Account, err error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	owned, err := s.repo.LockAccountByNumber(ctx, tx, accountNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: account %s not found", apperrors.ErrNotFound, accountNumber)
		}
		s.logger.Error("Failed to lock account", "accountNumber", accountNumber, "error", err)
		return nil, fmt.Errorf("%w: could not lock account: %v", apperrors.ErrInternalServer, err)
	}
	if owned.Status != StatusActive {
		return nil, fmt.Errorf("%w: account %s is %s", apperrors.ErrPreconditionFailed, accountNumber, owned.Status)
	}

	newBalance, err := decide(owned)
	if err != nil {
		return nil, err
	}

	if err = s.repo.UpdateBalanceInTx(ctx, tx, owned.ID, newBalance); err != nil {
		s.logger.Error("Failed to update balance", "accountNumber", accountNumber, "error", err)
		return nil, fmt.Errorf("%w: could not update balance: %v", apperrors.ErrInternalServer, err)
	}

	txn.AccountID = owned.ID
	txn.Timestamp = time.Now()
	if err = s.repo.InsertTransactionInTx(ctx, tx, txn); err != nil {
		s.logger.Error("Failed to insert ledger entry", "accountNumber", accountNumber, "error", err)
		return nil, fmt.Errorf("%w: could not record transaction: %v", apperrors.ErrInternalServer, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		s.logger.Error("Failed to commit transaction", "accountNumber", accountNumber, "error", err)
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	result := owned.Account
	result.Balance = newBalance
	return &result, nil
}

func (s *accountServiceImpl) GetBalance(ctx context.Context, actor identity.Principal, accountNumber string) (*Account, error) {
	owned, err := s.getOwnedAccount(ctx, actor, accountNumber)
	if err != nil {
		return nil, err
	}
	return &owned.Account, nil
}

func (s *accountServiceImpl) ListTransactions(ctx context.Context, actor identity.Principal, accountNumber string, limit int) (*Account, []Transaction, error) {
	owned, err := s.getOwnedAccount(ctx, actor, accountNumber)
	if err != nil {
		return nil, nil, err
	}

	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	txns, err := s.repo.ListTransactions(ctx, owned.ID, limit)
	if err != nil {
		s.logger.Error("Failed to list transactions", "accountNumber", accountNumber, "error", err)
		return nil, nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return &owned.Account, txns, nil
}

func (s *accountServiceImpl) getOwnedAccount(ctx context.Context, actor identity.Principal, accountNumber string) (*OwnedAccount, error) {
	owned, err := s.repo.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: account %s not found", apperrors.ErrNotFound, accountNumber)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if owned.OwnerUserID != actor.UserID {
		return nil, fmt.Errorf("%w: not authorized to view this account", apperrors.ErrForbidden)
	}
	return owned, nil
}
