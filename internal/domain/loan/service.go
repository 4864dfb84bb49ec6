package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"corebank/internal/domain/customer"
	"corebank/internal/domain/identity"
	"corebank/internal/event"
	"corebank/internal/infrastructure/monitoring"
	"corebank/internal/pkg/apperrors"
)

type ApplicationInput struct {
	Type         string
	Amount       float64
	TenureMonths int
	AnnualRate   float64
	Reason       *string

	SupportingDocument *customer.FileUpload
}

type ReviewInput struct {
	Approve         bool
	RejectionReason string
	Notes           string
}

type LoanService interface {
	Apply(ctx context.Context, actor identity.Principal, input ApplicationInput) (*Loan, error)

	Review(ctx context.Context, actor identity.Principal, loanCode string, input ReviewInput) (*Loan, error)

	ListMine(ctx context.Context, actor identity.Principal) ([]Loan, error)

	ListAll(ctx context.Context, actor identity.Principal) ([]Detail, error)

	PreviewEMI(ctx context.Context, principal, annualRate float64, tenureMonths int) (float64, error)
}

type loanServiceImpl struct {
	repo            Repository
	customerService customer.CustomerService
	store           customer.DocumentStore
	publisher       event.EventPublisher
	logger          *slog.Logger
}

func NewLoanService(r Repository, cs customer.CustomerService, store customer.DocumentStore, publisher event.EventPublisher, logger *slog.Logger) LoanService {
	return &loanServiceImpl{
		repo:            r,
		customerService: cs,
		store:           store,
		publisher:       publisher,
		logger:          logger.With("component", "LoanService"),
	}
}

func (s *loanServiceImpl) Apply(ctx context.Context, actor identity.Principal, input ApplicationInput) (*Loan, error) {
	if actor.Role != identity.RoleCustomer {
		return nil, fmt.Errorf("%w: only a Customer may apply for a loan", apperrors.ErrForbidden)
	}
	if input.Type == "" {
		return nil, apperrors.NewValidationError("loanType", "is required")
	}
	if input.Amount <= 0 || input.TenureMonths <= 0 {
		return nil, fmt.Errorf("%w: amount and tenure must be positive", apperrors.ErrInvalidArgument)
	}
	if input.AnnualRate == 0 {
		input.AnnualRate = DefaultAnnualRate
	}

	s.logger.Info("Processing loan application", "userID", actor.UserID, "amount", input.Amount)

	cust, err := s.customerService.GetOwnCustomer(ctx, actor)
	if err != nil {
		return nil, err
	}
	if cust.Status != customer.StatusActive {
		return nil, fmt.Errorf("%w: customer %s is not active", apperrors.ErrPreconditionFailed, cust.Code)
	}
	if cust.KYCStatus != customer.KYCVerified {
		return nil, fmt.Errorf("%w: customer %s KYC is not verified", apperrors.ErrPreconditionFailed, cust.Code)
	}

	pending, err := s.repo.FindPendingLoanByCustomer(ctx, cust.ID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.Error("Failed to check for pending loans", "error", err)
		return nil, fmt.Errorf("failed to check for pending loans: %w", err)
	}
	if pending != nil {
		return nil, fmt.Errorf("%w: you already have a pending loan application", apperrors.ErrConflict)
	}

	emi, err := CalculateEMI(input.Amount, input.AnnualRate, input.TenureMonths)
	if err != nil {
		return nil, err
	}

	code, err := s.repo.NextLoanCode(ctx)
	if err != nil {
		s.logger.Error("Failed to allocate loan code", "error", err)
		return nil, fmt.Errorf("failed to allocate loan code: %w", err)
	}

	loan := &Loan{
		Code:         code,
		CustomerID:   cust.ID,
		Type:         input.Type,
		Amount:       input.Amount,
		TenureMonths: input.TenureMonths,
		AnnualRate:   input.AnnualRate,
		EMI:          emi,
		Status:       StatusPending,
		Reason:       input.Reason,
	}

	if input.SupportingDocument != nil {
		path, err := s.store.Save(ctx, input.SupportingDocument.Filename, input.SupportingDocument.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to store supporting document: %w", err)
		}
		loan.SupportingDocumentPath = &path
	}

	created, err := s.repo.CreateLoan(ctx, loan)
	if err != nil {
		s.logger.Error("Failed to create loan", "error", err)
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}

	s.logger.Info("Loan application submitted", "loanCode", created.Code, "emi", created.EMI)
	return created, nil
}

func (s *loanServiceImpl) Review(ctx context.Context, actor identity.Principal, loanCode string, input ReviewInput) (*Loan, error) {
	if actor.Role != identity.RoleAdmin {
		return nil, fmt.Errorf("%w: only an Admin may review loans", apperrors.ErrForbidden)
	}

	decision := Decision{Approve: input.Approve, ReviewerID: actor.UserID}
	action := "approve"
	if input.Approve {
		if notes := strings.TrimSpace(input.Notes); notes != "" {
			decision.Notes = &notes
		}
	} else {
		action = "reject"
		reason := strings.TrimSpace(input.RejectionReason)
		if len(reason) < minRejectionReasonLength {
			return nil, fmt.Errorf("%w: rejection reason must be at least %d characters", apperrors.ErrInvalidArgument, minRejectionReasonLength)
		}
		decision.RejectionReason = &reason
	}

	s.logger.Info("Reviewing loan", "loanCode", loanCode, "action", action)

	// The conditional update makes the review one-shot: a second reviewer
	// matches zero rows and sees not found.
	updated, err := s.repo.ApplyDecision(ctx, loanCode, decision)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: pending loan %s not found", apperrors.ErrNotFound, loanCode)
		}
		s.logger.Error("Failed to apply loan decision", "loanCode", loanCode, "error", err)
		return nil, fmt.Errorf("failed to apply loan decision: %w", err)
	}

	monitoring.RecordLoanDecision(action)
	if err := s.publisher.PublishLoanDecided(ctx, event.LoanDecidedEvent{
		LoanCode: loanCode,
		Action:   action,
	}); err != nil {
		s.logger.Warn("Failed to publish loan decided event", "loanCode", loanCode, "error", err)
	}

	s.logger.Info("Loan reviewed", "loanCode", loanCode, "status", updated.Status)
	return updated, nil
}

func (s *loanServiceImpl) ListMine(ctx context.Context, actor identity.Principal) ([]Loan, error) {
	if actor.Role != identity.RoleCustomer {
		return nil, fmt.Errorf("%w: only a Customer may list their own loans", apperrors.ErrForbidden)
	}
	loans, err := s.repo.ListLoansByUser(ctx, actor.UserID)
	if err != nil {
		s.logger.Error("Failed to list loans", "userID", actor.UserID, "error", err)
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

func (s *loanServiceImpl) ListAll(ctx context.Context, actor identity.Principal) ([]Detail, error) {
	if actor.Role != identity.RoleAdmin {
		return nil, fmt.Errorf("%w: only an Admin may list all loans", apperrors.ErrForbidden)
	}
	loans, err := s.repo.ListAllLoans(ctx)
	if err != nil {
		s.logger.Error("Failed to list all loans", "error", err)
		return nil, fmt.Errorf("failed to list all loans: %w", err)
	}
	return loans, nil
}

func (s *loanServiceImpl) PreviewEMI(ctx context.Context, principal, annualRate float64, tenureMonths int) (float64, error) {
	if annualRate == 0 {
		annualRate = DefaultAnnualRate
	}
	return CalculateEMI(principal, annualRate, tenureMonths)
}
