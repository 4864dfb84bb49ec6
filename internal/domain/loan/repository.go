package loan

import "context"

// Decision carries an approve/reject outcome applied to a pending loan.
type Decision struct {
	Approve         bool
	ReviewerID      int64
	RejectionReason *string
	Notes           *string
}

type Repository interface {
	CreateLoan(ctx context.Context, loan *Loan) (*Loan, error)

	GetLoanByCode(ctx context.Context, code string) (*Loan, error)

	FindPendingLoanByCustomer(ctx context.Context, customerID int64) (*Loan, error)

	ListLoansByUser(ctx context.Context, userID int64) ([]Loan, error)

	ListAllLoans(ctx context.Context) ([]Detail, error)

	// ApplyDecision updates the loan only while it is still pending, and
	// reports ErrNotFound once another reviewer got there first.
	ApplyDecision(ctx context.Context, code string, decision Decision) (*Loan, error)

	NextLoanCode(ctx context.Context) (string, error)
}
