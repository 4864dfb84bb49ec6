package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"corebank/internal/domain/loan"
	"corebank/internal/infrastructure/monitoring"
	"corebank/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

const loanColumns = `id, code, customer_id, type, amount, tenure_months, annual_rate, emi, status,
        applied_at, approved_at, approved_by, reason, rejection_reason, notes, supporting_document_path`

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID, &l.Code, &l.CustomerID, &l.Type, &l.Amount, &l.TenureMonths,
		&l.AnnualRate, &l.EMI, &l.Status, &l.AppliedAt, &l.ApprovedAt, &l.ApprovedBy,
		&l.Reason, &l.RejectionReason, &l.Notes, &l.SupportingDocumentPath,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LoanRepository) CreateLoan(ctx context.Context, newLoan *loan.Loan) (*loan.Loan, error) {
	query := `
        INSERT INTO loans (code, customer_id, type, amount, tenure_months, annual_rate, emi, status,
            applied_at, reason, supporting_document_path)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), $9, $10)
        RETURNING ` + loanColumns

	status := "success"
	startTime := time.Now()

	created, err := scanLoan(r.db.QueryRow(ctx, query,
		newLoan.Code, newLoan.CustomerID, newLoan.Type, newLoan.Amount,
		newLoan.TenureMonths, newLoan.AnnualRate, newLoan.EMI, newLoan.Status,
		newLoan.Reason, newLoan.SupportingDocumentPath,
	))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("CreateLoan", status, time.Since(startTime))

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			return nil, translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return nil, fmt.Errorf("%w: failed to insert loan: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID, "code", created.Code)
	return created, nil
}

func (r *LoanRepository) GetLoanByCode(ctx context.Context, code string) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE code = $1`

	status := "success"
	startTime := time.Now()

	l, err := scanLoan(r.db.QueryRow(ctx, query, code))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetLoanByCode", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "code", code)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by code", "code", code, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) FindPendingLoanByCustomer(ctx context.Context, customerID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE customer_id = $1 AND status = 'Pending'`

	l, err := scanLoan(r.db.QueryRow(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to find pending loan", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) ListLoansByUser(ctx context.Context, userID int64) ([]loan.Loan, error) {
	query := `
        SELECT l.id, l.code, l.customer_id, l.type, l.amount, l.tenure_months, l.annual_rate, l.emi, l.status,
            l.applied_at, l.approved_at, l.approved_by, l.reason, l.rejection_reason, l.notes, l.supporting_document_path
        FROM loans l
        JOIN customers c ON c.id = l.customer_id
        WHERE c.user_id = $1
        ORDER BY l.applied_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loans", "user_id", userID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loans := make([]loan.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan row", "user_id", userID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		loans = append(loans, *l)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating loan rows", "user_id", userID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return loans, nil
}

func (r *LoanRepository) ListAllLoans(ctx context.Context) ([]loan.Detail, error) {
	query := `
        SELECT l.id, l.code, l.customer_id, l.type, l.amount, l.tenure_months, l.annual_rate, l.emi, l.status,
            l.applied_at, l.approved_at, l.approved_by, l.reason, l.rejection_reason, l.notes, l.supporting_document_path,
            c.code, c.first_name || ' ' || c.last_name
        FROM loans l
        JOIN customers c ON c.id = l.customer_id
        ORDER BY l.applied_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query all loans", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	details := make([]loan.Detail, 0)
	for rows.Next() {
		var d loan.Detail
		err := rows.Scan(
			&d.ID, &d.Code, &d.CustomerID, &d.Type, &d.Amount, &d.TenureMonths,
			&d.AnnualRate, &d.EMI, &d.Status, &d.AppliedAt, &d.ApprovedAt, &d.ApprovedBy,
			&d.Reason, &d.RejectionReason, &d.Notes, &d.SupportingDocumentPath,
			&d.CustomerCode, &d.CustomerName,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan detail row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		details = append(details, d)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating loan detail rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return details, nil
}

// ApplyDecision flips a loan out of the pending state. The status guard in
// the WHERE clause makes the update one-shot: once a reviewer has decided,
// a second decision matches zero rows and surfaces ErrNotFound.
func (r *LoanRepository) ApplyDecision(ctx context.Context, code string, decision loan.Decision) (*loan.Loan, error) {
	var query string
	var args []any
	if decision.Approve {
		query = `
        UPDATE loans
        SET status = 'Approved', approved_at = NOW(), approved_by = $1, notes = $2, rejection_reason = NULL
        WHERE code = $3 AND status = 'Pending'
        RETURNING ` + loanColumns
		args = []any{decision.ReviewerID, decision.Notes, code}
	} else {
		query = `
        UPDATE loans
        SET status = 'Rejected', approved_at = NULL, approved_by = $1, rejection_reason = $2, notes = NULL
        WHERE code = $3 AND status = 'Pending'
        RETURNING ` + loanColumns
		args = []any{decision.ReviewerID, decision.RejectionReason, code}
	}

	status := "success"
	startTime := time.Now()

	updated, err := scanLoan(r.db.QueryRow(ctx, query, args...))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("ApplyDecision", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "No pending loan to decide", "code", code)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to apply loan decision", "code", code, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return updated, nil
}

func (r *LoanRepository) NextLoanCode(ctx context.Context) (string, error) {
	return nextCode(ctx, r.db, "LL")
}
