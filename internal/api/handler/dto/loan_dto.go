package dto

import (
	"fmt"
	"strings"
	"time"

	"corebank/internal/domain/loan"

	"github.com/shopspring/decimal"
)

type ApplyLoanRequest struct {
	Type         string  `json:"loanType"`
	Amount       float64 `json:"amount"`
	TenureMonths int     `json:"tenureMonths"`
	AnnualRate   float64 `json:"annualRate"`
	Reason       *string `json:"reason,omitempty"`
}

func (r *ApplyLoanRequest) Validate() error {
	if strings.TrimSpace(r.Type) == "" {
		return fmt.Errorf("loanType cannot be empty")
	}
	if r.Amount <= 0 {
		return fmt.Errorf("amount must be greater than zero")
	}
	if r.TenureMonths <= 0 {
		return fmt.Errorf("tenureMonths must be positive")
	}
	if r.AnnualRate < 0 {
		return fmt.Errorf("annualRate cannot be negative")
	}
	return nil
}

type ReviewLoanRequest struct {
	Approve         bool   `json:"approve"`
	RejectionReason string `json:"rejectionReason,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

type LoanResponse struct {
	Code         string     `json:"code"`
	Type         string     `json:"loanType"`
	Amount       string     `json:"amount"`
	TenureMonths int        `json:"tenureMonths"`
	AnnualRate   string     `json:"annualRate"`
	EMI          string     `json:"emi"`
	Status       string     `json:"status"`
	AppliedAt    time.Time  `json:"appliedAt"`
	ApprovedAt   *time.Time `json:"approvedAt,omitempty"`

	Reason          *string `json:"reason,omitempty"`
	RejectionReason *string `json:"rejectionReason,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

type LoanDetailResponse struct {
	LoanResponse
	CustomerCode string `json:"customerCode"`
	CustomerName string `json:"customerName"`
}

type EMIPreviewResponse struct {
	Principal    string `json:"principal"`
	AnnualRate   string `json:"annualRate"`
	TenureMonths int    `json:"tenureMonths"`
	EMI          string `json:"emi"`
}

func NewLoanResponse(domainLoan *loan.Loan) LoanResponse {
	if domainLoan == nil {
		return LoanResponse{}
	}
	return LoanResponse{
		Code:            domainLoan.Code,
		Type:            domainLoan.Type,
		Amount:          decimal.NewFromFloat(domainLoan.Amount).StringFixed(2),
		TenureMonths:    domainLoan.TenureMonths,
		AnnualRate:      decimal.NewFromFloat(domainLoan.AnnualRate).String(),
		EMI:             decimal.NewFromFloat(domainLoan.EMI).StringFixed(2),
		Status:          string(domainLoan.Status),
		AppliedAt:       domainLoan.AppliedAt,
		ApprovedAt:      domainLoan.ApprovedAt,
		Reason:          domainLoan.Reason,
		RejectionReason: domainLoan.RejectionReason,
		Notes:           domainLoan.Notes,
	}
}

func NewLoanDetailResponse(detail *loan.Detail) LoanDetailResponse {
	return LoanDetailResponse{
		LoanResponse: NewLoanResponse(&detail.Loan),
		CustomerCode: detail.CustomerCode,
		CustomerName: detail.CustomerName,
	}
}
