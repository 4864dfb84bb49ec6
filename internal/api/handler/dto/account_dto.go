package dto

import (
	"time"

	"corebank/internal/domain/account"
	"corebank/internal/pkg/validation"

	"github.com/shopspring/decimal"
)

type OpenAccountRequest struct {
	CustomerCode   string  `json:"customerCode" validate:"required"`
	AccountType    string  `json:"accountType" validate:"required"`
	InitialDeposit float64 `json:"initialDeposit" validate:"gt=0"`
	SecretCode     string  `json:"secretCode"`
}

func (r *OpenAccountRequest) Validate() error {
	return validation.Struct(r)
}

type DepositRequest struct {
	Amount      float64 `json:"amount" validate:"gt=0"`
	Description string  `json:"description"`
}

func (r *DepositRequest) Validate() error {
	return validation.Struct(r)
}

type WithdrawRequest struct {
	Amount     float64 `json:"amount" validate:"gt=0"`
	SecretCode string  `json:"secretCode" validate:"required"`
}

func (r *WithdrawRequest) Validate() error {
	return validation.Struct(r)
}

type AccountResponse struct {
	Number    string    `json:"number"`
	Type      string    `json:"type"`
	Balance   string    `json:"balance"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type TransactionResponse struct {
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type TransactionListResponse struct {
	AccountNumber string                `json:"accountNumber"`
	Balance       string                `json:"balance"`
	Transactions  []TransactionResponse `json:"transactions"`
}

func formatMoney(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

func NewAccountResponse(acc *account.Account) AccountResponse {
	if acc == nil {
		return AccountResponse{}
	}
	return AccountResponse{
		Number:    acc.Number,
		Type:      string(acc.Type),
		Balance:   formatMoney(acc.Balance),
		Status:    string(acc.Status),
		CreatedAt: acc.CreatedAt,
	}
}

func NewTransactionListResponse(acc *account.Account, txns []account.Transaction) TransactionListResponse {
	resp := TransactionListResponse{
		AccountNumber: acc.Number,
		Balance:       formatMoney(acc.Balance),
		Transactions:  make([]TransactionResponse, len(txns)),
	}
	for i, txn := range txns {
		resp.Transactions[i] = TransactionResponse{
			Type:        string(txn.Type),
			Amount:      formatMoney(txn.Amount),
			Description: txn.Description,
			Timestamp:   txn.Timestamp,
		}
	}
	return resp
}
