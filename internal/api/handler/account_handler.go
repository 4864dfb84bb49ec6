package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"corebank/internal/api/handler/dto"
	"corebank/internal/domain/account"
	"corebank/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
)

type AccountHandler struct {
	service account.AccountService
	logger  *slog.Logger
}

func NewAccountHandler(s account.AccountService, l *slog.Logger) *AccountHandler {
	if s == nil {
		panic("account service cannot be nil")
	}
	return &AccountHandler{
		service: s,
		logger:  l.With("component", "AccountHandler"),
	}
}

func getAccountNumberFromURL(r *http.Request) (string, error) {
	number := chi.URLParam(r, "accountNumber")
	if number == "" {
		return "", fmt.Errorf("%w: accountNumber not found in URL path", apperrors.ErrInvalidArgument)
	}
	return number, nil
}

// OpenAccount handles POST /accounts
// @Summary Open a deposit account
// @Description Opens an account for a KYC-verified customer. The opening deposit must meet the minimum for the account type.
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body dto.OpenAccountRequest true "Account opening payload"
// @Success 201 {object} dto.AccountResponse "Account opened"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 403 {object} dto.ErrorResponse "Caller may not open an account for this customer"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 412 {object} dto.ErrorResponse "KYC is not verified"
// @Router /accounts [post]
// @Security BearerAuth
func (h *AccountHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.OpenAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	accType, err := account.ParseAccountType(req.AccountType)
	if err != nil {
		respondError(w, err)
		return
	}

	acc, err := h.service.OpenAccount(r.Context(), principal, req.CustomerCode, accType, req.InitialDeposit, req.SecretCode)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to open account", slog.String("customerCode", req.CustomerCode), slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Account opened", slog.String("number", acc.Number), slog.String("type", string(acc.Type)))
	respondJSON(w, http.StatusCreated, dto.NewAccountResponse(acc))
}

// Deposit handles POST /accounts/{accountNumber}/deposit
// @Summary Deposit into an account
// @Description Credits an active account. Any authenticated user may deposit into any account.
// @Tags Accounts
// @Accept json
// @Produce json
// @Param accountNumber path string true "Account number"
// @Param request body dto.DepositRequest true "Deposit payload"
// @Success 200 {object} dto.AccountResponse "Updated account"
// @Failure 400 {object} dto.ErrorResponse "Invalid amount"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 412 {object} dto.ErrorResponse "Account is not active"
// @Router /accounts/{accountNumber}/deposit [post]
// @Security BearerAuth
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	number, err := getAccountNumberFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.DepositRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	acc, err := h.service.Deposit(r.Context(), principal, number, req.Amount, req.Description)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Deposit failed", slog.String("number", number), slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewAccountResponse(acc))
}

// Withdraw handles POST /accounts/{accountNumber}/withdraw
// @Summary Withdraw from an account
// @Description Debits an active account the caller owns. Requires the account secret code.
// @Tags Accounts
// @Accept json
// @Produce json
// @Param accountNumber path string true "Account number"
// @Param request body dto.WithdrawRequest true "Withdrawal payload"
// @Success 200 {object} dto.AccountResponse "Updated account"
// @Failure 400 {object} dto.ErrorResponse "Invalid amount or insufficient funds"
// @Failure 403 {object} dto.ErrorResponse "Wrong secret code or caller does not own this account"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 412 {object} dto.ErrorResponse "Account is not active"
// @Router /accounts/{accountNumber}/withdraw [post]
// @Security BearerAuth
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	number, err := getAccountNumberFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.WithdrawRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	acc, err := h.service.Withdraw(r.Context(), principal, number, req.Amount, req.SecretCode)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Withdrawal failed", slog.String("number", number), slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewAccountResponse(acc))
}

// GetBalance handles GET /accounts/{accountNumber}/balance
// @Summary Retrieve an account balance
// @Description Returns the current balance. Customers may only view their own accounts.
// @Tags Accounts
// @Produce json
// @Param accountNumber path string true "Account number"
// @Success 200 {object} dto.AccountResponse "Account with balance"
// @Failure 403 {object} dto.ErrorResponse "Caller does not own this account"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Router /accounts/{accountNumber}/balance [get]
// @Security BearerAuth
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	number, err := getAccountNumberFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	acc, err := h.service.GetBalance(r.Context(), principal, number)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewAccountResponse(acc))
}

// ListTransactions handles GET /accounts/{accountNumber}/transactions
// @Summary List recent account transactions
// @Description Returns transactions newest first. Customers may only view their own accounts.
// @Tags Accounts
// @Produce json
// @Param accountNumber path string true "Account number"
// @Param limit query int false "Maximum number of transactions (default 20)"
// @Success 200 {object} dto.TransactionListResponse "Transactions"
// @Failure 400 {object} dto.ErrorResponse "Invalid limit"
// @Failure 403 {object} dto.ErrorResponse "Caller does not own this account"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Router /accounts/{accountNumber}/transactions [get]
// @Security BearerAuth
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	number, err := getAccountNumberFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(w, fmt.Errorf("%w: limit must be a non-negative integer", apperrors.ErrInvalidArgument))
			return
		}
	}

	acc, txns, err := h.service.ListTransactions(r.Context(), principal, number, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTransactionListResponse(acc, txns))
}
