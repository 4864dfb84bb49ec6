package handler

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"corebank/internal/api/handler/dto"
	"corebank/internal/domain/loan"
	"corebank/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type LoanHandler struct {
	service loan.LoanService
	logger  *slog.Logger
}

func NewLoanHandler(s loan.LoanService, l *slog.Logger) *LoanHandler {
	if s == nil {
		panic("loan service cannot be nil")
	}
	return &LoanHandler{
		service: s,
		logger:  l.With("component", "LoanHandler"),
	}
}

func getLoanCodeFromURL(r *http.Request) (string, error) {
	code := chi.URLParam(r, "loanCode")
	if code == "" {
		return "", fmt.Errorf("%w: loanCode not found in URL path", apperrors.ErrInvalidArgument)
	}
	return code, nil
}

// applyInputFromRequest accepts either a JSON body or a multipart form.
// The multipart form carries the same fields plus an optional
// supportingDocument file.
func applyInputFromRequest(r *http.Request, closers *[]io.Closer) (loan.ApplicationInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req dto.ApplyLoanRequest
		if err := decodeJSON(r, &req); err != nil {
			return loan.ApplicationInput{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err)
		}
		if err := req.Validate(); err != nil {
			return loan.ApplicationInput{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err)
		}
		return loan.ApplicationInput{
			Type:         req.Type,
			Amount:       req.Amount,
			TenureMonths: req.TenureMonths,
			AnnualRate:   req.AnnualRate,
			Reason:       req.Reason,
		}, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return loan.ApplicationInput{}, fmt.Errorf("%w: invalid multipart form: %v", apperrors.ErrInvalidArgument, err)
	}

	req := dto.ApplyLoanRequest{
		Type:   r.FormValue("loanType"),
		Reason: formValuePtr(r, "reason"),
	}
	var err error
	if req.Amount, err = strconv.ParseFloat(r.FormValue("amount"), 64); err != nil {
		return loan.ApplicationInput{}, fmt.Errorf("%w: invalid amount", apperrors.ErrInvalidArgument)
	}
	if req.TenureMonths, err = strconv.Atoi(r.FormValue("tenureMonths")); err != nil {
		return loan.ApplicationInput{}, fmt.Errorf("%w: invalid tenureMonths", apperrors.ErrInvalidArgument)
	}
	if raw := r.FormValue("annualRate"); raw != "" {
		if req.AnnualRate, err = strconv.ParseFloat(raw, 64); err != nil {
			return loan.ApplicationInput{}, fmt.Errorf("%w: invalid annualRate", apperrors.ErrInvalidArgument)
		}
	}
	if err := req.Validate(); err != nil {
		return loan.ApplicationInput{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err)
	}

	doc, err := formFile(r, "supportingDocument", closers)
	if err != nil {
		return loan.ApplicationInput{}, err
	}
	return loan.ApplicationInput{
		Type:               req.Type,
		Amount:             req.Amount,
		TenureMonths:       req.TenureMonths,
		AnnualRate:         req.AnnualRate,
		Reason:             req.Reason,
		SupportingDocument: doc,
	}, nil
}

// Apply handles POST /loans
// @Summary Apply for a loan
// @Description Submits a loan application for the caller. A customer may hold only one pending application at a time. Send JSON, or multipart form data to attach a supportingDocument.
// @Tags Loans
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param request body dto.ApplyLoanRequest true "Application payload"
// @Success 201 {object} dto.LoanResponse "Application submitted"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 403 {object} dto.ErrorResponse "Caller is not a customer"
// @Failure 409 {object} dto.ErrorResponse "A pending application already exists"
// @Failure 412 {object} dto.ErrorResponse "KYC is not verified"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) Apply(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var closers []io.Closer
	defer closeAll(closers)

	input, err := applyInputFromRequest(r, &closers)
	if err != nil {
		respondError(w, err)
		return
	}

	created, err := h.service.Apply(r.Context(), principal, input)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Loan application failed", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Loan application submitted",
		slog.String("code", created.Code), slog.String("type", created.Type))
	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(created))
}

// Review handles POST /loans/{loanCode}/review
// @Summary Approve or reject a pending loan
// @Description Decides a pending application. Each application can be decided exactly once. Rejection requires a reason.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanCode path string true "Loan code"
// @Param request body dto.ReviewLoanRequest true "Review decision"
// @Success 200 {object} dto.LoanResponse "Decided loan"
// @Failure 400 {object} dto.ErrorResponse "Rejection without a reason"
// @Failure 403 {object} dto.ErrorResponse "Caller may not review loans"
// @Failure 404 {object} dto.ErrorResponse "No pending loan with this code"
// @Router /loans/{loanCode}/review [post]
// @Security BearerAuth
func (h *LoanHandler) Review(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	code, err := getLoanCodeFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.ReviewLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	decided, err := h.service.Review(r.Context(), principal, code, loan.ReviewInput{
		Approve:         req.Approve,
		RejectionReason: req.RejectionReason,
		Notes:           req.Notes,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "Loan review failed", slog.String("code", code), slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Loan reviewed",
		slog.String("code", code), slog.String("status", string(decided.Status)))
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(decided))
}

// ListMine handles GET /loans/me
// @Summary List the caller's loan applications
// @Tags Loans
// @Produce json
// @Success 200 {array} dto.LoanResponse "The caller's loans, newest first"
// @Failure 404 {object} dto.ErrorResponse "No customer profile for this user"
// @Router /loans/me [get]
// @Security BearerAuth
func (h *LoanHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	loans, err := h.service.ListMine(r.Context(), principal)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := make([]dto.LoanResponse, len(loans))
	for i := range loans {
		resp[i] = dto.NewLoanResponse(&loans[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListAll handles GET /loans
// @Summary List every loan application
// @Description Lists all applications with applicant details. Restricted to back-office roles.
// @Tags Loans
// @Produce json
// @Success 200 {array} dto.LoanDetailResponse "All loans, newest first"
// @Failure 403 {object} dto.ErrorResponse "Caller may not list loans"
// @Router /loans [get]
// @Security BearerAuth
func (h *LoanHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	details, err := h.service.ListAll(r.Context(), principal)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := make([]dto.LoanDetailResponse, len(details))
	for i := range details {
		resp[i] = dto.NewLoanDetailResponse(&details[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// PreviewEMI handles GET /loans/emi-preview
// @Summary Preview the monthly installment for a prospective loan
// @Tags Loans
// @Produce json
// @Param principal query number true "Loan principal"
// @Param annualRate query number false "Annual interest rate in percent (default 8)"
// @Param tenureMonths query int true "Tenure in months"
// @Success 200 {object} dto.EMIPreviewResponse "Computed installment"
// @Failure 400 {object} dto.ErrorResponse "Invalid parameters"
// @Router /loans/emi-preview [get]
// @Security BearerAuth
func (h *LoanHandler) PreviewEMI(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r); err != nil {
		respondError(w, err)
		return
	}

	q := r.URL.Query()
	principal, err := strconv.ParseFloat(q.Get("principal"), 64)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid principal", apperrors.ErrInvalidArgument))
		return
	}
	tenureMonths, err := strconv.Atoi(q.Get("tenureMonths"))
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid tenureMonths", apperrors.ErrInvalidArgument))
		return
	}
	annualRate := 0.0
	if raw := q.Get("annualRate"); raw != "" {
		if annualRate, err = strconv.ParseFloat(raw, 64); err != nil {
			respondError(w, fmt.Errorf("%w: invalid annualRate", apperrors.ErrInvalidArgument))
			return
		}
	}

	emi, err := h.service.PreviewEMI(r.Context(), principal, annualRate, tenureMonths)
	if err != nil {
		respondError(w, err)
		return
	}

	if annualRate == 0 {
		annualRate = loan.DefaultAnnualRate
	}
	respondJSON(w, http.StatusOK, dto.EMIPreviewResponse{
		Principal:    decimal.NewFromFloat(principal).StringFixed(2),
		AnnualRate:   decimal.NewFromFloat(annualRate).String(),
		TenureMonths: tenureMonths,
		EMI:          decimal.NewFromFloat(emi).StringFixed(2),
	})
}
