package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"corebank/internal/api/handler/dto"
	"corebank/internal/domain/customer"
	"corebank/internal/domain/identity"
	"corebank/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 32 << 20

type CustomerHandler struct {
	service customer.CustomerService
	logger  *slog.Logger
}

func NewCustomerHandler(s customer.CustomerService, l *slog.Logger) *CustomerHandler {
	if s == nil {
		panic("customer service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &CustomerHandler{
		service: s,
		logger:  l.With("component", "CustomerHandler"),
	}
}

func getCustomerCodeFromURL(r *http.Request) (string, error) {
	code := chi.URLParam(r, "customerCode")
	if code == "" {
		return "", fmt.Errorf("%w: customerCode not found in URL path", apperrors.ErrInvalidArgument)
	}
	return code, nil
}

func formValuePtr(r *http.Request, field string) *string {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return nil
	}
	return &v
}

// formFile returns the named upload, or nil when the field is absent. The
// caller owns closing via the returned closer list.
func formFile(r *http.Request, field string, closers *[]io.Closer) (*customer.FileUpload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	file, err := headers[0].Open()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read uploaded file %s: %v", apperrors.ErrInvalidArgument, field, err)
	}
	*closers = append(*closers, file)
	return &customer.FileUpload{
		Filename: filepath.Base(headers[0].Filename),
		Content:  file,
	}, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		c.Close()
	}
}

// CreateCustomer handles POST /customers
// @Summary Create the caller's customer profile
// @Description Creates a customer profile for the authenticated customer user. Accepts multipart form data with optional profilePhoto and signatureImage files.
// @Tags Customers
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} dto.CustomerResponse "Customer profile created"
// @Failure 400 {object} dto.ErrorResponse "Invalid form data"
// @Failure 403 {object} dto.ErrorResponse "Caller is not a customer"
// @Failure 409 {object} dto.ErrorResponse "Profile already exists or email/phone taken"
// @Router /customers [post]
// @Security BearerAuth
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to parse multipart form", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: invalid multipart form: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	dob, err := time.Parse(time.RFC3339[:10], r.FormValue("dateOfBirth"))
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid dateOfBirth format (use YYYY-MM-DD)", apperrors.ErrInvalidArgument))
		return
	}

	var closers []io.Closer
	defer closeAll(closers)

	profilePhoto, err := formFile(r, "profilePhoto", &closers)
	if err != nil {
		respondError(w, err)
		return
	}
	signatureImage, err := formFile(r, "signatureImage", &closers)
	if err != nil {
		respondError(w, err)
		return
	}

	input := customer.NewCustomerInput{
		FirstName:     r.FormValue("firstName"),
		LastName:      r.FormValue("lastName"),
		DateOfBirth:   dob,
		Gender:        customer.Gender(r.FormValue("gender")),
		MaritalStatus: customer.MaritalStatus(r.FormValue("maritalStatus")),

		Email:          r.FormValue("email"),
		Phone:          r.FormValue("phone"),
		AlternatePhone: formValuePtr(r, "alternatePhone"),
		AddressLine1:   r.FormValue("addressLine1"),
		AddressLine2:   formValuePtr(r, "addressLine2"),
		City:           r.FormValue("city"),
		State:          r.FormValue("state"),
		Country:        r.FormValue("country"),
		PostalCode:     r.FormValue("postalCode"),

		PreferredAccountType: r.FormValue("preferredAccountType"),
		Occupation:           formValuePtr(r, "occupation"),
		AnnualIncome:         formValuePtr(r, "annualIncome"),
		Notes:                formValuePtr(r, "notes"),

		ProfilePhoto:   profilePhoto,
		SignatureImage: signatureImage,
	}

	created, err := h.service.CreateCustomer(r.Context(), principal, input)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to create customer", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Customer created", slog.String("code", created.Code))
	respondJSON(w, http.StatusCreated, dto.NewCustomerResponse(created))
}

// GetOwnCustomer handles GET /customers/me
// @Summary Retrieve the caller's customer profile
// @Tags Customers
// @Produce json
// @Success 200 {object} dto.CustomerResponse "Customer profile"
// @Failure 404 {object} dto.ErrorResponse "No profile for this user"
// @Router /customers/me [get]
// @Security BearerAuth
func (h *CustomerHandler) GetOwnCustomer(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	cust, err := h.service.GetOwnCustomer(r.Context(), principal)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewCustomerResponse(cust))
}

// GetCustomer handles GET /customers/{customerCode}
// @Summary Retrieve a customer by code
// @Description Back-office roles may fetch any customer. Customers may only fetch their own profile.
// @Tags Customers
// @Produce json
// @Param customerCode path string true "Customer code"
// @Success 200 {object} dto.CustomerResponse "Customer profile"
// @Failure 403 {object} dto.ErrorResponse "Caller may not view this customer"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Router /customers/{customerCode} [get]
// @Security BearerAuth
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	code, err := getCustomerCodeFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	cust, err := h.service.GetCustomerByCode(r.Context(), principal, code)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewCustomerResponse(cust))
}

// ListCustomers handles GET /customers
// @Summary List customers
// @Description Lists every customer profile. Restricted to back-office roles.
// @Tags Customers
// @Produce json
// @Success 200 {array} dto.CustomerResponse "List of customers"
// @Failure 403 {object} dto.ErrorResponse "Caller may not list customers"
// @Router /customers [get]
// @Security BearerAuth
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	customers, err := h.service.ListCustomers(r.Context(), principal)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := make([]dto.CustomerResponse, len(customers))
	for i := range customers {
		resp[i] = dto.NewCustomerResponse(&customers[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// UpdateIdentityDocuments handles PUT /customers/me/documents
// @Summary Upload or update KYC documents
// @Description Updates document numbers and files. Any update resets KYC status to Pending.
// @Tags Customers
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} dto.CustomerResponse "Documents updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid form data"
// @Failure 404 {object} dto.ErrorResponse "No profile for this user"
// @Router /customers/me/documents [put]
// @Security BearerAuth
func (h *CustomerHandler) UpdateIdentityDocuments(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, fmt.Errorf("%w: invalid multipart form: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var closers []io.Closer
	defer closeAll(closers)

	input := customer.IdentityDocumentsInput{
		NationalIDNumber:     formValuePtr(r, "nationalIdNumber"),
		PassportNumber:       formValuePtr(r, "passportNumber"),
		AadhaarNumber:        formValuePtr(r, "aadhaarNumber"),
		DrivingLicenseNumber: formValuePtr(r, "drivingLicenseNumber"),
		VoterIDNumber:        formValuePtr(r, "voterIdNumber"),
		PANNumber:            formValuePtr(r, "panNumber"),
	}

	uploads := []struct {
		field string
		dest  **customer.FileUpload
	}{
		{"nationalIdFile", &input.NationalIDFile},
		{"passportFile", &input.PassportFile},
		{"aadhaarFile", &input.AadhaarFile},
		{"drivingLicenseFile", &input.DrivingLicenseFile},
		{"voterIdFile", &input.VoterIDFile},
	}
	for _, u := range uploads {
		file, err := formFile(r, u.field, &closers)
		if err != nil {
			respondError(w, err)
			return
		}
		*u.dest = file
	}

	updated, err := h.service.UpdateIdentityDocuments(r.Context(), principal, input)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to update documents", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Identity documents updated", slog.String("code", updated.Code))
	respondJSON(w, http.StatusOK, dto.NewCustomerResponse(updated))
}

// UpdateKYCStatus handles PUT /customers/{customerCode}/kyc
// @Summary Update a customer's KYC status
// @Description Sets KYC status. Verification requires every supplied document number to have a stored file and a PAN number on record.
// @Tags Customers
// @Accept json
// @Produce json
// @Param customerCode path string true "Customer code"
// @Param request body dto.UpdateKYCStatusRequest true "New KYC status"
// @Success 200 {object} dto.CustomerResponse "KYC status updated"
// @Failure 400 {object} dto.ErrorResponse "Unknown KYC status"
// @Failure 403 {object} dto.ErrorResponse "Caller may not verify KYC"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 412 {object} dto.ErrorResponse "Required documents are missing"
// @Router /customers/{customerCode}/kyc [put]
// @Security BearerAuth
func (h *CustomerHandler) UpdateKYCStatus(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	code, err := getCustomerCodeFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.UpdateKYCStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	status, err := customer.ParseKYCStatus(req.Status)
	if err != nil {
		respondError(w, err)
		return
	}

	updated, err := h.service.UpdateKYCStatus(r.Context(), principal, code, status)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to update KYC status", slog.String("code", code), slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "KYC status updated", slog.String("code", code), slog.String("status", req.Status))
	respondJSON(w, http.StatusOK, dto.NewCustomerResponse(updated))
}

// DownloadOwnDocument handles GET /customers/me/documents/{docType}
// @Summary Download one of the caller's own documents
// @Tags Customers
// @Produce application/octet-stream
// @Param docType path string true "Document type" Enums(profile, signature, national_id, passport, aadhaar, driving_license, voter_id)
// @Success 200 {file} binary "Document content"
// @Failure 404 {object} dto.ErrorResponse "Document not found"
// @Router /customers/me/documents/{docType} [get]
// @Security BearerAuth
func (h *CustomerHandler) DownloadOwnDocument(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	cust, err := h.service.GetOwnCustomer(r.Context(), principal)
	if err != nil {
		respondError(w, err)
		return
	}

	h.streamDocument(w, r, principal, cust.Code)
}

// DownloadDocument handles GET /customers/{customerCode}/documents/{docType}
// @Summary Download a stored customer document
// @Description Streams a stored document. Customers may only fetch their own documents.
// @Tags Customers
// @Produce application/octet-stream
// @Param customerCode path string true "Customer code"
// @Param docType path string true "Document type" Enums(profile, signature, national_id, passport, aadhaar, driving_license, voter_id)
// @Success 200 {file} binary "Document content"
// @Failure 403 {object} dto.ErrorResponse "Caller may not view this document"
// @Failure 404 {object} dto.ErrorResponse "Document not found"
// @Router /customers/{customerCode}/documents/{docType} [get]
// @Security BearerAuth
func (h *CustomerHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	code, err := getCustomerCodeFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	h.streamDocument(w, r, principal, code)
}

func (h *CustomerHandler) streamDocument(w http.ResponseWriter, r *http.Request, principal identity.Principal, code string) {
	docType := customer.DocumentType(chi.URLParam(r, "docType"))

	content, name, err := h.service.OpenDocument(r.Context(), principal, code, docType)
	if err != nil {
		respondError(w, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(name)))
	if _, err := io.Copy(w, content); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to stream document", slog.Any("error", err))
	}
}
