package customer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"corebank/internal/domain/identity"
	"corebank/internal/event"
	"corebank/internal/infrastructure/monitoring"
	"corebank/internal/pkg/apperrors"
	"corebank/internal/pkg/validation"
)

// FileUpload is a document received from a multipart form.
type FileUpload struct {
	Filename string
	Content  io.Reader
}

type NewCustomerInput struct {
	FirstName     string
	LastName      string
	DateOfBirth   time.Time
	Gender        Gender
	MaritalStatus MaritalStatus

	Email          string
	Phone          string
	AlternatePhone *string
	AddressLine1   string
	AddressLine2   *string
	City           string
	State          string
	Country        string
	PostalCode     string

	PreferredAccountType string
	Occupation           *string
	AnnualIncome         *string
	Notes                *string

	ProfilePhoto   *FileUpload
	SignatureImage *FileUpload
}

// IdentityDocumentsInput updates document numbers and files incrementally.
// Nil fields keep whatever the customer already supplied.
type IdentityDocumentsInput struct {
	NationalIDNumber     *string
	PassportNumber       *string
	AadhaarNumber        *string
	DrivingLicenseNumber *string
	VoterIDNumber        *string
	PANNumber            *string

	NationalIDFile     *FileUpload
	PassportFile       *FileUpload
	AadhaarFile        *FileUpload
	DrivingLicenseFile *FileUpload
	VoterIDFile        *FileUpload
}

type DocumentType string

const (
	DocumentProfile        DocumentType = "profile"
	DocumentSignature      DocumentType = "signature"
	DocumentNationalID     DocumentType = "national_id"
	DocumentPassport       DocumentType = "passport"
	DocumentAadhaar        DocumentType = "aadhaar"
	DocumentDrivingLicense DocumentType = "driving_license"
	DocumentVoterID        DocumentType = "voter_id"
)

type CustomerService interface {
	CreateCustomer(ctx context.Context, actor identity.Principal, input NewCustomerInput) (*Customer, error)

	GetOwnCustomer(ctx context.Context, actor identity.Principal) (*Customer, error)

	GetCustomerByCode(ctx context.Context, actor identity.Principal, code string) (*Customer, error)

	ListCustomers(ctx context.Context, actor identity.Principal) ([]Customer, error)

	UpdateIdentityDocuments(ctx context.Context, actor identity.Principal, input IdentityDocumentsInput) (*Customer, error)

	UpdateKYCStatus(ctx context.Context, actor identity.Principal, code string, status KYCStatus) (*Customer, error)

	OpenDocument(ctx context.Context, actor identity.Principal, code string, docType DocumentType) (io.ReadCloser, string, error)
}

type customerServiceImpl struct {
	repo      Repository
	store     DocumentStore
	publisher event.EventPublisher
	logger    *slog.Logger
}

func NewCustomerService(r Repository, store DocumentStore, publisher event.EventPublisher, logger *slog.Logger) CustomerService {
	return &customerServiceImpl{
		repo:      r,
		store:     store,
		publisher: publisher,
		logger:    logger.With("component", "CustomerService"),
	}
}

func (s *customerServiceImpl) CreateCustomer(ctx context.Context, actor identity.Principal, input NewCustomerInput) (*Customer, error) {
	if actor.Role != identity.RoleCustomer {
		return nil, fmt.Errorf("%w: only a Customer may create their own profile", apperrors.ErrForbidden)
	}

	s.logger.Info("Creating customer profile", "userID", actor.UserID)

	if err := validateNewCustomer(input); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetCustomerByUserID(ctx, actor.UserID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for existing profile: %w", err)
	} else if existing != nil {
		return nil, fmt.Errorf("%w: a customer profile already exists for this user", apperrors.ErrConflict)
	}

	if existing, err := s.repo.GetCustomerByEmailOrPhone(ctx, input.Email, input.Phone); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check customer uniqueness: %w", err)
	} else if existing != nil {
		return nil, fmt.Errorf("%w: a customer with this email or phone already exists", apperrors.ErrConflict)
	}

	code, err := s.repo.NextCustomerCode(ctx)
	if err != nil {
		s.logger.Error("Failed to allocate customer code", "error", err)
		return nil, fmt.Errorf("failed to allocate customer code: %w", err)
	}

	cust := &Customer{
		Code:                 code,
		FirstName:            input.FirstName,
		LastName:             input.LastName,
		DateOfBirth:          input.DateOfBirth,
		Gender:               input.Gender,
		MaritalStatus:        input.MaritalStatus,
		Email:                input.Email,
		Phone:                input.Phone,
		AlternatePhone:       input.AlternatePhone,
		AddressLine1:         input.AddressLine1,
		AddressLine2:         input.AddressLine2,
		City:                 input.City,
		State:                input.State,
		Country:              input.Country,
		PostalCode:           input.PostalCode,
		KYCStatus:            KYCPending,
		PreferredAccountType: input.PreferredAccountType,
		Status:               StatusActive,
		Occupation:           input.Occupation,
		AnnualIncome:         input.AnnualIncome,
		RiskCategory:         RiskLow,
		Notes:                input.Notes,
		UserID:               actor.UserID,
	}

	if input.ProfilePhoto != nil {
		path, err := s.store.Save(ctx, input.ProfilePhoto.Filename, input.ProfilePhoto.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to store profile photo: %w", err)
		}
		cust.ProfilePhotoPath = &path
	}
	if input.SignatureImage != nil {
		path, err := s.store.Save(ctx, input.SignatureImage.Filename, input.SignatureImage.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to store signature image: %w", err)
		}
		cust.SignatureImagePath = &path
	}

	created, err := s.repo.CreateCustomer(ctx, cust)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) || errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: a customer with this email or phone already exists", apperrors.ErrConflict)
		}
		s.logger.Error("Failed to create customer", "error", err)
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	monitoring.RecordCustomerCreated()
	if err := s.publisher.PublishCustomerCreated(ctx, event.CustomerCreatedEvent{
		CustomerCode: created.Code,
		Email:        created.Email,
	}); err != nil {
		s.logger.Warn("Failed to publish customer created event", "customerCode", created.Code, "error", err)
	}

	s.logger.Info("Customer profile created", "customerCode", created.Code)
	return created, nil
}

func (s *customerServiceImpl) GetOwnCustomer(ctx context.Context, actor identity.Principal) (*Customer, error) {
	if actor.Role != identity.RoleCustomer {
		return nil, fmt.Errorf("%w: only a Customer has their own profile", apperrors.ErrForbidden)
	}
	cust, err := s.repo.GetCustomerByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: no customer profile found for this user", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get customer profile: %w", err)
	}
	return cust, nil
}

func (s *customerServiceImpl) GetCustomerByCode(ctx context.Context, actor identity.Principal, code string) (*Customer, error) {
	if !actor.Role.IsBackOffice() {
		return nil, fmt.Errorf("%w: not permitted to view customer records", apperrors.ErrForbidden)
	}
	cust, err := s.repo.GetCustomerByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: no customer found with code %s", apperrors.ErrNotFound, code)
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return cust, nil
}

func (s *customerServiceImpl) ListCustomers(ctx context.Context, actor identity.Principal) ([]Customer, error) {
	if actor.Role != identity.RoleAdmin && actor.Role != identity.RoleSuperAdmin {
		return nil, fmt.Errorf("%w: not permitted to list customers", apperrors.ErrForbidden)
	}
	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		s.logger.Error("Failed to list customers", "error", err)
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

func (s *customerServiceImpl) UpdateIdentityDocuments(ctx context.Context, actor identity.Principal, input IdentityDocumentsInput) (*Customer, error) {
	cust, err := s.GetOwnCustomer(ctx, actor)
	if err != nil {
		return nil, err
	}

	docs := &cust.Documents
	if input.NationalIDNumber != nil {
		docs.NationalIDNumber = input.NationalIDNumber
	}
	if input.PassportNumber != nil {
		docs.PassportNumber = input.PassportNumber
	}
	if input.AadhaarNumber != nil {
		docs.AadhaarNumber = input.AadhaarNumber
	}
	if input.DrivingLicenseNumber != nil {
		docs.DrivingLicenseNumber = input.DrivingLicenseNumber
	}
	if input.VoterIDNumber != nil {
		docs.VoterIDNumber = input.VoterIDNumber
	}
	if input.PANNumber != nil {
		docs.PANNumber = input.PANNumber
	}

	uploads := []struct {
		file *FileUpload
		path **string
	}{
		{input.NationalIDFile, &docs.NationalIDPath},
		{input.PassportFile, &docs.PassportPath},
		{input.AadhaarFile, &docs.AadhaarPath},
		{input.DrivingLicenseFile, &docs.DrivingLicensePath},
		{input.VoterIDFile, &docs.VoterIDPath},
	}
	for _, u := range uploads {
		if u.file == nil {
			continue
		}
		path, err := s.store.Save(ctx, u.file.Filename, u.file.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to store identity document: %w", err)
		}
		*u.path = &path
	}

	// Fresh documents always restart verification.
	cust.KYCStatus = KYCPending
	cust.KYCVerifiedAt = nil
	cust.KYCVerifiedBy = nil

	if err := s.repo.UpdateCustomer(ctx, cust); err != nil {
		s.logger.Error("Failed to update identity documents", "customerCode", cust.Code, "error", err)
		return nil, fmt.Errorf("failed to update identity documents: %w", err)
	}

	s.logger.Info("Identity documents updated", "customerCode", cust.Code)
	return cust, nil
}

func (s *customerServiceImpl) UpdateKYCStatus(ctx context.Context, actor identity.Principal, code string, status KYCStatus) (*Customer, error) {
	if actor.Role != identity.RoleAdmin && actor.Role != identity.RoleSuperAdmin {
		return nil, fmt.Errorf("%w: not permitted to update KYC status", apperrors.ErrForbidden)
	}
	if _, err := ParseKYCStatus(string(status)); err != nil {
		return nil, err
	}

	cust, err := s.repo.GetCustomerByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: no customer found with code %s", apperrors.ErrNotFound, code)
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	if status == KYCVerified {
		if missing := cust.MissingKYCDocuments(); len(missing) > 0 {
			s.logger.Warn("KYC verification blocked by missing documents", "customerCode", code, "missing", missing)
			return nil, fmt.Errorf("%w: cannot verify KYC, missing: %v", apperrors.ErrPreconditionFailed, missing)
		}
		now := time.Now()
		cust.KYCVerifiedAt = &now
		cust.KYCVerifiedBy = &actor.UserID
	} else {
		cust.KYCVerifiedAt = nil
		cust.KYCVerifiedBy = nil
	}
	cust.KYCStatus = status

	if err := s.repo.UpdateCustomer(ctx, cust); err != nil {
		s.logger.Error("Failed to update KYC status", "customerCode", code, "error", err)
		return nil, fmt.Errorf("failed to update KYC status: %w", err)
	}

	s.logger.Info("KYC status updated", "customerCode", code, "status", status)
	return cust, nil
}

func (s *customerServiceImpl) OpenDocument(ctx context.Context, actor identity.Principal, code string, docType DocumentType) (io.ReadCloser, string, error) {
	var cust *Customer
	var err error
	if actor.Role == identity.RoleCustomer {
		cust, err = s.GetOwnCustomer(ctx, actor)
		if err == nil && code != "" && cust.Code != code {
			return nil, "", fmt.Errorf("%w: not permitted to access another customer's documents", apperrors.ErrForbidden)
		}
	} else {
		cust, err = s.GetCustomerByCode(ctx, actor, code)
	}
	if err != nil {
		return nil, "", err
	}

	var path *string
	switch docType {
	case DocumentProfile:
		path = cust.ProfilePhotoPath
	case DocumentSignature:
		path = cust.SignatureImagePath
	case DocumentNationalID:
		path = cust.Documents.NationalIDPath
	case DocumentPassport:
		path = cust.Documents.PassportPath
	case DocumentAadhaar:
		path = cust.Documents.AadhaarPath
	case DocumentDrivingLicense:
		path = cust.Documents.DrivingLicensePath
	case DocumentVoterID:
		path = cust.Documents.VoterIDPath
	default:
		return nil, "", fmt.Errorf("%w: unknown document type %q", apperrors.ErrInvalidArgument, docType)
	}

	if path == nil || *path == "" {
		return nil, "", fmt.Errorf("%w: no %s file found for customer %s", apperrors.ErrNotFound, docType, cust.Code)
	}

	rc, err := s.store.Open(*path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: no %s file found for customer %s", apperrors.ErrNotFound, docType, cust.Code)
	}
	return rc, *path, nil
}

func validateNewCustomer(input NewCustomerInput) error {
	if input.FirstName == "" {
		return apperrors.NewValidationError("firstName", "is required")
	}
	if input.DateOfBirth.IsZero() {
		return apperrors.NewValidationError("dateOfBirth", "is required")
	}
	if err := validation.Email("email", input.Email); err != nil {
		return err
	}
	if err := validation.Phone("phone", input.Phone); err != nil {
		return err
	}
	if input.AddressLine1 == "" || input.City == "" || input.State == "" || input.Country == "" || input.PostalCode == "" {
		return apperrors.NewValidationError("address", "address line 1, city, state, country and postal code are required")
	}
	if input.PreferredAccountType == "" {
		return apperrors.NewValidationError("accountType", "is required")
	}
	return nil
}
