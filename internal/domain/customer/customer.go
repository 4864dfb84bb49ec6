package customer

import (
	"fmt"
	"time"

	"corebank/internal/pkg/apperrors"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

type MaritalStatus string

const (
	MaritalSingle   MaritalStatus = "Single"
	MaritalMarried  MaritalStatus = "Married"
	MaritalDivorced MaritalStatus = "Divorced"
	MaritalWidowed  MaritalStatus = "Widowed"
)

type KYCStatus string

const (
	KYCPending  KYCStatus = "Pending"
	KYCVerified KYCStatus = "Verified"
	KYCRejected KYCStatus = "Rejected"
)

func ParseKYCStatus(raw string) (KYCStatus, error) {
	switch KYCStatus(raw) {
	case KYCPending, KYCVerified, KYCRejected:
		return KYCStatus(raw), nil
	}
	return "", fmt.Errorf("%w: unknown KYC status %q", apperrors.ErrInvalidArgument, raw)
}

type Status string

const (
	StatusActive    Status = "Active"
	StatusInactive  Status = "Inactive"
	StatusSuspended Status = "Suspended"
	StatusClosed    Status = "Closed"
)

type RiskCategory string

const (
	RiskLow    RiskCategory = "Low"
	RiskMedium RiskCategory = "Medium"
	RiskHigh   RiskCategory = "High"
)

// IdentityDocuments carries the optional KYC document numbers and their
// stored file paths. A nil field means the customer has not supplied it.
type IdentityDocuments struct {
	NationalIDNumber     *string
	PassportNumber       *string
	AadhaarNumber        *string
	DrivingLicenseNumber *string
	VoterIDNumber        *string
	PANNumber            *string

	NationalIDPath     *string
	PassportPath       *string
	AadhaarPath        *string
	DrivingLicensePath *string
	VoterIDPath        *string
}

type Customer struct {
	ID   int64
	Code string

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

	Documents     IdentityDocuments
	KYCStatus     KYCStatus
	KYCVerifiedAt *time.Time
	KYCVerifiedBy *int64

	PreferredAccountType string
	Status               Status

	ProfilePhotoPath   *string
	SignatureImagePath *string
	Occupation         *string
	AnnualIncome       *string
	RiskCategory       RiskCategory
	Notes              *string

	UserID int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MissingKYCDocuments lists what blocks verification: every supplied document
// number needs a stored file, and PAN is always required.
func (c *Customer) MissingKYCDocuments() []string {
	var missing []string
	pairs := []struct {
		name   string
		number *string
		path   *string
	}{
		{"national_id", c.Documents.NationalIDNumber, c.Documents.NationalIDPath},
		{"passport", c.Documents.PassportNumber, c.Documents.PassportPath},
		{"aadhaar", c.Documents.AadhaarNumber, c.Documents.AadhaarPath},
		{"driving_license", c.Documents.DrivingLicenseNumber, c.Documents.DrivingLicensePath},
		{"voter_id", c.Documents.VoterIDNumber, c.Documents.VoterIDPath},
	}
	for _, p := range pairs {
		if p.number != nil && *p.number != "" && (p.path == nil || *p.path == "") {
			missing = append(missing, p.name+" document file")
		}
	}
	if c.Documents.PANNumber == nil || *c.Documents.PANNumber == "" {
		missing = append(missing, "pan number")
	}
	return missing
}
