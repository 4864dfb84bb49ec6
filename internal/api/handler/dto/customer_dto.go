package dto

import (
	"time"

	"corebank/internal/domain/customer"
)

type UpdateKYCStatusRequest struct {
	Status string `json:"status"`
}

type IdentityDocumentsResponse struct {
	NationalIDNumber     *string `json:"nationalIdNumber,omitempty"`
	PassportNumber       *string `json:"passportNumber,omitempty"`
	AadhaarNumber        *string `json:"aadhaarNumber,omitempty"`
	DrivingLicenseNumber *string `json:"drivingLicenseNumber,omitempty"`
	VoterIDNumber        *string `json:"voterIdNumber,omitempty"`
	PANNumber            *string `json:"panNumber,omitempty"`

	HasNationalIDFile     bool `json:"hasNationalIdFile"`
	HasPassportFile       bool `json:"hasPassportFile"`
	HasAadhaarFile        bool `json:"hasAadhaarFile"`
	HasDrivingLicenseFile bool `json:"hasDrivingLicenseFile"`
	HasVoterIDFile        bool `json:"hasVoterIdFile"`
}

type CustomerResponse struct {
	Code          string `json:"code"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	DateOfBirth   string `json:"dateOfBirth"`
	Gender        string `json:"gender"`
	MaritalStatus string `json:"maritalStatus,omitempty"`

	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	AlternatePhone *string `json:"alternatePhone,omitempty"`
	AddressLine1   string  `json:"addressLine1"`
	AddressLine2   *string `json:"addressLine2,omitempty"`
	City           string  `json:"city"`
	State          string  `json:"state"`
	Country        string  `json:"country"`
	PostalCode     string  `json:"postalCode"`

	Documents     IdentityDocumentsResponse `json:"documents"`
	KYCStatus     string                    `json:"kycStatus"`
	KYCVerifiedAt *time.Time                `json:"kycVerifiedAt,omitempty"`

	PreferredAccountType string  `json:"preferredAccountType,omitempty"`
	Status               string  `json:"status"`
	Occupation           *string `json:"occupation,omitempty"`
	AnnualIncome         *string `json:"annualIncome,omitempty"`
	RiskCategory         string  `json:"riskCategory,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func hasFile(path *string) bool {
	return path != nil && *path != ""
}

func NewCustomerResponse(cust *customer.Customer) CustomerResponse {
	if cust == nil {
		return CustomerResponse{}
	}

	docs := cust.Documents
	return CustomerResponse{
		Code:          cust.Code,
		FirstName:     cust.FirstName,
		LastName:      cust.LastName,
		DateOfBirth:   cust.DateOfBirth.Format(time.RFC3339[:10]),
		Gender:        string(cust.Gender),
		MaritalStatus: string(cust.MaritalStatus),

		Email:          cust.Email,
		Phone:          cust.Phone,
		AlternatePhone: cust.AlternatePhone,
		AddressLine1:   cust.AddressLine1,
		AddressLine2:   cust.AddressLine2,
		City:           cust.City,
		State:          cust.State,
		Country:        cust.Country,
		PostalCode:     cust.PostalCode,

		Documents: IdentityDocumentsResponse{
			NationalIDNumber:      docs.NationalIDNumber,
			PassportNumber:        docs.PassportNumber,
			AadhaarNumber:         docs.AadhaarNumber,
			DrivingLicenseNumber:  docs.DrivingLicenseNumber,
			VoterIDNumber:         docs.VoterIDNumber,
			PANNumber:             docs.PANNumber,
			HasNationalIDFile:     hasFile(docs.NationalIDPath),
			HasPassportFile:       hasFile(docs.PassportPath),
			HasAadhaarFile:        hasFile(docs.AadhaarPath),
			HasDrivingLicenseFile: hasFile(docs.DrivingLicensePath),
			HasVoterIDFile:        hasFile(docs.VoterIDPath),
		},
		KYCStatus:     string(cust.KYCStatus),
		KYCVerifiedAt: cust.KYCVerifiedAt,

		PreferredAccountType: cust.PreferredAccountType,
		Status:               string(cust.Status),
		Occupation:           cust.Occupation,
		AnnualIncome:         cust.AnnualIncome,
		RiskCategory:         string(cust.RiskCategory),

		CreatedAt: cust.CreatedAt,
		UpdatedAt: cust.UpdatedAt,
	}
}
