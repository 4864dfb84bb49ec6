package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"corebank/internal/domain/customer"
	"corebank/internal/infrastructure/monitoring"
	"corebank/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

const customerColumns = `id, code, first_name, last_name, date_of_birth, gender, marital_status,
        email, phone, alternate_phone, address_line1, address_line2, city, state, country, postal_code,
        national_id_number, passport_number, aadhaar_number, driving_license_number, voter_id_number, pan_number,
        national_id_path, passport_path, aadhaar_path, driving_license_path, voter_id_path,
        kyc_status, kyc_verified_at, kyc_verified_by, preferred_account_type, status,
        profile_photo_path, signature_image_path, occupation, annual_income, risk_category, notes,
        user_id, created_at, updated_at`

type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ customer.Repository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	return &CustomerRepository{db: db, logger: logger.With("component", "CustomerRepository")}
}

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(
		&c.ID, &c.Code, &c.FirstName, &c.LastName, &c.DateOfBirth, &c.Gender, &c.MaritalStatus,
		&c.Email, &c.Phone, &c.AlternatePhone, &c.AddressLine1, &c.AddressLine2,
		&c.City, &c.State, &c.Country, &c.PostalCode,
		&c.Documents.NationalIDNumber, &c.Documents.PassportNumber, &c.Documents.AadhaarNumber,
		&c.Documents.DrivingLicenseNumber, &c.Documents.VoterIDNumber, &c.Documents.PANNumber,
		&c.Documents.NationalIDPath, &c.Documents.PassportPath, &c.Documents.AadhaarPath,
		&c.Documents.DrivingLicensePath, &c.Documents.VoterIDPath,
		&c.KYCStatus, &c.KYCVerifiedAt, &c.KYCVerifiedBy, &c.PreferredAccountType, &c.Status,
		&c.ProfilePhotoPath, &c.SignatureImagePath, &c.Occupation, &c.AnnualIncome, &c.RiskCategory, &c.Notes,
		&c.UserID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) CreateCustomer(ctx context.Context, cust *customer.Customer) (*customer.Customer, error) {
	query := `
        INSERT INTO customers (code, first_name, last_name, date_of_birth, gender, marital_status,
            email, phone, alternate_phone, address_line1, address_line2, city, state, country, postal_code,
            national_id_number, passport_number, aadhaar_number, driving_license_number, voter_id_number, pan_number,
            national_id_path, passport_path, aadhaar_path, driving_license_path, voter_id_path,
            kyc_status, preferred_account_type, status,
            profile_photo_path, signature_image_path, occupation, annual_income, risk_category, notes,
            user_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
            $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, NOW(), NOW())
        RETURNING ` + customerColumns

	status := "success"
	startTime := time.Now()

	created, err := scanCustomer(r.db.QueryRow(ctx, query,
		cust.Code, cust.FirstName, cust.LastName, cust.DateOfBirth, cust.Gender, cust.MaritalStatus,
		cust.Email, cust.Phone, cust.AlternatePhone, cust.AddressLine1, cust.AddressLine2,
		cust.City, cust.State, cust.Country, cust.PostalCode,
		cust.Documents.NationalIDNumber, cust.Documents.PassportNumber, cust.Documents.AadhaarNumber,
		cust.Documents.DrivingLicenseNumber, cust.Documents.VoterIDNumber, cust.Documents.PANNumber,
		cust.Documents.NationalIDPath, cust.Documents.PassportPath, cust.Documents.AadhaarPath,
		cust.Documents.DrivingLicensePath, cust.Documents.VoterIDPath,
		cust.KYCStatus, cust.PreferredAccountType, cust.Status,
		cust.ProfilePhotoPath, cust.SignatureImagePath, cust.Occupation, cust.AnnualIncome,
		cust.RiskCategory, cust.Notes, cust.UserID,
	))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("CreateCustomer", status, time.Since(startTime))

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			return nil, translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to insert customer", "error", err)
		return nil, fmt.Errorf("%w: failed to insert customer: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Customer created in DB", "customer_id", created.ID, "code", created.Code)
	return created, nil
}

func (r *CustomerRepository) GetCustomerByCode(ctx context.Context, code string) (*customer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE code = $1`
	return r.getCustomer(ctx, "GetCustomerByCode", query, code)
}

func (r *CustomerRepository) GetCustomerByUserID(ctx context.Context, userID int64) (*customer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE user_id = $1`
	return r.getCustomer(ctx, "GetCustomerByUserID", query, userID)
}

func (r *CustomerRepository) GetCustomerByEmailOrPhone(ctx context.Context, email, phone string) (*customer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email = $1 OR phone = $2`
	return r.getCustomer(ctx, "GetCustomerByEmailOrPhone", query, email, phone)
}

func (r *CustomerRepository) getCustomer(ctx context.Context, queryName, query string, args ...any) (*customer.Customer, error) {
	status := "success"
	startTime := time.Now()

	c, err := scanCustomer(r.db.QueryRow(ctx, query, args...))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery(queryName, status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get customer", "query", queryName, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return c, nil
}

func (r *CustomerRepository) ListCustomers(ctx context.Context) ([]customer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query customers", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	customers := make([]customer.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan customer row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		customers = append(customers, *c)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating customer rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return customers, nil
}

func (r *CustomerRepository) UpdateCustomer(ctx context.Context, cust *customer.Customer) error {
	query := `
        UPDATE customers
        SET first_name = $1, last_name = $2, date_of_birth = $3, gender = $4, marital_status = $5,
            email = $6, phone = $7, alternate_phone = $8, address_line1 = $9, address_line2 = $10,
            city = $11, state = $12, country = $13, postal_code = $14,
            national_id_number = $15, passport_number = $16, aadhaar_number = $17,
            driving_license_number = $18, voter_id_number = $19, pan_number = $20,
            national_id_path = $21, passport_path = $22, aadhaar_path = $23,
            driving_license_path = $24, voter_id_path = $25,
            kyc_status = $26, kyc_verified_at = $27, kyc_verified_by = $28,
            preferred_account_type = $29, status = $30,
            profile_photo_path = $31, signature_image_path = $32, occupation = $33,
            annual_income = $34, risk_category = $35, notes = $36, updated_at = NOW()
        WHERE id = $37`

	status := "success"
	startTime := time.Now()

	cmdTag, err := r.db.Exec(ctx, query,
		cust.FirstName, cust.LastName, cust.DateOfBirth, cust.Gender, cust.MaritalStatus,
		cust.Email, cust.Phone, cust.AlternatePhone, cust.AddressLine1, cust.AddressLine2,
		cust.City, cust.State, cust.Country, cust.PostalCode,
		cust.Documents.NationalIDNumber, cust.Documents.PassportNumber, cust.Documents.AadhaarNumber,
		cust.Documents.DrivingLicenseNumber, cust.Documents.VoterIDNumber, cust.Documents.PANNumber,
		cust.Documents.NationalIDPath, cust.Documents.PassportPath, cust.Documents.AadhaarPath,
		cust.Documents.DrivingLicensePath, cust.Documents.VoterIDPath,
		cust.KYCStatus, cust.KYCVerifiedAt, cust.KYCVerifiedBy,
		cust.PreferredAccountType, cust.Status,
		cust.ProfilePhotoPath, cust.SignatureImagePath, cust.Occupation,
		cust.AnnualIncome, cust.RiskCategory, cust.Notes, cust.ID,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("UpdateCustomer", status, time.Since(startTime))

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			return translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to update customer", "customer_id", cust.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: customer %d not found", apperrors.ErrNotFound, cust.ID)
	}
	return nil
}

func (r *CustomerRepository) NextCustomerCode(ctx context.Context) (string, error) {
	return nextCode(ctx, r.db, "CUST")
}
