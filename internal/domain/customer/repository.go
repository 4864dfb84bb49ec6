package customer

import (
	"context"
	"io"
)

type Repository interface {
	CreateCustomer(ctx context.Context, cust *Customer) (*Customer, error)

	GetCustomerByCode(ctx context.Context, code string) (*Customer, error)

	GetCustomerByUserID(ctx context.Context, userID int64) (*Customer, error)

	GetCustomerByEmailOrPhone(ctx context.Context, email, phone string) (*Customer, error)

	ListCustomers(ctx context.Context) ([]Customer, error)

	UpdateCustomer(ctx context.Context, cust *Customer) error

	NextCustomerCode(ctx context.Context) (string, error)
}

// DocumentStore abstracts where uploaded KYC files live. The local disk
// implementation is in internal/infrastructure/storage.
type DocumentStore interface {
	Save(ctx context.Context, name string, content io.Reader) (string, error)

	Open(path string) (io.ReadCloser, error)
}
