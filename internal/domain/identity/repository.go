package identity

import "context"

type Repository interface {
	CreateUser(ctx context.Context, user *User) (*User, error)

	GetUserByEmail(ctx context.Context, email string) (*User, error)

	GetUserByEmailOrPhone(ctx context.Context, email, phone string) (*User, error)

	GetUserByCode(ctx context.Context, code string) (*User, error)

	GetUserByID(ctx context.Context, id int64) (*User, error)

	ListUsers(ctx context.Context) ([]User, error)

	UpdateUser(ctx context.Context, user *User) error

	DeleteUser(ctx context.Context, id int64) error

	TouchLastActivity(ctx context.Context, id int64) error

	NextUserCode(ctx context.Context, prefix string) (string, error)
}
