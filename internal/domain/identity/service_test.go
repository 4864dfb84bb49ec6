package identity

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"corebank/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

type MockRepository struct {
	mock.Mock
}

func (_m *MockRepository) CreateUser(ctx context.Context, user *User) (*User, error) {
	ret := _m.Called(ctx, user)
	var r0 *User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*User)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	ret := _m.Called(ctx, email)
	var r0 *User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*User)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) GetUserByEmailOrPhone(ctx context.Context, email, phone string) (*User, error) {
	ret := _m.Called(ctx, email, phone)
	var r0 *User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*User)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) GetUserByCode(ctx context.Context, code string) (*User, error) {
	ret := _m.Called(ctx, code)
	var r0 *User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*User)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	ret := _m.Called(ctx, id)
	var r0 *User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*User)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) ListUsers(ctx context.Context) ([]User, error) {
	ret := _m.Called(ctx)
	var r0 []User
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]User)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) UpdateUser(ctx context.Context, user *User) error {
	ret := _m.Called(ctx, user)
	return ret.Error(0)
}

func (_m *MockRepository) DeleteUser(ctx context.Context, id int64) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

func (_m *MockRepository) TouchLastActivity(ctx context.Context, id int64) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

func (_m *MockRepository) NextUserCode(ctx context.Context, prefix string) (string, error) {
	ret := _m.Called(ctx, prefix)
	return ret.String(0), ret.Error(1)
}

func validSignup() NewUserInput {
	return NewUserInput{
		Username:  "janedoe",
		Email:     "jane@example.com",
		Phone:     "9876543210",
		Password:  "s3cretpass",
		FirstName: "Jane",
		LastName:  "Doe",
		Gender:    "Female",
	}
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"SuperAdmin", "Admin", "Auditor", "Customer"} {
		role, err := ParseRole(valid)
		assert.NoError(t, err)
		assert.Equal(t, Role(valid), role)
	}

	_, err := ParseRole("Root")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = ParseRole("customer")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestRoleCodePrefix(t *testing.T) {
	assert.Equal(t, "SRU", RoleSuperAdmin.CodePrefix())
	assert.Equal(t, "ADM", RoleAdmin.CodePrefix())
	assert.Equal(t, "AUD", RoleAuditor.CodePrefix())
	assert.Equal(t, "CST", RoleCustomer.CodePrefix())
}

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a customer user with an allocated code", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewIdentityService(repo, logger)

		repo.On("GetUserByEmailOrPhone", ctx, "jane@example.com", "9876543210").Return(nil, apperrors.ErrNotFound)
		repo.On("NextUserCode", ctx, "CST").Return("CST0001", nil)
		repo.On("CreateUser", ctx, mock.AnythingOfType("*identity.User")).Return(&User{ID: 1, Code: "CST0001", Role: RoleCustomer}, nil)

		user, err := svc.Signup(ctx, validSignup())
		assert.NoError(t, err)
		assert.Equal(t, "CST0001", user.Code)
		assert.Equal(t, RoleCustomer, user.Role)

		created := repo.Calls[2].Arguments.Get(1).(*User)
		assert.Equal(t, RoleCustomer, created.Role)
		assert.NotEqual(t, "s3cretpass", created.PasswordHash)
		repo.AssertExpectations(t)
	})

	t.Run("rejects duplicate email or phone", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewIdentityService(repo, logger)

		repo.On("GetUserByEmailOrPhone", ctx, "jane@example.com", "9876543210").Return(&User{ID: 7}, nil)

		_, err := svc.Signup(ctx, validSignup())
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewIdentityService(repo, logger)

		input := validSignup()
		input.Email = "not-an-email"
		_, err := svc.Signup(ctx, input)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("rejects short password", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewIdentityService(repo, logger)

		input := validSignup()
		input.Password = "short"
		_, err := svc.Signup(ctx, input)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("allows SuperAdmin to create an admin", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewIdentityService(repo, logger)

		input := validSignup()
		input.Role = RoleAdmin
		repo.On("GetUserByEmailOrPhone", ctx, input.Email, input.Phone).Return(nil, apperrors.ErrNotFound)
		repo.On("NextUserCode", ctx, "ADM").Return("ADM0001", nil)
		repo.On("CreateUser", ctx, mock.AnythingOfType("*identity.User")).Return(&User{ID: 2, Code: "ADM0001", Role: RoleAdmin}, nil)

		user, err := svc.CreateUser(ctx, Principal{UserID: 1, Role: RoleSuperAdmin}, input)
		assert.NoError(t, err)
		assert.Equal(t, "ADM0001", user.Code)
	})

	t.Run("forbids non-superadmin actors", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewIdentityService(repo, logger)

		input := validSignup()
		input.Role = RoleAdmin
		_, err := svc.CreateUser(ctx, Principal{UserID: 3, Role: RoleAdmin}, input)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cretpass"), bcrypt.MinCost)
	stored := &User{ID: 5, Email: "jane@example.com", PasswordHash: string(hash), Status: UserStatusActive, Role: RoleCustomer}

	t.Run("returns user and stamps activity on success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewIdentityService(repo, logger)

		repo.On("GetUserByEmail", ctx, "jane@example.com").Return(stored, nil)
		repo.On("TouchLastActivity", ctx, int64(5)).Return(nil)

		user, err := svc.Authenticate(ctx, "jane@example.com", "s3cretpass")
		assert.NoError(t, err)
		assert.Equal(t, int64(5), user.ID)
		repo.AssertCalled(t, "TouchLastActivity", ctx, int64(5))
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewIdentityService(repo, logger)

		repo.On("GetUserByEmail", ctx, "jane@example.com").Return(stored, nil)

		_, err := svc.Authenticate(ctx, "jane@example.com", "wrongpass1")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("rejects unknown email without leaking existence", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewIdentityService(repo, logger)

		repo.On("GetUserByEmail", ctx, "ghost@example.com").Return(nil, apperrors.ErrNotFound)

		_, err := svc.Authenticate(ctx, "ghost@example.com", "s3cretpass")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("rejects inactive user", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewIdentityService(repo, logger)

		inactive := *stored
		inactive.Status = UserStatusInactive
		repo.On("GetUserByEmail", ctx, "jane@example.com").Return(&inactive, nil)

		_, err := svc.Authenticate(ctx, "jane@example.com", "s3cretpass")
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("forbids non-superadmin", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewIdentityService(repo, logger)

		err := svc.DeleteUser(ctx, Principal{UserID: 9, Role: RoleAuditor}, "CST0001")
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("refuses self-deletion", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewIdentityService(repo, logger)

		repo.On("GetUserByCode", ctx, "SRU0001").Return(&User{ID: 1, Code: "SRU0001"}, nil)

		err := svc.DeleteUser(ctx, Principal{UserID: 1, Role: RoleSuperAdmin}, "SRU0001")
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	})

	t.Run("deletes another user", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewIdentityService(repo, logger)

		repo.On("GetUserByCode", ctx, "CST0002").Return(&User{ID: 4, Code: "CST0002"}, nil)
		repo.On("DeleteUser", ctx, int64(4)).Return(nil)

		err := svc.DeleteUser(ctx, Principal{UserID: 1, Role: RoleSuperAdmin}, "CST0002")
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})
}
