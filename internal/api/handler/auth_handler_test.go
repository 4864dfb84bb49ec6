package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"corebank/internal/api/handler/dto"
	"corebank/internal/config"
	"corebank/internal/domain/identity"
	"corebank/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockIdentityService struct {
	mock.Mock
}

func (m *MockIdentityService) Signup(ctx context.Context, input identity.NewUserInput) (*identity.User, error) {
	args := m.Called(ctx, input)
	if u, ok := args.Get(0).(*identity.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityService) CreateUser(ctx context.Context, actor identity.Principal, input identity.NewUserInput) (*identity.User, error) {
	args := m.Called(ctx, actor, input)
	if u, ok := args.Get(0).(*identity.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityService) Authenticate(ctx context.Context, email, password string) (*identity.User, error) {
	args := m.Called(ctx, email, password)
	if u, ok := args.Get(0).(*identity.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityService) GetProfile(ctx context.Context, actor identity.Principal) (*identity.User, error) {
	args := m.Called(ctx, actor)
	if u, ok := args.Get(0).(*identity.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityService) ListUsers(ctx context.Context, actor identity.Principal) ([]identity.User, error) {
	args := m.Called(ctx, actor)
	users, _ := args.Get(0).([]identity.User)
	return users, args.Error(1)
}

func (m *MockIdentityService) UpdateUser(ctx context.Context, actor identity.Principal, userCode string, input identity.UpdateUserInput) (*identity.User, error) {
	args := m.Called(ctx, actor, userCode, input)
	if u, ok := args.Get(0).(*identity.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityService) DeleteUser(ctx context.Context, actor identity.Principal, userCode string) error {
	args := m.Called(ctx, actor, userCode)
	return args.Error(0)
}

var testAuthConfig = config.AuthConfig{
	Enabled:       true,
	JWTSecret:     "test-secret-for-handler-tests",
	TokenTTL:      time.Hour,
	RememberMeTTL: 30 * 24 * time.Hour,
}

func TestAuthHandlerSignup(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("registers a new customer login", func(t *testing.T) {
		mockService := new(MockIdentityService)
		handler := NewAuthHandler(mockService, testAuthConfig, logger)

		created := &identity.User{
			Code:     "CST0042",
			Username: "jane.smith",
			Email:    "jane@example.com",
			Role:     identity.RoleCustomer,
			Status:   identity.UserStatusActive,
		}
		mockService.On("Signup", mock.Anything, mock.MatchedBy(func(input identity.NewUserInput) bool {
			return input.Username == "jane.smith" && input.Email == "jane@example.com"
		})).Return(created, nil)

		body := jsonBody(t, dto.SignupRequest{
			Username:  "jane.smith",
			Email:     "jane@example.com",
			Phone:     "+6281234567890",
			Password:  "s3cret-pass",
			FirstName: "Jane",
			LastName:  "Smith",
		})
		rec := httptest.NewRecorder()

		handler.Signup(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", body))

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.UserResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "CST0042", resp.Code)
		assert.Equal(t, string(identity.RoleCustomer), resp.Role)
		mockService.AssertExpectations(t)
	})

	t.Run("returns 409 for a duplicate email", func(t *testing.T) {
		mockService := new(MockIdentityService)
		handler := NewAuthHandler(mockService, testAuthConfig, logger)

		mockService.On("Signup", mock.Anything, mock.Anything).
			Return((*identity.User)(nil), fmt.Errorf("%w: email is already registered", apperrors.ErrAlreadyExists))

		body := jsonBody(t, dto.SignupRequest{
			Username: "jane.smith",
			Email:    "jane@example.com",
			Password: "s3cret-pass",
		})
		rec := httptest.NewRecorder()

		handler.Signup(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", body))

		assert.Equal(t, http.StatusConflict, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects a malformed date of birth without calling the service", func(t *testing.T) {
		mockService := new(MockIdentityService)
		handler := NewAuthHandler(mockService, testAuthConfig, logger)

		body := jsonBody(t, dto.SignupRequest{
			Username:    "jane.smith",
			Email:       "jane@example.com",
			Password:    "s3cret-pass",
			DateOfBirth: "31-12-1990",
		})
		rec := httptest.NewRecorder()

		handler.Signup(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", body))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "Signup")
	})
}

func TestAuthHandlerLogin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("issues a bearer token for valid credentials", func(t *testing.T) {
		mockService := new(MockIdentityService)
		handler := NewAuthHandler(mockService, testAuthConfig, logger)

		user := &identity.User{
			ID:       42,
			Code:     "CST0042",
			Username: "jane.smith",
			Email:    "jane@example.com",
			Role:     identity.RoleCustomer,
			Status:   identity.UserStatusActive,
		}
		mockService.On("Authenticate", mock.Anything, "jane@example.com", "s3cret-pass").
			Return(user, nil)

		body := jsonBody(t, dto.LoginRequest{Email: "jane@example.com", Password: "s3cret-pass"})
		rec := httptest.NewRecorder()

		handler.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", body))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.TokenResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.Equal(t, "CST0042", resp.User.Code)
		assert.WithinDuration(t, time.Now().Add(testAuthConfig.TokenTTL), resp.ExpiresAt, time.Minute)
		mockService.AssertExpectations(t)
	})

	t.Run("returns 401 for wrong credentials", func(t *testing.T) {
		mockService := new(MockIdentityService)
		handler := NewAuthHandler(mockService, testAuthConfig, logger)

		mockService.On("Authenticate", mock.Anything, "jane@example.com", "wrong").
			Return((*identity.User)(nil), fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized))

		body := jsonBody(t, dto.LoginRequest{Email: "jane@example.com", Password: "wrong"})
		rec := httptest.NewRecorder()

		handler.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", body))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("requires email and password", func(t *testing.T) {
		mockService := new(MockIdentityService)
		handler := NewAuthHandler(mockService, testAuthConfig, logger)

		body := jsonBody(t, dto.LoginRequest{Email: "jane@example.com"})
		rec := httptest.NewRecorder()

		handler.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", body))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "Authenticate")
	})
}

func TestAuthHandlerLogout(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("acknowledges logout for an authenticated caller", func(t *testing.T) {
		mockService := new(MockIdentityService)
		handler := NewAuthHandler(mockService, testAuthConfig, logger)

		rec := httptest.NewRecorder()
		handler.Logout(rec, authedRequest(http.MethodPost, "/auth/logout", nil, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]string
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "Logged out", resp["message"])
	})

	t.Run("returns 401 without a principal", func(t *testing.T) {
		mockService := new(MockIdentityService)
		handler := NewAuthHandler(mockService, testAuthConfig, logger)

		rec := httptest.NewRecorder()
		handler.Logout(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthHandlerMe(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("returns the caller's profile", func(t *testing.T) {
		mockService := new(MockIdentityService)
		handler := NewAuthHandler(mockService, testAuthConfig, logger)

		user := &identity.User{
			Code:   testPrincipal.Code,
			Email:  testPrincipal.Email,
			Role:   identity.RoleCustomer,
			Status: identity.UserStatusActive,
		}
		mockService.On("GetProfile", mock.Anything, testPrincipal).Return(user, nil)

		rec := httptest.NewRecorder()
		handler.Me(rec, authedRequest(http.MethodGet, "/auth/me", nil, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.UserResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, testPrincipal.Code, resp.Code)
		mockService.AssertExpectations(t)
	})
}
