package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"corebank/internal/pkg/apperrors"
	"corebank/internal/pkg/validation"

	"golang.org/x/crypto/bcrypt"
)

type NewUserInput struct {
	Username    string
	Email       string
	Phone       string
	Password    string
	FirstName   string
	LastName    string
	Gender      string
	DateOfBirth *time.Time
	Role        Role
}

type UpdateUserInput struct {
	Username  *string
	Phone     *string
	FirstName *string
	LastName  *string
	Status    *UserStatus
}

type IdentityService interface {
	Signup(ctx context.Context, input NewUserInput) (*User, error)

	CreateUser(ctx context.Context, actor Principal, input NewUserInput) (*User, error)

	Authenticate(ctx context.Context, email, password string) (*User, error)

	GetProfile(ctx context.Context, actor Principal) (*User, error)

	ListUsers(ctx context.Context, actor Principal) ([]User, error)

	UpdateUser(ctx context.Context, actor Principal, userCode string, input UpdateUserInput) (*User, error)

	DeleteUser(ctx context.Context, actor Principal, userCode string) error
}

type identityServiceImpl struct {
	repo   Repository
	logger *slog.Logger
}

func NewIdentityService(r Repository, logger *slog.Logger) IdentityService {
	return &identityServiceImpl{repo: r, logger: logger.With("component", "IdentityService")}
}

// Signup registers a self-service user. The role is always Customer; staff
// accounts go through CreateUser.
func (s *identityServiceImpl) Signup(ctx context.Context, input NewUserInput) (*User, error) {
	input.Role = RoleCustomer
	return s.register(ctx, input)
}

func (s *identityServiceImpl) CreateUser(ctx context.Context, actor Principal, input NewUserInput) (*User, error) {
	if actor.Role != RoleSuperAdmin {
		s.logger.Warn("Rejected staff user creation by non-superadmin", "actorRole", actor.Role)
		return nil, fmt.Errorf("%w: only a SuperAdmin may create staff users", apperrors.ErrForbidden)
	}
	if _, err := ParseRole(string(input.Role)); err != nil {
		return nil, err
	}
	return s.register(ctx, input)
}

func (s *identityServiceImpl) register(ctx context.Context, input NewUserInput) (*User, error) {
	s.logger.Info("Registering user", "email", input.Email, "role", input.Role)

	if err := validateNewUser(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetUserByEmailOrPhone(ctx, input.Email, input.Phone)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.Error("Failed to check user uniqueness", "error", err)
		return nil, fmt.Errorf("failed to check user uniqueness: %w", err)
	}
	if existing != nil {
		s.logger.Warn("Duplicate signup attempt", "email", input.Email)
		return nil, fmt.Errorf("%w: a user with this email or phone already exists", apperrors.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("Failed to hash password", "error", err)
		return nil, fmt.Errorf("%w: failed to hash password: %v", apperrors.ErrInternalServer, err)
	}

	code, err := s.repo.NextUserCode(ctx, input.Role.CodePrefix())
	if err != nil {
		s.logger.Error("Failed to allocate user code", "error", err)
		return nil, fmt.Errorf("failed to allocate user code: %w", err)
	}

	user := &User{
		Code:         code,
		Username:     input.Username,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Gender:       input.Gender,
		DateOfBirth:  input.DateOfBirth,
		Role:         input.Role,
		Status:       UserStatusActive,
	}

	created, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) || errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: a user with this email or phone already exists", apperrors.ErrConflict)
		}
		s.logger.Error("Failed to create user", "error", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", "userCode", created.Code, "role", created.Role)
	return created, nil
}

func (s *identityServiceImpl) Authenticate(ctx context.Context, email, password string) (*User, error) {
	s.logger.Info("Authenticating user", "email", email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
		}
		s.logger.Error("Failed to look up user for login", "error", err)
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("Password mismatch on login", "email", email)
		return nil, fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
	}

	if user.Status != UserStatusActive {
		return nil, fmt.Errorf("%w: user account is not active", apperrors.ErrForbidden)
	}

	if err := s.repo.TouchLastActivity(ctx, user.ID); err != nil {
		s.logger.Warn("Failed to stamp last activity", "userID", user.ID, "error", err)
	}

	return user, nil
}

func (s *identityServiceImpl) GetProfile(ctx context.Context, actor Principal) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d not found", apperrors.ErrNotFound, actor.UserID)
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	if err := s.repo.TouchLastActivity(ctx, user.ID); err != nil {
		s.logger.Warn("Failed to stamp last activity", "userID", user.ID, "error", err)
	}

	return user, nil
}

func (s *identityServiceImpl) ListUsers(ctx context.Context, actor Principal) ([]User, error) {
	if actor.Role != RoleSuperAdmin {
		return nil, fmt.Errorf("%w: only a SuperAdmin may list users", apperrors.ErrForbidden)
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		s.logger.Error("Failed to list users", "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *identityServiceImpl) UpdateUser(ctx context.Context, actor Principal, userCode string, input UpdateUserInput) (*User, error) {
	if actor.Role != RoleSuperAdmin {
		return nil, fmt.Errorf("%w: only a SuperAdmin may update users", apperrors.ErrForbidden)
	}

	user, err := s.repo.GetUserByCode(ctx, userCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s not found", apperrors.ErrNotFound, userCode)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if input.Username != nil {
		user.Username = *input.Username
	}
	if input.Phone != nil {
		if err := validation.Phone("phone", *input.Phone); err != nil {
			return nil, err
		}
		user.Phone = *input.Phone
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Status != nil {
		if *input.Status != UserStatusActive && *input.Status != UserStatusInactive {
			return nil, fmt.Errorf("%w: unknown user status %q", apperrors.ErrInvalidArgument, *input.Status)
		}
		user.Status = *input.Status
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		s.logger.Error("Failed to update user", "userCode", userCode, "error", err)
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("User updated", "userCode", userCode)
	return user, nil
}

func (s *identityServiceImpl) DeleteUser(ctx context.Context, actor Principal, userCode string) error {
	if actor.Role != RoleSuperAdmin {
		return fmt.Errorf("%w: only a SuperAdmin may delete users", apperrors.ErrForbidden)
	}

	user, err := s.repo.GetUserByCode(ctx, userCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: user %s not found", apperrors.ErrNotFound, userCode)
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if user.ID == actor.UserID {
		return fmt.Errorf("%w: cannot delete your own account", apperrors.ErrInvalidArgument)
	}

	if err := s.repo.DeleteUser(ctx, user.ID); err != nil {
		s.logger.Error("Failed to delete user", "userCode", userCode, "error", err)
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("User deleted", "userCode", userCode)
	return nil
}

func validateNewUser(input NewUserInput) error {
	if input.Username == "" {
		return apperrors.NewValidationError("username", "is required")
	}
	if err := validation.Email("email", input.Email); err != nil {
		return err
	}
	if err := validation.Phone("phone", input.Phone); err != nil {
		return err
	}
	if len(input.Password) < 8 {
		return apperrors.NewValidationError("password", "must be at least 8 characters")
	}
	if input.FirstName == "" {
		return apperrors.NewValidationError("firstName", "is required")
	}
	return nil
}
