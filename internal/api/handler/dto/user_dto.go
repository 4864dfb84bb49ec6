package dto

import (
	"fmt"
	"strings"
	"time"

	"corebank/internal/domain/identity"
)

type SignupRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"dateOfBirth"`
}

func (r *SignupRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if strings.TrimSpace(r.Email) == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if r.Password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if r.DateOfBirth != "" {
		if _, err := time.Parse(time.RFC3339[:10], r.DateOfBirth); err != nil {
			return fmt.Errorf("invalid dateOfBirth format (use YYYY-MM-DD): %w", err)
		}
	}
	return nil
}

// ToInput converts the request to the service input. Validate must have
// passed before calling this.
func (r *SignupRequest) ToInput() identity.NewUserInput {
	input := identity.NewUserInput{
		Username:  r.Username,
		Email:     r.Email,
		Phone:     r.Phone,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Gender:    r.Gender,
	}
	if r.DateOfBirth != "" {
		dob, _ := time.Parse(time.RFC3339[:10], r.DateOfBirth)
		input.DateOfBirth = &dob
	}
	return input
}

type CreateUserRequest struct {
	SignupRequest
	Role string `json:"role"`
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return fmt.Errorf("email and password are required")
	}
	return nil
}

type UpdateUserRequest struct {
	Username  *string `json:"username,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Status    *string `json:"status,omitempty"`
}

type TokenResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"tokenType"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

type UserResponse struct {
	Code         string     `json:"code"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Gender       string     `json:"gender,omitempty"`
	DateOfBirth  *string    `json:"dateOfBirth,omitempty"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func NewUserResponse(u *identity.User) UserResponse {
	if u == nil {
		return UserResponse{}
	}
	var dob *string
	if u.DateOfBirth != nil {
		s := u.DateOfBirth.Format(time.RFC3339[:10])
		dob = &s
	}
	return UserResponse{
		Code:         u.Code,
		Username:     u.Username,
		Email:        u.Email,
		Phone:        u.Phone,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Gender:       u.Gender,
		DateOfBirth:  dob,
		Role:         string(u.Role),
		Status:       string(u.Status),
		LastActivity: u.LastActivity,
		CreatedAt:    u.CreatedAt,
	}
}
