package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"corebank/internal/api/handler/dto"
	mw "corebank/internal/api/middleware"
	"corebank/internal/config"
	"corebank/internal/domain/identity"
	"corebank/internal/pkg/apperrors"
)

type AuthHandler struct {
	service identity.IdentityService
	cfg     config.AuthConfig
	logger  *slog.Logger
}

func NewAuthHandler(s identity.IdentityService, cfg config.AuthConfig, l *slog.Logger) *AuthHandler {
	if s == nil {
		panic("identity service cannot be nil")
	}
	return &AuthHandler{
		service: s,
		cfg:     cfg,
		logger:  l.With("component", "AuthHandler"),
	}
}

// Signup handles POST /auth/signup
// @Summary Register a new customer login
// @Description Creates a customer-role user account. Back-office accounts are created by a SuperAdmin through /users.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.SignupRequest true "Signup payload"
// @Success 201 {object} dto.UserResponse "User successfully registered"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 409 {object} dto.ErrorResponse "Email or phone already registered"
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode signup request", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	user, err := h.service.Signup(r.Context(), req.ToInput())
	if err != nil {
		h.logger.WarnContext(r.Context(), "Signup failed", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "User signed up", slog.String("code", user.Code))
	respondJSON(w, http.StatusCreated, dto.NewUserResponse(user))
}

// Login handles POST /auth/login
// @Summary Authenticate and issue a bearer token
// @Description Verifies credentials and returns a signed JWT. Remember-me extends the token lifetime.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login payload"
// @Success 200 {object} dto.TokenResponse "Token successfully issued"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 403 {object} dto.ErrorResponse "Account is inactive"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Login failed", slog.String("email", req.Email))
		respondError(w, err)
		return
	}

	token, expiresAt, err := mw.IssueToken(h.cfg, user, req.RememberMe)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to issue token", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: failed to issue token", apperrors.ErrInternalServer))
		return
	}

	h.logger.InfoContext(r.Context(), "User logged in", slog.String("code", user.Code))
	respondJSON(w, http.StatusOK, dto.TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      dto.NewUserResponse(user),
	})
}

// Logout handles POST /auth/logout
// @Summary Log out
// @Description Tokens are stateless, so logout is client-side discard. The call is kept for API symmetry and audit logging.
// @Tags Authentication
// @Produce json
// @Success 200 {object} map[string]string "Logged out"
// @Failure 401 {object} dto.ErrorResponse "Missing or invalid token"
// @Router /auth/logout [post]
// @Security BearerAuth
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "User logged out", slog.String("code", principal.Code))
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me handles GET /auth/me
// @Summary Retrieve the authenticated user's profile
// @Tags Authentication
// @Produce json
// @Success 200 {object} dto.UserResponse "Profile retrieved"
// @Failure 401 {object} dto.ErrorResponse "Missing or invalid token"
// @Router /auth/me [get]
// @Security BearerAuth
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	user, err := h.service.GetProfile(r.Context(), principal)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to load profile", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewUserResponse(user))
}
