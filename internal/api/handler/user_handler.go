package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"corebank/internal/api/handler/dto"
	"corebank/internal/domain/identity"
	"corebank/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	service identity.IdentityService
	logger  *slog.Logger
}

func NewUserHandler(s identity.IdentityService, l *slog.Logger) *UserHandler {
	if s == nil {
		panic("identity service cannot be nil")
	}
	return &UserHandler{
		service: s,
		logger:  l.With("component", "UserHandler"),
	}
}

func getUserCodeFromURL(r *http.Request) (string, error) {
	code := chi.URLParam(r, "userCode")
	if code == "" {
		return "", fmt.Errorf("%w: userCode not found in URL path", apperrors.ErrInvalidArgument)
	}
	return code, nil
}

// CreateUser handles POST /users
// @Summary Create a user with an explicit role
// @Description Creates a user of any role. Only a SuperAdmin may call this.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body dto.CreateUserRequest true "User creation payload"
// @Success 201 {object} dto.UserResponse "User successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or unknown role"
// @Failure 403 {object} dto.ErrorResponse "Caller is not a SuperAdmin"
// @Failure 409 {object} dto.ErrorResponse "Email or phone already registered"
// @Router /users [post]
// @Security BearerAuth
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	role, err := identity.ParseRole(req.Role)
	if err != nil {
		respondError(w, err)
		return
	}
	input := req.ToInput()
	input.Role = role

	user, err := h.service.CreateUser(r.Context(), principal, input)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to create user", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "User created", slog.String("code", user.Code), slog.String("role", string(user.Role)))
	respondJSON(w, http.StatusCreated, dto.NewUserResponse(user))
}

// ListUsers handles GET /users
// @Summary List all users
// @Description Lists every user account. Restricted to back-office roles.
// @Tags Users
// @Produce json
// @Success 200 {array} dto.UserResponse "List of users"
// @Failure 403 {object} dto.ErrorResponse "Caller may not list users"
// @Router /users [get]
// @Security BearerAuth
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	users, err := h.service.ListUsers(r.Context(), principal)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := make([]dto.UserResponse, len(users))
	for i := range users {
		resp[i] = dto.NewUserResponse(&users[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// UpdateUser handles PUT /users/{userCode}
// @Summary Update a user
// @Tags Users
// @Accept json
// @Produce json
// @Param userCode path string true "User code"
// @Param request body dto.UpdateUserRequest true "Fields to update"
// @Success 200 {object} dto.UserResponse "User updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 403 {object} dto.ErrorResponse "Caller may not update this user"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/{userCode} [put]
// @Security BearerAuth
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	code, err := getUserCodeFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	input := identity.UpdateUserInput{
		Username:  req.Username,
		Phone:     req.Phone,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.Status != nil {
		status := identity.UserStatus(*req.Status)
		if status != identity.UserStatusActive && status != identity.UserStatusInactive {
			respondError(w, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidArgument, *req.Status))
			return
		}
		input.Status = &status
	}

	user, err := h.service.UpdateUser(r.Context(), principal, code, input)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to update user", slog.String("code", code), slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewUserResponse(user))
}

// DeleteUser handles DELETE /users/{userCode}
// @Summary Delete a user
// @Description Removes a user account. A SuperAdmin cannot delete their own account.
// @Tags Users
// @Produce json
// @Param userCode path string true "User code"
// @Success 204 "User deleted"
// @Failure 400 {object} dto.ErrorResponse "Attempted self-deletion"
// @Failure 403 {object} dto.ErrorResponse "Caller is not a SuperAdmin"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/{userCode} [delete]
// @Security BearerAuth
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}

	code, err := getUserCodeFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.DeleteUser(r.Context(), principal, code); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to delete user", slog.String("code", code), slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "User deleted", slog.String("code", code))
	respondJSON(w, http.StatusNoContent, nil)
}
