package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tallybook/tally/internal/auth"
	"github.com/tallybook/tally/internal/handler/dto"
	"github.com/tallybook/tally/internal/service"
)

// AuthHandler handles account endpoints.
type AuthHandler struct {
	svc    *service.AccountService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger,
	}
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	_, err := h.svc.Signup(r.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.MessageResponse{
		Success: true,
		Message: "Signup successfully",
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	result, err := h.svc.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Success:  true,
		Message:  "Login Success",
		JWTToken: result.Token,
		Email:    result.User.Email,
		Name:     result.User.Name,
	})
}

// DeleteAccount handles DELETE /account.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized, JWT token is required")
		return
	}

	if err := h.svc.DeleteAccount(r.Context(), userID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{
		Success: true,
		Message: "Account deleted successfully",
	})
}

// handleServiceError maps service errors to HTTP responses.
func (h *AuthHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, service.ErrEmailExists):
		writeError(w, http.StatusConflict, "User already exists, you can login")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Auth failed: email or password is wrong")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		h.logger.ErrorContext(r.Context(), "internal_error", "path", r.URL.Path, "error", err)
		writeInternalError(w, err)
	}
}
