package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tallybook/tally/internal/auth"
	"github.com/tallybook/tally/internal/handler/dto"
	"github.com/tallybook/tally/internal/service"
)

// TransactionHandler handles HTTP requests for ledger operations.
type TransactionHandler struct {
	svc    *service.TransactionService
	logger *slog.Logger
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(svc *service.TransactionService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /expenses.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized, JWT token is required")
		return
	}

	var req dto.CreateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	tx, err := h.svc.Create(r.Context(), service.CreateTransactionInput{
		UserID:   userID,
		Text:     req.Text,
		Amount:   req.Amount,
		Category: req.Category,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CreateTransactionResponse{
		Success: true,
		Message: "Transaction added successfully",
		Expense: dto.ToTransactionResponse(tx),
	})
}

// List handles GET /expenses.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized, JWT token is required")
		return
	}

	l, err := h.svc.List(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToLedgerResponse(l))
}

// Delete handles DELETE /expenses/{id}.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized, JWT token is required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Transaction ID is required")
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{
		Success: true,
		Message: "Transaction deleted successfully",
	})
}

// handleServiceError maps service errors to HTTP responses.
func (h *TransactionHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, "Transaction not found")
	default:
		h.logger.ErrorContext(r.Context(), "internal_error", "path", r.URL.Path, "error", err)
		writeInternalError(w, err)
	}
}
