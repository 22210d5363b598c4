package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/linemk/gogol-pizza/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/gogol-pizza/internal/service"
	"github.com/linemk/gogol-pizza/internal/storage"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeInvalidRequest        = "invalid_request"
	CodeValidation            = "validation_error"
	CodeUnauthorized          = "unauthorized"
	CodeForbidden             = "forbidden"
	CodeInvalidCredentials    = "invalid_credentials"
	CodeEmailTaken            = "email_taken"
	CodeVerificationFailed    = "verification_failed"
	CodeMailDelivery          = "mail_delivery_failed"
	CodeUserNotFound          = "user_not_found"
	CodeProductNotFound       = "product_not_found"
	CodeOrderNotFound         = "order_not_found"
	CodeImageNotFound         = "image_not_found"
	CodeLastImage             = "last_image"
	CodeInvalidOrderID        = "invalid_order_id"
	CodeInvalidProductID      = "invalid_product_id"
	CodeInvalidStatus         = "invalid_status"
	CodeAlreadyPaid           = "already_paid"
	CodePaymentPending        = "payment_pending"
	CodeConflict              = "conflict"
	CodeInvalidPhone          = "invalid_phone"
	CodeInvalidCallbackConfig = "invalid_callback_configuration"
	CodeInvalidAmount         = "invalid_amount"
	CodeGateway               = "gateway_error"
	CodeInternal              = "internal_error"
)

var validate = validator.New()

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type MessageResponse struct {
	Message string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

// decodeAndValidate writes the 400 itself and reports whether the handler may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("invalid request: decoding error", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, "invalid request", CodeInvalidRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		logger.Warn("invalid request: validation error", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, "validation error", CodeValidation)
		return false
	}
	return true
}

func principal(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (models.Principal, bool) {
	p, ok := jwtmiddleware.PrincipalFromContext(r.Context())
	if !ok {
		logger.Error("principal not found in context")
		writeError(w, http.StatusUnauthorized, "unauthorized", CodeUnauthorized)
	}
	return p, ok
}

// writeServiceError maps domain and storage errors to a status and code.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", CodeForbidden)
	case errors.Is(err, service.ErrInvalidOrderID):
		writeError(w, http.StatusBadRequest, "invalid order id", CodeInvalidOrderID)
	case errors.Is(err, storage.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found", CodeOrderNotFound)
	case errors.Is(err, storage.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product not found", CodeProductNotFound)
	case errors.Is(err, storage.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found", CodeUserNotFound)
	case errors.Is(err, service.ErrImageNotFound):
		writeError(w, http.StatusNotFound, "image not found on product", CodeImageNotFound)
	case errors.Is(err, service.ErrLastImage):
		writeError(w, http.StatusBadRequest, "a product must have at least one image", CodeLastImage)
	case errors.Is(err, service.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, "order already paid", CodeAlreadyPaid)
	case errors.Is(err, service.ErrPaymentPending):
		writeError(w, http.StatusConflict, "payment already awaiting a result", CodePaymentPending)
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusConflict, "conflicting update, retry", CodeConflict)
	default:
		logger.Error("request failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal server error", CodeInternal)
	}
}
