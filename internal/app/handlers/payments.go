package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/gogol-pizza/internal/mpesa"
	"github.com/linemk/gogol-pizza/internal/service"
)

const initiateFailed = "payment failed to initiate"

type InitiatePaymentRequest struct {
	Phone string `json:"phone" validate:"required"`
}

// InitiatePaymentHandler relays the gateway acknowledgement body unchanged.
func InitiatePaymentHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.InitiatePaymentHandler"
		logger := log.With(slog.String("op", op))

		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		var req InitiatePaymentRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		resp, err := paymentService.Initiate(r.Context(), p, chi.URLParam(r, "id"), req.Phone)
		if err != nil {
			switch {
			case errors.Is(err, mpesa.ErrInvalidPhone):
				writeError(w, http.StatusBadRequest, initiateFailed, CodeInvalidPhone)
			case errors.Is(err, mpesa.ErrInvalidCallbackConfiguration):
				logger.Error("callback url misconfigured", slog.Any("error", err))
				writeError(w, http.StatusBadRequest, initiateFailed, CodeInvalidCallbackConfig)
			case errors.Is(err, mpesa.ErrInvalidAmount):
				writeError(w, http.StatusBadRequest, initiateFailed, CodeInvalidAmount)
			case errors.Is(err, mpesa.ErrGatewayTransport):
				logger.Error("gateway failure", slog.Any("error", err))
				writeError(w, http.StatusBadGateway, initiateFailed, CodeGateway)
			default:
				writeServiceError(w, logger, err)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(resp.Raw)
	}
}
