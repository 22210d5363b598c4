package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/linemk/gogol-pizza/internal/service"
	"github.com/shopspring/decimal"
)

const maxCallbackBody = 1 << 20

type CreateOrderRequest struct {
	Items            []models.OrderItem       `json:"items" validate:"required,min=1,dive"`
	Total            decimal.Decimal          `json:"total"`
	DeliveryLocation *models.DeliveryLocation `json:"deliveryLocation"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type CallbackResponse struct {
	Status string `json:"status"`
}

func CreateOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		var req CreateOrderRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}
		if req.Total.IsNegative() {
			writeError(w, http.StatusBadRequest, "total must not be negative", CodeValidation)
			return
		}
		for _, it := range req.Items {
			if it.Product <= 0 || it.Qty <= 0 {
				writeError(w, http.StatusBadRequest, "every item needs a product and a positive qty", CodeValidation)
				return
			}
		}

		order, err := orderService.Create(r.Context(), p, service.CreateOrderInput{
			Items:            req.Items,
			Total:            req.Total,
			DeliveryLocation: req.DeliveryLocation,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, order)
	}
}

func GetOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		order, err := orderService.Get(r.Context(), p, chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

func ListOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		orders, err := orderService.List(r.Context(), p)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

func UpdateOrderStatusHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateOrderStatusHandler"
		logger := log.With(slog.String("op", op))

		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		var req UpdateStatusRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}
		status, err := models.ParseOrderStatus(req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), CodeInvalidStatus)
			return
		}

		order, err := orderService.UpdateStatus(r.Context(), p, chi.URLParam(r, "id"), status)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

func DeleteOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteOrderHandler"
		logger := log.With(slog.String("op", op))

		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		if err := orderService.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "order deleted"})
	}
}

// MpesaCallbackHandler acknowledges every delivery with 200, whatever the body holds.
func MpesaCallbackHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MpesaCallbackHandler"
		logger := log.With(slog.String("op", op))

		body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
		if err != nil {
			logger.Warn("failed to read callback body", slog.Any("error", err))
		}
		outcome := paymentService.HandleCallback(r.Context(), body)
		logger.Debug("callback handled", slog.String("outcome", outcome))

		writeJSON(w, http.StatusOK, CallbackResponse{Status: "received"})
	}
}
