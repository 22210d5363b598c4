package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/linemk/gogol-pizza/internal/lib/metrics"
	"github.com/linemk/gogol-pizza/internal/mpesa"
	"github.com/linemk/gogol-pizza/internal/realtime"
	"github.com/linemk/gogol-pizza/internal/storage"
)

// PaymentGateway submits STK push prompts; *mpesa.Client implements it.
type PaymentGateway interface {
	STKPush(ctx context.Context, req mpesa.STKPushRequest) (*mpesa.STKPushResponse, error)
}

type PaymentService interface {
	// Initiate prompts the buyer's phone for the order total and records the correlation id.
	Initiate(ctx context.Context, p models.Principal, orderID, phone string) (*mpesa.STKPushResponse, error)
	// HandleCallback applies a gateway callback and reports the outcome. It never fails:
	// the gateway is always acknowledged.
	HandleCallback(ctx context.Context, body []byte) string
}

type paymentService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
	gateway   PaymentGateway
	notifier  Notifier
	metrics   *metrics.Metrics
}

func NewPaymentService(log *slog.Logger, orderRepo storage.OrderStorage, gateway PaymentGateway, notifier Notifier, m *metrics.Metrics) PaymentService {
	return &paymentService{
		log:       log,
		orderRepo: orderRepo,
		gateway:   gateway,
		notifier:  notifier,
		metrics:   m,
	}
}

func (s *paymentService) Initiate(ctx context.Context, p models.Principal, orderID, phone string) (*mpesa.STKPushResponse, error) {
	const op = "service.PaymentService.Initiate"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID))

	order, err := loadAuthorized(ctx, s.orderRepo, p, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if order.Payment.IsPaid {
		logger.Info("order already paid")
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyPaid)
	}
	// A second push would replace the checkout request id the buyer may still approve.
	if order.Payment.State() == models.PaymentPending {
		logger.Info("payment already awaiting a result", slog.String("checkoutRequestID", *order.Payment.CheckoutRequestID))
		return nil, fmt.Errorf("%s: %w", op, ErrPaymentPending)
	}

	// Daraja takes whole shillings.
	amount := order.Total.Ceil().IntPart()
	resp, err := s.gateway.STKPush(ctx, mpesa.STKPushRequest{
		Phone:       phone,
		Amount:      amount,
		Reference:   order.ID,
		Description: "GoGol Pizza Order " + order.ID,
	})
	if err != nil {
		s.metrics.PaymentOutcome(metrics.PaymentInitiateFailed)
		logger.Warn("stk push failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// A callback for resp.CheckoutRequestID that lands before this write finds no order and
	// is acknowledged as unmatched.
	if _, err := s.orderRepo.SetCheckoutRequestID(ctx, order.ID, resp.CheckoutRequestID); err != nil {
		logger.Error("failed to store checkout request id",
			slog.String("checkoutRequestID", resp.CheckoutRequestID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to store checkout request id: %w", op, err)
	}

	s.metrics.PaymentOutcome(metrics.PaymentInitiated)
	logger.Info("payment initiated",
		slog.String("checkoutRequestID", resp.CheckoutRequestID), slog.Int64("amount", amount))
	return resp, nil
}

func (s *paymentService) HandleCallback(ctx context.Context, body []byte) string {
	const op = "service.PaymentService.HandleCallback"
	logger := s.log.With(slog.String("op", op))

	cb, err := mpesa.ParseCallback(body)
	if err != nil {
		s.metrics.PaymentOutcome(metrics.PaymentMalformed)
		logger.Warn("malformed callback ignored", slog.Any("error", err))
		return metrics.PaymentMalformed
	}
	logger = logger.With(slog.String("checkoutRequestID", cb.CheckoutRequestID), slog.Int("resultCode", cb.ResultCode))

	order, err := s.orderRepo.ApplyPaymentResult(ctx, models.PaymentResult{
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		Receipt:           cb.Receipt,
	})
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			s.metrics.PaymentOutcome(metrics.PaymentUnmatched)
			logger.Warn("callback matches no order")
			return metrics.PaymentUnmatched
		}
		logger.Error("failed to apply payment result", slog.Any("error", err))
		return "error"
	}

	outcome := metrics.PaymentFailed
	if cb.Success() {
		outcome = metrics.PaymentPaid
	}
	s.metrics.PaymentOutcome(outcome)

	s.notifier.Notify(ctx, order.ID,
		realtime.PaymentStatus(order.ID, cb.CheckoutRequestID, cb.Success(), order.Payment.ReceiptNumber, cb.ResultCode),
		realtime.ScopeOrder)

	logger.Info("payment result applied", slog.String("orderID", order.ID), slog.String("outcome", outcome))
	return outcome
}
