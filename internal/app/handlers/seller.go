package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/gogol-pizza/internal/service"
)

func SellerAnalyticsHandler(log *slog.Logger, sellerService service.SellerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SellerAnalyticsHandler"
		logger := log.With(slog.String("op", op))

		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		analytics, err := sellerService.Analytics(r.Context(), p.UserID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, analytics)
	}
}

func SellerClientsHandler(log *slog.Logger, sellerService service.SellerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SellerClientsHandler"
		logger := log.With(slog.String("op", op))

		clients, err := sellerService.Clients(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, clients)
	}
}
