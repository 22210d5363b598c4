package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/linemk/gogol-pizza/internal/service"
)

type CartRequest struct {
	Items []models.CartItem `json:"items"`
}

type CartResponse struct {
	Cart []models.CartItem `json:"cart"`
}

func GetCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		items, err := cartService.Get(r.Context(), p.UserID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, CartResponse{Cart: items})
	}
}

func SaveCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SaveCartHandler"
		logger := log.With(slog.String("op", op))

		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		var req CartRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		items, err := cartService.Save(r.Context(), p.UserID, req.Items)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, CartResponse{Cart: items})
	}
}
