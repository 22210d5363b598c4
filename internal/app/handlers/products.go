package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/linemk/gogol-pizza/internal/service"
	"github.com/shopspring/decimal"
)

type ProductRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Category    string           `json:"category"`
	Images      []models.Image   `json:"images" validate:"max=5,dive"`
}

type ProductPatchRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	Images      []models.Image   `json:"images" validate:"max=5,dive"`
}

type ImageRequest struct {
	PublicID string `json:"public_id" validate:"required"`
}

type ProductImagesResponse struct {
	Message    string         `json:"msg"`
	Images     []models.Image `json:"images"`
	CoverImage *models.Image  `json:"coverImage"`
}

func ListProductsHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		q := r.URL.Query()
		filter := models.ProductFilter{
			Category: strings.TrimSpace(q.Get("category")),
			Query:    strings.TrimSpace(q.Get("q")),
		}
		for param, dst := range map[string]**decimal.Decimal{"minPrice": &filter.MinPrice, "maxPrice": &filter.MaxPrice} {
			raw := q.Get(param)
			if raw == "" {
				continue
			}
			v, err := decimal.NewFromString(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid "+param, CodeValidation)
				return
			}
			*dst = &v
		}

		products, err := productService.List(r.Context(), filter)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, products)
	}
}

func GetProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProductHandler"
		logger := log.With(slog.String("op", op))

		id, ok := productID(w, r)
		if !ok {
			return
		}
		product, err := productService.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	}
}

func CreateProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateProductHandler"
		logger := log.With(slog.String("op", op))

		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		var req ProductRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}
		if req.Price.IsNegative() {
			writeError(w, http.StatusBadRequest, "price must not be negative", CodeValidation)
			return
		}

		product, err := productService.Create(r.Context(), p, service.ProductInput{
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
			Price:       *req.Price,
			Category:    req.Category,
			Images:      req.Images,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, product)
	}
}

func UpdateProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProductHandler"
		logger := log.With(slog.String("op", op))

		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		id, ok := productID(w, r)
		if !ok {
			return
		}
		var req ProductPatchRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}
		if req.Price != nil && req.Price.IsNegative() {
			writeError(w, http.StatusBadRequest, "price must not be negative", CodeValidation)
			return
		}

		product, err := productService.Update(r.Context(), p, id, service.ProductPatch{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Category:    req.Category,
			Images:      req.Images,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	}
}

func DeleteProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteProductHandler"
		logger := log.With(slog.String("op", op))

		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		id, ok := productID(w, r)
		if !ok {
			return
		}
		if err := productService.Delete(r.Context(), p, id); err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "product removed"})
	}
}

func RemoveProductImageHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return productImageHandler(log, "handlers.RemoveProductImageHandler", "image removed", productService.RemoveImage)
}

func SetProductCoverHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return productImageHandler(log, "handlers.SetProductCoverHandler", "cover set", productService.SetCover)
}

type imageOp func(ctx context.Context, p models.Principal, id int64, publicID string) (*models.Product, error)

func productImageHandler(log *slog.Logger, op, msg string, apply imageOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", op))

		p, ok := principal(w, r, logger)
		if !ok {
			return
		}
		id, ok := productID(w, r)
		if !ok {
			return
		}
		var req ImageRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		product, err := apply(r.Context(), p, id, req.PublicID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ProductImagesResponse{Message: msg, Images: product.Images, CoverImage: product.CoverImage})
	}
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid product id", CodeInvalidProductID)
		return 0, false
	}
	return id, true
}
