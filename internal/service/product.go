package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/linemk/gogol-pizza/internal/storage"
	"github.com/shopspring/decimal"
)

type ProductService interface {
	List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, p models.Principal, in ProductInput) (*models.Product, error)
	Update(ctx context.Context, p models.Principal, id int64, patch ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, p models.Principal, id int64) error
	RemoveImage(ctx context.Context, p models.Principal, id int64, publicID string) (*models.Product, error)
	SetCover(ctx context.Context, p models.Principal, id int64, publicID string) (*models.Product, error)
}

type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Images      []models.Image
}

// ProductPatch changes only the non-nil fields. Images are appended.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *string
	Images      []models.Image
}

type productService struct {
	log         *slog.Logger
	productRepo storage.ProductStorage
}

func NewProductService(log *slog.Logger, productRepo storage.ProductStorage) ProductService {
	return &productService{log: log, productRepo: productRepo}
}

func (s *productService) List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	const op = "service.ProductService.List"

	products, err := s.productRepo.ListProducts(ctx, filter)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

func (s *productService) Get(ctx context.Context, id int64) (*models.Product, error) {
	const op = "service.ProductService.Get"

	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return product, nil
}

func (s *productService) Create(ctx context.Context, p models.Principal, in ProductInput) (*models.Product, error) {
	const op = "service.ProductService.Create"
	logger := s.log.With(slog.String("op", op), slog.Int64("sellerID", p.UserID))

	if !p.Is(models.RoleSeller, models.RoleAdmin) {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	product := &models.Product{
		SellerID:    p.UserID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Images:      in.Images,
	}
	normalizeProduct(product)

	created, err := s.productRepo.CreateProduct(ctx, product)
	if err != nil {
		logger.Error("failed to create product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("product created", slog.Int64("productID", created.ID))
	return created, nil
}

func (s *productService) Update(ctx context.Context, p models.Principal, id int64, patch ProductPatch) (*models.Product, error) {
	const op = "service.ProductService.Update"
	logger := s.log.With(slog.String("op", op), slog.Int64("productID", id))

	product, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if patch.Name != nil && *patch.Name != "" {
		product.Name = *patch.Name
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Category != nil && *patch.Category != "" {
		product.Category = *patch.Category
	}
	product.Images = append(product.Images, patch.Images...)
	normalizeProduct(product)

	updated, err := s.productRepo.UpdateProduct(ctx, product)
	if err != nil {
		logger.Error("failed to update product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func (s *productService) Delete(ctx context.Context, p models.Principal, id int64) error {
	const op = "service.ProductService.Delete"

	if _, err := s.owned(ctx, p, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.productRepo.DeleteProduct(ctx, id); err != nil {
		s.log.Error("failed to delete product", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RemoveImage refuses to drop the last image and moves the cover to the first remaining image
// when the cover is removed.
func (s *productService) RemoveImage(ctx context.Context, p models.Principal, id int64, publicID string) (*models.Product, error) {
	const op = "service.ProductService.RemoveImage"

	product, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	idx := imageIndex(product.Images, publicID)
	if idx < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrImageNotFound)
	}
	if len(product.Images) <= 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrLastImage)
	}

	product.Images = append(product.Images[:idx:idx], product.Images[idx+1:]...)
	if product.CoverImage != nil && product.CoverImage.PublicID == publicID {
		product.CoverImage = nil
	}
	normalizeProduct(product)

	updated, err := s.productRepo.UpdateProduct(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func (s *productService) SetCover(ctx context.Context, p models.Principal, id int64, publicID string) (*models.Product, error) {
	const op = "service.ProductService.SetCover"

	product, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	idx := imageIndex(product.Images, publicID)
	if idx < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrImageNotFound)
	}
	cover := product.Images[idx]
	product.CoverImage = &cover

	updated, err := s.productRepo.UpdateProduct(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// owned loads the product if p may modify it. Sellers may only touch their own products.
func (s *productService) owned(ctx context.Context, p models.Principal, id int64) (*models.Product, error) {
	if !p.Is(models.RoleSeller, models.RoleAdmin) {
		return nil, ErrForbidden
	}
	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role == models.RoleSeller && product.SellerID != p.UserID {
		return nil, ErrForbidden
	}
	return product, nil
}

func normalizeProduct(p *models.Product) {
	if p.Category == "" {
		p.Category = models.DefaultCategory
	}
	if len(p.Images) > models.MaxProductImages {
		p.Images = p.Images[:models.MaxProductImages]
	}
	if p.CoverImage == nil && len(p.Images) > 0 {
		cover := p.Images[0]
		p.CoverImage = &cover
	}
}

func imageIndex(images []models.Image, publicID string) int {
	for i, img := range images {
		if img.PublicID == publicID {
			return i
		}
	}
	return -1
}
