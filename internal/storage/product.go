package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/linemk/gogol-pizza/internal/domain/models"
)

type ProductStorage interface {
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

const productColumns = "id, seller_id, name, description, price, category, images, cover_image, created_at, updated_at"

func scanProduct(row scanner) (*models.Product, error) {
	p := &models.Product{}
	var images, cover []byte
	if err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Description, &p.Price, &p.Category,
		&images, &cover, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Images = []models.Image{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("failed to decode images: %w", err)
		}
	}
	if len(cover) > 0 && string(cover) != "null" {
		p.CoverImage = &models.Image{}
		if err := json.Unmarshal(cover, p.CoverImage); err != nil {
			return nil, fmt.Errorf("failed to decode cover image: %w", err)
		}
	}
	return p, nil
}

// encodeImages returns JSON text for the images column and the cover column (nil for NULL).
func encodeImages(p *models.Product) (string, any, error) {
	list := p.Images
	if list == nil {
		list = []models.Image{}
	}
	images, err := json.Marshal(list)
	if err != nil {
		return "", nil, err
	}
	if p.CoverImage == nil {
		return string(images), nil, nil
	}
	cover, err := json.Marshal(p.CoverImage)
	if err != nil {
		return "", nil, err
	}
	return string(images), string(cover), nil
}

// ListProducts applies the non-empty filter fields, newest first.
func (r *productRepository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		where = append(where, fmt.Sprintf("price >= $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		where = append(where, fmt.Sprintf("price <= $%d", len(args)))
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *productRepository) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	images, cover, err := encodeImages(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode images: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO products (seller_id, name, description, price, category, images, cover_image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productColumns,
		p.SellerID, p.Name, p.Description, p.Price, p.Category, images, cover,
	)
	return scanProduct(row)
}

func (r *productRepository) UpdateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	images, cover, err := encodeImages(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode images: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, category = $5, images = $6, cover_image = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.Price, p.Category, images, cover,
	)
	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, mapWriteError(err)
	}
	return updated, nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
