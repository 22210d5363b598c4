package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultCategory  = "Pizza"
	MaxProductImages = 5
)

type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

type Product struct {
	ID          int64           `json:"id"`
	SellerID    int64           `json:"seller"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Images      []Image         `json:"images"`
	CoverImage  *Image          `json:"coverImage,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductFilter narrows catalog listings; zero fields are ignored.
type ProductFilter struct {
	Category string
	Query    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

type CartItem struct {
	Product int64           `json:"product"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	Qty     int             `json:"qty"`
}
