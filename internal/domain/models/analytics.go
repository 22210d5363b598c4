package models

import "github.com/shopspring/decimal"

type DayRevenue struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
}

type TopProduct struct {
	ProductID int64           `json:"_id"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// SellerAnalytics summarizes the order lines that reference a seller's products.
type SellerAnalytics struct {
	TotalSales   decimal.Decimal `json:"totalSales"`
	OrdersCount  int             `json:"ordersCount"`
	RevenueByDay []DayRevenue    `json:"revenueByDay"`
	TopProducts  []TopProduct    `json:"topProducts"`
}
