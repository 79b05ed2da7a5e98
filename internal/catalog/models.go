package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultMinStock = 5

// Money columns are NUMERIC(18,4).
const (
	MoneyScale  = 4
	moneyDigits = 18
)

var maxMoney = decimal.New(1, moneyDigits-MoneyScale)

// ValidMoney reports whether d fits a money column without rounding.
func ValidMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale)) && d.Abs().LessThan(maxMoney)
}

type Category struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Color        string    `json:"color,omitempty"`
	Icon         string    `json:"icon,omitempty"`
	ProductCount int       `json:"productCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CategoryRef is the category summary embedded in product listings.
type CategoryRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type Product struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Price       decimal.Decimal     `json:"price"`
	Cost        decimal.NullDecimal `json:"cost"`
	SKU         string              `json:"sku,omitempty"`
	Barcode     string              `json:"barcode,omitempty"`
	Stock       int                 `json:"stock"`
	MinStock    int                 `json:"minStock"`
	CategoryID  string              `json:"categoryId"`
	Category    *CategoryRef        `json:"category,omitempty"`
	ImageURL    string              `json:"imageUrl,omitempty"`
	IsActive    bool                `json:"isActive"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// LowStock reports whether an active product fell to or below its threshold.
func (p Product) LowStock() bool {
	return p.IsActive && p.Stock <= p.MinStock
}

type ProductFilter struct {
	CategoryID string
	IsActive   *bool
}

// ProductPatch carries a partial update; nil fields are left untouched.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Cost        *decimal.Decimal
	SKU         *string
	Barcode     *string
	Stock       *int
	MinStock    *int
	CategoryID  *string
	IsActive    *bool
	ImageURL    *string
}

// Apply copies the set fields of the patch onto p.
func (patch ProductPatch) Apply(p *Product) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Cost != nil {
		p.Cost = decimal.NewNullDecimal(*patch.Cost)
	}
	if patch.SKU != nil {
		p.SKU = *patch.SKU
	}
	if patch.Barcode != nil {
		p.Barcode = *patch.Barcode
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.MinStock != nil {
		p.MinStock = *patch.MinStock
	}
	if patch.CategoryID != nil {
		p.CategoryID = *patch.CategoryID
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if patch.ImageURL != nil {
		p.ImageURL = *patch.ImageURL
	}
}
