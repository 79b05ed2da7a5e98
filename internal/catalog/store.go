package catalog

import (
	"context"

	"github.com/JairHAM/pos-api/internal/apperr"
)

var (
	ErrProductNotFound  = apperr.NotFound("product_not_found", "product not found")
	ErrCategoryNotFound = apperr.NotFound("category_not_found", "category not found")
	ErrCategoryExists   = apperr.Conflict("category_exists", "category name already exists")
	ErrInvalidProduct   = apperr.Validation("invalid_product", "name, price and categoryId are required")
	ErrInvalidCategory  = apperr.Validation("invalid_category", "category name is required")
)

// Store is the Catalog Store contract shared by the postgres and memory backends.
type Store interface {
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, error)
	ListLowStock(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	// ProductsByID returns the products found; missing ids are simply absent.
	ProductsByID(ctx context.Context, ids []string) (map[string]Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, id string, patch ProductPatch) (Product, error)

	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	// DeleteUnusedCategories removes categories no product references and
	// returns how many were deleted.
	DeleteUnusedCategories(ctx context.Context) (int, error)
}
