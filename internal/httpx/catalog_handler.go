package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/JairHAM/pos-api/internal/auth"
	"github.com/JairHAM/pos-api/internal/catalog"
)

type CatalogHandler struct {
	Store catalog.Store
}

func (h *CatalogHandler) Register(r chi.Router) {
	manage := auth.RequireRole(auth.RoleAdmin, auth.RoleManager)

	r.Get("/products", h.listProducts)
	r.Get("/products/low-stock", h.lowStock)
	r.Get("/products/{id}", h.getProduct)
	r.With(manage).Post("/products", h.createProduct)
	r.With(manage).Put("/products/{id}", h.updateProduct)
	r.With(manage).Delete("/products/{id}", h.deleteProduct)

	r.Get("/categories", h.listCategories)
	r.With(manage).Post("/categories", h.createCategory)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.ProductFilter{CategoryID: strings.TrimSpace(q.Get("categoryId"))}
	if s := q.Get("isActive"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, r, errInvalidQuery.WithDetails("param", "isActive"))
			return
		}
		f.IsActive = &v
	}
	ps, err := h.Store.ListProducts(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": ps})
}

func (h *CatalogHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Store.ListLowStock(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": ps})
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

type productReq struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Cost        *decimal.Decimal `json:"cost"`
	SKU         *string          `json:"sku"`
	Barcode     *string          `json:"barcode"`
	Stock       *int             `json:"stock"`
	MinStock    *int             `json:"minStock"`
	CategoryID  *string          `json:"categoryId"`
	ImageURL    *string          `json:"imageUrl"`
	IsActive    *bool            `json:"isActive"`
}

func (req productReq) patch() (catalog.ProductPatch, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return catalog.ProductPatch{}, catalog.ErrInvalidProduct.WithDetails("field", "name")
	}
	if req.Price != nil && (req.Price.IsNegative() || !catalog.ValidMoney(*req.Price)) {
		return catalog.ProductPatch{}, catalog.ErrInvalidProduct.WithDetails("field", "price")
	}
	if req.Cost != nil && (req.Cost.IsNegative() || !catalog.ValidMoney(*req.Cost)) {
		return catalog.ProductPatch{}, catalog.ErrInvalidProduct.WithDetails("field", "cost")
	}
	if req.MinStock != nil && *req.MinStock < 0 {
		return catalog.ProductPatch{}, catalog.ErrInvalidProduct.WithDetails("field", "minStock")
	}
	return catalog.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Cost:        req.Cost,
		SKU:         req.SKU,
		Barcode:     req.Barcode,
		Stock:       req.Stock,
		MinStock:    req.MinStock,
		CategoryID:  req.CategoryID,
		IsActive:    req.IsActive,
		ImageURL:    req.ImageURL,
	}, nil
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == nil || req.Price == nil || req.CategoryID == nil || strings.TrimSpace(*req.CategoryID) == "" {
		writeError(w, r, catalog.ErrInvalidProduct)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := catalog.Product{MinStock: catalog.DefaultMinStock, IsActive: true}
	patch.Apply(&p)
	if err := h.Store.CreateProduct(r.Context(), &p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "product created", "product": p})
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Store.UpdateProduct(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "product updated", "product": p})
}

// deleteProduct deactivates the product; order items keep referencing it.
func (h *CatalogHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	inactive := false
	if _, err := h.Store.UpdateProduct(r.Context(), chi.URLParam(r, "id"), catalog.ProductPatch{IsActive: &inactive}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "product deleted"})
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Store.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cs})
}

func (h *CatalogHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Color       string `json:"color"`
		Icon        string `json:"icon"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, catalog.ErrInvalidCategory)
		return
	}
	c := catalog.Category{Name: strings.TrimSpace(req.Name), Description: req.Description, Color: req.Color, Icon: req.Icon}
	if err := h.Store.CreateCategory(r.Context(), &c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "category created", "category": c})
}
