package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/JairHAM/pos-api/internal/catalog"
)

func (s *Store) withCategory(p catalog.Product) catalog.Product {
	if c, ok := s.categories[p.CategoryID]; ok {
		p.Category = &catalog.CategoryRef{ID: c.ID, Name: c.Name, Color: c.Color}
	} else {
		p.Category = nil
	}
	return p
}

func (s *Store) ListProducts(_ context.Context, f catalog.ProductFilter) ([]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []catalog.Product{}
	for _, p := range s.products {
		if f.CategoryID != "" && p.CategoryID != f.CategoryID {
			continue
		}
		if f.IsActive != nil && p.IsActive != *f.IsActive {
			continue
		}
		out = append(out, s.withCategory(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListLowStock(_ context.Context) ([]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []catalog.Product{}
	for _, p := range s.products {
		if p.LowStock() {
			out = append(out, s.withCategory(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stock != out[j].Stock {
			return out[i].Stock < out[j].Stock
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return s.withCategory(p), nil
}

func (s *Store) ProductsByID(_ context.Context, ids []string) (map[string]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = s.withCategory(p)
		}
	}
	return out, nil
}

func (s *Store) CreateProduct(_ context.Context, p *catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[p.CategoryID]; !ok {
		return catalog.ErrCategoryNotFound.WithDetails("categoryId", p.CategoryID)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.products[p.ID] = *p
	*p = s.withCategory(*p)
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, id string, patch catalog.ProductPatch) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	patch.Apply(&p)
	if _, ok := s.categories[p.CategoryID]; !ok {
		return catalog.Product{}, catalog.ErrCategoryNotFound.WithDetails("categoryId", p.CategoryID)
	}
	p.UpdatedAt = s.now()
	s.products[id] = p
	return s.withCategory(p), nil
}

func (s *Store) ListCategories(_ context.Context) ([]catalog.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := map[string]int{}
	for _, p := range s.products {
		counts[p.CategoryID]++
	}
	out := make([]catalog.Category, 0, len(s.categories))
	for _, c := range s.categories {
		c.ProductCount = counts[c.ID]
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c *catalog.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return catalog.ErrCategoryExists.WithDetails("name", c.Name)
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = s.now()
	s.categories[c.ID] = *c
	return nil
}

func (s *Store) DeleteUnusedCategories(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := map[string]bool{}
	for _, p := range s.products {
		used[p.CategoryID] = true
	}
	n := 0
	for id := range s.categories {
		if !used[id] {
			delete(s.categories, id)
			n++
		}
	}
	return n, nil
}
