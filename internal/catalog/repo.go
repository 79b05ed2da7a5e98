package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

const productColumns = `p.id, p.name, p.description, p.price, p.cost, p.sku, p.barcode, p.stock, p.min_stock,
	p.category_id, c.name, c.color, p.image_url, p.is_active, p.created_at, p.updated_at`

const productFrom = ` FROM products p LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p                          Product
		desc, sku, barcode, imgURL *string
		catName, catColor          *string
	)
	err := row.Scan(&p.ID, &p.Name, &desc, &p.Price, &p.Cost, &sku, &barcode, &p.Stock, &p.MinStock,
		&p.CategoryID, &catName, &catColor, &imgURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.Description = deref(desc)
	p.SKU = deref(sku)
	p.Barcode = deref(barcode)
	p.ImageURL = deref(imgURL)
	if catName != nil {
		p.Category = &CategoryRef{ID: p.CategoryID, Name: *catName, Color: deref(catColor)}
	}
	return p, nil
}

func (r *Repo) queryProducts(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	var (
		where []string
		args  []any
	)
	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		where = append(where, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where = append(where, fmt.Sprintf("p.is_active = $%d", len(args)))
	}
	sql := `SELECT ` + productColumns + productFrom
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY p.name`
	ps, err := r.queryProducts(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return ps, nil
}

func (r *Repo) ListLowStock(ctx context.Context) ([]Product, error) {
	ps, err := r.queryProducts(ctx, `SELECT `+productColumns+productFrom+
		` WHERE p.is_active AND p.stock <= p.min_stock ORDER BY p.stock, p.name`)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return ps, nil
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Product{}, ErrProductNotFound
	}
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *Repo) ProductsByID(ctx context.Context, ids []string) (map[string]Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	out := make(map[string]Product, len(valid))
	if len(valid) == 0 {
		return out, nil
	}
	ps, err := r.queryProducts(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id = ANY($1::uuid[])`, valid)
	if err != nil {
		return nil, fmt.Errorf("products by id: %w", err)
	}
	for _, p := range ps {
		out[p.ID] = p
	}
	return out, nil
}

func (r *Repo) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	var cost *decimal.Decimal
	if p.Cost.Valid {
		cost = &p.Cost.Decimal
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, price, cost, sku, barcode, stock, min_stock, category_id, image_url, is_active)
		VALUES ($1, $2, NULLIF($3,''), $4, $5, NULLIF($6,''), NULLIF($7,''), $8, $9, $10, NULLIF($11,''), $12)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Price, cost, p.SKU, p.Barcode, p.Stock, p.MinStock, p.CategoryID, p.ImageURL, p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if isForeignKeyViolation(err) {
		return ErrCategoryNotFound.WithDetails("categoryId", p.CategoryID)
	}
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	created, err := r.GetProduct(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = created
	return nil
}

func (r *Repo) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (Product, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Product{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := uuid.Parse(id); err != nil {
		return Product{}, ErrProductNotFound
	}
	p, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id = $1 FOR UPDATE OF p`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	patch.Apply(&p)

	var cost *decimal.Decimal
	if p.Cost.Valid {
		cost = &p.Cost.Decimal
	}
	_, err = tx.Exec(ctx, `
		UPDATE products SET name=$2, description=NULLIF($3,''), price=$4, cost=$5, sku=NULLIF($6,''), barcode=NULLIF($7,''),
			stock=$8, min_stock=$9, category_id=$10, image_url=NULLIF($11,''), is_active=$12, updated_at=$13
		WHERE id=$1`,
		p.ID, p.Name, p.Description, p.Price, cost, p.SKU, p.Barcode, p.Stock, p.MinStock, p.CategoryID, p.ImageURL, p.IsActive, time.Now().UTC())
	if isForeignKeyViolation(err) {
		return Product{}, ErrCategoryNotFound.WithDetails("categoryId", p.CategoryID)
	}
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Product{}, err
	}
	return r.GetProduct(ctx, id)
}

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT c.id, c.name, c.description, c.color, c.icon, c.created_at, COUNT(p.id)
		FROM categories c LEFT JOIN products p ON p.category_id = c.id
		GROUP BY c.id ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var (
			c                 Category
			desc, color, icon *string
		)
		if err := rows.Scan(&c.ID, &c.Name, &desc, &color, &icon, &c.CreatedAt, &c.ProductCount); err != nil {
			return nil, err
		}
		c.Description, c.Color, c.Icon = deref(desc), deref(color), deref(icon)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) CreateCategory(ctx context.Context, c *Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO categories(id, name, description, color, icon)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''))
		RETURNING created_at`, c.ID, c.Name, c.Description, c.Color, c.Icon).Scan(&c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrCategoryExists.WithDetails("name", c.Name)
	}
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *Repo) DeleteUnusedCategories(ctx context.Context) (int, error) {
	ct, err := r.DB.Exec(ctx, `
		DELETE FROM categories c
		WHERE NOT EXISTS (SELECT 1 FROM products p WHERE p.category_id = c.id)`)
	if err != nil {
		return 0, fmt.Errorf("delete unused categories: %w", err)
	}
	return int(ct.RowsAffected()), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
