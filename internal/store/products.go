package store

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/models"
)

// CreateProduct inserts a product
func (q *Queries) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, description, price, stock, category, image, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, rating, review_count, created_at, updated_at`

	return q.get(ctx, product, query,
		product.Name, product.Description, product.Price, product.Stock,
		product.Category, product.Image, product.IsActive, product.CreatedBy)
}

// GetProductByID retrieves a product by ID
func (q *Queries) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := q.get(ctx, &product, "SELECT * FROM products WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("product %d: %w", id, err)
	}
	return &product, nil
}

// GetProductForUpdate retrieves a product and locks it exclusively for the
// enclosing transaction. New cart lines for it wait until the lock is released.
func (q *Queries) GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := q.get(ctx, &product, "SELECT * FROM products WHERE id = $1 FOR UPDATE", id); err != nil {
		return nil, fmt.Errorf("product %d: %w", id, err)
	}
	return &product, nil
}

// GetProductForShare retrieves a product and holds a key-share lock on it, so
// it cannot be deleted before the enclosing transaction ends
func (q *Queries) GetProductForShare(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := q.get(ctx, &product, "SELECT * FROM products WHERE id = $1 FOR KEY SHARE", id); err != nil {
		return nil, fmt.Errorf("product %d: %w", id, err)
	}
	return &product, nil
}

// LockCartProducts takes key-share locks, in id order, on the products in the
// user's cart and returns their ids
func (q *Queries) LockCartProducts(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT p.id
		FROM products p
		JOIN cart_items ci ON ci.product_id = p.id
		JOIN carts c ON c.id = ci.cart_id
		WHERE c.user_id = $1
		ORDER BY p.id
		FOR KEY SHARE OF p`

	ids := []int64{}
	err := q.selectAll(ctx, &ids, query, userID)
	return ids, err
}

// GetProductsByIDs retrieves multiple products by IDs
func (q *Queries) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := q.in("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}

	var products []models.Product
	err = q.selectAll(ctx, &products, query, args...)
	return products, err
}

// ListProducts returns a filtered page of products, newest first, and the total match count
func (q *Queries) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	var (
		where []string
		args  []interface{}
	)

	if !filter.IncludeInactive {
		where = append(where, "is_active")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := q.get(ctx, &total, "SELECT COUNT(*) FROM products"+clause, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf("SELECT * FROM products%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		clause, len(args)-1, len(args))

	products := []models.Product{}
	if err := q.selectAll(ctx, &products, query, args...); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// UpdateProduct writes every mutable product column
func (q *Queries) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock = $4, category = $5,
		    image = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`

	return q.get(ctx, &product.UpdatedAt, query,
		product.Name, product.Description, product.Price, product.Stock, product.Category,
		product.Image, product.IsActive, product.ID)
}

// DeleteProduct removes a product. Cart items and wishlist entries cascade;
// order items keep their snapshot with a NULL product reference.
func (q *Queries) DeleteProduct(ctx context.Context, id int64) error {
	return q.execOne(ctx, "DELETE FROM products WHERE id = $1", id)
}

// DecrementStock subtracts quantity when enough stock remains.
// It reports false, leaving the row untouched, when stock is insufficient.
func (q *Queries) DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	n, err := q.exec(ctx,
		"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1",
		quantity, productID)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
