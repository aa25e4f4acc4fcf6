package store

import (
	"context"
	"fmt"

	"storefront/internal/models"
)

// CreateUser inserts a user and fills in the generated columns
func (q *Queries) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, phone, password_hash, address, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return q.get(ctx, user, query,
		user.Name, user.Email, user.Phone, user.PasswordHash, user.Address, user.Role, user.IsActive)
}

// GetUserByID retrieves a user by ID
func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := q.get(ctx, &user, "SELECT * FROM users WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("user %d: %w", id, err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by their lowercased email
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := q.get(ctx, &user, "SELECT * FROM users WHERE email = $1", email); err != nil {
		return nil, fmt.Errorf("user %s: %w", email, err)
	}
	return &user, nil
}

// UpdateUser writes every mutable user column
func (q *Queries) UpdateUser(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $1, email = $2, phone = $3, password_hash = $4, address = $5,
		    role = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`

	return q.get(ctx, &user.UpdatedAt, query,
		user.Name, user.Email, user.Phone, user.PasswordHash, user.Address,
		user.Role, user.IsActive, user.ID)
}

// ListUsers returns a page of users and the total count
func (q *Queries) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	var total int
	if err := q.get(ctx, &total, "SELECT COUNT(*) FROM users"); err != nil {
		return nil, 0, err
	}

	users := []models.User{}
	err := q.selectAll(ctx, &users,
		"SELECT * FROM users ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2", limit, offset)
	return users, total, err
}

// DeleteUser removes a user; carts, wishlists and orders cascade
func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	return q.execOne(ctx, "DELETE FROM users WHERE id = $1", id)
}
