// Package seed loads a YAML catalog into the store.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Catalog is the seed file layout
type Catalog struct {
	Admin    *service.RegisterRequest `yaml:"admin"`
	Products []Product                `yaml:"products"`
}

// Product is one catalog entry. Price is a decimal string.
type Product struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Stock       int    `yaml:"stock"`
	Category    string `yaml:"category"`
}

// Result counts what a seed run changed
type Result struct {
	AdminCreated    bool
	ProductsCreated int
	ProductsSkipped int
}

// LoadFile parses a catalog file
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return &catalog, nil
}

// Seeder writes a catalog through the services so the usual validation applies
type Seeder struct {
	repo     store.Repository
	auth     *service.AuthService
	products *service.ProductService
	logger   *zap.Logger
}

func NewSeeder(repo store.Repository, auth *service.AuthService, products *service.ProductService) *Seeder {
	return &Seeder{
		repo:     repo,
		auth:     auth,
		products: products,
		logger:   util.GetLogger(),
	}
}

// Run creates the admin and every product not already present by name.
// Running it twice is harmless.
func (s *Seeder) Run(ctx context.Context, catalog *Catalog) (*Result, error) {
	result := &Result{}
	var createdBy int64

	if catalog.Admin != nil {
		id, created, err := s.ensureAdmin(ctx, catalog.Admin)
		if err != nil {
			return nil, err
		}
		createdBy = id
		result.AdminCreated = created
	}

	for _, p := range catalog.Products {
		exists, err := s.productExists(ctx, p.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			result.ProductsSkipped++
			continue
		}

		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("product %q: invalid price %q", p.Name, p.Price)
		}
		name, description, category, stock := p.Name, p.Description, p.Category, p.Stock
		_, err = s.products.Create(ctx, createdBy, &service.ProductInput{
			Name:        &name,
			Description: &description,
			Price:       &price,
			Stock:       &stock,
			Category:    &category,
		})
		if err != nil {
			return nil, fmt.Errorf("product %q: %w", p.Name, err)
		}
		result.ProductsCreated++
	}

	s.logger.Info("Catalog seeded",
		zap.Bool("admin_created", result.AdminCreated),
		zap.Int("products_created", result.ProductsCreated),
		zap.Int("products_skipped", result.ProductsSkipped))
	return result, nil
}

func (s *Seeder) ensureAdmin(ctx context.Context, req *service.RegisterRequest) (int64, bool, error) {
	created := true
	res, err := s.auth.Register(ctx, req)
	if apperror.Is(err, apperror.KindConflict) {
		created = false
		res, err = s.auth.Login(ctx, req.Email, req.Password)
	}
	if err != nil {
		return 0, false, fmt.Errorf("admin %s: %w", req.Email, err)
	}

	if !res.User.IsAdmin() {
		if _, err := s.auth.UpdateUserRole(ctx, res.User.ID, models.RoleAdmin); err != nil {
			return 0, false, err
		}
	}
	return res.User.ID, created, nil
}

func (s *Seeder) productExists(ctx context.Context, name string) (bool, error) {
	matches, _, err := s.repo.ListProducts(ctx, models.ProductFilter{
		Query:           name,
		IncludeInactive: true,
		Limit:           100,
	})
	if err != nil {
		return false, err
	}
	for _, m := range matches {
		if strings.EqualFold(m.Name, name) {
			return true, nil
		}
	}
	return false, nil
}
