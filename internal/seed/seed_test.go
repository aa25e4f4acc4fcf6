package seed

import (
	"context"
	"os"
	"testing"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/store/storetest"
	"storefront/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	util.SetLogger(zap.NewNop())
	os.Exit(m.Run())
}

const catalogYAML = `
admin:
  name: Shop Admin
  email: admin@example.com
  phone: "5550000000"
  password: "Admin@1234"
  address: 1 Admin Way
products:
  - name: Desk Lamp
    description: Warm light
    price: "19.99"
    stock: 10
    category: Home & Kitchen
  - name: Paperback
    description: A novel
    price: "7.50"
    stock: 40
    category: Books
`

func newSeeder(repo *storetest.Memory) *Seeder {
	authService := service.NewAuthService(repo, auth.NewTokenIssuer("secret", time.Hour))
	products := service.NewProductService(repo, nil)
	return NewSeeder(repo, authService, products)
}

func TestRunIsRepeatable(t *testing.T) {
	ctx := context.Background()
	repo := storetest.New()
	catalog, err := Parse([]byte(catalogYAML))
	require.NoError(t, err)
	require.Len(t, catalog.Products, 2)

	result, err := newSeeder(repo).Run(ctx, catalog)
	require.NoError(t, err)
	assert.True(t, result.AdminCreated)
	assert.Equal(t, 2, result.ProductsCreated)

	admin, err := repo.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	products, total, err := repo.ListProducts(ctx, models.ProductFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, p := range products {
		assert.Equal(t, admin.ID, p.CreatedBy)
	}

	result, err = newSeeder(repo).Run(ctx, catalog)
	require.NoError(t, err)
	assert.False(t, result.AdminCreated)
	assert.Zero(t, result.ProductsCreated)
	assert.Equal(t, 2, result.ProductsSkipped)
}

func TestRunRejectsInvalidProducts(t *testing.T) {
	catalog := &Catalog{Products: []Product{{Name: "Thing", Description: "x", Price: "1", Category: "Nope"}}}
	_, err := newSeeder(storetest.New()).Run(context.Background(), catalog)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	catalog = &Catalog{Products: []Product{{Name: "Thing", Price: "abc"}}}
	_, err = newSeeder(storetest.New()).Run(context.Background(), catalog)
	assert.Error(t, err)
}
