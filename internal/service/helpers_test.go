package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/store/storetest"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	util.SetLogger(zap.NewNop())
	os.Exit(m.Run())
}

var ctx = context.Background()

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedUser(t *testing.T, repo *storetest.Memory, role models.Role) *models.User {
	t.Helper()
	n := time.Now().UnixNano()
	user := &models.User{
		Name:         "Customer",
		Email:        fmt.Sprintf("u%d@example.com", n),
		Phone:        strconv.FormatInt(n, 10),
		PasswordHash: "x",
		Address:      "1 Main Street",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, repo.CreateUser(ctx, user))
	return user
}

func seedProduct(t *testing.T, repo *storetest.Memory, name, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:        name,
		Description: name + " description",
		Price:       dec(price),
		Stock:       stock,
		Category:    models.CategoryElectronics,
		IsActive:    true,
		CreatedBy:   1,
	}
	require.NoError(t, repo.CreateProduct(ctx, product))
	return product
}

// assertCartConsistent checks the stored totals against the stored items
func assertCartConsistent(t *testing.T, repo *storetest.Memory, userID int64) *models.Cart {
	t.Helper()
	cart, err := repo.GetCartByUserID(ctx, userID)
	require.NoError(t, err)
	items, err := repo.ListCartItems(ctx, cart.ID)
	require.NoError(t, err)

	sum := decimal.Zero
	count := 0
	for _, item := range items {
		assert.True(t, item.Subtotal.Equal(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))),
			"subtotal of item %d", item.ID)
		sum = sum.Add(item.Subtotal)
		count += item.Quantity
	}
	assert.True(t, cart.TotalPrice.Equal(sum), "totalPrice %s != %s", cart.TotalPrice, sum)
	assert.Equal(t, count, cart.TotalItems)
	return cart
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(ctx context.Context, event *models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.EventType
	}
	return types
}

type memoryIdempotency struct {
	mu     sync.Mutex
	values map[string]string
	locks  map[string]bool

	// beforeLock runs once, at the next AcquireLock, before the lock is taken
	beforeLock func()
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{values: map[string]string{}, locks: map[string]bool{}}
}

func (m *memoryIdempotency) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memoryIdempotency) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryIdempotency) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if hook := m.beforeLock; hook != nil {
		m.beforeLock = nil
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *memoryIdempotency) ReleaseLock(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

type fakeImages struct {
	saved   []string
	removed []string
}

func (f *fakeImages) Save(file *multipart.FileHeader) (string, error) {
	path := "/uploads/" + file.Filename
	f.saved = append(f.saved, path)
	return path, nil
}

func (f *fakeImages) Remove(publicPath string) error {
	f.removed = append(f.removed, publicPath)
	return nil
}
