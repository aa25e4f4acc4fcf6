package service

import (
	"errors"
	"sync"
	"testing"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartTotalsExample(t *testing.T) {
	repo := storetest.New()
	svc := NewCartService(repo)
	user := seedUser(t, repo, models.RoleUser)
	a := seedProduct(t, repo, "A", "10.00", 10)
	b := seedProduct(t, repo, "B", "5.00", 10)

	_, err := svc.AddItem(ctx, user.ID, a.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user.ID, b.ID, 1)
	require.NoError(t, err)

	cart, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, cart.TotalPrice.Equal(dec("25.00")))
	assert.Equal(t, 3, cart.TotalItems)
	require.Len(t, cart.Items, 2)
	require.NotNil(t, cart.Items[0].Product)
	assert.Equal(t, "A", cart.Items[0].Product.Name)

	assertCartConsistent(t, repo, user.ID)
}

func TestGetCreatesEmptyCart(t *testing.T) {
	repo := storetest.New()
	svc := NewCartService(repo)
	user := seedUser(t, repo, models.RoleUser)

	cart, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.NotZero(t, cart.ID)
	assert.True(t, cart.TotalPrice.IsZero())
	assert.Empty(t, cart.Items)

	again, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)
}

func TestAddSameProductTwiceMergesLine(t *testing.T) {
	repo := storetest.New()
	svc := NewCartService(repo)
	user := seedUser(t, repo, models.RoleUser)
	a := seedProduct(t, repo, "A", "10.00", 10)

	first, err := svc.AddItem(ctx, user.ID, a.ID, 2)
	require.NoError(t, err)
	second, err := svc.AddItem(ctx, user.ID, a.ID, 3)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)

	cart := assertCartConsistent(t, repo, user.ID)
	items, err := repo.ListCartItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.True(t, cart.TotalPrice.Equal(dec("50.00")))
}

func TestReAddRepricesAtCurrentPrice(t *testing.T) {
	repo := storetest.New()
	svc := NewCartService(repo)
	user := seedUser(t, repo, models.RoleUser)
	a := seedProduct(t, repo, "A", "10.00", 10)

	_, err := svc.AddItem(ctx, user.ID, a.ID, 1)
	require.NoError(t, err)

	a.Price = dec("12.00")
	require.NoError(t, repo.UpdateProduct(ctx, a))

	item, err := svc.AddItem(ctx, user.ID, a.ID, 1)
	require.NoError(t, err)
	assert.True(t, item.Price.Equal(dec("12.00")))
	assert.True(t, item.Subtotal.Equal(dec("24.00")))

	cart := assertCartConsistent(t, repo, user.ID)
	assert.True(t, cart.TotalPrice.Equal(dec("24.00")))
}

func TestAddExceedingStockLeavesCartUnchanged(t *testing.T) {
	repo := storetest.New()
	svc := NewCartService(repo)
	user := seedUser(t, repo, models.RoleUser)
	a := seedProduct(t, repo, "A", "10.00", 3)

	_, err := svc.AddItem(ctx, user.ID, a.ID, 2)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, user.ID, a.ID, 2)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Equal(t, "Insufficient stock available", apperror.From(err).Message)

	_, err = svc.AddItem(ctx, user.ID, a.ID, 4)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	cart := assertCartConsistent(t, repo, user.ID)
	assert.Equal(t, 2, cart.TotalItems)
	assert.True(t, cart.TotalPrice.Equal(dec("20.00")))
}

func TestAddRejects(t *testing.T) {
	repo := storetest.New()
	svc := NewCartService(repo)
	user := seedUser(t, repo, models.RoleUser)
	inactive := seedProduct(t, repo, "Old", "1.00", 5)
	inactive.IsActive = false
	require.NoError(t, repo.UpdateProduct(ctx, inactive))

	_, err := svc.AddItem(ctx, user.ID, inactive.ID, 1)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = svc.AddItem(ctx, user.ID, 999, 1)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = svc.AddItem(ctx, user.ID, inactive.ID, 0)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestUpdateItemUsesCapturedPrice(t *testing.T) {
	repo := storetest.New()
	svc := NewCartService(repo)
	user := seedUser(t, repo, models.RoleUser)
	a := seedProduct(t, repo, "A", "10.00", 10)
	b := seedProduct(t, repo, "B", "5.00", 10)

	item, err := svc.AddItem(ctx, user.ID, a.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user.ID, b.ID, 1)
	require.NoError(t, err)

	a.Price = dec("99.00")
	require.NoError(t, repo.UpdateProduct(ctx, a))

	updated, err := svc.UpdateItem(ctx, user.ID, item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)
	assert.True(t, updated.Subtotal.Equal(dec("40.00")))

	cart := assertCartConsistent(t, repo, user.ID)
	assert.True(t, cart.TotalPrice.Equal(dec("45.00")))
	assert.Equal(t, 5, cart.TotalItems)
}

func TestUpdateItemChecksAbsoluteQuantityAgainstStock(t *testing.T) {
	repo := storetest.New()
	svc := NewCartService(repo)
	user := seedUser(t, repo, models.RoleUser)
	a := seedProduct(t, repo, "A", "10.00", 3)

	item, err := svc.AddItem(ctx, user.ID, a.ID, 2)
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, user.ID, item.ID, 3)
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, user.ID, item.ID, 4)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.UpdateItem(ctx, user.ID, item.ID, 0)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	cart := assertCartConsistent(t, repo, user.ID)
	assert.Equal(t, 3, cart.TotalItems)
}

func TestItemOwnershipIsEnforced(t *testing.T) {
	repo := storetest.New()
	svc := NewCartService(repo)
	owner := seedUser(t, repo, models.RoleUser)
	other := seedUser(t, repo, models.RoleUser)
	a := seedProduct(t, repo, "A", "10.00", 10)

	item, err := svc.AddItem(ctx, owner.ID, a.ID, 1)
	require.NoError(t, err)

	// other has no cart yet
	_, err = svc.UpdateItem(ctx, other.ID, item.ID, 2)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = svc.Get(ctx, other.ID)
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, other.ID, item.ID, 2)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	err = svc.RemoveItem(ctx, other.ID, item.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	cart := assertCartConsistent(t, repo, owner.ID)
	assert.Equal(t, 1, cart.TotalItems)
}

func TestRemoveItemAndClear(t *testing.T) {
	repo := storetest.New()
	svc := NewCartService(repo)
	user := seedUser(t, repo, models.RoleUser)
	a := seedProduct(t, repo, "A", "10.00", 10)
	b := seedProduct(t, repo, "B", "5.00", 10)

	itemA, err := svc.AddItem(ctx, user.ID, a.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user.ID, b.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(ctx, user.ID, itemA.ID))
	cart := assertCartConsistent(t, repo, user.ID)
	assert.True(t, cart.TotalPrice.Equal(dec("5.00")))
	assert.Equal(t, 1, cart.TotalItems)

	err = svc.RemoveItem(ctx, user.ID, itemA.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	require.NoError(t, svc.Clear(ctx, user.ID))
	cart = assertCartConsistent(t, repo, user.ID)
	assert.True(t, cart.TotalPrice.IsZero())
	assert.Zero(t, cart.TotalItems)
}

func TestClearWithoutCart(t *testing.T) {
	repo := storetest.New()
	svc := NewCartService(repo)
	user := seedUser(t, repo, models.RoleUser)

	err := svc.Clear(ctx, user.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestFailedRecalculationRollsBack(t *testing.T) {
	repo := storetest.New()
	svc := NewCartService(repo)
	user := seedUser(t, repo, models.RoleUser)
	a := seedProduct(t, repo, "A", "10.00", 10)

	_, err := svc.AddItem(ctx, user.ID, a.ID, 1)
	require.NoError(t, err)

	repo.FailOn("UpdateCartTotals", errors.New("connection lost"))
	_, err = svc.AddItem(ctx, user.ID, a.ID, 1)
	require.Error(t, err)

	cart := assertCartConsistent(t, repo, user.ID)
	assert.Equal(t, 1, cart.TotalItems)
}

func TestConcurrentAddsDoNotLoseUpdates(t *testing.T) {
	repo := storetest.New()
	svc := NewCartService(repo)
	user := seedUser(t, repo, models.RoleUser)
	a := seedProduct(t, repo, "A", "2.50", 100)
	b := seedProduct(t, repo, "B", "1.00", 100)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			productID := a.ID
			if i%2 == 1 {
				productID = b.ID
			}
			_, err := svc.AddItem(ctx, user.ID, productID, 1)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	cart := assertCartConsistent(t, repo, user.ID)
	assert.Equal(t, 20, cart.TotalItems)
	assert.True(t, cart.TotalPrice.Equal(dec("35.00")))
}

func TestCartTotalsHelper(t *testing.T) {
	total, count := cartTotals([]models.CartItem{
		{Quantity: 2, Subtotal: dec("20.00")},
		{Quantity: 1, Subtotal: dec("5.00")},
	})
	assert.True(t, total.Equal(dec("25")))
	assert.Equal(t, 3, count)

	total, count = cartTotals(nil)
	assert.True(t, total.IsZero())
	assert.Zero(t, count)
}
