package service

import (
	"errors"
	"mime/multipart"
	"testing"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/store/storetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newProductInput() *ProductInput {
	return &ProductInput{
		Name:        strPtr("Lamp"),
		Description: strPtr("Desk lamp"),
		Price:       decPtr("19.99"),
		Stock:       intPtr(4),
		Category:    strPtr(models.CategoryHome),
	}
}

func TestCreateProduct(t *testing.T) {
	repo := storetest.New()
	images := &fakeImages{}
	svc := NewProductService(repo, images)

	in := newProductInput()
	in.Image = &multipart.FileHeader{Filename: "lamp.png"}
	product, err := svc.Create(ctx, 7, in)
	require.NoError(t, err)
	assert.True(t, product.IsActive)
	assert.Equal(t, int64(7), product.CreatedBy)
	require.NotNil(t, product.Image)
	assert.Equal(t, "/uploads/lamp.png", *product.Image)

	got, err := svc.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", got.Name)
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewProductService(storetest.New(), &fakeImages{})

	_, err := svc.Create(ctx, 1, &ProductInput{})
	require.Error(t, err)
	assert.Len(t, apperror.From(err).Details, 5)

	in := newProductInput()
	in.Category = strPtr("Groceries")
	_, err = svc.Create(ctx, 1, in)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	in = newProductInput()
	in.Price = decPtr("-1")
	_, err = svc.Create(ctx, 1, in)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestUpdateProductReplacesImage(t *testing.T) {
	repo := storetest.New()
	images := &fakeImages{}
	svc := NewProductService(repo, images)

	in := newProductInput()
	in.Image = &multipart.FileHeader{Filename: "old.png"}
	product, err := svc.Create(ctx, 1, in)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, product.ID, &ProductInput{
		Stock: intPtr(10),
		Image: &multipart.FileHeader{Filename: "new.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Stock)
	assert.Equal(t, "Lamp", updated.Name)
	assert.Equal(t, "/uploads/new.png", *updated.Image)
	assert.Equal(t, []string{"/uploads/old.png"}, images.removed)

	_, err = svc.Update(ctx, product.ID, &ProductInput{Stock: intPtr(-1)})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.Update(ctx, 999, &ProductInput{})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestInactiveProductIsHidden(t *testing.T) {
	repo := storetest.New()
	svc := NewProductService(repo, &fakeImages{})

	product, err := svc.Create(ctx, 1, newProductInput())
	require.NoError(t, err)
	_, err = svc.Update(ctx, product.ID, &ProductInput{IsActive: boolPtr(false)})
	require.NoError(t, err)

	_, err = svc.Get(ctx, product.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	products, total, err := svc.List(ctx, "", Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, products)
}

func TestListCategoryAndSearch(t *testing.T) {
	repo := storetest.New()
	svc := NewProductService(repo, &fakeImages{})

	for _, name := range []string{"Red Lamp", "Blue Lamp", "Chair"} {
		in := newProductInput()
		in.Name = strPtr(name)
		in.Description = strPtr(name + " for the study")
		if name == "Chair" {
			in.Category = strPtr(models.CategoryFurniture)
		}
		_, err := svc.Create(ctx, 1, in)
		require.NoError(t, err)
	}

	products, total, err := svc.ByCategory(ctx, models.CategoryFurniture, Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Chair", products[0].Name)

	_, _, err = svc.ByCategory(ctx, "Nope", Page{Number: 1, Size: 10})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	products, total, err = svc.Search(ctx, "lamp", Page{Number: 2, Size: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, products, 1)
	assert.Equal(t, "Red Lamp", products[0].Name)

	_, _, err = svc.Search(ctx, " ", Page{Number: 1, Size: 1})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestDeleteProductRecomputesCarts(t *testing.T) {
	repo := storetest.New()
	images := &fakeImages{}
	products := NewProductService(repo, images)
	carts := NewCartService(repo)
	wishlist := NewWishlistService(repo)
	u1 := seedUser(t, repo, models.RoleUser)
	u2 := seedUser(t, repo, models.RoleUser)

	in := newProductInput()
	in.Image = &multipart.FileHeader{Filename: "lamp.png"}
	lamp, err := products.Create(ctx, 1, in)
	require.NoError(t, err)
	other := seedProduct(t, repo, "Other", "5.00", 10)

	for _, u := range []*models.User{u1, u2} {
		_, err := carts.AddItem(ctx, u.ID, lamp.ID, 2)
		require.NoError(t, err)
		_, err = carts.AddItem(ctx, u.ID, other.ID, 1)
		require.NoError(t, err)
	}
	_, err = wishlist.Add(ctx, u1.ID, lamp.ID)
	require.NoError(t, err)

	require.NoError(t, products.Delete(ctx, lamp.ID))

	for _, u := range []*models.User{u1, u2} {
		cart := assertCartConsistent(t, repo, u.ID)
		assert.Equal(t, 1, cart.TotalItems)
		assert.True(t, cart.TotalPrice.Equal(dec("5.00")))
	}
	items, err := wishlist.List(ctx, u1.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, []string{"/uploads/lamp.png"}, images.removed)

	err = products.Delete(ctx, lamp.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestDeleteProductRollsBackWhenCartLockFails(t *testing.T) {
	repo := storetest.New()
	products := NewProductService(repo, &fakeImages{})
	carts := NewCartService(repo)
	user := seedUser(t, repo, models.RoleUser)
	lamp := seedProduct(t, repo, "Lamp", "10.00", 5)

	_, err := carts.AddItem(ctx, user.ID, lamp.ID, 2)
	require.NoError(t, err)

	repo.FailOn("GetCartByID", errors.New("lock timeout"))
	require.Error(t, products.Delete(ctx, lamp.ID))

	_, err = repo.GetProductByID(ctx, lamp.ID)
	require.NoError(t, err)
	cart := assertCartConsistent(t, repo, user.ID)
	assert.Equal(t, 2, cart.TotalItems)
}
