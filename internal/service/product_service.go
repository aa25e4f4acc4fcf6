package service

import (
	"context"
	"fmt"
	"mime/multipart"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ImageStore persists product images
type ImageStore interface {
	Save(file *multipart.FileHeader) (string, error)
	Remove(publicPath string) error
}

// ProductService manages the catalog
type ProductService struct {
	repo   store.TxRepository
	images ImageStore
	logger *zap.Logger
}

func NewProductService(repo store.TxRepository, images ImageStore) *ProductService {
	return &ProductService{
		repo:   repo,
		images: images,
		logger: util.GetLogger(),
	}
}

// ProductInput carries the fields of a create or update. Nil fields are
// left unchanged on update and are required on create.
type ProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *string
	IsActive    *bool
	Image       *multipart.FileHeader
}

func (in *ProductInput) apply(p *models.Product, creating bool) error {
	var details []string

	if in.Name != nil {
		p.Name = *in.Name
	}
	if blank(p.Name) && (creating || in.Name != nil) {
		details = append(details, "Product name is required")
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if blank(p.Description) && (creating || in.Description != nil) {
		details = append(details, "Product description is required")
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if (creating && in.Price == nil) || p.Price.IsNegative() {
		details = append(details, "Valid price is required")
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if (creating && in.Stock == nil) || p.Stock < 0 {
		details = append(details, "Valid stock quantity is required")
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if (creating || in.Category != nil) && !models.IsValidCategory(p.Category) {
		details = append(details, "Valid product category is required")
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	if len(details) > 0 {
		return apperror.Validation("Validation failed", details...)
	}
	return nil
}

// List returns a page of active products, optionally narrowed to a category
func (s *ProductService) List(ctx context.Context, category string, page Page) ([]models.Product, int, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.List")
	defer span.End()

	return s.repo.ListProducts(ctx, models.ProductFilter{
		Category: category,
		Limit:    page.Size,
		Offset:   page.offset(),
	})
}

// ByCategory lists active products of one category
func (s *ProductService) ByCategory(ctx context.Context, category string, page Page) ([]models.Product, int, error) {
	if !models.IsValidCategory(category) {
		return nil, 0, apperror.Validation("Invalid category")
	}
	return s.List(ctx, category, page)
}

// Search matches the query against name and description, case-insensitively
func (s *ProductService) Search(ctx context.Context, query string, page Page) ([]models.Product, int, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.Search")
	defer span.End()

	if blank(query) {
		return nil, 0, apperror.Validation("Search query is required")
	}
	return s.repo.ListProducts(ctx, models.ProductFilter{
		Query:  query,
		Limit:  page.Size,
		Offset: page.offset(),
	})
}

// Get returns an active product
func (s *ProductService) Get(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "Product not found")
	}
	if !product.IsActive {
		return nil, apperror.NotFound("Product not found")
	}
	return product, nil
}

// Create adds a product owned by the admin createdBy
func (s *ProductService) Create(ctx context.Context, createdBy int64, in *ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.Create")
	defer span.End()

	product := &models.Product{IsActive: true, CreatedBy: createdBy}
	if err := in.apply(product, true); err != nil {
		return nil, err
	}

	if in.Image != nil {
		imagePath, err := s.images.Save(in.Image)
		if err != nil {
			return nil, apperror.Validation(err.Error())
		}
		product.Image = &imagePath
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		s.removeImage(product.Image)
		return nil, util.RecordError(span, fmt.Errorf("failed to create product: %w", err))
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID))
	return product, nil
}

// Update applies the set fields of in. A new image replaces the old file.
func (s *ProductService) Update(ctx context.Context, id int64, in *ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.Update", util.ProductAttr(id))
	defer span.End()

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "Product not found")
	}
	if err := in.apply(product, false); err != nil {
		return nil, err
	}

	oldImage := product.Image
	if in.Image != nil {
		imagePath, err := s.images.Save(in.Image)
		if err != nil {
			return nil, apperror.Validation(err.Error())
		}
		product.Image = &imagePath
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		if in.Image != nil {
			s.removeImage(product.Image)
		}
		return nil, util.RecordError(span, fmt.Errorf("failed to update product: %w", err))
	}

	if in.Image != nil {
		s.removeImage(oldImage)
	}
	return product, nil
}

// Delete removes a product and its image, then recomputes every cart that
// held it so cart totals keep matching their remaining items.
//
// Locks are taken product first, then carts in id order, the same order
// cart mutations and checkout use. Holding the product lock keeps new cart
// lines for it out while the affected carts are collected.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "ProductService.Delete", util.ProductAttr(id))
	defer span.End()

	var product *models.Product
	err := s.repo.InTx(ctx, func(r store.Repository) error {
		var err error
		product, err = r.GetProductForUpdate(ctx, id)
		if err != nil {
			return notFoundAs(err, "Product not found")
		}

		cartIDs, err := r.GetCartIDsByProduct(ctx, id)
		if err != nil {
			return err
		}
		carts := make([]*models.Cart, 0, len(cartIDs))
		for _, cartID := range cartIDs {
			cart, err := r.GetCartByID(ctx, cartID)
			if err != nil {
				return err
			}
			carts = append(carts, cart)
		}

		if err := r.DeleteProduct(ctx, id); err != nil {
			return notFoundAs(err, "Product not found")
		}

		for _, cart := range carts {
			if err := recalculateCart(ctx, r, cart); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return util.RecordError(span, err)
	}

	s.removeImage(product.Image)
	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

func (s *ProductService) removeImage(imagePath *string) {
	if imagePath == nil || s.images == nil {
		return
	}
	if err := s.images.Remove(*imagePath); err != nil {
		s.logger.Warn("Failed to remove product image", zap.String("path", *imagePath), zap.Error(err))
	}
}
