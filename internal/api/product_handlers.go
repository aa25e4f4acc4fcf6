package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/apperror"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// productBody is the JSON form of a product write
type productBody struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Category    *string          `json:"category"`
	IsActive    *bool            `json:"isActive"`
}

// parseProductInput reads a product write from a multipart form, where the
// optional image travels, or from a JSON body
func (h *Handler) parseProductInput(c *gin.Context) (*service.ProductInput, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		var body productBody
		if err := c.ShouldBindJSON(&body); err != nil {
			return nil, bindingError(err)
		}
		return &service.ProductInput{
			Name:        body.Name,
			Description: body.Description,
			Price:       body.Price,
			Stock:       body.Stock,
			Category:    body.Category,
			IsActive:    body.IsActive,
		}, nil
	}

	in := &service.ProductInput{}
	var details []string

	if v, ok := c.GetPostForm("name"); ok {
		in.Name = &v
	}
	if v, ok := c.GetPostForm("description"); ok {
		in.Description = &v
	}
	if v, ok := c.GetPostForm("category"); ok {
		in.Category = &v
	}
	if v, ok := c.GetPostForm("price"); ok {
		price, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			details = append(details, "Valid price is required")
		} else {
			in.Price = &price
		}
	}
	if v, ok := c.GetPostForm("stock"); ok {
		stock, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			details = append(details, "Valid stock quantity is required")
		} else {
			in.Stock = &stock
		}
	}
	if v, ok := c.GetPostForm("isActive"); ok {
		active, err := strconv.ParseBool(v)
		if err != nil {
			details = append(details, "isActive must be true or false")
		} else {
			in.IsActive = &active
		}
	}
	if len(details) > 0 {
		return nil, apperror.Validation("Validation failed", details...)
	}

	if file, err := c.FormFile("image"); err == nil {
		in.Image = file
	} else if !errors.Is(err, http.ErrMissingFile) {
		return nil, apperror.Validation("Invalid image upload")
	}
	return in, nil
}

func (h *Handler) listProducts(c *gin.Context) {
	page := h.parsePage(c)
	products, total, err := h.products.List(c.Request.Context(), c.Query("category"), page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondPage(c, products, total, page)
}

func (h *Handler) productsByCategory(c *gin.Context) {
	page := h.parsePage(c)
	products, total, err := h.products.ByCategory(c.Request.Context(), c.Param("category"), page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondPage(c, products, total, page)
}

func (h *Handler) searchProducts(c *gin.Context) {
	page := h.parsePage(c)
	products, total, err := h.products.Search(c.Request.Context(), c.Param("query"), page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondPage(c, products, total, page)
}

func (h *Handler) getProduct(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	product, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", product)
}

func (h *Handler) createProduct(c *gin.Context) {
	in, err := h.parseProductInput(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	product, err := h.products.Create(c.Request.Context(), currentUser(c).ID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Product created successfully", product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	in, err := h.parseProductInput(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	product, err := h.products.Update(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product updated successfully", product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product deleted successfully", nil)
}
