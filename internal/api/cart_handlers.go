package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// missing fields are left zero and rejected by CartService.AddItem
type addCartItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.carts.Get(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", cart)
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID := currentUser(c).ID
	if _, err := h.carts.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCart(c, http.StatusCreated, userID, "Item added to cart")
}

func (h *Handler) updateCartItem(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req updateCartItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID := currentUser(c).ID
	if _, err := h.carts.UpdateItem(c.Request.Context(), userID, id, *req.Quantity); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCart(c, http.StatusOK, userID, "Cart item updated")
}

func (h *Handler) removeCartItem(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	userID := currentUser(c).ID
	if err := h.carts.RemoveItem(c.Request.Context(), userID, id); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCart(c, http.StatusOK, userID, "Item removed from cart")
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), currentUser(c).ID); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Cart cleared successfully", nil)
}

// respondCart answers a cart mutation with the updated cart
func (h *Handler) respondCart(c *gin.Context, status int, userID int64, message string) {
	cart, err := h.carts.Get(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, status, message, cart)
}
