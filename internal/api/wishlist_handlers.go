package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addWishlistRequest struct {
	ProductID int64 `json:"productId"`
}

func (h *Handler) getWishlist(c *gin.Context) {
	items, err := h.wishlist.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondList(c, items, len(items))
}

func (h *Handler) addToWishlist(c *gin.Context) {
	var req addWishlistRequest
	if !h.bindJSON(c, &req) {
		return
	}

	item, err := h.wishlist.Add(c.Request.Context(), currentUser(c).ID, req.ProductID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Item added to wishlist", item)
}

func (h *Handler) removeFromWishlist(c *gin.Context) {
	productID, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.wishlist.Remove(c.Request.Context(), currentUser(c).ID, productID); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Item removed from wishlist", nil)
}

func (h *Handler) checkWishlist(c *gin.Context) {
	productID, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	in, err := h.wishlist.Contains(c.Request.Context(), currentUser(c).ID, productID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "inWishlist": in})
}

func (h *Handler) clearWishlist(c *gin.Context) {
	if err := h.wishlist.Clear(c.Request.Context(), currentUser(c).ID); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Wishlist cleared successfully", nil)
}
