package api

import (
	"fmt"
	"net/http"
	"time"

	"storefront/internal/export"
	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyHeader lets clients retry order placement safely
const IdempotencyHeader = "Idempotency-Key"

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

type updatePaymentRequest struct {
	PaymentStatus models.PaymentStatus `json:"paymentStatus" binding:"required"`
}

func (h *Handler) listOrders(c *gin.Context) {
	page := h.parsePage(c)
	orders, total, err := h.orders.List(c.Request.Context(), currentUser(c), page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondPage(c, orders, total, page)
}

// placeOrder checks out the cart. A replayed idempotency key answers 200
// with the order it produced the first time.
func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyHeader)

	order, replayed, err := h.orders.Place(c.Request.Context(), currentUser(c).ID, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if replayed {
		respond(c, http.StatusOK, "Order already created", order)
		return
	}
	respond(c, http.StatusCreated, "Order created successfully", order)
}

func (h *Handler) getOrder(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	order, err := h.orders.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", order)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	order, err := h.orders.Cancel(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order cancelled successfully", order)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req updateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order status updated", order)
}

func (h *Handler) updatePaymentStatus(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req updatePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orders.UpdatePaymentStatus(c.Request.Context(), id, req.PaymentStatus)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Payment status updated", order)
}

func (h *Handler) orderStats(c *gin.Context) {
	stats, err := h.orders.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}

func (h *Handler) orderHistory(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	entries, err := h.orders.History(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondList(c, entries, len(entries))
}

// exportOrders streams every order as an xlsx workbook
func (h *Handler) exportOrders(c *gin.Context) {
	orders, err := h.orders.All(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Expires", "0")
	c.Status(http.StatusOK)

	if err := export.WriteOrders(c.Writer, orders); err != nil {
		h.logger.Error("Failed to write orders export", zap.Error(err))
	}
}
