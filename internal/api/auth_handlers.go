package api

import (
	"net/http"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type updateRoleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req service.RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "User registered successfully", result)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Login successful", result)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", user)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var upd service.ProfileUpdate
	if !h.bindJSON(c, &upd) {
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), currentUser(c).ID, &upd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Profile updated successfully", user)
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), currentUser(c).ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Password changed successfully", nil)
}

func (h *Handler) listUsers(c *gin.Context) {
	page := h.parsePage(c)
	users, total, err := h.auth.ListUsers(c.Request.Context(), page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondPage(c, users, total, page)
}

func (h *Handler) getUser(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	user, err := h.auth.GetUser(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", user)
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.auth.DeleteUser(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "User deleted successfully", nil)
}

func (h *Handler) updateUserRole(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	var req updateRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.auth.UpdateUserRole(c.Request.Context(), id, req.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "User role updated", user)
}
