package handler

import (
	"github.com/erp/portal/internal/interfaces/http/dto"
	"github.com/erp/portal/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// ProfileHandler serves the caller's customer profile
type ProfileHandler struct {
	BaseHandler
	profiles ProfileService
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profiles ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Get handles GET /profile
func (h *ProfileHandler) Get(c *gin.Context) {
	customer, err := h.profiles.GetProfile(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customer)
}

// Upsert handles POST /profile
func (h *ProfileHandler) Upsert(c *gin.Context) {
	var req dto.ProfileRequest
	if !h.BindJSON(c, &req) {
		return
	}

	customer, err := h.profiles.UpsertProfile(c.Request.Context(), middleware.GetPrincipal(c), req.ToInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, "Profile updated successfully", customer)
}
