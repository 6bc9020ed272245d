package router

import (
	"github.com/erp/portal/internal/interfaces/http/handler"
	"github.com/erp/portal/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PortalHandlers are the handlers behind the portal routes
type PortalHandlers struct {
	Profile     *handler.ProfileHandler
	Quote       *handler.QuoteHandler
	Invoice     *handler.InvoiceHandler
	ItemRequest *handler.ItemRequestHandler
}

// PortalAuth configures authentication of the portal routes
type PortalAuth struct {
	Validator middleware.TokenValidator
	// CustomerRole is required on the self-service routes when set
	CustomerRole string
	// AdminRoles may scrap quotes and triage item requests
	AdminRoles []string
	Logger     *zap.Logger
}

// NewPortalRoutes builds the /portal route group.
// Customer routes need a token carrying the customer role, paying an invoice
// accepts an anonymous caller and the triage routes need one of the admin roles.
func NewPortalRoutes(h PortalHandlers, auth PortalAuth) *DomainGroup {
	requireToken := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		Validator: auth.Validator,
		Logger:    auth.Logger,
	})

	portal := NewDomainGroup("portal", "/portal")

	customer := portal.Group("customer", "").Use(requireToken)
	if auth.CustomerRole != "" {
		customer.Use(middleware.RequireRole(auth.CustomerRole))
	}
	customer.GET("/profile", h.Profile.Get).
		POST("/profile", h.Profile.Upsert).
		POST("/request", h.Quote.Create).
		GET("/quotes", h.Quote.List).
		POST("/quotes/:id/approve", h.Quote.Approve).
		POST("/quotes/:id/reject", h.Quote.Reject).
		GET("/invoices", h.Invoice.List).
		GET("/invoices/:id", h.Invoice.Get).
		GET("/receipts", h.Invoice.Receipts).
		POST("/item-requests", h.ItemRequest.Create).
		GET("/my-item-requests", h.ItemRequest.ListMine)

	payments := portal.Group("payments", "").Use(middleware.OptionalJWTAuthMiddleware(auth.Validator))
	payments.POST("/invoices/:id/pay", h.Invoice.Pay)

	admin := portal.Group("admin", "").Use(requireToken, middleware.RequireRole(auth.AdminRoles...))
	admin.POST("/quotes/:id/scrap", h.Quote.Scrap).
		GET("/item-requests", h.ItemRequest.List).
		PATCH("/item-requests/:id/status", h.ItemRequest.UpdateStatus)

	return portal
}

// RegisterHealth adds GET /health outside the versioned API
func RegisterHealth(engine *gin.Engine, h *handler.HealthHandler) {
	engine.GET("/health", h.Health)
}
