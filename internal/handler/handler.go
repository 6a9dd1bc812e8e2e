// Package handler exposes the order service over HTTP. Routing is chi based;
// business logic lives in the domain services and handlers only translate
// between the wire and the domain.
package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ha165/orderdesk/internal/domain/auth"
	"github.com/ha165/orderdesk/internal/domain/cart"
	"github.com/ha165/orderdesk/internal/domain/coupon"
	"github.com/ha165/orderdesk/internal/domain/order"
	"github.com/ha165/orderdesk/internal/domain/product"
	"github.com/ha165/orderdesk/internal/invoice"
	"github.com/ha165/orderdesk/internal/payment"
	"github.com/ha165/orderdesk/internal/session"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// APIKeyPepper is the HMAC key used to hash incoming API keys before the
	// repository lookup.
	APIKeyPepper string
	// PaymentFailedURL is where a customer lands after a declined capture.
	// When empty, a plain-text notice is served instead of a redirect.
	PaymentFailedURL string
}

// Handler wires domain services to HTTP routes.
type Handler struct {
	cfg      Config
	apikeys  auth.Repository
	products product.Repository
	carts    cart.Repository
	coupons  coupon.Repository
	sessions session.Store
	orders   *order.Service
	payments *payment.Service
	invoices *invoice.Renderer
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	apikeys auth.Repository,
	products product.Repository,
	carts cart.Repository,
	coupons coupon.Repository,
	sessions session.Store,
	orders *order.Service,
	payments *payment.Service,
	invoices *invoice.Renderer,
) *Handler {
	return &Handler{
		cfg:      cfg,
		apikeys:  apikeys,
		products: products,
		carts:    carts,
		coupons:  coupons,
		sessions: sessions,
		orders:   orders,
		payments: payments,
		invoices: invoices,
	}
}

// Routes builds the API router. Every /api route requires a valid API key;
// administrative routes additionally require the matching capability.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Route("/cart", func(r chi.Router) {
			r.Post("/", h.AddCartLine)
			r.Get("/", h.ListCart)
		})
		r.Post("/coupon", h.ApplyCoupon)
		r.Post("/checkout", h.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.With(h.Require(auth.ActionManageOrders)).Get("/", h.ListOrders)
			r.Post("/track", h.TrackOrder)
			r.Get("/{id}", h.GetOrder)
			r.Get("/{id}/invoice", h.DownloadInvoice)
			r.With(h.Require(auth.ActionManageOrders)).Patch("/{id}/status", h.UpdateOrderStatus)
			r.With(h.Require(auth.ActionManageOrders)).Delete("/{id}", h.DeleteOrder)
		})

		r.With(h.Require(auth.ActionViewReports)).Get("/reports/income", h.IncomeReport)

		r.Route("/payment", func(r chi.Router) {
			r.Get("/pay", h.PayOrder)
			r.Get("/success", h.PaymentSuccess)
			r.Get("/cancel", h.PaymentCancel)
		})
	})

	return r
}
