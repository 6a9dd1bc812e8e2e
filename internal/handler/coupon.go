package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ha165/orderdesk/internal/domain/coupon"
	"github.com/ha165/orderdesk/internal/domain/pricing"
	"github.com/ha165/orderdesk/internal/session"
)

type applyCouponRequest struct {
	Code string `json:"code"`
}

type applyCouponResponse struct {
	Code     string `json:"code"`
	Discount string `json:"discount"`
}

// ApplyCoupon validates a coupon code against the caller's current cart and
// stores the computed discount in the session. Checkout consumes it; a new
// apply replaces any previous one.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req applyCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Code == "" {
		respondError(w, r, http.StatusUnprocessableEntity, "code: required")
		return
	}

	rule, err := h.coupons.FindByCode(r.Context(), req.Code)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	lines, err := h.carts.OpenLines(r.Context(), identity.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	subtotal := pricing.Calculate(lines, decimal.Zero, decimal.Zero).SubTotal

	discount, err := coupon.Apply(rule, subtotal)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := h.sessions.SetCoupon(r.Context(), identity.UserID, session.Coupon{
		Code:  rule.Code,
		Value: discount,
	}); err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, applyCouponResponse{
		Code:     rule.Code,
		Discount: discount.StringFixed(2),
	})
}
