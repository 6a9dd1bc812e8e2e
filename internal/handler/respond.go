package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/ha165/orderdesk/internal/domain/cart"
	"github.com/ha165/orderdesk/internal/domain/coupon"
	"github.com/ha165/orderdesk/internal/domain/order"
	"github.com/ha165/orderdesk/internal/domain/product"
	"github.com/ha165/orderdesk/internal/payment"
)

// maxBodySize caps request bodies; order payloads are small.
const maxBodySize = 1 << 20

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zctx.From(r.Context()).Warn("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, r, status, errorResponse{Code: status, Message: message})
}

// decodeJSON reads a JSON request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// respondDomainError maps domain errors to HTTP status codes. Unknown errors
// are logged and reported as an opaque 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *order.ValidationError
		transitionErr *order.InvalidTransitionError
		gatewayErr    *payment.GatewayError
		captureErr    *payment.CaptureFailedError
	)

	switch {
	case errors.As(err, &validationErr):
		respondError(w, r, http.StatusUnprocessableEntity, validationErr.Error())
	case errors.Is(err, cart.ErrEmpty):
		respondError(w, r, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, order.ErrNotFound), errors.Is(err, product.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, coupon.ErrInvalidCoupon):
		respondError(w, r, http.StatusUnprocessableEntity, "invalid coupon code")
	case errors.As(err, &transitionErr):
		respondError(w, r, http.StatusConflict, transitionErr.Error())
	case errors.Is(err, order.ErrStaleStatus):
		respondError(w, r, http.StatusConflict, "order was modified concurrently")
	case errors.Is(err, order.ErrInsufficientStock):
		respondError(w, r, http.StatusConflict, "insufficient product stock")
	case errors.Is(err, payment.ErrNotPayable):
		respondError(w, r, http.StatusConflict, "order is not payable")
	case errors.As(err, &gatewayErr), errors.As(err, &captureErr):
		respondError(w, r, http.StatusBadGateway, "payment provider error")
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}
