package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/ha165/orderdesk/internal/payment"
)

// PayOrder starts the gateway flow for an order and redirects the customer to
// the provider's approval page.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		respondError(w, r, http.StatusUnprocessableEntity, "order_id: required")
		return
	}

	o, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if o.UserID != identity.UserID {
		respondError(w, r, http.StatusNotFound, "not found")
		return
	}

	approveURL, err := h.payments.Initiate(r.Context(), orderID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	http.Redirect(w, r, approveURL, http.StatusFound)
}

type paymentResultResponse struct {
	OrderNumber   string `json:"order_number"`
	PaymentStatus string `json:"payment_status"`
	Message       string `json:"message"`
}

// PaymentSuccess is the provider's approval callback. The token query
// parameter carries the provider order id used to correlate back to ours.
func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, r, http.StatusUnprocessableEntity, "token: required")
		return
	}

	o, err := h.payments.Finalize(r.Context(), token)
	if err != nil {
		var captureErr *payment.CaptureFailedError
		if errors.As(err, &captureErr) && h.cfg.PaymentFailedURL != "" {
			zctx.From(r.Context()).Warn("payment capture declined",
				zap.String("provider_status", captureErr.ProviderStatus))
			http.Redirect(w, r, h.cfg.PaymentFailedURL, http.StatusFound)
			return
		}
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, paymentResultResponse{
		OrderNumber:   o.Number,
		PaymentStatus: string(o.PaymentStatus),
		Message:       "Payment completed. Thank you for your purchase.",
	})
}

// PaymentCancel is where the provider sends customers who abandon approval.
// Nothing is mutated; the order stays unpaid and payable.
func (h *Handler) PaymentCancel(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{
		"message": h.payments.CancelMessage(),
	})
}
