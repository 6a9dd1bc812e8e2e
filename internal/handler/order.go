package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ha165/orderdesk/internal/domain/auth"
	"github.com/ha165/orderdesk/internal/domain/order"
	"github.com/ha165/orderdesk/internal/invoice"
)

type checkoutRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address1      string `json:"address1"`
	Address2      string `json:"address2"`
	PostCode      string `json:"post_code"`
	ShippingID    string `json:"shipping_id"`
	PaymentMethod string `json:"payment_method"`
}

type orderResponse struct {
	ID            string `json:"id"`
	OrderNumber   string `json:"order_number"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address1      string `json:"address1"`
	Address2      string `json:"address2,omitempty"`
	PostCode      string `json:"post_code,omitempty"`
	ShippingPrice string `json:"shipping_price"`
	Coupon        string `json:"coupon"`
	SubTotal      string `json:"sub_total"`
	Quantity      int    `json:"quantity"`
	TotalAmount   string `json:"total_amount"`
	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `json:"payment_status"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

type checkoutResponse struct {
	Order    orderResponse `json:"order"`
	Redirect string        `json:"redirect"`
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		OrderNumber:   o.Number,
		FirstName:     o.FirstName,
		LastName:      o.LastName,
		Email:         o.Email,
		Phone:         o.Phone,
		Address1:      o.Address1,
		Address2:      o.Address2,
		PostCode:      o.PostCode,
		ShippingPrice: o.ShippingPrice.StringFixed(2),
		Coupon:        o.Coupon.StringFixed(2),
		SubTotal:      o.SubTotal.StringFixed(2),
		Quantity:      o.Quantity,
		TotalAmount:   o.TotalAmount.StringFixed(2),
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Checkout places an order from the caller's open cart lines.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := h.orders.Create(r.Context(), order.CheckoutRequest{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Phone:         req.Phone,
		Address1:      req.Address1,
		Address2:      req.Address2,
		PostCode:      req.PostCode,
		ShippingID:    req.ShippingID,
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
	}, identity.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, checkoutResponse{
		Order:    toOrderResponse(result.Order),
		Redirect: string(result.Redirect),
	})
}

// GetOrder returns a single order. Customers may only read their own orders;
// admins may read any.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if o.UserID != identity.UserID && !identity.Can(auth.ActionManageOrders) {
		// Existence of someone else's order is not disclosed.
		respondError(w, r, http.StatusNotFound, "not found")
		return
	}

	respondJSON(w, r, http.StatusOK, toOrderResponse(o))
}

// ListOrders returns orders latest-first, paginated with limit/offset query
// parameters. Admin only.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	list, err := h.orders.List(r.Context(), limit, offset)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]orderResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toOrderResponse(&list[i]))
	}
	respondJSON(w, r, http.StatusOK, resp)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus transitions an order through the lifecycle. Admin only.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, toOrderResponse(o))
}

// DeleteOrder removes an order and releases its cart lines. Admin only.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type trackRequest struct {
	OrderNumber string `json:"order_number"`
}

type trackResponse struct {
	Message string `json:"message"`
}

// TrackOrder resolves one of the caller's order numbers to a status message.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req trackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.OrderNumber == "" {
		respondError(w, r, http.StatusUnprocessableEntity, "order_number: required")
		return
	}

	msg, err := h.orders.TrackByNumber(r.Context(), req.OrderNumber, identity.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, trackResponse{Message: msg})
}

// DownloadInvoice renders the order's invoice as a PDF attachment.
func (h *Handler) DownloadInvoice(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if o.UserID != identity.UserID && !identity.Can(auth.ActionManageOrders) {
		respondError(w, r, http.StatusNotFound, "not found")
		return
	}

	lines, err := h.carts.LinesByOrder(r.Context(), o.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	pdf, err := h.invoices.Render(r.Context(), o, lines)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+invoice.Filename(o)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		return
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
