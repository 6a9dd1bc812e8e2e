package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ha165/orderdesk/internal/domain/cart"
)

type addCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cartLineResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	Amount    string `json:"amount"`
}

func toCartLineResponse(l cart.Line) cartLineResponse {
	return cartLineResponse{
		ID:        l.ID,
		ProductID: l.ProductID,
		Price:     l.Price.StringFixed(2),
		Quantity:  l.Quantity,
		Amount:    l.Amount.StringFixed(2),
	}
}

// AddCartLine adds a product to the caller's open cart. The unit price is
// captured from the product at add time, so later price changes do not affect
// lines already in the cart.
func (h *Handler) AddCartLine(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req addCartRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.ProductID == "" {
		respondError(w, r, http.StatusUnprocessableEntity, "product_id: required")
		return
	}
	if req.Quantity < 1 {
		respondError(w, r, http.StatusUnprocessableEntity, "quantity: must be at least 1")
		return
	}

	p, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	line := &cart.Line{
		ID:        uuid.New().String(),
		UserID:    identity.UserID,
		ProductID: p.ID,
		Price:     p.Price,
		Quantity:  req.Quantity,
		Amount:    p.Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
	}
	if err := h.carts.Add(r.Context(), line); err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, toCartLineResponse(*line))
}

// ListCart returns the caller's open cart lines.
func (h *Handler) ListCart(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	lines, err := h.carts.OpenLines(r.Context(), identity.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]cartLineResponse, 0, len(lines))
	for _, l := range lines {
		resp = append(resp, toCartLineResponse(l))
	}
	respondJSON(w, r, http.StatusOK, resp)
}
