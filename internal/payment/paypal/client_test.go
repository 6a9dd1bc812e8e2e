package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha165/orderdesk/internal/payment"
)

func testIntent() payment.Intent {
	return payment.Intent{
		Currency: "USD",
		Items: []payment.IntentItem{
			{Name: "Widget", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2},
		},
		ItemTotal: decimal.RequireFromString("20.00"),
		Shipping:  decimal.RequireFromString("4.99"),
		Discount:  decimal.RequireFromString("5.00"),
		Total:     decimal.RequireFromString("19.99"),
	}
}

// newServer builds an httptest server that issues tokens and delegates
// checkout calls to the given handler.
func newServer(t *testing.T, checkout http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "token request must use basic auth")
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.FormValue("grant_type"))

		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token"})
	})
	mux.HandleFunc("/v2/checkout/", checkout)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := New(Config{
		BaseURL:   srv.URL,
		ClientID:  "client-id",
		Secret:    "client-secret",
		ReturnURL: "https://shop.example.com/payment/success",
		CancelURL: "https://shop.example.com/payment/cancel",
	})
	return srv, client
}

func TestCreateOrder(t *testing.T) {
	var gotBody createOrderRequest

	_, client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/checkout/orders", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(orderResponse{
			ID:     "PP-123",
			Status: "CREATED",
			Links: []link{
				{Href: "https://api.example.com/self", Rel: "self", Method: "GET"},
				{Href: "https://paypal.example.com/approve", Rel: "approve", Method: "GET"},
			},
		})
	})

	po, err := client.CreateOrder(context.Background(), testIntent())
	require.NoError(t, err)

	assert.Equal(t, "PP-123", po.ID)
	assert.Equal(t, "https://paypal.example.com/approve", po.ApproveURL)

	assert.Equal(t, "CAPTURE", gotBody.Intent)
	require.Len(t, gotBody.PurchaseUnits, 1)
	pu := gotBody.PurchaseUnits[0]
	assert.Equal(t, "19.99", pu.Amount.Value)
	assert.Equal(t, "USD", pu.Amount.CurrencyCode)
	require.NotNil(t, pu.Amount.Breakdown)
	assert.Equal(t, "20.00", pu.Amount.Breakdown.ItemTotal.Value)
	assert.Equal(t, "4.99", pu.Amount.Breakdown.Shipping.Value)
	assert.Equal(t, "5.00", pu.Amount.Breakdown.Discount.Value)
	require.Len(t, pu.Items, 1)
	assert.Equal(t, "Widget", pu.Items[0].Name)
	assert.Equal(t, "10.00", pu.Items[0].UnitAmount.Value)
	assert.Equal(t, "2", pu.Items[0].Quantity)
	assert.Equal(t, "https://shop.example.com/payment/success", gotBody.ApplicationContext.ReturnURL)
}

// The approve link must be found by rel regardless of its position.
func TestCreateOrder_ApproveLinkByRelNotPosition(t *testing.T) {
	_, client := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(orderResponse{
			ID: "PP-456",
			Links: []link{
				{Href: "https://paypal.example.com/approve", Rel: "approve"},
				{Href: "https://api.example.com/self", Rel: "self"},
			},
		})
	})

	po, err := client.CreateOrder(context.Background(), testIntent())
	require.NoError(t, err)
	assert.Equal(t, "https://paypal.example.com/approve", po.ApproveURL)
}

func TestCreateOrder_MissingApproveLink(t *testing.T) {
	_, client := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(orderResponse{
			ID:    "PP-789",
			Links: []link{{Href: "https://api.example.com/self", Rel: "self"}},
		})
	})

	_, err := client.CreateOrder(context.Background(), testIntent())
	require.ErrorContains(t, err, "approve link")
}

func TestCreateOrder_ProviderRejects(t *testing.T) {
	_, client := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"name":"INVALID_REQUEST"}`, http.StatusUnprocessableEntity)
	})

	_, err := client.CreateOrder(context.Background(), testIntent())
	require.ErrorContains(t, err, "422")
}

func TestCapture(t *testing.T) {
	_, client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/checkout/orders/PP-123/capture", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(orderResponse{ID: "PP-123", Status: "COMPLETED"})
	})

	res, err := client.Capture(context.Background(), "PP-123")
	require.NoError(t, err)
	assert.Equal(t, "PP-123", res.OrderID)
	assert.Equal(t, "COMPLETED", res.Status)
}

func TestCapture_NonCompletedStatusIsReturnedRaw(t *testing.T) {
	_, client := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(orderResponse{ID: "PP-123", Status: "DECLINED"})
	})

	res, err := client.Capture(context.Background(), "PP-123")
	require.NoError(t, err)
	assert.Equal(t, "DECLINED", res.Status)
}

func TestAuthFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := New(Config{BaseURL: srv.URL, ClientID: "bad", Secret: "bad"})

	_, err := client.Capture(context.Background(), "PP-123")
	require.ErrorContains(t, err, "exchange credentials")
}
