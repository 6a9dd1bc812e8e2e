// Package paypal is a minimal client for the PayPal Orders v2 REST API:
// credential exchange, order creation with CAPTURE intent, and capture.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/ha165/orderdesk/internal/payment"
)

// Compile-time check that Client satisfies the provider surface.
var _ payment.Provider = (*Client)(nil)

// Config holds the PayPal credentials and redirect endpoints.
type Config struct {
	// BaseURL is the API host, e.g. https://api-m.sandbox.paypal.com.
	BaseURL   string
	ClientID  string
	Secret    string
	ReturnURL string
	CancelURL string
}

// Client calls the PayPal REST API. A fresh access token is exchanged per
// operation; tokens are short-lived and the call volume here does not justify
// caching them.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Client with a bounded request timeout.
func New(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// accessToken exchanges client credentials for a bearer token.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "build token request")
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok tokenResponse
	if err := c.do(req, &tok); err != nil {
		return "", errors.Wrap(err, "exchange credentials")
	}
	if tok.AccessToken == "" {
		return "", errors.New("empty access token in response")
	}
	return tok.AccessToken, nil
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type amountWithBreakdown struct {
	CurrencyCode string     `json:"currency_code"`
	Value        string     `json:"value"`
	Breakdown    *breakdown `json:"breakdown,omitempty"`
}

type breakdown struct {
	ItemTotal amount `json:"item_total"`
	Shipping  amount `json:"shipping"`
	Discount  amount `json:"discount"`
}

type item struct {
	Name       string `json:"name"`
	UnitAmount amount `json:"unit_amount"`
	Quantity   string `json:"quantity"`
}

type purchaseUnit struct {
	Amount amountWithBreakdown `json:"amount"`
	Items  []item              `json:"items"`
}

type createOrderRequest struct {
	Intent             string         `json:"intent"`
	PurchaseUnits      []purchaseUnit `json:"purchase_units"`
	ApplicationContext appContext     `json:"application_context"`
}

type appContext struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []link `json:"links"`
}

// CreateOrder submits the intent with immediate capture intent and returns
// the provider order id plus the buyer approval URL. The approval link is
// selected by its rel, never by its position in the links array.
func (c *Client) CreateOrder(ctx context.Context, intent payment.Intent) (*payment.ProviderOrder, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]item, len(intent.Items))
	for i, it := range intent.Items {
		items[i] = item{
			Name: it.Name,
			UnitAmount: amount{
				CurrencyCode: intent.Currency,
				Value:        it.UnitPrice.StringFixed(2),
			},
			Quantity: strconv.Itoa(it.Quantity),
		}
	}

	body := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount: amountWithBreakdown{
				CurrencyCode: intent.Currency,
				Value:        intent.Total.StringFixed(2),
				Breakdown: &breakdown{
					ItemTotal: amount{CurrencyCode: intent.Currency, Value: intent.ItemTotal.StringFixed(2)},
					Shipping:  amount{CurrencyCode: intent.Currency, Value: intent.Shipping.StringFixed(2)},
					Discount:  amount{CurrencyCode: intent.Currency, Value: intent.Discount.StringFixed(2)},
				},
			},
			Items: items,
		}},
		ApplicationContext: appContext{
			ReturnURL: c.cfg.ReturnURL,
			CancelURL: c.cfg.CancelURL,
		},
	}

	var resp orderResponse
	if err := c.postJSON(ctx, "/v2/checkout/orders", token, body, &resp); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	if resp.ID == "" {
		return nil, errors.New("create order response missing order id")
	}

	approveURL := ""
	for _, l := range resp.Links {
		if l.Rel == "approve" {
			approveURL = l.Href
			break
		}
	}
	if approveURL == "" {
		return nil, errors.New("create order response missing approve link")
	}

	return &payment.ProviderOrder{ID: resp.ID, ApproveURL: approveURL}, nil
}

// Capture finalizes the provider order, confirming the funds transfer.
func (c *Client) Capture(ctx context.Context, providerOrderID string) (*payment.CaptureResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	path := "/v2/checkout/orders/" + url.PathEscape(providerOrderID) + "/capture"
	if err := c.postJSON(ctx, path, token, struct{}{}, &resp); err != nil {
		return nil, errors.Wrap(err, "capture order")
	}
	if resp.Status == "" {
		return nil, errors.New("capture response missing status")
	}

	return &payment.CaptureResult{OrderID: resp.ID, Status: resp.Status}, nil
}

func (c *Client) postJSON(ctx context.Context, path, token string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	return c.do(req, out)
}

// do executes the request and decodes a 2xx JSON response into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("unexpected status %d: %s", resp.StatusCode, string(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
