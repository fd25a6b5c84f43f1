package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pharmacy_admin/internal/models"
	"pharmacy_admin/internal/ordering"
)

const (
	subscriptionsPath = "/admin/subscriptions"
	pharmaciesPath    = "/admin/pharmacies"
	placeOrderPath    = "/admin/placeOrder/"
)

var ErrMalformedResponse = errors.New("malformed upstream response")

// APIError is a non-success answer from the upstream API. Message is the
// server-provided text, if any.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("upstream request failed with status %d", e.StatusCode)
}

// TokenSource supplies the bearer token for upstream calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

type Client struct {
	BaseURL    string
	Tokens     TokenSource
	HTTPClient *http.Client
}

func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Tokens:  tokens,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (e envelope) failure() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// PharmacySelectionPayload is one entry of pharmacySelections.
type PharmacySelectionPayload struct {
	PharmacyID   string  `json:"pharmacyId"`
	PharmacyName string  `json:"pharmacyName"`
	UnitPrice    float64 `json:"unitPrice"`
	TotalPrice   float64 `json:"totalPrice"`
}

type PlaceOrderRequest struct {
	PharmacySelections map[string]PharmacySelectionPayload `json:"pharmacySelections"`
	DeliveryAddress    string                              `json:"deliveryAddress"`
	Notes              string                              `json:"notes"`
}

// NewPlaceOrderRequest renders a submission in the upstream wire format,
// keyed by "<productId>-<index>".
func NewPlaceOrderRequest(sub *ordering.Submission) PlaceOrderRequest {
	req := PlaceOrderRequest{
		PharmacySelections: make(map[string]PharmacySelectionPayload, len(sub.Lines)),
		DeliveryAddress:    sub.DeliveryAddress,
		Notes:              sub.Notes,
	}
	for _, l := range sub.Lines {
		req.PharmacySelections[l.Key.WireKey()] = PharmacySelectionPayload{
			PharmacyID:   l.PharmacyID,
			PharmacyName: l.PharmacyName,
			UnitPrice:    l.UnitPrice.InexactFloat64(),
			TotalPrice:   l.TotalPrice.InexactFloat64(),
		}
	}
	return req
}

type placeOrderData struct {
	NextDelivery *time.Time `json:"nextDelivery"`
	Order        struct {
		ID          string `json:"_id"`
		OrderNumber string `json:"orderNumber"`
	} `json:"order"`
}

// PlaceOrderResult is the upstream's confirmation of a placed order.
type PlaceOrderResult struct {
	OrderID      string
	OrderNumber  string
	NextDelivery time.Time
	Raw          json.RawMessage
}

// FetchSubscriptions returns the raw subscription documents.
func (c *Client) FetchSubscriptions(ctx context.Context) ([]RawSubscription, error) {
	var out []RawSubscription
	if err := c.getList(ctx, subscriptionsPath, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions: %w", err)
	}
	return out, nil
}

// Subscriptions returns the normalized subscriptions.
func (c *Client) Subscriptions(ctx context.Context) ([]models.Subscription, error) {
	raw, err := c.FetchSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	subs := make([]models.Subscription, 0, len(raw))
	for _, r := range raw {
		subs = append(subs, NormalizeSubscription(r))
	}
	return subs, nil
}

// FetchPharmacies returns the raw pharmacy documents with their inventory.
func (c *Client) FetchPharmacies(ctx context.Context) ([]RawPharmacy, error) {
	var out []RawPharmacy
	if err := c.getList(ctx, pharmaciesPath, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch pharmacies: %w", err)
	}
	return out, nil
}

// Pharmacies returns the normalized pharmacies.
func (c *Client) Pharmacies(ctx context.Context) ([]ordering.Pharmacy, error) {
	raw, err := c.FetchPharmacies(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ordering.Pharmacy, 0, len(raw))
	for _, r := range raw {
		out = append(out, NormalizePharmacy(r))
	}
	return out, nil
}

// PlaceOrder posts the submission for the subscription. It is sent once;
// callers decide whether to try again.
func (c *Client) PlaceOrder(ctx context.Context, sub *ordering.Submission) (*PlaceOrderResult, error) {
	body, err := json.Marshal(NewPlaceOrderRequest(sub))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	env, err := c.do(ctx, http.MethodPost, placeOrderPath+url.PathEscape(sub.SubscriptionID), body)
	if err != nil {
		return nil, err
	}

	var data placeOrderData
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if data.NextDelivery == nil || data.NextDelivery.IsZero() {
		return nil, fmt.Errorf("%w: missing nextDelivery", ErrMalformedResponse)
	}
	if data.Order.OrderNumber == "" {
		return nil, fmt.Errorf("%w: missing order number", ErrMalformedResponse)
	}

	return &PlaceOrderResult{
		OrderID:      data.Order.ID,
		OrderNumber:  data.Order.OrderNumber,
		NextDelivery: data.NextDelivery.UTC(),
		Raw:          env.Data,
	}, nil
}

// getList accepts either a bare JSON array or a {success, data} envelope.
func (c *Client) getList(ctx context.Context, path string, dest interface{}) error {
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return json.Unmarshal([]byte("[]"), dest)
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Tokens != nil {
		token, err := c.Tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get upstream token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	raw = bytes.TrimSpace(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env envelope
		if json.Unmarshal(raw, &env) == nil {
			apiErr.Message = env.failure()
		}
		return nil, apiErr
	}

	if len(raw) > 0 && raw[0] == '[' {
		return &envelope{Data: raw}, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Success != nil && !*env.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.failure()}
	}
	return &env, nil
}
