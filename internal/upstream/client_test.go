package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacy_admin/internal/ordering"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", StaticToken("secret-token"), 5*time.Second)
}

func testSubmission() *ordering.Submission {
	return &ordering.Submission{
		SubscriptionID: "sub-1",
		Lines: []ordering.PricedLine{
			{
				Key:          ordering.LineKey{ProductID: "p-1", Index: 0},
				PharmacyID:   "ph-1",
				PharmacyName: "Central",
				Quantity:     2,
				UnitPrice:    decimal.RequireFromString("12.5"),
				TotalPrice:   decimal.RequireFromString("25"),
			},
			{
				Key:          ordering.LineKey{ProductID: "p-1", Index: 1},
				PharmacyID:   "ph-2",
				PharmacyName: "North",
				Quantity:     1,
				UnitPrice:    decimal.RequireFromString("11"),
				TotalPrice:   decimal.RequireFromString("11"),
			},
		},
		DeliveryAddress: "12 Nile St",
		Notes:           "call first",
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	var gotBody PlaceOrderRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/placeOrder/sub-1", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = w.Write([]byte(`{"success":true,"data":{"nextDelivery":"2024-03-15T00:00:00.000Z","order":{"_id":"o1","orderNumber":"ORD-1001"}}}`))
	})

	res, err := client.PlaceOrder(context.Background(), testSubmission())
	require.NoError(t, err)
	assert.Equal(t, "ORD-1001", res.OrderNumber)
	assert.Equal(t, "o1", res.OrderID)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), res.NextDelivery)
	assert.NotEmpty(t, res.Raw)

	require.Len(t, gotBody.PharmacySelections, 2)
	assert.Equal(t, PharmacySelectionPayload{PharmacyID: "ph-1", PharmacyName: "Central", UnitPrice: 12.5, TotalPrice: 25}, gotBody.PharmacySelections["p-1-0"])
	assert.Equal(t, "ph-2", gotBody.PharmacySelections["p-1-1"].PharmacyID)
	assert.Equal(t, "12 Nile St", gotBody.DeliveryAddress)
	assert.Equal(t, "call first", gotBody.Notes)
}

func TestPlaceOrder_Failures(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantErr     error
	}{
		{name: "success false", status: http.StatusOK, body: `{"success":false,"error":"Pharmacy ph-1 is out of stock"}`, wantMessage: "Pharmacy ph-1 is out of stock"},
		{name: "server error with message", status: http.StatusInternalServerError, body: `{"success":false,"message":"database unavailable"}`, wantMessage: "database unavailable"},
		{name: "non json error", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantMessage: ""},
		{name: "missing next delivery", status: http.StatusOK, body: `{"success":true,"data":{"order":{"orderNumber":"X"}}}`, wantErr: ErrMalformedResponse},
		{name: "missing order number", status: http.StatusOK, body: `{"success":true,"data":{"nextDelivery":"2024-03-15T00:00:00Z","order":{}}}`, wantErr: ErrMalformedResponse},
		{name: "not json", status: http.StatusOK, body: `ok`, wantErr: ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			res, err := client.PlaceOrder(context.Background(), testSubmission())
			require.Error(t, err)
			assert.Nil(t, res)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, err.Error())
			}
		})
	}
}

func TestPlaceOrder_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	client := NewClient(srv.URL, nil, time.Second)

	_, err := client.PlaceOrder(context.Background(), testSubmission())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestSubscriptions_AcceptsEnvelopeAndNormalizes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/subscriptions", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":[{
			"_id":"sub-1",
			"customerId":{"_id":"c-1","name":"Jane Doe","phone":"0812"},
			"products":[
				{"productId":{"_id":"p-1","name":"Insulin","nameAr":"انسولين","pricePerBox":12.5,"images":["a.png"],"manufacturer":"Novo","category":{"_id":"cat","name":"Diabetes"}},"pharmacyId":null,"quantity":2,"unitType":"box"},
				{"productId":"p-2","quantity":1,"unitType":"strip"}
			],
			"frequency":"Monthly","isActive":true,"totalAmount":37.5,
			"deliveryAddress":{"street":"12 Nile St","city":"Cairo"},
			"status":"active","planId":"plan-9","createdAt":"2024-01-01T10:00:00Z",
			"deliveryHistory":[{"deliveryDate":"2024-02-01T00:00:00Z","status":"delivered"},{"status":"skipped"}]
		}]}`))
	})

	subs, err := client.Subscriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	s := subs[0]
	assert.Equal(t, "sub-1", s.ID)
	assert.Equal(t, "c-1", s.CustomerID)
	assert.Equal(t, "Jane Doe", s.CustomerName)
	assert.Equal(t, "0812", s.CustomerPhone)
	assert.Equal(t, "monthly", string(s.Frequency))
	assert.Equal(t, "12 Nile St, Cairo", s.DeliveryAddress)
	assert.Equal(t, "plan-9", s.PlanID)
	assert.True(t, s.TotalAmount.Equal(decimal.RequireFromString("37.5")))
	require.Len(t, s.Products, 2)
	assert.Equal(t, "Insulin", s.Products[0].Name)
	assert.Equal(t, "Diabetes", s.Products[0].Category)
	assert.Equal(t, "a.png", s.Products[0].Image)
	assert.Equal(t, UnknownProduct, s.Products[1].Name)
	assert.Equal(t, "p-2", s.Products[1].ProductID)
	require.Len(t, s.DeliveryHistory, 1)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), s.DeliveryHistory[0].DeliveredAt)
}

func TestPharmacies_AcceptsBareArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/pharmacies", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"_id":"ph-1","name":"Central","address":"1 Main","isActive":true,
			 "productStatistics":[{"productId":{"_id":"p-1","name":"Insulin"},"inStock":true,"stockQuantity":4,"price":12.5}],
			 "inventory":[{"productId":"p-2","inStock":false,"stockQuantity":0,"price":3}]}
		]`))
	})

	list, err := client.Pharmacies(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Central", list[0].Name)
	require.Len(t, list[0].Inventory, 2)

	offer, ok := list[0].OfferFor("p-1")
	require.True(t, ok)
	assert.True(t, offer.Price.Equal(decimal.RequireFromString("12.5")))
	_, ok = list[0].OfferFor("p-2")
	assert.False(t, ok)
}

func TestNormalizeSubscription_Fallbacks(t *testing.T) {
	var raw RawSubscription
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"s","customerId":"c-9","products":[{"productId":null,"quantity":1}],"status":"canceled"}`), &raw))

	s := NormalizeSubscription(raw)
	assert.Equal(t, UnknownCustomer, s.CustomerName)
	assert.Equal(t, "c-9", s.CustomerID)
	assert.Equal(t, "cancelled", string(s.Status))
	assert.False(t, s.IsActive)
	require.Len(t, s.Products, 1)
	assert.Equal(t, UnknownProduct, s.Products[0].Name)
}
