package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/infrastructure/gateway"
	"invoicehub-sync/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseLinkerFetchOrders(t *testing.T) {
	var gotToken, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotToken = r.Header.Get("X-BLToken")
		gotMethod = r.FormValue("method")

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "SUCCESS",
			"orders": []map[string]any{
				{
					"order_id":          12345,
					"order_status_id":   11100,
					"date_add":          1700000000,
					"email":             "jan@example.com",
					"phone":             "+48123456789",
					"currency":          "PLN",
					"payment_done":      246.00,
					"delivery_fullname": "Jan Kowalski",
					"delivery_address":  "Main St 1",
					"delivery_postcode": "00-001",
					"delivery_city":     "Warsaw",
					"products": []map[string]any{
						{
							"product_id":   "p-1",
							"name":         "Widget",
							"sku":          "W-1",
							"price_brutto": 123.00,
							"tax_rate":     23,
							"quantity":     2,
						},
					},
				},
				{
					// Not an actionable status, must be filtered out.
					"order_id":        99,
					"order_status_id": 5,
					"products":        []map[string]any{},
				},
			},
		})
	}))
	defer server.Close()

	g := gateway.NewBaseLinkerGatewayWithURL(server.URL, zerolog.Nop())
	orders, err := g.FetchOrders(context.Background(), ports.Credential{Token: "bl-token"}, domain.DefaultOrderFilter(time.Now()))
	require.NoError(t, err)

	assert.Equal(t, "bl-token", gotToken)
	assert.Equal(t, "getOrders", gotMethod)

	require.Len(t, orders, 1)
	order := orders[0]
	assert.Equal(t, "12345", order.ExternalOrderID)
	assert.Equal(t, domain.OrderStatusNew, order.Status)
	assert.Equal(t, "Jan Kowalski", order.Buyer.FullName)
	assert.Equal(t, "jan@example.com", order.Buyer.Email)
	assert.Equal(t, "PLN", order.Currency)
	assert.True(t, order.PaymentConfirmed)

	require.Len(t, order.Lines, 1)
	line := order.Lines[0]
	assert.Equal(t, "W-1", line.SKU)
	assert.Equal(t, "123", line.UnitGrossPrice.String())
	require.NotNil(t, line.VatRate)
	assert.Equal(t, "23", line.VatRate.String())
}

func TestBaseLinkerErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind domain.ErrKind
	}{
		{
			name: "bad token envelope is an auth error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"status":     "ERROR",
					"error_code": "ERROR_BAD_TOKEN",
				})
			},
			wantKind: domain.ErrKindAuth,
		},
		{
			name: "401 is an auth error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			wantKind: domain.ErrKindAuth,
		},
		{
			name: "api error envelope is transient",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"status":        "ERROR",
					"error_code":    "ERROR_STORAGE",
					"error_message": "storage unavailable",
				})
			},
			wantKind: domain.ErrKindTransient,
		},
		{
			name: "500 is transient",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantKind: domain.ErrKindTransient,
		},
		{
			name: "malformed payload is transient",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			wantKind: domain.ErrKindTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			g := gateway.NewBaseLinkerGatewayWithURL(server.URL, zerolog.Nop())
			_, err := g.FetchOrders(context.Background(), ports.Credential{Token: "tok"}, domain.DefaultOrderFilter(time.Now()))
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
		})
	}
}

func TestBaseLinkerVerifyCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "getOrderStatusList", r.FormValue("method"))
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "SUCCESS"})
	}))
	defer server.Close()

	g := gateway.NewBaseLinkerGatewayWithURL(server.URL, zerolog.Nop())

	accountID, err := g.VerifyCredential(context.Background(), ports.Credential{Token: "tok"})
	require.NoError(t, err)
	assert.NotEmpty(t, accountID)

	// The fingerprint is stable for the same token.
	again, err := g.VerifyCredential(context.Background(), ports.Credential{Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, accountID, again)

	// An explicit account ID wins.
	explicit, err := g.VerifyCredential(context.Background(), ports.Credential{Token: "tok", AccountID: "acct-7"})
	require.NoError(t, err)
	assert.Equal(t, "acct-7", explicit)
}
