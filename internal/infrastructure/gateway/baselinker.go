package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const baseLinkerURL = "https://api.baselinker.com/connector.php"

// BaseLinker order status IDs for orders that should produce an invoice.
const (
	baseLinkerStatusNew        = 11100
	baseLinkerStatusProcessing = 11200
)

// BaseLinkerGateway fetches orders from the BaseLinker connector API. Every
// call is a form-encoded POST carrying a method name and JSON parameters,
// authenticated with an X-BLToken header.
type BaseLinkerGateway struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewBaseLinkerGateway creates a BaseLinker gateway against the production API
func NewBaseLinkerGateway(logger zerolog.Logger) *BaseLinkerGateway {
	return NewBaseLinkerGatewayWithURL(baseLinkerURL, logger)
}

// NewBaseLinkerGatewayWithURL creates a gateway against a custom endpoint,
// used in tests.
func NewBaseLinkerGatewayWithURL(baseURL string, logger zerolog.Logger) *BaseLinkerGateway {
	return &BaseLinkerGateway{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: domain.GatewayTimeout},
		logger:     logger,
	}
}

// Provider identifies this gateway
func (g *BaseLinkerGateway) Provider() domain.Provider {
	return domain.ProviderBaseLinker
}

// flexID accepts identifiers BaseLinker serializes either as JSON numbers
// or as strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*f = flexID(s)
	return nil
}

type baseLinkerEnvelope struct {
	Status       string `json:"status"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type baseLinkerOrder struct {
	OrderID          flexID              `json:"order_id"`
	StatusID         int                 `json:"order_status_id"`
	DateAdd          int64               `json:"date_add"`
	Email            string              `json:"email"`
	Phone            string              `json:"phone"`
	Currency         string              `json:"currency"`
	PaymentDone      decimal.Decimal     `json:"payment_done"`
	DeliveryFullname string              `json:"delivery_fullname"`
	DeliveryCompany  string              `json:"delivery_company"`
	DeliveryAddress  string              `json:"delivery_address"`
	DeliveryPostcode string              `json:"delivery_postcode"`
	DeliveryCity     string              `json:"delivery_city"`
	Products         []baseLinkerProduct `json:"products"`
}

type baseLinkerProduct struct {
	ProductID   flexID          `json:"product_id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	PriceBrutto decimal.Decimal `json:"price_brutto"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// VerifyCredential checks the token with a lightweight status-list call.
// BaseLinker tokens are account-scoped and the API exposes no account
// endpoint, so the account identity is a fingerprint of the token.
func (g *BaseLinkerGateway) VerifyCredential(ctx context.Context, cred ports.Credential) (string, error) {
	var resp struct {
		baseLinkerEnvelope
	}
	if err := g.call(ctx, cred.Token, "getOrderStatusList", map[string]any{}, &resp); err != nil {
		return "", err
	}

	if cred.AccountID != "" {
		return cred.AccountID, nil
	}
	sum := sha256.Sum256([]byte(cred.Token))
	return "bl-" + hex.EncodeToString(sum[:8]), nil
}

// FetchOrders retrieves orders added since the filter window started
func (g *BaseLinkerGateway) FetchOrders(ctx context.Context, cred ports.Credential, filter domain.OrderFilter) ([]domain.ExternalOrder, error) {
	params := map[string]any{
		"date_confirmed_from": filter.Since.Unix(),
		"get_unconfirmed_orders": filter.IncludeUnconfirmed,
	}

	var resp struct {
		baseLinkerEnvelope
		Orders []baseLinkerOrder `json:"orders"`
	}
	if err := g.call(ctx, cred.Token, "getOrders", params, &resp); err != nil {
		return nil, err
	}

	orders := make([]domain.ExternalOrder, 0, len(resp.Orders))
	for _, o := range resp.Orders {
		status := mapBaseLinkerStatus(o.StatusID)
		if !status.Actionable() {
			continue
		}
		orders = append(orders, g.mapOrder(o, status))
	}

	g.logger.Debug().
		Int("fetched", len(resp.Orders)).
		Int("actionable", len(orders)).
		Msg("Fetched BaseLinker orders")

	return orders, nil
}

func mapBaseLinkerStatus(statusID int) domain.OrderStatus {
	switch statusID {
	case baseLinkerStatusNew:
		return domain.OrderStatusNew
	case baseLinkerStatusProcessing:
		return domain.OrderStatusProcessing
	default:
		return domain.OrderStatusOther
	}
}

func (g *BaseLinkerGateway) mapOrder(o baseLinkerOrder, status domain.OrderStatus) domain.ExternalOrder {
	lines := make([]domain.OrderLine, 0, len(o.Products))
	for _, p := range o.Products {
		taxRate := p.TaxRate
		lines = append(lines, domain.OrderLine{
			ProductRef:     string(p.ProductID),
			Name:           p.Name,
			SKU:            p.SKU,
			Quantity:       p.Quantity,
			UnitGrossPrice: p.PriceBrutto,
			VatRate:        &taxRate,
		})
	}

	return domain.ExternalOrder{
		ExternalOrderID: string(o.OrderID),
		Status:          status,
		Buyer: domain.Buyer{
			FullName:   o.DeliveryFullname,
			Company:    o.DeliveryCompany,
			Email:      o.Email,
			Phone:      o.Phone,
			Street:     o.DeliveryAddress,
			PostalCode: o.DeliveryPostcode,
			City:       o.DeliveryCity,
		},
		Currency:         o.Currency,
		Lines:            lines,
		PlacedAt:         time.Unix(o.DateAdd, 0),
		PaymentConfirmed: o.PaymentDone.IsPositive(),
	}
}

// call performs one connector request and decodes the response into out.
// BaseLinker reports errors inside a 200 response, so the envelope status is
// checked as well as the HTTP status.
func (g *BaseLinkerGateway) call(ctx context.Context, token, method string, params map[string]any, out any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}

	form := url.Values{}
	form.Set("method", method)
	form.Set("parameters", string(paramsJSON))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-BLToken", token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(domain.ProviderBaseLinker, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(domain.ProviderBaseLinker, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.AuthError("bad_token", "baselinker rejected the API token", nil)
	case resp.StatusCode >= 400:
		return domain.TransientError("http_error",
			fmt.Sprintf("baselinker returned HTTP %d", resp.StatusCode), nil)
	}

	var envelope baseLinkerEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return domain.TransientError("bad_payload", "baselinker returned a malformed response", err)
	}
	if envelope.Status == "ERROR" {
		if strings.HasPrefix(envelope.ErrorCode, "ERROR_AUTH") || envelope.ErrorCode == "ERROR_BAD_TOKEN" {
			return domain.AuthError("bad_token", "baselinker rejected the API token", nil)
		}
		return domain.TransientError(strings.ToLower(envelope.ErrorCode),
			fmt.Sprintf("baselinker error: %s", envelope.ErrorMessage), nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return domain.TransientError("bad_payload", "baselinker returned a malformed response", err)
	}
	return nil
}
