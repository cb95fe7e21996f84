package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	allegroURL       = "https://api.allegro.pl"
	allegroAccept    = "application/vnd.allegro.public.v1+json"
	allegroPageLimit = 100
)

// AllegroGateway fetches checkout forms from the Allegro REST API using an
// OAuth bearer token.
type AllegroGateway struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewAllegroGateway creates an Allegro gateway against the production API
func NewAllegroGateway(logger zerolog.Logger) *AllegroGateway {
	return NewAllegroGatewayWithURL(allegroURL, logger)
}

// NewAllegroGatewayWithURL creates a gateway against a custom endpoint,
// used in tests.
func NewAllegroGatewayWithURL(baseURL string, logger zerolog.Logger) *AllegroGateway {
	return &AllegroGateway{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: domain.GatewayTimeout},
		logger:     logger,
	}
}

// Provider identifies this gateway
func (g *AllegroGateway) Provider() domain.Provider {
	return domain.ProviderAllegro
}

type allegroCheckoutForm struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Buyer  struct {
		Email       string `json:"email"`
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		CompanyName string `json:"companyName"`
		PhoneNumber string `json:"phoneNumber"`
		Address     struct {
			Street   string `json:"street"`
			City     string `json:"city"`
			PostCode string `json:"postCode"`
		} `json:"address"`
	} `json:"buyer"`
	Payment struct {
		FinishedAt *time.Time `json:"finishedAt"`
	} `json:"payment"`
	LineItems []struct {
		Offer struct {
			ID       string `json:"id"`
			External struct {
				ID string `json:"id"`
			} `json:"external"`
			Name string `json:"name"`
		} `json:"offer"`
		Quantity int `json:"quantity"`
		Price    struct {
			Amount   decimal.Decimal `json:"amount"`
			Currency string          `json:"currency"`
		} `json:"price"`
	} `json:"lineItems"`
	BoughtAt time.Time `json:"boughtAt"`
}

// VerifyCredential resolves the token to the Allegro user it belongs to
func (g *AllegroGateway) VerifyCredential(ctx context.Context, cred ports.Credential) (string, error) {
	var me struct {
		ID    string `json:"id"`
		Login string `json:"login"`
	}
	if err := g.get(ctx, cred.Token, "/me", nil, &me); err != nil {
		return "", err
	}
	return me.ID, nil
}

// FetchOrders retrieves checkout forms bought inside the filter window.
// Allegro marks a form READY_FOR_PROCESSING once payment is booked; BOUGHT
// forms are unconfirmed purchases and fetched only on request.
func (g *AllegroGateway) FetchOrders(ctx context.Context, cred ports.Credential, filter domain.OrderFilter) ([]domain.ExternalOrder, error) {
	query := url.Values{}
	query.Set("lineItems.boughtAt.gte", filter.Since.UTC().Format(time.RFC3339))
	query.Set("limit", fmt.Sprint(allegroPageLimit))
	query.Add("status", "READY_FOR_PROCESSING")
	if filter.IncludeUnconfirmed {
		query.Add("status", "BOUGHT")
		query.Add("status", "FILLED_IN")
	}

	var orders []domain.ExternalOrder
	offset := 0
	for {
		query.Set("offset", fmt.Sprint(offset))

		var page struct {
			CheckoutForms []allegroCheckoutForm `json:"checkoutForms"`
			TotalCount    int                   `json:"totalCount"`
		}
		if err := g.get(ctx, cred.Token, "/order/checkout-forms", query, &page); err != nil {
			return nil, err
		}

		for _, form := range page.CheckoutForms {
			orders = append(orders, g.mapCheckoutForm(form))
		}

		offset += len(page.CheckoutForms)
		if len(page.CheckoutForms) < allegroPageLimit || offset >= page.TotalCount {
			break
		}
	}

	g.logger.Debug().Int("fetched", len(orders)).Msg("Fetched Allegro checkout forms")
	return orders, nil
}

func (g *AllegroGateway) mapCheckoutForm(form allegroCheckoutForm) domain.ExternalOrder {
	lines := make([]domain.OrderLine, 0, len(form.LineItems))
	for _, item := range form.LineItems {
		productRef := item.Offer.External.ID
		if productRef == "" {
			productRef = item.Offer.ID
		}
		lines = append(lines, domain.OrderLine{
			ProductRef:     productRef,
			Name:           item.Offer.Name,
			SKU:            item.Offer.External.ID,
			Quantity:       decimal.NewFromInt(int64(item.Quantity)),
			UnitGrossPrice: item.Price.Amount,
		})
	}

	currency := ""
	if len(form.LineItems) > 0 {
		currency = form.LineItems[0].Price.Currency
	}

	return domain.ExternalOrder{
		ExternalOrderID: form.ID,
		Status:          mapAllegroStatus(form.Status),
		Buyer: domain.Buyer{
			FullName:   joinName(form.Buyer.FirstName, form.Buyer.LastName),
			Company:    form.Buyer.CompanyName,
			Email:      form.Buyer.Email,
			Phone:      form.Buyer.PhoneNumber,
			Street:     form.Buyer.Address.Street,
			PostalCode: form.Buyer.Address.PostCode,
			City:       form.Buyer.Address.City,
		},
		Currency:         currency,
		Lines:            lines,
		PlacedAt:         form.BoughtAt,
		PaymentConfirmed: form.Payment.FinishedAt != nil,
	}
}

func mapAllegroStatus(status string) domain.OrderStatus {
	switch status {
	case "READY_FOR_PROCESSING":
		return domain.OrderStatusProcessing
	case "FILLED_IN", "BOUGHT":
		return domain.OrderStatusNew
	default:
		return domain.OrderStatusOther
	}
}

func joinName(first, last string) string {
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	default:
		return last
	}
}

func (g *AllegroGateway) get(ctx context.Context, token, path string, query url.Values, out any) error {
	endpoint := g.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", allegroAccept)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(domain.ProviderAllegro, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.AuthError("token_rejected", "allegro rejected the access token", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.TransientError("rate_limited", "allegro rate limit reached", nil)
	case resp.StatusCode >= 400:
		return domain.TransientError("http_error",
			fmt.Sprintf("allegro returned HTTP %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.TransientError("bad_payload", "allegro returned a malformed response", err)
	}
	return nil
}
