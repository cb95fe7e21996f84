package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ShopifyGateway fetches orders from the Shopify Admin API. The credential
// account ID is the myshopify shop domain; the token is an Admin API access
// token scoped to that shop.
type ShopifyGateway struct {
	app    goshopify.App
	logger zerolog.Logger
}

// NewShopifyGateway creates a Shopify gateway
func NewShopifyGateway(logger zerolog.Logger) *ShopifyGateway {
	return &ShopifyGateway{
		app:    goshopify.App{},
		logger: logger,
	}
}

// Provider identifies this gateway
func (g *ShopifyGateway) Provider() domain.Provider {
	return domain.ProviderShopify
}

func (g *ShopifyGateway) client(cred ports.Credential) (*goshopify.Client, error) {
	if cred.AccountID == "" {
		return nil, domain.AuthError("missing_shop", "shopify credential is missing the shop domain", nil)
	}
	client, err := goshopify.NewClient(g.app, cred.AccountID, cred.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create shopify client: %w", err)
	}
	return client, nil
}

// VerifyCredential confirms the token by loading the shop it belongs to
func (g *ShopifyGateway) VerifyCredential(ctx context.Context, cred ports.Credential) (string, error) {
	client, err := g.client(cred)
	if err != nil {
		return "", err
	}

	shop, err := client.Shop.Get(ctx, nil)
	if err != nil {
		return "", classifyShopifyError(err)
	}
	return shop.MyshopifyDomain, nil
}

// FetchOrders retrieves open orders created inside the filter window
func (g *ShopifyGateway) FetchOrders(ctx context.Context, cred ports.Credential, filter domain.OrderFilter) ([]domain.ExternalOrder, error) {
	client, err := g.client(cred)
	if err != nil {
		return nil, err
	}

	options := goshopify.OrderListOptions{
		ListOptions: goshopify.ListOptions{CreatedAtMin: filter.Since},
		Status:      "open",
	}

	shopifyOrders, err := client.Order.List(ctx, options)
	if err != nil {
		return nil, classifyShopifyError(err)
	}

	orders := make([]domain.ExternalOrder, 0, len(shopifyOrders))
	for _, o := range shopifyOrders {
		orders = append(orders, g.mapOrder(o))
	}

	g.logger.Debug().Int("fetched", len(orders)).Msg("Fetched Shopify orders")
	return orders, nil
}

func (g *ShopifyGateway) mapOrder(o goshopify.Order) domain.ExternalOrder {
	lines := make([]domain.OrderLine, 0, len(o.LineItems))
	for _, item := range o.LineItems {
		price := decimal.Zero
		if item.Price != nil {
			price = *item.Price
		}

		line := domain.OrderLine{
			ProductRef:     strconv.FormatUint(item.ProductId, 10),
			Name:           item.Title,
			SKU:            item.SKU,
			Quantity:       decimal.NewFromInt(int64(item.Quantity)),
			UnitGrossPrice: price,
		}
		// Shopify tax rates are fractions (0.23), the invoice side expects
		// percent.
		if len(item.TaxLines) > 0 && item.TaxLines[0].Rate != nil {
			rate := item.TaxLines[0].Rate.Mul(hundredPercent)
			line.VatRate = &rate
		}
		lines = append(lines, line)
	}

	buyer := domain.Buyer{Email: o.Email}
	if addr := o.ShippingAddress; addr != nil {
		buyer.FullName = joinName(addr.FirstName, addr.LastName)
		buyer.Company = addr.Company
		buyer.Phone = addr.Phone
		buyer.Street = addr.Address1
		buyer.PostalCode = addr.Zip
		buyer.City = addr.City
	} else if o.Customer != nil {
		buyer.FullName = joinName(o.Customer.FirstName, o.Customer.LastName)
		buyer.Phone = o.Customer.Phone
	}

	order := domain.ExternalOrder{
		ExternalOrderID:  strconv.FormatUint(o.Id, 10),
		Status:           domain.OrderStatusNew,
		Buyer:            buyer,
		Currency:         o.Currency,
		Lines:            lines,
		PaymentConfirmed: o.FinancialStatus == goshopify.OrderFinancialStatusPaid,
	}
	if o.CreatedAt != nil {
		order.PlacedAt = *o.CreatedAt
	}
	return order
}

var hundredPercent = decimal.NewFromInt(100)

func classifyShopifyError(err error) error {
	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case respErr.Status == http.StatusUnauthorized || respErr.Status == http.StatusForbidden:
			return domain.AuthError("token_rejected", "shopify rejected the access token", err)
		case respErr.Status == http.StatusTooManyRequests:
			return domain.TransientError("rate_limited", "shopify rate limit reached", err)
		case respErr.Status >= 400:
			return domain.TransientError("http_error",
				fmt.Sprintf("shopify returned HTTP %d", respErr.Status), err)
		}
	}
	return classifyTransportError(domain.ProviderShopify, err)
}
