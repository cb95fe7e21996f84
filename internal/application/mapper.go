package application

import (
	"fmt"

	"invoicehub-sync/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MapOrder converts a raw external order into a draft invoice using the
// resolved sync policy. Pure and deterministic: no I/O, no clock. Customer
// and product resolution happen later in the orchestrator; the mapper only
// prepares the identity key and the create-new payload.
func MapOrder(order domain.ExternalOrder, settings domain.IntegrationSettings) (domain.DraftInvoice, error) {
	if len(order.Lines) == 0 {
		return domain.DraftInvoice{}, domain.OrderError("empty_order", "order has no line items", nil)
	}

	items := make([]domain.DraftItem, 0, len(order.Lines))
	for i, line := range order.Lines {
		if !line.Quantity.IsPositive() {
			return domain.DraftInvoice{}, domain.OrderError("invalid_quantity",
				fmt.Sprintf("invalid quantity %s on line %d", line.Quantity, i+1), nil)
		}
		if line.UnitGrossPrice.IsNegative() {
			return domain.DraftInvoice{}, domain.OrderError("invalid_price",
				fmt.Sprintf("negative unit price %s on line %d", line.UnitGrossPrice, i+1), nil)
		}

		vatRate := settings.DefaultVatRate
		if line.VatRate != nil && !line.VatRate.IsNegative() && !line.VatRate.GreaterThan(hundred) {
			vatRate = *line.VatRate
		}

		description := line.Name
		if description == "" {
			description = "Item " + line.ProductRef
		}

		items = append(items, domain.DraftItem{
			Description: description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitGrossPrice,
			VatRate:     vatRate,
			ProductRef:  line.ProductRef,
		})
	}

	draft := domain.DraftInvoice{
		CustomerKey: order.Buyer.IdentityKey(),
		CustomerDraft: &domain.CustomerDraft{
			Name:    order.Buyer.DisplayName(),
			Email:   order.Buyer.Email,
			Phone:   order.Buyer.Phone,
			Address: order.Buyer.Address(),
		},
		Items:           items,
		Currency:        order.Currency,
		ExternalOrderID: order.ExternalOrderID,
		MarkPaid:        settings.AutoMarkAsPaid && order.PaymentConfirmed,
	}

	return draft, nil
}

// Totals computes the net, tax and gross totals of a draft. Per-line values
// are summed at full precision and rounded half-up once at the end, so
// intermediate rounding never accumulates drift.
func Totals(draft domain.DraftInvoice) domain.InvoiceTotals {
	net := decimal.Zero
	gross := decimal.Zero

	for _, item := range draft.Items {
		lineGross := item.UnitPrice.Mul(item.Quantity)
		divisor := decimal.NewFromInt(1).Add(item.VatRate.Div(hundred))
		lineNet := lineGross.Div(divisor)

		gross = gross.Add(lineGross)
		net = net.Add(lineNet)
	}

	netRounded := net.Round(2)
	grossRounded := gross.Round(2)

	return domain.InvoiceTotals{
		Net:   netRounded,
		Tax:   grossRounded.Sub(netRounded),
		Gross: grossRounded,
	}
}
