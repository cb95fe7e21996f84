package application_test

import (
	"testing"

	"invoicehub-sync/internal/application"
	"invoicehub-sync/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func testOrder() domain.ExternalOrder {
	return domain.ExternalOrder{
		ExternalOrderID: "ord-1",
		Status:          domain.OrderStatusNew,
		Buyer: domain.Buyer{
			FullName: "Jan Kowalski",
			Email:    "jan@example.com",
			Street:   "Main St 1",
			City:     "Warsaw",
		},
		Currency: "PLN",
		Lines: []domain.OrderLine{
			{
				ProductRef:     "p-1",
				Name:           "Widget",
				SKU:            "W-1",
				Quantity:       dec("2"),
				UnitGrossPrice: dec("123.00"),
				VatRate:        decPtr("23"),
			},
		},
		PaymentConfirmed: true,
	}
}

func TestMapOrder(t *testing.T) {
	settings := domain.DefaultSettings()

	t.Run("maps lines and buyer", func(t *testing.T) {
		draft, err := application.MapOrder(testOrder(), settings)
		require.NoError(t, err)

		assert.Equal(t, "ord-1", draft.ExternalOrderID)
		assert.Equal(t, "PLN", draft.Currency)
		assert.Equal(t, "jan@example.com", draft.CustomerKey)
		require.NotNil(t, draft.CustomerDraft)
		assert.Equal(t, "Jan Kowalski", draft.CustomerDraft.Name)
		require.Len(t, draft.Items, 1)
		assert.Equal(t, "Widget", draft.Items[0].Description)
		assert.True(t, draft.Items[0].VatRate.Equal(dec("23")))
	})

	t.Run("empty order rejected", func(t *testing.T) {
		order := testOrder()
		order.Lines = nil
		_, err := application.MapOrder(order, settings)
		require.Error(t, err)
		assert.Equal(t, domain.ErrKindOrder, domain.KindOf(err))
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		order := testOrder()
		order.Lines[0].Quantity = decimal.Zero
		_, err := application.MapOrder(order, settings)
		require.Error(t, err)
		assert.Equal(t, domain.ErrKindOrder, domain.KindOf(err))
	})

	t.Run("negative price rejected", func(t *testing.T) {
		order := testOrder()
		order.Lines[0].UnitGrossPrice = dec("-1")
		_, err := application.MapOrder(order, settings)
		require.Error(t, err)
	})

	t.Run("missing vat rate falls back to default", func(t *testing.T) {
		order := testOrder()
		order.Lines[0].VatRate = nil
		draft, err := application.MapOrder(order, settings)
		require.NoError(t, err)
		assert.True(t, draft.Items[0].VatRate.Equal(settings.DefaultVatRate))
	})

	t.Run("out of range vat rate falls back to default", func(t *testing.T) {
		order := testOrder()
		order.Lines[0].VatRate = decPtr("150")
		draft, err := application.MapOrder(order, settings)
		require.NoError(t, err)
		assert.True(t, draft.Items[0].VatRate.Equal(settings.DefaultVatRate))
	})

	t.Run("mark paid requires policy and confirmed payment", func(t *testing.T) {
		paidSettings := settings
		paidSettings.AutoMarkAsPaid = true

		draft, err := application.MapOrder(testOrder(), paidSettings)
		require.NoError(t, err)
		assert.True(t, draft.MarkPaid)

		unpaid := testOrder()
		unpaid.PaymentConfirmed = false
		draft, err = application.MapOrder(unpaid, paidSettings)
		require.NoError(t, err)
		assert.False(t, draft.MarkPaid)

		draft, err = application.MapOrder(testOrder(), settings)
		require.NoError(t, err)
		assert.False(t, draft.MarkPaid)
	})
}

func TestTotals(t *testing.T) {
	t.Run("gross prices split into net and tax", func(t *testing.T) {
		// 2 x 123.00 gross at 23% -> net 200.00, tax 46.00, gross 246.00
		draft := domain.DraftInvoice{
			Items: []domain.DraftItem{
				{Quantity: dec("2"), UnitPrice: dec("123.00"), VatRate: dec("23")},
			},
		}

		totals := application.Totals(draft)
		assert.Equal(t, "200", totals.Net.String())
		assert.Equal(t, "46", totals.Tax.String())
		assert.Equal(t, "246", totals.Gross.String())
	})

	t.Run("rounding happens once at the totals", func(t *testing.T) {
		// Three lines of 0.10 gross at 23%: per-line net rounds to 0.08,
		// summing full precision gives 0.24 net, 0.06 tax.
		line := domain.DraftItem{Quantity: dec("1"), UnitPrice: dec("0.10"), VatRate: dec("23")}
		draft := domain.DraftInvoice{Items: []domain.DraftItem{line, line, line}}

		totals := application.Totals(draft)
		assert.Equal(t, "0.24", totals.Net.String())
		assert.Equal(t, "0.06", totals.Tax.String())
		assert.Equal(t, "0.3", totals.Gross.String())
	})

	t.Run("tax is gross minus net after rounding", func(t *testing.T) {
		draft := domain.DraftInvoice{
			Items: []domain.DraftItem{
				{Quantity: dec("3"), UnitPrice: dec("19.99"), VatRate: dec("23")},
				{Quantity: dec("1"), UnitPrice: dec("5.45"), VatRate: dec("8")},
			},
		}

		totals := application.Totals(draft)
		assert.True(t, totals.Net.Add(totals.Tax).Equal(totals.Gross))
	})
}
