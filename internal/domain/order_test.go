package domain_test

import (
	"testing"

	"invoicehub-sync/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestBuyerDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		buyer    domain.Buyer
		expected string
	}{
		{"full name wins", domain.Buyer{FullName: "Jan Kowalski", Company: "Acme"}, "Jan Kowalski"},
		{"company fallback", domain.Buyer{Company: "Acme Sp. z o.o."}, "Acme Sp. z o.o."},
		{"placeholder when both missing", domain.Buyer{}, "Unknown Buyer"},
		{"whitespace name treated as missing", domain.Buyer{FullName: "   ", Company: "Acme"}, "Acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.buyer.DisplayName())
		})
	}
}

func TestBuyerAddress(t *testing.T) {
	tests := []struct {
		name     string
		buyer    domain.Buyer
		expected string
	}{
		{
			"all components",
			domain.Buyer{Street: "Main St 1", PostalCode: "00-001", City: "Warsaw"},
			"Main St 1, 00-001 Warsaw",
		},
		{"street only", domain.Buyer{Street: "Main St 1"}, "Main St 1"},
		{"city only", domain.Buyer{City: "Warsaw"}, "Warsaw"},
		{"postal and city", domain.Buyer{PostalCode: "00-001", City: "Warsaw"}, "00-001 Warsaw"},
		{"nothing", domain.Buyer{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.buyer.Address())
		})
	}
}

func TestBuyerIdentityKey(t *testing.T) {
	t.Run("email is lowercased and preferred", func(t *testing.T) {
		buyer := domain.Buyer{Email: " Jan@Example.COM ", FullName: "Jan"}
		assert.Equal(t, "jan@example.com", buyer.IdentityKey())
	})

	t.Run("name plus address when email missing", func(t *testing.T) {
		a := domain.Buyer{FullName: "Jan  Kowalski", Street: "Main St 1", City: "Warsaw"}
		b := domain.Buyer{FullName: "jan kowalski", Street: "Main  St 1", City: "warsaw"}
		assert.Equal(t, a.IdentityKey(), b.IdentityKey())
	})

	t.Run("different addresses give different keys", func(t *testing.T) {
		a := domain.Buyer{FullName: "Jan Kowalski", City: "Warsaw"}
		b := domain.Buyer{FullName: "Jan Kowalski", City: "Krakow"}
		assert.NotEqual(t, a.IdentityKey(), b.IdentityKey())
	})
}

func TestOrderStatusActionable(t *testing.T) {
	assert.True(t, domain.OrderStatusNew.Actionable())
	assert.True(t, domain.OrderStatusProcessing.Actionable())
	assert.False(t, domain.OrderStatusOther.Actionable())
}
