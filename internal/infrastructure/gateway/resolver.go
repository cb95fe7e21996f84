package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"

	"invoicehub-sync/internal/domain"
	"invoicehub-sync/internal/ports"
)

// Resolver maps providers to their registered gateway.
type Resolver struct {
	gateways map[domain.Provider]ports.OrderGateway
}

// NewResolver creates a resolver over the given gateways
func NewResolver(gateways ...ports.OrderGateway) *Resolver {
	byProvider := make(map[domain.Provider]ports.OrderGateway, len(gateways))
	for _, g := range gateways {
		byProvider[g.Provider()] = g
	}
	return &Resolver{gateways: byProvider}
}

// Gateway returns the gateway for a provider
func (r *Resolver) Gateway(provider domain.Provider) (ports.OrderGateway, error) {
	g, ok := r.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("no gateway registered for provider %q", provider)
	}
	return g, nil
}

// classifyTransportError turns low-level HTTP client failures into transient
// sync errors. Context timeouts are included: a slow marketplace is retried
// like an unreachable one.
func classifyTransportError(provider domain.Provider, err error) error {
	code := "network_error"
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		code = "timeout"
	}
	return domain.TransientError(code,
		fmt.Sprintf("%s request failed", provider), err)
}
