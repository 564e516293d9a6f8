package transport

import (
	"context"

	"github.com/ignite/mailguard/internal/domain"
)

// Transport delivers a fully assembled message to a single recipient and
// returns the provider's message ID.
type Transport interface {
	Send(ctx context.Context, from string, req domain.SendRequest, raw []byte) (string, error)
}
