package transport

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/logger"
)

// LogTransport logs messages instead of delivering them. It stands in for
// SES in development and in tests that exercise the full pipeline.
type LogTransport struct{}

func NewLogTransport() *LogTransport { return &LogTransport{} }

func (t *LogTransport) Send(_ context.Context, from string, req domain.SendRequest, raw []byte) (string, error) {
	id := uuid.New().String()
	log.Printf("[LogTransport] Would send %d bytes from %s to %s (scenario: %s, id: %s)",
		len(raw), from, logger.RedactEmail(req.Recipient), req.Scenario, id)
	return id, nil
}
