package notify

import (
	"context"
	"log/slog"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

// NoopService implements Service without delivering anything. It is used
// when no nudge channel is configured; sends are logged and dropped.
type NoopService struct {
	receipts  chan models.Receipt
	responses chan models.Response
}

// NewNoopService creates a no-op nudge service.
func NewNoopService() *NoopService {
	return &NoopService{
		receipts:  make(chan models.Receipt),
		responses: make(chan models.Response),
	}
}

// ValidateAndCanonicalizeRecipient accepts any non-empty recipient unchanged.
func (s *NoopService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// SendMessage logs the message and drops it.
func (s *NoopService) SendMessage(ctx context.Context, to string, body string) error {
	slog.Debug("NoopService.SendMessage: dropping message, no nudge channel configured",
		"to", to, "body_length", len(body))
	return nil
}

// Start is a no-op.
func (s *NoopService) Start(ctx context.Context) error { return nil }

// Stop is a no-op.
func (s *NoopService) Stop() error { return nil }

// Receipts returns a channel that never delivers.
func (s *NoopService) Receipts() <-chan models.Receipt { return s.receipts }

// Responses returns a channel that never delivers.
func (s *NoopService) Responses() <-chan models.Response { return s.responses }
