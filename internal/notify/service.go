// Package notify provides outbound nudge delivery for FocusLoop.
//
// It defines a pluggable Service abstraction with WhatsApp (whatsmeow),
// Twilio, and no-op implementations, a store-backed Notifier that resolves
// user ids to delivery addresses, and a ResponseRouter that feeds inbound
// replies into the scheduling engine or the companion chat.
package notify

import (
	"context"
	"errors"
	"regexp"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

// Constants for notify service configuration
const (
	// DefaultChannelBufferSize defines the buffer size for receipt and response channels
	DefaultChannelBufferSize = 100
)

// ErrServiceStopped is returned when a send is attempted on a stopped service.
var ErrServiceStopped = errors.New("notify service is stopped")

// phoneNumberRegex strips everything but digits from a recipient.
var phoneNumberRegex = regexp.MustCompile(`\D`)

// Service defines a pluggable nudge delivery abstraction. It supports
// sending messages and provides channels for receipt and response events.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier. Each implementation applies its own recipient rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Start begins any background processing (e.g., inbound event handling).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Receipts returns a channel of receipt events (sent, delivered, read).
	Receipts() <-chan models.Receipt

	// Responses returns a channel of incoming user replies.
	Responses() <-chan models.Response
}

// canonicalizePhone reduces a recipient to digits and validates the result.
func canonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", errors.New("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", errors.New("invalid phone number: no digits found")
	}
	if len(canonical) < 6 {
		return "", errors.New("invalid phone number: too short (minimum 6 digits required)")
	}
	return canonical, nil
}
