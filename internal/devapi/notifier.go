package devapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nsa09-nsa09/splitup-frontend/pkg/rabbitmq"
)

// RoutingKeyCodeIssued is the routing key of verification code events.
const RoutingKeyCodeIssued = "auth.verification_code.issued"

// VerificationCodeEvent asks the mail pipeline to deliver a code.
type VerificationCodeEvent struct {
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Code      string    `json:"code"`
	Locale    string    `json:"locale"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Notifier publishes auth events to the configured exchange.
type Notifier struct {
	publisher rabbitmq.Publisher
	exchange  string
	logger    *slog.Logger
}

func NewNotifier(publisher rabbitmq.Publisher, exchange string, logger *slog.Logger) *Notifier {
	if publisher == nil {
		publisher = &rabbitmq.EventProducerFallback{Logger: logger}
	}
	return &Notifier{publisher: publisher, exchange: exchange, logger: logger}
}

func (n *Notifier) CodeIssued(ctx context.Context, event VerificationCodeEvent) error {
	if err := n.publisher.Publish(ctx, n.exchange, RoutingKeyCodeIssued, event); err != nil {
		return fmt.Errorf("failed to publish verification code for %s: %w", event.Email, err)
	}
	n.logger.Info("verification code issued", "component", "notifier", "email", event.Email, "locale", event.Locale, "expires_at", event.ExpiresAt)
	return nil
}
