package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"log/slog"

	"github.com/huddlehq/huddle/internal/domain"
	"github.com/huddlehq/huddle/internal/repository"
	"github.com/huddlehq/huddle/pkg/config"
)

// Service applies billing provider callbacks. These webhooks are the
// only write path into billing accounts; the gate itself never writes.
type Service struct {
	accounts repository.BillingRepository
	logger   *slog.Logger
	cfg      config.APIConfig
}

// New constructs a webhook service.
func New(accounts repository.BillingRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{accounts: accounts, logger: logger, cfg: cfg}
}

var (
	// ErrInvalidSignature rejects unauthenticated callbacks.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	errSecretMissing  = errors.New("billing webhook secret not configured")
	errAccountMissing = errors.New("account_id is required")
	errUnknownStatus  = errors.New("unknown billing status")
)

// StatusEvent is the billing provider's callback payload.
type StatusEvent struct {
	AccountID      string     `json:"account_id"`
	Status         string     `json:"status"`
	GracePeriodEnd *time.Time `json:"grace_period_end"`
}

// VerifySignature checks the HMAC-SHA256 signature over the raw body.
func (s Service) VerifySignature(payload []byte, provided string) error {
	if s.cfg.BillingWebhookSecret == "" {
		return errSecretMissing
	}
	if provided == "" {
		return ErrInvalidSignature
	}
	hasher := hmac.New(sha256.New, []byte(s.cfg.BillingWebhookSecret))
	hasher.Write(payload)
	expected := hex.EncodeToString(hasher.Sum(nil))
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// ProcessStatusEvent verifies and applies one billing status callback.
func (s Service) ProcessStatusEvent(ctx context.Context, payload []byte, signature string) error {
	if err := s.VerifySignature(payload, signature); err != nil {
		return err
	}
	var event StatusEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}
	if event.AccountID == "" {
		return errAccountMissing
	}
	switch event.Status {
	case domain.BillingStatusActive, domain.BillingStatusDue, domain.BillingStatusSuspended:
	default:
		return errUnknownStatus
	}
	gracePeriodEnd := event.GracePeriodEnd
	if event.Status != domain.BillingStatusDue {
		// Grace deadlines only mean something while the account is DUE.
		gracePeriodEnd = nil
	}
	if err := s.accounts.UpdateBillingStatus(ctx, event.AccountID, event.Status, gracePeriodEnd); err != nil {
		return err
	}
	s.logger.Info("billing status updated", "account_id", event.AccountID, "status", event.Status)
	return nil
}
