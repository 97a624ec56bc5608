package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/huddlehq/huddle/internal/domain"
	"github.com/huddlehq/huddle/internal/repository"
	"github.com/huddlehq/huddle/pkg/config"
)

type billingRepoStub struct {
	mu        sync.Mutex
	updateErr error
	updates   []statusUpdate
}

type statusUpdate struct {
	accountID      string
	status         string
	gracePeriodEnd *time.Time
}

func (r *billingRepoStub) GetBillingAccountByOwner(_ context.Context, _, _ string) (*domain.BillingAccount, error) {
	return nil, repository.ErrNotFound
}

func (r *billingRepoStub) CreateBillingAccount(_ context.Context, _ *domain.BillingAccount) error {
	return nil
}

func (r *billingRepoStub) UpdateBillingStatus(_ context.Context, accountID, status string, gracePeriodEnd *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updates = append(r.updates, statusUpdate{accountID: accountID, status: status, gracePeriodEnd: gracePeriodEnd})
	return nil
}

const testSecret = "whsec-test"

func newWebhookService(repo *billingRepoStub) Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.APIConfig{BillingWebhookSecret: testSecret}
	return New(repo, logger, cfg)
}

func sign(payload []byte, secret string) string {
	hasher := hmac.New(sha256.New, []byte(secret))
	hasher.Write(payload)
	return hex.EncodeToString(hasher.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	svc := newWebhookService(&billingRepoStub{})
	payload := []byte(`{"account_id":"acct-1","status":"ACTIVE"}`)

	if err := svc.VerifySignature(payload, sign(payload, testSecret)); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
	if err := svc.VerifySignature(payload, sign(payload, "wrong-secret")); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if err := svc.VerifySignature(payload, ""); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected empty signature rejected, got %v", err)
	}
	tampered := []byte(`{"account_id":"acct-1","status":"SUSPENDED"}`)
	if err := svc.VerifySignature(tampered, sign(payload, testSecret)); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected tampered payload rejected, got %v", err)
	}
}

func TestVerifySignatureRequiresConfiguredSecret(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(&billingRepoStub{}, logger, config.APIConfig{})
	payload := []byte(`{}`)
	if err := svc.VerifySignature(payload, sign(payload, "anything")); err == nil {
		t.Fatalf("expected error when no secret configured")
	}
}

func TestProcessStatusEventAppliesUpdate(t *testing.T) {
	repo := &billingRepoStub{}
	svc := newWebhookService(repo)

	payload := []byte(`{"account_id":"acct-1","status":"DUE","grace_period_end":"2026-09-10T00:00:00Z"}`)
	if err := svc.ProcessStatusEvent(context.Background(), payload, sign(payload, testSecret)); err != nil {
		t.Fatalf("process event: %v", err)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.updates) != 1 {
		t.Fatalf("expected one update, got %d", len(repo.updates))
	}
	update := repo.updates[0]
	if update.accountID != "acct-1" || update.status != domain.BillingStatusDue {
		t.Fatalf("unexpected update %+v", update)
	}
	want := time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC)
	if update.gracePeriodEnd == nil || !update.gracePeriodEnd.Equal(want) {
		t.Fatalf("unexpected grace period end %v", update.gracePeriodEnd)
	}
}

func TestProcessStatusEventDropsGraceDeadlineUnlessDue(t *testing.T) {
	repo := &billingRepoStub{}
	svc := newWebhookService(repo)

	payload := []byte(`{"account_id":"acct-1","status":"SUSPENDED","grace_period_end":"2026-09-10T00:00:00Z"}`)
	if err := svc.ProcessStatusEvent(context.Background(), payload, sign(payload, testSecret)); err != nil {
		t.Fatalf("process event: %v", err)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.updates) != 1 {
		t.Fatalf("expected one update, got %d", len(repo.updates))
	}
	if repo.updates[0].gracePeriodEnd != nil {
		t.Fatalf("grace deadline must be cleared outside DUE")
	}
}

func TestProcessStatusEventRejectsBadSignature(t *testing.T) {
	repo := &billingRepoStub{}
	svc := newWebhookService(repo)

	payload := []byte(`{"account_id":"acct-1","status":"ACTIVE"}`)
	err := svc.ProcessStatusEvent(context.Background(), payload, "deadbeef")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	repo.mu.Lock()
	updates := len(repo.updates)
	repo.mu.Unlock()
	if updates != 0 {
		t.Fatalf("expected no updates on rejected signature")
	}
}

func TestProcessStatusEventValidatesPayload(t *testing.T) {
	svc := newWebhookService(&billingRepoStub{})

	cases := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"account_id":`},
		{"missing account id", `{"status":"ACTIVE"}`},
		{"unknown status", `{"account_id":"acct-1","status":"FROZEN"}`},
	}
	for _, tc := range cases {
		payload := []byte(tc.payload)
		if err := svc.ProcessStatusEvent(context.Background(), payload, sign(payload, testSecret)); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestProcessStatusEventPropagatesNotFound(t *testing.T) {
	repo := &billingRepoStub{updateErr: repository.ErrNotFound}
	svc := newWebhookService(repo)

	payload := []byte(`{"account_id":"ghost","status":"ACTIVE"}`)
	err := svc.ProcessStatusEvent(context.Background(), payload, sign(payload, testSecret))
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
