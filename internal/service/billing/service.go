package billing

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/huddlehq/huddle/internal/domain"
	"github.com/huddlehq/huddle/internal/repository"
	"github.com/huddlehq/huddle/pkg/config"
)

// Service decides whether requests may proceed given the billing
// standing of the owning account. It never returns an error: lookup
// failures degrade to ACTIVE so billing infrastructure problems cannot
// lock users out.
type Service struct {
	accounts repository.BillingRepository
	logger   *slog.Logger
	cfg      config.APIConfig
}

// New constructs a Service.
func New(accounts repository.BillingRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{accounts: accounts, logger: logger, cfg: cfg}
}

// exemptPathPrefixes always pass the gate so a suspended account can
// still authenticate, inspect itself, and pay its bill.
var exemptPathPrefixes = []string{
	"/auth/",
	"/billing",
	"/webhook/billing",
	"/me",
	"/healthz",
	"/metrics",
}

// StatusResolution is the outcome of a billing lookup.
type StatusResolution struct {
	Status              string `json:"status"`
	AccountID           string `json:"account_id,omitempty"`
	DaysUntilSuspension *int   `json:"days_until_suspension,omitempty"`
}

// Warning carries the headers surfaced on DUE accounts.
type Warning struct {
	Status              string
	DaysUntilSuspension *int
}

// Rejection is the structured payload for suspended accounts.
type Rejection struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	BillingURL string `json:"billingUrl"`
	Code       string `json:"code"`
}

// Decision is the gate's disposition for a single request.
type Decision struct {
	Allow     bool
	Warning   *Warning
	Rejection *Rejection
}

// ResolveStatus determines the billing standing of the principal's
// owning account. Org principals resolve against the organization's
// account first, personal principals against their own. A missing
// account or any lookup failure resolves to ACTIVE.
func (s Service) ResolveStatus(ctx context.Context, principal *domain.Principal) StatusResolution {
	if principal == nil || principal.UserID == "" {
		return StatusResolution{Status: domain.BillingStatusActive}
	}
	if principal.AccountType == domain.AccountTypeOrg && principal.OrgID != "" {
		if res, ok := s.lookup(ctx, domain.BillingOwnerOrg, principal.OrgID); ok {
			return res
		}
	}
	if res, ok := s.lookup(ctx, domain.BillingOwnerPersonal, principal.UserID); ok {
		return res
	}
	return StatusResolution{Status: domain.BillingStatusActive}
}

// lookup fetches one billing account under the configured timeout. The
// second return is false when no account exists so the caller can fall
// through to the personal account; lookup errors short-circuit to
// ACTIVE instead (fail open).
func (s Service) lookup(ctx context.Context, ownerKind, ownerID string) (StatusResolution, bool) {
	if s.cfg.BillingLookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.BillingLookupTimeout)
		defer cancel()
	}
	account, err := s.accounts.GetBillingAccountByOwner(ctx, ownerKind, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return StatusResolution{}, false
		}
		s.logger.Warn("billing lookup failed, treating account as active",
			"owner_kind", ownerKind, "owner_id", ownerID, "error", err)
		return StatusResolution{Status: domain.BillingStatusActive}, true
	}
	res := StatusResolution{Status: account.BillingStatus, AccountID: account.ID}
	if account.BillingStatus == domain.BillingStatusDue && account.GracePeriodEnd != nil {
		days := daysUntil(*account.GracePeriodEnd, time.Now())
		res.DaysUntilSuspension = &days
	}
	return res, true
}

// daysUntil computes ceil((deadline-now)/24h) floored at zero.
func daysUntil(deadline, now time.Time) int {
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

// Guard decides the disposition for a request path and principal.
// Absent principals pass through (the auth layer owns that rejection),
// exempt paths always pass, unknown statuses pass (fail open). The
// operation performs no writes and is idempotent for a given account
// snapshot.
func (s Service) Guard(ctx context.Context, path string, principal *domain.Principal) Decision {
	if principal == nil || principal.UserID == "" {
		return Decision{Allow: true}
	}
	if IsExemptPath(path) {
		return Decision{Allow: true}
	}
	res := s.ResolveStatus(ctx, principal)
	switch res.Status {
	case domain.BillingStatusActive:
		return Decision{Allow: true}
	case domain.BillingStatusDue:
		return Decision{
			Allow:   true,
			Warning: &Warning{Status: domain.BillingStatusDue, DaysUntilSuspension: res.DaysUntilSuspension},
		}
	case domain.BillingStatusSuspended:
		return Decision{
			Rejection: &Rejection{
				Error:      "ACCOUNT_SUSPENDED",
				Message:    "Your account is suspended due to unpaid invoices. Update your payment details to restore access.",
				BillingURL: s.cfg.BillingURL,
				Code:       "BILLING_SUSPENDED",
			},
		}
	default:
		s.logger.Warn("unrecognized billing status, allowing request",
			"status", res.Status, "account_id", res.AccountID)
		return Decision{Allow: true}
	}
}

// IsExemptPath reports whether the path bypasses the billing gate.
func IsExemptPath(path string) bool {
	for _, prefix := range exemptPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Provision creates an ACTIVE billing account for a new owner. Creation
// is idempotent; an already provisioned owner keeps its record.
func (s Service) Provision(ctx context.Context, ownerKind, ownerID string) error {
	account := &domain.BillingAccount{
		ID:            uuid.NewString(),
		OwnerKind:     ownerKind,
		OwnerID:       ownerID,
		BillingStatus: domain.BillingStatusActive,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.accounts.CreateBillingAccount(ctx, account); err != nil {
		return err
	}
	s.logger.Info("billing account provisioned", "owner_kind", ownerKind, "owner_id", ownerID)
	return nil
}
