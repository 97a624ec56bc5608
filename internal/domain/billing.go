package domain

import "time"

// Billing account owner kinds.
const (
	BillingOwnerPersonal = "PERSONAL"
	BillingOwnerOrg      = "ORG"
)

// Billing statuses. Transitions are driven by the external billing
// provider; this service only reads them (and applies webhook updates).
const (
	BillingStatusActive    = "ACTIVE"
	BillingStatusDue       = "DUE"
	BillingStatusSuspended = "SUSPENDED"
)

// BillingAccount tracks payment standing for a user or organization.
type BillingAccount struct {
	ID             string
	OwnerKind      string
	OwnerID        string
	BillingStatus  string
	GracePeriodEnd *time.Time
	UpdatedAt      time.Time
}
