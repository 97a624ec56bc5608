package domain

import "time"

// Account types distinguish personal users from organization seats.
const (
	AccountTypePersonal = "PERSONAL"
	AccountTypeOrg      = "ORG"
)

// User represents a platform account.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	AccountType  string
	PrimaryOrgID string
	CreatedAt    time.Time
}

// Principal is the session-resolved identity attached to a request.
type Principal struct {
	UserID      string
	AccountType string
	OrgID       string
}
