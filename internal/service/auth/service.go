package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/huddlehq/huddle/internal/domain"
	"github.com/huddlehq/huddle/internal/repository"
	"github.com/huddlehq/huddle/internal/service/billing"
	"github.com/huddlehq/huddle/pkg/config"
	"github.com/huddlehq/huddle/pkg/crypto"
	jwtpkg "github.com/huddlehq/huddle/pkg/jwt"
)

// Service handles authentication workflows.
type Service struct {
	users   repository.UserRepository
	orgs    repository.OrgRepository
	billing billing.Service
	logger  *slog.Logger
	cfg     config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, orgs repository.OrgRepository, billingSvc billing.Service, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, orgs: orgs, billing: billingSvc, logger: logger, cfg: cfg}
}

// TokenPair contains access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

var (
	errEmailRequired    = errors.New("email is required")
	errPasswordRequired = errors.New("password is required")
	errOrgNameRequired  = errors.New("organization name is required for org accounts")
	// ErrInvalidCredentials hides whether the email or password failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// SignupInput captures a registration request.
type SignupInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	AccountType string `json:"account_type"`
	OrgName     string `json:"org_name"`
}

// Signup registers a new user. Personal signups get a PERSONAL billing
// account; org signups additionally create the organization, an ADMIN
// workspace membership, and an ORG billing account.
func (s Service) Signup(ctx context.Context, input SignupInput) (*domain.User, TokenPair, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return nil, TokenPair{}, errEmailRequired
	}
	if input.Password == "" {
		return nil, TokenPair{}, errPasswordRequired
	}
	accountType := input.AccountType
	if accountType == "" {
		accountType = domain.AccountTypePersonal
	}
	if accountType == domain.AccountTypeOrg && strings.TrimSpace(input.OrgName) == "" {
		return nil, TokenPair{}, errOrgNameRequired
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		AccountType:  accountType,
		CreatedAt:    time.Now().UTC(),
	}

	if accountType == domain.AccountTypeOrg {
		org := &domain.Organization{
			ID:        uuid.NewString(),
			Name:      strings.TrimSpace(input.OrgName),
			OwnerID:   user.ID,
			CreatedAt: time.Now().UTC(),
		}
		user.PrimaryOrgID = org.ID
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, TokenPair{}, err
		}
		if err := s.orgs.CreateOrganization(ctx, org); err != nil {
			return nil, TokenPair{}, err
		}
		member := &domain.OrgMember{
			OrgID:     org.ID,
			UserID:    user.ID,
			Role:      domain.OrgRoleAdmin,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.orgs.UpsertOrgMember(ctx, member); err != nil {
			return nil, TokenPair{}, err
		}
		if err := s.billing.Provision(ctx, domain.BillingOwnerOrg, org.ID); err != nil {
			return nil, TokenPair{}, err
		}
	} else {
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, TokenPair{}, err
		}
	}
	if err := s.billing.Provision(ctx, domain.BillingOwnerPersonal, user.ID); err != nil {
		return nil, TokenPair{}, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "account_type", accountType)
	return user, tokens, nil
}

// Login authenticates a user and returns tokens.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, TokenPair, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, tokens, nil
}

// Authorize validates a bearer token and returns the user and the
// session principal derived from the claims.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *domain.Principal, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, errors.New("token required")
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	principal := &domain.Principal{
		UserID:      user.ID,
		AccountType: user.AccountType,
		OrgID:       user.PrimaryOrgID,
	}
	return user, principal, nil
}

// GetUser fetches a user profile by id.
func (s Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetUserByID(ctx, id)
}

func (s Service) issueTokens(user *domain.User) (TokenPair, error) {
	access, err := jwtpkg.GenerateToken(user.ID, user.AccountType, user.PrimaryOrgID, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := jwtpkg.GenerateToken(user.ID, user.AccountType, user.PrimaryOrgID, s.cfg.JWTSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(s.cfg.AccessTokenTTL.Seconds())}, nil
}
