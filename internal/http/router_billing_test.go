package httpx

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/huddlehq/huddle/internal/domain"
	"github.com/huddlehq/huddle/internal/repository"
	"github.com/huddlehq/huddle/internal/service/auth"
	"github.com/huddlehq/huddle/internal/service/billing"
	"github.com/huddlehq/huddle/internal/service/project"
	"github.com/huddlehq/huddle/internal/service/task"
	"github.com/huddlehq/huddle/internal/service/team"
	"github.com/huddlehq/huddle/internal/service/webhook"
	"github.com/huddlehq/huddle/pkg/config"
	jwtpkg "github.com/huddlehq/huddle/pkg/jwt"
)

// storeStub backs every repository interface with in-memory maps, the
// way the single postgres.Repository does against the database.
type storeStub struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	orgs     map[string]*domain.Organization
	orgRoles map[string]*domain.OrgMember
	billing  map[string]*domain.BillingAccount
	teams    map[string]*domain.Team
	members  map[string]*domain.TeamMember
	roles    map[string][]domain.CustomRole
	projects map[string]*domain.Project
	tasks    map[string]*domain.Task
}

func newStoreStub() *storeStub {
	return &storeStub{
		users:    make(map[string]*domain.User),
		orgs:     make(map[string]*domain.Organization),
		orgRoles: make(map[string]*domain.OrgMember),
		billing:  make(map[string]*domain.BillingAccount),
		teams:    make(map[string]*domain.Team),
		members:  make(map[string]*domain.TeamMember),
		roles:    make(map[string][]domain.CustomRole),
		projects: make(map[string]*domain.Project),
		tasks:    make(map[string]*domain.Task),
	}
}

func (s *storeStub) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *user
	s.users[user.ID] = &copy
	return nil
}

func (s *storeStub) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			copy := *user
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *storeStub) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (s *storeStub) CreateOrganization(_ context.Context, org *domain.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *org
	s.orgs[org.ID] = &copy
	return nil
}

func (s *storeStub) GetOrganizationByID(_ context.Context, orgID string) (*domain.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[orgID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *org
	return &copy, nil
}

func (s *storeStub) UpsertOrgMember(_ context.Context, member *domain.OrgMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *member
	s.orgRoles[member.OrgID+"/"+member.UserID] = &copy
	return nil
}

func (s *storeStub) GetOrgMember(_ context.Context, orgID, userID string) (*domain.OrgMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	member, ok := s.orgRoles[orgID+"/"+userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *member
	return &copy, nil
}

func billingKey(kind, id string) string { return kind + "/" + id }

func (s *storeStub) GetBillingAccountByOwner(_ context.Context, ownerKind, ownerID string) (*domain.BillingAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.billing[billingKey(ownerKind, ownerID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *account
	return &copy, nil
}

func (s *storeStub) CreateBillingAccount(_ context.Context, account *domain.BillingAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := billingKey(account.OwnerKind, account.OwnerID)
	if _, exists := s.billing[key]; exists {
		return nil
	}
	copy := *account
	s.billing[key] = &copy
	return nil
}

func (s *storeStub) UpdateBillingStatus(_ context.Context, accountID, status string, gracePeriodEnd *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.billing {
		if account.ID == accountID {
			account.BillingStatus = status
			account.GracePeriodEnd = gracePeriodEnd
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *storeStub) CreateTeam(_ context.Context, team *domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *team
	s.teams[team.ID] = &copy
	return nil
}

func (s *storeStub) GetTeamByID(_ context.Context, teamID string) (*domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[teamID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *team
	return &copy, nil
}

func (s *storeStub) UpdateTeam(_ context.Context, team *domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *team
	s.teams[team.ID] = &copy
	return nil
}

func (s *storeStub) DeleteTeam(_ context.Context, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.teams, teamID)
	return nil
}

func (s *storeStub) ListTeamsByUser(_ context.Context, userID string) ([]domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Team{}
	for _, member := range s.members {
		if member.MemberID != userID {
			continue
		}
		if team, ok := s.teams[member.TeamID]; ok {
			out = append(out, *team)
		}
	}
	return out, nil
}

func (s *storeStub) UpsertTeamMember(_ context.Context, member *domain.TeamMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *member
	s.members[member.TeamID+"/"+member.MemberID] = &copy
	return nil
}

func (s *storeStub) GetTeamMember(_ context.Context, teamID, userID string) (*domain.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	member, ok := s.members[teamID+"/"+userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *member
	return &copy, nil
}

func (s *storeStub) ListTeamMembers(_ context.Context, teamID string) ([]domain.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.TeamMember{}
	for _, member := range s.members {
		if member.TeamID == teamID {
			out = append(out, *member)
		}
	}
	return out, nil
}

func (s *storeStub) RemoveTeamMember(_ context.Context, teamID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, teamID+"/"+userID)
	return nil
}

func (s *storeStub) CountMembersWithCustomRole(_ context.Context, roleID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, member := range s.members {
		if member.CustomRoleID == roleID {
			count++
		}
	}
	return count, nil
}

func (s *storeStub) CreateCustomRole(_ context.Context, role *domain.CustomRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[role.TeamID] = append(s.roles[role.TeamID], *role)
	return nil
}

func (s *storeStub) UpdateCustomRole(_ context.Context, role *domain.CustomRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	roles := s.roles[role.TeamID]
	for i := range roles {
		if roles[i].ID == role.ID {
			roles[i] = *role
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *storeStub) DeleteCustomRole(_ context.Context, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for teamID, roles := range s.roles {
		for i := range roles {
			if roles[i].ID == roleID {
				s.roles[teamID] = append(roles[:i], roles[i+1:]...)
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (s *storeStub) ListCustomRoles(_ context.Context, teamID string) ([]domain.CustomRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CustomRole, len(s.roles[teamID]))
	copy(out, s.roles[teamID])
	return out, nil
}

func (s *storeStub) CreateProject(_ context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *project
	s.projects[project.ID] = &copy
	return nil
}

func (s *storeStub) GetProjectByID(_ context.Context, projectID string) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[projectID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *project
	return &copy, nil
}

func (s *storeStub) ListProjectsByTeam(_ context.Context, teamID string) ([]domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Project{}
	for _, project := range s.projects {
		if project.TeamID == teamID {
			out = append(out, *project)
		}
	}
	return out, nil
}

func (s *storeStub) CreateTask(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *task
	s.tasks[task.ID] = &copy
	return nil
}

func (s *storeStub) GetTaskByID(_ context.Context, taskID string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *task
	return &copy, nil
}

func (s *storeStub) UpdateTask(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *task
	s.tasks[task.ID] = &copy
	return nil
}

func (s *storeStub) DeleteTask(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, taskID)
	return nil
}

func (s *storeStub) ListTasksByProject(_ context.Context, projectID string, limit, offset int) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Task{}
	for _, task := range s.tasks {
		if task.ProjectID == projectID {
			out = append(out, *task)
		}
	}
	return out, nil
}

const routerTestWebhookSecret = "whsec-router"

func setupRouter(t *testing.T, store *storeStub) *Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.APIConfig{
		JWTSecret:            "test-secret",
		AccessTokenTTL:       time.Hour,
		RefreshTokenTTL:      24 * time.Hour,
		BillingWebhookSecret: routerTestWebhookSecret,
		BillingLookupTimeout: 500 * time.Millisecond,
		BillingURL:           "/billing",
	}

	billingSvc := billing.New(store, logger, cfg)
	authSvc := auth.New(store, store, billingSvc, logger, cfg)
	teamSvc := team.New(store, store, nil, logger)
	projectSvc := project.New(store, teamSvc, logger)
	taskSvc := task.New(store, store, teamSvc, nil, logger)
	webhookSvc := webhook.New(store, logger, cfg)

	router := NewRouter(logger, authSvc, billingSvc, teamSvc, projectSvc, taskSvc, webhookSvc, nil, nil, nil)
	t.Cleanup(router.Close)
	return router
}

func issueToken(t *testing.T, userID, accountType, orgID string) string {
	t.Helper()
	token, err := jwtpkg.GenerateToken(userID, accountType, orgID, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func seedOrgUser(store *storeStub, userID, orgID, orgRole string) {
	store.users[userID] = &domain.User{
		ID: userID, Email: userID + "@example.com",
		AccountType: domain.AccountTypeOrg, PrimaryOrgID: orgID,
	}
	store.orgs[orgID] = &domain.Organization{ID: orgID, Name: "acme", OwnerID: userID}
	store.orgRoles[orgID+"/"+userID] = &domain.OrgMember{OrgID: orgID, UserID: userID, Role: orgRole}
}

func seedPersonalUser(store *storeStub, userID string) {
	store.users[userID] = &domain.User{
		ID: userID, Email: userID + "@example.com",
		AccountType: domain.AccountTypePersonal,
	}
}

func do(router *Router, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestActiveOrgAccountPassesWithoutHeaders(t *testing.T) {
	store := newStoreStub()
	seedOrgUser(store, "user-1", "org-1", domain.OrgRoleMember)
	store.billing[billingKey(domain.BillingOwnerOrg, "org-1")] = &domain.BillingAccount{
		ID: "acct-1", OwnerKind: domain.BillingOwnerOrg, OwnerID: "org-1",
		BillingStatus: domain.BillingStatusActive,
	}
	router := setupRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/teams", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, "user-1", domain.AccountTypeOrg, "org-1"))
	rr := do(router, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get(headerBillingStatus) != "" {
		t.Fatalf("unexpected billing header on ACTIVE account: %q", rr.Header().Get(headerBillingStatus))
	}
	if rr.Header().Get(headerBillingDays) != "" {
		t.Fatalf("unexpected days header on ACTIVE account")
	}
}

func TestDueAccountProceedsWithWarningHeaders(t *testing.T) {
	deadline := time.Now().Add(36 * time.Hour)
	store := newStoreStub()
	seedPersonalUser(store, "user-1")
	store.billing[billingKey(domain.BillingOwnerPersonal, "user-1")] = &domain.BillingAccount{
		ID: "acct-1", OwnerKind: domain.BillingOwnerPersonal, OwnerID: "user-1",
		BillingStatus: domain.BillingStatusDue, GracePeriodEnd: &deadline,
	}
	router := setupRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/teams", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, "user-1", domain.AccountTypePersonal, ""))
	rr := do(router, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get(headerBillingStatus); got != domain.BillingStatusDue {
		t.Fatalf("expected DUE header, got %q", got)
	}
	if got := rr.Header().Get(headerBillingDays); got != "2" {
		t.Fatalf("expected 2 days until suspension, got %q", got)
	}
}

func TestSuspendedAccountBlockedOutsideExemptPaths(t *testing.T) {
	store := newStoreStub()
	seedOrgUser(store, "user-1", "org-1", domain.OrgRoleAdmin)
	store.billing[billingKey(domain.BillingOwnerOrg, "org-1")] = &domain.BillingAccount{
		ID: "acct-1", OwnerKind: domain.BillingOwnerOrg, OwnerID: "org-1",
		BillingStatus: domain.BillingStatusSuspended,
	}
	router := setupRouter(t, store)
	token := issueToken(t, "user-1", domain.AccountTypeOrg, "org-1")

	req := httptest.NewRequest(http.MethodGet, "/projects?team_id=team-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := do(router, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode rejection: %v", err)
	}
	if payload["error"] != "ACCOUNT_SUSPENDED" {
		t.Fatalf("unexpected error field %q", payload["error"])
	}
	if payload["code"] != "BILLING_SUSPENDED" {
		t.Fatalf("unexpected code field %q", payload["code"])
	}
	if payload["billingUrl"] != "/billing" {
		t.Fatalf("unexpected billingUrl %q", payload["billingUrl"])
	}
	if payload["message"] == "" {
		t.Fatalf("expected a message in the rejection payload")
	}

	// The billing page itself stays reachable so the user can pay.
	req = httptest.NewRequest(http.MethodGet, "/billing", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = do(router, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected /billing reachable while suspended, got %d", rr.Code)
	}
	var status map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status["status"] != domain.BillingStatusSuspended {
		t.Fatalf("unexpected billing status %v", status["status"])
	}

	// So does /me.
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if rr := do(router, req); rr.Code != http.StatusOK {
		t.Fatalf("expected /me reachable while suspended, got %d", rr.Code)
	}
}

func TestSuspendedAccountBlockedFromTeamEventsStream(t *testing.T) {
	store := newStoreStub()
	seedOrgUser(store, "user-1", "org-1", domain.OrgRoleMember)
	store.teams["team-1"] = &domain.Team{ID: "team-1", OrgID: "org-1", Name: "platform"}
	store.members["team-1/user-1"] = &domain.TeamMember{
		TeamID: "team-1", MemberID: "user-1", Role: domain.TeamRoleMember, IsActive: true,
	}
	store.billing[billingKey(domain.BillingOwnerOrg, "org-1")] = &domain.BillingAccount{
		ID: "acct-1", OwnerKind: domain.BillingOwnerOrg, OwnerID: "org-1",
		BillingStatus: domain.BillingStatusSuspended,
	}
	router := setupRouter(t, store)

	// Team membership alone must not get a suspended account past the
	// gate and into the upgrader.
	req := httptest.NewRequest(http.MethodGet, "/ws/team-events?team_id=team-1", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, "user-1", domain.AccountTypeOrg, "org-1"))
	rr := do(router, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before upgrade, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode rejection: %v", err)
	}
	if payload["error"] != "ACCOUNT_SUSPENDED" {
		t.Fatalf("unexpected error field %q", payload["error"])
	}
}

func TestMissingBillingAccountFailsOpen(t *testing.T) {
	store := newStoreStub()
	seedOrgUser(store, "user-1", "org-1", domain.OrgRoleMember)
	router := setupRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/teams", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, "user-1", domain.AccountTypeOrg, "org-1"))
	rr := do(router, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 without a billing account, got %d", rr.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := setupRouter(t, newStoreStub())
	for _, path := range []string{"/teams", "/projects", "/tasks", "/me", "/billing"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if rr := do(router, req); rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s without token, got %d", path, rr.Code)
		}
	}
}

func TestTeamPermissionsEndpoint(t *testing.T) {
	store := newStoreStub()
	seedOrgUser(store, "lead-1", "org-1", domain.OrgRoleMember)
	store.teams["team-1"] = &domain.Team{ID: "team-1", OrgID: "org-1", Name: "platform"}
	store.members["team-1/lead-1"] = &domain.TeamMember{
		TeamID: "team-1", MemberID: "lead-1", Role: domain.TeamRoleLead, IsActive: true,
	}
	router := setupRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/teams/team-1/permissions", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, "lead-1", domain.AccountTypeOrg, "org-1"))
	rr := do(router, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var caps map[string]bool
	if err := json.NewDecoder(rr.Body).Decode(&caps); err != nil {
		t.Fatalf("decode capabilities: %v", err)
	}
	if !caps["is_team_lead"] {
		t.Fatalf("expected is_team_lead for LEAD")
	}
	if !caps["can_manage_members"] || !caps["can_delete_team"] {
		t.Fatalf("expected full capability flags for LEAD, got %v", caps)
	}
}

func TestSignupProvisionsBillingAndLoginWorks(t *testing.T) {
	store := newStoreStub()
	router := setupRouter(t, store)

	body := `{"email":"founder@example.com","password":"hunter2secret","account_type":"ORG","org_name":"acme"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := do(router, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload struct {
		User struct {
			ID          string `json:"id"`
			AccountType string `json:"account_type"`
			OrgID       string `json:"org_id"`
		} `json:"user"`
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	if payload.User.AccountType != domain.AccountTypeOrg || payload.User.OrgID == "" {
		t.Fatalf("unexpected signup user %+v", payload.User)
	}
	if payload.Tokens.AccessToken == "" {
		t.Fatalf("expected access token issued")
	}

	store.mu.Lock()
	_, orgBilling := store.billing[billingKey(domain.BillingOwnerOrg, payload.User.OrgID)]
	_, personalBilling := store.billing[billingKey(domain.BillingOwnerPersonal, payload.User.ID)]
	store.mu.Unlock()
	if !orgBilling {
		t.Fatalf("expected org billing account provisioned")
	}
	if !personalBilling {
		t.Fatalf("expected personal billing account provisioned")
	}

	// The fresh token must pass the middleware chain.
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+payload.Tokens.AccessToken)
	if rr := do(router, req); rr.Code != http.StatusOK {
		t.Fatalf("expected /me with signup token, got %d", rr.Code)
	}

	loginBody := `{"email":"founder@example.com","password":"hunter2secret"}`
	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(loginBody))
	req.Header.Set("Content-Type", "application/json")
	if rr := do(router, req); rr.Code != http.StatusOK {
		t.Fatalf("expected login 200, got %d: %s", rr.Code, rr.Body.String())
	}

	badBody := `{"email":"founder@example.com","password":"wrong"}`
	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(badBody))
	req.Header.Set("Content-Type", "application/json")
	if rr := do(router, req); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected login 401 on bad password, got %d", rr.Code)
	}
}

func signWebhook(payload []byte) string {
	hasher := hmac.New(sha256.New, []byte(routerTestWebhookSecret))
	hasher.Write(payload)
	return hex.EncodeToString(hasher.Sum(nil))
}

func TestBillingWebhookUpdatesAccount(t *testing.T) {
	store := newStoreStub()
	store.billing[billingKey(domain.BillingOwnerPersonal, "user-1")] = &domain.BillingAccount{
		ID: "acct-1", OwnerKind: domain.BillingOwnerPersonal, OwnerID: "user-1",
		BillingStatus: domain.BillingStatusActive,
	}
	router := setupRouter(t, store)

	payload := []byte(`{"account_id":"acct-1","status":"SUSPENDED"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/billing", strings.NewReader(string(payload)))
	req.Header.Set("X-Billing-Signature", signWebhook(payload))
	rr := do(router, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	store.mu.Lock()
	status := store.billing[billingKey(domain.BillingOwnerPersonal, "user-1")].BillingStatus
	store.mu.Unlock()
	if status != domain.BillingStatusSuspended {
		t.Fatalf("expected status applied, got %q", status)
	}
}

func TestBillingWebhookRejectsBadSignature(t *testing.T) {
	router := setupRouter(t, newStoreStub())

	payload := `{"account_id":"acct-1","status":"SUSPENDED"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/billing", strings.NewReader(payload))
	req.Header.Set("X-Billing-Signature", "deadbeef")
	rr := do(router, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestBillingWebhookUnknownAccount(t *testing.T) {
	router := setupRouter(t, newStoreStub())

	payload := []byte(`{"account_id":"ghost","status":"ACTIVE"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/billing", strings.NewReader(string(payload)))
	req.Header.Set("X-Billing-Signature", signWebhook(payload))
	rr := do(router, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestHealthzWithoutProbe(t *testing.T) {
	router := setupRouter(t, newStoreStub())
	rr := do(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("unexpected health status %v", payload["status"])
	}
}

func TestRateLimitHeadersOnProtectedRoute(t *testing.T) {
	store := newStoreStub()
	seedPersonalUser(store, "user-1")
	router := setupRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/teams", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, "user-1", domain.AccountTypePersonal, ""))
	rr := do(router, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Limit") == "" {
		t.Fatalf("expected rate limit headers")
	}
	if rr.Header().Get("X-RateLimit-Remaining") == "" {
		t.Fatalf("expected remaining header")
	}
}
