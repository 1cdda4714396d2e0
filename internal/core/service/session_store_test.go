package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/optiflow/optiflow/internal/core/domain"
	"github.com/optiflow/optiflow/internal/infrastructure/events"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubTokens struct {
	mu       sync.Mutex
	token    string
	setErr   error
	clearErr error
	sets     int
	clears   int
}

func (r *stubTokens) Get(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token, nil
}

func (r *stubTokens) Set(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets++
	if r.setErr != nil {
		return r.setErr
	}
	r.token = token
	return nil
}

func (r *stubTokens) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears++
	if r.clearErr != nil {
		return r.clearErr
	}
	r.token = ""
	return nil
}

func (r *stubTokens) stored() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token
}

type userMessageErr struct{ msg string }

func (e userMessageErr) Error() string       { return "backend: " + e.msg }
func (e userMessageErr) UserMessage() string { return e.msg }

// stubAuthAPI is a tiny backend: passwords by username, users by token.
type stubAuthAPI struct {
	mu        sync.Mutex
	passwords map[string]string
	users     map[string]*domain.User // by token
	createErr error
	meErr     error
	revokeErr error

	issueCalls  int
	meCalls     int
	createCalls int
	revoked     []string

	// block, when set, holds IssueToken until closed.
	block   chan struct{}
	entered chan struct{}
}

func newStubAuthAPI() *stubAuthAPI {
	return &stubAuthAPI{
		passwords: make(map[string]string),
		users:     make(map[string]*domain.User),
	}
}

func (a *stubAuthAPI) seed(username, password, token string, role domain.Role) {
	a.passwords[username] = password
	a.users[token] = &domain.User{ID: domain.UserID("id-" + username), Username: username, Role: role}
}

func (a *stubAuthAPI) IssueToken(_ context.Context, username, password string) (*domain.TokenResponse, error) {
	if a.block != nil {
		a.entered <- struct{}{}
		<-a.block
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.issueCalls++
	if pw, ok := a.passwords[username]; !ok || pw != password {
		return nil, errors.New("401 unauthorized")
	}
	for token, u := range a.users {
		if u.Username == username {
			return &domain.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
		}
	}
	return nil, errors.New("no token")
}

func (a *stubAuthAPI) CreateUser(_ context.Context, username, password string) (*domain.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.createCalls++
	if a.createErr != nil {
		return nil, a.createErr
	}
	if _, exists := a.passwords[username]; exists {
		return nil, userMessageErr{msg: "Username already registered"}
	}
	a.passwords[username] = password
	a.users["tok-"+username] = &domain.User{ID: domain.UserID("id-" + username), Username: username}
	return &domain.User{Username: username}, nil
}

func (a *stubAuthAPI) CurrentUser(_ context.Context, token string) (*domain.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.meCalls++
	if a.meErr != nil {
		return nil, a.meErr
	}
	u, ok := a.users[token]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	clone := *u
	return &clone, nil
}

func (a *stubAuthAPI) RevokeToken(_ context.Context, token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revoked = append(a.revoked, token)
	return a.revokeErr
}

func (a *stubAuthAPI) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.issueCalls + a.meCalls + a.createCalls
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const adminList = "admin@example.com, Boss"

func newStore(t *testing.T, api *stubAuthAPI, tokens *stubTokens, opts ...SessionOption) (*SessionStore, *events.Bus) {
	t.Helper()
	bus := events.New()
	store, err := NewSessionStore(api, tokens, bus, domain.ParseAdminSet(adminList), zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("NewSessionStore: %v", err)
	}
	t.Cleanup(bus.WaitAsync)
	return store, bus
}

func assertAnonymous(t *testing.T, s domain.Session) {
	t.Helper()
	if s.IsAuthenticated() || s.User != nil || s.Token != "" || s.Role != "" {
		t.Fatalf("expected anonymous session, got %+v", s)
	}
	if s.Loading {
		t.Fatalf("loading must be false after completion")
	}
}

// ---------------------------------------------------------------------------
// Bootstrap
// ---------------------------------------------------------------------------

func TestSessionStore_Bootstrap_NoTokenMakesNoCalls(t *testing.T) {
	api := newStubAuthAPI()
	store, _ := newStore(t, api, &stubTokens{})

	if err := store.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if api.calls() != 0 {
		t.Fatalf("expected zero network calls, got %d", api.calls())
	}
	assertAnonymous(t, store.Snapshot())
}

func TestSessionStore_Bootstrap_RestoresSession(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("bob@example.com", "pw", "tok-bob", "")
	tokens := &stubTokens{token: "tok-bob"}
	store, _ := newStore(t, api, tokens)

	if err := store.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	s := store.Snapshot()
	if !s.IsAuthenticated() {
		t.Fatalf("expected authenticated session, got %+v", s)
	}
	if s.User.Username != "bob@example.com" || s.Role != domain.RoleCustomer {
		t.Fatalf("unexpected identity: %+v role=%s", s.User, s.Role)
	}
	if s.Token != "tok-bob" || tokens.stored() != "tok-bob" {
		t.Fatalf("token must be left unchanged")
	}
}

func TestSessionStore_Bootstrap_RejectedTokenIsErasedSilently(t *testing.T) {
	api := newStubAuthAPI()
	tokens := &stubTokens{token: "abc123"}
	store, _ := newStore(t, api, tokens)

	if err := store.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap must not surface expiry, got %v", err)
	}

	if tokens.stored() != "" {
		t.Fatalf("expected durable token erased, still %q", tokens.stored())
	}
	s := store.Snapshot()
	assertAnonymous(t, s)
	if s.Error != "" {
		t.Fatalf("expiry must not set an error, got %q", s.Error)
	}
}

func TestSessionStore_Bootstrap_ConcurrentCallsShareOneRequest(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("bob", "pw", "tok-bob", "")
	store, _ := newStore(t, api, &stubTokens{token: "tok-bob"})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Bootstrap(context.Background())
		}()
	}
	wg.Wait()

	if !store.Snapshot().IsAuthenticated() {
		t.Fatalf("expected authenticated session")
	}
	if api.meCalls > 5 || api.meCalls < 1 {
		t.Fatalf("unexpected /users/me calls: %d", api.meCalls)
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestSessionStore_Login_AdminFromAllowList(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("admin@example.com", "correctpass", "tok-admin", "")
	tokens := &stubTokens{}
	store, _ := newStore(t, api, tokens)

	if err := store.Login(context.Background(), "admin@example.com", "correctpass"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	s := store.Snapshot()
	if !s.IsAuthenticated() || s.Role != domain.RoleAdmin {
		t.Fatalf("expected authenticated admin, got %+v", s)
	}
	if s.Loading || s.Error != "" {
		t.Fatalf("unexpected loading/error: %+v", s)
	}
	if tokens.stored() != "tok-admin" {
		t.Fatalf("expected token persisted, got %q", tokens.stored())
	}
}

func TestSessionStore_Login_AllowListIsCaseInsensitive(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("boss", "pw", "tok-boss", "")
	store, _ := newStore(t, api, &stubTokens{})

	if err := store.Login(context.Background(), "boss", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := store.Snapshot().Role; got != domain.RoleAdmin {
		t.Fatalf("expected admin for allow-list entry configured as Boss, got %q", got)
	}
}

func TestSessionStore_Login_ServerRoleWins(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("admin@example.com", "pw", "tok-a", domain.RoleCustomer)
	store, _ := newStore(t, api, &stubTokens{})

	if err := store.Login(context.Background(), "admin@example.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := store.Snapshot().Role; got != domain.RoleCustomer {
		t.Fatalf("expected server-declared role, got %q", got)
	}
}

func TestSessionStore_Login_InvalidCredentials(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("carol", "right", "tok-carol", "")
	tokens := &stubTokens{}
	store, _ := newStore(t, api, tokens)

	err := store.Login(context.Background(), "carol", "wrong")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	s := store.Snapshot()
	assertAnonymous(t, s)
	if s.Error != domain.MsgInvalidCredentials {
		t.Fatalf("expected %q, got %q", domain.MsgInvalidCredentials, s.Error)
	}
	if tokens.sets != 0 || tokens.stored() != "" {
		t.Fatalf("no token may be persisted on failure")
	}
}

func TestSessionStore_Login_UserResolutionFailureRollsBack(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("dave", "pw", "tok-dave", "")
	api.meErr = errors.New("503 service unavailable")
	tokens := &stubTokens{}
	store, _ := newStore(t, api, tokens)

	err := store.Login(context.Background(), "dave", "pw")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if tokens.sets != 0 || tokens.stored() != "" {
		t.Fatalf("token issued but user unresolved must not be persisted")
	}
	s := store.Snapshot()
	assertAnonymous(t, s)
	if s.Error != domain.MsgInvalidCredentials {
		t.Fatalf("unexpected error message %q", s.Error)
	}
}

func TestSessionStore_Login_PersistFailure(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("erin", "pw", "tok-erin", "")
	tokens := &stubTokens{setErr: errors.New("disk full")}
	store, _ := newStore(t, api, tokens)

	if err := store.Login(context.Background(), "erin", "pw"); err == nil {
		t.Fatalf("expected error when the token cannot be saved")
	}
	s := store.Snapshot()
	assertAnonymous(t, s)
	if s.Error != domain.MsgSessionNotSaved {
		t.Fatalf("unexpected error message %q", s.Error)
	}
}

func TestSessionStore_Login_ClearsPreviousError(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("frank", "pw", "tok-frank", "")
	store, _ := newStore(t, api, &stubTokens{})

	_ = store.Login(context.Background(), "frank", "nope")
	if store.Snapshot().Error == "" {
		t.Fatalf("expected error after bad login")
	}
	if err := store.Login(context.Background(), "frank", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s := store.Snapshot(); s.Error != "" || !s.IsAuthenticated() {
		t.Fatalf("expected clean authenticated session, got %+v", s)
	}
}

func TestSessionStore_Login_ThenBootstrapYieldsSameIdentity(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("admin@example.com", "pw", "tok-admin", "")
	tokens := &stubTokens{}
	store, _ := newStore(t, api, tokens)

	if err := store.Login(context.Background(), "admin@example.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	afterLogin := store.Snapshot()

	if err := store.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	afterBootstrap := store.Snapshot()

	if *afterLogin.User != *afterBootstrap.User || afterLogin.Role != afterBootstrap.Role {
		t.Fatalf("identity changed: %+v/%s vs %+v/%s",
			afterLogin.User, afterLogin.Role, afterBootstrap.User, afterBootstrap.Role)
	}
}

func TestSessionStore_Login_RejectsOverlappingAttempt(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("gina", "pw", "tok-gina", "")
	api.block = make(chan struct{})
	api.entered = make(chan struct{}, 1)
	store, _ := newStore(t, api, &stubTokens{})

	firstErr := make(chan error, 1)
	go func() { firstErr <- store.Login(context.Background(), "gina", "pw") }()
	<-api.entered

	if s := store.Snapshot(); s.State() != domain.StateAuthenticating {
		t.Fatalf("expected authenticating state while in flight, got %s", s.State())
	}
	if err := store.Login(context.Background(), "gina", "pw"); !errors.Is(err, domain.ErrAuthInProgress) {
		t.Fatalf("expected ErrAuthInProgress, got %v", err)
	}

	close(api.block)
	if err := <-firstErr; err != nil {
		t.Fatalf("first login: %v", err)
	}
	if !store.Snapshot().IsAuthenticated() {
		t.Fatalf("first login should have completed")
	}
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestSessionStore_Register_AutoLogin(t *testing.T) {
	api := newStubAuthAPI()
	tokens := &stubTokens{}
	store, _ := newStore(t, api, tokens)

	if err := store.Register(context.Background(), "new@example.com", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	s := store.Snapshot()
	if !s.IsAuthenticated() || s.User.Username != "new@example.com" {
		t.Fatalf("expected signed-in new user, got %+v", s)
	}
	if tokens.stored() != "tok-new@example.com" {
		t.Fatalf("expected token persisted, got %q", tokens.stored())
	}
}

func TestSessionStore_Register_CreationFailureSkipsLogin(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("taken", "pw", "tok-taken", "")
	store, _ := newStore(t, api, &stubTokens{})

	err := store.Register(context.Background(), "taken", "pw")
	if !errors.Is(err, domain.ErrRegistrationFailed) {
		t.Fatalf("expected ErrRegistrationFailed, got %v", err)
	}
	if api.issueCalls != 0 {
		t.Fatalf("login must not be attempted after a failed creation")
	}
	s := store.Snapshot()
	if s.Error != "Username already registered" {
		t.Fatalf("expected backend message, got %q", s.Error)
	}
	if s.Loading || s.IsAuthenticated() {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestSessionStore_Register_GenericCreationFailure(t *testing.T) {
	api := newStubAuthAPI()
	api.createErr = errors.New("connection refused")
	store, _ := newStore(t, api, &stubTokens{})

	_ = store.Register(context.Background(), "x", "pw")
	if got := store.Snapshot().Error; got != domain.MsgRegistrationFailed {
		t.Fatalf("expected %q, got %q", domain.MsgRegistrationFailed, got)
	}
}

func TestSessionStore_Register_AutoLoginFailureLeavesNoToken(t *testing.T) {
	api := newStubAuthAPI()
	api.meErr = errors.New("404 not found")
	tokens := &stubTokens{}
	store, _ := newStore(t, api, tokens)

	err := store.Register(context.Background(), "new@example.com", "pw")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials from auto-login, got %v", err)
	}
	s := store.Snapshot()
	if s.IsAuthenticated() || s.Error == "" {
		t.Fatalf("expected error and anonymous session, got %+v", s)
	}
	if tokens.stored() != "" {
		t.Fatalf("no durable token may be left behind, got %q", tokens.stored())
	}
}

// ---------------------------------------------------------------------------
// Logout & auth-lost
// ---------------------------------------------------------------------------

func TestSessionStore_Logout_IsIdempotent(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("hank", "pw", "tok-hank", "")
	tokens := &stubTokens{}
	store, _ := newStore(t, api, tokens)

	if err := store.Login(context.Background(), "hank", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	store.Logout(context.Background())
	first := store.Snapshot()
	store.Logout(context.Background())
	second := store.Snapshot()

	assertAnonymous(t, first)
	assertAnonymous(t, second)
	if first.Error != "" || second.Error != "" {
		t.Fatalf("logout must clear the error")
	}
	if tokens.stored() != "" {
		t.Fatalf("expected token erased")
	}
}

func TestSessionStore_Logout_SurvivesStorageAndNetworkFailures(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("ivy", "pw", "tok-ivy", "")
	api.revokeErr = errors.New("network unreachable")
	tokens := &stubTokens{}
	store, _ := newStore(t, api, tokens, WithServerRevocation())

	if err := store.Login(context.Background(), "ivy", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	tokens.clearErr = errors.New("read-only filesystem")

	store.Logout(context.Background())

	assertAnonymous(t, store.Snapshot())
	if len(api.revoked) != 1 || api.revoked[0] != "tok-ivy" {
		t.Fatalf("expected best-effort revocation of the old token, got %v", api.revoked)
	}
}

func TestSessionStore_Logout_NoRevocationByDefault(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("jay", "pw", "tok-jay", "")
	store, _ := newStore(t, api, &stubTokens{})

	_ = store.Login(context.Background(), "jay", "pw")
	store.Logout(context.Background())

	if len(api.revoked) != 0 {
		t.Fatalf("revocation must be opt-in, got %v", api.revoked)
	}
}

func TestSessionStore_AuthLostSignsOut(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("kim", "pw", "tok-kim", "")
	store, bus := newStore(t, api, &stubTokens{})

	if err := store.Login(context.Background(), "kim", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	bus.PublishAuthLost(domain.AuthLostEvent{Token: "tok-kim", Method: "GET", URL: "/orders"})

	// No WaitAsync: the reset must be visible as soon as the publisher returns.
	assertAnonymous(t, store.Snapshot())
}

func TestSessionStore_AuthLostForOldTokenKeepsNewSession(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("kim", "pw", "tok-kim", "")
	api.seed("max", "pw", "tok-max", "")
	tokens := &stubTokens{}
	store, bus := newStore(t, api, tokens)

	if err := store.Login(context.Background(), "kim", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := store.Login(context.Background(), "max", "pw"); err != nil {
		t.Fatalf("second Login: %v", err)
	}

	bus.PublishAuthLost(domain.AuthLostEvent{Token: "tok-kim", Method: "GET", URL: "/orders"})
	bus.WaitAsync()

	s := store.Snapshot()
	if !s.IsAuthenticated() || s.Token != "tok-max" || s.User.Username != "max" {
		t.Fatalf("newer session was wiped: %+v", s)
	}
	if tokens.stored() != "tok-max" {
		t.Fatalf("expected tok-max stored, got %q", tokens.stored())
	}
}

func TestSessionStore_AuthLostThenImmediateLoginStaysAuthenticated(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("kim", "pw", "tok-kim", "")
	tokens := &stubTokens{}
	store, bus := newStore(t, api, tokens)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		if err := store.Login(ctx, "kim", "pw"); err != nil {
			t.Fatalf("round %d Login: %v", i, err)
		}

		// What the gateway does on a 401 for the stored token.
		if err := tokens.Clear(ctx); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		bus.PublishAuthLost(domain.AuthLostEvent{Token: "tok-kim", Method: "GET", URL: "/vendors"})
		if store.Snapshot().IsAuthenticated() {
			t.Fatalf("round %d: authenticated right after the token was rejected", i)
		}

		if err := store.Login(ctx, "kim", "pw"); err != nil {
			t.Fatalf("round %d re-login: %v", i, err)
		}
		bus.WaitAsync()

		if !store.Snapshot().IsAuthenticated() || tokens.stored() != "tok-kim" {
			t.Fatalf("round %d: re-login lost (session %+v, stored %q)", i, store.Snapshot(), tokens.stored())
		}
		store.Logout(ctx)
	}
}

func TestSessionStore_AuthLostHandlersSeeResetSession(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("kim", "pw", "tok-kim", "")
	store, bus := newStore(t, api, &stubTokens{})

	if err := store.Login(context.Background(), "kim", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	seen := make(chan bool, 1)
	if err := bus.OnAuthLost(func(domain.AuthLostEvent) {
		seen <- store.Snapshot().IsAuthenticated()
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	bus.PublishAuthLost(domain.AuthLostEvent{Token: "tok-kim"})
	bus.WaitAsync()

	if <-seen {
		t.Fatalf("asynchronous subscriber observed the rejected session")
	}
}

func TestSessionStore_PublishesSessionChanges(t *testing.T) {
	api := newStubAuthAPI()
	api.seed("lee", "pw", "tok-lee", "")
	store, bus := newStore(t, api, &stubTokens{})

	var mu sync.Mutex
	var states []domain.SessionState
	if err := bus.OnSessionChanged(func(s domain.Session) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.State())
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := store.Login(context.Background(), "lee", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	bus.WaitAsync()

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 2 {
		t.Fatalf("expected at least two notifications, got %v", states)
	}
	if states[0] != domain.StateAuthenticating || states[len(states)-1] != domain.StateAuthenticated {
		t.Fatalf("unexpected state sequence %v", states)
	}
}
