package goSession

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/role"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/store"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

var testNow = time.Unix(1_700_000_000, 0)

func mintToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("fixture-secret"))
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return tok
}

// fakeBackend is a scripted storefront API.
type fakeBackend struct {
	mu sync.Mutex

	tokens      map[string]string
	loginStatus int
	loginBody   string
	loginGates  map[string]chan struct{}

	profileStatus int
	profileBody   string
	profileGate   chan struct{}
	profileCalls  atomic.Int32

	updateStatus int
	updates      []map[string]any
	registered   []map[string]any

	renewTo  string
	lastAuth string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		tokens:     map[string]string{},
		loginGates: map[string]chan struct{}{},
	}
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/auth/login":
		var body struct {
			Username string `json:"username"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		gate := f.loginGates[body.Username]
		status, custom, token := f.loginStatus, f.loginBody, f.tokens[body.Username]
		f.mu.Unlock()

		if gate != nil {
			<-gate
		}
		if status != 0 {
			w.WriteHeader(status)
		}
		if custom != "" || status != 0 {
			io.WriteString(w, custom)
			return
		}
		w.Header().Set("X-New-Token", "Bearer "+token)
		io.WriteString(w, `{"code":1}`)

	case "/api/user":
		f.profileCalls.Add(1)
		f.mu.Lock()
		gate, status, body, renew := f.profileGate, f.profileStatus, f.profileBody, f.renewTo
		f.mu.Unlock()

		if gate != nil {
			<-gate
		}
		if renew != "" {
			w.Header().Set("X-New-Token", renew)
		}
		if status != 0 {
			w.WriteHeader(status)
		}
		if body == "" {
			body = `{"code":1,"data":null}`
		}
		io.WriteString(w, body)

	case "/api/user/profile":
		var u map[string]any
		_ = json.NewDecoder(r.Body).Decode(&u)
		f.mu.Lock()
		f.updates = append(f.updates, u)
		status := f.updateStatus
		f.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		io.WriteString(w, `{"code":1}`)

	case "/api/user/register":
		var u map[string]any
		_ = json.NewDecoder(r.Body).Decode(&u)
		f.mu.Lock()
		f.registered = append(f.registered, u)
		f.mu.Unlock()
		if u["username"] == "taken" {
			io.WriteString(w, `{"code":0,"message":"username taken"}`)
			return
		}
		io.WriteString(w, `{"code":200}`)

	case "/api/orders":
		f.mu.Lock()
		f.lastAuth = r.Header.Get("Authorization")
		renew := f.renewTo
		f.mu.Unlock()
		if renew != "" {
			w.Header().Set("X-New-Token", renew)
		}
		io.WriteString(w, `[]`)

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type testEnv struct {
	c       *Controller
	fb      *fakeBackend
	backend *store.MemoryBackend
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	fb := newFakeBackend()
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.Gateway.BaseURL = srv.URL + "/api"
	for _, m := range mutate {
		m(&cfg)
	}

	backend := store.NewMemoryBackend()
	c, err := New().
		WithConfig(cfg).
		WithBackend(backend).
		WithClock(func() time.Time { return testNow }).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	return &testEnv{c: c, fb: fb, backend: backend}
}

func (e *testEnv) stored(t *testing.T, key string) string {
	t.Helper()
	v, _, err := e.backend.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("load %s: %v", key, err)
	}
	return v
}

func (e *testEnv) issue(t *testing.T, username string, claims jwtlib.MapClaims) string {
	t.Helper()
	if claims == nil {
		claims = jwtlib.MapClaims{}
	}
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = testNow.Add(time.Hour).Unix()
	}
	tok := mintToken(t, claims)
	e.fb.set(func(f *fakeBackend) { f.tokens[username] = tok })
	return tok
}

func TestLoginHydratesServerProfile(t *testing.T) {
	env := newTestEnv(t)
	tok := env.issue(t, "alice", jwtlib.MapClaims{"sub": "alice@claims", "role": "customer"})
	env.fb.set(func(f *fakeBackend) {
		f.profileBody = `{"code":1,"data":{"id":7,"username":"alice","role":"ROLE_ADMIN","nickname":"Al"}}`
	})

	res := env.c.Login(context.Background(), "alice", "pw")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}

	snap := env.c.Snapshot()
	if snap.Token != tok || snap.Username != "alice" || snap.Role != role.Admin {
		t.Fatalf("unexpected session %+v", snap)
	}
	if snap.Profile == nil || snap.Profile.ID != "7" || snap.Profile.Nickname != "Al" {
		t.Fatalf("unexpected profile %+v", snap.Profile)
	}
	if !snap.Initialized {
		t.Fatal("login must mark the session initialized")
	}
	if env.c.Phase() != PhaseAuthenticated || !env.c.IsLoggedIn() {
		t.Fatalf("expected authenticated, got %s", env.c.Phase())
	}
	if got := env.stored(t, store.KeyToken); got != tok {
		t.Fatalf("token not persisted, got %q", got)
	}
	if got := env.stored(t, store.KeyRole); got != "admin" {
		t.Fatalf("resolved role not persisted, got %q", got)
	}
	if got := env.c.MetricsSnapshot().Counters[MetricLoginSuccess]; got != 1 {
		t.Fatalf("expected one login success, got %d", got)
	}
}

func TestLoginFallsBackToTokenClaims(t *testing.T) {
	env := newTestEnv(t)
	env.issue(t, "m", jwtlib.MapClaims{"sub": "merchant@shop", "authorities": []string{"ROLE_MERCHANT"}, "uid": "u-5"})

	res := env.c.Login(context.Background(), "m", "pw")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	snap := env.c.Snapshot()
	if snap.Username != "merchant@shop" || snap.Role != role.Merchant {
		t.Fatalf("unexpected fallback identity %+v", snap)
	}
	if snap.Profile == nil || snap.Profile.ID != "u-5" {
		t.Fatalf("unexpected fallback profile %+v", snap.Profile)
	}
	if got := env.c.MetricsSnapshot().Counters[MetricProfileFallback]; got != 1 {
		t.Fatalf("expected one fallback, got %d", got)
	}
}

func TestLoginProfileServerErrorKeepsSession(t *testing.T) {
	env := newTestEnv(t)
	env.issue(t, "u", jwtlib.MapClaims{"sub": "u", "role": "merchant"})
	env.fb.set(func(f *fakeBackend) { f.profileStatus = http.StatusInternalServerError })

	res := env.c.Login(context.Background(), "u", "pw")
	if !res.Success || res.Role != role.Merchant {
		t.Fatalf("a 500 profile must not fail login: %+v", res)
	}
	if !env.c.IsLoggedIn() {
		t.Fatal("session must survive a 500 profile")
	}
}

func TestLoginFailureLeavesSessionUntouched(t *testing.T) {
	env := newTestEnv(t)
	tok := env.issue(t, "alice", jwtlib.MapClaims{"sub": "alice", "role": "merchant"})
	if res := env.c.Login(context.Background(), "alice", "pw"); !res.Success {
		t.Fatalf("setup login failed: %+v", res)
	}
	before := env.c.Snapshot()

	env.fb.set(func(f *fakeBackend) {
		f.loginStatus = http.StatusUnauthorized
		f.loginBody = `{"message":"bad credentials"}`
	})
	res := env.c.Login(context.Background(), "mallory", "nope")

	if res.Success || res.Message != "bad credentials" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !errors.Is(res.Err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", res.Err)
	}
	after := env.c.Snapshot()
	if after.Token != before.Token || after.Username != before.Username || after.Role != before.Role {
		t.Fatalf("failed login changed the session: %+v", after)
	}
	if env.stored(t, store.KeyToken) != tok {
		t.Fatal("failed login changed the store")
	}
	if env.c.Phase() != PhaseAuthenticated {
		t.Fatalf("expected authenticated after failed re-login, got %s", env.c.Phase())
	}
}

func TestLoginWithoutTokenFails(t *testing.T) {
	env := newTestEnv(t)
	env.fb.set(func(f *fakeBackend) { f.loginBody = `{"code":1,"data":{}}` })

	res := env.c.Login(context.Background(), "u", "pw")
	if res.Success || !errors.Is(res.Err, ErrNoToken) || res.Message == "" {
		t.Fatalf("expected no-token failure, got %+v", res)
	}
	if env.c.Phase() != PhaseUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", env.c.Phase())
	}
	if env.c.Snapshot().HasToken() {
		t.Fatal("no token must be stored")
	}
}

func TestLoginTransportFailure(t *testing.T) {
	cfg := DefaultConfig()
	srv := httptest.NewServer(http.NotFoundHandler())
	cfg.Gateway.BaseURL = srv.URL
	srv.Close()

	c, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()

	res := c.Login(context.Background(), "u", "pw")
	if res.Success || !errors.Is(res.Err, ErrTransport) {
		t.Fatalf("expected transport failure, got %+v", res)
	}
}

func TestLoginProfileUnauthorizedLogsOut(t *testing.T) {
	env := newTestEnv(t)
	env.issue(t, "u", jwtlib.MapClaims{"sub": "u"})
	env.fb.set(func(f *fakeBackend) { f.profileStatus = http.StatusForbidden })

	var got []LogoutEvent
	env.c.OnLogout(func(_ context.Context, ev LogoutEvent) { got = append(got, ev) })

	res := env.c.Login(context.Background(), "u", "pw")
	if res.Success || !errors.Is(res.Err, ErrUnauthorized) {
		t.Fatalf("expected rejected login, got %+v", res)
	}
	if env.c.Snapshot().HasToken() || env.stored(t, store.KeyToken) != "" {
		t.Fatal("rejected session must be cleared")
	}
	if len(got) != 1 || got[0].Reason != LogoutUnauthorized {
		t.Fatalf("expected one unauthorized logout event, got %+v", got)
	}
}

// Two overlapping logins: the one that resolves last owns the session.
func TestConcurrentLoginsLastWriterWins(t *testing.T) {
	env := newTestEnv(t)
	slowTok := env.issue(t, "slow", jwtlib.MapClaims{"sub": "slow", "role": "admin"})
	env.issue(t, "fast", jwtlib.MapClaims{"sub": "fast", "role": "merchant"})
	gate := make(chan struct{})
	env.fb.set(func(f *fakeBackend) { f.loginGates["slow"] = gate })

	done := make(chan LoginResult, 1)
	go func() { done <- env.c.Login(context.Background(), "slow", "pw") }()

	for env.c.Phase() != PhaseAuthenticating {
		time.Sleep(time.Millisecond)
	}
	if res := env.c.Login(context.Background(), "fast", "pw"); !res.Success {
		t.Fatalf("fast login failed: %+v", res)
	}
	close(gate)
	if res := <-done; !res.Success {
		t.Fatalf("slow login failed: %+v", res)
	}

	snap := env.c.Snapshot()
	if snap.Token != slowTok || snap.Username != "slow" || snap.Role != role.Admin {
		t.Fatalf("expected the later login to win, got %+v", snap)
	}
	if env.stored(t, store.KeyToken) != slowTok {
		t.Fatal("store must hold the later token")
	}
}

func TestLogoutResetsAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	env.issue(t, "u", jwtlib.MapClaims{"sub": "u", "role": "merchant"})
	env.c.Login(context.Background(), "u", "pw")
	env.c.SetLocation(52.5, 13.4)

	var first, second []LogoutEvent
	env.c.OnLogout(func(_ context.Context, ev LogoutEvent) { first = append(first, ev) })
	unsubscribe := env.c.OnLogout(func(_ context.Context, ev LogoutEvent) { second = append(second, ev) })
	env.c.OnLogout(func(context.Context, LogoutEvent) { panic("subscriber bug") })

	env.c.Logout(context.Background())

	snap := env.c.Snapshot()
	if snap.Token != "" || snap.Username != "" || snap.Profile != nil || snap.Role != role.Customer {
		t.Fatalf("logout left session data: %+v", snap)
	}
	if snap.Location == nil || snap.Location.Latitude != 52.5 {
		t.Fatal("logout must keep the location")
	}
	for _, key := range store.Keys() {
		if env.stored(t, key) != "" {
			t.Fatalf("store key %s not cleared", key)
		}
	}
	if len(first) != 1 || first[0].Reason != LogoutUser || first[0].Username != "u" || first[0].Role != role.Merchant {
		t.Fatalf("unexpected logout event %+v", first)
	}
	if !first[0].At.Equal(testNow) {
		t.Fatalf("unexpected event time %v", first[0].At)
	}
	if env.c.Phase() != PhaseUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", env.c.Phase())
	}

	unsubscribe()
	env.c.Logout(context.Background())
	if len(first) != 2 || len(second) != 1 {
		t.Fatalf("unsubscribe failed: first=%d second=%d", len(first), len(second))
	}
}

func TestCheckTokenValidity(t *testing.T) {
	env := newTestEnv(t)
	if !env.c.CheckTokenValidity(context.Background()) {
		t.Fatal("no token must count as valid")
	}

	env.issue(t, "u", jwtlib.MapClaims{"sub": "u", "exp": testNow.Add(-time.Second).Unix()})
	// The gateway hands out an already expired token; login still succeeds
	// and the next check logs out.
	env.c.Login(context.Background(), "u", "pw")

	var reasons []LogoutReason
	env.c.OnLogout(func(_ context.Context, ev LogoutEvent) { reasons = append(reasons, ev.Reason) })

	if env.c.CheckTokenValidity(context.Background()) {
		t.Fatal("expired token must be invalid")
	}
	if env.c.Snapshot().HasToken() || env.stored(t, store.KeyToken) != "" {
		t.Fatal("expired session must be cleared")
	}
	if len(reasons) != 1 || reasons[0] != LogoutExpired {
		t.Fatalf("expected expired logout, got %v", reasons)
	}
	if got := env.c.MetricsSnapshot().Counters[MetricLogoutExpired]; got != 1 {
		t.Fatalf("expected one expired logout, got %d", got)
	}
}

func TestObserveResponseRenewsTokenOnly(t *testing.T) {
	env := newTestEnv(t)
	if env.c.ObserveResponse(http.Header{"X-New-Token": {"ghost"}}) {
		t.Fatal("renewal without a session must be ignored")
	}
	if env.c.Snapshot().HasToken() || env.stored(t, store.KeyToken) != "" {
		t.Fatal("ignored renewal must not create a session")
	}

	env.issue(t, "u", jwtlib.MapClaims{"sub": "u", "role": "merchant"})
	env.fb.set(func(f *fakeBackend) {
		f.profileBody = `{"data":{"id":1,"username":"u","role":"merchant","nickname":"nick"}}`
	})
	env.c.Login(context.Background(), "u", "pw")
	before := env.c.Snapshot()
	calls := env.fb.profileCalls.Load()

	if !env.c.ObserveResponse(http.Header{"X-New-Token": {"Bearer renewed"}}) {
		t.Fatal("renewal with a session must apply")
	}
	after := env.c.Snapshot()
	if after.Token != "renewed" || env.stored(t, store.KeyToken) != "renewed" {
		t.Fatalf("token not renewed: state=%q", after.Token)
	}
	if after.Username != before.Username || after.Role != before.Role || after.Profile.Nickname != "nick" {
		t.Fatalf("renewal changed other fields: %+v", after)
	}
	if env.fb.profileCalls.Load() != calls {
		t.Fatal("renewal must not refetch the profile")
	}
	if env.c.ObserveResponse(http.Header{}) {
		t.Fatal("response without the header must be ignored")
	}
}

func TestHTTPClientAttachesBearerAndAppliesRenewal(t *testing.T) {
	env := newTestEnv(t)
	tok := env.issue(t, "u", jwtlib.MapClaims{"sub": "u"})
	env.c.Login(context.Background(), "u", "pw")
	env.fb.set(func(f *fakeBackend) { f.renewTo = "next-token" })

	base := env.c.Config().Gateway.BaseURL
	resp, err := env.c.HTTPClient().Get(base + "/orders")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	env.fb.mu.Lock()
	auth := env.fb.lastAuth
	env.fb.mu.Unlock()
	if auth != "Bearer "+tok {
		t.Fatalf("unexpected Authorization %q", auth)
	}
	if env.c.Snapshot().Token != "next-token" {
		t.Fatal("renewed token not applied")
	}
	if env.c.HTTPClient() != env.c.HTTPClient() {
		t.Fatal("HTTPClient must be reused")
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	res := env.c.Register(context.Background(), "shop", "pw", role.Role("ROLE_MERCHANT"))
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	res = env.c.Register(context.Background(), "taken", "pw", role.Customer)
	if res.Success || res.Message != "username taken" || !errors.Is(res.Err, ErrRejected) {
		t.Fatalf("expected rejection, got %+v", res)
	}

	env.fb.mu.Lock()
	defer env.fb.mu.Unlock()
	if len(env.fb.registered) != 2 || env.fb.registered[0]["role"] != "MERCHANT" {
		t.Fatalf("unexpected registrations %+v", env.fb.registered)
	}
	if env.c.Snapshot().HasToken() {
		t.Fatal("register must not log in")
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	nick := "neo"

	res := env.c.UpdateProfile(context.Background(), session.ProfileUpdate{Nickname: &nick})
	if res.Success || !errors.Is(res.Err, ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %+v", res)
	}

	env.issue(t, "u", jwtlib.MapClaims{"sub": "u"})
	env.c.Login(context.Background(), "u", "pw")

	res = env.c.UpdateProfile(context.Background(), session.ProfileUpdate{Nickname: &nick})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if got := env.c.Snapshot().Profile.Nickname; got != "neo" {
		t.Fatalf("profile not merged, nickname %q", got)
	}

	env.fb.set(func(f *fakeBackend) { f.updateStatus = http.StatusUnauthorized })
	other := "trinity"
	res = env.c.UpdateProfile(context.Background(), session.ProfileUpdate{Nickname: &other})
	if res.Success || res.Message == "" {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !env.c.IsLoggedIn() {
		t.Fatal("a 401 on profile update must not log out")
	}
	if got := env.c.Snapshot().Profile.Nickname; got != "neo" {
		t.Fatalf("failed update changed the profile: %q", got)
	}
}

func TestRefreshProfileUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.issue(t, "u", jwtlib.MapClaims{"sub": "u", "role": "merchant"})
	env.c.Login(context.Background(), "u", "pw")
	env.fb.set(func(f *fakeBackend) { f.profileStatus = http.StatusBadGateway })

	res := env.c.RefreshProfile(context.Background())
	if res.Success || !errors.Is(res.Err, ErrProfileUnavailable) || !errors.Is(res.Err, ErrTransport) {
		t.Fatalf("expected profile unavailable, got %+v", res)
	}
	if env.c.Snapshot().Role != role.Merchant {
		t.Fatal("fallback identity must stay applied")
	}
}

func TestAuditEvents(t *testing.T) {
	sink := NewChannelSink(16)
	fb := newFakeBackend()
	srv := httptest.NewServer(fb)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Gateway.BaseURL = srv.URL + "/api"
	cfg.Audit.Enabled = true
	c, err := New().WithConfig(cfg).WithAuditSink(sink).WithClock(func() time.Time { return testNow }).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	fb.tokens["u"] = mintToken(t, jwtlib.MapClaims{"sub": "u", "role": "merchant"})
	c.Login(context.Background(), "u", "pw")
	c.Logout(context.Background())
	c.Close()

	var types []string
	for len(sink.Events()) > 0 {
		ev := <-sink.Events()
		types = append(types, ev.Type)
		if ev.Type == AuditEventLoginSuccess && (ev.Username != "u" || ev.Role != "merchant" || !ev.Timestamp.Equal(testNow)) {
			t.Fatalf("unexpected login event %+v", ev)
		}
	}
	if len(types) != 2 || types[0] != AuditEventLoginSuccess || types[1] != AuditEventLogout {
		t.Fatalf("unexpected audit events %v", types)
	}
	if c.AuditDropped() != 0 {
		t.Fatalf("unexpected drops %d", c.AuditDropped())
	}
}

func TestGuardOverController(t *testing.T) {
	env := newTestEnv(t)
	g := env.c.NewGuard()
	adminOnly := guard.RouteMeta{RequiresAuth: true, RequiresRole: guard.Roles{"admin"}}

	d := g.Check(context.Background(), adminOnly)
	if d.Allowed || d.Reason != guard.ReasonNotAuthenticated || d.Redirect != "/" {
		t.Fatalf("guest must be denied as not authenticated, got %+v", d)
	}
	if !env.c.Snapshot().Initialized {
		t.Fatal("guard must initialize the session first")
	}

	env.issue(t, "m", jwtlib.MapClaims{"sub": "m", "role": "merchant"})
	env.c.Login(context.Background(), "m", "pw")

	if d := g.Check(context.Background(), adminOnly); d.Reason != guard.ReasonRoleForbidden {
		t.Fatalf("merchant on admin route must be forbidden, got %+v", d)
	}
	if d := g.Check(context.Background(), guard.RouteMeta{RequiresRole: guard.Roles{"merchant"}}); !d.Allowed {
		t.Fatalf("merchant route must allow, got %+v", d)
	}

	counters := env.c.MetricsSnapshot().Counters
	if counters[MetricGuardAllowed] != 1 || counters[MetricGuardDenied] != 2 {
		t.Fatalf("unexpected guard counters %+v", counters)
	}
}

func TestNilControllerIsInert(t *testing.T) {
	var c *Controller
	if err := c.Initialize(context.Background()); !errors.Is(err, ErrControllerNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
	if res := c.Login(context.Background(), "u", "p"); res.Success || !errors.Is(res.Err, ErrControllerNotReady) {
		t.Fatalf("unexpected login result %+v", res)
	}
	if c.IsLoggedIn() || c.CheckTokenValidity(context.Background()) {
		t.Fatal("nil controller has no session")
	}
	c.Logout(context.Background())
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestLoginAppliesRenewalFromProfileResponse(t *testing.T) {
	env := newTestEnv(t)
	env.issue(t, "u", jwtlib.MapClaims{"sub": "u"})
	env.fb.set(func(f *fakeBackend) {
		f.renewTo = "renewed-token"
		f.profileBody = `{"data":{"id":1,"username":"u","role":"merchant"}}`
	})

	res := env.c.Login(context.Background(), "u", "pw")
	if res.Err != nil {
		t.Fatalf("login: %v", res.Err)
	}
	snap := env.c.Snapshot()
	if snap.Token != "renewed-token" || env.stored(t, store.KeyToken) != "renewed-token" {
		t.Fatalf("renewal on the profile response lost: state=%q", snap.Token)
	}
	if snap.Role != role.Merchant || snap.Profile == nil {
		t.Fatalf("identity not applied: %+v", snap)
	}
}
