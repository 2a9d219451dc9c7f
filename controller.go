package goSession

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/gateway"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/events"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/role"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/store"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	msgLoginFailed     = "Login failed. Please check credentials."
	msgSessionRejected = "Your session was rejected. Please log in again."
	msgRegisterFailed  = "Registration failed. Please try again."
	msgUpdateFailed    = "Update failed. Please try again."
	msgNotLoggedIn     = "Please log in first."
	msgSessionExpired  = "Your session has expired. Please log in again."
	msgProfileFallback = "Profile unavailable; showing token details."
	msgNotReady        = "Session is not available."
)

// Controller owns the session of one client process. All methods are safe
// for concurrent use. Build it with [New].
type Controller struct {
	cfg        Config
	state      *session.State
	store      *store.Store
	gateway    *gateway.Client
	baseClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	phase     atomic.Uint32
	initGroup singleflight.Group
	logouts   events.Bus[LogoutEvent]

	// mu orders every paired store and session write: login, hydration,
	// renewal and logout.
	mu sync.Mutex

	audit   *internalaudit.Dispatcher
	metrics *Metrics

	clientOnce sync.Once
	client     *http.Client
	closeOnce  sync.Once
	closeErr   error
}

func (c *Controller) deps() flows.Deps {
	return flows.Deps{
		State:           c.state,
		Store:           c.store,
		Profiles:        c.gateway,
		Auth:            c.gateway,
		Logger:          c.logger,
		Now:             c.now,
		Mu:              &c.mu,
		FetchProfile:    c.cfg.Session.FetchProfile,
		PersistIdentity: c.cfg.Session.PersistIdentity,
	}
}

// Config returns the configuration the controller was built with.
func (c *Controller) Config() Config {
	return cloneConfig(c.cfg)
}

// Initialize restores the persisted session once per process. Concurrent
// callers share one attempt; each waits on its own ctx, and cancelling it
// does not cancel the shared attempt. Only context errors are returned.
func (c *Controller) Initialize(ctx context.Context) error {
	if c == nil {
		return ErrControllerNotReady
	}
	if c.state.Initialized() {
		return nil
	}

	attempt := context.WithoutCancel(ctx)
	ch := c.initGroup.DoChan("initialize", func() (any, error) {
		c.initialize(attempt)
		return nil, nil
	})

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) initialize(ctx context.Context) {
	if c.state.Initialized() {
		return
	}
	defer c.state.MarkInitialized()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("initialize panicked", zap.Any("panic", r))
		}
	}()

	out := flows.RunInitialize(ctx, c.deps())
	switch {
	case out.Expired:
		c.logoutIfCurrent(ctx, "", LogoutExpired)
	case out.Restored && out.Hydrate.Unauthorized:
		c.logoutIfCurrent(ctx, out.Token, LogoutUnauthorized)
	case out.Restored:
		c.metricInc(MetricSessionRestored)
		c.recordHydrate(out.Hydrate)
		c.setPhase(PhaseAuthenticated)
	}

	snap := c.state.Snapshot()
	c.emitAudit(ctx, AuditEvent{
		Type:     AuditEventInitialize,
		Username: snap.Username,
		Role:     string(snap.Role),
		Success:  out.Restored && !out.Hydrate.Unauthorized,
		Metadata: map[string]string{"source": out.Hydrate.Source.String()},
	})
}

// Login authenticates against the gateway. It never panics; on failure the
// session is left as it was and Message explains the problem.
func (c *Controller) Login(ctx context.Context, username, password string) (res LoginResult) {
	if c == nil {
		return LoginResult{Result: Result{Message: msgNotReady, Err: ErrControllerNotReady}}
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("login panicked", zap.Any("panic", r))
			c.settlePhase()
			res = LoginResult{Result: Result{Message: msgLoginFailed, Err: fmt.Errorf("%w: %v", ErrInternal, r)}}
		}
	}()

	c.setPhase(PhaseAuthenticating)
	out := flows.RunLogin(ctx, username, password, c.deps())
	c.metrics.Observe(MetricLoginLatency, time.Since(start))

	if out.Err != nil {
		c.settlePhase()
		c.metricInc(MetricLoginFailure)
		c.logger.Info("login failed", zap.String("username", username), zap.Error(out.Err))
		c.emitAudit(ctx, AuditEvent{
			Type:     AuditEventLoginFailure,
			Username: username,
			Error:    auditError(out.Err),
		})
		return LoginResult{Result: Result{Message: gateway.MessageOf(out.Err, msgLoginFailed), Err: out.Err}}
	}

	if out.Hydrate.Unauthorized {
		c.metricInc(MetricLoginFailure)
		c.logoutIfCurrent(ctx, out.Token, LogoutUnauthorized)
		c.emitAudit(ctx, AuditEvent{
			Type:     AuditEventLoginFailure,
			Username: out.Username,
			Reason:   string(LogoutUnauthorized),
			Error:    auditError(out.Hydrate.ProfileErr),
		})
		return LoginResult{Result: Result{Message: msgSessionRejected, Err: out.Hydrate.ProfileErr}}
	}

	c.state.MarkInitialized()
	c.setPhase(PhaseAuthenticated)
	c.metricInc(MetricLoginSuccess)
	c.recordHydrate(out.Hydrate)

	snap := c.state.Snapshot()
	c.emitAudit(ctx, AuditEvent{
		Type:     AuditEventLoginSuccess,
		Username: snap.Username,
		Role:     string(snap.Role),
		Success:  true,
		Metadata: map[string]string{"source": out.Hydrate.Source.String()},
	})
	return LoginResult{
		Result:   Result{Success: true},
		Username: snap.Username,
		Role:     snap.Role,
	}
}

// Logout clears the credential store, resets the session and notifies every
// OnLogout subscriber before returning.
func (c *Controller) Logout(ctx context.Context) {
	if c == nil {
		return
	}
	c.logout(ctx, LogoutUser)
}

// logoutIfCurrent logs out only while token is still the session token, so
// a late failure cannot end a newer session. An empty token matches a
// session that holds none.
func (c *Controller) logoutIfCurrent(ctx context.Context, token string, reason LogoutReason) bool {
	c.mu.Lock()
	if c.state.Token() != token {
		c.mu.Unlock()
		return false
	}
	prev, transient := c.clearLocked(ctx, reason)
	c.mu.Unlock()

	c.finishLogout(ctx, prev, reason, transient)
	return true
}

func (c *Controller) logout(ctx context.Context, reason LogoutReason) {
	c.mu.Lock()
	prev, transient := c.clearLocked(ctx, reason)
	c.mu.Unlock()

	c.finishLogout(ctx, prev, reason, transient)
}

func (c *Controller) clearLocked(ctx context.Context, reason LogoutReason) (session.Snapshot, Phase) {
	transient := PhaseLoggedOut
	if reason == LogoutExpired {
		transient = PhaseExpired
	}
	c.setPhase(transient)
	return flows.RunLogout(ctx, c.deps()), transient
}

func (c *Controller) finishLogout(ctx context.Context, prev session.Snapshot, reason LogoutReason, transient Phase) {
	switch reason {
	case LogoutExpired:
		c.metricInc(MetricLogoutExpired)
		c.logger.Warn("session expired, logged out", zap.String("username", prev.Username))
	case LogoutUnauthorized:
		c.metricInc(MetricLogoutUnauthorized)
		c.logger.Warn("session rejected by backend, logged out", zap.String("username", prev.Username))
	default:
		c.metricInc(MetricLogout)
		c.logger.Debug("logged out", zap.String("username", prev.Username))
	}

	event := LogoutEvent{
		Reason:   reason,
		Username: prev.Username,
		Role:     prev.Role,
		At:       c.now(),
	}
	for _, err := range c.logouts.Publish(ctx, event) {
		c.logger.Error("logout subscriber failed", zap.Error(err))
	}

	if c.phase.CompareAndSwap(uint32(transient), uint32(PhaseUnauthenticated)) {
		c.logger.Debug("phase transition",
			zap.Stringer("from", transient),
			zap.Stringer("to", PhaseUnauthenticated),
		)
	}

	c.emitAudit(ctx, AuditEvent{
		Type:     AuditEventLogout,
		Username: prev.Username,
		Role:     string(prev.Role),
		Reason:   string(reason),
		Success:  true,
	})
}

// OnLogout registers fn to run synchronously on every logout, after the
// session was reset. The returned function unsubscribes.
func (c *Controller) OnLogout(fn func(ctx context.Context, event LogoutEvent)) (unsubscribe func()) {
	if c == nil {
		return func() {}
	}
	return c.logouts.Subscribe(fn)
}

// ObserveResponse applies a renewed token carried in h. Only the token
// changes, in state and store; the profile is not refetched. It reports
// whether a renewal was applied, which requires an existing session.
func (c *Controller) ObserveResponse(h http.Header) bool {
	if c == nil {
		return false
	}
	token := gateway.RenewedToken(h, c.cfg.Gateway.RenewedTokenHeader)
	if token == "" {
		return false
	}

	c.mu.Lock()
	applied := c.state.ReplaceToken(token)
	if applied {
		c.store.Set(context.Background(), store.KeyToken, token)
	}
	c.mu.Unlock()

	if !applied {
		c.logger.Debug("renewed token ignored without a session")
		return false
	}
	c.metricInc(MetricTokenRenewed)
	snap := c.state.Snapshot()
	c.emitAudit(context.Background(), AuditEvent{
		Type:     AuditEventTokenRenewed,
		Username: snap.Username,
		Role:     string(snap.Role),
		Success:  true,
	})
	return true
}

// CheckTokenValidity reports false only when a token is present and expired,
// in which case the session is logged out with reason expired first.
func (c *Controller) CheckTokenValidity(ctx context.Context) bool {
	if c == nil {
		return false
	}
	token := c.state.Token()
	if token == "" || !jwt.IsExpired(token, c.now()) {
		return true
	}
	c.logoutIfCurrent(ctx, token, LogoutExpired)
	return false
}

// Register creates an account. It does not log in.
func (c *Controller) Register(ctx context.Context, username, password string, r role.Role) Result {
	if c == nil {
		return Result{Message: msgNotReady, Err: ErrControllerNotReady}
	}
	r = role.Normalize(string(r))

	if err := c.gateway.Register(ctx, username, password, r); err != nil {
		c.metricInc(MetricRegisterFailure)
		c.emitAudit(ctx, AuditEvent{
			Type:     AuditEventRegisterFailure,
			Username: username,
			Role:     string(r),
			Error:    auditError(err),
		})
		return Result{Message: gateway.MessageOf(err, msgRegisterFailed), Err: err}
	}

	c.metricInc(MetricRegisterSuccess)
	c.emitAudit(ctx, AuditEvent{
		Type:     AuditEventRegisterSuccess,
		Username: username,
		Role:     string(r),
		Success:  true,
	})
	return Result{Success: true}
}

// UpdateProfile sends u to the backend and merges it into the local profile
// on success. A 401 here does not end the session.
func (c *Controller) UpdateProfile(ctx context.Context, u session.ProfileUpdate) Result {
	if c == nil {
		return Result{Message: msgNotReady, Err: ErrControllerNotReady}
	}
	token, res, ok := c.requireSession(ctx)
	if !ok {
		return res
	}
	if u.Empty() {
		return Result{Success: true}
	}

	if err := c.gateway.UpdateProfile(ctx, token, u); err != nil {
		c.metricInc(MetricProfileUpdateFailure)
		c.emitAudit(ctx, AuditEvent{
			Type:  AuditEventProfileUpdateFail,
			Error: auditError(err),
		})
		return Result{Message: gateway.MessageOf(err, msgUpdateFailed), Err: err}
	}

	c.state.UpdateProfile(u)
	c.metricInc(MetricProfileUpdateSuccess)
	snap := c.state.Snapshot()
	c.emitAudit(ctx, AuditEvent{
		Type:     AuditEventProfileUpdated,
		Username: snap.Username,
		Role:     string(snap.Role),
		Success:  true,
	})
	return Result{Success: true}
}

// RefreshProfile refetches the server profile for the current session. When
// the profile is unavailable the token fallback is applied and the Result
// carries ErrProfileUnavailable.
func (c *Controller) RefreshProfile(ctx context.Context) Result {
	if c == nil {
		return Result{Message: msgNotReady, Err: ErrControllerNotReady}
	}
	token, res, ok := c.requireSession(ctx)
	if !ok {
		return res
	}

	snap := c.state.Snapshot()
	out := flows.RunHydrate(ctx, token, snap.Username, string(snap.Role), c.deps())
	if out.Unauthorized {
		c.logoutIfCurrent(ctx, token, LogoutUnauthorized)
		return Result{Message: msgSessionRejected, Err: out.ProfileErr}
	}
	c.recordHydrate(out)
	if out.ProfileErr != nil {
		return Result{Message: msgProfileFallback, Err: fmt.Errorf("%w: %w", ErrProfileUnavailable, out.ProfileErr)}
	}
	return Result{Success: true}
}

func (c *Controller) requireSession(ctx context.Context) (string, Result, bool) {
	token := c.state.Token()
	if token == "" {
		return "", Result{Message: msgNotLoggedIn, Err: ErrNotAuthenticated}, false
	}
	if !c.CheckTokenValidity(ctx) {
		return "", Result{Message: msgSessionExpired, Err: ErrExpiredSession}, false
	}
	return token, Result{}, true
}

// SetLocation records the device location. It is independent of the auth
// state and survives logout.
func (c *Controller) SetLocation(latitude, longitude float64) {
	if c == nil {
		return
	}
	c.state.SetLocation(&session.Location{Latitude: latitude, Longitude: longitude})
}

// Snapshot returns a consistent copy of the session.
func (c *Controller) Snapshot() session.Snapshot {
	if c == nil {
		return session.NewState().Snapshot()
	}
	return c.state.Snapshot()
}

// IsLoggedIn reports whether an unexpired token is present.
func (c *Controller) IsLoggedIn() bool {
	if c == nil {
		return false
	}
	return c.state.Snapshot().IsLoggedIn(c.now())
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	if c == nil {
		return PhaseUnauthenticated
	}
	return Phase(c.phase.Load())
}

// HTTPClient returns a client for application API calls. It attaches the
// session token as a bearer credential and applies renewed tokens found on
// responses.
func (c *Controller) HTTPClient() *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	c.clientOnce.Do(func() {
		var base http.RoundTripper
		timeout := c.cfg.Gateway.Timeout
		if c.baseClient != nil {
			base = c.baseClient.Transport
			timeout = c.baseClient.Timeout
		}
		c.client = &http.Client{
			Timeout: timeout,
			Transport: &gateway.Transport{
				Base:          base,
				Source:        gateway.TokenSourceFunc(c.state.Token),
				RenewedHeader: c.cfg.Gateway.RenewedTokenHeader,
				Observe:       func(h http.Header) { c.ObserveResponse(h) },
			},
		}
	})
	return c.client
}

// MetricsSnapshot returns a copy of the session counters.
func (c *Controller) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// AuditDropped counts lifecycle events lost to a full buffer.
func (c *Controller) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// Close drains the audit dispatcher and closes the credential backend. It is
// idempotent.
func (c *Controller) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.audit.Close()
		c.closeErr = c.store.Close()
	})
	return c.closeErr
}

func (c *Controller) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Controller) recordHydrate(out flows.HydrateOutcome) {
	if out.Applied && out.Source != flows.SourceProfile {
		c.metricInc(MetricProfileFallback)
	}
}

func (c *Controller) setPhase(p Phase) {
	prev := Phase(c.phase.Swap(uint32(p)))
	if prev != p {
		c.logger.Debug("phase transition",
			zap.Stringer("from", prev),
			zap.Stringer("to", p),
		)
	}
}

// settlePhase picks the resting phase after an attempt that did not change
// the session.
func (c *Controller) settlePhase() {
	if c.state.Snapshot().IsLoggedIn(c.now()) {
		c.setPhase(PhaseAuthenticated)
		return
	}
	c.setPhase(PhaseUnauthenticated)
}
