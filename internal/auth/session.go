package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/metrics"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	pkglogger "github.com/OJT-CyberCrime/ciphers-sub000/pkg/logger"
	"golang.org/x/time/rate"
)

// SessionConfig holds the login policy of a client session
type SessionConfig struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	ResetTokenTTL     time.Duration
	CallTimeout       time.Duration
	SessionTTL        time.Duration
	CountdownInterval time.Duration

	// CodeRate and CodeBurst throttle one-time code guesses.
	// A burst of 0 disables the throttle.
	CodeRate  rate.Limit
	CodeBurst int

	// ResetLinkBase is the page that consumes a reset token
	ResetLinkBase string
}

// DefaultSessionConfig returns the portal's login policy
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxFailedAttempts: 3,
		LockoutDuration:   15 * time.Minute,
		ResetTokenTTL:     2 * time.Hour,
		CallTimeout:       10 * time.Second,
		SessionTTL:        8 * time.Hour,
		CountdownInterval: time.Second,
		CodeRate:          rate.Every(12 * time.Second),
		CodeBurst:         5,
		ResetLinkBase:     "http://localhost:3000/two-factor/reset",
	}
}

// SessionDeps are the collaborators shared by every client session
type SessionDeps struct {
	Verifier  CredentialVerifier
	Directory UserDirectory
	Sessions  SessionStore
	Lockouts  LockoutStore
	TOTP      *TOTPManager
	Logger    *slog.Logger
	Audit     *pkglogger.AuditLogger
	Metrics   *metrics.Metrics

	// Clock defaults to time.Now
	Clock func() time.Time
	// OnTick, if set, receives the remaining lockout after every countdown tick
	OnTick func(sid string, remaining time.Duration)
}

type pendingLogin struct {
	profile models.UserProfile
	token   string
	secret  string // plaintext base32
	sealed  string // only set for a new enrollment
}

type resetGrant struct {
	userID  string
	expires time.Time
}

// Session is the login state machine of one client
type Session struct {
	id   string
	cfg  SessionConfig
	deps SessionDeps
	now  func() time.Time
	log  *slog.Logger

	op sync.Mutex // serialises operations; never held by the countdown

	mu       sync.Mutex
	state    models.SessionState
	attempts models.LoginAttemptState
	pending  *pendingLogin
	grant    *resetGrant
	limiter  *rate.Limiter
	lastSeen time.Time
	stopTick context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates an idle session for the client identified by sid
func NewSession(sid string, cfg SessionConfig, deps SessionDeps) *Session {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       sid,
		cfg:      cfg,
		deps:     deps,
		now:      clock,
		log:      logger.With("session_id", sid),
		state:    models.StateIdle,
		lastSeen: clock(),
		ctx:      ctx,
		cancel:   cancel,
	}
	if cfg.CodeBurst > 0 {
		s.limiter = rate.NewLimiter(cfg.CodeRate, cfg.CodeBurst)
	}
	return s
}

// ID returns the client session id
func (s *Session) ID() string { return s.id }

// State returns the current state
func (s *Session) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastSeen returns the time of the last operation on the session
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Restore reloads a lockout persisted by an earlier page load
func (s *Session) Restore(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	until, err := s.deps.Lockouts.GetLockout(callCtx, s.id)
	if err != nil {
		return fmt.Errorf("failed to load lockout: %w", err)
	}
	if until == nil {
		return nil
	}

	if !s.now().Before(*until) {
		return s.deps.Lockouts.ClearLockout(callCtx, s.id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	lockedUntil := *until
	s.attempts = models.LoginAttemptState{
		FailedAttempts: s.cfg.MaxFailedAttempts,
		LockoutUntil:   &lockedUntil,
	}
	s.state = models.StateLocked
	s.startCountdownLocked()
	return nil
}

// SubmitCredentials runs the password step of a login
func (s *Session) SubmitCredentials(ctx context.Context, email, password string, captcha models.CaptchaProof) (*models.Outcome, error) {
	s.op.Lock()
	defer s.op.Unlock()

	now := s.now()
	s.touch(now)

	if !captcha.Valid(now) {
		return nil, models.ErrMissingCaptcha
	}

	s.mu.Lock()
	if s.state == models.StateAuthenticated {
		s.mu.Unlock()
		return nil, models.ErrInvalidState
	}
	expired := s.expireLocked(now)
	if s.attempts.IsLocked(now) {
		remaining := s.attempts.RemainingSeconds(now)
		s.mu.Unlock()
		s.deps.Metrics.ObserveLogin(string(models.OutcomeLocked))
		return nil, &models.LockedError{RemainingSeconds: remaining}
	}
	s.pending = nil
	s.grant = nil
	s.state = models.StateIdle
	s.mu.Unlock()

	if expired != nil {
		s.afterExpiry(ctx, *expired)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	token, err := s.deps.Verifier.Verify(callCtx, email, password, captcha.Token)
	cancel()
	if err != nil {
		return nil, s.verifyFailed(ctx, email, err)
	}

	callCtx, cancel = context.WithTimeout(ctx, s.cfg.CallTimeout)
	user, err := s.deps.Directory.FindByEmail(callCtx, email)
	cancel()
	if err != nil {
		return nil, s.serviceError("find user", err)
	}

	profile := user.Profile()
	if !user.TwoFactorEnabled {
		enrollment, err := s.deps.TOTP.NewEnrollment(user.Email)
		if err != nil {
			return nil, s.serviceError("create enrollment", err)
		}

		s.mu.Lock()
		s.pending = &pendingLogin{
			profile: profile,
			token:   token,
			secret:  enrollment.Secret,
			sealed:  enrollment.Sealed,
		}
		s.state = models.StateSetupRequired
		s.mu.Unlock()

		s.deps.Metrics.ObserveLogin(string(models.OutcomeNeedsSetup))
		return &models.Outcome{
			Kind: models.OutcomeNeedsSetup,
			User: &profile,
			Setup: &models.TwoFactorSetup{
				Secret:     enrollment.Secret,
				OTPAuthURL: enrollment.URL,
				QRCode:     enrollment.QRCode,
			},
		}, nil
	}

	if user.TwoFactorSecret == nil {
		return nil, s.serviceError("open secret", errors.New("two-factor enabled without a secret"))
	}
	secret, err := s.deps.TOTP.Open(*user.TwoFactorSecret)
	if err != nil {
		return nil, s.serviceError("open secret", err)
	}

	s.mu.Lock()
	s.pending = &pendingLogin{profile: profile, token: token, secret: secret}
	s.state = models.StateVerifyRequired
	s.mu.Unlock()

	s.deps.Metrics.ObserveLogin(string(models.OutcomeNeedsVerification))
	return &models.Outcome{
		Kind:   models.OutcomeNeedsVerification,
		User:   &profile,
		Secret: secret,
	}, nil
}

func (s *Session) verifyFailed(ctx context.Context, email string, err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		return s.recordFailure(ctx, email)
	case errors.Is(err, models.ErrCaptchaRejected), errors.Is(err, models.ErrMissingCaptcha):
		return models.ErrMissingCaptcha
	case errors.Is(err, models.ErrRateLimitExceeded):
		return err
	default:
		return s.serviceError("verify credentials", err)
	}
}

func (s *Session) recordFailure(ctx context.Context, email string) error {
	now := s.now()

	s.mu.Lock()
	s.attempts.FailedAttempts++
	failed := s.attempts.FailedAttempts
	if failed < s.cfg.MaxFailedAttempts {
		s.mu.Unlock()

		s.deps.Metrics.ObserveLogin(string(models.OutcomeRejected))
		s.deps.Audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_rejected",
			SessionID:     s.id,
			Email:         email,
			FailureReason: models.FailureReasonInvalidCredentials,
		})
		return &models.RejectedError{AttemptsRemaining: s.cfg.MaxFailedAttempts - failed}
	}

	until := now.Add(s.cfg.LockoutDuration)
	s.attempts.LockoutUntil = &until
	s.state = models.StateLocked
	s.pending = nil
	s.startCountdownLocked()
	remaining := s.attempts.RemainingSeconds(now)
	s.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	if err := s.deps.Lockouts.SetLockout(callCtx, s.id, until); err != nil {
		s.log.Warn("failed to persist lockout", "error", err)
	}

	s.deps.Metrics.Lockout()
	s.deps.Metrics.ObserveLogin(string(models.OutcomeLocked))
	s.deps.Audit.LogLockout(s.id, until, true)
	return &models.LockedError{RemainingSeconds: remaining}
}

// CompleteTwoFactorSetup confirms a new enrollment with its first code
func (s *Session) CompleteTwoFactorSetup(ctx context.Context, userRef, code string) (*models.Outcome, error) {
	return s.completeTwoFactor(ctx, models.StateSetupRequired, userRef, code)
}

// CompleteTwoFactorVerify checks a code against the enrolled secret
func (s *Session) CompleteTwoFactorVerify(ctx context.Context, userRef, code string) (*models.Outcome, error) {
	return s.completeTwoFactor(ctx, models.StateVerifyRequired, userRef, code)
}

func (s *Session) completeTwoFactor(ctx context.Context, want models.SessionState, userRef, code string) (*models.Outcome, error) {
	s.op.Lock()
	defer s.op.Unlock()

	now := s.now()
	s.touch(now)

	step := "verify"
	if want == models.StateSetupRequired {
		step = "setup"
	}

	s.mu.Lock()
	p := s.pending
	if s.state != want || p == nil || p.profile.ID != userRef {
		s.mu.Unlock()
		return nil, models.ErrInvalidState
	}
	if s.limiter != nil && !s.limiter.AllowN(now, 1) {
		s.mu.Unlock()
		s.deps.Metrics.ObserveCode(step, false)
		return nil, models.ErrCodeThrottled
	}
	s.mu.Unlock()

	if !s.deps.TOTP.Validate(p.secret, code, now) {
		s.deps.Metrics.ObserveCode(step, false)
		s.deps.Audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "two_factor_" + step + "_failed",
			UserID:        p.profile.ID,
			SessionID:     s.id,
			FailureReason: "invalid_code",
		})
		return nil, models.ErrInvalidCode
	}

	if want == models.StateSetupRequired {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		err := s.deps.Directory.UpdateTwoFactorFields(callCtx, p.profile.ID, models.EnableTwoFactor(p.sealed))
		cancel()
		if err != nil {
			return nil, s.serviceError("enable two-factor", err)
		}
	}

	return s.finishLogin(ctx, p, now, step)
}

// finishLogin is the shared terminal step of setup and verify
func (s *Session) finishLogin(ctx context.Context, p *pendingLogin, now time.Time, step string) (*models.Outcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	record := models.SessionRecord{Token: p.token, Profile: p.profile, IssuedAt: now}
	if err := s.deps.Sessions.Save(callCtx, s.id, record, s.cfg.SessionTTL); err != nil {
		return nil, s.serviceError("save session", err)
	}

	s.mu.Lock()
	s.attempts = models.LoginAttemptState{}
	s.pending = nil
	s.grant = nil
	s.state = models.StateAuthenticated
	s.stopCountdownLocked()
	s.mu.Unlock()

	if err := s.deps.Lockouts.ClearLockout(callCtx, s.id); err != nil {
		s.log.Warn("failed to clear stored lockout", "error", err)
	}

	s.deps.Metrics.ObserveCode(step, true)
	s.deps.Metrics.ObserveLogin(string(models.OutcomeAuthenticated))
	s.deps.Audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    p.profile.ID,
		SessionID: s.id,
		Email:     p.profile.Email,
		Success:   true,
	})

	profile := p.profile
	return &models.Outcome{
		Kind:         models.OutcomeAuthenticated,
		User:         &profile,
		SessionToken: p.token,
	}, nil
}

// RequestTwoFactorReset issues a reset token and mails the reset link.
// It returns the token expiry. The captcha is verified before the account
// is looked up, and a link that cannot be delivered is withdrawn.
func (s *Session) RequestTwoFactorReset(ctx context.Context, email string, captcha models.CaptchaProof) (time.Time, error) {
	s.op.Lock()
	defer s.op.Unlock()

	now := s.now()
	s.touch(now)

	if !captcha.Valid(now) {
		return time.Time{}, models.ErrMissingCaptcha
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	err := s.deps.Verifier.VerifyCaptcha(callCtx, captcha.Token)
	cancel()
	if err != nil {
		if errors.Is(err, models.ErrCaptchaRejected) || errors.Is(err, models.ErrMissingCaptcha) {
			s.auditReset("reset_request_rejected", "", email, "captcha_rejected")
			return time.Time{}, models.ErrMissingCaptcha
		}
		return time.Time{}, s.serviceError("verify captcha", err)
	}

	callCtx, cancel = context.WithTimeout(ctx, s.cfg.CallTimeout)
	user, err := s.deps.Directory.FindByEmail(callCtx, email)
	cancel()
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditReset("reset_request_rejected", "", email, "unknown_email")
			return time.Time{}, models.ErrNotFound
		}
		return time.Time{}, s.serviceError("find user", err)
	}
	if !user.TwoFactorEnabled {
		s.auditReset("reset_request_rejected", user.ID, email, "not_enabled")
		return time.Time{}, models.ErrTwoFactorNotEnabled
	}

	token, err := newResetToken()
	if err != nil {
		return time.Time{}, s.serviceError("generate reset token", err)
	}
	expires := now.Add(s.cfg.ResetTokenTTL)

	callCtx, cancel = context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	if err := s.deps.Directory.UpdateTwoFactorFields(callCtx, user.ID, models.IssueReset(HashResetToken(token), expires)); err != nil {
		return time.Time{}, s.serviceError("store reset token", err)
	}

	err = s.deps.Verifier.SendOneTimeLoginLink(callCtx, user.Email, LoginLinkOptions{
		RedirectTarget: s.resetLink(token),
		AllowNewUser:   false,
	})
	if err != nil {
		s.restoreReset(ctx, user)
		s.log.Error("reset link delivery failed", "user_id", user.ID, "error", err)
		s.auditReset("reset_request_failed", user.ID, email, "delivery_failed")
		return time.Time{}, fmt.Errorf("send reset link: %w", models.ErrDeliveryFailed)
	}

	s.mu.Lock()
	if s.state == models.StateVerifyRequired {
		s.state = models.StateResetRequested
	}
	s.mu.Unlock()

	s.deps.Metrics.ObserveReset("issued")
	s.auditReset("reset_requested", user.ID, email, "")
	return expires, nil
}

// restoreReset puts back the reset pair u had before a failed issue, so a
// link mailed earlier keeps working.
func (s *Session) restoreReset(ctx context.Context, u *models.User) {
	update := models.ClearReset()
	if u.ResetToken != nil && u.ResetExpires != nil {
		update = models.IssueReset(*u.ResetToken, *u.ResetExpires)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	if err := s.deps.Directory.UpdateTwoFactorFields(callCtx, u.ID, update); err != nil {
		s.log.Warn("failed to restore previous reset token", "user_id", u.ID, "error", err)
	}
}

// ConsumeTwoFactorReset validates an emailed reset token and, on success,
// permits DisableTwoFactor for the token's owner. It returns the user id.
func (s *Session) ConsumeTwoFactorReset(ctx context.Context, token string) (string, error) {
	s.op.Lock()
	defer s.op.Unlock()

	now := s.now()
	s.touch(now)

	// A failed consume withdraws any grant left by an earlier one.
	s.mu.Lock()
	s.grant = nil
	s.mu.Unlock()

	if token == "" {
		return "", models.ErrInvalidOrExpired
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	user, err := s.deps.Directory.FindByResetToken(callCtx, HashResetToken(token))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.deps.Metrics.ObserveReset("rejected")
			s.auditReset("reset_rejected", "", "", "unknown_token")
			return "", models.ErrInvalidOrExpired
		}
		return "", s.serviceError("find reset token", err)
	}

	if user.ResetToken == nil || user.ResetExpires == nil || now.After(*user.ResetExpires) {
		if user.HasPendingReset() {
			if err := s.deps.Directory.UpdateTwoFactorFields(callCtx, user.ID, models.ClearReset()); err != nil {
				s.log.Warn("failed to clear stale reset token", "user_id", user.ID, "error", err)
			}
		}
		s.deps.Metrics.ObserveReset("rejected")
		s.auditReset("reset_rejected", user.ID, user.Email, "expired")
		return "", models.ErrInvalidOrExpired
	}

	s.mu.Lock()
	s.grant = &resetGrant{userID: user.ID, expires: *user.ResetExpires}
	s.state = models.StateResetRequested
	s.mu.Unlock()

	s.deps.Metrics.ObserveReset("consumed")
	s.auditReset("reset_consumed", user.ID, user.Email, "")
	return user.ID, nil
}

// DisableTwoFactor clears enrollment and reset fields in one write and
// ends the session. It requires a prior successful ConsumeTwoFactorReset.
func (s *Session) DisableTwoFactor(ctx context.Context, userRef string) error {
	s.op.Lock()
	defer s.op.Unlock()

	now := s.now()
	s.touch(now)

	s.mu.Lock()
	g := s.grant
	s.mu.Unlock()
	if g == nil || g.userID != userRef || now.After(g.expires) {
		return models.ErrForbidden
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	if err := s.deps.Directory.UpdateTwoFactorFields(callCtx, userRef, models.DisableTwoFactor()); err != nil {
		return s.serviceError("disable two-factor", err)
	}
	if err := s.deps.Sessions.Delete(callCtx, s.id); err != nil {
		s.log.Warn("failed to erase session", "error", err)
	}

	s.mu.Lock()
	s.grant = nil
	s.pending = nil
	s.state = models.StateTwoFactorDisabled
	s.mu.Unlock()

	s.deps.Metrics.ObserveReset("disabled")
	s.auditReset("two_factor_disabled", userRef, "", "")
	return nil
}

// Cancel leaves the two-factor screens for credential entry. The attempt
// counter and any lockout are kept.
func (s *Session) Cancel() error {
	s.op.Lock()
	defer s.op.Unlock()

	now := s.now()
	s.touch(now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == models.StateAuthenticated {
		return models.ErrInvalidState
	}
	s.pending = nil
	s.grant = nil
	if s.attempts.IsLocked(now) {
		s.state = models.StateLocked
	} else {
		s.state = models.StateIdle
	}
	return nil
}

// Logout erases session persistence and stops the countdown. The attempt
// counter is kept.
func (s *Session) Logout(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.touch(s.now())

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	if err := s.deps.Sessions.Delete(callCtx, s.id); err != nil {
		return s.serviceError("erase session", err)
	}

	s.mu.Lock()
	s.pending = nil
	s.grant = nil
	s.state = models.StateIdle
	if s.attempts.IsLocked(s.now()) {
		s.state = models.StateLocked
	}
	s.stopCountdownLocked()
	s.mu.Unlock()
	return nil
}

// Snapshot returns the view polled by the login screen. An elapsed lockout
// is cleared before the view is taken. Polling counts as activity.
func (s *Session) Snapshot(ctx context.Context) models.SessionSnapshot {
	now := s.now()

	s.mu.Lock()
	s.lastSeen = now
	expired := s.expireLocked(now)
	snap := models.SessionSnapshot{
		State:             s.state,
		FailedAttempts:    s.attempts.FailedAttempts,
		AttemptsRemaining: s.cfg.MaxFailedAttempts - s.attempts.FailedAttempts,
		RemainingSeconds:  s.attempts.RemainingSeconds(now),
		CanSubmit:         !s.attempts.IsLocked(now) && s.state != models.StateAuthenticated,
	}
	if s.attempts.LockoutUntil != nil {
		until := *s.attempts.LockoutUntil
		snap.LockoutUntil = &until
	}
	s.mu.Unlock()

	if expired != nil {
		s.afterExpiry(ctx, *expired)
	}
	return snap
}

// Tick recomputes the remaining lockout and clears it once it reaches zero
func (s *Session) Tick(ctx context.Context) time.Duration {
	now := s.now()

	s.mu.Lock()
	remaining := s.attempts.Remaining(now)
	expired := s.expireLocked(now)
	s.mu.Unlock()

	if expired != nil {
		s.afterExpiry(ctx, *expired)
	}
	return remaining
}

// Close stops the countdown and releases the session
func (s *Session) Close() {
	s.mu.Lock()
	s.stopCountdownLocked()
	s.mu.Unlock()
	s.cancel()
}

// expireLocked resets the counter once the lockout has elapsed and returns
// the expired lockoutUntil. Caller holds mu.
func (s *Session) expireLocked(now time.Time) *time.Time {
	if s.attempts.LockoutUntil == nil || now.Before(*s.attempts.LockoutUntil) {
		return nil
	}
	until := *s.attempts.LockoutUntil
	s.attempts = models.LoginAttemptState{}
	if s.state == models.StateLocked {
		s.state = models.StateIdle
	}
	s.stopCountdownLocked()
	return &until
}

func (s *Session) afterExpiry(ctx context.Context, until time.Time) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	if err := s.deps.Lockouts.ClearLockout(callCtx, s.id); err != nil {
		s.log.Warn("failed to clear stored lockout", "error", err)
	}
	s.deps.Audit.LogLockout(s.id, until, false)
	s.log.Info("lockout expired")
}

// startCountdownLocked starts the 1-second lockout ticker. Caller holds mu.
func (s *Session) startCountdownLocked() {
	if s.stopTick != nil {
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.stopTick = cancel

	interval := s.cfg.CountdownInterval
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				remaining := s.Tick(s.ctx)
				if s.deps.OnTick != nil {
					s.deps.OnTick(s.id, remaining)
				}
				if remaining == 0 {
					return
				}
			}
		}
	}()
}

// stopCountdownLocked cancels the ticker. Caller holds mu.
func (s *Session) stopCountdownLocked() {
	if s.stopTick != nil {
		s.stopTick()
		s.stopTick = nil
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) serviceError(op string, err error) error {
	s.log.Error("auth collaborator failed", "op", op, "error", err)
	return fmt.Errorf("%s: %w", op, models.ErrServiceUnavailable)
}

func (s *Session) auditReset(eventType, userID, email, reason string) {
	s.deps.Audit.LogTwoFactorReset(pkglogger.AuditEvent{
		EventType:     eventType,
		UserID:        userID,
		SessionID:     s.id,
		Email:         email,
		Success:       reason == "",
		FailureReason: reason,
	})
}

func (s *Session) resetLink(token string) string {
	return s.cfg.ResetLinkBase + "?token=" + url.QueryEscape(token)
}

// HashResetToken is the form in which reset tokens are stored
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
