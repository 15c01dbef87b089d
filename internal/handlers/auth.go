package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/auth"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/services"
	pkghttp "github.com/OJT-CyberCrime/ciphers-sub000/pkg/http"
)

// LoginSession is the per-client login state machine driven by the handlers
type LoginSession interface {
	SubmitCredentials(ctx context.Context, email, password string, captcha models.CaptchaProof) (*models.Outcome, error)
	CompleteTwoFactorSetup(ctx context.Context, userRef, code string) (*models.Outcome, error)
	CompleteTwoFactorVerify(ctx context.Context, userRef, code string) (*models.Outcome, error)
	RequestTwoFactorReset(ctx context.Context, email string, captcha models.CaptchaProof) (time.Time, error)
	ConsumeTwoFactorReset(ctx context.Context, token string) (string, error)
	DisableTwoFactor(ctx context.Context, userRef string) error
	Cancel() error
	Logout(ctx context.Context) error
	Snapshot(ctx context.Context) models.SessionSnapshot
}

var _ LoginSession = (*auth.Session)(nil)

// SessionProvider returns the login session for a client session id
type SessionProvider func(ctx context.Context, sid string) LoginSession

// AuthHandler serves the login, two-factor and reset endpoints
type AuthHandler struct {
	sessions   SessionProvider
	captchaTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewAuthHandler creates an AuthHandler. captchaTTL is how long a captcha
// proof stays usable after the request that carries it arrives.
func NewAuthHandler(sessions SessionProvider, captchaTTL time.Duration, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		sessions:   sessions,
		captchaTTL: captchaTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email        string `json:"email" validate:"required,email,max=255"`
	Password     string `json:"password" validate:"required,max=72"`
	CaptchaToken string `json:"captcha_token"`
}

// TwoFactorCodeRequest carries a one-time code for setup or verify
type TwoFactorCodeRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Code   string `json:"code" validate:"required,len=6,numeric"`
}

// ResetRequest asks for a two-factor reset link
type ResetRequest struct {
	Email        string `json:"email" validate:"required,email,max=255"`
	CaptchaToken string `json:"captcha_token"`
}

// ConsumeResetRequest carries the token from an emailed reset link
type ConsumeResetRequest struct {
	Token string `json:"token" validate:"required,max=128"`
}

// Response DTOs

// OutcomeResponse is the body of a successful login step
type OutcomeResponse struct {
	Outcome      models.OutcomeKind     `json:"outcome"`
	User         *models.UserProfile    `json:"user,omitempty"`
	SessionToken string                 `json:"session_token,omitempty"`
	Setup        *models.TwoFactorSetup `json:"setup,omitempty"`
}

// MeResponse is the signed-in profile plus the session token expiry
type MeResponse struct {
	models.UserProfile
	SessionExpiresAt *time.Time `json:"session_expires_at,omitempty"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

const resetAcceptedMessage = "If the account exists and has two-factor authentication enabled, a reset link has been sent."

func (h *AuthHandler) session(r *http.Request) LoginSession {
	return h.sessions(r.Context(), auth.ClientIDFromContext(r.Context()))
}

func (h *AuthHandler) captchaProof(token string) models.CaptchaProof {
	return models.CaptchaProof{Token: strings.TrimSpace(token), ExpiresAt: h.now().Add(h.captchaTTL)}
}

// decode reads and validates a JSON body, writing a 400 on failure
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	if err := ValidateRequest(v); err != nil {
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "bad_request", "Invalid request", err.Error())
		return false
	}
	return true
}

// Login handles credential submission
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	outcome, err := h.session(r).SubmitCredentials(r.Context(), req.Email, req.Password, h.captchaProof(req.CaptchaToken))
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	h.writeOutcome(w, outcome)
}

// Status returns the login screen view, including the live lockout countdown
// @Router /auth/login/status [get]
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	snap := h.session(r).Snapshot(r.Context())
	w.Header().Set("Cache-Control", "no-store")
	pkghttp.WriteJSON(w, http.StatusOK, snap)
}

// CompleteSetup confirms a new authenticator with its first code
// @Router /auth/2fa/setup [post]
func (h *AuthHandler) CompleteSetup(w http.ResponseWriter, r *http.Request) {
	var req TwoFactorCodeRequest
	if !decode(w, r, &req) {
		return
	}

	outcome, err := h.session(r).CompleteTwoFactorSetup(r.Context(), req.UserID, req.Code)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	h.writeOutcome(w, outcome)
}

// CompleteVerify checks a code from an enrolled authenticator
// @Router /auth/2fa/verify [post]
func (h *AuthHandler) CompleteVerify(w http.ResponseWriter, r *http.Request) {
	var req TwoFactorCodeRequest
	if !decode(w, r, &req) {
		return
	}

	outcome, err := h.session(r).CompleteTwoFactorVerify(r.Context(), req.UserID, req.Code)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	h.writeOutcome(w, outcome)
}

// Cancel abandons the two-factor step
// @Router /auth/2fa/cancel [post]
func (h *AuthHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	if err := s.Cancel(); err != nil {
		h.writeSessionError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, s.Snapshot(r.Context()))
}

// RequestReset mails a two-factor reset link. The response is the same
// whether or not the account exists or has two-factor enabled.
// @Router /auth/2fa/reset [post]
func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !decode(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	_, err := h.session(r).RequestTwoFactorReset(r.Context(), req.Email, h.captchaProof(req.CaptchaToken))
	switch {
	case errors.Is(err, models.ErrDeliveryFailed):
		// Only enrolled accounts reach delivery, so an outage here must
		// look like every other accepted request.
		h.logger.Error("two-factor reset link not delivered", slog.Any("error", err))
		pkghttp.WriteJSON(w, http.StatusAccepted, MessageResponse{Message: resetAcceptedMessage})
	case err == nil, errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrTwoFactorNotEnabled):
		pkghttp.WriteJSON(w, http.StatusAccepted, MessageResponse{Message: resetAcceptedMessage})
	default:
		h.writeSessionError(w, err)
	}
}

// ConsumeReset validates an emailed reset token and disables two-factor
// authentication for its owner
// @Router /auth/2fa/reset/consume [post]
func (h *AuthHandler) ConsumeReset(w http.ResponseWriter, r *http.Request) {
	var req ConsumeResetRequest
	if !decode(w, r, &req) {
		return
	}

	s := h.session(r)
	userID, err := s.ConsumeTwoFactorReset(r.Context(), req.Token)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	if err := s.DisableTwoFactor(r.Context(), userID); err != nil {
		h.writeSessionError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{
		Message: "Two-factor authentication has been disabled. Sign in to enrol a new authenticator.",
	})
}

// Logout ends the authenticated session
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session(r).Logout(r.Context()); err != nil {
		h.writeSessionError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// Me returns the profile held in session persistence
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, ok := auth.ProfileFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "not authenticated")
		return
	}
	resp := MeResponse{UserProfile: profile}
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil && claims.ExpiresAt != nil {
		expires := claims.ExpiresAt.Time.UTC()
		resp.SessionExpiresAt = &expires
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) writeOutcome(w http.ResponseWriter, outcome *models.Outcome) {
	resp := OutcomeResponse{
		Outcome:      outcome.Kind,
		User:         outcome.User,
		SessionToken: outcome.SessionToken,
		Setup:        outcome.Setup,
	}
	w.Header().Set("Cache-Control", "no-store")
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// writeSessionError maps login flow errors onto the JSON error envelope
func (h *AuthHandler) writeSessionError(w http.ResponseWriter, err error) {
	var locked *models.LockedError
	var rejected *models.RejectedError
	var limited *services.RateLimitedError

	switch {
	case errors.As(err, &locked):
		pkghttp.WriteLocked(w, locked.RemainingSeconds)
	case errors.As(err, &rejected):
		pkghttp.WriteRejected(w, rejected.AttemptsRemaining)
	case errors.Is(err, models.ErrMissingCaptcha), errors.Is(err, models.ErrCaptchaRejected):
		pkghttp.WriteError(w, http.StatusBadRequest, "captcha_required", "Complete the human verification and try again.")
	case errors.As(err, &limited):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(limited.RetryAfter.Seconds()))))
		pkghttp.WriteTooManyRequests(w, "Too many failed login attempts. Please try again later.")
	case errors.Is(err, models.ErrRateLimitExceeded):
		pkghttp.WriteTooManyRequests(w, "Too many failed login attempts. Please try again later.")
	case errors.Is(err, models.ErrCodeThrottled):
		pkghttp.WriteTooManyRequests(w, "Too many code attempts. Wait a moment and try again.")
	case errors.Is(err, models.ErrInvalidCode):
		pkghttp.WriteError(w, http.StatusUnauthorized, "invalid_code", "The code is incorrect or has expired.")
	case errors.Is(err, models.ErrInvalidOrExpired):
		pkghttp.WriteError(w, http.StatusBadRequest, "invalid_or_expired", "This reset link is invalid or has expired.")
	case errors.Is(err, models.ErrInvalidState):
		pkghttp.WriteError(w, http.StatusConflict, "invalid_state", "This step is not available right now. Start the sign-in again.")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Reset not authorised for this session")
	case errors.Is(err, models.ErrServiceUnavailable):
		pkghttp.WriteServiceUnavailable(w, "Authentication service unavailable. Please try again.")
	default:
		h.logger.Error("unhandled login flow error", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
