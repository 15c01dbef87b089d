package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	SessionID     string
	Email         string // masked before it is written
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes security events as structured log records
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs login and two-factor events
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	al.log("auth", event)
}

// LogLockout logs the start or expiry of a client lockout
func (al *AuditLogger) LogLockout(sessionID string, lockoutUntil time.Time, started bool) {
	eventType := "lockout_expired"
	if started {
		eventType = "lockout_started"
	}
	al.log("lockout", AuditEvent{
		EventType: eventType,
		SessionID: sessionID,
		Success:   !started,
		Metadata: map[string]string{
			"lockout_until": lockoutUntil.UTC().Format(time.RFC3339),
		},
	})
}

// LogTwoFactorReset logs reset token issuance, consumption and rejection
func (al *AuditLogger) LogTwoFactorReset(event AuditEvent) {
	al.log("two_factor_reset", event)
}

// LogAccountAction logs general account actions
func (al *AuditLogger) LogAccountAction(eventType, userID string, metadata map[string]string) {
	al.log("account", AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Success:   true,
		Metadata:  metadata,
	})
}

func (al *AuditLogger) log(auditType string, event AuditEvent) {
	if al == nil || al.logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}
