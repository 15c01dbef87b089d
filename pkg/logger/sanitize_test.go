package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"officer@pnp.gov.ph", "o******@***.***.ph"},
		{"a@x.com", "a@*.com"},
		{"not-an-email", "[invalid-email]"},
		{"@x.com", "[invalid-email]"},
		{"a@b@c.com", "[invalid-email]"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizedEmail(tt.in), tt.in)
	}
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("token=abc"))
	assert.True(t, SanitizeQueryString("Captcha_Token=abc"))
	assert.False(t, SanitizeQueryString("page=2&sort=name"))
	assert.False(t, SanitizeQueryString(""))
	assert.False(t, SanitizeQueryString("q=token"), "only keys are inspected")
	assert.True(t, SanitizeQueryString("reset%zz=1"), "unparseable queries are redacted")
}

func TestAuditLogger_MasksEmailAndSetsLevel(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.LogAuthAttempt(AuditEvent{
		EventType:     "login_failed",
		Email:         "a@x.com",
		FailureReason: "invalid_credentials",
	})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "a@*.com", record["email"])
	assert.Equal(t, "login_failed", record["event_type"])
}

func TestAuditLogger_NilIsNoop(t *testing.T) {
	var al *AuditLogger
	assert.NotPanics(t, func() {
		al.LogAuthAttempt(AuditEvent{EventType: "x"})
	})
}
