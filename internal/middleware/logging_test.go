package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/OJT-CyberCrime/ciphers-sub000/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureLogger_RedactsSensitiveQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	req := httptest.NewRequest("GET", "/two-factor/reset?token=secret-value", nil)
	req = req.WithContext(pkghttp.WithClientInfo(req.Context(), pkghttp.ClientInfo{IPAddress: "203.0.113.9"}))
	w := httptest.NewRecorder()
	SecureLogger(logger)(okHandler).ServeHTTP(w, req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "/two-factor/reset?[REDACTED]", entry["path"])
	assert.Equal(t, "203.0.113.9", entry["remote_addr"])
	assert.EqualValues(t, http.StatusOK, entry["status"])
	assert.NotContains(t, buf.String(), "secret-value")
}

func TestSecureLogger_ServerErrorsLogAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	SecureLogger(logger)(failing).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
}
