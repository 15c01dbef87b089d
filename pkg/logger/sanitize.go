package logger

import (
	"net/url"
	"strings"
)

// SanitizedEmail masks an email for logs: the first letter of the local
// part and the top-level domain stay readable ("o******@***.***.ph").
func SanitizedEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	masked := local[:1] + strings.Repeat("*", len(local)-1)

	labels := strings.Split(domain, ".")
	for i := range labels[:len(labels)-1] {
		labels[i] = strings.Repeat("*", len(labels[i]))
	}
	return masked + "@" + strings.Join(labels, ".")
}

// Key fragments that mark a query parameter as sensitive.
var sensitiveKeys = []string{
	"password", "token", "secret", "code", "captcha", "email", "auth", "csrf",
}

// SanitizeQueryString reports whether a raw query carries a sensitive
// parameter and must be redacted from access logs. A query that does not
// parse is treated as sensitive.
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return true
	}
	for key := range values {
		key = strings.ToLower(key)
		for _, frag := range sensitiveKeys {
			if strings.Contains(key, frag) {
				return true
			}
		}
	}
	return false
}
