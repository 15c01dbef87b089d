package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
)

// DefaultEndpoint is the hCaptcha siteverify URL
const DefaultEndpoint = "https://api.hcaptcha.com/siteverify"

// Verifier checks captcha tokens against a siteverify endpoint
type Verifier struct {
	secret   string
	endpoint string
	client   *http.Client
}

// NewVerifier creates a Verifier. An empty endpoint selects DefaultEndpoint.
func NewVerifier(secret, endpoint string, timeout time.Duration) *Verifier {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Verifier{
		secret:   secret,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify returns models.ErrCaptchaRejected when the provider refuses the
// token. Transport failures are returned wrapped and count as service errors.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) error {
	if token == "" {
		return models.ErrMissingCaptcha
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("siteverify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode siteverify response: %w", err)
	}
	if !body.Success {
		return fmt.Errorf("%w: %s", models.ErrCaptchaRejected, strings.Join(body.ErrorCodes, ","))
	}
	return nil
}
