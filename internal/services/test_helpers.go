package services

import (
	"context"
	"sync"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

// MockUserLookup implements UserLookup for testing
type MockUserLookup struct {
	FindByEmailFunc func(ctx context.Context, email string) (*models.User, error)
}

func (m *MockUserLookup) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

// MockCaptchaVerifier implements CaptchaVerifier for testing
type MockCaptchaVerifier struct {
	VerifyFunc func(ctx context.Context, token, remoteIP string) error
}

func (m *MockCaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, token, remoteIP)
	}
	return nil
}

// MockLoginLimiter implements LoginLimiter and records what it was told
type MockLoginLimiter struct {
	CheckFunc func(ctx context.Context, email, ipAddress, userAgent string) error

	mu       sync.Mutex
	Recorded []RecordedAttempt
}

// RecordedAttempt is one RecordLoginAttempt call seen by MockLoginLimiter
type RecordedAttempt struct {
	Email     string
	IPAddress string
	Success   bool
	Reason    string
}

func (m *MockLoginLimiter) CheckRateLimit(ctx context.Context, email, ipAddress, userAgent string) error {
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx, email, ipAddress, userAgent)
	}
	return nil
}

func (m *MockLoginLimiter) RecordLoginAttempt(ctx context.Context, email, ipAddress, userAgent string, success bool, failureReason *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := RecordedAttempt{Email: email, IPAddress: ipAddress, Success: success}
	if failureReason != nil {
		rec.Reason = *failureReason
	}
	m.Recorded = append(m.Recorded, rec)
	return nil
}

// MockMailer implements Mailer for testing
type MockMailer struct {
	SendFunc func(ctx context.Context, email, link string) error

	mu    sync.Mutex
	Sent  []string
	Links []string
}

func (m *MockMailer) SendLoginLink(ctx context.Context, email, link string) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, email)
	m.Links = append(m.Links, link)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, email, link)
	}
	return nil
}

// MockSESClient implements SESClient for testing
type MockSESClient struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)

	LastInput *ses.SendEmailInput
}

func (m *MockSESClient) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.LastInput = params
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params, optFns...)
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

// NewTestUser creates an active officer with the given bcrypt hash
func NewTestUser(id, email, passwordHash string) *models.User {
	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         "Test Officer",
		Role:         "officer",
		Status:       "active",
	}
}
