package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/OJT-CyberCrime/ciphers-sub000/pkg/logger"
)

// Mailer delivers one-time sign-in links
type Mailer interface {
	SendLoginLink(ctx context.Context, email, link string) error
}

// SESClient is the subset of the SES API the mailer uses
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   SESClient
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESEmailService loads the default AWS credential chain for region
func NewAWSSESEmailService(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESEmailServiceWithClient(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

func NewSESEmailServiceWithClient(client SESClient, fromAddress string, logger *slog.Logger) *AWSSESEmailService {
	return &AWSSESEmailService{
		sesClient:   client,
		fromAddress: fromAddress,
		logger:      logger,
	}
}

const loginLinkSubject = "Your Records Portal sign-in link"

func loginLinkBodies(link string) (htmlBody, textBody string) {
	escaped := html.EscapeString(link)
	htmlBody = fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>Records Portal sign-in</h1>
    <p>A one-time link was requested for your account. If you asked to reset
    two-factor authentication, opening it lets you remove your current
    authenticator and enrol a new one.</p>
    <p><a href="%s">Continue to the Records Portal</a></p>
    <p>Or paste this link into your browser:<br><code>%s</code></p>
    <p><strong>This link expires in 2 hours and works once.</strong></p>
    <p>If you did not request it, ignore this email and tell your records supervisor.</p>
  </div>
</body>
</html>
`, escaped, escaped)

	textBody = fmt.Sprintf(`Records Portal sign-in

A one-time link was requested for your account. If you asked to reset
two-factor authentication, opening it lets you remove your current
authenticator and enrol a new one.

%s

This link expires in 2 hours and works once.
If you did not request it, ignore this email and tell your records supervisor.
`, link)
	return htmlBody, textBody
}

func (s *AWSSESEmailService) SendLoginLink(ctx context.Context, email, link string) error {
	htmlBody, textBody := loginLinkBodies(link)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(loginLinkSubject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
				Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send login link via SES",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("login link sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// LogMailer stands in for SES when email delivery is disabled. It logs the
// link at debug level so local runs can follow it.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendLoginLink(ctx context.Context, email, link string) error {
	m.logger.DebugContext(ctx, "email delivery disabled, login link not sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("link", link))
	return nil
}
