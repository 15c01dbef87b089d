package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAWSSESEmailService_SendLoginLink(t *testing.T) {
	client := &MockSESClient{}
	svc := NewSESEmailServiceWithClient(client, "no-reply@portal.example", slog.New(slog.NewJSONHandler(io.Discard, nil)))

	link := "https://portal.example/two-factor/reset?token=a<b"
	err := svc.SendLoginLink(context.Background(), "officer@example.com", link)

	require.NoError(t, err)
	in := client.LastInput
	require.NotNil(t, in)
	assert.Equal(t, "no-reply@portal.example", aws.ToString(in.Source))
	assert.Equal(t, []string{"officer@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, loginLinkSubject, aws.ToString(in.Message.Subject.Data))
	assert.Contains(t, aws.ToString(in.Message.Body.Text.Data), link)
	assert.Contains(t, aws.ToString(in.Message.Body.Html.Data), "token=a&lt;b")
	assert.False(t, strings.Contains(aws.ToString(in.Message.Body.Html.Data), "token=a<b"))
}

func TestAWSSESEmailService_SendLoginLink_Error(t *testing.T) {
	client := &MockSESClient{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	svc := NewSESEmailServiceWithClient(client, "no-reply@portal.example", slog.New(slog.NewJSONHandler(io.Discard, nil)))

	err := svc.SendLoginLink(context.Background(), "officer@example.com", "https://portal.example/x")

	assert.ErrorContains(t, err, "failed to send email")
}

func TestLogMailer_NeverFails(t *testing.T) {
	m := NewLogMailer(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	assert.NoError(t, m.SendLoginLink(context.Background(), "officer@example.com", "https://portal.example/x"))
}
