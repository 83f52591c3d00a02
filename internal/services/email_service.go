package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Notification kinds sent by the auth engine.
const (
	EmailKindWelcome         = "welcome"
	EmailKindVerification    = "email_verification"
	EmailKindPasswordReset   = "password_reset"
	EmailKindPasswordChanged = "password_changed"
	EmailKindNewLogin        = "new_login"
	EmailKindAccountDeleted  = "account_deleted"
)

// NotificationSender dispatches transactional email. Implementations must
// not panic; callers treat send failures as best-effort and never abort the
// surrounding operation because of them.
type NotificationSender interface {
	Send(ctx context.Context, kind, recipient string, data map[string]string) error
}

// SESNotificationSender sends notifications using AWS SES.
type SESNotificationSender struct {
	sesClient   *ses.Client
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

func NewSESNotificationSender(region, fromAddress, baseURL string, logger *slog.Logger) (*SESNotificationSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESNotificationSender{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}, nil
}

func (s *SESNotificationSender) Send(ctx context.Context, kind, recipient string, data map[string]string) error {
	subject, body := s.compose(kind, data)
	if subject == "" {
		return fmt.Errorf("unknown notification kind: %s", kind)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(body),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send email via SES",
			slog.String("kind", kind),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		slog.String("kind", kind),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

func (s *SESNotificationSender) compose(kind string, data map[string]string) (subject, body string) {
	username := data["username"]

	switch kind {
	case EmailKindWelcome:
		return "Welcome to Ink & Echoes",
			fmt.Sprintf("Hi %s,\n\nWelcome aboard! Your account is ready. Start writing, or find something new to read.\n", username)

	case EmailKindVerification:
		link := fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, data["token"])
		return "Verify your email address",
			fmt.Sprintf("Hi %s,\n\nPlease verify your email address by opening the link below:\n\n%s\n\nThis link expires in 24 hours. If you didn't create this account, you can ignore this email.\n", username, link)

	case EmailKindPasswordReset:
		link := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, data["token"])
		return "Reset your password",
			fmt.Sprintf("A password reset was requested for your account. Open the link below to choose a new password:\n\n%s\n\nThis link expires in 1 hour. If you didn't request a reset, you can ignore this email.\n", link)

	case EmailKindPasswordChanged:
		return "Your password was changed",
			fmt.Sprintf("Hi %s,\n\nYour account password was just changed. If this wasn't you, reset your password immediately.\n", username)

	case EmailKindNewLogin:
		return "New sign-in to your account",
			fmt.Sprintf("Hi %s,\n\nA new sign-in to your account was detected.\n\nIP address: %s\nDevice: %s\n\nIf this wasn't you, change your password.\n", username, data["ip_address"], data["user_agent"])

	case EmailKindAccountDeleted:
		return "Your account has been deleted",
			fmt.Sprintf("Hi %s,\n\nYour account and all associated content have been permanently deleted. We're sorry to see you go.\n", username)
	}

	return "", ""
}
