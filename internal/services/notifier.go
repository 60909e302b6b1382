package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Notifier delivers status-change notifications to complaint owners.
// Failures are non-fatal to the calling workflow.
type Notifier interface {
	SendStatusUpdate(ctx context.Context, to, complaintTitle, complaintID, oldStatus, newStatus string) error
}

// AWSSESNotifier sends notification emails using AWS SES
type AWSSESNotifier struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESNotifier creates a new AWS SES notifier
func NewAWSSESNotifier(region, fromAddress string, logger *slog.Logger) (*AWSSESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESNotifier{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendStatusUpdate emails the complaint owner about a status change
func (n *AWSSESNotifier) SendStatusUpdate(ctx context.Context, to, complaintTitle, complaintID, oldStatus, newStatus string) error {
	subject := fmt.Sprintf("Complaint Status Updated: %s", complaintTitle)

	textBody := fmt.Sprintf(`Hello,

Your complaint %q (ID: %s) has been updated.

Previous Status: %s
New Status: %s

You can check the latest status in your dashboard.

Regards,
Municipal Service Team
`, complaintTitle, complaintID, oldStatus, newStatus)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body>
    <p>Hello,</p>
    <p>Your complaint <strong>%s</strong> (ID: %s) has been updated.</p>
    <p>Previous Status: <strong>%s</strong><br>
    New Status: <strong>%s</strong></p>
    <p>You can check the latest status in your dashboard.</p>
    <p>Regards,<br>Municipal Service Team</p>
</body>
</html>
`, complaintTitle, complaintID, oldStatus, newStatus)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.sesClient.SendEmail(ctx, input)
	if err != nil {
		n.logger.Error("failed to send status update email via SES",
			slog.String("complaint_id", complaintID),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("status update email sent",
		slog.String("complaint_id", complaintID),
		slog.String("message_id", *result.MessageId))

	return nil
}
