package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/timberwood/outreach/internal/config"
)

// SESSender delivers mail through AWS SES v2.
type SESSender struct {
	client    *sesv2.Client
	fromEmail string
}

// NewSESSender creates an SES transport with static credentials.
func NewSESSender(ctx context.Context, cfg appconfig.SESConfig) (*SESSender, error) {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKey,
		cfg.SecretKey,
		"",
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESSender{
		client:    sesv2.NewFromConfig(awsCfg),
		fromEmail: cfg.FromEmail,
	}, nil
}

// Send delivers one message via the SES SendEmail API.
func (s *SESSender) Send(ctx context.Context, msg Message) error {
	from := msg.FromEmail
	if from == "" {
		from = s.fromEmail
	}
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, from)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTMLBody)},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("sending via SES: %w", err)
	}
	return nil
}
