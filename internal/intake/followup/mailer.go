package followup

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/cvintake/cvintake-backend/pkg/config"
)

// Follow-up email content
const (
	Subject = "Your CV is under review"
	Body    = "Thank you for submitting your CV. It is currently under review."
)

// SESAPI is the subset of the SES v2 client used for sending
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer sends the follow-up as a plain-text email through Amazon SES
type SESMailer struct {
	client SESAPI
	sender string
}

// NewSESMailer loads AWS configuration from the environment for cfg.Region
func NewSESMailer(ctx context.Context, cfg config.MailConfig) (*SESMailer, error) {
	if cfg.Sender == "" {
		return nil, fmt.Errorf("ses: sender not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}

	return NewSESMailerWithClient(sesv2.NewFromConfig(awsCfg), cfg.Sender), nil
}

// NewSESMailerWithClient wraps an existing client
func NewSESMailerWithClient(client SESAPI, sender string) *SESMailer {
	return &SESMailer{client: client, sender: sender}
}

func (m *SESMailer) Send(ctx context.Context, to string) error {
	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.sender),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(Body), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses: send to %s: %w", to, err)
	}
	return nil
}
