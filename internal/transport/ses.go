package transport

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/logger"
)

// sesClient is the slice of the SES v2 API the transport uses.
type sesClient interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESTransport ships raw, already-signed messages through AWS SES v2. The
// message bytes are passed through untouched so the DKIM signature applied
// upstream survives delivery.
type SESTransport struct {
	client           sesClient
	configurationSet string
	timeout          time.Duration
}

// NewSESTransport builds an SES client from static credentials when both key
// parts are provided, otherwise from the default AWS credential chain.
func NewSESTransport(ctx context.Context, accessKey, secretKey, region, configurationSet string) (*SESTransport, error) {
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &SESTransport{
		client:           sesv2.NewFromConfig(cfg),
		configurationSet: configurationSet,
		timeout:          30 * time.Second,
	}, nil
}

// Send delivers the raw message and returns the SES message ID.
func (t *SESTransport) Send(ctx context.Context, from string, req domain.SendRequest, raw []byte) (string, error) {
	if t.client == nil {
		return "", fmt.Errorf("SES client not configured")
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{req.Recipient},
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("tenant_id"), Value: aws.String(req.TenantID)},
			{Name: aws.String("scenario"), Value: aws.String(string(req.Scenario))},
		},
	}
	if t.configurationSet != "" {
		input.ConfigurationSetName = aws.String(t.configurationSet)
	}

	result, err := t.client.SendEmail(ctx, input)
	if err != nil {
		log.Printf("[SES] Failed to send to %s: %v", logger.RedactEmail(req.Recipient), err)
		return "", fmt.Errorf("ses send: %w", err)
	}

	messageID := aws.ToString(result.MessageId)
	log.Printf("[SES] Sent to %s (id: %s)", logger.RedactEmail(req.Recipient), messageID)
	return messageID, nil
}
