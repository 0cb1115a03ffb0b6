// Package ses implements newsletter.EmailTransport over AWS SES v2.
package ses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/gitmesh/newsletter"
)

// Transport sends email through AWS SES. SES has no true bulk send for
// distinct bodies, so SendBulkEmail dispatches messages individually.
type Transport struct {
	client   *sesv2.Client
	from     string
	fromName string
}

var _ newsletter.EmailTransport = (*Transport)(nil)

// NewTransport initializes the SES client with static credentials
func NewTransport(ctx context.Context, region, accessKey, secretKey, from, fromName string) (*Transport, error) {
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("ses: loading AWS config: %w", err)
	}

	return &Transport{
		client:   sesv2.NewFromConfig(cfg),
		from:     from,
		fromName: fromName,
	}, nil
}

// SendEmail delivers a single message
func (t *Transport) SendEmail(ctx context.Context, params *newsletter.SendEmailParams) (*newsletter.SendResult, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", t.fromName, t.from)),
		Destination:      &types.Destination{ToAddresses: []string{params.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(params.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(params.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if params.Text != "" {
		input.Content.Simple.Body.Text = &types.Content{Data: aws.String(params.Text), Charset: aws.String("UTF-8")}
	}

	out, err := t.client.SendEmail(ctx, input)
	if err != nil {
		return &newsletter.SendResult{
			Success:    false,
			StatusCode: statusCode(err),
			Err:        fmt.Errorf("ses: %w", err),
		}, nil
	}

	result := &newsletter.SendResult{
		Success: true,
		SentAt:  time.Now(),
	}
	if out.MessageId != nil {
		result.MessageID = *out.MessageId
	}
	return result, nil
}

// SendBulkEmail dispatches messages one by one
func (t *Transport) SendBulkEmail(ctx context.Context, paramsList []*newsletter.SendEmailParams) ([]*newsletter.SendResult, error) {
	results := make([]*newsletter.SendResult, len(paramsList))
	for i, p := range paramsList {
		result, err := t.SendEmail(ctx, p)
		if err != nil {
			result = &newsletter.SendResult{Success: false, Err: err}
		}
		results[i] = result
	}
	return results, nil
}

// statusCode extracts the HTTP status from an SDK error so the retry
// layer can classify it; 0 when unavailable.
func statusCode(err error) int {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}
