package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// publishAPI is the subset of *sns.Client the publisher uses.
type publishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher delivers email through an SNS topic. The topic's email
// subscription filters on the "recipient" message attribute, so only inboxes
// that already confirmed a subscription receive anything. It suits shared test
// inboxes; config refuses it in production.
type Publisher struct {
	client   publishAPI
	topicARN string
}

func NewPublisher(awsCfg aws.Config, topicARN string) *Publisher {
	return &Publisher{client: sns.NewFromConfig(awsCfg), topicARN: topicARN}
}

func (p *Publisher) SendEmail(ctx context.Context, to, subject, body string) error {
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"recipient": {DataType: aws.String("String"), StringValue: aws.String(to)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
