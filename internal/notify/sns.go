package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
)

// SNSSink publishes to an SNS topic. Fan-out to the actual subscriber
// endpoints (email, SMS, queues) is the topic's job; the subscribers
// argument is carried as a message attribute for filtering policies.
type SNSSink struct {
	client   snsiface.SNSAPI
	topicARN string
}

func NewSNSSink(sess *session.Session, topicARN string) *SNSSink {
	return &SNSSink{
		client:   sns.New(sess),
		topicARN: topicARN,
	}
}

func (s *SNSSink) Send(ctx context.Context, subscribers []string, msg Message) error {
	input := &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(msg.Subject),
		Message:  aws.String(msg.Body),
	}

	if len(subscribers) > 0 {
		input.MessageAttributes = map[string]*sns.MessageAttributeValue{
			"subscribers": {
				DataType:    aws.String("String.Array"),
				StringValue: aws.String(joinQuoted(subscribers)),
			},
		}
	}

	if _, err := s.client.PublishWithContext(ctx, input); err != nil {
		return fmt.Errorf("%w: publish to %s: %v", ErrDeliveryFailed, s.topicARN, err)
	}
	return nil
}

func joinQuoted(items []string) string {
	out := "["
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%q", item)
	}
	return out + "]"
}

func (s *SNSSink) Close() error {
	return nil
}
