package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// SNSPublishAPI is the part of *sns.Client the dispatcher uses.
type SNSPublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSDispatcher publishes notification events to an SNS topic. Subscribers
// filter on the status message attribute.
type SNSDispatcher struct {
	client   SNSPublishAPI
	topicARN string
	logger   *otelzap.Logger
}

// NewSNSDispatcher loads the default AWS configuration for region and creates
// a dispatcher for topicARN.
func NewSNSDispatcher(ctx context.Context, region, topicARN string, logger *otelzap.Logger) (*SNSDispatcher, error) {
	if topicARN == "" {
		return nil, fmt.Errorf("sns: empty topic ARN")
	}
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewSNSDispatcherWithClient(sns.NewFromConfig(awsCfg), topicARN, logger), nil
}

// NewSNSDispatcherWithClient creates a dispatcher around an existing client.
func NewSNSDispatcherWithClient(client SNSPublishAPI, topicARN string, logger *otelzap.Logger) *SNSDispatcher {
	return &SNSDispatcher{client: client, topicARN: topicARN, logger: logger}
}

// Dispatch publishes n.
func (d *SNSDispatcher) Dispatch(ctx context.Context, n Notification) error {
	event, err := NewEvent(n)
	if err != nil {
		return err
	}
	body, err := jsonMarshal(event)
	if err != nil {
		return err
	}

	out, err := d.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(d.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(event.EventType)},
			"status":     {DataType: aws.String("String"), StringValue: aws.String(string(n.Status))},
			"carrier":    {DataType: aws.String("String"), StringValue: aws.String(string(n.Carrier))},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish to %s: %w", d.topicARN, err)
	}

	d.logger.Ctx(ctx).Debug("Notification published",
		zap.String("topic_arn", d.topicARN),
		zap.String("event_id", event.EventID),
		zap.String("message_id", aws.ToString(out.MessageId)),
	)
	return nil
}

func jsonMarshal(event *Event) ([]byte, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return b, nil
}

var _ Dispatcher = (*SNSDispatcher)(nil)
