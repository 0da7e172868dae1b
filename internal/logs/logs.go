package logs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/qdispatch/qdispatch/internal/dispatch"
)

// LogsAPI is an interface used to mock API calls made to the aws cloudwatch service
type LogsAPI interface {
	CreateLogGroup(
		ctx context.Context,
		params *cloudwatchlogs.CreateLogGroupInput,
		optFns ...func(*cloudwatchlogs.Options),
	) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(
		ctx context.Context,
		params *cloudwatchlogs.CreateLogStreamInput,
		optFns ...func(*cloudwatchlogs.Options),
	) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(
		ctx context.Context,
		params *cloudwatchlogs.PutLogEventsInput,
		optFns ...func(*cloudwatchlogs.Options),
	) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// Publisher writes dispatch outcomes to a cloudwatch log group,
// one stream per job id
type Publisher struct {
	LogsAPI LogsAPI
	Group   string
}

// NewPublisher creates a Publisher for the given log group
func NewPublisher(cfg aws.Config, group string) *Publisher {
	return &Publisher{
		LogsAPI: cloudwatchlogs.NewFromConfig(cfg),
		Group:   group,
	}
}

// PublishOutcome writes one JSON event describing the outcome of a
// dispatch. The log group and stream are created on first use
func (p *Publisher) PublishOutcome(ctx context.Context, outcome *dispatch.Outcome) error {
	_, err := p.LogsAPI.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: &p.Group,
	})
	if err != nil && !alreadyExists(err) {
		return err
	}

	stream := outcome.JobID
	_, err = p.LogsAPI.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  &p.Group,
		LogStreamName: &stream,
	})
	if err != nil && !alreadyExists(err) {
		return err
	}

	payload, err := json.Marshal(outcome)
	if err != nil {
		return err
	}

	timestamp := time.Now().UnixNano() / int64(time.Millisecond)
	_, err = p.LogsAPI.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  &p.Group,
		LogStreamName: &stream,
		LogEvents: []types.InputLogEvent{
			{
				Message:   aws.String(string(payload)),
				Timestamp: aws.Int64(timestamp),
			},
		},
	})
	if err != nil {
		return err
	}

	return nil
}

func alreadyExists(err error) bool {
	var exists *types.ResourceAlreadyExistsException
	return errors.As(err, &exists)
}
