package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"github.com/arsalyy/greeka-todo-api/domain"
)

// Publisher delivers a single task event.
type Publisher interface {
	Publish(ctx context.Context, ev domain.TaskEvent) error
}

type queueClient interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// QueuePublisher writes one JSON message per event to an Azure Storage queue.
type QueuePublisher struct {
	queue queueClient
}

// NewQueuePublisher connects to the named queue.
func NewQueuePublisher(connStr, queueName string) (*QueuePublisher, error) {
	if connStr == "" || queueName == "" {
		return nil, errors.New("events: queue connection string and name are required")
	}
	q, err := NewQueueClient(connStr, queueName)
	if err != nil {
		return nil, err
	}
	return &QueuePublisher{queue: q}, nil
}

// NewQueueClient builds a queue client with the retry policy used for
// event delivery.
func NewQueueClient(connStr, queueName string) (*azqueue.QueueClient, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: 30 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &opts)
	if err != nil {
		return nil, fmt.Errorf("events: queue client: %w", err)
	}
	return q, nil
}

// EnsureQueue creates the queue, tolerating one that already exists.
func EnsureQueue(ctx context.Context, q *azqueue.QueueClient) error {
	if _, err := q.Create(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == "QueueAlreadyExists" {
			return nil
		}
		return err
	}
	return nil
}

func (p *QueuePublisher) Publish(ctx context.Context, ev domain.TaskEvent) error {
	data, err := sonic.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", ev.Type, err)
	}
	if _, err := p.queue.EnqueueMessage(ctx, string(data), nil); err != nil {
		return fmt.Errorf("events: enqueue %s: %w", ev.Type, err)
	}
	return nil
}
