package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSQueue is a task queue backed by AWS SQS. SQS gives at-least-once
// delivery: a message not deleted before its visibility timeout expires is
// redelivered.
type SQSQueue struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSQueue creates an SQS-backed queue using the default AWS credential
// chain and the given queue URL
func NewSQSQueue(ctx context.Context, queueURL string) (*SQSQueue, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SQSQueue{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}, nil
}

// Enqueue sends one task message to the queue
func (q *SQSQueue) Enqueue(ctx context.Context, task string, args ...string) error {
	body, err := json.Marshal(Message{Task: task, Args: args})
	if err != nil {
		return fmt.Errorf("encode task message: %w", err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task, err)
	}
	return nil
}

// Receive long-polls the queue for up to 10 messages
func (q *SQSQueue) Receive(ctx context.Context) ([]Delivery, error) {
	output, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     10,
	})
	if err != nil {
		return nil, fmt.Errorf("receive messages: %w", err)
	}

	deliveries := make([]Delivery, 0, len(output.Messages))
	for _, m := range output.Messages {
		receiptHandle := m.ReceiptHandle

		var msg Message
		if m.Body != nil {
			if err := json.Unmarshal([]byte(*m.Body), &msg); err != nil {
				// Malformed message; drop it rather than redeliver forever.
				q.delete(ctx, receiptHandle)
				continue
			}
		}

		deliveries = append(deliveries, Delivery{
			Message: msg,
			Ack: func(ctx context.Context) error {
				return q.delete(ctx, receiptHandle)
			},
			// Leaving the message untouched lets the visibility timeout
			// expire and SQS redeliver it.
			Nack: func(context.Context) error { return nil },
		})
	}
	return deliveries, nil
}

func (q *SQSQueue) delete(ctx context.Context, receiptHandle *string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
