// Package jobs wires background work through Asynq: periodic duplicate scans
// over the movement ledger and payment-method cache refreshes.
package jobs

import (
	"context"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDuplicateScan scans the ledger for heuristic duplicate groups.
	TaskDuplicateScan = "movements:duplicate_scan"
	// TaskMethodsRefresh warms the payment-method display-name cache.
	TaskMethodsRefresh = "methods:refresh"
)

// NewDuplicateScanTask constructs the duplicate-scan task.
func NewDuplicateScanTask() *asynq.Task {
	return asynq.NewTask(TaskDuplicateScan, nil)
}

// NewMethodsRefreshTask constructs the cache-refresh task.
func NewMethodsRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskMethodsRefresh, nil)
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueDuplicateScan enqueues one duplicate scan, typically right after a
// forced save.
func (c *Client) EnqueueDuplicateScan(ctx context.Context) error {
	_, err := c.client.EnqueueContext(ctx, NewDuplicateScanTask(), asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
