package jobs

import (
	"errors"

	"github.com/hibiken/asynq"
)

var errRedisAddr = errors.New("jobs: redis address required")

// Client enqueues tasks from the API process.
type Client struct {
	client *asynq.Client
}

// NewClient connects a client to Redis.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	if redisOpts.Addr == "" {
		return nil, errRedisAddr
	}
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// Asynq returns the underlying client for recorders that enqueue directly.
func (c *Client) Asynq() *asynq.Client {
	return c.client
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
