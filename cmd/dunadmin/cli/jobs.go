package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/dunvault/dunvault/jobs"
)

// JobsCLI wraps manual management helpers for asynq jobs.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	switch name {
	case jobs.TaskDiagnosticsDUNs:
		return c.client.EnqueueContext(ctx, jobs.NewDiagnosticsTask(), asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(1))
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
}

// InspectQueues reports backlog for every queue the worker consumes.
func (c *JobsCLI) InspectQueues(ctx context.Context) ([]jobs.QueueHealth, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	return jobs.Snapshot(c.inspector)
}

func newJobsCmd(backend Backend) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	open := func(cmd *cobra.Command) (*JobsCLI, error) {
		if backend == nil {
			return nil, errors.New("no backend configured")
		}
		return backend.Jobs(cmd.Context())
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "trigger <task>",
		Short: "Enqueue a job now (supported: " + jobs.TaskDiagnosticsDUNs + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open(cmd)
			if err != nil {
				return err
			}
			info, err := c.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show queue depth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open(cmd)
			if err != nil {
				return err
			}
			stats, err := c.InspectQueues(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(tw, "QUEUE\tPENDING\tRETRY\n")
			for _, s := range stats {
				printf(tw, "%s\t%d\t%d\n", s.Queue, s.Pending, s.Retry)
			}
			return tw.Flush()
		},
	})
	return cmd
}
