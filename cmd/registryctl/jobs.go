package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/civic-registry/console/jobs"
)

// jobsCLI wraps manual management helpers for the option-cache jobs.
type jobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

func newJobsCLI(redisAddr string) (*jobsCLI, error) {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client, err := jobs.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &jobsCLI{client: client, inspector: asynq.NewInspector(opts)}, nil
}

// Close releases underlying resources.
func (c *jobsCLI) Close() error {
	return errors.Join(c.inspector.Close(), c.client.Close())
}

// queueStats summarises the current queue state.
type queueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Failed    int
}

func (c *jobsCLI) inspectQueue() (queueStats, error) {
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return queueStats{}, err
	}
	stats := queueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Failed = info.Failed
	}
	return stats, nil
}

func newJobsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage option-cache background jobs",
	}
	withCLI := func(run func(ctx context.Context, c *jobsCLI, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			c, err := newJobsCLI(e.cfg.RedisAddr)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			return run(cmd.Context(), c, cmd, args)
		}
	}

	var resources []string
	var concurrency int
	warm := &cobra.Command{
		Use:   "warm",
		Short: "Enqueue an option warm-up",
		Args:  cobra.NoArgs,
		RunE: withCLI(func(ctx context.Context, c *jobsCLI, cmd *cobra.Command, _ []string) error {
			info, err := c.client.EnqueueWarmOptions(ctx, jobs.WarmOptionsPayload{Resources: resources, Concurrency: concurrency})
			if errors.Is(err, asynq.ErrDuplicateTask) {
				fmt.Fprintln(cmd.OutOrStdout(), "a warm-up is already pending")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (%s)\n", info.ID, info.Type)
			return nil
		}),
	}
	warm.Flags().StringSliceVar(&resources, "resource", nil, "resources to warm; defaults to every root level")
	warm.Flags().IntVar(&concurrency, "concurrency", 0, "parallel option fetches")

	invalidate := &cobra.Command{
		Use:   "invalidate <resource>...",
		Short: "Enqueue an option invalidation",
		Args:  cobra.MinimumNArgs(1),
		RunE: withCLI(func(ctx context.Context, c *jobsCLI, cmd *cobra.Command, args []string) error {
			info, err := c.client.EnqueueInvalidateOptions(ctx, jobs.InvalidateOptionsPayload{Resources: args})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (%s)\n", info.ID, info.Type)
			return nil
		}),
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show queue statistics",
		Args:  cobra.NoArgs,
		RunE: withCLI(func(_ context.Context, c *jobsCLI, cmd *cobra.Command, _ []string) error {
			s, err := c.inspectQueue()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d failed_today=%d\n",
				s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Failed)
			return nil
		}),
	}

	cmd.AddCommand(warm, invalidate, stats)
	return cmd
}
