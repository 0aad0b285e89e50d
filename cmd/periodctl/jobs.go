package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/periodclose/jobs"
)

// jobsCLI wraps manual management helpers for the background queue.
type jobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func newJobsCLI(opt asynq.RedisClientOpt) *jobsCLI {
	return &jobsCLI{client: asynq.NewClient(opt), inspector: asynq.NewInspector(opt)}
}

// Close releases underlying resources.
func (c *jobsCLI) Close() error {
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
func (c *jobsCLI) Trigger(ctx context.Context, name string, date time.Time) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var task *asynq.Task
	var err error
	switch name {
	case jobs.TaskPeriodNotifyScan:
		task, err = jobs.NewNotifyScanTask(jobs.NotifyScanPayload{Date: date})
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// InspectQueues reports the state of every worker queue.
func (c *jobsCLI) InspectQueues() ([]jobs.QueueHealth, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	names := make([]string, 0, len(jobs.Queues))
	for q := range jobs.Queues {
		names = append(names, q)
	}
	sort.Strings(names)
	out := make([]jobs.QueueHealth, 0, len(names))
	for _, q := range names {
		info, err := c.inspector.GetQueueInfo(q)
		if err != nil {
			return nil, fmt.Errorf("jobs cli: inspect %s: %w", q, err)
		}
		out = append(out, jobs.QueueHealth{
			Queue:     q,
			Pending:   info.Pending,
			Active:    info.Active,
			Scheduled: info.Scheduled,
			Retry:     info.Retry,
			Archived:  info.Archived,
			Paused:    info.Paused,
		})
	}
	return out, nil
}

func newJobsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}

	var date string
	trigger := &cobra.Command{
		Use:   "trigger <job>",
		Short: "Enqueue a job now (supported: " + jobs.TaskPeriodNotifyScan + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			var day time.Time
			if date != "" {
				if day, err = time.ParseInLocation(dateLayout, date, time.UTC); err != nil {
					return fmt.Errorf("parsing --date: %w", err)
				}
			}
			cli := newJobsCLI(cfg.AsynqRedis())
			defer func() { _ = cli.Close() }()
			info, err := cli.Trigger(cmd.Context(), args[0], day)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	trigger.Flags().StringVar(&date, "date", "", "scan date YYYY-MM-DD, defaults to today")

	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Show queue depth for every worker queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			cli := newJobsCLI(cfg.AsynqRedis())
			defer func() { _ = cli.Close() }()
			stats, err := cli.InspectQueues()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}

	cmd.AddCommand(trigger, inspect)
	return cmd
}
