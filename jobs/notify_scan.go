package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/periodclose/internal/close"
	jobmetrics "github.com/odyssey-erp/periodclose/internal/jobs"
)

// NotificationScanner plans closing notifications for a day.
type NotificationScanner interface {
	ScanNotifications(ctx context.Context, today time.Time) ([]close.Notification, error)
}

// MailEnqueuer submits outgoing mail.
type MailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// NotifyScanJob turns planned closing notifications into mail tasks.
type NotifyScanJob struct {
	Scanner    NotificationScanner
	Mail       MailEnqueuer
	Recipients []string
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	clock      func() time.Time
}

// NewNotifyScanJob initialises the notification scan handler.
func NewNotifyScanJob(scanner NotificationScanner, mail MailEnqueuer, recipients []string, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotifyScanJob {
	return &NotifyScanJob{
		Scanner:    scanner,
		Mail:       mail,
		Recipients: recipients,
		Logger:     logger,
		Metrics:    metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the scan.
func (j *NotifyScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Scanner == nil {
		return errors.New("notify scan: handler not configured")
	}
	var payload NotifyScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("notify scan: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	today := payload.Date
	if today.IsZero() {
		today = j.clock()
	}

	tracker := j.Metrics.Track(TaskPeriodNotifyScan)
	n, err := j.Run(ctx, today)
	return tracker.End(j.report(today, n, err))
}

// Run plans notifications for today and enqueues one mail per recipient.
func (j *NotifyScanJob) Run(ctx context.Context, today time.Time) (int, error) {
	notes, err := j.Scanner.ScanNotifications(ctx, today)
	if err != nil {
		return 0, err
	}
	logger := j.logger()
	counts := make(map[close.NotificationKind]int)
	sent := 0
	for _, n := range notes {
		logger.Info("closing notification",
			slog.String("kind", string(n.Kind)),
			slog.String("company", n.Period.Company),
			slog.String("period", n.Period.Name),
			slog.Int("days_to_end", n.DaysToEnd),
		)
		if j.Mail == nil {
			continue
		}
		for _, to := range j.Recipients {
			if _, err := j.Mail.EnqueueSendEmail(ctx, SendEmailPayload{To: to, Subject: n.Subject, Body: n.Body}); err != nil {
				return sent, fmt.Errorf("notify scan: enqueue %s: %w", n.Period.Name, err)
			}
			sent++
		}
		counts[n.Kind]++
	}
	for kind, c := range counts {
		j.Metrics.AddNotifications(string(kind), c)
	}
	return sent, nil
}

func (j *NotifyScanJob) report(today time.Time, sent int, err error) error {
	logger := j.logger().With(slog.String("date", today.Format("2006-01-02")))
	if err != nil {
		logger.Error("notify scan failed", slog.Any("error", err))
		return err
	}
	logger.Info("notify scan completed", slog.Int("mails", sent))
	return nil
}

func (j *NotifyScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
