package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault carries period scans.
	QueueDefault = "default"
	// QueueMail carries outgoing mail.
	QueueMail = "mail"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskPeriodNotifyScan plans closing reminders for every open period.
	TaskPeriodNotifyScan = "period:notify-scan"
)

// Queues lists every queue the worker consumes, with its priority weight.
var Queues = map[string]int{
	QueueDefault: 3,
	QueueMail:    1,
}

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NotifyScanPayload optionally pins the scan date; zero means today (UTC).
type NotifyScanPayload struct {
	Date time.Time `json:"date,omitempty"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.Queue(QueueMail), asynq.MaxRetry(5)), nil
}

// NewNotifyScanTask constructs the periodic notification scan task.
func NewNotifyScanTask(payload NotifyScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPeriodNotifyScan, data,
		asynq.Queue(QueueDefault), asynq.MaxRetry(3), asynq.Timeout(5*time.Minute)), nil
}

// MailHandler delivers TaskTypeSendEmail tasks through Mailer. Without a
// Mailer the message is only logged.
type MailHandler struct {
	Mailer Mailer
	Logger *slog.Logger
}

// Handle processes TaskTypeSendEmail tasks.
func (h MailHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("mail: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("mail: empty recipient: %w", asynq.SkipRetry)
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{slog.String("to", payload.To), slog.String("subject", payload.Subject)}
	if h.Mailer == nil {
		logger.InfoContext(ctx, "mail delivery disabled, logging only", attrs...)
		return nil
	}
	if err := h.Mailer.Send(ctx, payload); err != nil {
		return fmt.Errorf("mail: send to %s: %w", payload.To, err)
	}
	logger.InfoContext(ctx, "mail sent", attrs...)
	return nil
}
