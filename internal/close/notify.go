package close

import (
	"context"
	"fmt"
	"time"
)

// NotificationKind classifies closing reminders.
type NotificationKind string

const (
	NotificationReminder   NotificationKind = "reminder"
	NotificationOverdue    NotificationKind = "overdue"
	NotificationEscalation NotificationKind = "escalation"
)

// Notification is one message the notifier should deliver.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Period    Period           `json:"period"`
	DaysToEnd int              `json:"days_to_end"`
	Subject   string           `json:"subject"`
	Body      string           `json:"body"`
}

// PlanNotifications decides which Open periods need a reminder, an overdue
// notice, or an escalation on day today. With no escalation delay the
// escalation goes out on the end date itself, unless a reminder is due then.
func PlanNotifications(cfg Config, periods []Period, today time.Time) []Notification {
	if !cfg.EnableEmailNotifications {
		return nil
	}
	day := truncateDay(today)
	var out []Notification
	for _, p := range periods {
		if p.Status != PeriodStatusOpen {
			continue
		}
		daysToEnd := int(truncateDay(p.EndDate).Sub(day).Hours() / 24)
		var kind NotificationKind
		switch {
		case daysToEnd == cfg.ReminderDaysBeforeEnd && daysToEnd >= 0:
			kind = NotificationReminder
		case daysToEnd == -cfg.EscalationDaysAfterEnd:
			kind = NotificationEscalation
		case daysToEnd < 0 && daysToEnd > -cfg.EscalationDaysAfterEnd:
			kind = NotificationOverdue
		default:
			continue
		}
		out = append(out, newNotification(kind, p, daysToEnd))
	}
	return out
}

func newNotification(kind NotificationKind, p Period, daysToEnd int) Notification {
	n := Notification{Kind: kind, Period: p, DaysToEnd: daysToEnd}
	end := p.EndDate.Format("2006-01-02")
	switch kind {
	case NotificationReminder:
		n.Subject = fmt.Sprintf("Reminder: accounting period %s ends in %d day(s)", p.PeriodName, daysToEnd)
		n.Body = fmt.Sprintf("Accounting period %s for %s ends on %s. Please prepare to close it.", p.PeriodName, p.Company, end)
	case NotificationOverdue:
		n.Subject = fmt.Sprintf("Overdue: accounting period %s is still open", p.PeriodName)
		n.Body = fmt.Sprintf("Accounting period %s for %s ended on %s, %d day(s) ago, and has not been closed.", p.PeriodName, p.Company, end, -daysToEnd)
	case NotificationEscalation:
		n.Subject = fmt.Sprintf("Escalation: accounting period %s not closed", p.PeriodName)
		n.Body = fmt.Sprintf("Accounting period %s for %s ended on %s and remains open after %d day(s). Escalating to management.", p.PeriodName, p.Company, end, -daysToEnd)
	}
	return n
}

// ScanNotifications plans notifications for every Open period, using each
// company's own configuration.
func (s *Service) ScanNotifications(ctx context.Context, today time.Time) ([]Notification, error) {
	periods, err := s.repo.ListPeriods(ctx, PeriodFilter{Status: PeriodStatusOpen, Limit: 10000})
	if err != nil {
		return nil, err
	}
	byCompany := make(map[string][]Period)
	var companies []string
	for _, p := range periods {
		if _, ok := byCompany[p.Company]; !ok {
			companies = append(companies, p.Company)
		}
		byCompany[p.Company] = append(byCompany[p.Company], p)
	}
	var out []Notification
	for _, company := range companies {
		cfg, err := s.Config(ctx, company)
		if err != nil {
			return nil, err
		}
		out = append(out, PlanNotifications(cfg, byCompany[company], today)...)
	}
	return out, nil
}
