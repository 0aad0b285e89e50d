package close

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// PostingCheck asks whether a ledger posting dated PostingDate may proceed.
type PostingCheck struct {
	Company     string    `json:"company" validate:"required"`
	PostingDate time.Time `json:"posting_date" validate:"required"`
	Actor       string    `json:"actor,omitempty"`
	Transaction string    `json:"transaction,omitempty"`
	Doctype     string    `json:"doctype,omitempty" validate:"required_with=Transaction"`
}

// PostingDecision is the guard's answer.
type PostingDecision struct {
	Allowed bool    `json:"allowed"`
	Reason  string  `json:"reason,omitempty"`
	Period  *Period `json:"period,omitempty"`
	Logged  bool    `json:"logged"`
}

// CheckPosting enforces period restrictions for a posting date. Postings into
// a Closed period are allowed only for privileged actors and are audited.
func (s *Service) CheckPosting(ctx context.Context, in PostingCheck) (PostingDecision, error) {
	if err := ValidateInput(in); err != nil {
		return PostingDecision{}, err
	}
	period, found, err := s.repo.PeriodCovering(ctx, in.Company, in.PostingDate)
	if err != nil {
		return PostingDecision{}, err
	}
	if !found {
		return PostingDecision{Allowed: true}, nil
	}
	decision := PostingDecision{Period: &period}
	actor := actorFrom(ctx)
	if in.Actor != "" {
		actor.ID = in.Actor
	}

	switch period.Status {
	case PeriodStatusOpen:
		decision.Allowed = true
		return decision, nil
	case PeriodStatusPermanentlyClosed:
		decision.Reason = fmt.Sprintf("period %s is permanently closed; no postings are allowed", period.PeriodName)
		return decision, nil
	case PeriodStatusClosed:
		cfg, err := s.Config(ctx, in.Company)
		if err != nil {
			return PostingDecision{}, err
		}
		ok, err := s.hasAnyRole(ctx, actor.ID, cfg.ReopenRole, RoleSystemManager, RoleAdministrator)
		if err != nil {
			return PostingDecision{}, err
		}
		if !ok {
			decision.Reason = fmt.Sprintf("period %s is closed; role %s is required to post", period.PeriodName, cfg.ReopenRole)
			return decision, nil
		}
		decision.Allowed = true
		decision.Reason = fmt.Sprintf("period %s is closed; posting allowed for privileged user", period.PeriodName)
		if strings.TrimSpace(in.Transaction) == "" {
			return decision, nil
		}
		_, err = s.RecordTransactionModified(ctx, TransactionModifiedInput{
			Name:                period.Name,
			Company:             period.Company,
			AffectedTransaction: in.Transaction,
			TransactionDoctype:  in.Doctype,
			Actor:               actor.ID,
			Reason:              "posting into closed period",
		})
		if err != nil {
			s.logger.Error("record closed period posting", slog.String("transaction", in.Transaction), slog.Any("error", err))
			return PostingDecision{}, err
		}
		decision.Logged = true
		return decision, nil
	default:
		return PostingDecision{}, fmt.Errorf("close: unknown period status %q", period.Status)
	}
}
