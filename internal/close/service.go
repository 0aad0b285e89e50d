package close

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/odyssey-erp/periodclose/internal/shared"
)

var tracer = otel.Tracer("periodclose/close")

// Dependencies wires the collaborators required by Service.
type Dependencies struct {
	Repo     RepositoryPort
	Ledger   LedgerQuery
	Poster   JournalPoster
	Roles    RoleChecker
	Locker   Locker
	Logger   *slog.Logger
	Observer Observer
	Retry    RetryPolicy
	Checks   []Check
}

// Service orchestrates the accounting period lifecycle.
type Service struct {
	repo     RepositoryPort
	ledger   LedgerQuery
	poster   JournalPoster
	roles    RoleChecker
	locker   Locker
	engine   *Engine
	retry    RetryPolicy
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// NewService constructs a Service instance.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retry := deps.Retry
	if retry.Attempts == 0 {
		retry = DefaultRetryPolicy()
	}
	locker := deps.Locker
	if locker == nil {
		locker = shared.NewMemoryLocker()
	}
	return &Service{
		repo:     deps.Repo,
		ledger:   deps.Ledger,
		poster:   deps.Poster,
		roles:    deps.Roles,
		locker:   locker,
		engine:   NewEngine(deps.Ledger, retry, deps.Checks...),
		retry:    retry,
		logger:   logger,
		observer: deps.Observer,
		now:      time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreatePeriod inserts a new Open period after validating range and overlap.
func (s *Service) CreatePeriod(ctx context.Context, in CreatePeriodInput) (Period, error) {
	ctx, span := tracer.Start(ctx, "close.create", periodAttrs(in.Company, in.PeriodName))
	defer span.End()

	in.PeriodName = strings.TrimSpace(in.PeriodName)
	in.Company = strings.TrimSpace(in.Company)
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && !truncateDay(in.StartDate).Before(truncateDay(in.EndDate)) {
		return Period{}, s.finish(ctx, span, ActionCreated, ErrDateRangeInvalid)
	}
	if err := ValidateInput(in); err != nil {
		return Period{}, s.finish(ctx, span, ActionCreated, err)
	}
	actor := actorFrom(ctx)
	now := s.now().UTC()
	fiscalYear := in.FiscalYear
	if fiscalYear == "" {
		fiscalYear = strconv.Itoa(in.StartDate.Year())
	}
	period := Period{
		Name:       in.PeriodName,
		PeriodName: in.PeriodName,
		Company:    in.Company,
		FiscalYear: fiscalYear,
		StartDate:  truncateDay(in.StartDate),
		EndDate:    truncateDay(in.EndDate),
		PeriodType: in.PeriodType,
		Status:     PeriodStatusOpen,
		Remarks:    in.Remarks,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		conflict, err := tx.PeriodRangeConflict(ctx, period.Company, period.StartDate, period.EndDate)
		if err != nil {
			return err
		}
		if conflict {
			return ErrOverlappingPeriod
		}
		if err := tx.InsertPeriod(ctx, period); err != nil {
			return err
		}
		return tx.InsertLog(ctx, s.newLog(ActionCreated, period, actor, nil, SnapshotOf(period)))
	})
	if err != nil {
		return Period{}, s.finish(ctx, span, ActionCreated, err)
	}
	return period, s.finish(ctx, span, ActionCreated, nil)
}

// GetPeriod returns a single period.
func (s *Service) GetPeriod(ctx context.Context, company, name string) (Period, error) {
	return s.repo.GetPeriod(ctx, company, name)
}

// ListPeriods returns periods matching the filter.
func (s *Service) ListPeriods(ctx context.Context, filter PeriodFilter) ([]Period, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.ListPeriods(ctx, filter)
}

// ValidatePeriod runs the rule engine without changing state.
func (s *Service) ValidatePeriod(ctx context.Context, company, name string) (ValidationReport, error) {
	ctx, span := tracer.Start(ctx, "close.validate", periodAttrs(company, name))
	defer span.End()

	period, err := s.repo.GetPeriod(ctx, company, name)
	if err != nil {
		return ValidationReport{}, s.fail(ctx, span, "validate", err)
	}
	cfg, err := s.Config(ctx, company)
	if err != nil {
		return ValidationReport{}, s.fail(ctx, span, "validate", err)
	}
	report, err := s.engine.Run(ctx, period, cfg)
	if err != nil {
		return ValidationReport{}, s.fail(ctx, span, "validate", err)
	}
	s.observeReport(report)
	span.SetAttributes(attribute.String("close.verdict", string(report.Verdict)))
	return report, nil
}

// ClosePeriod moves an Open period to Closed, sweeping nominal balances into
// retained earnings. Force bypasses error-severity checks but never the role gate.
func (s *Service) ClosePeriod(ctx context.Context, in ClosePeriodInput) (Period, error) {
	if err := ValidateInput(in); err != nil {
		return Period{}, err
	}
	return s.guarded(ctx, ActionClosed, in.Company, in.Name, func(ctx context.Context) (Period, error) {
		actor := actorFrom(ctx)
		cfg, err := s.Config(ctx, in.Company)
		if err != nil {
			return Period{}, err
		}
		period, err := s.repo.GetPeriod(ctx, in.Company, in.Name)
		if err != nil {
			return Period{}, err
		}
		if err := ValidateTransition(period.Status, PeriodStatusClosed); err != nil {
			return Period{}, err
		}
		if err := s.requireRole(ctx, actor, cfg.ClosingRole); err != nil {
			return Period{}, err
		}
		report, err := s.engine.Run(ctx, period, cfg)
		if err != nil {
			return Period{}, err
		}
		s.observeReport(report)
		blocked := report.Blocked()
		if len(blocked) > 0 && !in.Force {
			return Period{}, &ValidationBlockedError{Results: blocked}
		}
		retained, err := s.retainedEarnings(ctx, cfg)
		if err != nil {
			return Period{}, err
		}
		balances, err := s.nominalBalances(ctx, period)
		if err != nil {
			return Period{}, err
		}
		entry, ok, err := BuildClosingEntry(period, retained, balances)
		if err != nil {
			return Period{}, err
		}
		var ref string
		if ok {
			err = Retry(ctx, s.retry, "submit closing journal", func(ctx context.Context) error {
				var e error
				ref, e = s.poster.SubmitJournalEntry(ctx, entry)
				return e
			})
			if err != nil {
				return Period{}, err
			}
		}

		now := s.now().UTC()
		after := period
		after.Status = PeriodStatusClosed
		after.ClosedBy = actor.ID
		after.ClosedOn = &now
		after.ClosingJournalEntry = ref
		after.Version = period.Version + 1
		after.UpdatedAt = now

		log := s.newLog(ActionClosed, after, actor, SnapshotOf(period), SnapshotOf(after))
		if len(blocked) > 0 {
			log.Reason = "closed with force override"
			for _, r := range blocked {
				log.Details = append(log.Details, r.CheckName)
			}
		}
		for _, w := range report.Warnings() {
			log.Details = append(log.Details, "warning: "+w.CheckName)
		}

		err = s.commit(ctx, period, after, log, nil)
		if err != nil {
			if ref != "" {
				s.compensate(ctx, "void orphaned closing journal", ref, s.poster.VoidJournalEntry)
			}
			return Period{}, err
		}
		return after, nil
	})
}

// ReopenPeriod moves a Closed period back to Open and voids its closing journal.
func (s *Service) ReopenPeriod(ctx context.Context, in ReopenPeriodInput) (Period, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if in.Reason == "" {
		return Period{}, ErrMissingReason
	}
	if err := ValidateInput(in); err != nil {
		return Period{}, err
	}
	return s.guarded(ctx, ActionReopened, in.Company, in.Name, func(ctx context.Context) (Period, error) {
		actor := actorFrom(ctx)
		cfg, err := s.Config(ctx, in.Company)
		if err != nil {
			return Period{}, err
		}
		period, err := s.repo.GetPeriod(ctx, in.Company, in.Name)
		if err != nil {
			return Period{}, err
		}
		if err := requireClosed(period.Status, PeriodStatusOpen); err != nil {
			return Period{}, err
		}
		if err := s.requireRole(ctx, actor, cfg.ReopenRole); err != nil {
			return Period{}, err
		}
		later, found, err := s.repo.LaterClosedPeriod(ctx, period.Company, period.EndDate)
		if err != nil {
			return Period{}, err
		}
		if found {
			return Period{}, fmt.Errorf("%w: %s is %s", ErrLaterPeriodClosed, later.PeriodName, later.Status)
		}

		now := s.now().UTC()
		after := period.clearClosing()
		after.Status = PeriodStatusOpen
		after.Version = period.Version + 1
		after.UpdatedAt = now

		log := s.newLog(ActionReopened, after, actor, SnapshotOf(period), SnapshotOf(after))
		log.Reason = in.Reason
		if period.ClosingJournalEntry != "" {
			log.Details = []string{"voided " + period.ClosingJournalEntry}
		}

		// The void runs last inside the transaction so a rejected void leaves
		// the period Closed with no Reopened record. A void that succeeded
		// before a failed commit is restored.
		var voided bool
		err = s.commit(ctx, period, after, log, func(ctx context.Context) error {
			if period.ClosingJournalEntry == "" {
				return nil
			}
			err := Retry(ctx, s.retry, "void closing journal", func(ctx context.Context) error {
				return s.poster.VoidJournalEntry(ctx, period.ClosingJournalEntry)
			})
			voided = err == nil
			return err
		})
		if err != nil {
			if voided {
				s.compensate(ctx, "restore voided closing journal", period.ClosingJournalEntry, s.poster.RestoreJournalEntry)
			}
			return Period{}, err
		}
		return after, nil
	})
}

// PermanentlyClosePeriod seals a Closed period. No transition leaves Permanently Closed.
func (s *Service) PermanentlyClosePeriod(ctx context.Context, in PermanentCloseInput) (Period, error) {
	if in.Confirmation != PermanentCloseConfirmation {
		return Period{}, ErrConfirmationMismatch
	}
	if err := ValidateInput(in); err != nil {
		return Period{}, err
	}
	return s.guarded(ctx, ActionPermanentlyClosed, in.Company, in.Name, func(ctx context.Context) (Period, error) {
		actor := actorFrom(ctx)
		period, err := s.repo.GetPeriod(ctx, in.Company, in.Name)
		if err != nil {
			return Period{}, err
		}
		if err := requireClosed(period.Status, PeriodStatusPermanentlyClosed); err != nil {
			return Period{}, err
		}
		if err := s.requireRole(ctx, actor, RoleSystemManager); err != nil {
			return Period{}, err
		}
		now := s.now().UTC()
		after := period
		after.Status = PeriodStatusPermanentlyClosed
		after.PermanentlyClosedBy = actor.ID
		after.PermanentlyClosedOn = &now
		after.Version = period.Version + 1
		after.UpdatedAt = now

		log := s.newLog(ActionPermanentlyClosed, after, actor, SnapshotOf(period), SnapshotOf(after))
		if err := s.commit(ctx, period, after, log, nil); err != nil {
			return Period{}, err
		}
		return after, nil
	})
}

// RecordTransactionModified appends a forensic record for an out-of-band
// ledger edit. It never changes the period status.
func (s *Service) RecordTransactionModified(ctx context.Context, in TransactionModifiedInput) (Log, error) {
	ctx, span := tracer.Start(ctx, "close.transaction_modified", periodAttrs(in.Company, in.Name))
	defer span.End()

	if err := ValidateInput(in); err != nil {
		return Log{}, s.finish(ctx, span, ActionTransactionModified, err)
	}
	actor := actorFrom(ctx)
	if in.Actor != "" {
		actor.ID = in.Actor
	}
	period, err := s.repo.GetPeriod(ctx, in.Company, in.Name)
	if err != nil {
		return Log{}, s.finish(ctx, span, ActionTransactionModified, err)
	}
	snapshot := SnapshotOf(period)
	log := s.newLog(ActionTransactionModified, period, actor, snapshot, snapshot)
	log.AffectedTransaction = in.AffectedTransaction
	log.TransactionDoctype = in.TransactionDoctype
	log.Reason = in.Reason
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertLog(ctx, log)
	})
	if err != nil {
		return Log{}, s.finish(ctx, span, ActionTransactionModified, err)
	}
	s.logger.Warn("transaction modified in closed period",
		slog.String("company", period.Company),
		slog.String("period", period.Name),
		slog.String("status", string(period.Status)),
		slog.String("transaction", in.AffectedTransaction),
		slog.String("doctype", in.TransactionDoctype),
		slog.String("actor", actor.ID),
	)
	return log, s.finish(ctx, span, ActionTransactionModified, nil)
}

// PreviewClosing builds the closing entry ClosePeriod would post for the
// period's current balances. Nothing is submitted and the period is unchanged.
func (s *Service) PreviewClosing(ctx context.Context, company, name string) (ClosingPreview, error) {
	ctx, span := tracer.Start(ctx, "close.preview", periodAttrs(company, name))
	defer span.End()

	period, err := s.repo.GetPeriod(ctx, company, name)
	if err != nil {
		return ClosingPreview{}, s.fail(ctx, span, "preview", err)
	}
	cfg, err := s.Config(ctx, company)
	if err != nil {
		return ClosingPreview{}, s.fail(ctx, span, "preview", err)
	}
	retained, err := s.retainedEarnings(ctx, cfg)
	if err != nil {
		return ClosingPreview{}, s.fail(ctx, span, "preview", err)
	}
	balances, err := s.nominalBalances(ctx, period)
	if err != nil {
		return ClosingPreview{}, s.fail(ctx, span, "preview", err)
	}
	entry, _, err := BuildClosingEntry(period, retained, balances)
	if err != nil {
		return ClosingPreview{}, s.fail(ctx, span, "preview", err)
	}
	income, expense := NominalTotals(balances)
	preview := ClosingPreview{
		Period:                  period,
		Lines:                   entry.Lines,
		TotalIncome:             income,
		TotalExpense:            expense,
		NetIncome:               income.Sub(expense),
		RetainedEarningsAccount: retained,
	}
	if preview.Lines == nil {
		preview.Lines = []JournalLine{}
	}
	return preview, nil
}

// GetClosingSummary reports the balances behind a period's closing entry.
func (s *Service) GetClosingSummary(ctx context.Context, company, name string) (ClosingSummary, error) {
	period, err := s.repo.GetPeriod(ctx, company, name)
	if err != nil {
		return ClosingSummary{}, err
	}
	var balances []AccountBalance
	err = Retry(ctx, s.retry, "fetch balances", func(ctx context.Context) error {
		var e error
		balances, e = s.ledger.AccountBalances(ctx, period.Company, period.Range())
		return e
	})
	if err != nil {
		return ClosingSummary{}, err
	}
	var lines []JournalLine
	if period.ClosingJournalEntry != "" {
		err = Retry(ctx, s.retry, "fetch closing journal lines", func(ctx context.Context) error {
			var e error
			lines, e = s.ledger.JournalLines(ctx, period.ClosingJournalEntry)
			return e
		})
		if err != nil {
			return ClosingSummary{}, err
		}
	}
	summary := ClosingSummary{
		Period:         period,
		ClosingJournal: period.ClosingJournalEntry,
		ClosingLines:   lines,
		Balances:       make([]AccountBalance, 0, len(balances)),
		NetIncome:      NetIncome(balances),
	}
	for _, b := range balances {
		b.IsNominal = b.RootType.Nominal()
		summary.Balances = append(summary.Balances, b)
		if b.IsNominal {
			summary.Nominal = append(summary.Nominal, b)
		} else {
			summary.Real = append(summary.Real, b)
		}
	}
	return summary, nil
}

// ListAuditLog returns matching audit records, newest first, plus the total count.
func (s *Service) ListAuditLog(ctx context.Context, filter AuditFilter) ([]Log, int, error) {
	if filter.ActionType != "" && !filter.ActionType.Valid() {
		return nil, 0, &InputError{Fields: []FieldError{{Field: "action_type", Rule: "oneof", Message: "unknown action type"}}}
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, 0, ErrDateRangeInvalid
	}
	return s.repo.ListLogs(ctx, filter.Normalize())
}

// Config returns the stored configuration for company, or the defaults.
func (s *Service) Config(ctx context.Context, company string) (Config, error) {
	cfg, found, err := s.repo.GetConfig(ctx, company)
	if err != nil {
		return Config{}, err
	}
	if !found {
		return DefaultConfig(company), nil
	}
	return cfg, nil
}

// UpdateConfig applies a partial update. Only administrators may change configuration.
func (s *Service) UpdateConfig(ctx context.Context, company string, patch ConfigPatch) (Config, error) {
	if patch.Empty() {
		return Config{}, ErrNoFieldsProvided
	}
	if err := ValidateInput(patch); err != nil {
		return Config{}, err
	}
	actor := actorFrom(ctx)
	if err := s.requireRole(ctx, actor, RoleSystemManager); err != nil {
		return Config{}, err
	}
	var updated Config
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cfg, found, err := tx.LoadConfigForUpdate(ctx, company)
		if err != nil {
			return err
		}
		if !found {
			cfg = DefaultConfig(company)
		}
		updated = patch.Apply(cfg)
		updated.Company = company
		updated.UpdatedAt = s.now().UTC()
		if err := ValidateInput(updated); err != nil {
			return err
		}
		return tx.SaveConfig(ctx, updated)
	})
	if err != nil {
		return Config{}, err
	}
	s.logger.Info("period closing config updated", slog.String("company", company), slog.String("actor", actor.ID))
	return updated, nil
}

// guarded serialises transitions per period and records their outcome.
func (s *Service) guarded(ctx context.Context, action ActionType, company, name string, fn func(context.Context) (Period, error)) (Period, error) {
	ctx, span := tracer.Start(ctx, "close."+action.Label(), periodAttrs(company, name))
	defer span.End()

	unlock, err := s.locker.TryLock(ctx, shared.PeriodLockKey(company, name))
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			err = fmt.Errorf("%w: %s/%s", ErrConflict, company, name)
		}
		return Period{}, s.finish(ctx, span, action, err)
	}
	defer unlock()

	period, err := fn(ctx)
	if err != nil {
		return Period{}, s.finish(ctx, span, action, err)
	}
	s.logger.Info("period transition",
		slog.String("action", string(action)),
		slog.String("company", company),
		slog.String("period", name),
		slog.String("status", string(period.Status)),
	)
	return period, s.finish(ctx, span, action, nil)
}

// commit writes the status change and its audit record atomically. The
// version guard rejects writes based on a stale read.
func (s *Service) commit(ctx context.Context, before, after Period, log Log, last func(context.Context) error) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LoadPeriodForUpdate(ctx, before.Company, before.Name)
		if err != nil {
			return err
		}
		if current.Version != before.Version || current.Status != before.Status {
			return fmt.Errorf("%w: period %s changed concurrently", ErrConflict, before.Name)
		}
		if err := tx.UpdatePeriod(ctx, after, before.Version); err != nil {
			return err
		}
		if err := tx.InsertLog(ctx, log); err != nil {
			return err
		}
		if last != nil {
			return last(ctx)
		}
		return nil
	})
}

// compensate undoes a ledger side effect whose period transition did not
// commit. It outlives the caller's context.
func (s *Service) compensate(ctx context.Context, op, ref string, fn func(context.Context, string) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	err := Retry(ctx, s.retry, op, func(ctx context.Context) error {
		return fn(ctx, ref)
	})
	if err != nil {
		s.logger.Error(op, slog.String("journal_entry", ref), slog.Any("error", err))
	}
}

func (s *Service) nominalBalances(ctx context.Context, period Period) ([]AccountBalance, error) {
	var balances []AccountBalance
	err := Retry(ctx, s.retry, "fetch nominal balances", func(ctx context.Context) error {
		var e error
		balances, e = s.ledger.AccountBalances(ctx, period.Company, period.Range(), RootTypeIncome, RootTypeExpense)
		return e
	})
	return balances, err
}

func (s *Service) retainedEarnings(ctx context.Context, cfg Config) (string, error) {
	if strings.TrimSpace(cfg.RetainedEarningsAccount) == "" {
		return "", fmt.Errorf("%w: not configured for %s", ErrRetainedEarnings, cfg.Company)
	}
	var account Account
	err := Retry(ctx, s.retry, "load retained earnings account", func(ctx context.Context) error {
		var e error
		account, e = s.ledger.GetAccount(ctx, cfg.Company, cfg.RetainedEarningsAccount)
		return e
	})
	if err != nil {
		return "", err
	}
	if account.RootType != RootTypeEquity {
		return "", fmt.Errorf("%w: %s has root type %s, expected %s", ErrRetainedEarnings, account.Name, account.RootType, RootTypeEquity)
	}
	if account.AccountType == AccountTypeStock {
		return "", fmt.Errorf("%w: %s is a stock account", ErrRetainedEarnings, account.Name)
	}
	if account.IsGroup {
		return "", fmt.Errorf("%w: %s is a group account", ErrRetainedEarnings, account.Name)
	}
	return account.Name, nil
}

func (s *Service) requireRole(ctx context.Context, actor shared.Actor, role string) error {
	if role == "" {
		return nil
	}
	roles := []string{role}
	if role != RoleSystemManager {
		roles = append(roles, RoleSystemManager)
	}
	ok, err := s.hasAnyRole(ctx, actor.ID, roles...)
	if err != nil {
		return err
	}
	if !ok {
		return &PrivilegeError{Actor: actor.ID, Role: role}
	}
	return nil
}

func (s *Service) hasAnyRole(ctx context.Context, actor string, roles ...string) (bool, error) {
	if actor == "" || s.roles == nil {
		return false, nil
	}
	for _, role := range roles {
		ok, err := s.roles.HasRole(ctx, actor, role)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) newLog(action ActionType, period Period, actor shared.Actor, before, after *PeriodSnapshot) Log {
	return Log{
		Name:       NewLogName(),
		Period:     period.Name,
		Company:    period.Company,
		ActionType: action,
		ActionBy:   actor.ID,
		ActionDate: s.now().UTC(),
		Before:     before,
		After:      after,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	}
}

// finish records the outcome of an action on the span, metrics, and log.
func (s *Service) finish(ctx context.Context, span trace.Span, action ActionType, err error) error {
	outcome := "success"
	if err != nil {
		kind := Classify(err)
		outcome = kind.String()
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())
		s.logFailure(ctx, string(action), kind, err)
	}
	if s.observer != nil {
		s.observer.ObserveTransition(action, outcome)
	}
	return err
}

func (s *Service) observeReport(report ValidationReport) {
	if s.observer == nil {
		return
	}
	for _, r := range report.Results {
		s.observer.ObserveCheck(r)
	}
}

func (s *Service) fail(ctx context.Context, span trace.Span, op string, err error) error {
	kind := Classify(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, kind.String())
	s.logFailure(ctx, op, kind, err)
	return err
}

func (s *Service) logFailure(ctx context.Context, op string, kind Kind, err error) {
	switch kind {
	case KindUnknown, KindTransient:
		s.logger.ErrorContext(ctx, "period operation failed",
			slog.String("op", op),
			slog.String("kind", kind.String()),
			slog.Any("error", err),
		)
	case KindValidation, KindPermission, KindConflict:
		s.logger.InfoContext(ctx, "period operation rejected",
			slog.String("op", op),
			slog.String("kind", kind.String()),
			slog.String("reason", err.Error()),
		)
	}
}

func actorFrom(ctx context.Context) shared.Actor {
	actor, _ := shared.ActorFromContext(ctx)
	return actor
}

func periodAttrs(company, name string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("period.company", company),
		attribute.String("period.name", name),
	)
}
