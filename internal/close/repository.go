package close

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var periodColumns = []string{
	"name", "period_name", "company", "fiscal_year", "start_date", "end_date", "period_type", "status",
	"closed_by", "closed_on", "closing_journal_entry", "permanently_closed_by", "permanently_closed_on",
	"remarks", "version", "created_at", "updated_at",
}

var configColumns = []string{
	"company", "retained_earnings_account",
	"enable_bank_reconciliation_check", "enable_draft_transaction_check", "enable_unposted_transaction_check",
	"enable_sales_invoice_check", "enable_purchase_invoice_check", "enable_inventory_check", "enable_payroll_check",
	"closing_role", "reopen_role", "reminder_days_before_end", "escalation_days_after_end",
	"enable_email_notifications", "updated_at",
}

var logColumns = []string{
	"name", "accounting_period", "company", "action_type", "action_by", "action_date", "reason",
	"before_snapshot", "after_snapshot", "affected_transaction", "transaction_doctype", "details",
	"ip_address", "user_agent",
}

// Repository persists period close state in Postgres.
type Repository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
	codec   *SnapshotCodec
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool, codec *SnapshotCodec) *Repository {
	return &Repository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		codec:   codec,
	}
}

type txRepository struct {
	tx      pgx.Tx
	builder squirrel.StatementBuilderType
	codec   *SnapshotCodec
}

// WithTx executes fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) (err error) {
	if r == nil || r.pool == nil {
		return fmt.Errorf("close: repository not initialised")
	}
	ctx, span := tracer.Start(ctx, "close.tx", trace.WithAttributes(attribute.String("db.isolation", "repeatable_read")))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err = fn(ctx, &txRepository{tx: tx, builder: r.builder, codec: r.codec}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// GetPeriod loads one period by company and name.
func (r *Repository) GetPeriod(ctx context.Context, company, name string) (Period, error) {
	query, args, err := r.builder.Select(periodColumns...).
		From("accounting_periods").
		Where(squirrel.Eq{"company": company, "name": name}).
		ToSql()
	if err != nil {
		return Period{}, err
	}
	var p Period
	if err := pgxscan.Get(ctx, r.pool, &p, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return Period{}, fmt.Errorf("%w: %s/%s", ErrPeriodNotFound, company, name)
		}
		return Period{}, err
	}
	return p, nil
}

// ListPeriods returns periods newest first.
func (r *Repository) ListPeriods(ctx context.Context, filter PeriodFilter) ([]Period, error) {
	q := r.builder.Select(periodColumns...).From("accounting_periods").OrderBy("company", "start_date DESC")
	if filter.Company != "" {
		q = q.Where(squirrel.Eq{"company": filter.Company})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	if filter.FiscalYear != "" {
		q = q.Where(squirrel.Eq{"fiscal_year": filter.FiscalYear})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	var periods []Period
	if err := pgxscan.Select(ctx, r.pool, &periods, query, args...); err != nil {
		return nil, err
	}
	return periods, nil
}

// PeriodCovering returns the most restrictive period containing date.
func (r *Repository) PeriodCovering(ctx context.Context, company string, date time.Time) (Period, bool, error) {
	d := truncateDay(date)
	query, args, err := r.builder.Select(periodColumns...).
		From("accounting_periods").
		Where(squirrel.Eq{"company": company}).
		Where(squirrel.LtOrEq{"start_date": d}).
		Where(squirrel.GtOrEq{"end_date": d}).
		OrderBy("CASE status WHEN 'Permanently Closed' THEN 0 WHEN 'Closed' THEN 1 ELSE 2 END").
		Limit(1).
		ToSql()
	if err != nil {
		return Period{}, false, err
	}
	return r.getOptional(ctx, query, args)
}

// LaterClosedPeriod returns the earliest closed period starting after the given date.
func (r *Repository) LaterClosedPeriod(ctx context.Context, company string, after time.Time) (Period, bool, error) {
	query, args, err := r.builder.Select(periodColumns...).
		From("accounting_periods").
		Where(squirrel.Eq{"company": company}).
		Where(squirrel.Gt{"start_date": truncateDay(after)}).
		Where(squirrel.Eq{"status": []string{string(PeriodStatusClosed), string(PeriodStatusPermanentlyClosed)}}).
		OrderBy("start_date").
		Limit(1).
		ToSql()
	if err != nil {
		return Period{}, false, err
	}
	return r.getOptional(ctx, query, args)
}

func (r *Repository) getOptional(ctx context.Context, query string, args []any) (Period, bool, error) {
	var p Period
	if err := pgxscan.Get(ctx, r.pool, &p, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return Period{}, false, nil
		}
		return Period{}, false, err
	}
	return p, true, nil
}

// GetConfig loads the company configuration, reporting whether one is stored.
func (r *Repository) GetConfig(ctx context.Context, company string) (Config, bool, error) {
	return loadConfig(ctx, r.pool, r.builder, company, false)
}

// ListLogs returns audit records newest first with the unpaged total.
func (r *Repository) ListLogs(ctx context.Context, filter AuditFilter) ([]Log, int, error) {
	where := squirrel.And{}
	if filter.Period != "" {
		where = append(where, squirrel.Eq{"accounting_period": filter.Period})
	}
	if filter.Company != "" {
		where = append(where, squirrel.Eq{"company": filter.Company})
	}
	if filter.ActionType != "" {
		where = append(where, squirrel.Eq{"action_type": string(filter.ActionType)})
	}
	if filter.ActionBy != "" {
		where = append(where, squirrel.Eq{"action_by": filter.ActionBy})
	}
	if filter.From != nil {
		where = append(where, squirrel.GtOrEq{"action_date": *filter.From})
	}
	if filter.To != nil {
		where = append(where, squirrel.LtOrEq{"action_date": *filter.To})
	}

	countQuery, countArgs, err := r.builder.Select("COUNT(*)").From("period_closing_logs").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := r.builder.Select(logColumns...).
		From("period_closing_logs").
		Where(where).
		OrderBy("action_date DESC", "name DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	var rows []logRow
	if err := pgxscan.Select(ctx, r.pool, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	logs := make([]Log, 0, len(rows))
	for _, row := range rows {
		log, err := row.toLog(r.codec)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, log)
	}
	return logs, total, nil
}

func (r *txRepository) PeriodRangeConflict(ctx context.Context, company string, start, end time.Time) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (
	SELECT 1 FROM accounting_periods
	WHERE company = $1 AND status <> $2 AND start_date <= $4 AND end_date >= $3
)`, company, string(PeriodStatusPermanentlyClosed), truncateDay(start), truncateDay(end)).Scan(&exists)
	return exists, err
}

func (r *txRepository) InsertPeriod(ctx context.Context, p Period) error {
	query, args, err := r.builder.Insert("accounting_periods").
		Columns(periodColumns...).
		Values(p.Name, p.PeriodName, p.Company, p.FiscalYear, p.StartDate, p.EndDate, string(p.PeriodType), string(p.Status),
			p.ClosedBy, p.ClosedOn, p.ClosingJournalEntry, p.PermanentlyClosedBy, p.PermanentlyClosedOn,
			p.Remarks, p.Version, p.CreatedAt, p.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.tx.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return fmt.Errorf("%w: %s", ErrDuplicatePeriod, p.Name)
			case "23P01":
				return ErrOverlappingPeriod
			}
		}
		return err
	}
	return nil
}

func (r *txRepository) LoadPeriodForUpdate(ctx context.Context, company, name string) (Period, error) {
	query, args, err := r.builder.Select(periodColumns...).
		From("accounting_periods").
		Where(squirrel.Eq{"company": company, "name": name}).
		Suffix("FOR UPDATE NOWAIT").
		ToSql()
	if err != nil {
		return Period{}, err
	}
	var p Period
	if err := pgxscan.Get(ctx, r.tx, &p, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return Period{}, fmt.Errorf("%w: %s/%s", ErrPeriodNotFound, company, name)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
			return Period{}, fmt.Errorf("%w: period %s is locked", ErrConflict, name)
		}
		return Period{}, err
	}
	return p, nil
}

func (r *txRepository) UpdatePeriod(ctx context.Context, p Period, expectedVersion int64) error {
	query, args, err := r.builder.Update("accounting_periods").
		SetMap(map[string]any{
			"status":                string(p.Status),
			"closed_by":             p.ClosedBy,
			"closed_on":             p.ClosedOn,
			"closing_journal_entry": p.ClosingJournalEntry,
			"permanently_closed_by": p.PermanentlyClosedBy,
			"permanently_closed_on": p.PermanentlyClosedOn,
			"version":               p.Version,
			"updated_at":            p.UpdatedAt,
		}).
		Where(squirrel.Eq{"company": p.Company, "name": p.Name, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: period %s version %d is stale", ErrConflict, p.Name, expectedVersion)
	}
	return nil
}

func (r *txRepository) InsertLog(ctx context.Context, log Log) error {
	if !log.ActionType.Valid() {
		return fmt.Errorf("close: unknown action type %q", log.ActionType)
	}
	if log.ActionType == ActionReopened && log.Reason == "" {
		return ErrMissingReason
	}
	before, err := r.codec.Encode(log.Before)
	if err != nil {
		return err
	}
	after, err := r.codec.Encode(log.After)
	if err != nil {
		return err
	}
	details := log.Details
	if details == nil {
		details = []string{}
	}
	query, args, err := r.builder.Insert("period_closing_logs").
		Columns(logColumns...).
		Values(log.Name, log.Period, log.Company, string(log.ActionType), log.ActionBy, log.ActionDate, log.Reason,
			before, after, log.AffectedTransaction, log.TransactionDoctype, details,
			log.IPAddress, log.UserAgent).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, query, args...)
	return err
}

func (r *txRepository) LoadConfigForUpdate(ctx context.Context, company string) (Config, bool, error) {
	return loadConfig(ctx, r.tx, r.builder, company, true)
}

func (r *txRepository) SaveConfig(ctx context.Context, cfg Config) error {
	query, args, err := r.builder.Insert("period_closing_configs").
		Columns(configColumns...).
		Values(cfg.Company, cfg.RetainedEarningsAccount,
			cfg.EnableBankReconciliationCheck, cfg.EnableDraftTransactionCheck, cfg.EnableUnpostedTransactionCheck,
			cfg.EnableSalesInvoiceCheck, cfg.EnablePurchaseInvoiceCheck, cfg.EnableInventoryCheck, cfg.EnablePayrollCheck,
			cfg.ClosingRole, cfg.ReopenRole, cfg.ReminderDaysBeforeEnd, cfg.EscalationDaysAfterEnd,
			cfg.EnableEmailNotifications, cfg.UpdatedAt).
		Suffix(`ON CONFLICT (company) DO UPDATE SET
	retained_earnings_account = EXCLUDED.retained_earnings_account,
	enable_bank_reconciliation_check = EXCLUDED.enable_bank_reconciliation_check,
	enable_draft_transaction_check = EXCLUDED.enable_draft_transaction_check,
	enable_unposted_transaction_check = EXCLUDED.enable_unposted_transaction_check,
	enable_sales_invoice_check = EXCLUDED.enable_sales_invoice_check,
	enable_purchase_invoice_check = EXCLUDED.enable_purchase_invoice_check,
	enable_inventory_check = EXCLUDED.enable_inventory_check,
	enable_payroll_check = EXCLUDED.enable_payroll_check,
	closing_role = EXCLUDED.closing_role,
	reopen_role = EXCLUDED.reopen_role,
	reminder_days_before_end = EXCLUDED.reminder_days_before_end,
	escalation_days_after_end = EXCLUDED.escalation_days_after_end,
	enable_email_notifications = EXCLUDED.enable_email_notifications,
	updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, query, args...)
	return err
}

func loadConfig(ctx context.Context, db pgxscan.Querier, builder squirrel.StatementBuilderType, company string, forUpdate bool) (Config, bool, error) {
	q := builder.Select(configColumns...).From("period_closing_configs").Where(squirrel.Eq{"company": company})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return Config{}, false, err
	}
	var cfg Config
	if err := pgxscan.Get(ctx, db, &cfg, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return Config{}, false, nil
		}
		return Config{}, false, err
	}
	return cfg, true, nil
}

type logRow struct {
	Name                string    `db:"name"`
	Period              string    `db:"accounting_period"`
	Company             string    `db:"company"`
	ActionType          string    `db:"action_type"`
	ActionBy            string    `db:"action_by"`
	ActionDate          time.Time `db:"action_date"`
	Reason              string    `db:"reason"`
	BeforeSnapshot      []byte    `db:"before_snapshot"`
	AfterSnapshot       []byte    `db:"after_snapshot"`
	AffectedTransaction string    `db:"affected_transaction"`
	TransactionDoctype  string    `db:"transaction_doctype"`
	Details             []string  `db:"details"`
	IPAddress           string    `db:"ip_address"`
	UserAgent           string    `db:"user_agent"`
}

func (row logRow) toLog(codec *SnapshotCodec) (Log, error) {
	before, err := codec.Decode(row.BeforeSnapshot)
	if err != nil {
		return Log{}, err
	}
	after, err := codec.Decode(row.AfterSnapshot)
	if err != nil {
		return Log{}, err
	}
	return Log{
		Name:                row.Name,
		Period:              row.Period,
		Company:             row.Company,
		ActionType:          ActionType(row.ActionType),
		ActionBy:            row.ActionBy,
		ActionDate:          row.ActionDate,
		Reason:              row.Reason,
		Before:              before,
		After:               after,
		AffectedTransaction: row.AffectedTransaction,
		TransactionDoctype:  row.TransactionDoctype,
		Details:             row.Details,
		IPAddress:           row.IPAddress,
		UserAgent:           row.UserAgent,
	}, nil
}
