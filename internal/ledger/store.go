// Package ledger reads and writes the general ledger tables the period
// closing service depends on.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/periodclose/internal/close"
	"github.com/odyssey-erp/periodclose/internal/platform/db"
)

// Document status values shared by every ledger document table.
const (
	docStatusDraft     = 0
	docStatusSubmitted = 1
	docStatusCancelled = 2
)

// ErrJournalNotFound indicates a void request for an unknown journal entry.
var ErrJournalNotFound = errors.New("ledger: journal entry not found")

// ErrAccountNotFound indicates the account does not exist for the company.
var ErrAccountNotFound = errors.New("ledger: account not found")

// Store implements close.LedgerQuery and close.JournalPoster on Postgres.
type Store struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
	newName func() string
	now     func() time.Time
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		newName: func() string { return "ACC-JV-" + uuid.NewString() },
		now:     time.Now,
	}
}

// AccountBalances aggregates non-cancelled GL movement per account in range.
func (s *Store) AccountBalances(ctx context.Context, company string, r close.DateRange, roots ...close.RootType) ([]close.AccountBalance, error) {
	query, args, err := s.balancesQuery(company, r, roots).ToSql()
	if err != nil {
		return nil, err
	}
	var balances []close.AccountBalance
	if err := pgxscan.Select(ctx, s.pool, &balances, query, args...); err != nil {
		return nil, fmt.Errorf("ledger: account balances: %w", err)
	}
	for i := range balances {
		balances[i].IsNominal = balances[i].RootType.Nominal()
	}
	return balances, nil
}

func (s *Store) balancesQuery(company string, r close.DateRange, roots []close.RootType) squirrel.SelectBuilder {
	q := s.builder.Select(
		"a.name AS account",
		"a.account_name",
		"a.account_type",
		"a.root_type",
		"a.is_group",
		"COALESCE(SUM(g.debit), 0) AS debit",
		"COALESCE(SUM(g.credit), 0) AS credit",
		"COALESCE(SUM(g.debit), 0) - COALESCE(SUM(g.credit), 0) AS balance",
	).
		From("accounts a").
		Join("gl_entries g ON g.company = a.company AND g.account = a.name").
		Where(squirrel.Eq{"a.company": company, "g.is_cancelled": false}).
		Where(squirrel.GtOrEq{"g.posting_date": r.From}).
		Where(squirrel.LtOrEq{"g.posting_date": r.To}).
		GroupBy("a.name", "a.account_name", "a.account_type", "a.root_type", "a.is_group").
		OrderBy("a.name")
	if len(roots) > 0 {
		names := make([]string, 0, len(roots))
		for _, root := range roots {
			names = append(names, string(root))
		}
		q = q.Where(squirrel.Eq{"a.root_type": names})
	}
	return q
}

// DraftTransactions lists draft documents of the given types dated in range.
func (s *Store) DraftTransactions(ctx context.Context, company string, r close.DateRange, doctypes ...string) ([]close.Transaction, error) {
	return s.selectTransactions(ctx, s.draftsQuery(company, r, doctypes))
}

// UnpostedTransactions lists submitted documents that never produced GL entries.
func (s *Store) UnpostedTransactions(ctx context.Context, company string, r close.DateRange) ([]close.Transaction, error) {
	return s.selectTransactions(ctx, s.unpostedQuery(company, r))
}

func (s *Store) draftsQuery(company string, r close.DateRange, doctypes []string) squirrel.SelectBuilder {
	q := s.documents(company, r).Where(squirrel.Eq{"d.docstatus": docStatusDraft})
	if len(doctypes) > 0 {
		q = q.Where(squirrel.Eq{"d.doctype": doctypes})
	}
	return q
}

func (s *Store) unpostedQuery(company string, r close.DateRange) squirrel.SelectBuilder {
	return s.documents(company, r).
		Where(squirrel.Eq{"d.docstatus": docStatusSubmitted}).
		Where("NOT EXISTS (SELECT 1 FROM gl_entries g WHERE g.company = d.company AND g.voucher_type = d.doctype AND g.voucher_no = d.name)")
}

// UnreconciledBankLines lists statement lines in range without a clearance.
func (s *Store) UnreconciledBankLines(ctx context.Context, company string, r close.DateRange) ([]close.BankLine, error) {
	query, args, err := s.bankLinesQuery(company, r).ToSql()
	if err != nil {
		return nil, err
	}
	var lines []close.BankLine
	if err := pgxscan.Select(ctx, s.pool, &lines, query, args...); err != nil {
		return nil, fmt.Errorf("ledger: unreconciled bank lines: %w", err)
	}
	return lines, nil
}

func (s *Store) bankLinesQuery(company string, r close.DateRange) squirrel.SelectBuilder {
	return s.builder.Select("name", "bank_account", "date", "amount").
		From("bank_statement_lines").
		Where(squirrel.Eq{"company": company, "reconciled": false}).
		Where(squirrel.GtOrEq{"date": r.From}).
		Where(squirrel.LtOrEq{"date": r.To}).
		OrderBy("bank_account", "date", "name")
}

// GetAccount loads a chart of accounts node.
func (s *Store) GetAccount(ctx context.Context, company, account string) (close.Account, error) {
	query, args, err := s.builder.Select("name", "account_name", "company", "root_type", "account_type", "is_group").
		From("accounts").
		Where(squirrel.Eq{"company": company, "name": account}).
		ToSql()
	if err != nil {
		return close.Account{}, err
	}
	var out close.Account
	if err := pgxscan.Get(ctx, s.pool, &out, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return close.Account{}, fmt.Errorf("%w: %s", close.ErrRetainedEarnings, ErrAccountNotFound)
		}
		return close.Account{}, err
	}
	return out, nil
}

// SubmitJournalEntry inserts and posts a journal entry, returning its name.
func (s *Store) SubmitJournalEntry(ctx context.Context, entry close.JournalEntry) (string, error) {
	if !entry.Balanced() {
		return "", close.ErrUnbalancedJournal
	}
	name := s.newName()
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO journal_entries (name, company, voucher_type, posting_date, remark, accounting_period, docstatus, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`, name, entry.Company, entry.VoucherType, entry.PostingDate, entry.Remark, entry.Period, docStatusSubmitted, s.now().UTC())
		if err != nil {
			return err
		}
		for i, line := range entry.Lines {
			if _, err := tx.Exec(ctx, `INSERT INTO journal_entry_lines (journal_entry, idx, account, debit, credit)
VALUES ($1,$2,$3,$4,$5)`, name, i+1, line.Account, line.Debit, line.Credit); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `INSERT INTO gl_entries (company, account, posting_date, debit, credit, voucher_type, voucher_no, is_cancelled)
VALUES ($1,$2,$3,$4,$5,$6,$7,false)`, entry.Company, line.Account, entry.PostingDate, line.Debit, line.Credit, close.DoctypeJournalEntry, name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ledger: submit journal entry: %w", err)
	}
	return name, nil
}

// VoidJournalEntry cancels a submitted journal entry and its GL rows. Voiding
// an already cancelled entry is a no-op.
func (s *Store) VoidJournalEntry(ctx context.Context, ref string) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		status, err := lockJournal(ctx, tx, ref)
		if err != nil {
			return err
		}
		if status == docStatusCancelled {
			return nil
		}
		if _, err := tx.Exec(ctx, `UPDATE journal_entries SET docstatus = $2 WHERE name = $1`, ref, docStatusCancelled); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE gl_entries SET is_cancelled = true WHERE voucher_type = $1 AND voucher_no = $2`, close.DoctypeJournalEntry, ref)
		return err
	})
}

// RestoreJournalEntry re-submits a cancelled journal entry and its GL rows.
// Restoring an entry that is still submitted is a no-op.
func (s *Store) RestoreJournalEntry(ctx context.Context, ref string) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		status, err := lockJournal(ctx, tx, ref)
		if err != nil {
			return err
		}
		if status == docStatusSubmitted {
			return nil
		}
		if _, err := tx.Exec(ctx, `UPDATE journal_entries SET docstatus = $2 WHERE name = $1`, ref, docStatusSubmitted); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE gl_entries SET is_cancelled = false WHERE voucher_type = $1 AND voucher_no = $2`, close.DoctypeJournalEntry, ref)
		return err
	})
}

func lockJournal(ctx context.Context, tx pgx.Tx, ref string) (int, error) {
	var status int
	err := tx.QueryRow(ctx, `SELECT docstatus FROM journal_entries WHERE name = $1 FOR UPDATE`, ref).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrJournalNotFound, ref)
	}
	return status, err
}

// JournalLines returns the lines of a journal entry in submission order.
func (s *Store) JournalLines(ctx context.Context, ref string) ([]close.JournalLine, error) {
	var rows []struct {
		Account string          `db:"account"`
		Debit   decimal.Decimal `db:"debit"`
		Credit  decimal.Decimal `db:"credit"`
	}
	query, args, err := s.journalLinesQuery(ref).ToSql()
	if err != nil {
		return nil, err
	}
	if err := pgxscan.Select(ctx, s.pool, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("ledger: journal lines: %w", err)
	}
	lines := make([]close.JournalLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, close.JournalLine{Account: row.Account, Debit: row.Debit, Credit: row.Credit})
	}
	return lines, nil
}

func (s *Store) journalLinesQuery(ref string) squirrel.SelectBuilder {
	return s.builder.Select("account", "debit", "credit").
		From("journal_entry_lines").
		Where(squirrel.Eq{"journal_entry": ref}).
		OrderBy("idx")
}

func (s *Store) documents(company string, r close.DateRange) squirrel.SelectBuilder {
	return s.builder.Select("d.name", "d.doctype", "d.posting_date").
		From("ledger_documents d").
		Where(squirrel.Eq{"d.company": company}).
		Where(squirrel.GtOrEq{"d.posting_date": r.From}).
		Where(squirrel.LtOrEq{"d.posting_date": r.To}).
		OrderBy("d.posting_date", "d.name")
}

func (s *Store) selectTransactions(ctx context.Context, q squirrel.SelectBuilder) ([]close.Transaction, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	var txs []close.Transaction
	if err := pgxscan.Select(ctx, s.pool, &txs, query, args...); err != nil {
		return nil, fmt.Errorf("ledger: transactions: %w", err)
	}
	return txs, nil
}
