package close

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/periodclose/internal/shared"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func periodKey(company, name string) string {
	return company + "/" + name
}

type memoryRepo struct {
	mu        sync.Mutex
	periods   map[string]Period
	logs      []Log
	configs   map[string]Config
	commitErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{periods: map[string]Period{}, configs: map[string]Config{}}
}

func (r *memoryRepo) put(p Period) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.periods[periodKey(p.Company, p.Name)] = p
}

func (r *memoryRepo) logsFor(action ActionType) []Log {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Log
	for _, l := range r.logs {
		if l.ActionType == action {
			out = append(out, l)
		}
	}
	return out
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &memoryTx{periods: map[string]Period{}, configs: map[string]Config{}}
	for k, v := range r.periods {
		tx.periods[k] = v
	}
	for k, v := range r.configs {
		tx.configs[k] = v
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if r.commitErr != nil {
		return r.commitErr
	}
	r.periods = tx.periods
	r.configs = tx.configs
	r.logs = append(r.logs, tx.logs...)
	return nil
}

func (r *memoryRepo) GetPeriod(ctx context.Context, company, name string) (Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.periods[periodKey(company, name)]
	if !ok {
		return Period{}, ErrPeriodNotFound
	}
	return p, nil
}

func (r *memoryRepo) ListPeriods(ctx context.Context, filter PeriodFilter) ([]Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Period
	for _, p := range r.periods {
		if filter.Company != "" && p.Company != filter.Company {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r *memoryRepo) PeriodCovering(ctx context.Context, company string, date time.Time) (Period, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.periods {
		if p.Company == company && p.Covers(date) {
			return p, true, nil
		}
	}
	return Period{}, false, nil
}

func (r *memoryRepo) LaterClosedPeriod(ctx context.Context, company string, after time.Time) (Period, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.periods {
		if p.Company == company && p.StartDate.After(after) && p.Status != PeriodStatusOpen {
			return p, true, nil
		}
	}
	return Period{}, false, nil
}

func (r *memoryRepo) GetConfig(ctx context.Context, company string) (Config, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[company]
	return cfg, ok, nil
}

func (r *memoryRepo) ListLogs(ctx context.Context, filter AuditFilter) ([]Log, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Log
	for i := len(r.logs) - 1; i >= 0; i-- {
		l := r.logs[i]
		if filter.Company != "" && l.Company != filter.Company {
			continue
		}
		if filter.ActionType != "" && l.ActionType != filter.ActionType {
			continue
		}
		out = append(out, l)
	}
	return out, len(out), nil
}

type memoryTx struct {
	periods map[string]Period
	configs map[string]Config
	logs    []Log
}

func (tx *memoryTx) PeriodRangeConflict(ctx context.Context, company string, start, end time.Time) (bool, error) {
	for _, p := range tx.periods {
		if p.Company == company && p.Status != PeriodStatusPermanentlyClosed && p.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryTx) InsertPeriod(ctx context.Context, p Period) error {
	key := periodKey(p.Company, p.Name)
	if _, ok := tx.periods[key]; ok {
		return ErrDuplicatePeriod
	}
	tx.periods[key] = p
	return nil
}

func (tx *memoryTx) LoadPeriodForUpdate(ctx context.Context, company, name string) (Period, error) {
	p, ok := tx.periods[periodKey(company, name)]
	if !ok {
		return Period{}, ErrPeriodNotFound
	}
	return p, nil
}

func (tx *memoryTx) UpdatePeriod(ctx context.Context, p Period, expectedVersion int64) error {
	key := periodKey(p.Company, p.Name)
	if tx.periods[key].Version != expectedVersion {
		return ErrConflict
	}
	tx.periods[key] = p
	return nil
}

func (tx *memoryTx) InsertLog(ctx context.Context, log Log) error {
	tx.logs = append(tx.logs, log)
	return nil
}

func (tx *memoryTx) LoadConfigForUpdate(ctx context.Context, company string) (Config, bool, error) {
	cfg, ok := tx.configs[company]
	return cfg, ok, nil
}

func (tx *memoryTx) SaveConfig(ctx context.Context, cfg Config) error {
	tx.configs[cfg.Company] = cfg
	return nil
}

// stubLedger serves as both LedgerQuery and JournalPoster.
type stubLedger struct {
	mu         sync.Mutex
	balances   []AccountBalance
	drafts     []Transaction
	unposted   []Transaction
	bank       []BankLine
	accounts   map[string]Account
	queryErrs  []error
	submitErr  error
	voidErr    error
	restoreErr error
	submitted  []JournalEntry
	voided     []string
	restored   []string
	entered    chan struct{}
	release    chan struct{}
}

func newStubLedger() *stubLedger {
	return &stubLedger{accounts: map[string]Account{
		"Retained Earnings - ACME": {Name: "Retained Earnings - ACME", Company: "ACME", RootType: RootTypeEquity},
		"Cash - ACME":              {Name: "Cash - ACME", Company: "ACME", RootType: RootTypeAsset},
		"Equity Group - ACME":      {Name: "Equity Group - ACME", Company: "ACME", RootType: RootTypeEquity, IsGroup: true},
	}}
}

func (l *stubLedger) nextQueryErr() error {
	if len(l.queryErrs) == 0 {
		return nil
	}
	err := l.queryErrs[0]
	l.queryErrs = l.queryErrs[1:]
	return err
}

func (l *stubLedger) AccountBalances(ctx context.Context, company string, r DateRange, roots ...RootType) ([]AccountBalance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.nextQueryErr(); err != nil {
		return nil, err
	}
	var out []AccountBalance
	for _, b := range l.balances {
		if len(roots) > 0 {
			match := false
			for _, root := range roots {
				match = match || b.RootType == root
			}
			if !match {
				continue
			}
		}
		out = append(out, b)
	}
	return out, nil
}

func (l *stubLedger) DraftTransactions(ctx context.Context, company string, r DateRange, doctypes ...string) ([]Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.nextQueryErr(); err != nil {
		return nil, err
	}
	var out []Transaction
	for _, tx := range l.drafts {
		for _, dt := range doctypes {
			if tx.Doctype == dt {
				out = append(out, tx)
				break
			}
		}
	}
	return out, nil
}

func (l *stubLedger) UnpostedTransactions(ctx context.Context, company string, r DateRange) ([]Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unposted, l.nextQueryErr()
}

func (l *stubLedger) UnreconciledBankLines(ctx context.Context, company string, r DateRange) ([]BankLine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bank, l.nextQueryErr()
}

func (l *stubLedger) GetAccount(ctx context.Context, company, account string) (Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[account]
	if !ok {
		return Account{}, fmt.Errorf("%w: account %s not found", ErrRetainedEarnings, account)
	}
	return a, nil
}

func (l *stubLedger) SubmitJournalEntry(ctx context.Context, entry JournalEntry) (string, error) {
	if l.entered != nil {
		l.entered <- struct{}{}
		<-l.release
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.submitErr != nil {
		return "", l.submitErr
	}
	l.submitted = append(l.submitted, entry)
	return fmt.Sprintf("ACC-JV-%04d", len(l.submitted)), nil
}

func (l *stubLedger) VoidJournalEntry(ctx context.Context, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.voidErr != nil {
		return l.voidErr
	}
	l.voided = append(l.voided, ref)
	return nil
}

func (l *stubLedger) RestoreJournalEntry(ctx context.Context, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.restoreErr != nil {
		return l.restoreErr
	}
	l.restored = append(l.restored, ref)
	return nil
}

func (l *stubLedger) JournalLines(ctx context.Context, ref string) ([]JournalLine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, entry := range l.submitted {
		if fmt.Sprintf("ACC-JV-%04d", i+1) == ref {
			return entry.Lines, nil
		}
	}
	return nil, fmt.Errorf("journal entry %s not found", ref)
}

type stubRoles map[string][]string

func (r stubRoles) HasRole(ctx context.Context, actor, role string) (bool, error) {
	for _, have := range r[actor] {
		if strings.EqualFold(have, role) {
			return true, nil
		}
	}
	return false, nil
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions []string
	checks      []ValidationResult
}

func (o *recordingObserver) ObserveTransition(action ActionType, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, action.Label()+":"+outcome)
}

func (o *recordingObserver) ObserveCheck(result ValidationResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.checks = append(o.checks, result)
}

type fixture struct {
	svc      *Service
	repo     *memoryRepo
	ledger   *stubLedger
	observer *recordingObserver
	now      time.Time
}

var errBoom = errors.New("boom")

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemoryRepo()
	ledger := newStubLedger()
	observer := &recordingObserver{}
	roles := stubRoles{
		"accountant": {RoleAccountsManager},
		"admin":      {RoleSystemManager},
		"clerk":      {"Accounts User"},
	}
	cfg := DefaultConfig("ACME")
	cfg.RetainedEarningsAccount = "Retained Earnings - ACME"
	repo.configs["ACME"] = cfg

	svc := NewService(Dependencies{
		Repo:     repo,
		Ledger:   ledger,
		Poster:   ledger,
		Roles:    roles,
		Locker:   shared.NewMemoryLocker(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Observer: observer,
		Retry:    RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	})
	now := time.Date(2024, 2, 5, 9, 30, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return now })
	return &fixture{svc: svc, repo: repo, ledger: ledger, observer: observer, now: now}
}

func (f *fixture) openPeriod(name string, start, end time.Time) Period {
	p := Period{
		Name:       name,
		PeriodName: name,
		Company:    "ACME",
		FiscalYear: "2024",
		StartDate:  start,
		EndDate:    end,
		PeriodType: PeriodTypeMonthly,
		Status:     PeriodStatusOpen,
		Version:    1,
	}
	f.repo.put(p)
	return p
}

func (f *fixture) withProfit() {
	f.ledger.balances = []AccountBalance{
		{Account: "Sales - ACME", RootType: RootTypeIncome, Credit: decimal.NewFromInt(1000)},
		{Account: "Rent - ACME", RootType: RootTypeExpense, Debit: decimal.NewFromInt(600)},
		{Account: "Cash - ACME", RootType: RootTypeAsset, Debit: decimal.NewFromInt(400)},
	}
}

func as(user string) context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{ID: user, IPAddress: "10.0.0.7", UserAgent: "test"})
}
