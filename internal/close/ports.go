package close

import (
	"context"
	"time"
)

// LedgerQuery reads general-ledger state for checks and closing.
type LedgerQuery interface {
	AccountBalances(ctx context.Context, company string, r DateRange, roots ...RootType) ([]AccountBalance, error)
	DraftTransactions(ctx context.Context, company string, r DateRange, doctypes ...string) ([]Transaction, error)
	UnpostedTransactions(ctx context.Context, company string, r DateRange) ([]Transaction, error)
	UnreconciledBankLines(ctx context.Context, company string, r DateRange) ([]BankLine, error)
	GetAccount(ctx context.Context, company, account string) (Account, error)
	JournalLines(ctx context.Context, ref string) ([]JournalLine, error)
}

// JournalPoster submits and cancels journal entries in the ledger.
// RestoreJournalEntry undoes a void whose surrounding transition failed.
type JournalPoster interface {
	SubmitJournalEntry(ctx context.Context, entry JournalEntry) (string, error)
	VoidJournalEntry(ctx context.Context, ref string) error
	RestoreJournalEntry(ctx context.Context, ref string) error
}

// RoleChecker answers identity questions for the transition guards.
type RoleChecker interface {
	HasRole(ctx context.Context, actor, role string) (bool, error)
}

// Locker grants a scoped, non-blocking lock per period key. TryLock fails
// fast when the key is already held.
type Locker interface {
	TryLock(ctx context.Context, key string) (func(), error)
}

// Observer receives transition outcomes and check results for instrumentation.
type Observer interface {
	ObserveTransition(action ActionType, outcome string)
	ObserveCheck(result ValidationResult)
}

// RepositoryPort abstracts persistence for testability.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPeriod(ctx context.Context, company, name string) (Period, error)
	ListPeriods(ctx context.Context, filter PeriodFilter) ([]Period, error)
	PeriodCovering(ctx context.Context, company string, date time.Time) (Period, bool, error)
	LaterClosedPeriod(ctx context.Context, company string, after time.Time) (Period, bool, error)
	GetConfig(ctx context.Context, company string) (Config, bool, error)
	ListLogs(ctx context.Context, filter AuditFilter) ([]Log, int, error)
}

// TxRepository exposes the writes that must commit atomically with their audit record.
type TxRepository interface {
	PeriodRangeConflict(ctx context.Context, company string, start, end time.Time) (bool, error)
	InsertPeriod(ctx context.Context, p Period) error
	LoadPeriodForUpdate(ctx context.Context, company, name string) (Period, error)
	UpdatePeriod(ctx context.Context, p Period, expectedVersion int64) error
	InsertLog(ctx context.Context, log Log) error
	LoadConfigForUpdate(ctx context.Context, company string) (Config, bool, error)
	SaveConfig(ctx context.Context, cfg Config) error
}
