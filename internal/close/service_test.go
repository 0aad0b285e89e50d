package close

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePeriodRecordsCreatedLog(t *testing.T) {
	f := newFixture(t)

	period, err := f.svc.CreatePeriod(as("accountant"), CreatePeriodInput{
		PeriodName: " 2024-01 ",
		Company:    "ACME",
		StartDate:  day(2024, 1, 1),
		EndDate:    day(2024, 1, 31),
		PeriodType: PeriodTypeMonthly,
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01", period.Name)
	assert.Equal(t, PeriodStatusOpen, period.Status)
	assert.Equal(t, "2024", period.FiscalYear)
	assert.EqualValues(t, 1, period.Version)

	logs := f.repo.logsFor(ActionCreated)
	require.Len(t, logs, 1)
	assert.Equal(t, "accountant", logs[0].ActionBy)
	assert.Equal(t, "10.0.0.7", logs[0].IPAddress)
	assert.Nil(t, logs[0].Before)
	require.NotNil(t, logs[0].After)
	assert.Equal(t, PeriodStatusOpen, logs[0].After.Status)
	assert.Contains(t, f.observer.transitions, "create:success")
}

func TestCreatePeriodRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))

	tests := []struct {
		name string
		in   CreatePeriodInput
		want error
	}{
		{
			name: "start equals end",
			in:   CreatePeriodInput{PeriodName: "X", Company: "ACME", StartDate: day(2024, 3, 1), EndDate: day(2024, 3, 1), PeriodType: PeriodTypeMonthly},
			want: ErrDateRangeInvalid,
		},
		{
			name: "start after end",
			in:   CreatePeriodInput{PeriodName: "X", Company: "ACME", StartDate: day(2024, 3, 31), EndDate: day(2024, 3, 1), PeriodType: PeriodTypeMonthly},
			want: ErrDateRangeInvalid,
		},
		{
			name: "overlap",
			in:   CreatePeriodInput{PeriodName: "Q1", Company: "ACME", StartDate: day(2024, 1, 15), EndDate: day(2024, 3, 31), PeriodType: PeriodTypeQuarterly},
			want: ErrOverlappingPeriod,
		},
		{
			name: "missing company",
			in:   CreatePeriodInput{PeriodName: "X", StartDate: day(2024, 3, 1), EndDate: day(2024, 3, 31), PeriodType: PeriodTypeMonthly},
			want: ErrInvalidInput,
		},
		{
			name: "unknown type",
			in:   CreatePeriodInput{PeriodName: "X", Company: "ACME", StartDate: day(2024, 3, 1), EndDate: day(2024, 3, 31), PeriodType: "Weekly"},
			want: ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreatePeriod(as("accountant"), tt.in)
			require.ErrorIs(t, err, tt.want)
		})
	}
	assert.Len(t, f.repo.logsFor(ActionCreated), 0)
}

func TestCreatePeriodAllowsOverlapWithPermanentlyClosed(t *testing.T) {
	f := newFixture(t)
	sealed := f.openPeriod("2023-12", day(2023, 12, 1), day(2023, 12, 31))
	sealed.Status = PeriodStatusPermanentlyClosed
	f.repo.put(sealed)

	_, err := f.svc.CreatePeriod(as("accountant"), CreatePeriodInput{
		PeriodName: "2023-12-adj", Company: "ACME",
		StartDate: day(2023, 12, 15), EndDate: day(2023, 12, 31), PeriodType: PeriodTypeMonthly,
	})
	require.NoError(t, err)
}

func TestClosePeriodPostsClosingEntry(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
	f.withProfit()

	period, err := f.svc.ClosePeriod(as("accountant"), ClosePeriodInput{Company: "ACME", Name: "2024-01"})
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusClosed, period.Status)
	assert.Equal(t, "accountant", period.ClosedBy)
	require.NotNil(t, period.ClosedOn)
	assert.Equal(t, f.now, *period.ClosedOn)
	assert.Equal(t, "ACC-JV-0001", period.ClosingJournalEntry)
	assert.EqualValues(t, 2, period.Version)

	require.Len(t, f.ledger.submitted, 1)
	entry := f.ledger.submitted[0]
	assert.True(t, entry.Balanced())
	assert.Equal(t, day(2024, 1, 31), entry.PostingDate)
	assert.Equal(t, VoucherTypeClosingEntry, entry.VoucherType)
	require.Len(t, entry.Lines, 3)
	last := entry.Lines[2]
	assert.Equal(t, "Retained Earnings - ACME", last.Account)
	assert.True(t, last.Credit.Equal(decimal.NewFromInt(400)))

	stored, err := f.svc.GetPeriod(context.Background(), "ACME", "2024-01")
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusClosed, stored.Status)

	logs := f.repo.logsFor(ActionClosed)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].Before)
	assert.Equal(t, PeriodStatusOpen, logs[0].Before.Status)
	assert.Equal(t, PeriodStatusClosed, logs[0].After.Status)
	assert.Equal(t, "ACC-JV-0001", logs[0].After.ClosingJournalEntry)
	assert.Contains(t, f.observer.transitions, "close:success")
	assert.Len(t, f.observer.checks, 7)
}

func TestClosePeriodWithoutNominalActivitySkipsJournal(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))

	period, err := f.svc.ClosePeriod(as("accountant"), ClosePeriodInput{Company: "ACME", Name: "2024-01"})
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusClosed, period.Status)
	assert.Empty(t, period.ClosingJournalEntry)
	assert.Empty(t, f.ledger.submitted)
}

func TestClosePeriodBlockedByChecks(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
	f.withProfit()
	f.ledger.drafts = []Transaction{{Name: "SINV-0001", Doctype: DoctypeSalesInvoice, PostingDate: day(2024, 1, 12)}}

	_, err := f.svc.ClosePeriod(as("accountant"), ClosePeriodInput{Company: "ACME", Name: "2024-01"})
	var blocked *ValidationBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, KindValidation, Classify(err))

	names := make([]string, 0, len(blocked.Results))
	for _, r := range blocked.Results {
		names = append(names, r.CheckName)
		assert.Equal(t, SeverityError, r.Severity)
	}
	assert.ElementsMatch(t, []string{"Sales Invoices Processed", "No Draft Transactions"}, names)

	stored, err := f.svc.GetPeriod(context.Background(), "ACME", "2024-01")
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusOpen, stored.Status)
	assert.Empty(t, f.ledger.submitted)
	assert.Empty(t, f.repo.logsFor(ActionClosed))
	assert.Contains(t, f.observer.transitions, "close:validation")
}

func TestClosePeriodWarningsDoNotBlock(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
	f.ledger.drafts = []Transaction{{Name: "SAL-0001", Doctype: DoctypeSalarySlip, PostingDate: day(2024, 1, 25)}}

	_, err := f.svc.ClosePeriod(as("accountant"), ClosePeriodInput{Company: "ACME", Name: "2024-01"})
	require.NoError(t, err)
	logs := f.repo.logsFor(ActionClosed)
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Details, "warning: Payroll Entries Recorded")
	assert.Empty(t, logs[0].Reason)
}

func TestClosePeriodForceOverridesBlockingChecks(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
	f.withProfit()
	f.ledger.unposted = []Transaction{{Name: "PE-0009", Doctype: DoctypePaymentEntry, PostingDate: day(2024, 1, 3)}}

	period, err := f.svc.ClosePeriod(as("accountant"), ClosePeriodInput{Company: "ACME", Name: "2024-01", Force: true})
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusClosed, period.Status)

	logs := f.repo.logsFor(ActionClosed)
	require.Len(t, logs, 1)
	assert.Equal(t, "closed with force override", logs[0].Reason)
	assert.Contains(t, logs[0].Details, "All Transactions Posted")
}

func TestClosePeriodRequiresRoleEvenWithForce(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))

	_, err := f.svc.ClosePeriod(as("clerk"), ClosePeriodInput{Company: "ACME", Name: "2024-01", Force: true})
	var privErr *PrivilegeError
	require.ErrorAs(t, err, &privErr)
	assert.Equal(t, RoleAccountsManager, privErr.Role)
	assert.Equal(t, KindPermission, Classify(err))

	_, err = f.svc.ClosePeriod(context.Background(), ClosePeriodInput{Company: "ACME", Name: "2024-01"})
	require.ErrorIs(t, err, ErrInsufficientPrivilege)

	_, err = f.svc.ClosePeriod(as("admin"), ClosePeriodInput{Company: "ACME", Name: "2024-01"})
	require.NoError(t, err)
}

func TestClosePeriodRejectsUnusableRetainedEarnings(t *testing.T) {
	tests := []struct {
		name    string
		account string
	}{
		{name: "unset", account: ""},
		{name: "missing", account: "Nope - ACME"},
		{name: "wrong root", account: "Cash - ACME"},
		{name: "group", account: "Equity Group - ACME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
			f.withProfit()
			cfg := f.repo.configs["ACME"]
			cfg.RetainedEarningsAccount = tt.account
			f.repo.configs["ACME"] = cfg

			_, err := f.svc.ClosePeriod(as("accountant"), ClosePeriodInput{Company: "ACME", Name: "2024-01"})
			require.ErrorIs(t, err, ErrRetainedEarnings)
			assert.Equal(t, KindValidation, Classify(err))
			assert.Empty(t, f.ledger.submitted)
		})
	}
}

func TestClosePeriodRejectsNonOpenPeriod(t *testing.T) {
	f := newFixture(t)
	p := f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
	p.Status = PeriodStatusClosed
	f.repo.put(p)

	_, err := f.svc.ClosePeriod(as("accountant"), ClosePeriodInput{Company: "ACME", Name: "2024-01"})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestClosePeriodVoidsJournalWhenCommitFails(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
	f.withProfit()
	f.repo.commitErr = errBoom

	_, err := f.svc.ClosePeriod(as("accountant"), ClosePeriodInput{Company: "ACME", Name: "2024-01"})
	require.ErrorIs(t, err, errBoom)
	require.Len(t, f.ledger.submitted, 1)
	assert.Equal(t, []string{"ACC-JV-0001"}, f.ledger.voided)

	f.repo.commitErr = nil
	stored, err := f.svc.GetPeriod(context.Background(), "ACME", "2024-01")
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusOpen, stored.Status)
	assert.Empty(t, f.repo.logsFor(ActionClosed))
}

func TestClosePeriodRetriesTransientLedgerFailures(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
	f.withProfit()
	disabled := f.repo.configs["ACME"]
	for _, key := range []*bool{
		&disabled.EnableBankReconciliationCheck, &disabled.EnableDraftTransactionCheck,
		&disabled.EnableUnpostedTransactionCheck, &disabled.EnableSalesInvoiceCheck,
		&disabled.EnablePurchaseInvoiceCheck, &disabled.EnableInventoryCheck, &disabled.EnablePayrollCheck,
	} {
		*key = false
	}
	f.repo.configs["ACME"] = disabled
	f.ledger.queryErrs = []error{context.DeadlineExceeded}

	period, err := f.svc.ClosePeriod(as("accountant"), ClosePeriodInput{Company: "ACME", Name: "2024-01"})
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusClosed, period.Status)
	assert.Len(t, f.ledger.submitted, 1)
}

func TestConcurrentCloseAdmitsExactlyOne(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
	f.withProfit()
	f.ledger.entered = make(chan struct{})
	f.ledger.release = make(chan struct{})

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = f.svc.ClosePeriod(as("accountant"), ClosePeriodInput{Company: "ACME", Name: "2024-01"})
	}()

	select {
	case <-f.ledger.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first close never reached the ledger")
	}
	_, secondErr := f.svc.ClosePeriod(as("admin"), ClosePeriodInput{Company: "ACME", Name: "2024-01"})
	close(f.ledger.release)
	wg.Wait()

	require.NoError(t, firstErr)
	require.ErrorIs(t, secondErr, ErrConflict)
	assert.Equal(t, KindConflict, Classify(secondErr))
	assert.Len(t, f.ledger.submitted, 1)
	assert.Len(t, f.repo.logsFor(ActionClosed), 1)
}

func TestCommitDetectsStaleRead(t *testing.T) {
	f := newFixture(t)
	before := f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
	bumped := before
	bumped.Version = 2
	f.repo.put(bumped)

	after := before
	after.Status = PeriodStatusClosed
	err := f.svc.commit(context.Background(), before, after, Log{Name: "PCL-x"}, nil)
	require.ErrorIs(t, err, ErrConflict)
}

func closedFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
	f.withProfit()
	_, err := f.svc.ClosePeriod(as("accountant"), ClosePeriodInput{Company: "ACME", Name: "2024-01"})
	require.NoError(t, err)
	return f
}

func TestReopenPeriodVoidsClosingJournal(t *testing.T) {
	f := closedFixture(t)

	period, err := f.svc.ReopenPeriod(as("accountant"), ReopenPeriodInput{Company: "ACME", Name: "2024-01", Reason: "late supplier invoice"})
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusOpen, period.Status)
	assert.Empty(t, period.ClosedBy)
	assert.Nil(t, period.ClosedOn)
	assert.Empty(t, period.ClosingJournalEntry)
	assert.EqualValues(t, 3, period.Version)
	assert.Equal(t, []string{"ACC-JV-0001"}, f.ledger.voided)

	logs := f.repo.logsFor(ActionReopened)
	require.Len(t, logs, 1)
	assert.Equal(t, "late supplier invoice", logs[0].Reason)
	assert.Equal(t, []string{"voided ACC-JV-0001"}, logs[0].Details)
	assert.Equal(t, PeriodStatusClosed, logs[0].Before.Status)
	assert.Equal(t, "ACC-JV-0001", logs[0].Before.ClosingJournalEntry)
}

func TestReopenPeriodGuards(t *testing.T) {
	f := closedFixture(t)

	_, err := f.svc.ReopenPeriod(as("accountant"), ReopenPeriodInput{Company: "ACME", Name: "2024-01", Reason: "   "})
	require.ErrorIs(t, err, ErrMissingReason)

	_, err = f.svc.ReopenPeriod(as("clerk"), ReopenPeriodInput{Company: "ACME", Name: "2024-01", Reason: "fix"})
	require.ErrorIs(t, err, ErrInsufficientPrivilege)

	open := f.openPeriod("2024-03", day(2024, 3, 1), day(2024, 3, 31))
	_, err = f.svc.ReopenPeriod(as("accountant"), ReopenPeriodInput{Company: "ACME", Name: open.Name, Reason: "fix"})
	require.ErrorIs(t, err, ErrNotClosed)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.ReopenPeriod(as("accountant"), ReopenPeriodInput{Company: "ACME", Name: "missing", Reason: "fix"})
	require.ErrorIs(t, err, ErrPeriodNotFound)
}

func TestReopenPeriodBlockedByLaterClosedPeriod(t *testing.T) {
	f := closedFixture(t)
	later := f.openPeriod("2024-02", day(2024, 2, 1), day(2024, 2, 29))
	later.Status = PeriodStatusClosed
	f.repo.put(later)

	_, err := f.svc.ReopenPeriod(as("accountant"), ReopenPeriodInput{Company: "ACME", Name: "2024-01", Reason: "fix"})
	require.ErrorIs(t, err, ErrLaterPeriodClosed)
	assert.Equal(t, KindConflict, Classify(err))
	assert.Empty(t, f.ledger.voided)
}

func TestReopenPeriodKeepsClosedWhenVoidFails(t *testing.T) {
	f := closedFixture(t)
	f.ledger.voidErr = errors.New("journal locked by reconciliation")

	_, err := f.svc.ReopenPeriod(as("accountant"), ReopenPeriodInput{Company: "ACME", Name: "2024-01", Reason: "fix"})
	require.Error(t, err)

	stored, err := f.svc.GetPeriod(context.Background(), "ACME", "2024-01")
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusClosed, stored.Status)
	assert.Equal(t, "ACC-JV-0001", stored.ClosingJournalEntry)
	assert.Empty(t, f.repo.logsFor(ActionReopened))
}

func TestReopenPeriodRestoresJournalWhenCommitFails(t *testing.T) {
	f := closedFixture(t)
	f.repo.commitErr = errors.New("commit: connection reset")

	_, err := f.svc.ReopenPeriod(as("accountant"), ReopenPeriodInput{Company: "ACME", Name: "2024-01", Reason: "fix"})
	require.Error(t, err)
	assert.Equal(t, []string{"ACC-JV-0001"}, f.ledger.voided)
	assert.Equal(t, []string{"ACC-JV-0001"}, f.ledger.restored)

	f.repo.commitErr = nil
	stored, err := f.svc.GetPeriod(context.Background(), "ACME", "2024-01")
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusClosed, stored.Status)
	assert.Equal(t, "ACC-JV-0001", stored.ClosingJournalEntry)
	assert.Empty(t, f.repo.logsFor(ActionReopened))
}

func TestReopenPeriodDoesNotRestoreWhenVoidFails(t *testing.T) {
	f := closedFixture(t)
	f.ledger.voidErr = errBoom
	f.repo.commitErr = errors.New("commit: connection reset")

	_, err := f.svc.ReopenPeriod(as("accountant"), ReopenPeriodInput{Company: "ACME", Name: "2024-01", Reason: "fix"})
	require.ErrorIs(t, err, errBoom)
	assert.Empty(t, f.ledger.restored)
}

func TestCloseReopenCloseRoundTrip(t *testing.T) {
	f := closedFixture(t)

	_, err := f.svc.ReopenPeriod(as("accountant"), ReopenPeriodInput{Company: "ACME", Name: "2024-01", Reason: "late accrual"})
	require.NoError(t, err)
	period, err := f.svc.ClosePeriod(as("accountant"), ClosePeriodInput{Company: "ACME", Name: "2024-01"})
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusClosed, period.Status)
	assert.Equal(t, "ACC-JV-0002", period.ClosingJournalEntry)
	assert.EqualValues(t, 4, period.Version)

	var actions []ActionType
	for _, l := range f.repo.logs {
		if l.Period == "2024-01" && l.ActionType != ActionCreated {
			actions = append(actions, l.ActionType)
		}
	}
	assert.Equal(t, []ActionType{ActionClosed, ActionReopened, ActionClosed}, actions)
	assert.Equal(t, []string{"ACC-JV-0001"}, f.ledger.voided)
}

func TestPermanentlyClosePeriod(t *testing.T) {
	f := closedFixture(t)

	_, err := f.svc.PermanentlyClosePeriod(as("admin"), PermanentCloseInput{Company: "ACME", Name: "2024-01", Confirmation: "permanent"})
	require.ErrorIs(t, err, ErrConfirmationMismatch)

	_, err = f.svc.PermanentlyClosePeriod(as("accountant"), PermanentCloseInput{Company: "ACME", Name: "2024-01", Confirmation: PermanentCloseConfirmation})
	require.ErrorIs(t, err, ErrInsufficientPrivilege)

	period, err := f.svc.PermanentlyClosePeriod(as("admin"), PermanentCloseInput{Company: "ACME", Name: "2024-01", Confirmation: PermanentCloseConfirmation})
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusPermanentlyClosed, period.Status)
	assert.Equal(t, "admin", period.PermanentlyClosedBy)
	require.NotNil(t, period.PermanentlyClosedOn)
	assert.Equal(t, "ACC-JV-0001", period.ClosingJournalEntry)
	require.Len(t, f.repo.logsFor(ActionPermanentlyClosed), 1)

	_, err = f.svc.ReopenPeriod(as("admin"), ReopenPeriodInput{Company: "ACME", Name: "2024-01", Reason: "fix"})
	require.ErrorIs(t, err, ErrNotClosed)
	_, err = f.svc.ClosePeriod(as("admin"), ClosePeriodInput{Company: "ACME", Name: "2024-01", Force: true})
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.PermanentlyClosePeriod(as("admin"), PermanentCloseInput{Company: "ACME", Name: "2024-01", Confirmation: PermanentCloseConfirmation})
	require.ErrorIs(t, err, ErrNotClosed)
}

func TestPermanentlyCloseRequiresClosed(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))

	_, err := f.svc.PermanentlyClosePeriod(as("admin"), PermanentCloseInput{Company: "ACME", Name: "2024-01", Confirmation: PermanentCloseConfirmation})
	require.ErrorIs(t, err, ErrNotClosed)
}

func TestRecordTransactionModifiedKeepsStatus(t *testing.T) {
	f := closedFixture(t)

	log, err := f.svc.RecordTransactionModified(as("auditor"), TransactionModifiedInput{
		Company:             "ACME",
		Name:                "2024-01",
		AffectedTransaction: "SINV-0042",
		TransactionDoctype:  DoctypeSalesInvoice,
		Reason:              "rate correction",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionTransactionModified, log.ActionType)
	assert.Equal(t, "auditor", log.ActionBy)
	assert.Equal(t, "SINV-0042", log.AffectedTransaction)
	assert.Equal(t, log.Before, log.After)

	stored, err := f.svc.GetPeriod(context.Background(), "ACME", "2024-01")
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusClosed, stored.Status)
	assert.EqualValues(t, 2, stored.Version)

	_, err = f.svc.RecordTransactionModified(as("auditor"), TransactionModifiedInput{Company: "ACME", Name: "2024-01"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidatePeriodHonoursConfigToggles(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
	f.ledger.bank = []BankLine{{Name: "BSL-1", BankAccount: "BCA", Date: day(2024, 1, 20), Amount: decimal.NewFromInt(75)}}
	cfg := f.repo.configs["ACME"]
	cfg.EnableDraftTransactionCheck = false
	cfg.EnableSalesInvoiceCheck = false
	cfg.EnablePurchaseInvoiceCheck = false
	cfg.EnableInventoryCheck = false
	cfg.EnablePayrollCheck = false
	f.repo.configs["ACME"] = cfg

	report, err := f.svc.ValidatePeriod(context.Background(), "ACME", "2024-01")
	require.NoError(t, err)
	assert.Equal(t, VerdictBlocked, report.Verdict)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "Bank Reconciliation Complete", report.Results[0].CheckName)
	assert.False(t, report.Results[0].Passed)
	assert.Equal(t, []string{"BCA BSL-1 2024-01-20 75.00"}, report.Results[0].Details)
	assert.True(t, report.Results[1].Passed)
	assert.Len(t, f.observer.checks, 2)

	stored, err := f.svc.GetPeriod(context.Background(), "ACME", "2024-01")
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusOpen, stored.Status)
}

func TestValidatePeriodAbortsOnCollaboratorFailure(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
	f.ledger.queryErrs = []error{errBoom}

	_, err := f.svc.ValidatePeriod(context.Background(), "ACME", "2024-01")
	require.ErrorIs(t, err, errBoom)
}

func TestGetClosingSummary(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
	f.withProfit()

	summary, err := f.svc.GetClosingSummary(context.Background(), "ACME", "2024-01")
	require.NoError(t, err)
	assert.True(t, summary.NetIncome.Equal(decimal.NewFromInt(400)))
	assert.Len(t, summary.Balances, 3)
	assert.Len(t, summary.Nominal, 2)
	assert.Len(t, summary.Real, 1)
	for _, b := range summary.Nominal {
		assert.True(t, b.IsNominal)
	}
}

func TestGetClosingSummaryIncludesClosingLines(t *testing.T) {
	f := closedFixture(t)

	summary, err := f.svc.GetClosingSummary(context.Background(), "ACME", "2024-01")
	require.NoError(t, err)
	assert.Equal(t, "ACC-JV-0001", summary.ClosingJournal)
	require.Len(t, summary.ClosingLines, 3)
	assert.Equal(t, "Retained Earnings - ACME", summary.ClosingLines[2].Account)
	assert.True(t, summary.ClosingLines[2].Credit.Equal(decimal.NewFromInt(400)))
}

func TestPreviewClosing(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
	f.withProfit()

	preview, err := f.svc.PreviewClosing(context.Background(), "ACME", "2024-01")
	require.NoError(t, err)
	assert.Equal(t, "Retained Earnings - ACME", preview.RetainedEarningsAccount)
	assert.True(t, preview.TotalIncome.Equal(decimal.NewFromInt(1000)))
	assert.True(t, preview.TotalExpense.Equal(decimal.NewFromInt(600)))
	assert.True(t, preview.NetIncome.Equal(decimal.NewFromInt(400)))
	require.Len(t, preview.Lines, 3)
	assert.Equal(t, "Rent - ACME", preview.Lines[0].Account)
	assert.True(t, preview.Lines[0].Credit.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, "Sales - ACME", preview.Lines[1].Account)
	assert.True(t, preview.Lines[1].Debit.Equal(decimal.NewFromInt(1000)))

	assert.Empty(t, f.ledger.submitted)
	stored, err := f.svc.GetPeriod(context.Background(), "ACME", "2024-01")
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusOpen, stored.Status)
	assert.Len(t, f.repo.logs, 0)
}

func TestPreviewClosingWithoutActivity(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))

	preview, err := f.svc.PreviewClosing(context.Background(), "ACME", "2024-01")
	require.NoError(t, err)
	assert.NotNil(t, preview.Lines)
	assert.Empty(t, preview.Lines)
	assert.True(t, preview.NetIncome.IsZero())
}

func TestPreviewClosingRequiresRetainedEarnings(t *testing.T) {
	f := newFixture(t)
	f.openPeriod("2024-01", day(2024, 1, 1), day(2024, 1, 31))
	cfg := f.repo.configs["ACME"]
	cfg.RetainedEarningsAccount = ""
	f.repo.configs["ACME"] = cfg

	_, err := f.svc.PreviewClosing(context.Background(), "ACME", "2024-01")
	require.ErrorIs(t, err, ErrRetainedEarnings)

	_, err = f.svc.PreviewClosing(context.Background(), "ACME", "missing")
	require.ErrorIs(t, err, ErrPeriodNotFound)
}

func TestUpdateConfig(t *testing.T) {
	f := newFixture(t)
	ctx := as("admin")

	_, err := f.svc.UpdateConfig(ctx, "ACME", ConfigPatch{})
	require.ErrorIs(t, err, ErrNoFieldsProvided)

	off := false
	_, err = f.svc.UpdateConfig(as("accountant"), "ACME", ConfigPatch{EnablePayrollCheck: &off})
	require.ErrorIs(t, err, ErrInsufficientPrivilege)

	negative := -1
	_, err = f.svc.UpdateConfig(ctx, "ACME", ConfigPatch{ReminderDaysBeforeEnd: &negative})
	require.ErrorIs(t, err, ErrInvalidInput)

	role := "Finance Lead"
	updated, err := f.svc.UpdateConfig(ctx, "ACME", ConfigPatch{EnablePayrollCheck: &off, ClosingRole: &role})
	require.NoError(t, err)
	assert.False(t, updated.EnablePayrollCheck)
	assert.Equal(t, "Finance Lead", updated.ClosingRole)
	assert.Equal(t, "Retained Earnings - ACME", updated.RetainedEarningsAccount)
	assert.Equal(t, f.now, updated.UpdatedAt)

	reread, err := f.svc.Config(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, updated, reread)

	fresh, err := f.svc.UpdateConfig(ctx, "GLOBEX", ConfigPatch{EnablePayrollCheck: &off})
	require.NoError(t, err)
	assert.True(t, fresh.EnableBankReconciliationCheck)
	assert.Equal(t, "GLOBEX", fresh.Company)
}

func TestConfigDefaultsForUnknownCompany(t *testing.T) {
	f := newFixture(t)
	cfg, err := f.svc.Config(context.Background(), "GLOBEX")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig("GLOBEX"), cfg)
}

func TestListAuditLog(t *testing.T) {
	f := closedFixture(t)

	_, _, err := f.svc.ListAuditLog(context.Background(), AuditFilter{ActionType: "Deleted"})
	require.ErrorIs(t, err, ErrInvalidInput)

	from, to := day(2024, 2, 1), day(2024, 1, 1)
	_, _, err = f.svc.ListAuditLog(context.Background(), AuditFilter{From: &from, To: &to})
	require.ErrorIs(t, err, ErrDateRangeInvalid)

	logs, total, err := f.svc.ListAuditLog(context.Background(), AuditFilter{Company: "ACME", ActionType: ActionClosed})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, logs, 1)
	assert.Equal(t, ActionClosed, logs[0].ActionType)
}
