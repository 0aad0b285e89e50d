package close

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// VoucherTypeClosingEntry tags journal entries produced by a period close.
const VoucherTypeClosingEntry = "Closing Entry"

// JournalLine is one debit or credit leg of a journal entry.
type JournalLine struct {
	Account string          `json:"account"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
}

// JournalEntry is submitted to the ledger backend.
type JournalEntry struct {
	Company     string        `json:"company"`
	VoucherType string        `json:"voucher_type"`
	PostingDate time.Time     `json:"posting_date"`
	Remark      string        `json:"remark"`
	Period      string        `json:"accounting_period"`
	Lines       []JournalLine `json:"lines"`
}

// Totals sums both sides of the entry.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// Balanced reports whether total debits equal total credits.
func (e JournalEntry) Balanced() bool {
	debit, credit := e.Totals()
	return debit.Equal(credit)
}

// BuildClosingEntry sweeps nominal account balances into retainedEarnings.
// It returns false when there is nothing to sweep.
func BuildClosingEntry(period Period, retainedEarnings string, balances []AccountBalance) (JournalEntry, bool, error) {
	nets := make(map[string]decimal.Decimal)
	for _, b := range balances {
		if b.IsGroup || !b.RootType.Nominal() {
			continue
		}
		nets[b.Account] = nets[b.Account].Add(b.Debit.Sub(b.Credit))
	}
	accounts := make([]string, 0, len(nets))
	for account := range nets {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	entry := JournalEntry{
		Company:     period.Company,
		VoucherType: VoucherTypeClosingEntry,
		PostingDate: period.EndDate,
		Remark:      "Closing entry for accounting period " + period.PeriodName,
		Period:      period.Name,
	}
	var debit, credit decimal.Decimal
	for _, account := range accounts {
		net := nets[account].Round(2)
		if net.IsZero() {
			continue
		}
		line := JournalLine{Account: account}
		if net.IsPositive() {
			line.Credit = net
			credit = credit.Add(net)
		} else {
			line.Debit = net.Neg()
			debit = debit.Add(line.Debit)
		}
		entry.Lines = append(entry.Lines, line)
	}
	if len(entry.Lines) == 0 {
		return JournalEntry{}, false, nil
	}
	// Profit leaves reversal debits ahead of credits, so retained earnings is credited.
	diff := debit.Sub(credit)
	switch {
	case diff.IsPositive():
		entry.Lines = append(entry.Lines, JournalLine{Account: retainedEarnings, Credit: diff})
	case diff.IsNegative():
		entry.Lines = append(entry.Lines, JournalLine{Account: retainedEarnings, Debit: diff.Neg()})
	}
	if !entry.Balanced() {
		return JournalEntry{}, false, ErrUnbalancedJournal
	}
	return entry, true, nil
}

// NetIncome is income (credit minus debit) less expense (debit minus credit).
func NetIncome(balances []AccountBalance) decimal.Decimal {
	income, expense := NominalTotals(balances)
	return income.Sub(expense)
}

// NominalTotals sums income as credit minus debit and expense as debit minus
// credit, skipping group accounts.
func NominalTotals(balances []AccountBalance) (income, expense decimal.Decimal) {
	for _, b := range balances {
		if b.IsGroup {
			continue
		}
		switch b.RootType {
		case RootTypeIncome:
			income = income.Add(b.Credit.Sub(b.Debit))
		case RootTypeExpense:
			expense = expense.Add(b.Debit.Sub(b.Credit))
		}
	}
	return income, expense
}
