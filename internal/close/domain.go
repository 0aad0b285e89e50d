package close

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodStatus enumerates accounting period lifecycle stages.
type PeriodStatus string

const (
	PeriodStatusOpen              PeriodStatus = "Open"
	PeriodStatusClosed            PeriodStatus = "Closed"
	PeriodStatusPermanentlyClosed PeriodStatus = "Permanently Closed"
)

// Valid reports whether the status is one of the known lifecycle stages.
func (s PeriodStatus) Valid() bool {
	switch s {
	case PeriodStatusOpen, PeriodStatusClosed, PeriodStatusPermanentlyClosed:
		return true
	default:
		return false
	}
}

// PeriodType describes the length of an accounting period.
type PeriodType string

const (
	PeriodTypeMonthly   PeriodType = "Monthly"
	PeriodTypeQuarterly PeriodType = "Quarterly"
	PeriodTypeYearly    PeriodType = "Yearly"
)

// Valid reports whether the period type is supported.
func (t PeriodType) Valid() bool {
	switch t {
	case PeriodTypeMonthly, PeriodTypeQuarterly, PeriodTypeYearly:
		return true
	default:
		return false
	}
}

// Period is one ledger-locking window for a company.
type Period struct {
	Name                string       `json:"name" db:"name"`
	PeriodName          string       `json:"period_name" db:"period_name"`
	Company             string       `json:"company" db:"company"`
	FiscalYear          string       `json:"fiscal_year,omitempty" db:"fiscal_year"`
	StartDate           time.Time    `json:"start_date" db:"start_date"`
	EndDate             time.Time    `json:"end_date" db:"end_date"`
	PeriodType          PeriodType   `json:"period_type" db:"period_type"`
	Status              PeriodStatus `json:"status" db:"status"`
	ClosedBy            string       `json:"closed_by,omitempty" db:"closed_by"`
	ClosedOn            *time.Time   `json:"closed_on,omitempty" db:"closed_on"`
	ClosingJournalEntry string       `json:"closing_journal_entry,omitempty" db:"closing_journal_entry"`
	PermanentlyClosedBy string       `json:"permanently_closed_by,omitempty" db:"permanently_closed_by"`
	PermanentlyClosedOn *time.Time   `json:"permanently_closed_on,omitempty" db:"permanently_closed_on"`
	Remarks             string       `json:"remarks,omitempty" db:"remarks"`
	Version             int64        `json:"version" db:"version"`
	CreatedAt           time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at" db:"updated_at"`
}

// Covers reports whether the date falls inside the period range, inclusive.
func (p Period) Covers(date time.Time) bool {
	d := truncateDay(date)
	return !d.Before(truncateDay(p.StartDate)) && !d.After(truncateDay(p.EndDate))
}

// Overlaps reports whether [start, end] intersects the period range.
func (p Period) Overlaps(start, end time.Time) bool {
	return !truncateDay(start).After(truncateDay(p.EndDate)) && !truncateDay(end).Before(truncateDay(p.StartDate))
}

// Range returns the period's date range.
func (p Period) Range() DateRange {
	return DateRange{From: p.StartDate, To: p.EndDate}
}

func (p Period) clearClosing() Period {
	p.ClosedBy = ""
	p.ClosedOn = nil
	p.ClosingJournalEntry = ""
	return p
}

// DateRange is an inclusive calendar range.
type DateRange struct {
	From time.Time
	To   time.Time
}

// RootType is the top-level classification of a ledger account.
type RootType string

const (
	RootTypeAsset     RootType = "Asset"
	RootTypeLiability RootType = "Liability"
	RootTypeEquity    RootType = "Equity"
	RootTypeIncome    RootType = "Income"
	RootTypeExpense   RootType = "Expense"
)

// Nominal reports whether accounts of this root are swept to zero at close.
func (r RootType) Nominal() bool {
	switch r {
	case RootTypeIncome, RootTypeExpense:
		return true
	case RootTypeAsset, RootTypeLiability, RootTypeEquity:
		return false
	default:
		return false
	}
}

// AccountBalance is one ledger account's aggregated movement for a range.
type AccountBalance struct {
	Account     string          `json:"account" db:"account"`
	AccountName string          `json:"account_name" db:"account_name"`
	AccountType string          `json:"account_type" db:"account_type"`
	RootType    RootType        `json:"root_type" db:"root_type"`
	IsGroup     bool            `json:"is_group" db:"is_group"`
	Debit       decimal.Decimal `json:"debit" db:"debit"`
	Credit      decimal.Decimal `json:"credit" db:"credit"`
	Balance     decimal.Decimal `json:"balance" db:"balance"`
	IsNominal   bool            `json:"is_nominal" db:"-"`
}

// Account describes a chart of accounts node.
type Account struct {
	Name        string   `json:"name" db:"name"`
	AccountName string   `json:"account_name" db:"account_name"`
	Company     string   `json:"company" db:"company"`
	RootType    RootType `json:"root_type" db:"root_type"`
	AccountType string   `json:"account_type" db:"account_type"`
	IsGroup     bool     `json:"is_group" db:"is_group"`
}

// AccountTypeStock marks inventory accounts, which cannot receive closing sweeps.
const AccountTypeStock = "Stock"

// Transaction is a ledger document reference returned by collaborator queries.
type Transaction struct {
	Name        string    `json:"name" db:"name"`
	Doctype     string    `json:"doctype" db:"doctype"`
	PostingDate time.Time `json:"posting_date" db:"posting_date"`
}

// BankLine is an unreconciled bank statement line.
type BankLine struct {
	Name        string          `json:"name" db:"name"`
	BankAccount string          `json:"bank_account" db:"bank_account"`
	Date        time.Time       `json:"date" db:"date"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
}

// Document types inspected by the pre-close checks.
const (
	DoctypeJournalEntry    = "Journal Entry"
	DoctypeSalesInvoice    = "Sales Invoice"
	DoctypePurchaseInvoice = "Purchase Invoice"
	DoctypePaymentEntry    = "Payment Entry"
	DoctypeStockEntry      = "Stock Entry"
	DoctypeSalarySlip      = "Salary Slip"
)

// CreatePeriodInput captures validation rules for new periods.
type CreatePeriodInput struct {
	PeriodName string     `json:"period_name" validate:"required,max=140"`
	Company    string     `json:"company" validate:"required,max=140"`
	StartDate  time.Time  `json:"start_date" validate:"required"`
	EndDate    time.Time  `json:"end_date" validate:"required"`
	PeriodType PeriodType `json:"period_type" validate:"required,oneof=Monthly Quarterly Yearly"`
	FiscalYear string     `json:"fiscal_year,omitempty" validate:"omitempty,max=20"`
	Remarks    string     `json:"remarks,omitempty" validate:"omitempty,max=1000"`
}

// ClosePeriodInput requests the Open to Closed transition.
type ClosePeriodInput struct {
	Name    string `json:"name" validate:"required"`
	Company string `json:"company" validate:"required"`
	Force   bool   `json:"force,omitempty"`
}

// ReopenPeriodInput requests the Closed to Open transition.
type ReopenPeriodInput struct {
	Name    string `json:"name" validate:"required"`
	Company string `json:"company" validate:"required"`
	Reason  string `json:"reason"`
}

// PermanentCloseInput requests the terminal Closed to Permanently Closed transition.
type PermanentCloseInput struct {
	Name         string `json:"name" validate:"required"`
	Company      string `json:"company" validate:"required"`
	Confirmation string `json:"confirmation"`
}

// PermanentCloseConfirmation must be echoed back verbatim to seal a period.
const PermanentCloseConfirmation = "PERMANENT"

// TransactionModifiedInput flags an out-of-band edit inside a closed window.
type TransactionModifiedInput struct {
	Name                string `json:"name" validate:"required"`
	Company             string `json:"company" validate:"required"`
	AffectedTransaction string `json:"affected_transaction" validate:"required"`
	TransactionDoctype  string `json:"transaction_doctype" validate:"required"`
	Actor               string `json:"actor,omitempty"`
	Reason              string `json:"reason,omitempty"`
}

// PeriodFilter narrows period listings.
type PeriodFilter struct {
	Company    string
	Status     PeriodStatus
	FiscalYear string
	Limit      int
	Offset     int
}

// ClosingSummary reports the balances behind a period's closing entry.
type ClosingSummary struct {
	Period         Period           `json:"period"`
	ClosingJournal string           `json:"closing_journal,omitempty"`
	ClosingLines   []JournalLine    `json:"closing_lines,omitempty"`
	Balances       []AccountBalance `json:"account_balances"`
	Nominal        []AccountBalance `json:"nominal_accounts"`
	Real           []AccountBalance `json:"real_accounts"`
	NetIncome      decimal.Decimal  `json:"net_income"`
}

// ClosingPreview is the closing entry a close would post right now.
type ClosingPreview struct {
	Period                  Period          `json:"period"`
	Lines                   []JournalLine   `json:"journal_accounts"`
	TotalIncome             decimal.Decimal `json:"total_income"`
	TotalExpense            decimal.Decimal `json:"total_expense"`
	NetIncome               decimal.Decimal `json:"net_income"`
	RetainedEarningsAccount string          `json:"retained_earnings_account"`
}

// GenerateMonthlyInput describes the fiscal year to split into monthly periods.
// A zero YearStart or YearEnd defaults to the calendar year named by FiscalYear.
type GenerateMonthlyInput struct {
	Company    string    `json:"company" validate:"required,max=140"`
	FiscalYear string    `json:"fiscal_year" validate:"required,max=20"`
	YearStart  time.Time `json:"year_start_date"`
	YearEnd    time.Time `json:"year_end_date"`
}

// GeneratedPeriods reports the outcome of a monthly generation run.
type GeneratedPeriods struct {
	Created []Period          `json:"created"`
	Skipped []SkippedPeriod   `json:"skipped"`
	Errors  []GenerationError `json:"errors"`
}

// SkippedPeriod is a month whose exact range already exists.
type SkippedPeriod struct {
	PeriodName   string `json:"period_name"`
	Reason       string `json:"reason"`
	ExistingName string `json:"existing_name"`
}

// GenerationError is a month that could not be created.
type GenerationError struct {
	PeriodName string `json:"period_name"`
	Error      string `json:"error"`
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
