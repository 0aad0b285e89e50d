package close

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Severity grades a validation result.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationResult is the outcome of one check execution.
type ValidationResult struct {
	CheckName string   `json:"check_name"`
	Passed    bool     `json:"passed"`
	Message   string   `json:"message"`
	Severity  Severity `json:"severity"`
	Details   []string `json:"details,omitempty"`
}

// Blocking reports whether the result prevents a close.
func (r ValidationResult) Blocking() bool {
	if r.Passed {
		return false
	}
	switch r.Severity {
	case SeverityError:
		return true
	case SeverityWarning, SeverityInfo:
		return false
	default:
		return false
	}
}

// Verdict is the aggregate outcome of a validation run.
type Verdict string

const (
	VerdictPass    Verdict = "pass"
	VerdictBlocked Verdict = "blocked"
)

// ValidationReport aggregates every executed check.
type ValidationReport struct {
	Verdict Verdict            `json:"verdict"`
	Results []ValidationResult `json:"results"`
}

// NewValidationReport derives the verdict from results.
func NewValidationReport(results []ValidationResult) ValidationReport {
	report := ValidationReport{Verdict: VerdictPass, Results: results}
	for _, r := range results {
		if r.Blocking() {
			report.Verdict = VerdictBlocked
			break
		}
	}
	return report
}

// Blocked lists the results that block closing.
func (r ValidationReport) Blocked() []ValidationResult {
	var out []ValidationResult
	for _, res := range r.Results {
		if res.Blocking() {
			out = append(out, res)
		}
	}
	return out
}

// Warnings lists failed, non-blocking results.
func (r ValidationReport) Warnings() []ValidationResult {
	var out []ValidationResult
	for _, res := range r.Results {
		if !res.Passed && !res.Blocking() {
			out = append(out, res)
		}
	}
	return out
}

// Check is one independently toggleable pre-close validation.
type Check interface {
	Key() CheckKey
	Name() string
	// Cost orders execution; cheaper checks run first.
	Cost() int
	Run(ctx context.Context, ledger LedgerQuery, period Period) (ValidationResult, error)
}

// Engine runs the enabled checks for a period.
type Engine struct {
	ledger LedgerQuery
	checks []Check
	retry  RetryPolicy
}

// NewEngine builds an engine. With no checks supplied the standard set is used.
func NewEngine(ledger LedgerQuery, retry RetryPolicy, checks ...Check) *Engine {
	if len(checks) == 0 {
		checks = DefaultChecks()
	}
	ordered := append([]Check(nil), checks...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Cost() < ordered[j].Cost()
	})
	return &Engine{ledger: ledger, checks: ordered, retry: retry}
}

// Run executes every check enabled by cfg. Results keep cost order. Any
// collaborator failure that survives retry aborts the run.
func (e *Engine) Run(ctx context.Context, period Period, cfg Config) (ValidationReport, error) {
	enabled := make([]Check, 0, len(e.checks))
	for _, c := range e.checks {
		if cfg.Enabled(c.Key()) {
			enabled = append(enabled, c)
		}
	}
	results := make([]ValidationResult, len(enabled))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range enabled {
		g.Go(func() error {
			return Retry(gctx, e.retry, "check "+string(c.Key()), func(ctx context.Context) error {
				res, err := c.Run(ctx, e.ledger, period)
				if err != nil {
					return fmt.Errorf("%s: %w", c.Name(), err)
				}
				results[i] = res
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return ValidationReport{}, err
	}
	return NewValidationReport(results), nil
}

// ledgerCheck adapts a collaborator query returning offending records into a Check.
type ledgerCheck struct {
	key      CheckKey
	name     string
	cost     int
	severity Severity
	passMsg  string
	failMsg  string
	query    func(ctx context.Context, ledger LedgerQuery, period Period) ([]string, error)
}

func (c ledgerCheck) Key() CheckKey { return c.key }
func (c ledgerCheck) Name() string  { return c.name }
func (c ledgerCheck) Cost() int     { return c.cost }

func (c ledgerCheck) Run(ctx context.Context, ledger LedgerQuery, period Period) (ValidationResult, error) {
	details, err := c.query(ctx, ledger, period)
	if err != nil {
		return ValidationResult{}, err
	}
	if len(details) == 0 {
		return ValidationResult{CheckName: c.name, Passed: true, Message: c.passMsg, Severity: SeverityInfo}, nil
	}
	return ValidationResult{
		CheckName: c.name,
		Passed:    false,
		Message:   fmt.Sprintf(c.failMsg, len(details)),
		Severity:  c.severity,
		Details:   details,
	}, nil
}

// DefaultChecks returns the seven standard pre-close checks.
func DefaultChecks() []Check {
	return []Check{
		ledgerCheck{
			key: CheckSalesInvoices, name: "Sales Invoices Processed", cost: 10, severity: SeverityError,
			passMsg: "All sales invoices are submitted",
			failMsg: "Found %d draft sales invoice(s)",
			query:   draftsOf(DoctypeSalesInvoice),
		},
		ledgerCheck{
			key: CheckPurchaseInvoices, name: "Purchase Invoices Processed", cost: 10, severity: SeverityError,
			passMsg: "All purchase invoices are submitted",
			failMsg: "Found %d draft purchase invoice(s)",
			query:   draftsOf(DoctypePurchaseInvoice),
		},
		ledgerCheck{
			key: CheckInventory, name: "Inventory Transactions Posted", cost: 10, severity: SeverityError,
			passMsg: "All stock entries are submitted",
			failMsg: "Found %d draft stock entr(ies)",
			query:   draftsOf(DoctypeStockEntry),
		},
		ledgerCheck{
			key: CheckPayroll, name: "Payroll Entries Recorded", cost: 10, severity: SeverityWarning,
			passMsg: "All salary slips are submitted",
			failMsg: "Found %d draft salary slip(s)",
			query:   draftsOf(DoctypeSalarySlip),
		},
		ledgerCheck{
			key: CheckDraftTransactions, name: "No Draft Transactions", cost: 20, severity: SeverityError,
			passMsg: "All transactions are submitted",
			failMsg: "Found %d draft transaction(s)",
			query:   draftsOf(DoctypeJournalEntry, DoctypeSalesInvoice, DoctypePurchaseInvoice, DoctypePaymentEntry),
		},
		ledgerCheck{
			key: CheckBankReconciliation, name: "Bank Reconciliation Complete", cost: 30, severity: SeverityError,
			passMsg: "All bank accounts are reconciled",
			failMsg: "Found %d unreconciled bank statement line(s)",
			query:   unreconciledLines,
		},
		ledgerCheck{
			key: CheckUnpostedTransactions, name: "All Transactions Posted", cost: 40, severity: SeverityError,
			passMsg: "All transactions have GL entries",
			failMsg: "Found %d unposted transaction(s)",
			query:   unpostedTransactions,
		},
	}
}

func draftsOf(doctypes ...string) func(context.Context, LedgerQuery, Period) ([]string, error) {
	return func(ctx context.Context, ledger LedgerQuery, period Period) ([]string, error) {
		txs, err := ledger.DraftTransactions(ctx, period.Company, period.Range(), doctypes...)
		if err != nil {
			return nil, err
		}
		return transactionDetails(txs), nil
	}
}

func unpostedTransactions(ctx context.Context, ledger LedgerQuery, period Period) ([]string, error) {
	txs, err := ledger.UnpostedTransactions(ctx, period.Company, period.Range())
	if err != nil {
		return nil, err
	}
	return transactionDetails(txs), nil
}

func unreconciledLines(ctx context.Context, ledger LedgerQuery, period Period) ([]string, error) {
	lines, err := ledger.UnreconciledBankLines(ctx, period.Company, period.Range())
	if err != nil {
		return nil, err
	}
	details := make([]string, 0, len(lines))
	for _, l := range lines {
		details = append(details, fmt.Sprintf("%s %s %s %s", l.BankAccount, l.Name, l.Date.Format("2006-01-02"), l.Amount.StringFixed(2)))
	}
	return details, nil
}

func transactionDetails(txs []Transaction) []string {
	details := make([]string, 0, len(txs))
	for _, tx := range txs {
		details = append(details, fmt.Sprintf("%s %s %s", tx.Doctype, tx.Name, tx.PostingDate.Format("2006-01-02")))
	}
	return details
}
