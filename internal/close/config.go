package close

import "time"

// Role names recognised outside per-company configuration.
const (
	RoleSystemManager   = "System Manager"
	RoleAdministrator   = "Administrator"
	RoleAccountsManager = "Accounts Manager"
)

// CheckKey identifies one toggleable pre-close check.
type CheckKey string

const (
	CheckBankReconciliation   CheckKey = "bank_reconciliation"
	CheckDraftTransactions    CheckKey = "draft_transactions"
	CheckUnpostedTransactions CheckKey = "unposted_transactions"
	CheckSalesInvoices        CheckKey = "sales_invoices"
	CheckPurchaseInvoices     CheckKey = "purchase_invoices"
	CheckInventory            CheckKey = "inventory"
	CheckPayroll              CheckKey = "payroll"
)

// Config is the per-company closing configuration. It is read fresh for
// every transition and never cached by the service.
type Config struct {
	Company                        string    `json:"company" db:"company"`
	RetainedEarningsAccount        string    `json:"retained_earnings_account" db:"retained_earnings_account"`
	EnableBankReconciliationCheck  bool      `json:"enable_bank_reconciliation_check" db:"enable_bank_reconciliation_check"`
	EnableDraftTransactionCheck    bool      `json:"enable_draft_transaction_check" db:"enable_draft_transaction_check"`
	EnableUnpostedTransactionCheck bool      `json:"enable_unposted_transaction_check" db:"enable_unposted_transaction_check"`
	EnableSalesInvoiceCheck        bool      `json:"enable_sales_invoice_check" db:"enable_sales_invoice_check"`
	EnablePurchaseInvoiceCheck     bool      `json:"enable_purchase_invoice_check" db:"enable_purchase_invoice_check"`
	EnableInventoryCheck           bool      `json:"enable_inventory_check" db:"enable_inventory_check"`
	EnablePayrollCheck             bool      `json:"enable_payroll_check" db:"enable_payroll_check"`
	ClosingRole                    string    `json:"closing_role" db:"closing_role"`
	ReopenRole                     string    `json:"reopen_role" db:"reopen_role"`
	ReminderDaysBeforeEnd          int       `json:"reminder_days_before_end" db:"reminder_days_before_end" validate:"min=0,max=365"`
	EscalationDaysAfterEnd         int       `json:"escalation_days_after_end" db:"escalation_days_after_end" validate:"min=0,max=365"`
	EnableEmailNotifications       bool      `json:"enable_email_notifications" db:"enable_email_notifications"`
	UpdatedAt                      time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultConfig is used for companies that never saved a configuration.
func DefaultConfig(company string) Config {
	return Config{
		Company:                        company,
		EnableBankReconciliationCheck:  true,
		EnableDraftTransactionCheck:    true,
		EnableUnpostedTransactionCheck: true,
		EnableSalesInvoiceCheck:        true,
		EnablePurchaseInvoiceCheck:     true,
		EnableInventoryCheck:           true,
		EnablePayrollCheck:             true,
		ClosingRole:                    RoleAccountsManager,
		ReopenRole:                     RoleAccountsManager,
		ReminderDaysBeforeEnd:          3,
		EscalationDaysAfterEnd:         7,
		EnableEmailNotifications:       true,
	}
}

// Enabled reports whether the check identified by key should run.
func (c Config) Enabled(key CheckKey) bool {
	switch key {
	case CheckBankReconciliation:
		return c.EnableBankReconciliationCheck
	case CheckDraftTransactions:
		return c.EnableDraftTransactionCheck
	case CheckUnpostedTransactions:
		return c.EnableUnpostedTransactionCheck
	case CheckSalesInvoices:
		return c.EnableSalesInvoiceCheck
	case CheckPurchaseInvoices:
		return c.EnablePurchaseInvoiceCheck
	case CheckInventory:
		return c.EnableInventoryCheck
	case CheckPayroll:
		return c.EnablePayrollCheck
	default:
		return false
	}
}

// ConfigPatch is a partial update; nil fields are left untouched.
type ConfigPatch struct {
	RetainedEarningsAccount        *string `json:"retained_earnings_account,omitempty" validate:"omitempty,min=1,max=140"`
	EnableBankReconciliationCheck  *bool   `json:"enable_bank_reconciliation_check,omitempty"`
	EnableDraftTransactionCheck    *bool   `json:"enable_draft_transaction_check,omitempty"`
	EnableUnpostedTransactionCheck *bool   `json:"enable_unposted_transaction_check,omitempty"`
	EnableSalesInvoiceCheck        *bool   `json:"enable_sales_invoice_check,omitempty"`
	EnablePurchaseInvoiceCheck     *bool   `json:"enable_purchase_invoice_check,omitempty"`
	EnableInventoryCheck           *bool   `json:"enable_inventory_check,omitempty"`
	EnablePayrollCheck             *bool   `json:"enable_payroll_check,omitempty"`
	ClosingRole                    *string `json:"closing_role,omitempty" validate:"omitempty,max=140"`
	ReopenRole                     *string `json:"reopen_role,omitempty" validate:"omitempty,max=140"`
	ReminderDaysBeforeEnd          *int    `json:"reminder_days_before_end,omitempty" validate:"omitempty,min=0,max=365"`
	EscalationDaysAfterEnd         *int    `json:"escalation_days_after_end,omitempty" validate:"omitempty,min=0,max=365"`
	EnableEmailNotifications       *bool   `json:"enable_email_notifications,omitempty"`
}

// Empty reports whether the patch sets no field at all.
func (p ConfigPatch) Empty() bool {
	return p.RetainedEarningsAccount == nil &&
		p.EnableBankReconciliationCheck == nil &&
		p.EnableDraftTransactionCheck == nil &&
		p.EnableUnpostedTransactionCheck == nil &&
		p.EnableSalesInvoiceCheck == nil &&
		p.EnablePurchaseInvoiceCheck == nil &&
		p.EnableInventoryCheck == nil &&
		p.EnablePayrollCheck == nil &&
		p.ClosingRole == nil &&
		p.ReopenRole == nil &&
		p.ReminderDaysBeforeEnd == nil &&
		p.EscalationDaysAfterEnd == nil &&
		p.EnableEmailNotifications == nil
}

// Apply returns cfg with every non-nil patch field copied over.
func (p ConfigPatch) Apply(cfg Config) Config {
	setString(&cfg.RetainedEarningsAccount, p.RetainedEarningsAccount)
	setBool(&cfg.EnableBankReconciliationCheck, p.EnableBankReconciliationCheck)
	setBool(&cfg.EnableDraftTransactionCheck, p.EnableDraftTransactionCheck)
	setBool(&cfg.EnableUnpostedTransactionCheck, p.EnableUnpostedTransactionCheck)
	setBool(&cfg.EnableSalesInvoiceCheck, p.EnableSalesInvoiceCheck)
	setBool(&cfg.EnablePurchaseInvoiceCheck, p.EnablePurchaseInvoiceCheck)
	setBool(&cfg.EnableInventoryCheck, p.EnableInventoryCheck)
	setBool(&cfg.EnablePayrollCheck, p.EnablePayrollCheck)
	setString(&cfg.ClosingRole, p.ClosingRole)
	setString(&cfg.ReopenRole, p.ReopenRole)
	if p.ReminderDaysBeforeEnd != nil {
		cfg.ReminderDaysBeforeEnd = *p.ReminderDaysBeforeEnd
	}
	if p.EscalationDaysAfterEnd != nil {
		cfg.EscalationDaysAfterEnd = *p.EscalationDaysAfterEnd
	}
	setBool(&cfg.EnableEmailNotifications, p.EnableEmailNotifications)
	return cfg
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
