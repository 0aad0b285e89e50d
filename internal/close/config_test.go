package close

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigEnablesEveryCheck(t *testing.T) {
	cfg := DefaultConfig("ACME")
	for _, c := range DefaultChecks() {
		assert.True(t, cfg.Enabled(c.Key()), c.Key())
	}
	assert.False(t, cfg.Enabled("unknown"))
	assert.Equal(t, RoleAccountsManager, cfg.ClosingRole)
	assert.Equal(t, RoleAccountsManager, cfg.ReopenRole)
	assert.Empty(t, cfg.RetainedEarningsAccount)
	require.NoError(t, ValidateInput(cfg))
}

func TestConfigPatch(t *testing.T) {
	assert.True(t, ConfigPatch{}.Empty())

	off := false
	days := 10
	account := "Retained Earnings - ACME"
	patch := ConfigPatch{
		RetainedEarningsAccount: &account,
		EnableInventoryCheck:    &off,
		EscalationDaysAfterEnd:  &days,
	}
	assert.False(t, patch.Empty())

	cfg := patch.Apply(DefaultConfig("ACME"))
	assert.Equal(t, account, cfg.RetainedEarningsAccount)
	assert.False(t, cfg.EnableInventoryCheck)
	assert.False(t, cfg.Enabled(CheckInventory))
	assert.Equal(t, 10, cfg.EscalationDaysAfterEnd)
	assert.True(t, cfg.EnablePayrollCheck, "unset fields keep their value")
	assert.Equal(t, 3, cfg.ReminderDaysBeforeEnd)
}

func TestConfigPatchValidation(t *testing.T) {
	tooMany := 400
	negative := -2
	err := ValidateInput(ConfigPatch{ReminderDaysBeforeEnd: &tooMany, EscalationDaysAfterEnd: &negative})
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	fields := map[string]string{}
	for _, f := range inputErr.Fields {
		fields[f.Field] = f.Rule
	}
	assert.Equal(t, "max", fields["reminder_days_before_end"])
	assert.Equal(t, "min", fields["escalation_days_after_end"])
}
