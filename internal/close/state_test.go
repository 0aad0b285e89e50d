package close

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition(t *testing.T) {
	statuses := []PeriodStatus{PeriodStatusOpen, PeriodStatusClosed, PeriodStatusPermanentlyClosed}
	allowed := map[[2]PeriodStatus]bool{
		{PeriodStatusOpen, PeriodStatusClosed}:              true,
		{PeriodStatusClosed, PeriodStatusOpen}:              true,
		{PeriodStatusClosed, PeriodStatusPermanentlyClosed}: true,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			err := ValidateTransition(from, to)
			if allowed[[2]PeriodStatus{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
			assert.NotErrorIs(t, err, ErrNotClosed)
		}
	}
}

func TestRequireClosed(t *testing.T) {
	err := requireClosed(PeriodStatusOpen, PeriodStatusPermanentlyClosed)
	assert.ErrorIs(t, err, ErrNotClosed)
	assert.Contains(t, err.Error(), "expected Closed")

	assert.NoError(t, requireClosed(PeriodStatusClosed, PeriodStatusOpen))
	assert.ErrorIs(t, requireClosed(PeriodStatusClosed, PeriodStatusClosed), ErrInvalidTransition)
}

func TestPeriodRangeHelpers(t *testing.T) {
	p := Period{StartDate: day(2024, 1, 1), EndDate: day(2024, 1, 31)}
	assert.True(t, p.Covers(day(2024, 1, 1)))
	assert.True(t, p.Covers(day(2024, 1, 31).Add(23*3600e9)))
	assert.False(t, p.Covers(day(2024, 2, 1)))
	assert.True(t, p.Overlaps(day(2023, 12, 1), day(2024, 1, 1)))
	assert.False(t, p.Overlaps(day(2024, 2, 1), day(2024, 2, 29)))
}

func TestPermanentlyClosedIsTerminal(t *testing.T) {
	for _, to := range []PeriodStatus{PeriodStatusOpen, PeriodStatusClosed, PeriodStatusPermanentlyClosed, "Archived"} {
		var transitionErr *TransitionError
		err := ValidateTransition(PeriodStatusPermanentlyClosed, to)
		if assert.ErrorAs(t, err, &transitionErr) {
			assert.Equal(t, PeriodStatusPermanentlyClosed, transitionErr.From)
			assert.Equal(t, to, transitionErr.To)
		}
	}
}
