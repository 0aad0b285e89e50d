package close

// ValidateTransition checks a status change against the lifecycle graph:
// Open -> Closed, Closed -> Open, Closed -> Permanently Closed.
func ValidateTransition(current, target PeriodStatus) error {
	switch current {
	case PeriodStatusOpen:
		if target == PeriodStatusClosed {
			return nil
		}
	case PeriodStatusClosed:
		if target == PeriodStatusOpen || target == PeriodStatusPermanentlyClosed {
			return nil
		}
	default:
		// Permanently Closed is terminal.
	}
	return &TransitionError{From: current, To: target}
}

// requireClosed reports NotClosed rather than a generic transition error for
// operations that only apply to closed periods.
func requireClosed(current, target PeriodStatus) error {
	if current != PeriodStatusClosed {
		return &TransitionError{From: current, To: target, notClosed: true}
	}
	return ValidateTransition(current, target)
}
