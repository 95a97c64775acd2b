package domain

// ─── Order State Machine Table ──────────────────────────────────────────────
// The graph is fixed. cancelled and refunded have no outgoing edges; completed
// only leads to disputed, which itself resolves to refunded or back to completed.

var transitions = map[OrderStatus][]OrderStatus{
	StatusCart:       {StatusPending},
	StatusPending:    {StatusProcessing, StatusCancelled, StatusDisputed},
	StatusProcessing: {StatusShipped, StatusCancelled, StatusDisputed},
	StatusShipped:    {StatusCompleted, StatusDisputed},
	StatusCompleted:  {StatusDisputed},
	StatusDisputed:   {StatusRefunded, StatusCompleted},
}

// AllowedTargets returns the statuses reachable from s in one step.
func AllowedTargets(s OrderStatus) []OrderStatus {
	out := make([]OrderStatus, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

// CanTransition reports whether the table has an edge from → to.
func CanTransition(from, to OrderStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing edges.
func IsTerminal(s OrderStatus) bool { return len(transitions[s]) == 0 }

// CheckTransition returns an InvalidTransition error when no edge exists.
func CheckTransition(from, to OrderStatus) error {
	if !CanTransition(from, to) {
		return Errorf(ErrInvalidTransition, "transition order", "cannot change order from %s to %s", from, to)
	}
	return nil
}

// CanRequest is the authorization mapping applied at the boundary: which role may
// ask for which edge. It never widens the table; CanTransition still applies.
func CanRequest(role Role, from, to OrderStatus) bool {
	switch role {
	case RoleBuyer:
		switch to {
		case StatusPending:
			return from == StatusCart
		case StatusDisputed:
			return true
		case StatusCancelled:
			return from == StatusPending
		}
	case RoleSeller:
		switch to {
		case StatusProcessing, StatusShipped:
			return true
		case StatusCompleted:
			return from == StatusShipped
		case StatusCancelled:
			return from == StatusPending || from == StatusProcessing
		}
	case RoleAdmin:
		switch to {
		case StatusRefunded:
			return true
		case StatusCompleted:
			return from == StatusDisputed
		}
	case RoleSystem:
		// Payment gateway confirmations and failures.
		return (from == StatusPending && to == StatusProcessing) ||
			(from == StatusPending && to == StatusCancelled)
	}
	return false
}
