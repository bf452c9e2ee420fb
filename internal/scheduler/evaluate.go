package scheduler

import "github.com/hamed0406/uptimeworker/internal/domain"

// Evaluate maps a settled outcome to the check's new state. An alert is
// warranted only when the check has been probed before and the state
// flipped; the very first probe never alerts.
func Evaluate(c *domain.Check, o domain.Outcome) (domain.State, bool) {
	state := domain.StateDown
	if !o.Failed() && c.Accepts(o.ResponseCode) {
		state = domain.StateUp
	}
	return state, c.Probed() && state != c.State
}
