// Package policy decides whether a work order's field worker must be
// replaced before a status update is written upstream.
package policy

// Reason records why a reassignment was required.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonUnassigned  Reason = "unassigned"
	ReasonDeactivated Reason = "deactivated"
)

// Decision is the outcome of applying the policy to one work order.
type Decision struct {
	Reassign         bool
	NewFieldWorkerID int
	Reason           Reason
}

// Policy carries the fallback identity assigned whenever the current field
// worker cannot keep the order.
type Policy struct {
	FallbackFieldWorkerID int
}

// New returns a policy that reassigns to fallbackID.
func New(fallbackID int) Policy {
	return Policy{FallbackFieldWorkerID: fallbackID}
}

// Decide applies the policy. current is nil when the upstream record carried
// no assignee. The function has no side effects.
func (p Policy) Decide(current *int, active map[int]struct{}) Decision {
	if current == nil || *current == 0 {
		return Decision{
			Reassign:         true,
			NewFieldWorkerID: p.FallbackFieldWorkerID,
			Reason:           ReasonUnassigned,
		}
	}

	if _, ok := active[*current]; !ok {
		return Decision{
			Reassign:         true,
			NewFieldWorkerID: p.FallbackFieldWorkerID,
			Reason:           ReasonDeactivated,
		}
	}

	return Decision{NewFieldWorkerID: *current}
}
