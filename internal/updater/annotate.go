package updater

import (
	"fmt"
	"strings"
	"time"

	"github.com/livinlefevreloca/wosync/internal/policy"
)

// UpdaterInfo identifies who requested an update. At defaults to the
// updater's clock when zero.
type UpdaterInfo struct {
	Name string    `json:"name"`
	At   time.Time `json:"at,omitempty"`
}

func reassignAnnotation(decision policy.Decision, previous *int) string {
	switch decision.Reason {
	case policy.ReasonUnassigned:
		return fmt.Sprintf("(assigned to FW %d, previously unassigned)", decision.NewFieldWorkerID)
	case policy.ReasonDeactivated:
		return fmt.Sprintf("(reassigned from deactivated FW %d)", *previous)
	default:
		return ""
	}
}

// The date has day precision so repeated same-day updates by the same
// person produce identical text.
func updaterAnnotation(info UpdaterInfo, at time.Time) string {
	return fmt.Sprintf("(updated by %s on %s)", strings.TrimSpace(info.Name), at.Format("2006-01-02"))
}
