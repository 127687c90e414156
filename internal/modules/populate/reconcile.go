package populate

import (
	"github.com/yungbote/codegraph-loader/internal/platform/logger"
)

// PhaseTotals is the reconciliation input for one phase: how many records
// were submitted and how many the store reported touching.
type PhaseTotals struct {
	Submitted int64
	Affected  int64
}

// Mismatch reports a count discrepancy. For edges this is how silently
// dropped records (missing endpoints) surface; for nodes it would flag an
// unexpected store response.
func (t PhaseTotals) Mismatch() bool {
	return t.Submitted != t.Affected
}

func reportReconciliation(log *logger.Logger, phase string, t PhaseTotals) {
	if t.Mismatch() {
		log.Warn("affected count does not match submitted records",
			"phase", phase, "submitted", t.Submitted, "affected", t.Affected)
		return
	}
	log.Info("phase reconciled", "phase", phase, "processed", t.Affected)
}
