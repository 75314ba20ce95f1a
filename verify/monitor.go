package verify

import (
	"time"

	"github.com/poiesic/clausematch/core"
)

// Monitor observes a verification run. Calls happen on the goroutine that
// called Run, in document order.
type Monitor interface {
	Start(standardUnits, userUnits int)
	Claimed(userID, standardID string, confidence float64)
	Duplicate(userID, standardID string)
	Missing(standardID string, trulyMissing bool)
	Finish(result *core.VerificationResult, elapsed time.Duration)
}

type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (noopMonitor) Start(_, _ int)                                     {}
func (noopMonitor) Claimed(_, _ string, _ float64)                     {}
func (noopMonitor) Duplicate(_, _ string)                              {}
func (noopMonitor) Missing(_ string, _ bool)                           {}
func (noopMonitor) Finish(_ *core.VerificationResult, _ time.Duration) {}
