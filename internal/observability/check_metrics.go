package observability

import (
	"sync"
	"time"

	"github.com/signalsfoundry/uav-deconfliction/core"
	"github.com/signalsfoundry/uav-deconfliction/kb"
)

// RecordCheck satisfies core.MetricsRecorder so the DeconflictionService
// can drive check counters directly.
func (c *Collector) RecordCheck(res core.CheckResult, elapsed time.Duration) {
	if c == nil {
		return
	}
	verdict := "safe"
	if !res.Safe {
		verdict = "conflict"
	}
	if c.ChecksTotal != nil {
		c.ChecksTotal.WithLabelValues(verdict).Inc()
	}
	if c.ConflictsTotal != nil {
		for _, conflict := range res.Conflicts {
			c.ConflictsTotal.WithLabelValues(string(conflict.Severity)).Inc()
		}
	}
	if c.CheckDurations != nil {
		c.CheckDurations.Observe(elapsed.Seconds())
	}
	if c.PairsEvaluated != nil {
		c.PairsEvaluated.Add(float64(res.PairsChecked))
	}
}

// SetRegisteredMissions updates the registry size gauge.
func (c *Collector) SetRegisteredMissions(count int) {
	if c == nil || c.RegisteredMissions == nil {
		return
	}
	c.RegisteredMissions.Set(float64(count))
}

// WatchRegistry keeps the registry size gauge in step with reg. It returns
// the unsubscribe function.
//
// The gauge is read back from reg.Len() under a lock on every event; event
// Counts from racing writers can arrive out of order.
func (c *Collector) WatchRegistry(reg *kb.MissionRegistry) (stop func()) {
	if c == nil || reg == nil {
		return func() {}
	}
	var mu sync.Mutex
	refresh := func() {
		mu.Lock()
		defer mu.Unlock()
		c.SetRegisteredMissions(reg.Len())
	}
	refresh()
	return reg.Subscribe(func(kb.Event) {
		refresh()
	})
}
