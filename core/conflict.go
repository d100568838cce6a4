package core

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/signalsfoundry/uav-deconfliction/model"
)

// DefaultMergeThreshold is the time window (seconds) within which raw
// violations are collapsed into a single reported conflict.
const DefaultMergeThreshold = 1.0

// Severity classifies how badly a conflict violates the safety buffer.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// ClassifySeverity returns SeverityCritical when distance is below half the
// buffer and SeverityWarning otherwise.
func ClassifySeverity(distance, buffer float64) Severity {
	if distance < buffer*0.5 {
		return SeverityCritical
	}
	return SeverityWarning
}

// Conflict is one detected violation of the safety buffer between the
// primary drone and another drone. Location is the primary's position.
type Conflict struct {
	PrimaryDrone     string         `json:"primary_drone"`
	ConflictingDrone string         `json:"conflicting_drone"`
	Time             float64        `json:"time"`
	Location         model.Waypoint `json:"location"`
	Distance         float64        `json:"distance"`
	Severity         Severity       `json:"severity"`
}

// SafetyMargin returns Distance - buffer; it is negative for any conflict
// produced against that buffer.
func (c Conflict) SafetyMargin(buffer float64) float64 {
	return c.Distance - buffer
}

func (c Conflict) String() string {
	return fmt.Sprintf("Conflict at t=%.2fs: %s vs %s at %s (distance=%.2fm, severity=%s)",
		c.Time, c.PrimaryDrone, c.ConflictingDrone, c.Location, c.Distance, c.Severity)
}

// MergeConflicts collapses conflicts that are close in time. Conflicts are
// ordered by time and grouped while each one lies within threshold seconds
// of the first conflict of the current group; the group start does not
// slide. Each group is represented by its smallest-distance member (the
// earliest on ties). The input slice is not modified.
func MergeConflicts(conflicts []Conflict, threshold float64) []Conflict {
	if len(conflicts) == 0 {
		return nil
	}

	sorted := slices.Clone(conflicts)
	slices.SortStableFunc(sorted, func(a, b Conflict) int {
		return cmp.Compare(a.Time, b.Time)
	})

	var merged []Conflict
	groupStart := sorted[0].Time
	best := sorted[0]
	for _, c := range sorted[1:] {
		if c.Time-groupStart <= threshold {
			if c.Distance < best.Distance {
				best = c
			}
			continue
		}
		merged = append(merged, best)
		groupStart = c.Time
		best = c
	}
	return append(merged, best)
}
