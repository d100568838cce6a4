// Package scenario builds test missions: parametric path generators, the
// built-in demonstration scenarios, and a JSON/YAML scenario file loader.
package scenario

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/signalsfoundry/uav-deconfliction/model"
)

// StraightLine returns a mission of n evenly spaced waypoints from start to
// end. n must be at least 2.
func StraightLine(droneID string, start, end model.Waypoint, startTime, endTime float64, n int) (*model.Mission, error) {
	if n < 2 {
		return nil, fmt.Errorf("straight line %q: %w (got %d)", droneID, model.ErrTooFewWaypoints, n)
	}
	wps := make([]model.Waypoint, n)
	for i := range wps {
		wps[i] = start.Lerp(end, float64(i)/float64(n-1))
	}
	return model.NewMission(droneID, wps, startTime, endTime)
}

// Circle returns a closed patrol loop: n points around center at the given
// radius, followed by the first point again. Altitude is center.Z.
func Circle(droneID string, center model.Waypoint, radius, startTime, endTime float64, n int) (*model.Mission, error) {
	if n < 1 {
		return nil, fmt.Errorf("circle %q: %w (got %d points)", droneID, model.ErrTooFewWaypoints, n)
	}
	wps := make([]model.Waypoint, 0, n+1)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		wps = append(wps, model.NewWaypoint(
			center.X+radius*math.Cos(angle),
			center.Y+radius*math.Sin(angle),
			center.Z,
		))
	}
	wps = append(wps, wps[0])
	return model.NewMission(droneID, wps, startTime, endTime)
}

// Grid returns a lawn-mower sweep of rows passes across a width x height
// box anchored at start, alternating direction on each row. Each row
// contributes two waypoints.
func Grid(droneID string, start model.Waypoint, width, height float64, rows int, startTime, endTime float64) (*model.Mission, error) {
	if rows < 1 {
		return nil, fmt.Errorf("grid %q: %w (got %d rows)", droneID, model.ErrTooFewWaypoints, rows)
	}
	wps := make([]model.Waypoint, 0, 2*rows)
	for row := 0; row < rows; row++ {
		y := start.Y
		if rows > 1 {
			y += float64(row) * height / float64(rows-1)
		}
		left, right := start.X, start.X+width
		if row%2 == 1 {
			left, right = right, left
		}
		wps = append(wps, model.NewWaypoint(left, y, start.Z), model.NewWaypoint(right, y, start.Z))
	}
	return model.NewMission(droneID, wps, startTime, endTime)
}

// Bounds is an axis-aligned box for random waypoint placement. When ZMax
// is not above ZMin every waypoint is at ground level.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
	ZMin, ZMax float64
}

// Random returns a mission of n uniformly placed waypoints. The same seed
// always yields the same path.
func Random(droneID string, b Bounds, n int, startTime, endTime float64, seed int64) (*model.Mission, error) {
	rng := rand.New(rand.NewSource(seed))
	uniform := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }

	wps := make([]model.Waypoint, 0, max(n, 0))
	for i := 0; i < n; i++ {
		wp := model.NewWaypoint2D(uniform(b.XMin, b.XMax), uniform(b.YMin, b.YMax))
		if b.ZMax > b.ZMin {
			wp.Z = uniform(b.ZMin, b.ZMax)
		}
		wps = append(wps, wp)
	}
	return model.NewMission(droneID, wps, startTime, endTime)
}
