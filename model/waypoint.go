package model

import (
	"fmt"
	"math"
)

// Waypoint is a point in a local Cartesian frame, in metres. Z is altitude
// and is zero for planar paths.
type Waypoint struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// NewWaypoint returns a waypoint at (x, y, z).
func NewWaypoint(x, y, z float64) Waypoint {
	return Waypoint{X: x, Y: y, Z: z}
}

// NewWaypoint2D returns a waypoint at ground level.
func NewWaypoint2D(x, y float64) Waypoint {
	return Waypoint{X: x, Y: y}
}

// DistanceTo returns the straight-line distance between two waypoints.
func (w Waypoint) DistanceTo(other Waypoint) float64 {
	dx := w.X - other.X
	dy := w.Y - other.Y
	dz := w.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Lerp returns the point a fraction f of the way from w to other.
func (w Waypoint) Lerp(other Waypoint, f float64) Waypoint {
	return Waypoint{
		X: w.X + (other.X-w.X)*f,
		Y: w.Y + (other.Y-w.Y)*f,
		Z: w.Z + (other.Z-w.Z)*f,
	}
}

func (w Waypoint) String() string {
	return fmt.Sprintf("Waypoint(x=%.2f, y=%.2f, z=%.2f)", w.X, w.Y, w.Z)
}
