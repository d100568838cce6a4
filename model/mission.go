package model

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/uav-deconfliction/timectrl"
)

const (
	// DefaultDroneID labels missions constructed without an explicit id.
	DefaultDroneID = "primary"
	// DefaultSpeed is the nominal speed (m/s) recorded on a mission when
	// none is given.
	DefaultSpeed = 10.0
)

var (
	// ErrInvalidMission is the parent of every mission construction error.
	ErrInvalidMission = errors.New("invalid mission")
	// ErrTooFewWaypoints indicates a path with fewer than two waypoints.
	ErrTooFewWaypoints = fmt.Errorf("%w: mission must have at least 2 waypoints", ErrInvalidMission)
	// ErrInvalidTimeWindow indicates start_time >= end_time.
	ErrInvalidTimeWindow = fmt.Errorf("%w: start time must be before end time", ErrInvalidMission)
)

// Mission is a timed path flown by one drone. It is immutable once built;
// use NewMission to construct one.
type Mission struct {
	droneID   string
	waypoints []Waypoint
	startTime float64
	endTime   float64

	// speed is the declared cruise speed. Position interpolation does not
	// use it; it assumes constant ground speed over the whole path instead.
	speed float64
}

// MissionOption customises mission construction.
type MissionOption func(*Mission)

// WithSpeed records a nominal cruise speed in m/s.
func WithSpeed(v float64) MissionOption {
	return func(m *Mission) {
		m.speed = v
	}
}

// NewMission validates and builds a mission. The waypoint slice is copied.
func NewMission(droneID string, waypoints []Waypoint, start, end float64, opts ...MissionOption) (*Mission, error) {
	if droneID == "" {
		droneID = DefaultDroneID
	}
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("mission %q: %w (got %d)", droneID, ErrTooFewWaypoints, len(waypoints))
	}
	if !(start < end) {
		return nil, fmt.Errorf("mission %q: %w (start=%g, end=%g)", droneID, ErrInvalidTimeWindow, start, end)
	}

	m := &Mission{
		droneID:   droneID,
		waypoints: append([]Waypoint(nil), waypoints...),
		startTime: start,
		endTime:   end,
		speed:     DefaultSpeed,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// MustMission is NewMission for fixed, known-good inputs. It panics on error.
func MustMission(droneID string, waypoints []Waypoint, start, end float64, opts ...MissionOption) *Mission {
	m, err := NewMission(droneID, waypoints, start, end, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Mission) DroneID() string    { return m.droneID }
func (m *Mission) StartTime() float64 { return m.startTime }
func (m *Mission) EndTime() float64   { return m.endTime }
func (m *Mission) Speed() float64     { return m.speed }
func (m *Mission) NumWaypoints() int  { return len(m.waypoints) }

// Waypoint returns the i-th waypoint in flight order.
func (m *Mission) Waypoint(i int) Waypoint { return m.waypoints[i] }

// Waypoints returns a copy of the path.
func (m *Mission) Waypoints() []Waypoint {
	return append([]Waypoint(nil), m.waypoints...)
}

// Window returns the mission's active time interval.
func (m *Mission) Window() timectrl.Window {
	return timectrl.Window{Start: m.startTime, End: m.endTime}
}

// Duration returns end - start in seconds.
func (m *Mission) Duration() float64 {
	return m.endTime - m.startTime
}

// TotalDistance returns the planned path length in metres.
func (m *Mission) TotalDistance() float64 {
	total := 0.0
	for i := 0; i < len(m.waypoints)-1; i++ {
		total += m.waypoints[i].DistanceTo(m.waypoints[i+1])
	}
	return total
}

// PositionAt returns the drone's interpolated position at mission time t
// together with the index of the segment it lies on. ok is false, and the
// segment index -1, when t is outside [StartTime, EndTime] or NaN.
//
// The drone is assumed to fly at a constant ground speed of
// TotalDistance/Duration along the whole path; the declared Speed is not
// consulted.
func (m *Mission) PositionAt(t float64) (pos Waypoint, segment int, ok bool) {
	if !(t >= m.startTime && t <= m.endTime) {
		return Waypoint{}, -1, false
	}

	target := (t - m.startTime) / m.Duration() * m.TotalDistance()

	covered := 0.0
	for i := 0; i < len(m.waypoints)-1; i++ {
		a, b := m.waypoints[i], m.waypoints[i+1]
		seg := a.DistanceTo(b)
		if covered+seg >= target {
			progress := 1.0
			if seg > 0 {
				progress = (target - covered) / seg
			}
			return a.Lerp(b, progress), i, true
		}
		covered += seg
	}

	// Rounding can leave target a hair past the summed segments at t == end.
	return m.waypoints[len(m.waypoints)-1], len(m.waypoints) - 2, true
}

// TrajectorySample is one (time, position) pair on a sampled trajectory.
type TrajectorySample struct {
	Time     float64  `json:"time"`
	Position Waypoint `json:"position"`
}

// TrajectorySamples samples the mission at n+1 evenly spaced times across
// its window. The result is recomputed on every call.
func (m *Mission) TrajectorySamples(n int) []TrajectorySample {
	times := m.Window().Steps(n)
	out := make([]TrajectorySample, 0, len(times))
	for _, t := range times {
		pos, _, ok := m.PositionAt(t)
		if !ok {
			continue
		}
		out = append(out, TrajectorySample{Time: t, Position: pos})
	}
	return out
}

func (m *Mission) String() string {
	return fmt.Sprintf("Mission(%s, %d waypoints, t=[%.1f, %.1f])", m.droneID, len(m.waypoints), m.startTime, m.endTime)
}
