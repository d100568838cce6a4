package model

// MissionSpec is the serialisable form of a Mission, used by scenario files
// and the gRPC surface. Speed is optional; zero means DefaultSpeed.
type MissionSpec struct {
	DroneID   string     `json:"drone_id" yaml:"drone_id"`
	Waypoints []Waypoint `json:"waypoints" yaml:"waypoints"`
	StartTime float64    `json:"start_time" yaml:"start_time"`
	EndTime   float64    `json:"end_time" yaml:"end_time"`
	Speed     float64    `json:"speed,omitempty" yaml:"speed,omitempty"`
}

// Build validates s and constructs a Mission from it.
func (s MissionSpec) Build() (*Mission, error) {
	var opts []MissionOption
	if s.Speed > 0 {
		opts = append(opts, WithSpeed(s.Speed))
	}
	return NewMission(s.DroneID, s.Waypoints, s.StartTime, s.EndTime, opts...)
}

// Spec returns the serialisable form of m.
func (m *Mission) Spec() MissionSpec {
	return MissionSpec{
		DroneID:   m.droneID,
		Waypoints: m.Waypoints(),
		StartTime: m.startTime,
		EndTime:   m.endTime,
		Speed:     m.speed,
	}
}
