package scenario

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/uav-deconfliction/core"
	"github.com/signalsfoundry/uav-deconfliction/model"
)

func TestStraightLine(t *testing.T) {
	m, err := StraightLine("d", model.NewWaypoint(0, 0, 10), model.NewWaypoint(100, 40, 30), 0, 10, 5)
	require.NoError(t, err)
	require.Equal(t, 5, m.NumWaypoints())
	assert.Equal(t, model.NewWaypoint(0, 0, 10), m.Waypoint(0))
	assert.Equal(t, model.NewWaypoint(50, 20, 20), m.Waypoint(2))
	assert.Equal(t, model.NewWaypoint(100, 40, 30), m.Waypoint(4))

	_, err = StraightLine("d", model.Waypoint{}, model.Waypoint{X: 1}, 0, 1, 1)
	assert.ErrorIs(t, err, model.ErrTooFewWaypoints)
}

func TestCircleClosesLoop(t *testing.T) {
	center := model.NewWaypoint(10, 20, 75)
	m, err := Circle("loop", center, 50, 0, 30, 12)
	require.NoError(t, err)
	require.Equal(t, 13, m.NumWaypoints())
	assert.Equal(t, m.Waypoint(0), m.Waypoint(12))
	for i := 0; i < m.NumWaypoints(); i++ {
		wp := m.Waypoint(i)
		assert.InDelta(t, 50, math.Hypot(wp.X-center.X, wp.Y-center.Y), 1e-9)
		assert.Equal(t, 75.0, wp.Z)
	}
}

func TestGridAlternatesDirection(t *testing.T) {
	m, err := Grid("survey", model.NewWaypoint(0, 0, 50), 100, 100, 5, 0, 60)
	require.NoError(t, err)
	require.Equal(t, 10, m.NumWaypoints())

	assert.Equal(t, model.NewWaypoint(0, 0, 50), m.Waypoint(0))
	assert.Equal(t, model.NewWaypoint(100, 0, 50), m.Waypoint(1))
	assert.Equal(t, model.NewWaypoint(100, 25, 50), m.Waypoint(2))
	assert.Equal(t, model.NewWaypoint(0, 25, 50), m.Waypoint(3))
	assert.Equal(t, model.NewWaypoint(0, 100, 50), m.Waypoint(8))
	assert.InDelta(t, 600, m.TotalDistance(), 1e-9)

	single, err := Grid("one", model.NewWaypoint(5, 7, 0), 10, 100, 1, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 7.0, single.Waypoint(1).Y)
}

func TestRandomIsSeeded(t *testing.T) {
	b := Bounds{XMax: 100, YMax: 100, ZMin: 40, ZMax: 60}
	a, err := Random("r", b, 8, 0, 10, 42)
	require.NoError(t, err)
	again, err := Random("r", b, 8, 0, 10, 42)
	require.NoError(t, err)
	other, err := Random("r", b, 8, 0, 10, 7)
	require.NoError(t, err)

	assert.Equal(t, a.Waypoints(), again.Waypoints())
	assert.NotEqual(t, a.Waypoints(), other.Waypoints())
	for _, wp := range a.Waypoints() {
		assert.True(t, wp.X >= 0 && wp.X <= 100, "x out of bounds: %v", wp)
		assert.True(t, wp.Z >= 40 && wp.Z <= 60, "z out of bounds: %v", wp)
	}

	flat, err := Random("flat", Bounds{XMax: 1, YMax: 1}, 3, 0, 1, 1)
	require.NoError(t, err)
	for _, wp := range flat.Waypoints() {
		assert.Zero(t, wp.Z)
	}
}

func check(t *testing.T, s Scenario) core.CheckResult {
	t.Helper()
	svc := core.NewDeconflictionService(nil)
	for _, m := range s.Others {
		svc.RegisterMission(m)
	}
	res, err := svc.CheckMission(context.Background(), s.Primary)
	require.NoError(t, err)
	return res
}

func conflictingDrones(res core.CheckResult) map[string]bool {
	out := map[string]bool{}
	for _, c := range res.Conflicts {
		out[c.ConflictingDrone] = true
	}
	return out
}

func TestBuiltinScenarioOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		safe     bool
		against  []string
		critical bool
	}{
		{name: "no_conflict", safe: true},
		{name: "spatial", against: []string{"drone_1"}, critical: true},
		{name: "temporal", against: []string{"drone_2"}},
		{name: "3d", against: []string{"drone_2"}, critical: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Get(tc.name)
			require.NoError(t, err)
			res := check(t, s)

			assert.Equal(t, tc.safe, res.Safe)
			assert.Equal(t, len(s.Others), res.PairsChecked)
			if tc.safe {
				return
			}
			drones := conflictingDrones(res)
			assert.Len(t, drones, len(tc.against))
			for _, id := range tc.against {
				assert.True(t, drones[id], "expected conflicts against %s", id)
			}

			hasCritical := false
			for _, c := range res.Conflicts {
				hasCritical = hasCritical || c.Severity == core.SeverityCritical
			}
			assert.Equal(t, tc.critical, hasCritical)
		})
	}
}

func TestComplexScenarioConflicts(t *testing.T) {
	s, err := Get("complex_multi_drone")
	require.NoError(t, err)
	require.Len(t, s.Others, 3)
	assert.Equal(t, 10, s.Primary.NumWaypoints())

	res := check(t, s)
	assert.False(t, res.Safe)
	assert.True(t, conflictingDrones(res)["drone_2"])
}

func TestGetUnknownAndNames(t *testing.T) {
	_, err := Get("nope")
	assert.ErrorIs(t, err, ErrUnknownScenario)

	s, err := Get("SPATIAL")
	require.NoError(t, err)
	assert.Equal(t, "spatial", s.Name)

	assert.Equal(t, []string{"no_conflict", "spatial", "temporal", "3d", "complex_multi_drone"}, Names())
	assert.Len(t, All(), 5)
}

const yamlDoc = `
name: crossing
safety_buffer: 30
primary:
  drone_id: primary
  start_time: 0
  end_time: 20
  waypoints:
    - {x: 0, y: 50, z: 50}
    - {x: 100, y: 50, z: 50}
others:
  - drone_id: drone_2
    start_time: 0
    end_time: 20
    speed: 12
    waypoints:
      - {x: 50, y: -50, z: 50}
      - {x: 50, y: 150, z: 50}
`

func TestLoadScenarioYAML(t *testing.T) {
	s, err := LoadScenario(strings.NewReader(yamlDoc), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "crossing", s.Name)
	assert.Equal(t, 30.0, s.SafetyBuffer)
	assert.Equal(t, "primary", s.Primary.DroneID())
	require.Len(t, s.Others, 1)
	assert.Equal(t, 12.0, s.Others[0].Speed())
	assert.Equal(t, model.DefaultSpeed, s.Primary.Speed())
}

func TestLoadScenarioJSON(t *testing.T) {
	doc := `{"primary": {"drone_id": "p", "start_time": 0, "end_time": 5,
		"waypoints": [{"x": 0, "y": 0, "z": 0}, {"x": 10, "y": 0, "z": 0}]}, "others": []}`
	s, err := LoadScenario(strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "p", s.Primary.DroneID())
	assert.Empty(t, s.Others)
}

func TestLoadScenarioRejects(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		format Format
		target error
	}{
		{name: "unknown json field", doc: `{"primery": {}}`, format: FormatJSON},
		{name: "unknown yaml field", doc: "primery: {}\n", format: FormatYAML},
		{name: "too few waypoints", doc: `{"primary": {"drone_id": "p", "start_time": 0, "end_time": 1, "waypoints": [{"x": 0, "y": 0, "z": 0}]}}`, format: FormatJSON, target: model.ErrTooFewWaypoints},
		{name: "bad window", doc: "primary:\n  start_time: 5\n  end_time: 5\n  waypoints: [{x: 0, y: 0, z: 0}, {x: 1, y: 0, z: 0}]\n", format: FormatYAML, target: model.ErrInvalidTimeWindow},
		{name: "unknown format", doc: "", format: "toml", target: ErrUnknownFormat},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadScenario(strings.NewReader(tc.doc), tc.format)
			require.Error(t, err)
			if tc.target != nil {
				assert.True(t, errors.Is(err, tc.target), "err = %v, want %v", err, tc.target)
			}
		})
	}
}

func TestLoadScenarioFileAndEncode(t *testing.T) {
	s, err := Get("3d")
	require.NoError(t, err)

	dir := t.TempDir()
	for _, format := range []Format{FormatJSON, FormatYAML} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, s, format))

		path := filepath.Join(dir, "scenario."+string(format))
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

		loaded, err := LoadScenarioFile(path)
		require.NoError(t, err, "format %s", format)
		assert.Equal(t, s.Name, loaded.Name)
		assert.Equal(t, s.Primary.Waypoints(), loaded.Primary.Waypoints())
		require.Len(t, loaded.Others, len(s.Others))
		assert.Equal(t, s.Others[1].DroneID(), loaded.Others[1].DroneID())
	}

	_, err = FormatFromPath("mission.txt")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = LoadScenarioFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadScenarioFileDefaultsName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unnamed.yml")
	doc := strings.Replace(yamlDoc, "name: crossing\n", "", 1)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	s, err := LoadScenarioFile(path)
	require.NoError(t, err)
	assert.Equal(t, "unnamed", s.Name)
}
