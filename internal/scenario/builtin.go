package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/signalsfoundry/uav-deconfliction/model"
)

// ErrUnknownScenario is returned by Get for names not in Names().
var ErrUnknownScenario = errors.New("unknown scenario")

// Scenario is a primary mission and the missions it must be checked
// against.
type Scenario struct {
	Name        string
	Title       string
	Description string
	Primary     *model.Mission
	Others      []*model.Mission

	// SafetyBuffer overrides the checker's buffer when positive.
	SafetyBuffer float64
}

type builtin struct {
	name, title, description string
	build                    func() (*model.Mission, []*model.Mission)
}

var builtins = []builtin{
	{"no_conflict", "No Conflict", "parallel lanes 100m apart and a distant patrol loop", noConflict},
	{"spatial", "Spatial Conflict", "diagonal paths crossing mid-mission", spatialConflict},
	{"temporal", "Temporal Conflict", "shared lane flown later, plus a shallow crossing inside the window", temporalConflict},
	{"3d", "3D Altitude Conflict", "same ground track at 100m and 10m vertical separation", altitudeConflict},
	{"complex_multi_drone", "Complex Multi-Drone", "lawn-mower survey against a loop, a transit and a random path", complexMultiDrone},
}

// Names lists the built-in scenarios in presentation order.
func Names() []string {
	out := make([]string, len(builtins))
	for i, b := range builtins {
		out[i] = b.name
	}
	return out
}

// Get builds the named built-in scenario. Lookup is case-insensitive.
func Get(name string) (Scenario, error) {
	for _, b := range builtins {
		if strings.EqualFold(b.name, name) {
			primary, others := b.build()
			return Scenario{
				Name:        b.name,
				Title:       b.title,
				Description: b.description,
				Primary:     primary,
				Others:      others,
			}, nil
		}
	}
	return Scenario{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownScenario, name, strings.Join(Names(), ", "))
}

// All builds every built-in scenario.
func All() []Scenario {
	out := make([]Scenario, 0, len(builtins))
	for _, b := range builtins {
		s, _ := Get(b.name)
		out = append(out, s)
	}
	return out
}

// must unwraps generator results for the fixed parameters below.
func must(m *model.Mission, err error) *model.Mission {
	if err != nil {
		panic(err)
	}
	return m
}

func line(id string, from, to model.Waypoint, t0, t1 float64) *model.Mission {
	return must(StraightLine(id, from, to, t0, t1, 5))
}

func loop(id string, center model.Waypoint, radius, t0, t1 float64) *model.Mission {
	return must(Circle(id, center, radius, t0, t1, 12))
}

func noConflict() (*model.Mission, []*model.Mission) {
	primary := line("primary", model.NewWaypoint(0, 0, 50), model.NewWaypoint(100, 0, 50), 0, 20)
	return primary, []*model.Mission{
		line("drone_1", model.NewWaypoint(0, 100, 50), model.NewWaypoint(100, 100, 50), 0, 20),
		loop("drone_2", model.NewWaypoint(200, 200, 75), 50, 5, 25),
	}
}

func spatialConflict() (*model.Mission, []*model.Mission) {
	primary := line("primary", model.NewWaypoint(0, 0, 50), model.NewWaypoint(100, 100, 50), 0, 20)
	return primary, []*model.Mission{
		line("drone_1", model.NewWaypoint(0, 100, 50), model.NewWaypoint(100, 0, 50), 0, 20),
		loop("drone_2", model.NewWaypoint(200, 200, 75), 30, 5, 25),
	}
}

func temporalConflict() (*model.Mission, []*model.Mission) {
	primary := line("primary", model.NewWaypoint(0, 0, 50), model.NewWaypoint(100, 0, 50), 0, 15)
	return primary, []*model.Mission{
		line("drone_1", model.NewWaypoint(0, 0, 50), model.NewWaypoint(100, 0, 50), 20, 35),
		line("drone_2", model.NewWaypoint(10, -10, 50), model.NewWaypoint(90, 10, 50), 5, 25),
	}
}

func altitudeConflict() (*model.Mission, []*model.Mission) {
	primary := line("primary", model.NewWaypoint(0, 0, 50), model.NewWaypoint(100, 0, 50), 0, 20)
	return primary, []*model.Mission{
		line("drone_1", model.NewWaypoint(0, 0, 150), model.NewWaypoint(100, 0, 150), 0, 20),
		line("drone_2", model.NewWaypoint(0, 0, 60), model.NewWaypoint(100, 0, 60), 0, 20),
	}
}

func complexMultiDrone() (*model.Mission, []*model.Mission) {
	primary := must(Grid("primary", model.NewWaypoint(0, 0, 50), 100, 100, 5, 0, 60))
	return primary, []*model.Mission{
		loop("drone_1", model.NewWaypoint(50, 50, 50), 40, 10, 40),
		line("drone_2", model.NewWaypoint(0, 50, 50), model.NewWaypoint(100, 50, 50), 20, 40),
		must(Random("drone_3", Bounds{XMax: 100, YMax: 100, ZMin: 40, ZMax: 60}, 8, 5, 55, 42)),
	}
}
