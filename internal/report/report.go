// Package report renders deconfliction results for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/labstack/gommon/color"

	"github.com/signalsfoundry/uav-deconfliction/core"
	"github.com/signalsfoundry/uav-deconfliction/model"
)

const ruleWidth = 70

// Report is one primary mission's check outcome with the settings it was
// produced under.
type Report struct {
	Primary      *model.Mission
	SafetyBuffer float64
	Registered   int
	Result       core.CheckResult
}

// New captures the service settings alongside res.
func New(svc *core.DeconflictionService, primary *model.Mission, res core.CheckResult) Report {
	return Report{
		Primary:      primary,
		SafetyBuffer: svc.SafetyBuffer(),
		Registered:   svc.Registry().Len(),
		Result:       res,
	}
}

// WriteText writes the human-readable report. Status lines are coloured
// only when w is a terminal.
func (r Report) WriteText(w io.Writer) error {
	c := color.New()
	c.SetOutput(w)

	var b strings.Builder
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintf(&b, "DECONFLICTION REPORT for %s\n", r.Primary.DroneID())
	fmt.Fprintf(&b, "%s\n\n", rule)

	b.WriteString("Mission Details:\n")
	fmt.Fprintf(&b, "  - Waypoints: %d\n", r.Primary.NumWaypoints())
	fmt.Fprintf(&b, "  - Time Window: %.1fs - %.1fs\n", r.Primary.StartTime(), r.Primary.EndTime())
	fmt.Fprintf(&b, "  - Duration: %.1fs\n", r.Primary.Duration())
	fmt.Fprintf(&b, "  - Total Distance: %.1fm\n\n", r.Primary.TotalDistance())

	fmt.Fprintf(&b, "Safety Buffer: %gm\n", r.SafetyBuffer)
	fmt.Fprintf(&b, "Registered Missions: %d\n\n", r.Registered)

	if r.Result.Safe {
		b.WriteString(c.Green("STATUS: CLEAR - No conflicts detected", color.B) + "\n")
		b.WriteString("Mission is safe to execute.\n")
	} else {
		b.WriteString(c.Red(fmt.Sprintf("STATUS: CONFLICT DETECTED - %d conflict(s) found", len(r.Result.Conflicts)), color.B) + "\n\n")
		b.WriteString("Conflict Details:\n")
		b.WriteString(strings.Repeat("-", ruleWidth) + "\n")

		for i, cf := range r.Result.Conflicts {
			severity := strings.ToUpper(string(cf.Severity))
			if cf.Severity == core.SeverityCritical {
				severity = c.Red(severity)
			} else {
				severity = c.Yellow(severity)
			}
			fmt.Fprintf(&b, "\nConflict #%d:\n", i+1)
			fmt.Fprintf(&b, "  Time: %.2fs\n", cf.Time)
			fmt.Fprintf(&b, "  Location: (%.2f, %.2f, %.2f)\n", cf.Location.X, cf.Location.Y, cf.Location.Z)
			fmt.Fprintf(&b, "  Conflicting Drone: %s\n", cf.ConflictingDrone)
			fmt.Fprintf(&b, "  Distance: %.2fm\n", cf.Distance)
			fmt.Fprintf(&b, "  Severity: %s\n", severity)
			fmt.Fprintf(&b, "  Safety Margin: %.2fm (VIOLATED)\n", cf.SafetyMargin(r.SafetyBuffer))
		}
	}
	fmt.Fprintf(&b, "\n%s\n", rule)

	_, err := io.WriteString(w, b.String())
	return err
}

type jsonConflict struct {
	core.Conflict
	SafetyMargin float64 `json:"safety_margin"`
}

type jsonReport struct {
	DroneID            string         `json:"drone_id"`
	Waypoints          int            `json:"waypoints"`
	StartTime          float64        `json:"start_time"`
	EndTime            float64        `json:"end_time"`
	Duration           float64        `json:"duration"`
	TotalDistance      float64        `json:"total_distance"`
	SafetyBuffer       float64        `json:"safety_buffer"`
	RegisteredMissions int            `json:"registered_missions"`
	PairsChecked       int            `json:"pairs_checked"`
	Safe               bool           `json:"safe"`
	Conflicts          []jsonConflict `json:"conflicts"`
}

// WriteJSON writes the report as an indented JSON object. Each conflict
// carries its safety margin.
func (r Report) WriteJSON(w io.Writer) error {
	out := jsonReport{
		DroneID:            r.Primary.DroneID(),
		Waypoints:          r.Primary.NumWaypoints(),
		StartTime:          r.Primary.StartTime(),
		EndTime:            r.Primary.EndTime(),
		Duration:           r.Primary.Duration(),
		TotalDistance:      r.Primary.TotalDistance(),
		SafetyBuffer:       r.SafetyBuffer,
		RegisteredMissions: r.Registered,
		PairsChecked:       r.Result.PairsChecked,
		Safe:               r.Result.Safe,
		Conflicts:          make([]jsonConflict, 0, len(r.Result.Conflicts)),
	}
	for _, cf := range r.Result.Conflicts {
		out.Conflicts = append(out.Conflicts, jsonConflict{Conflict: cf, SafetyMargin: cf.SafetyMargin(r.SafetyBuffer)})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// SummaryRow is one line of a multi-scenario summary.
type SummaryRow struct {
	Scenario  string
	Safe      bool
	Conflicts int
}

// WriteSummary writes an aligned table of scenario outcomes.
func WriteSummary(w io.Writer, rows []SummaryRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tSTATUS\tCONFLICTS")
	for _, row := range rows {
		status := "CONFLICT"
		if row.Safe {
			status = "CLEAR"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", row.Scenario, status, row.Conflicts)
	}
	return tw.Flush()
}
