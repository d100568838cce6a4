package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/uav-deconfliction/internal/api"
	"github.com/signalsfoundry/uav-deconfliction/internal/report"
	"github.com/signalsfoundry/uav-deconfliction/internal/scenario"
)

func newScenariosCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the built-in scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTITLE\tDRONES\tDESCRIPTION")
			for _, s := range scenario.All() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Name, s.Title, len(s.Others)+1, s.Description)
			}
			return tw.Flush()
		},
	}
}

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario|all>",
		Short: "Check a built-in scenario's primary mission and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var scenarios []scenario.Scenario
			if args[0] == "all" {
				scenarios = scenario.All()
			} else {
				s, err := scenario.Get(args[0])
				if err != nil {
					return err
				}
				scenarios = []scenario.Scenario{s}
			}

			out := cmd.OutOrStdout()
			rows := make([]report.SummaryRow, 0, len(scenarios))
			for _, s := range scenarios {
				if c.output == "text" {
					fmt.Fprintf(out, "\nSCENARIO: %s\n", s.Title)
				}
				svc := c.service(cmd, s)
				res, err := svc.CheckMission(cmd.Context(), s.Primary)
				if err != nil {
					return err
				}
				if err := c.render(out, svc, s.Primary, res); err != nil {
					return err
				}
				rows = append(rows, report.SummaryRow{Scenario: s.Name, Safe: res.Safe, Conflicts: len(res.Conflicts)})
			}
			if len(scenarios) > 1 && c.output == "text" {
				fmt.Fprintln(out, "\nSUMMARY")
				return report.WriteSummary(out, rows)
			}
			return nil
		},
	}
}

func newCheckCmd(c *cli) *cobra.Command {
	var file string
	var fleet bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the primary mission in a JSON or YAML scenario file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scenario.LoadScenarioFile(file)
			if err != nil {
				return err
			}
			svc := c.service(cmd, s)
			if !fleet {
				res, err := svc.CheckMission(cmd.Context(), s.Primary)
				if err != nil {
					return err
				}
				return c.render(cmd.OutOrStdout(), svc, s.Primary, res)
			}

			svc.RegisterMission(s.Primary)
			results, err := svc.CheckFleet(cmd.Context())
			if err != nil {
				return err
			}
			for _, res := range results {
				m, _ := svc.Registry().Get(res.DroneID)
				if err := c.render(cmd.OutOrStdout(), svc, m, res); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "scenario file (.json, .yaml or .yml)")
	cmd.Flags().BoolVar(&fleet, "fleet", false, "check every mission in the file against all the others")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newSamplesCmd(c *cli) *cobra.Command {
	var (
		file    string
		droneID string
		n       int
	)
	cmd := &cobra.Command{
		Use:   "samples",
		Short: "Print evenly spaced trajectory samples for a mission in a scenario file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scenario.LoadScenarioFile(file)
			if err != nil {
				return err
			}
			m := s.Primary
			if droneID != "" && droneID != m.DroneID() {
				m = nil
				for _, other := range s.Others {
					if other.DroneID() == droneID {
						m = other
						break
					}
				}
				if m == nil {
					return fmt.Errorf("drone %q: %w", droneID, api.ErrNotFound)
				}
			}

			samples := m.TrajectorySamples(n)
			if c.output == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(samples)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tX\tY\tZ")
			for _, sample := range samples {
				p := sample.Position
				fmt.Fprintf(tw, "%.2f\t%.2f\t%.2f\t%.2f\n", sample.Time, p.X, p.Y, p.Z)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "scenario file (.json, .yaml or .yml)")
	cmd.Flags().StringVar(&droneID, "drone", "", "drone id to sample (default: the primary)")
	cmd.Flags().IntVarP(&n, "intervals", "n", 100, "number of sampling intervals")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newExportCmd(c *cli) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <scenario>",
		Short: "Write a built-in scenario as a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scenario.Get(args[0])
			if err != nil {
				return err
			}
			return scenario.Encode(cmd.OutOrStdout(), s, scenario.Format(format))
		},
	}
	cmd.Flags().StringVar(&format, "format", string(scenario.FormatYAML), "file format: yaml or json")
	return cmd
}

func newRemoteCmd(c *cli) *cobra.Command {
	var (
		addr    string
		file    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Register a scenario's missions with a deconflict-server and check its primary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scenario.LoadScenarioFile(file)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("connect %s: %w", addr, err)
			}
			defer conn.Close()

			client := api.NewClient(conn)
			for _, m := range s.Others {
				if err := client.RegisterMission(ctx, m); err != nil {
					return fmt.Errorf("register %s: %w", m.DroneID(), err)
				}
			}
			resp, err := client.CheckMission(ctx, s.Primary)
			if err != nil {
				return fmt.Errorf("check %s: %w", s.Primary.DroneID(), err)
			}

			r := report.Report{
				Primary:      s.Primary,
				SafetyBuffer: resp.SafetyBuffer,
				Registered:   resp.Registered,
				Result:       resp.CheckResult,
			}
			if c.output == "json" {
				return r.WriteJSON(cmd.OutOrStdout())
			}
			return r.WriteText(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:50051", "deconflict-server gRPC address")
	cmd.Flags().StringVarP(&file, "file", "f", "", "scenario file (.json, .yaml or .yml)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall RPC timeout")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
