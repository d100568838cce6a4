package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/uav-deconfliction/core"
	"github.com/signalsfoundry/uav-deconfliction/internal/config"
	"github.com/signalsfoundry/uav-deconfliction/internal/logging"
	"github.com/signalsfoundry/uav-deconfliction/internal/report"
	"github.com/signalsfoundry/uav-deconfliction/internal/scenario"
	"github.com/signalsfoundry/uav-deconfliction/model"
)

// cli holds flag values and the state resolved from them before each
// subcommand runs.
type cli struct {
	cfgFile        string
	safetyBuffer   float64
	timeResolution float64
	workers        int
	output         string
	logLevel       string

	cfg config.Config
	log logging.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "deconflict",
		Short: "Strategic deconfliction for UAV missions in shared airspace",
		Long: `deconflict checks a primary drone mission against other scheduled
missions and reports every time and place where the drones come closer
than the safety buffer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.resolve(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "YAML config file")
	flags.Float64Var(&c.safetyBuffer, "safety-buffer", core.DefaultSafetyBuffer, "minimum separation in metres")
	flags.Float64Var(&c.timeResolution, "time-resolution", core.DefaultTimeResolution, "sampling interval in seconds")
	flags.IntVar(&c.workers, "workers", 0, "concurrent pair checks (0 = one per CPU)")
	flags.StringVarP(&c.output, "output", "o", "text", "output format: text or json")
	flags.StringVar(&c.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newScenariosCmd(c),
		newRunCmd(c),
		newCheckCmd(c),
		newSamplesCmd(c),
		newExportCmd(c),
		newRemoteCmd(c),
	)
	return root
}

// resolve layers defaults, config file, environment, then explicitly set
// flags.
func (c *cli) resolve(cmd *cobra.Command) error {
	cfg, err := config.LoadFile(config.Default(), c.cfgFile)
	if err != nil {
		return err
	}
	if cfg, err = config.FromEnv(cfg); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("safety-buffer") {
		cfg.SafetyBuffer = c.safetyBuffer
	}
	if flags.Changed("time-resolution") {
		cfg.TimeResolution = c.timeResolution
	}
	if flags.Changed("workers") {
		cfg.Workers = c.workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	switch strings.ToLower(c.output) {
	case "text", "json":
		c.output = strings.ToLower(c.output)
	default:
		return fmt.Errorf("unsupported output format %q (want text or json)", c.output)
	}

	c.cfg = cfg
	c.log = logging.New(logging.Config{Level: c.logLevel, Format: "text", Output: cmd.ErrOrStderr()})
	return nil
}

// service builds a checker for s. A scenario-level buffer applies unless
// --safety-buffer was given.
func (c *cli) service(cmd *cobra.Command, s scenario.Scenario) *core.DeconflictionService {
	opts := append(c.cfg.ServiceOptions(), core.WithLogger(c.log))
	if s.SafetyBuffer > 0 && !cmd.Flags().Changed("safety-buffer") {
		opts = append(opts, core.WithSafetyBuffer(s.SafetyBuffer))
	}
	svc := core.NewDeconflictionService(nil, opts...)
	for _, m := range s.Others {
		svc.RegisterMission(m)
	}
	return svc
}

func (c *cli) render(w io.Writer, svc *core.DeconflictionService, primary *model.Mission, res core.CheckResult) error {
	r := report.New(svc, primary, res)
	if c.output == "json" {
		return r.WriteJSON(w)
	}
	return r.WriteText(w)
}
