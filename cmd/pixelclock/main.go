package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"periph.io/x/host/v3"

	"github.com/coreman2200/pixelclock/internal/app"
	"github.com/coreman2200/pixelclock/internal/config"
	"github.com/coreman2200/pixelclock/internal/layout"
	"github.com/coreman2200/pixelclock/internal/render"
	"github.com/coreman2200/pixelclock/internal/wiring"
)

var (
	configPath string
	logLevel   string
	jsonLogs   bool
	simOnly    bool
	testStep   time.Duration
	testLevel  uint8
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "pixelclock",
		Short:         "LED matrix clock controller",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
		RunE: runClock,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "trace, debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "log JSON instead of console output")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "drive the display and serve the command plane",
		RunE:  runClock,
	}
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().BoolVar(&simOnly, "sim-only", false, "force simulation (no hardware output)")
	}

	configCmd := &cobra.Command{Use: "config", Short: "manage the configuration file"}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "write the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil {
				return errors.Errorf("%s already exists", configPath)
			}
			if err := config.Save(configPath, config.Default()); err != nil {
				return err
			}
			log.Info().Str("path", configPath).Msg("default config written")
			return nil
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "load the configuration and report what had to be fixed",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, notes, err := config.Load(configPath)
			if err != nil {
				return err
			}
			for _, n := range notes {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			if len(notes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
			}
			return nil
		},
	})

	mapCmd := &cobra.Command{
		Use:   "map",
		Short: "print the chain address of every matrix cell",
		RunE:  printMap,
	}

	testCmd := &cobra.Command{
		Use:       "selftest [" + kindList() + "]",
		Short:     "run a wiring test pattern on the configured outputs",
		Args:      cobra.RangeArgs(0, 1),
		ValidArgs: validKinds(),
		RunE:      runSelftest,
	}
	testCmd.Flags().DurationVar(&testStep, "step", 150*time.Millisecond, "time per test step")
	testCmd.Flags().Uint8Var(&testLevel, "brightness", 32, "brightness while testing")

	rootCmd.AddCommand(runCmd, configCmd, mapCmd, testCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("pixelclock")
		os.Exit(1)
	}
}

func setupLogging() error {
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	if !jsonLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}
	return nil
}

// loadConfig falls back to the defaults when the file is missing or
// broken, the way the clock must still come up on a fresh device.
func loadConfig() *config.Config {
	cfg, notes, err := config.Load(configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", configPath).Msg("config load failed; proceeding with defaults")
		return cfg
	}
	for _, n := range notes {
		log.Warn().Str("path", configPath).Msg(n)
	}
	return cfg
}

func initHost() {
	if _, err := host.Init(); err != nil {
		log.Warn().Err(err).Msg("periph host init failed; hardware outputs may be unavailable")
	}
}

func runClock(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if simOnly {
		cfg.Driver.Outputs = []string{"sim"}
	} else {
		initHost()
	}
	a, err := app.New(cfg, app.Options{ConfigPath: configPath, Logger: log.Logger})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log.Info().
		Int("rows", cfg.Layout.Rows).
		Int("cols", cfg.Layout.Cols).
		Strs("outputs", cfg.Driver.Outputs).
		Stringer("kind", cfg.Display.Kind).
		Msg("pixelclock starting")
	err = a.Run(ctx)
	log.Info().Msg("shutting down")
	return err
}

func printMap(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	m, err := layout.NewMapper(cfg.Layout)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 1, ' ', tabwriter.AlignRight)
	fmt.Fprint(w, "\t")
	for c := 0; c < m.Cols(); c++ {
		fmt.Fprintf(w, "c%d\t", c)
	}
	fmt.Fprintln(w)
	for r := 0; r < m.Rows(); r++ {
		fmt.Fprintf(w, "r%d\t", r)
		for c := 0; c < m.Cols(); c++ {
			fmt.Fprintf(w, "%d\t", m.Address(r, c))
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func runSelftest(cmd *cobra.Command, args []string) error {
	kinds := wiring.Kinds()
	if len(args) == 1 {
		k, err := wiring.ParseKind(args[0])
		if err != nil {
			return err
		}
		kinds = []wiring.Kind{k}
	}
	cfg := loadConfig()
	if simOnly {
		cfg.Driver.Outputs = []string{"sim"}
	} else {
		initHost()
	}
	m, err := layout.NewMapper(cfg.Layout)
	if err != nil {
		return err
	}
	cfg.Driver.MinInterval = 0
	out, err := app.OpenOutputs(cfg.Driver, m.Count(), log.Logger)
	if err != nil {
		return err
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	f := render.NewFrame(m)
	for _, k := range kinds {
		r := wiring.NewRunner(k)
		log.Info().Str("test", string(k)).Int("steps", r.Steps(f)).Msg("running")
		for r.Step(f) {
			if err := out.Show(f.Pixels(), testLevel); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(testStep):
			}
		}
	}
	f.Clear()
	return out.Show(f.Pixels(), 0)
}

func validKinds() []string {
	var out []string
	for _, k := range wiring.Kinds() {
		out = append(out, string(k))
	}
	return out
}

func kindList() string {
	s := ""
	for i, k := range validKinds() {
		if i > 0 {
			s += "|"
		}
		s += k
	}
	return s
}
