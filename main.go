package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/game"
	"github.com/pthm-cable/biome/renderer"
	"github.com/pthm-cable/biome/server"
	"github.com/pthm-cable/biome/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "biome",
		Short: "Parallel predator/prey evolution simulation",
		Long: `biome simulates herbivores, carnivores and omnivores competing for food
in a bounded arena. Each tick computes every being's intent in parallel and
applies the results serially in id order, so a seed reproduces a run exactly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("log-level")
			slog.SetDefault(newLogger(level, cmd.OutOrStdout()))
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Path to config.yaml (empty = use defaults)")
	rootCmd.PersistentFlags().Int64("seed", 0, "RNG seed (0 = config seed, then time-based)")
	rootCmd.PersistentFlags().Int("workers", -1, "Worker goroutines (0 = one per CPU, -1 = use config)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: info, debug or trace")

	rootCmd.AddCommand(
		newRunCmd(),
		newViewCmd(),
		newServeCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

// newLogger creates a leveled JSON logger writing to w.
func newLogger(level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == telemetry.LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// parseLevel converts a level name to a slog.Level. Unknown names map to info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return telemetry.LevelTrace
	default:
		return slog.LevelInfo
	}
}

// addSimFlags registers the flags shared by every command that runs a simulation.
func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().Uint32("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	cmd.Flags().Bool("log-stats", false, "Log window stats via slog")
	cmd.Flags().String("output-dir", "", "Output directory for CSV logs and config snapshot")
	cmd.Flags().String("db", "", "SQLite database to record the run in")
}

// loadConfig loads the config file and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if seed, _ := cmd.Flags().GetInt64("seed"); seed != 0 {
		cfg.Seed = seed
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers >= 0 {
		cfg.Parallel.Workers = workers
	}
	cfg.Recompute()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newGame builds a game from the command's config and flags.
func newGame(cmd *cobra.Command) (*game.Game, uint32, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, 0, err
	}

	maxTicks, _ := cmd.Flags().GetUint32("max-ticks")
	logStats, _ := cmd.Flags().GetBool("log-stats")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	dbPath, _ := cmd.Flags().GetString("db")

	g, err := game.New(cfg, game.Options{
		LogStats:  logStats,
		OutputDir: outputDir,
		DBPath:    dbPath,
	})
	if err != nil {
		return nil, 0, err
	}

	slog.Info("starting simulation",
		"seed", g.Seed(),
		"workers", cfg.Derived.Workers,
		"max_beings", cfg.Population.MaxBeings,
		"max_food", cfg.Food.MaxFood,
		"max_ticks", maxTicks,
	)
	return g, maxTicks, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// finish closes g and logs the run summary.
func finish(g *game.Game, runErr error) error {
	closeErr := g.Close()
	logTotals(g.Tick(), g.Totals())
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return fmt.Errorf("closing telemetry: %w", closeErr)
	}
	return nil
}

func logTotals(tick uint32, t telemetry.Totals) {
	slog.Info("simulation finished",
		"tick", tick,
		"births", t.Births,
		"deaths", t.Deaths,
		"kills", t.Kills,
		"food_eaten", t.FoodEaten,
		"max_population", t.MaxPopulation,
	)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation headless",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, maxTicks, err := newGame(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return finish(g, g.Run(ctx, nil, maxTicks))
		},
	}
	addSimFlags(cmd)
	return cmd
}

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Run the simulation in a window",
		Long: `Opens a raylib window onto the simulation.

Controls: space or the button pauses, mouse wheel zooms, right drag pans,
left click inspects a being, R resets the camera. Closing the window stops.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, maxTicks, err := newGame(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			v := renderer.New(g, game.NewControl(), g.Config())
			return finish(g, v.Run(ctx, maxTicks))
		},
	}
	addSimFlags(cmd)
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation and stream frames over a websocket",
		Long: `Runs the simulation and serves /ws (frame stream) and /frame (latest
frame as JSON). Clients control the run by sending {"type": "pause"},
{"type": "resume"}, {"type": "toggle"} or {"type": "stop"}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, maxTicks, err := newGame(cmd)
			if err != nil {
				return err
			}
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = g.Config().Server.Addr
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			ctl := game.NewControl()
			srv := server.New(g, ctl, g.Config())

			srvErr := make(chan error, 1)
			go func() {
				err := srv.ListenAndServe(ctx, addr)
				if err != nil {
					cancel() // a server that cannot listen ends the run
				}
				srvErr <- err
			}()

			runErr := g.Run(ctx, ctl, maxTicks)
			cancel()
			if err := <-srvErr; err != nil && runErr == nil {
				runErr = fmt.Errorf("server: %w", err)
			}
			return finish(g, runErr)
		},
	}
	addSimFlags(cmd)
	cmd.Flags().String("addr", "", "Listen address (empty = config server.addr)")
	return cmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := cfg.MarshalYAMLBytes()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
