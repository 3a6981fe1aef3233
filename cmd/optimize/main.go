// Command optimize searches ecological parameters for runs in which all
// three kinds coexist, using Nelder-Mead over a normalized parameter space.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/biome/config"
)

// options holds the command line settings.
type options struct {
	ConfigPath string
	MaxTicks   uint32
	Seeds      int
	MaxEvals   int
	OutputDir  string
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	var opts options
	var maxTicks uint
	flag.StringVar(&opts.ConfigPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.UintVar(&maxTicks, "max-ticks", 20000, "Maximum simulation duration in ticks")
	flag.IntVar(&opts.Seeds, "seeds", 3, "Number of seeds per evaluation")
	flag.IntVar(&opts.MaxEvals, "max-evals", 200, "Maximum number of evaluations")
	flag.StringVar(&opts.OutputDir, "output", "", "Output directory for results")
	flag.Parse()
	opts.MaxTicks = uint32(maxTicks)

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(opts); err != nil {
		slog.Error("optimization failed", "error", err)
		os.Exit(1)
	}
}

// run performs the search and writes optimize_log.csv and best_config.yaml
// into the output directory.
func run(opts options) error {
	if opts.OutputDir == "" {
		return errors.New("--output is required")
	}
	if opts.Seeds < 1 || opts.MaxEvals < 1 || opts.MaxTicks == 0 {
		return fmt.Errorf("seeds, max-evals and max-ticks must be positive")
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	baseCfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := baseCfg.Validate(); err != nil {
		return err
	}

	params := NewParamVector()

	evalSeeds := make([]int64, opts.Seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, opts.MaxTicks, evalSeeds, baseCfg)

	logPath := filepath.Join(opts.OutputDir, "optimize_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	logWriter := csv.NewWriter(logFile)
	defer logWriter.Flush()

	header := []string{"eval", "fitness", "quality"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := logWriter.Write(header); err != nil {
		return fmt.Errorf("writing log header: %w", err)
	}

	evalCount := 0
	bestFitness := math.Inf(1)
	bestParams := params.ExtractFromConfig(baseCfg)
	startTime := time.Now()
	var evalErr error

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			clamped := params.Clamp(params.Denormalize(x))
			if evalErr != nil {
				return math.Inf(1)
			}
			fitness, err := evaluator.Evaluate(clamped)
			if err != nil {
				evalErr = err
				return math.Inf(1)
			}
			evalCount++

			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = clamped
			}

			quality := evaluator.LastQuality()
			row := []string{strconv.Itoa(evalCount), fmt.Sprintf("%.6f", fitness), fmt.Sprintf("%.4f", quality)}
			for _, v := range clamped {
				row = append(row, fmt.Sprintf("%.6f", v))
			}
			logWriter.Write(row)
			logWriter.Flush()

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(opts.MaxEvals-evalCount) * avgPerEval
			slog.Info("evaluation",
				"eval", evalCount,
				"max_evals", opts.MaxEvals,
				"fitness", fitness,
				"quality", quality,
				"best", bestFitness,
				"elapsed", formatDuration(elapsed),
				"eta", formatDuration(remaining),
			)
			return fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: opts.MaxEvals,
		Concurrent:      0, // Sequential evaluation; seeds already run in parallel
	}
	method := &optimize.NelderMead{SimplexSize: 0.2}

	slog.Info("starting optimization",
		"params", params.Dim(),
		"seeds", opts.Seeds,
		"max_evals", opts.MaxEvals,
		"max_ticks", opts.MaxTicks,
	)

	initX := params.Normalize(params.ExtractFromConfig(baseCfg))
	if _, err := optimize.Minimize(problem, initX, settings, method); err != nil {
		slog.Warn("optimization ended", "error", err)
	}
	if evalErr != nil {
		return evalErr
	}
	if err := logWriter.Error(); err != nil {
		return fmt.Errorf("writing log: %w", err)
	}

	slog.Info("optimization complete",
		"evals", evalCount,
		"best_fitness", bestFitness,
		"duration", formatDuration(time.Since(startTime)),
	)
	for i, spec := range params.Specs {
		slog.Info("best parameter", "name", spec.Name, "path", spec.Path, "value", bestParams[i])
	}

	bestCfg := baseCfg.Clone()
	params.ApplyToConfig(bestCfg, bestParams)
	configOutPath := filepath.Join(opts.OutputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		return err
	}
	slog.Info("best config saved", "path", configOutPath)
	return nil
}
