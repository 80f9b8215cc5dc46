package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/iwvelando/adaptive-trial/internal/config"
	"github.com/iwvelando/adaptive-trial/internal/logging"
	"github.com/iwvelando/adaptive-trial/internal/trial"
	"github.com/iwvelando/adaptive-trial/pkg/constants"
	"github.com/iwvelando/adaptive-trial/pkg/output"
	"github.com/iwvelando/adaptive-trial/pkg/validation"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json, markdown, xlsx")
	outputFileFlag := flag.String("output-file", "", "write output to this file instead of stdout (required for xlsx)")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	replications := flag.Int("replications", 0, "replications per scenario override")
	seed := flag.Uint64("seed", 0, "base seed override")
	workers := flag.Int("workers", 0, "worker goroutines override (0 uses every CPU)")
	flag.Parse()

	// A .env file is optional; it only seeds ADAPTIVE_TRIAL_* overrides
	_ = godotenv.Load()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Only flags given on the command line override the file, so -seed 0 works
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	applyOverrides(conf, overrides{
		format:       *outputFormatFlag,
		file:         *outputFileFlag,
		replications: *replications,
		seed:         *seed,
		workers:      *workers,
		set:          setFlags,
	})
	if conf.Output.Format == "" {
		conf.Output.Format = constants.OutputFormatPretty
	}

	if err := conf.Validate(); err != nil {
		logger.Fatal("invalid configuration",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := trial.NewRunner(logger, trial.Options{
		Seed:    conf.Simulation.Seed,
		Workers: conf.Simulation.Workers,
	})
	report, err := runner.Run(ctx, conf.TrialDesign(), conf.ActiveScenarios(), conf.Simulation.Replications)
	if err != nil {
		logger.Fatal("failed to run simulation",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if err := writeReport(report, conf.Output); err != nil {
		logger.Fatal("failed to write output",
			zap.String("op", "main"),
			zap.String("format", conf.Output.Format),
			zap.Error(err),
		)
	}
}

// overrides holds CLI values; set names the flags present on the command line.
type overrides struct {
	format       string
	file         string
	replications int
	seed         uint64
	workers      int
	set          map[string]bool
}

// applyOverrides layers explicitly set CLI flags over the loaded configuration.
func applyOverrides(conf *config.Configuration, o overrides) {
	if o.set["output-format"] {
		conf.Output.Format = o.format
	}
	if o.set["output-file"] {
		conf.Output.File = o.file
	}
	if o.set["replications"] {
		conf.Simulation.Replications = o.replications
	}
	if o.set["seed"] {
		conf.Simulation.Seed = o.seed
	}
	if o.set["workers"] {
		conf.Simulation.Workers = o.workers
	}
}

func writeReport(report *trial.Report, out config.OutputConfig) (err error) {
	if err := validation.ValidateOutputFormat(out.Format); err != nil {
		return err
	}
	if out.Format == constants.OutputFormatXLSX {
		return output.XLSXFormat(report, out.File)
	}

	var w io.Writer = os.Stdout
	if out.File != "" {
		f, createErr := os.Create(out.File)
		if createErr != nil {
			return fmt.Errorf("failed to create output file %s: %w", out.File, createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("failed to close output file %s: %w", out.File, closeErr)
			}
		}()
		w = f
	}

	switch out.Format {
	case constants.OutputFormatPretty:
		return output.WritePretty(w, report)
	case constants.OutputFormatCSV:
		return output.WriteCSV(w, report)
	case constants.OutputFormatJSON:
		return output.WriteJSON(w, report)
	case constants.OutputFormatMarkdown:
		_, err := io.WriteString(w, output.MarkdownString(report))
		return err
	}
	return nil
}
