package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dvloznov/sales-analysis/internal/config"
	"github.com/dvloznov/sales-analysis/internal/infra/gcs"
	"github.com/dvloznov/sales-analysis/internal/insight"
	"github.com/dvloznov/sales-analysis/internal/logger"
	"github.com/dvloznov/sales-analysis/internal/pipeline"
	"github.com/dvloznov/sales-analysis/internal/preview"
	"github.com/dvloznov/sales-analysis/internal/report"
	"github.com/dvloznov/sales-analysis/internal/source"
)

func main() {
	log := logger.New()

	// Credentials may come from a local .env; a missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runAnalysis(log)
	case "inspect":
		runInspect(log)
	case "publish":
		runPublish(log)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Diwali Sales Analysis")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  analyze <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  run       Load, clean and chart the sales dataset")
	fmt.Fprintln(w, "  inspect   Load and clean the dataset and print previews only")
	fmt.Fprintln(w, "  publish   Upload rendered charts to GCS")
	fmt.Fprintln(w, "  help      Show this help message")
	fmt.Fprintln(w, "\nRun 'analyze <command> -h' for more information on a command.")
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	config   *string
	source   *string
	out      *string
	encoding *string
}

func registerCommon(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		config:   fs.String("config", "", "Path to a TOML config file"),
		source:   fs.String("source", "", "Dataset location (http(s)://, gs://, bq:// or a local path)"),
		out:      fs.String("out", "", "Directory for rendered charts"),
		encoding: fs.String("encoding", "", "Source text encoding, e.g. ISO-8859-1"),
	}
}

// apply copies every flag that was set onto cfg.
func (f commonFlags) apply(cfg *config.Config) {
	if *f.source != "" {
		cfg.Source.URL = *f.source
	}
	if *f.out != "" {
		cfg.Output.Dir = *f.out
	}
	if *f.encoding != "" {
		cfg.Source.Encoding = *f.encoding
	}
}

// setup loads the config, applies flag overrides and returns a context
// carrying the configured logger and the run deadline.
func setup(log zerolog.Logger, f commonFlags) (context.Context, context.CancelFunc, *config.Config, zerolog.Logger) {
	cfg, err := config.Load(*f.config)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	f.apply(cfg)

	configured, err := logger.NewFromConfig(cfg.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid log config")
	}
	log = configured

	timeout, err := cfg.Timeout()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid run timeout")
	}

	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	return logger.WithContext(ctx, log), cancel, cfg, log
}

func runAnalysis(log zerolog.Logger) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	common := registerCommon(fs)
	bucket := fs.String("bucket", "", "Publish charts to this GCS bucket after rendering")
	insights := fs.Bool("insights", false, "Caption charts with Gemini")
	fs.Parse(os.Args[2:])

	ctx, cancel, cfg, log := setup(log, common)
	defer cancel()

	if *bucket != "" {
		cfg.Output.GCSBucket = *bucket
	}
	if *insights {
		cfg.Insights.Enabled = true
	}

	renderer := report.Renderer{Dir: cfg.Output.Dir}
	if cfg.Insights.Enabled {
		gen, err := insight.NewGemini(ctx, cfg.Insights.Model)
		if err != nil {
			log.Warn().Err(err).Msg("Insights disabled")
		} else {
			renderer.Captioner = insight.NewCaptioner(gen)
		}
	}

	deps := pipeline.Deps{
		Loader:   source.NewLoader(source.Options{Encoding: cfg.Source.Encoding}),
		Renderer: renderer,
		Printer:  preview.NewPrinter(os.Stdout),
	}
	if cfg.Output.GCSBucket != "" {
		client, err := gcs.NewClient(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS client")
		}
		defer client.Close()
		deps.Storage = client
	}

	p := pipeline.NewAnalysisPipeline(deps, pipeline.Options{
		Clean:  cfg.CleanOptions(),
		Bucket: cfg.Output.GCSBucket,
		Prefix: cfg.Output.GCSPrefix,
	})

	state := &pipeline.PipelineState{Location: cfg.Source.URL}
	log.Info().Str("source", cfg.Source.URL).Str("out", cfg.Output.Dir).Msg("Starting analysis")

	if err := p.Execute(ctx, state); err != nil {
		log.Fatal().Err(err).Str("run_id", state.RunID).Msg("Analysis failed")
	}

	log.Info().
		Str("run_id", state.RunID).
		Int("charts", len(state.Results)).
		Int("published", len(state.Published)).
		Msg("Analysis completed")
}

func runInspect(log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	common := registerCommon(fs)
	fs.Parse(os.Args[2:])

	ctx, cancel, cfg, log := setup(log, common)
	defer cancel()

	p := pipeline.NewInspectPipeline(pipeline.Deps{
		Loader:  source.NewLoader(source.Options{Encoding: cfg.Source.Encoding}),
		Printer: preview.NewPrinter(os.Stdout),
	}, pipeline.Options{Clean: cfg.CleanOptions()})

	if err := p.Execute(ctx, &pipeline.PipelineState{Location: cfg.Source.URL}); err != nil {
		log.Fatal().Err(err).Msg("Inspect failed")
	}
}

func runPublish(log zerolog.Logger) {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	common := registerCommon(fs)
	bucket := fs.String("bucket", "", "GCS bucket name")
	runID := fs.String("run-id", "", "Object prefix run ID (defaults to a new UUID)")
	fs.Parse(os.Args[2:])

	ctx, cancel, cfg, log := setup(log, common)
	defer cancel()

	if *bucket != "" {
		cfg.Output.GCSBucket = *bucket
	}
	if cfg.Output.GCSBucket == "" {
		log.Fatal().Msg("Usage: analyze publish -bucket NAME [-out DIR]")
	}
	if *runID == "" {
		*runID = uuid.NewString()
	}

	files, err := filepath.Glob(filepath.Join(cfg.Output.Dir, "*.png"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list charts")
	}
	if len(files) == 0 {
		log.Fatal().Str("dir", cfg.Output.Dir).Msg("No charts to publish")
	}
	sort.Strings(files)

	client, err := gcs.NewClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS client")
	}
	defer client.Close()

	state := &pipeline.PipelineState{RunID: *runID}
	for _, f := range files {
		state.Results = append(state.Results, report.Result{Path: f})
	}

	step := &pipeline.PublishStep{Storage: client, Bucket: cfg.Output.GCSBucket, Prefix: cfg.Output.GCSPrefix}
	if err := pipeline.NewPipeline(step).Execute(ctx, state); err != nil {
		log.Fatal().Err(err).Msg("Publish failed")
	}

	for _, uri := range state.Published {
		fmt.Println(uri)
	}
}
