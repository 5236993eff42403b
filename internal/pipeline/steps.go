package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/dvloznov/sales-analysis/internal/clean"
	"github.com/dvloznov/sales-analysis/internal/infra/gcs"
	"github.com/dvloznov/sales-analysis/internal/logger"
	"github.com/dvloznov/sales-analysis/internal/preview"
	"github.com/dvloznov/sales-analysis/internal/report"
	"github.com/dvloznov/sales-analysis/internal/schema"
	"github.com/dvloznov/sales-analysis/internal/table"
)

// headRows is how many rows the raw preview shows.
const headRows = 10

// PipelineStep represents a single step in the analysis pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	RunID     string
	Location  string
	Raw       *table.Table
	Clean     *table.Table
	Binding   *schema.Binding
	Results   []report.Result
	Published []string
}

// ChartPaths returns the files written by ChartsStep.
func (s *PipelineState) ChartPaths() []string {
	paths := make([]string, 0, len(s.Results))
	for _, r := range s.Results {
		paths = append(paths, r.Path)
	}
	return paths
}

// LoadStep fetches the raw dataset from state.Location.
type LoadStep struct {
	Loader DatasetLoader
}

func (s *LoadStep) Name() string { return "load" }

func (s *LoadStep) Execute(ctx context.Context, state *PipelineState) error {
	raw, err := s.Loader.Load(ctx, state.Location)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	rows, cols := raw.Shape()
	log.Info().Int("rows", rows).Int("columns", cols).Msg("Dataset loaded")
	state.Raw = raw
	return nil
}

// PreviewRawStep prints the head, shape and info of the raw table.
type PreviewRawStep struct {
	Printer *preview.Printer
}

func (s *PreviewRawStep) Name() string { return "preview_raw" }

func (s *PreviewRawStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Raw == nil {
		return errors.New("no raw table loaded")
	}
	s.Printer.Section("Head")
	s.Printer.Head(state.Raw, headRows)
	s.Printer.Section("Shape")
	s.Printer.Shape(state.Raw)
	s.Printer.Section("Info about the CSV data file")
	s.Printer.Info(state.Raw)
	return nil
}

// CleanStep runs the cleaner and previews the table after every stage.
type CleanStep struct {
	Options clean.Options
	Printer *preview.Printer
}

func (s *CleanStep) Name() string { return "clean" }

func (s *CleanStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Raw == nil {
		return errors.New("no raw table loaded")
	}

	var observeErr error
	observe := func(step clean.Step, t *table.Table) {
		if s.Printer == nil {
			return
		}
		switch step {
		case clean.StepDropColumns:
			s.Printer.Section("After dropping columns")
			s.Printer.Shape(t)
			s.Printer.Info(t)
			s.Printer.Section("Null values")
			s.Printer.NullCounts(t)
		case clean.StepDropNulls:
			s.Printer.Section("After dropping null rows")
			s.Printer.NullCounts(t)
			s.Printer.Shape(t)
		case clean.StepCoerceAmount:
			s.Printer.Section("Amount dtype")
			if err := s.Printer.Dtype(t, s.Options.AmountColumn); err != nil {
				observeErr = err
			}
			s.Printer.Section("Columns")
			s.Printer.Columns(t)
		case clean.StepRename:
			s.Printer.Section("Columns after rename")
			s.Printer.Columns(t)
		}
	}

	cleaned, err := clean.Clean(ctx, state.Raw, s.Options, observe)
	if err != nil {
		return err
	}
	if observeErr != nil {
		return observeErr
	}
	state.Clean = cleaned
	return nil
}

// BindSchemaStep validates the cleaned table against the schema once.
type BindSchemaStep struct {
	Schema schema.Schema
}

func (s *BindSchemaStep) Name() string { return "bind_schema" }

func (s *BindSchemaStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Clean == nil {
		return errors.New("no clean table")
	}
	b, err := schema.Bind(state.Clean, s.Schema)
	if err != nil {
		return err
	}
	state.Binding = b
	return nil
}

// DescribeStep prints summary statistics of the cleaned table.
type DescribeStep struct {
	Printer *preview.Printer
}

func (s *DescribeStep) Name() string { return "describe" }

func (s *DescribeStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Clean == nil {
		return errors.New("no clean table")
	}
	s.Printer.Section("Describe")
	s.Printer.Describe(state.Clean)
	return nil
}

// ChartsStep renders every report definition.
type ChartsStep struct {
	Renderer    ChartRenderer
	Definitions []report.Definition
}

func (s *ChartsStep) Name() string { return "charts" }

func (s *ChartsStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Binding == nil {
		return errors.New("schema not bound")
	}
	results, err := s.Renderer.Render(ctx, state.Clean, state.Binding, s.Definitions)
	state.Results = results
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Info().Int("charts", len(results)).Msg("Charts rendered")
	return nil
}

// PublishStep uploads the rendered charts to gs://Bucket/Prefix/<run id>/.
type PublishStep struct {
	Storage Uploader
	Bucket  string
	Prefix  string
}

func (s *PublishStep) Name() string { return "publish" }

func (s *PublishStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	prefix := path.Join(s.Prefix, state.RunID)

	for _, p := range state.ChartPaths() {
		object := gcs.ObjectName(prefix, p)
		if err := s.Storage.UploadFile(ctx, s.Bucket, object, p); err != nil {
			return fmt.Errorf("publish %s: %w", p, err)
		}
		uri := fmt.Sprintf("gs://%s/%s", s.Bucket, object)
		state.Published = append(state.Published, uri)
		log.Debug().Str("uri", uri).Msg("Chart published")
	}

	log.Info().Int("files", len(state.Published)).Str("bucket", s.Bucket).Msg("Charts published")
	return nil
}
