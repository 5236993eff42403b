package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/sales-analysis/internal/clean"
	"github.com/dvloznov/sales-analysis/internal/logger"
	"github.com/dvloznov/sales-analysis/internal/preview"
	"github.com/dvloznov/sales-analysis/internal/report"
	"github.com/dvloznov/sales-analysis/internal/schema"
)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}

// Execute runs all steps in the pipeline sequentially and stops at the first
// failure. A missing run ID is generated.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	if state.RunID == "" {
		state.RunID = uuid.NewString()
	}
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{"run_id": state.RunID})
	ctx = logger.WithContext(ctx, log)

	for i, step := range p.steps {
		started := time.Now()
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
		log.Debug().Str("step", step.Name()).Dur("took", time.Since(started)).Msg("Step finished")
	}
	return nil
}

// Deps are the collaborators of the analysis pipeline.
type Deps struct {
	Loader   DatasetLoader
	Renderer ChartRenderer
	Printer  *preview.Printer
	// Storage is required only when Bucket is set.
	Storage Uploader
}

// Options configures the analysis pipeline.
type Options struct {
	Clean       clean.Options
	Definitions []report.Definition
	Bucket      string
	Prefix      string
}

// NewAnalysisPipeline creates the standard pipeline: load, preview, clean,
// bind, describe, render and, when a bucket is configured, publish.
func NewAnalysisPipeline(deps Deps, opts Options) *Pipeline {
	s := schema.Default()
	if opts.Clean.RetainRename {
		s = s.WithRename(opts.Clean.Rename)
	}
	defs := opts.Definitions
	if defs == nil {
		defs = report.Catalog()
	}

	steps := []PipelineStep{
		&LoadStep{Loader: deps.Loader},
		&PreviewRawStep{Printer: deps.Printer},
		&CleanStep{Options: opts.Clean, Printer: deps.Printer},
		&BindSchemaStep{Schema: s},
		&DescribeStep{Printer: deps.Printer},
		&ChartsStep{Renderer: deps.Renderer, Definitions: defs},
	}
	if opts.Bucket != "" {
		steps = append(steps, &PublishStep{Storage: deps.Storage, Bucket: opts.Bucket, Prefix: opts.Prefix})
	}
	return NewPipeline(steps...)
}

// NewInspectPipeline loads, previews, cleans and describes without rendering.
func NewInspectPipeline(deps Deps, opts Options) *Pipeline {
	return NewPipeline(
		&LoadStep{Loader: deps.Loader},
		&PreviewRawStep{Printer: deps.Printer},
		&CleanStep{Options: opts.Clean, Printer: deps.Printer},
		&DescribeStep{Printer: deps.Printer},
	)
}
