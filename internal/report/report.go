package report

import (
	"context"
	"fmt"

	"github.com/dvloznov/sales-analysis/internal/aggregate"
	"github.com/dvloznov/sales-analysis/internal/chart"
	"github.com/dvloznov/sales-analysis/internal/logger"
	"github.com/dvloznov/sales-analysis/internal/schema"
	"github.com/dvloznov/sales-analysis/internal/table"
)

// Captioner produces a one-line summary of a chart.
type Captioner interface {
	Caption(ctx context.Context, title string, partitions []aggregate.Partition) (string, error)
}

// Result is one rendered chart.
type Result struct {
	Definition Definition
	Partitions []aggregate.Partition
	Caption    string
	Path       string
}

// Renderer turns definitions into PNG files under Dir.
type Renderer struct {
	Dir string
	// Captioner is optional. A failed caption is logged and skipped.
	Captioner Captioner
}

// Figure aggregates t for def and lays the result out as a chart.
func Figure(t *table.Table, b *schema.Binding, def Definition) (chart.Figure, []aggregate.Partition, error) {
	groupBy, err := b.Columns(def.GroupBy...)
	if err != nil {
		return chart.Figure{}, nil, fmt.Errorf("%s: %w", def.Name, err)
	}

	q := aggregate.Query{GroupBy: groupBy, Reduce: def.Reduce, TopN: def.TopN}
	yLabel := def.YLabel
	if def.Reduce == aggregate.Sum {
		metric, err := b.Column(def.Metric)
		if err != nil {
			return chart.Figure{}, nil, fmt.Errorf("%s: %w", def.Name, err)
		}
		q.Metric = metric
		if yLabel == "" {
			yLabel = metric
		}
	}

	parts, err := aggregate.Run(t, q)
	if err != nil {
		return chart.Figure{}, nil, fmt.Errorf("%s: %w", def.Name, err)
	}

	xLabel := def.XLabel
	if xLabel == "" {
		xLabel = groupBy[0]
	}

	cats, series := chart.FromPartitions(parts)
	return chart.Figure{
		Title:      def.Title,
		XLabel:     xLabel,
		YLabel:     yLabel,
		Kind:       def.Kind,
		Categories: cats,
		Series:     series,
		Width:      def.Width,
		Height:     def.Height,
	}, parts, nil
}

// Render builds and saves every definition in order. The first failure stops
// the run.
func (r Renderer) Render(ctx context.Context, t *table.Table, b *schema.Binding, defs []Definition) ([]Result, error) {
	log := logger.FromContext(ctx)

	results := make([]Result, 0, len(defs))
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		fig, parts, err := Figure(t, b, def)
		if err != nil {
			return results, fmt.Errorf("report: %w", err)
		}

		res := Result{Definition: def, Partitions: parts}
		if r.Captioner != nil && len(parts) > 0 {
			caption, err := r.Captioner.Caption(ctx, def.Title, parts)
			if err != nil {
				log.Warn().Err(err).Str("chart", def.Name).Msg("Caption failed, rendering without it")
			} else if caption != "" {
				res.Caption = caption
				fig.Title = def.Title + "\n" + caption
			}
		}

		path, err := fig.Save(r.Dir, def.Name)
		if err != nil {
			return results, fmt.Errorf("report: %s: %w", def.Name, err)
		}
		res.Path = path
		results = append(results, res)

		log.Info().
			Str("chart", def.Name).
			Int("partitions", len(parts)).
			Float64("total", aggregate.Total(parts)).
			Str("path", path).
			Msg("Chart written")
	}
	return results, nil
}
