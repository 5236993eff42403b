package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/sales-analysis/internal/clean"
	"github.com/dvloznov/sales-analysis/internal/logger"
	"github.com/dvloznov/sales-analysis/internal/pipeline"
	"github.com/dvloznov/sales-analysis/internal/preview"
	"github.com/dvloznov/sales-analysis/internal/report"
	"github.com/dvloznov/sales-analysis/internal/schema"
	"github.com/dvloznov/sales-analysis/internal/source"
	"github.com/dvloznov/sales-analysis/internal/table"
)

// MockLoader is a mock implementation of DatasetLoader
type MockLoader struct {
	LoadFunc func(ctx context.Context, location string) (*table.Table, error)
}

func (m *MockLoader) Load(ctx context.Context, location string) (*table.Table, error) {
	return m.LoadFunc(ctx, location)
}

// MockRenderer is a mock implementation of ChartRenderer
type MockRenderer struct {
	RenderFunc func(ctx context.Context, t *table.Table, b *schema.Binding, defs []report.Definition) ([]report.Result, error)
}

func (m *MockRenderer) Render(ctx context.Context, t *table.Table, b *schema.Binding, defs []report.Definition) ([]report.Result, error) {
	return m.RenderFunc(ctx, t, b, defs)
}

// MockUploader is a mock implementation of Uploader
type MockUploader struct {
	Uploaded []string
	Err      error
}

func (m *MockUploader) UploadFile(ctx context.Context, bucket, object, filePath string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Uploaded = append(m.Uploaded, bucket+"/"+object)
	return nil
}

var header = []string{
	"User_ID", "Cust_name", "Product_ID", "Gender", "Age Group", "Age", "Marital_Status",
	"State", "Zone", "Occupation", "Product_Category", "Orders", "Amount", "Status", "unnamed1",
}

func rawTable(t *testing.T) *table.Table {
	t.Helper()
	var records [][]string
	for i := 0; i < 12; i++ {
		amount := fmt.Sprintf("%d.5", 1000+i*10)
		if i == 5 {
			amount = ""
		}
		records = append(records, []string{
			fmt.Sprint(1000000 + i), "Cust", fmt.Sprintf("P%05d", i%4),
			[]string{"F", "M"}[i%2], "26-35", "28", fmt.Sprint(i % 2),
			[]string{"Goa", "Kerala", "Bihar"}[i%3], "Western", "IT", "Food",
			fmt.Sprint(1 + i%3), amount, "", "",
		})
	}
	tbl, err := table.FromRecords(header, records)
	require.NoError(t, err)
	return tbl
}

func loaderFor(tbl *table.Table) *MockLoader {
	return &MockLoader{LoadFunc: func(ctx context.Context, location string) (*table.Table, error) {
		return tbl, nil
	}}
}

func TestAnalysisPipeline_EndToEnd(t *testing.T) {
	var out bytes.Buffer
	dir := filepath.Join(t.TempDir(), "images")
	uploader := &MockUploader{}

	p := pipeline.NewAnalysisPipeline(pipeline.Deps{
		Loader:   loaderFor(rawTable(t)),
		Renderer: report.Renderer{Dir: dir},
		Printer:  preview.NewPrinter(&out),
		Storage:  uploader,
	}, pipeline.Options{
		Clean:  clean.DefaultOptions(),
		Bucket: "sales-charts",
		Prefix: "diwali",
	})

	assert.Equal(t, []string{"load", "preview_raw", "clean", "bind_schema", "describe", "charts", "publish"}, p.Steps())

	state := &pipeline.PipelineState{RunID: "run-1", Location: "memory"}
	require.NoError(t, p.Execute(context.Background(), state))

	assert.Equal(t, 12, state.Raw.Len())
	assert.Equal(t, 11, state.Clean.Len())
	assert.False(t, state.Clean.Has("Status"))
	assert.NotNil(t, state.Binding)
	require.Len(t, state.Results, 13)
	assert.Len(t, state.Published, 13)
	assert.Contains(t, state.Published, "gs://sales-charts/diwali/run-1/gender_distribution.png")
	assert.Contains(t, uploader.Uploaded, "sales-charts/diwali/run-1/top_most_sold_products.png")

	printed := out.String()
	for _, want := range []string{"(12, 15)", "(12, 13)", "(11, 13)", "int64", "Describe", "Marital_Status"} {
		assert.Contains(t, printed, want)
	}
}

func TestPipeline_StepLogsCarryRunID(t *testing.T) {
	var logs, out bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&logs))

	renderer := &MockRenderer{RenderFunc: func(ctx context.Context, tbl *table.Table, b *schema.Binding, defs []report.Definition) ([]report.Result, error) {
		return []report.Result{{Path: "images/a.png"}}, nil
	}}
	p := pipeline.NewAnalysisPipeline(pipeline.Deps{
		Loader:   loaderFor(rawTable(t)),
		Renderer: renderer,
		Printer:  preview.NewPrinter(&out),
	}, pipeline.Options{Clean: clean.DefaultOptions()})

	require.NoError(t, p.Execute(ctx, &pipeline.PipelineState{RunID: "run-42", Location: "memory"}))

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	var loaded, rendered bool
	for _, line := range lines {
		if strings.Contains(line, "Dataset loaded") {
			loaded = true
			assert.Contains(t, line, `"run_id":"run-42"`)
			assert.Contains(t, line, `"rows":12`)
		}
		if strings.Contains(line, "Charts rendered") {
			rendered = true
			assert.Contains(t, line, `"run_id":"run-42"`)
			assert.Contains(t, line, `"charts":1`)
		}
	}
	assert.True(t, loaded, logs.String())
	assert.True(t, rendered, logs.String())
}

func TestAnalysisPipeline_NoBucketSkipsPublish(t *testing.T) {
	p := pipeline.NewAnalysisPipeline(pipeline.Deps{}, pipeline.Options{Clean: clean.DefaultOptions()})
	assert.NotContains(t, p.Steps(), "publish")
}

func TestAnalysisPipeline_RetainedRenameBindsRenamedColumn(t *testing.T) {
	opts := clean.DefaultOptions()
	opts.RetainRename = true

	var bound string
	renderer := &MockRenderer{RenderFunc: func(ctx context.Context, tbl *table.Table, b *schema.Binding, defs []report.Definition) ([]report.Result, error) {
		bound, _ = b.Column(schema.MaritalStatus)
		return nil, nil
	}}

	var out bytes.Buffer
	p := pipeline.NewAnalysisPipeline(pipeline.Deps{
		Loader:   loaderFor(rawTable(t)),
		Renderer: renderer,
		Printer:  preview.NewPrinter(&out),
	}, pipeline.Options{Clean: opts})

	state := &pipeline.PipelineState{Location: "memory"}
	require.NoError(t, p.Execute(context.Background(), state))
	assert.Equal(t, "Shaadi", bound)
	assert.NotEmpty(t, state.RunID)
}

func TestAnalysisPipeline_Failures(t *testing.T) {
	tests := []struct {
		name     string
		loader   *MockLoader
		wantStep string
		wantErr  error
	}{
		{
			name: "fetch",
			loader: &MockLoader{LoadFunc: func(ctx context.Context, location string) (*table.Table, error) {
				return nil, fmt.Errorf("%w: status 404", source.ErrFetch)
			}},
			wantStep: "pipeline step 1 (load) failed",
			wantErr:  source.ErrFetch,
		},
		{
			name: "missing drop column",
			loader: &MockLoader{LoadFunc: func(ctx context.Context, location string) (*table.Table, error) {
				return table.FromRecords([]string{"Gender", "Amount", "Status"}, [][]string{{"F", "1", ""}})
			}},
			wantStep: "pipeline step 3 (clean) failed",
			wantErr:  clean.ErrMissingColumn,
		},
		{
			name: "schema",
			loader: &MockLoader{LoadFunc: func(ctx context.Context, location string) (*table.Table, error) {
				return table.FromRecords([]string{"Gender", "Amount", "Status", "unnamed1"}, [][]string{{"F", "1", "", ""}})
			}},
			wantStep: "pipeline step 4 (bind_schema) failed",
			wantErr:  schema.ErrBinding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rendered := false
			renderer := &MockRenderer{RenderFunc: func(ctx context.Context, tbl *table.Table, b *schema.Binding, defs []report.Definition) ([]report.Result, error) {
				rendered = true
				return nil, nil
			}}

			var out bytes.Buffer
			p := pipeline.NewAnalysisPipeline(pipeline.Deps{
				Loader:   tt.loader,
				Renderer: renderer,
				Printer:  preview.NewPrinter(&out),
			}, pipeline.Options{Clean: clean.DefaultOptions()})

			err := p.Execute(context.Background(), &pipeline.PipelineState{Location: "memory"})
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), tt.wantStep), err.Error())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, rendered)
		})
	}
}

func TestPublishStep_UploadError(t *testing.T) {
	step := &pipeline.PublishStep{Storage: &MockUploader{Err: errors.New("permission denied")}, Bucket: "b"}
	state := &pipeline.PipelineState{
		RunID:   "r",
		Results: []report.Result{{Path: "images/gender_distribution.png"}},
	}

	err := step.Execute(context.Background(), state)
	assert.ErrorContains(t, err, "permission denied")
	assert.Empty(t, state.Published)
}

func TestInspectPipeline(t *testing.T) {
	var out bytes.Buffer
	p := pipeline.NewInspectPipeline(pipeline.Deps{
		Loader:  loaderFor(rawTable(t)),
		Printer: preview.NewPrinter(&out),
	}, pipeline.Options{Clean: clean.DefaultOptions()})

	assert.Equal(t, []string{"load", "preview_raw", "clean", "describe"}, p.Steps())
	require.NoError(t, p.Execute(context.Background(), &pipeline.PipelineState{Location: "memory"}))
	assert.Contains(t, out.String(), "mean")
}
