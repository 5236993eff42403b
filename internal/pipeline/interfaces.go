package pipeline

import (
	"context"

	"github.com/dvloznov/sales-analysis/internal/report"
	"github.com/dvloznov/sales-analysis/internal/schema"
	"github.com/dvloznov/sales-analysis/internal/table"
)

// DatasetLoader fetches and parses the raw dataset.
type DatasetLoader interface {
	Load(ctx context.Context, location string) (*table.Table, error)
}

// ChartRenderer renders report definitions to files.
type ChartRenderer interface {
	Render(ctx context.Context, t *table.Table, b *schema.Binding, defs []report.Definition) ([]report.Result, error)
}

// Uploader copies a local file to object storage.
type Uploader interface {
	UploadFile(ctx context.Context, bucket, object, filePath string) error
}
