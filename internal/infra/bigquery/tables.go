package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// TableRef identifies a BigQuery table.
type TableRef struct {
	ProjectID string
	DatasetID string
	TableID   string
}

func (r TableRef) String() string {
	return fmt.Sprintf("%s.%s.%s", r.ProjectID, r.DatasetID, r.TableID)
}

// ParseRef parses "bq://project.dataset.table".
func ParseRef(uri string) (TableRef, error) {
	if !strings.HasPrefix(uri, "bq://") {
		return TableRef{}, fmt.Errorf("invalid BigQuery URI: %s", uri)
	}
	parts := strings.Split(strings.TrimPrefix(uri, "bq://"), ".")
	if len(parts) != 3 {
		return TableRef{}, fmt.Errorf("invalid BigQuery URI (want bq://project.dataset.table): %s", uri)
	}
	for _, p := range parts {
		if p == "" {
			return TableRef{}, fmt.Errorf("invalid BigQuery URI (empty segment): %s", uri)
		}
	}
	return TableRef{ProjectID: parts[0], DatasetID: parts[1], TableID: parts[2]}, nil
}

// TableReader reads whole tables as text records.
type TableReader interface {
	ReadTable(ctx context.Context, ref TableRef) (header []string, records [][]string, err error)
	Close() error
}

// Reader is the BigQuery implementation of TableReader. It holds a shared
// client to avoid creating a new connection for each read.
type Reader struct {
	client *bigquery.Client
}

// NewReader creates a Reader billed to projectID.
func NewReader(ctx context.Context, projectID string) (*Reader, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewReader: creating client: %w", err)
	}
	return &Reader{client: client}, nil
}

// Close closes the BigQuery client connection.
func (r *Reader) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ReadTable delegates to ReadTableWithClient with the shared client.
func (r *Reader) ReadTable(ctx context.Context, ref TableRef) ([]string, [][]string, error) {
	return ReadTableWithClient(ctx, r.client, ref)
}

// ReadTableWithClient reads every row of ref. NULL values come back as empty
// strings, which the table loader treats as missing.
func ReadTableWithClient(ctx context.Context, client *bigquery.Client, ref TableRef) ([]string, [][]string, error) {
	table := client.DatasetInProject(ref.ProjectID, ref.DatasetID).Table(ref.TableID)

	meta, err := table.Metadata(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("ReadTable: metadata for %s: %w", ref, err)
	}

	header := make([]string, len(meta.Schema))
	for i, f := range meta.Schema {
		header[i] = f.Name
	}

	it := table.Read(ctx)
	var records [][]string
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("ReadTable: iter next: %w", err)
		}

		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = FormatValue(v)
		}
		records = append(records, rec)
	}

	return header, records, nil
}

// FormatValue renders a BigQuery cell as CSV-equivalent text.
func FormatValue(v bigquery.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []byte:
		return string(x)
	case *big.Rat:
		if x.IsInt() {
			return x.Num().String()
		}
		s := strings.TrimRight(x.FloatString(9), "0")
		return strings.TrimSuffix(s, ".")
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
