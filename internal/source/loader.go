package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	bq "github.com/dvloznov/sales-analysis/internal/infra/bigquery"
	"github.com/dvloznov/sales-analysis/internal/infra/gcs"
	"github.com/dvloznov/sales-analysis/internal/logger"
	"github.com/dvloznov/sales-analysis/internal/table"
)

var (
	// ErrFetch wraps any failure to retrieve the dataset.
	ErrFetch = errors.New("fetch failed")
	// ErrEncoding is returned for an unknown or unsupported text encoding name.
	ErrEncoding = errors.New("unsupported encoding")
	// ErrEmpty is returned when the dataset has no header row.
	ErrEmpty = errors.New("empty dataset")
)

// Options configures a Loader. Nil clients are created on demand for the
// location schemes that need them.
type Options struct {
	// Encoding is the IANA name of the source text encoding, e.g. "ISO-8859-1".
	Encoding string

	HTTPClient *http.Client
	Storage    gcs.StorageService
	Tables     bq.TableReader
}

// Loader fetches a dataset and parses it into a table.
type Loader struct {
	opts Options
}

// NewLoader creates a Loader.
func NewLoader(opts Options) *Loader {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Loader{opts: opts}
}

// Load resolves location by scheme (http(s)://, gs://, bq://, file:// or a
// plain path) and returns the parsed table. There is no retry: any failure
// is returned to the caller.
func (l *Loader) Load(ctx context.Context, location string) (*table.Table, error) {
	log := logger.FromContext(ctx)
	log.Info().Str("location", location).Str("encoding", l.opts.Encoding).Msg("Loading dataset")

	if strings.HasPrefix(location, "bq://") {
		return l.loadBigQuery(ctx, location)
	}

	enc, err := lookupEncoding(l.opts.Encoding)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		data, err = l.fetchHTTP(ctx, location)
	case strings.HasPrefix(location, "gs://"):
		data, err = l.fetchGCS(ctx, location)
	default:
		data, err = os.ReadFile(strings.TrimPrefix(location, "file://"))
		if err != nil {
			err = fmt.Errorf("%w: read file: %w", ErrFetch, err)
		}
	}
	if err != nil {
		return nil, err
	}

	log.Debug().Int("bytes", len(data)).Msg("Fetched dataset")
	return ParseCSV(bytes.NewReader(data), enc)
}

func (l *Loader) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}

	resp, err := l.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: unexpected status %s", ErrFetch, url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrFetch, err)
	}
	return data, nil
}

func (l *Loader) fetchGCS(ctx context.Context, uri string) ([]byte, error) {
	storage := l.opts.Storage
	if storage == nil {
		c, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetch, err)
		}
		defer c.Close()
		storage = c
	}

	data, err := storage.Download(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return data, nil
}

func (l *Loader) loadBigQuery(ctx context.Context, uri string) (*table.Table, error) {
	ref, err := bq.ParseRef(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	reader := l.opts.Tables
	if reader == nil {
		r, err := bq.NewReader(ctx, ref.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetch, err)
		}
		defer r.Close()
		reader = r
	}

	header, records, err := reader.ReadTable(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("%w: table %s has no columns", ErrEmpty, ref)
	}
	return table.FromRecords(header, records)
}

// ParseCSV decodes r with enc and parses it as CSV with a header row.
// Empty header cells are named "Unnamed: <index>"; a repeated name X
// becomes X.1, X.2 and so on.
func ParseCSV(r io.Reader, enc encoding.Encoding) (*table.Table, error) {
	if enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}

	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmpty
	}

	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		header[i] = name
	}
	dedupe(header)

	tbl, err := table.FromRecords(header, records[1:])
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	return tbl, nil
}

// dedupe suffixes repeated names in place, skipping suffixes already taken.
func dedupe(names []string) {
	counts := make(map[string]int, len(names))
	for i, name := range names {
		n := counts[name]
		for n > 0 {
			counts[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
			n = counts[name]
		}
		names[i] = name
		counts[name] = n + 1
	}
}

// lookupEncoding resolves an IANA encoding name. UTF-8 and the empty name
// need no decoding and return nil.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrEncoding, name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: %q", ErrEncoding, name)
	}
	if enc == unicode.UTF8 {
		return nil, nil
	}
	return enc, nil
}
