package clean

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/sales-analysis/internal/logger"
	"github.com/dvloznov/sales-analysis/internal/table"
)

var (
	// ErrMissingColumn is returned when a column the cleaner needs is absent.
	ErrMissingColumn = errors.New("missing column")
	// ErrNotNumeric is returned when the amount column holds a value that is not a number.
	ErrNotNumeric = errors.New("non-numeric value")
)

// Step identifies one cleaning stage.
type Step string

const (
	StepDropColumns  Step = "drop_columns"
	StepDropNulls    Step = "drop_nulls"
	StepCoerceAmount Step = "coerce_amount"
	StepRename       Step = "rename"
)

// Options configures the cleaner.
type Options struct {
	// DropColumns are removed first; every one of them must exist.
	DropColumns []string

	// AmountColumn is converted to whole numbers, truncating toward zero.
	AmountColumn string

	// Rename maps old column names to new ones.
	Rename map[string]string

	// RetainRename keeps the renamed table. When false the rename is computed
	// and reported but the table keeps its original column names.
	RetainRename bool
}

// DefaultOptions matches the Diwali sales dataset.
func DefaultOptions() Options {
	return Options{
		DropColumns:  []string{"Status", "unnamed1"},
		AmountColumn: "Amount",
		Rename:       map[string]string{"Marital_Status": "Shaadi"},
	}
}

// Observer is called with the table produced by each step.
type Observer func(step Step, t *table.Table)

// Clean runs drop columns → drop nulls → coerce amount → rename and returns
// the cleaned table. raw is never modified. A nil observer is allowed.
func Clean(ctx context.Context, raw *table.Table, opts Options, observe Observer) (*table.Table, error) {
	log := logger.FromContext(ctx)
	if observe == nil {
		observe = func(Step, *table.Table) {}
	}

	t, err := DropColumns(raw, opts.DropColumns...)
	if err != nil {
		return nil, err
	}
	observe(StepDropColumns, t)

	before := t.Len()
	t = t.DropNulls()
	log.Info().Int("rows_before", before).Int("rows_after", t.Len()).Msg("Dropped rows with null values")
	observe(StepDropNulls, t)

	t, err = CoerceInt(t, opts.AmountColumn)
	if err != nil {
		return nil, err
	}
	observe(StepCoerceAmount, t)

	if len(opts.Rename) > 0 {
		// Like pandas, names that are not present are ignored.
		mapping := make(map[string]string, len(opts.Rename))
		for from, to := range opts.Rename {
			if t.Has(from) {
				mapping[from] = to
			} else {
				log.Warn().Str("column", from).Msg("Rename skipped, column not present")
			}
		}
		renamed, err := t.Rename(mapping)
		if err != nil {
			return nil, fmt.Errorf("rename: %w", err)
		}
		log.Debug().Bool("retained", opts.RetainRename).Strs("columns", renamed.Columns()).Msg("Renamed columns")
		if opts.RetainRename {
			t = renamed
		}
		observe(StepRename, t)
	}

	return t, nil
}

// DropColumns removes the named columns, failing if any is absent.
func DropColumns(t *table.Table, names ...string) (*table.Table, error) {
	out, err := t.Drop(names...)
	if err != nil {
		return nil, fmt.Errorf("drop columns: %w: %w", ErrMissingColumn, err)
	}
	return out, nil
}

var (
	minInt = decimal.NewFromInt(math.MinInt64)
	maxInt = decimal.NewFromInt(math.MaxInt64)
)

// CoerceInt converts column name to whole numbers, truncating toward zero.
// A null or non-numeric value anywhere fails the whole conversion.
func CoerceInt(t *table.Table, name string) (*table.Table, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, fmt.Errorf("coerce %q: %w: %w", name, ErrMissingColumn, err)
	}

	cells := make([]table.Cell, len(col.Cells))
	for i, c := range col.Cells {
		if c.Null {
			return nil, fmt.Errorf("coerce %q: %w: row %d is null", name, ErrNotNumeric, i)
		}
		d, err := decimal.NewFromString(strings.TrimSpace(c.Raw))
		if err != nil {
			return nil, fmt.Errorf("coerce %q: %w: row %d: %q", name, ErrNotNumeric, i, c.Raw)
		}
		whole := d.Truncate(0)
		if whole.LessThan(minInt) || whole.GreaterThan(maxInt) {
			return nil, fmt.Errorf("coerce %q: %w: row %d: %q is out of range", name, ErrNotNumeric, i, c.Raw)
		}
		cells[i] = table.Cell{Raw: whole.String()}
	}

	return t.WithColumn(table.Column{Name: name, Kind: table.Int, Cells: cells})
}
