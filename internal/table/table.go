package table

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrColumnNotFound is returned when an operation names a column the table does not have.
var ErrColumnNotFound = errors.New("column not found")

// naValue is how a null cell is spelled to gota.
const naValue = "NaN"

// Cell is a single table value. A null cell carries no text.
type Cell struct {
	Raw  string
	Null bool
}

// Column is a named, typed slice of cells materialised from the frame.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// NullCount is the number of null cells in one column.
type NullCount struct {
	Column string
	Nulls  int
}

// Table is an immutable wrapper around a gota DataFrame.
// Every transformation returns a new *Table and leaves the receiver untouched.
// A table with no columns has no rows.
type Table struct {
	df dataframe.DataFrame
}

// New builds a table from columns of equal length with unique, non-empty names.
// Non-null cells of numeric columns must parse as that kind.
func New(columns []Column) (*Table, error) {
	if len(columns) == 0 {
		return &Table{}, nil
	}
	if err := checkColumns(columns); err != nil {
		return nil, err
	}

	ss := make([]series.Series, len(columns))
	for i, c := range columns {
		s, err := toSeries(c)
		if err != nil {
			return nil, err
		}
		ss[i] = s
	}
	return fromFrame(dataframe.New(ss...))
}

// FromRecords builds a table from a header and string records.
// Values recognised by IsNA become null cells; column kinds are inferred.
func FromRecords(header []string, records [][]string) (*Table, error) {
	columns := make([]Column, len(header))
	for j, name := range header {
		columns[j] = Column{Name: name, Cells: make([]Cell, len(records))}
	}

	for i, rec := range records {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("table: record %d has %d fields, want %d", i+1, len(rec), len(header))
		}
		for j, v := range rec {
			if IsNA(v) {
				columns[j].Cells[i] = Cell{Null: true}
			} else {
				columns[j].Cells[i] = Cell{Raw: v}
			}
		}
	}

	types := make(map[string]series.Type, len(columns))
	for j := range columns {
		columns[j].Kind = InferKind(columns[j].Cells)
		types[columns[j].Name] = seriesType(columns[j].Kind)
	}
	// gota refuses a header-only record set, so empty tables go through New.
	if len(records) == 0 || len(header) == 0 {
		return New(columns)
	}
	if err := checkColumns(columns); err != nil {
		return nil, err
	}

	all := make([][]string, 0, len(records)+1)
	all = append(all, header)
	all = append(all, records...)
	return fromFrame(dataframe.LoadRecords(all,
		dataframe.DetectTypes(false),
		dataframe.WithTypes(types),
		dataframe.NaNValues(naList()),
	))
}

func fromFrame(df dataframe.DataFrame) (*Table, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("table: %w", df.Err)
	}
	return &Table{df: df}, nil
}

func checkColumns(columns []Column) error {
	seen := make(map[string]bool, len(columns))
	rows := len(columns[0].Cells)
	for _, c := range columns {
		if c.Name == "" {
			return errors.New("table: empty column name")
		}
		if seen[c.Name] {
			return fmt.Errorf("table: duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if len(c.Cells) != rows {
			return fmt.Errorf("table: column %q has %d rows, want %d", c.Name, len(c.Cells), rows)
		}
	}
	return nil
}

func toSeries(c Column) (series.Series, error) {
	values := make([]string, len(c.Cells))
	for i, cell := range c.Cells {
		if cell.Null {
			values[i] = naValue
		} else {
			values[i] = cell.Raw
		}
	}
	s := series.New(values, seriesType(c.Kind), c.Name)
	if s.Err != nil {
		return s, fmt.Errorf("table: column %q: %w", c.Name, s.Err)
	}
	if c.Kind.Numeric() {
		for i, cell := range c.Cells {
			if !cell.Null && s.Elem(i).IsNA() {
				return s, fmt.Errorf("table: column %q row %d: %q is not %s", c.Name, i, cell.Raw, c.Kind)
			}
		}
	}
	return s, nil
}

func seriesType(k Kind) series.Type {
	switch k {
	case Int:
		return series.Int
	case Float:
		return series.Float
	default:
		return series.String
	}
}

func kindOf(t series.Type) Kind {
	switch t {
	case series.Int:
		return Int
	case series.Float:
		return Float
	default:
		return String
	}
}

func naList() []string {
	list := make([]string, 0, len(naTokens))
	for tok := range naTokens {
		list = append(list, tok)
	}
	sort.Strings(list)
	return list
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.df.Nrow() }

// Shape returns (rows, columns).
func (t *Table) Shape() (int, int) { return t.df.Dims() }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	if t.df.Ncol() == 0 {
		return []string{}
	}
	return t.df.Names()
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	for _, n := range t.Columns() {
		if n == name {
			return true
		}
	}
	return false
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, error) {
	if !t.Has(name) {
		return Column{}, fmt.Errorf("%w: '%s'", ErrColumnNotFound, name)
	}
	s := t.df.Col(name)
	return Column{Name: name, Kind: kindOf(s.Type()), Cells: cellsOf(s)}, nil
}

func cellsOf(s series.Series) []Cell {
	cells := make([]Cell, s.Len())
	for i := range cells {
		el := s.Elem(i)
		switch {
		case el.IsNA():
			cells[i] = Cell{Null: true}
		case s.Type() == series.Float:
			cells[i] = Cell{Raw: strconv.FormatFloat(el.Float(), 'f', -1, 64)}
		default:
			cells[i] = Cell{Raw: el.String()}
		}
	}
	return cells
}

// empty returns a zero-row table with the receiver's columns and kinds.
func (t *Table) empty() *Table {
	names := t.Columns()
	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name, Kind: kindOf(t.df.Col(name).Type()), Cells: []Cell{}}
	}
	out, err := New(cols)
	if err != nil {
		// names and kinds come from a valid frame
		panic(err)
	}
	return out
}

// Head returns a table with the first n rows.
func (t *Table) Head(n int) *Table {
	if n >= t.Len() {
		return t
	}
	if n <= 0 {
		return t.empty()
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return &Table{df: t.df.Subset(idx)}
}

// Drop returns a table without the named columns.
// It fails, naming every absent column, if any of them is missing.
func (t *Table) Drop(names ...string) (*Table, error) {
	drop := make(map[string]bool, len(names))
	var missing []string
	for _, n := range names {
		if !t.Has(n) {
			missing = append(missing, n)
			continue
		}
		drop[n] = true
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, strings.Join(missing, ", "))
	}
	if len(drop) == 0 {
		return t, nil
	}
	if len(drop) == t.df.Ncol() {
		return &Table{}, nil
	}

	keys := make([]string, 0, len(drop))
	for n := range drop {
		keys = append(keys, n)
	}
	return fromFrame(t.df.Drop(keys))
}

func notNA(el series.Element) bool { return !el.IsNA() }

// DropNulls returns a table without any row that has a null cell.
func (t *Table) DropNulls() *Table {
	complete := t.completeRows()
	switch complete {
	case t.Len():
		return t
	case 0:
		return t.empty()
	}

	filters := make([]dataframe.F, 0, t.df.Ncol())
	for _, name := range t.Columns() {
		filters = append(filters, dataframe.F{Colname: name, Comparator: series.CompFunc, Comparando: notNA})
	}
	out, err := fromFrame(t.df.FilterAggregation(dataframe.And, filters...))
	if err != nil {
		// every filter names an existing column
		panic(err)
	}
	return out
}

func (t *Table) completeRows() int {
	cols := make([]series.Series, 0, t.df.Ncol())
	for _, name := range t.Columns() {
		cols = append(cols, t.df.Col(name))
	}
	n := 0
	for i := 0; i < t.Len(); i++ {
		complete := true
		for _, s := range cols {
			if s.Elem(i).IsNA() {
				complete = false
				break
			}
		}
		if complete {
			n++
		}
	}
	return n
}

// WithColumn returns a table where the column of the same name is replaced by col.
func (t *Table) WithColumn(col Column) (*Table, error) {
	if !t.Has(col.Name) {
		return nil, fmt.Errorf("%w: '%s'", ErrColumnNotFound, col.Name)
	}
	if len(col.Cells) != t.Len() {
		return nil, fmt.Errorf("table: column %q has %d rows, want %d", col.Name, len(col.Cells), t.Len())
	}
	s, err := toSeries(col)
	if err != nil {
		return nil, err
	}
	return fromFrame(t.df.Copy().Mutate(s))
}

// Rename returns a table with columns renamed according to mapping (old -> new).
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	names := t.Columns()
	renamed := make([]string, len(names))
	copy(renamed, names)
	for old, name := range mapping {
		i := indexOf(names, old)
		if i < 0 {
			return nil, fmt.Errorf("%w: '%s'", ErrColumnNotFound, old)
		}
		renamed[i] = name
	}

	seen := make(map[string]bool, len(renamed))
	for _, n := range renamed {
		if n == "" {
			return nil, errors.New("table: empty column name")
		}
		if seen[n] {
			return nil, fmt.Errorf("table: duplicate column %q", n)
		}
		seen[n] = true
	}
	if len(renamed) == 0 {
		return t, nil
	}

	// Two passes through placeholder names so swaps never collide.
	df := t.df.Copy()
	for i, old := range names {
		if renamed[i] != old {
			df = df.Rename(placeholder(i), old)
		}
	}
	for i, old := range names {
		if renamed[i] != old {
			df = df.Rename(renamed[i], placeholder(i))
		}
	}
	return fromFrame(df)
}

func placeholder(i int) string { return fmt.Sprintf("\x00rename%d", i) }

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// NullCounts returns the null count of every column, in column order.
func (t *Table) NullCounts() []NullCount {
	names := t.Columns()
	counts := make([]NullCount, len(names))
	for j, name := range names {
		s := t.df.Col(name)
		n := 0
		for i := 0; i < s.Len(); i++ {
			if s.Elem(i).IsNA() {
				n++
			}
		}
		counts[j] = NullCount{Column: name, Nulls: n}
	}
	return counts
}

// Value returns the text of a cell, or "" for null cells and out-of-range access.
func (c Column) Value(row int) string {
	if row < 0 || row >= len(c.Cells) || c.Cells[row].Null {
		return ""
	}
	return c.Cells[row].Raw
}

// Float returns the numeric value of a cell, or 0 when it is null or not numeric.
func (c Column) Float(row int) float64 {
	if row < 0 || row >= len(c.Cells) || c.Cells[row].Null {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Cells[row].Raw), 64)
	if err != nil {
		return 0
	}
	return v
}

// NonNull returns the number of non-null cells.
func (c Column) NonNull() int {
	n := 0
	for _, cell := range c.Cells {
		if !cell.Null {
			n++
		}
	}
	return n
}
