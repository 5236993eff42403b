package preview

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dvloznov/sales-analysis/internal/table"
)

// Printer writes human-readable summaries of a table.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Section writes a heading line.
func (p *Printer) Section(title string) {
	fmt.Fprintf(p.w, "\n== %s ==\n", title)
}

// Head prints the first n rows.
func (p *Printer) Head(t *table.Table, n int) {
	h := t.Head(n)
	names := h.Columns()

	tw := p.table(append([]string{""}, names...))
	cols := make([]table.Column, len(names))
	for i, name := range names {
		cols[i], _ = h.Column(name)
	}
	for row := 0; row < h.Len(); row++ {
		line := make([]string, 0, len(cols)+1)
		line = append(line, strconv.Itoa(row))
		for _, c := range cols {
			if c.Cells[row].Null {
				line = append(line, "NaN")
			} else {
				line = append(line, c.Cells[row].Raw)
			}
		}
		tw.Append(line)
	}
	tw.Render()
}

// Shape prints (rows, columns).
func (p *Printer) Shape(t *table.Table) {
	rows, cols := t.Shape()
	fmt.Fprintf(p.w, "(%d, %d)\n", rows, cols)
}

// Info prints each column with its non-null count and kind.
func (p *Printer) Info(t *table.Table) {
	rows, cols := t.Shape()
	fmt.Fprintf(p.w, "%d entries, %d columns\n", rows, cols)

	tw := p.table([]string{"#", "Column", "Non-Null Count", "Dtype"})
	kinds := make(map[table.Kind]int)
	for i, name := range t.Columns() {
		c, _ := t.Column(name)
		kinds[c.Kind]++
		tw.Append([]string{strconv.Itoa(i), name, fmt.Sprintf("%d non-null", c.NonNull()), c.Kind.String()})
	}
	tw.Render()

	summary := make([]string, 0, len(kinds))
	for k, n := range kinds {
		summary = append(summary, fmt.Sprintf("%s(%d)", k, n))
	}
	sort.Strings(summary)
	fmt.Fprintf(p.w, "dtypes: %s\n", strings.Join(summary, ", "))
}

// NullCounts prints the number of nulls per column.
func (p *Printer) NullCounts(t *table.Table) {
	tw := p.table([]string{"Column", "Nulls"})
	for _, nc := range t.NullCounts() {
		tw.Append([]string{nc.Column, strconv.Itoa(nc.Nulls)})
	}
	tw.Render()
}

// Dtype prints the kind of one column.
func (p *Printer) Dtype(t *table.Table, name string) error {
	c, err := t.Column(name)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	fmt.Fprintln(p.w, c.Kind.String())
	return nil
}

// Columns prints the column names.
func (p *Printer) Columns(t *table.Table) {
	quoted := make([]string, 0, len(t.Columns()))
	for _, name := range t.Columns() {
		quoted = append(quoted, strconv.Quote(name))
	}
	fmt.Fprintf(p.w, "Index([%s])\n", strings.Join(quoted, ", "))
}

// Describe prints summary statistics for every numeric column.
func (p *Printer) Describe(t *table.Table) {
	stats := Describe(t)
	if len(stats) == 0 {
		fmt.Fprintln(p.w, "no numeric columns")
		return
	}

	header := []string{""}
	for _, s := range stats {
		header = append(header, s.Column)
	}
	tw := p.table(header)

	rows := []struct {
		name string
		get  func(Summary) float64
	}{
		{"count", func(s Summary) float64 { return float64(s.Count) }},
		{"mean", func(s Summary) float64 { return s.Mean }},
		{"std", func(s Summary) float64 { return s.Std }},
		{"min", func(s Summary) float64 { return s.Min }},
		{"25%", func(s Summary) float64 { return s.Q25 }},
		{"50%", func(s Summary) float64 { return s.Q50 }},
		{"75%", func(s Summary) float64 { return s.Q75 }},
		{"max", func(s Summary) float64 { return s.Max }},
	}
	for _, r := range rows {
		line := []string{r.name}
		for _, s := range stats {
			line = append(line, formatStat(r.get(s), s.Count))
		}
		tw.Append(line)
	}
	tw.Render()
}

func formatStat(v float64, count int) string {
	if count == 0 {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func (p *Printer) table(header []string) *tablewriter.Table {
	tw := tablewriter.NewWriter(p.w)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	return tw
}

// Summary holds the describe statistics of one numeric column.
type Summary struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Q50    float64
	Q75    float64
	Max    float64
}

// Describe computes summary statistics for the numeric columns of t, in
// column order. Nulls are skipped. Std is the sample standard deviation.
func Describe(t *table.Table) []Summary {
	var out []Summary
	for _, name := range t.Columns() {
		c, _ := t.Column(name)
		if !c.Kind.Numeric() {
			continue
		}

		xs := make([]float64, 0, len(c.Cells))
		for row, cell := range c.Cells {
			if !cell.Null {
				xs = append(xs, c.Float(row))
			}
		}
		s := Summary{Column: name, Count: len(xs)}
		if len(xs) > 0 {
			sort.Float64s(xs)
			s.Mean = stat.Mean(xs, nil)
			if len(xs) > 1 {
				s.Std = stat.StdDev(xs, nil)
			}
			s.Min = floats.Min(xs)
			s.Max = floats.Max(xs)
			s.Q25 = percentile(xs, 0.25)
			s.Q50 = percentile(xs, 0.5)
			s.Q75 = percentile(xs, 0.75)
		}
		out = append(out, s)
	}
	return out
}

// percentile interpolates linearly between the closest ranks of sorted xs,
// at position (n-1)*p.
func percentile(xs []float64, p float64) float64 {
	h := float64(len(xs)-1) * p
	lo, hi := math.Floor(h), math.Ceil(h)
	a, b := xs[int(lo)], xs[int(hi)]
	return a + (h-lo)*(b-a)
}
