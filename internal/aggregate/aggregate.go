package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/sales-analysis/internal/table"
)

// Reduction is how a partition's metric is reduced.
type Reduction string

const (
	Sum   Reduction = "sum"
	Count Reduction = "count"
)

// Query describes one aggregation: group → reduce → sort desc → limit.
type Query struct {
	// GroupBy holds one or two column names.
	GroupBy []string
	// Metric is the column reduced by Sum. Count ignores it.
	Metric string
	Reduce Reduction
	// TopN keeps only the first N partitions after sorting; 0 keeps all.
	TopN int
}

// Partition is the set of rows sharing one value combination of the group-by columns.
type Partition struct {
	Keys  []string
	Value float64
	Rows  int
}

// Label joins the partition keys for display.
func (p Partition) Label() string { return strings.Join(p.Keys, " / ") }

// Run executes q over t.
//
// Partitions are built in first-appearance order and then stable-sorted by
// value descending, so equal values keep the order in which their first row
// appeared. An empty table yields an empty result.
func Run(t *table.Table, q Query) ([]Partition, error) {
	if len(q.GroupBy) == 0 || len(q.GroupBy) > 2 {
		return nil, fmt.Errorf("aggregate: want 1 or 2 group-by columns, got %d", len(q.GroupBy))
	}

	keys := make([]table.Column, len(q.GroupBy))
	for i, name := range q.GroupBy {
		c, err := t.Column(name)
		if err != nil {
			return nil, fmt.Errorf("aggregate: group by: %w", err)
		}
		keys[i] = c
	}

	var metric table.Column
	switch q.Reduce {
	case Sum:
		c, err := t.Column(q.Metric)
		if err != nil {
			return nil, fmt.Errorf("aggregate: metric: %w", err)
		}
		if !c.Kind.Numeric() {
			return nil, fmt.Errorf("aggregate: metric %q is %s, want numeric", q.Metric, c.Kind)
		}
		metric = c
	case Count:
	default:
		return nil, fmt.Errorf("aggregate: unknown reduction %q", q.Reduce)
	}

	index := make(map[string]int)
	var parts []Partition
	for row := 0; row < t.Len(); row++ {
		vals := make([]string, len(keys))
		for i, c := range keys {
			vals[i] = c.Value(row)
		}
		id := strings.Join(vals, "\x00")

		pi, ok := index[id]
		if !ok {
			pi = len(parts)
			index[id] = pi
			parts = append(parts, Partition{Keys: vals})
		}

		parts[pi].Rows++
		if q.Reduce == Sum {
			parts[pi].Value += metric.Float(row)
		} else {
			parts[pi].Value++
		}
	}

	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Value > parts[j].Value })

	if q.TopN > 0 && len(parts) > q.TopN {
		parts = parts[:q.TopN]
	}
	return parts, nil
}

// Total sums the values of ps.
func Total(ps []Partition) float64 {
	var total float64
	for _, p := range ps {
		total += p.Value
	}
	return total
}

// Categories returns the distinct values of key position pos across ps, in
// first-appearance order.
func Categories(ps []Partition, pos int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range ps {
		if pos >= len(p.Keys) {
			continue
		}
		k := p.Keys[pos]
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
