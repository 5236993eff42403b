package chart

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/sales-analysis/internal/aggregate"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestFromPartitions_SingleKey(t *testing.T) {
	cats, series := FromPartitions([]aggregate.Partition{
		{Keys: []string{"F"}, Value: 120},
		{Keys: []string{"M"}, Value: 100},
	})

	assert.Equal(t, []string{"F", "M"}, cats)
	require.Len(t, series, 1)
	assert.Equal(t, []float64{120, 100}, series[0].Values)
	assert.Empty(t, series[0].Name)
}

func TestFromPartitions_TwoKeys(t *testing.T) {
	cats, series := FromPartitions([]aggregate.Partition{
		{Keys: []string{"26-35", "F"}, Value: 90},
		{Keys: []string{"36-45", "F"}, Value: 40},
		{Keys: []string{"26-35", "M"}, Value: 30},
		{Keys: []string{"55+", "M"}, Value: 5},
	})

	assert.Equal(t, []string{"26-35", "36-45", "55+"}, cats)
	require.Len(t, series, 2)
	assert.Equal(t, Series{Name: "F", Values: []float64{90, 40, 0}}, series[0])
	assert.Equal(t, Series{Name: "M", Values: []float64{30, 0, 5}}, series[1])
}

func TestFromPartitions_Empty(t *testing.T) {
	cats, series := FromPartitions(nil)
	assert.Empty(t, cats)
	assert.Empty(t, series)
}

func TestRender_PNG(t *testing.T) {
	tests := []struct {
		name string
		fig  Figure
	}{
		{
			name: "single series",
			fig: Figure{
				Title: "Gender", Kind: Count,
				Categories: []string{"F", "M"},
				Series:     []Series{{Values: []float64{2, 1}}},
			},
		},
		{
			name: "hue",
			fig: Figure{
				Title: "Age Group", Kind: Count, XLabel: "Age Group",
				Categories: []string{"26-35", "36-45"},
				Series: []Series{
					{Name: "F", Values: []float64{3, 1}},
					{Name: "M", Values: []float64{1, 2}},
				},
			},
		},
		{
			name: "empty",
			fig:  Figure{Title: "nothing", Kind: Bar},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tt.fig.Render(&buf))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
		})
	}
}

func TestPlot_RotatesManyLabels(t *testing.T) {
	cats := make([]string, 10)
	vals := make([]float64, 10)
	for i := range cats {
		cats[i] = fmt.Sprintf("P%02d", i)
		vals[i] = float64(10 - i)
	}

	p, err := Figure{Categories: cats, Series: []Series{{Values: vals}}}.Plot()
	require.NoError(t, err)
	assert.NotZero(t, p.X.Tick.Label.Rotation)
	assert.Equal(t, 0.0, p.Y.Min)
	assert.InDelta(t, 11.0, p.Y.Max, 1e-9)

	p, err = Figure{Categories: cats[:3], Series: []Series{{Values: vals[:3]}}}.Plot()
	require.NoError(t, err)
	assert.Zero(t, p.X.Tick.Label.Rotation)
}

func TestPlot_CountDefaultsYLabel(t *testing.T) {
	p, err := Figure{Kind: Count}.Plot()
	require.NoError(t, err)
	assert.Equal(t, "count", p.Y.Label.Text)

	p, err = Figure{Kind: Bar, YLabel: "Amount"}.Plot()
	require.NoError(t, err)
	assert.Equal(t, "Amount", p.Y.Label.Text)
}

func TestPlot_MismatchedSeries(t *testing.T) {
	_, err := Figure{Categories: []string{"a", "b"}, Series: []Series{{Values: []float64{1}}}}.Plot()
	assert.Error(t, err)
}

func TestSave_CreatesDirAndOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	fig := Figure{Title: "Sales", Categories: []string{"F", "M"}, Series: []Series{{Values: []float64{120, 100}}}}

	path, err := fig.Save(dir, "total_sales_by_gender")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "total_sales_by_gender.png"), path)

	first, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(first, pngMagic))

	fig.Series[0].Values = []float64{1, 2}
	_, err = fig.Save(dir, "total_sales_by_gender")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
