package ranking

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadTable(t *testing.T) {
	path := writeTable(t, `# validation loss at update 2000
arch_0 4.71
arch_1 4.52

arch_2 4.98
`)
	table, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"arch_0", "arch_1", "arch_2"}, table.Names)
	assert.Equal(t, 4.52, table.Values["arch_1"])
}

func TestReadTableErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"too many fields", "arch_0 4.71 extra\n", "expected 'name value'"},
		{"bad value", "arch_0 fast\n", "invalid value"},
		{"duplicate", "arch_0 4.71\narch_0 4.52\n", "duplicate name"},
		{"empty", "# only comments\n", "no metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTable(writeTable(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func tableOf(names []string, values []float64) *Table {
	t := &Table{Names: names, Values: make(map[string]float64)}
	for i, n := range names {
		t.Values[n] = values[i]
	}
	return t
}

func TestCompareIdenticalOrder(t *testing.T) {
	names := []string{"a", "b", "c", "d"}
	a := tableOf(names, []float64{1, 2, 3, 4})
	b := tableOf(names, []float64{10, 20, 30, 40})

	res, err := Compare(a, b)
	require.NoError(t, err)
	assert.Equal(t, 4, res.N)
	assert.InDelta(t, 1.0, res.Kendall, 1e-12)
	assert.InDelta(t, 1.0, res.Spearman, 1e-12)
}

func TestCompareReversedOrder(t *testing.T) {
	names := []string{"a", "b", "c", "d"}
	a := tableOf(names, []float64{1, 2, 3, 4})
	b := tableOf(names, []float64{4, 3, 2, 1})

	res, err := Compare(a, b)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, res.Kendall, 1e-12)
	assert.InDelta(t, -1.0, res.Spearman, 1e-12)
}

func TestCompareMismatched(t *testing.T) {
	a := tableOf([]string{"a", "b"}, []float64{1, 2})
	b := tableOf([]string{"a"}, []float64{1})
	_, err := Compare(a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disagree")

	c := tableOf([]string{"a", "c"}, []float64{1, 2})
	_, err = Compare(a, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestSpearmanTies(t *testing.T) {
	// tied values share their average rank, so a tie against a strict
	// ordering dents the correlation below 1 without flipping its sign
	r := Spearman([]float64{1, 2, 2, 4}, []float64{1, 2, 3, 4})
	assert.Greater(t, r, 0.9)
	assert.Less(t, r, 1.0)
}

func TestRanksAverageTies(t *testing.T) {
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, ranks([]float64{10, 20, 20, 30}))
}
