// Package ranking compares two orderings of the same architectures, the
// stability measure used to decide when SuperTransformer training has
// settled: losses measured at different points should rank the sampled
// SubTransformers the same way.
package ranking

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Table maps architecture names to a metric value, keeping file order.
type Table struct {
	Names  []string
	Values map[string]float64
}

// ReadTable reads a metric file: one `name value` pair per line,
// `#`-prefixed lines are comments.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metric file: %w", err)
	}
	defer f.Close()

	t := &Table{Values: make(map[string]float64)}

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s (line %d): expected 'name value', got %q", path, line, text)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s (line %d): invalid value %q", path, line, fields[1])
		}
		if _, dup := t.Values[fields[0]]; dup {
			return nil, fmt.Errorf("%s (line %d): duplicate name %q", path, line, fields[0])
		}
		t.Names = append(t.Names, fields[0])
		t.Values[fields[0]] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading metric file: %w", err)
	}

	if len(t.Names) == 0 {
		return nil, fmt.Errorf("%s holds no metrics", path)
	}
	return t, nil
}

type Result struct {
	Kendall  float64
	Spearman float64
	N        int
}

// Compare computes Kendall tau and Spearman correlation between two metric
// tables. Both must name exactly the same architectures.
func Compare(a, b *Table) (Result, error) {
	if len(a.Names) != len(b.Names) {
		return Result{}, fmt.Errorf("tables disagree: %d vs %d entries", len(a.Names), len(b.Names))
	}

	x := make([]float64, 0, len(a.Names))
	y := make([]float64, 0, len(a.Names))
	for _, name := range a.Names {
		bv, ok := b.Values[name]
		if !ok {
			return Result{}, fmt.Errorf("%q is missing from the second table", name)
		}
		x = append(x, a.Values[name])
		y = append(y, bv)
	}

	return Result{
		Kendall:  stat.Kendall(x, y, nil),
		Spearman: Spearman(x, y),
		N:        len(x),
	}, nil
}

// Spearman is the Pearson correlation of the rank transforms, with tied
// values sharing their average rank.
func Spearman(x, y []float64) float64 {
	return stat.Correlation(ranks(x), ranks(y), nil)
}

func ranks(vs []float64) []float64 {
	idx := make([]int, len(vs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return vs[idx[i]] < vs[idx[j]] })

	out := make([]float64, len(vs))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && vs[idx[j+1]] == vs[idx[i]] {
			j++
		}
		// ranks are 1-based; ties get the average of their span
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}
