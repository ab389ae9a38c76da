package eventstudy

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	absorbTol      = 1e-10
	absorbMaxIters = 200
	collinearTol   = 1e-8
)

// absorbTwoWay removes entity and time means from each column in place by
// alternating demeaning until the largest within-iteration change falls below
// tolerance. This is the standard iterative solution for two-way fixed
// effects; for a balanced panel it converges in a handful of sweeps.
func absorbTwoWay(cols [][]float64, group, timeCol []int) {
	if len(cols) == 0 {
		return
	}

	groupIdx := bucketIndex(group)
	timeIdx := bucketIndex(timeCol)

	for iter := 0; iter < absorbMaxIters; iter++ {
		maxShift := 0.0
		for _, col := range cols {
			maxShift = math.Max(maxShift, demeanBy(col, groupIdx))
			maxShift = math.Max(maxShift, demeanBy(col, timeIdx))
		}
		if maxShift < absorbTol {
			return
		}
	}
}

// bucketIndex maps each distinct label to the row indices carrying it.
func bucketIndex(labels []int) map[int][]int {
	idx := make(map[int][]int)
	for i, l := range labels {
		idx[l] = append(idx[l], i)
	}
	return idx
}

// demeanBy subtracts the bucket mean from each value and returns the largest
// absolute mean removed.
func demeanBy(col []float64, idx map[int][]int) float64 {
	maxMean := 0.0
	for _, rows := range idx {
		var sum float64
		for _, i := range rows {
			sum += col[i]
		}
		mean := sum / float64(len(rows))
		for _, i := range rows {
			col[i] -= mean
		}
		if a := math.Abs(mean); a > maxMean {
			maxMean = a
		}
	}
	return maxMean
}

// dropCollinear removes columns that are (numerically) linear combinations of
// the columns kept before them, via modified Gram-Schmidt. Returns the
// reduced matrix, the names kept, and the names dropped. After two-way
// demeaning, interaction cells fully explained by the fixed effects come out
// as near-zero columns and land in the dropped list.
func dropCollinear(cols [][]float64, names []string) (*mat.Dense, []string, []string) {
	n := 0
	if len(cols) > 0 {
		n = len(cols[0])
	}

	var (
		basis   [][]float64 // orthonormal
		kept    []string
		keptRaw [][]float64
		dropped []string
	)

	for j, col := range cols {
		v := make([]float64, n)
		copy(v, col)

		origNorm := norm(col)
		if origNorm < collinearTol {
			dropped = append(dropped, names[j])
			continue
		}

		for _, b := range basis {
			d := dot(v, b)
			for i := range v {
				v[i] -= d * b[i]
			}
		}

		residNorm := norm(v)
		if residNorm < collinearTol*origNorm || residNorm < collinearTol {
			dropped = append(dropped, names[j])
			continue
		}

		for i := range v {
			v[i] /= residNorm
		}
		basis = append(basis, v)
		kept = append(kept, names[j])
		keptRaw = append(keptRaw, col)
	}

	if len(kept) == 0 {
		return nil, nil, dropped
	}

	x := mat.NewDense(n, len(keptRaw), nil)
	for j, col := range keptRaw {
		x.SetCol(j, col)
	}
	return x, kept, dropped
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}
