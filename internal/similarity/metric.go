package similarity

import (
	"math"
	"strings"
)

const (
	MethodCosine  = "cosine"
	MethodJaccard = "jaccard"
)

// Metric scores pairs of item vectors. Pairwise may precompute per-vector
// state and returns a function over vector indices.
type Metric interface {
	Name() string
	Pairwise(vectors [][]float64) func(i, j int) float64
}

// MetricByName resolves a similarity method. Unknown names resolve to cosine
// with ok set to false.
func MetricByName(name string) (Metric, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MethodCosine:
		return Cosine{}, true
	case MethodJaccard:
		return Jaccard{}, true
	default:
		return Cosine{}, false
	}
}

type Cosine struct{}

func (Cosine) Name() string { return MethodCosine }

func (Cosine) Pairwise(vectors [][]float64) func(i, j int) float64 {
	invNorms := make([]float64, len(vectors))
	for i, v := range vectors {
		var sum float64
		for _, x := range v {
			sum += x * x
		}
		if sum > 0 {
			invNorms[i] = 1 / math.Sqrt(sum)
		}
	}
	return func(i, j int) float64 {
		if invNorms[i] == 0 || invNorms[j] == 0 {
			return 0
		}
		return dot(vectors[i], vectors[j]) * invNorms[i] * invNorms[j]
	}
}

// Jaccard treats every non-zero weight as membership.
type Jaccard struct{}

func (Jaccard) Name() string { return MethodJaccard }

func (Jaccard) Pairwise(vectors [][]float64) func(i, j int) float64 {
	sizes := make([]int, len(vectors))
	for i, v := range vectors {
		for _, x := range v {
			if x != 0 {
				sizes[i]++
			}
		}
	}
	return func(i, j int) float64 {
		a, b := vectors[i], vectors[j]
		inter := 0
		for u := range a {
			if a[u] != 0 && b[u] != 0 {
				inter++
			}
		}
		union := sizes[i] + sizes[j] - inter
		if union == 0 {
			return 0
		}
		return float64(inter) / float64(union)
	}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
