package domain

import (
	"sort"
	"time"
)

// Recipe is one normalized record of the recipe store.
type Recipe struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Ingredients string `json:"ingredients"`
	Directions  string `json:"directions"`
	Source      string `json:"source"`
}

// Vector is a sparse view of a fixed-length numeric array.
// Indices are strictly ascending and every stored value is non-zero.
type Vector struct {
	Dim     int       `json:"dim"`
	Indices []int32   `json:"idx,omitempty"`
	Values  []float32 `json:"val,omitempty"`
}

// NewVector builds a sparse vector from index -> weight pairs.
// Zero weights are dropped.
func NewVector(dim int, weights map[int32]float64) Vector {
	idx := make([]int32, 0, len(weights))
	for i, w := range weights {
		if w != 0 {
			idx = append(idx, i)
		}
	}
	sort.Slice(idx, func(a, b int) bool { return idx[a] < idx[b] })

	vals := make([]float32, len(idx))
	for n, i := range idx {
		vals[n] = float32(weights[i])
	}
	return Vector{Dim: dim, Indices: idx, Values: vals}
}

// FromDense converts a dense array into a sparse vector.
func FromDense(dense []float32) Vector {
	v := Vector{Dim: len(dense)}
	for i, x := range dense {
		if x != 0 {
			v.Indices = append(v.Indices, int32(i))
			v.Values = append(v.Values, x)
		}
	}
	return v
}

// Dense materialises the full array of length Dim.
func (v Vector) Dense() []float32 {
	out := make([]float32, v.Dim)
	for n, i := range v.Indices {
		out[i] = v.Values[n]
	}
	return out
}

func (v Vector) NNZ() int {
	return len(v.Indices)
}

// IsZero reports whether every component is zero.
func (v Vector) IsZero() bool {
	for _, x := range v.Values {
		if x != 0 {
			return false
		}
	}
	return true
}

// SquaredNorm accumulates x*x in index order.
func (v Vector) SquaredNorm() float64 {
	var sum float64
	for _, x := range v.Values {
		f := float64(x)
		sum += f * f
	}
	return sum
}

// Dot returns the inner product of two sparse vectors of the same dimension.
// Products are accumulated in ascending index order so Dot(v, v) equals
// v.SquaredNorm() bit for bit.
func Dot(a, b Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			sum += float64(a.Values[i]) * float64(b.Values[j])
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Neighbor is one result of a nearest-neighbour query.
type Neighbor struct {
	Row      int     `json:"row"`
	RecipeID int64   `json:"recipe_id"`
	Distance float64 `json:"distance"`
}

// Recommendation is a neighbour joined with its stored record.
type Recommendation struct {
	Rank       int     `json:"rank"`
	Recipe     Recipe  `json:"recipe"`
	Distance   float64 `json:"distance"`
	ExactMatch bool    `json:"exact_match,omitempty"`
}

// Metric names used in evaluation output.
const (
	MetricPrecision = "precision@k"
	MetricRecall    = "recall@k"
	MetricMRR       = "mrr"
	MetricCoverage  = "coverage"
)

// EvalReport holds the averaged retrieval metrics of one evaluation run.
type EvalReport struct {
	K         int           `json:"k"`
	Precision float64       `json:"precision_at_k"`
	Recall    float64       `json:"recall_at_k"`
	MRR       float64       `json:"mrr"`
	Coverage  float64       `json:"coverage"`
	Sampled   int           `json:"sampled"`
	Missing   int           `json:"missing"`
	TestSize  int           `json:"test_size"`
	TrainSize int           `json:"train_size"`
	Universe  int           `json:"universe"`
	BundleID  string        `json:"bundle_id"`
	Duration  time.Duration `json:"duration"`
}

// Map returns the metric name -> value view of the report.
func (r EvalReport) Map() map[string]float64 {
	return map[string]float64{
		MetricPrecision: r.Precision,
		MetricRecall:    r.Recall,
		MetricMRR:       r.MRR,
		MetricCoverage:  r.Coverage,
	}
}

// Stats summarizes the contents of a record store.
type Stats struct {
	Recipes int   `json:"recipes"`
	MinID   int64 `json:"min_id"`
	MaxID   int64 `json:"max_id"`
}
