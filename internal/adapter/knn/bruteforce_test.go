package knn

import (
	"errors"
	"math/rand"
	"testing"

	"recipes/internal/domain"
)

func randomRows(rng *rand.Rand, n, dim int, density float64) []domain.Vector {
	rows := make([]domain.Vector, n)
	for i := range rows {
		dense := make([]float32, dim)
		for j := range dense {
			if rng.Float64() < density {
				dense[j] = float32(rng.Intn(5) + 1)
			}
		}
		rows[i] = domain.FromDense(dense)
	}
	return rows
}

func TestBuild_Empty(t *testing.T) {
	if _, err := Build(nil, Options{}); !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestBuild_DimensionMismatch(t *testing.T) {
	rows := []domain.Vector{{Dim: 4}, {Dim: 5}}
	if _, err := Build(rows, Options{}); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestBuild_DefaultNeighborCount(t *testing.T) {
	idx, err := Build([]domain.Vector{{Dim: 2}}, Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if idx.NeighborCount() != DefaultNeighborCount {
		t.Errorf("expected %d, got %d", DefaultNeighborCount, idx.NeighborCount())
	}
}

func TestQuery_KExceedsRows(t *testing.T) {
	rows := randomRows(rand.New(rand.NewSource(1)), 3, 8, 0.5)
	idx, _ := Build(rows, Options{NeighborCount: 2})

	if _, err := idx.Query(rows[0], 5); !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestQuery_DefaultK(t *testing.T) {
	rows := randomRows(rand.New(rand.NewSource(2)), 6, 8, 0.5)
	idx, _ := Build(rows, Options{NeighborCount: 4})

	got, err := idx.Query(rows[0], 0)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("expected 4 neighbours, got %d", len(got))
	}

	small, _ := Build(rows[:2], Options{NeighborCount: 4})
	if _, err := small.Query(rows[0], 0); !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for default k above row count, got %v", err)
	}
}

func TestQuery_DimensionMismatch(t *testing.T) {
	idx, _ := Build([]domain.Vector{domain.FromDense([]float32{1, 0})}, Options{})
	if _, err := idx.Query(domain.FromDense([]float32{1, 0, 0}), 1); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestQuery_SelfRetrieval(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rows := randomRows(rng, 200, 64, 0.1)
	// Guarantee no row is all-zero so every row has a unique direction.
	for i := range rows {
		if rows[i].IsZero() {
			rows[i] = domain.NewVector(64, map[int32]float64{int32(i % 64): 1, int32((i + 1) % 64): float64(i)})
		}
	}
	idx, _ := Build(rows, Options{})

	for i, r := range rows {
		got, err := idx.Query(r, 1)
		if err != nil {
			t.Fatalf("Query(%d) failed: %v", i, err)
		}
		if got[0].Distance != 0 {
			t.Errorf("row %d: expected self distance exactly 0, got %v", i, got[0].Distance)
		}
		if got[0].Row > i {
			t.Errorf("row %d: expected itself or an earlier identical row first, got %d", i, got[0].Row)
		}
	}
}

func TestQuery_OrderingAndTies(t *testing.T) {
	rows := []domain.Vector{
		domain.FromDense([]float32{0, 1, 0}), // orthogonal
		domain.FromDense([]float32{1, 1, 0}),
		domain.FromDense([]float32{2, 0, 0}), // same direction as query
		domain.FromDense([]float32{1, 1, 0}), // tie with row 1
		domain.FromDense([]float32{3, 0, 0}), // tie with row 2
	}
	idx, _ := Build(rows, Options{})

	got, err := idx.Query(domain.FromDense([]float32{1, 0, 0}), 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	wantRows := []int{2, 4, 1, 3, 0}
	for i, n := range got {
		if n.Row != wantRows[i] {
			t.Errorf("position %d: expected row %d, got %d", i, wantRows[i], n.Row)
		}
		if i > 0 && n.Distance < got[i-1].Distance {
			t.Errorf("distances not ascending at %d: %v < %v", i, n.Distance, got[i-1].Distance)
		}
	}
	if got[0].Distance != 0 || got[1].Distance != 0 {
		t.Errorf("expected exact zero for parallel rows, got %v and %v", got[0].Distance, got[1].Distance)
	}
	if got[4].Distance != 1 {
		t.Errorf("expected orthogonal row at distance 1, got %v", got[4].Distance)
	}
}

func TestQuery_ZeroVectors(t *testing.T) {
	rows := []domain.Vector{
		domain.FromDense([]float32{1, 0}),
		{Dim: 2},
		domain.FromDense([]float32{0, 1}),
	}
	idx, _ := Build(rows, Options{})

	got, err := idx.Query(domain.Vector{Dim: 2}, 3)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if got[0].Row != 1 || got[0].Distance != 0 {
		t.Errorf("expected zero row first at distance 0, got %+v", got[0])
	}
	for _, n := range got[1:] {
		if n.Distance != 1 {
			t.Errorf("expected distance 1 against non-zero row %d, got %v", n.Row, n.Distance)
		}
	}
	if got[1].Row != 0 || got[2].Row != 2 {
		t.Errorf("expected ties broken by row, got %+v", got)
	}
}

func TestDistances_WorkerCountInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rows := randomRows(rng, parallelThreshold+1000, 32, 0.2)
	query := rows[17]

	seq, _ := Build(rows, Options{Workers: 1})
	par, _ := Build(rows, Options{Workers: 7})

	a, err := seq.Distances(query)
	if err != nil {
		t.Fatalf("sequential Distances failed: %v", err)
	}
	b, err := par.Distances(query)
	if err != nil {
		t.Fatalf("parallel Distances failed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d: sequential %v differs from parallel %v", i, a[i], b[i])
		}
	}

	na, _ := seq.Query(query, 10)
	nb, _ := par.Query(query, 10)
	for i := range na {
		if na[i] != nb[i] {
			t.Errorf("position %d: %+v vs %+v", i, na[i], nb[i])
		}
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"one zero", []float32{0, 0}, []float32{3, 4}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := domain.FromDense(tt.a), domain.FromDense(tt.b)
			got := cosineDistance(domain.Dot(a, b), a.SquaredNorm(), b.SquaredNorm())
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestStateRoundTrip(t *testing.T) {
	rows := randomRows(rand.New(rand.NewSource(3)), 20, 16, 0.3)
	idx, _ := Build(rows, Options{NeighborCount: 5})

	restored, err := FromState(idx.State(), 2)
	if err != nil {
		t.Fatalf("FromState failed: %v", err)
	}
	if restored.Rows() != 20 || restored.NeighborCount() != 5 || restored.Dimension() != 16 {
		t.Errorf("unexpected restored index: rows=%d k=%d dim=%d", restored.Rows(), restored.NeighborCount(), restored.Dimension())
	}

	bad := idx.State()
	bad.Metric = "euclidean"
	if _, err := FromState(bad, 1); !errors.Is(err, domain.ErrBundleCorrupt) {
		t.Errorf("expected ErrBundleCorrupt, got %v", err)
	}

	bad = idx.State()
	bad.Dimension = 99
	if _, err := FromState(bad, 1); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func BenchmarkQuery(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	rows := randomRows(rng, 5000, 256, 0.05)
	idx, err := Build(rows, Options{NeighborCount: 10})
	if err != nil {
		b.Fatal(err)
	}
	query := rows[42]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.Query(query, 10); err != nil {
			b.Fatal(err)
		}
	}
}
