package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewVector_SortsAndDropsZeros(t *testing.T) {
	v := NewVector(8, map[int32]float64{5: 1, 2: 2, 7: 0})

	if v.Dim != 8 {
		t.Errorf("expected dim 8, got %d", v.Dim)
	}
	if v.NNZ() != 2 {
		t.Fatalf("expected 2 non-zero entries, got %d", v.NNZ())
	}
	if v.Indices[0] != 2 || v.Indices[1] != 5 {
		t.Errorf("expected indices [2 5], got %v", v.Indices)
	}
	if v.Values[0] != 2 || v.Values[1] != 1 {
		t.Errorf("expected values [2 1], got %v", v.Values)
	}
}

func TestVector_DenseRoundTrip(t *testing.T) {
	dense := []float32{0, 1.5, 0, 0, 3, 0}
	v := FromDense(dense)

	if v.Dim != len(dense) {
		t.Errorf("expected dim %d, got %d", len(dense), v.Dim)
	}
	got := v.Dense()
	for i := range dense {
		if got[i] != dense[i] {
			t.Errorf("index %d: expected %v, got %v", i, dense[i], got[i])
		}
	}
}

func TestVector_IsZero(t *testing.T) {
	if !(Vector{Dim: 4}).IsZero() {
		t.Error("empty vector should be zero")
	}
	if FromDense([]float32{0, 0, 1}).IsZero() {
		t.Error("vector with a non-zero entry should not be zero")
	}
}

func TestDot(t *testing.T) {
	a := FromDense([]float32{1, 0, 2, 0, 3})
	b := FromDense([]float32{0, 4, 5, 0, 6})

	if got := Dot(a, b); got != 28 {
		t.Errorf("expected 28, got %v", got)
	}
	if Dot(a, a) != a.SquaredNorm() {
		t.Errorf("self dot %v differs from squared norm %v", Dot(a, a), a.SquaredNorm())
	}
}

func TestEvalReport_Map(t *testing.T) {
	r := EvalReport{Precision: 0.2, Recall: 1, MRR: 0.5, Coverage: 0.1}
	m := r.Map()

	if len(m) != 4 {
		t.Fatalf("expected 4 metrics, got %d", len(m))
	}
	if m[MetricPrecision] != 0.2 || m[MetricRecall] != 1 || m[MetricMRR] != 0.5 || m[MetricCoverage] != 0.1 {
		t.Errorf("unexpected metric map: %v", m)
	}
}

func TestStorageError(t *testing.T) {
	if StorageError("get", nil) != nil {
		t.Error("nil error should stay nil")
	}

	notFound := fmt.Errorf("id 3: %w", ErrRecordNotFound)
	if err := StorageError("get", notFound); err != notFound {
		t.Errorf("not-found error should pass through, got %v", err)
	}

	err := StorageError("scan", errors.New("disk gone"))
	var sae *StorageAccessError
	if !errors.As(err, &sae) {
		t.Fatalf("expected StorageAccessError, got %T", err)
	}
	if sae.Op != "scan" {
		t.Errorf("expected op scan, got %s", sae.Op)
	}
	if again := StorageError("outer", err); again != err {
		t.Error("already wrapped error should not be wrapped twice")
	}
}
