package encoder

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"recipes/internal/domain"
)

var tfidfSample = []string{
	"chicken, rice, garlic",
	"chicken, potato, the",
	"beef, rice",
	"chicken, rice, onion",
}

func TestTFIDF_TransformBeforeFit(t *testing.T) {
	e, _ := NewTFIDF(10, true, NormL2)

	if _, err := e.Transform("chicken"); !errors.Is(err, domain.ErrNotFitted) {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}
	if _, err := e.TransformBatch([]string{"chicken"}); !errors.Is(err, domain.ErrNotFitted) {
		t.Errorf("expected ErrNotFitted from batch, got %v", err)
	}
}

func TestTFIDF_FitEmptySample(t *testing.T) {
	e, _ := NewTFIDF(10, true, NormL2)

	if err := e.Fit(nil); !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if err := e.Fit([]string{"the, and", ""}); !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for stopword-only sample, got %v", err)
	}
}

func TestTFIDF_Vocabulary(t *testing.T) {
	e, _ := NewTFIDF(10, true, NormL2)
	if err := e.Fit(tfidfSample); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	want := []string{"beef", "chicken", "garlic", "onion", "potato", "rice"}
	if !reflect.DeepEqual(e.State().Vocabulary, want) {
		t.Errorf("expected vocabulary %v, got %v", want, e.State().Vocabulary)
	}
	if e.Dimension() != len(want) {
		t.Errorf("expected dimension %d, got %d", len(want), e.Dimension())
	}
}

func TestTFIDF_MaxFeaturesKeepsMostFrequent(t *testing.T) {
	e, _ := NewTFIDF(2, true, NormL2)
	if err := e.Fit(tfidfSample); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	// chicken (df 3) and rice (df 3) beat every df-1 term.
	want := []string{"chicken", "rice"}
	if !reflect.DeepEqual(e.State().Vocabulary, want) {
		t.Errorf("expected vocabulary %v, got %v", want, e.State().Vocabulary)
	}
}

func TestTFIDF_MaxFeaturesTieBreak(t *testing.T) {
	e, _ := NewTFIDF(3, true, NormL2)
	if err := e.Fit(tfidfSample); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	// Among the df-1 terms, beef sorts first.
	want := []string{"beef", "chicken", "rice"}
	if !reflect.DeepEqual(e.State().Vocabulary, want) {
		t.Errorf("expected vocabulary %v, got %v", want, e.State().Vocabulary)
	}
}

func TestTFIDF_Weights(t *testing.T) {
	e, _ := NewTFIDF(10, true, NormNone)
	if err := e.Fit(tfidfSample); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	v, err := e.Transform("garlic, garlic, chicken")
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	dense := v.Dense()

	n := float64(len(tfidfSample))
	idfGarlic := math.Log((1+n)/(1+1)) + 1
	idfChicken := math.Log((1+n)/(1+3)) + 1

	if math.Abs(float64(dense[2])-2*idfGarlic) > 1e-5 {
		t.Errorf("expected garlic weight %v, got %v", 2*idfGarlic, dense[2])
	}
	if math.Abs(float64(dense[1])-idfChicken) > 1e-5 {
		t.Errorf("expected chicken weight %v, got %v", idfChicken, dense[1])
	}
}

func TestTFIDF_UnknownTokensYieldZeroVector(t *testing.T) {
	e, _ := NewTFIDF(10, true, NormL2)
	_ = e.Fit(tfidfSample)

	v, err := e.Transform("saffron, truffle")
	if err != nil {
		t.Fatalf("expected no error for unknown tokens, got %v", err)
	}
	if !v.IsZero() {
		t.Errorf("expected zero vector, got %v", v)
	}
	if v.Dim != e.Dimension() {
		t.Errorf("expected dimension %d, got %d", e.Dimension(), v.Dim)
	}
}

func TestTFIDF_Normalized(t *testing.T) {
	e, _ := NewTFIDF(10, true, NormL2)
	_ = e.Fit(tfidfSample)

	v, _ := e.Transform("chicken, rice, onion")
	if math.Abs(v.SquaredNorm()-1) > 1e-6 {
		t.Errorf("expected unit norm, got %v", v.SquaredNorm())
	}
}

func TestTFIDF_StateRoundTrip(t *testing.T) {
	e, _ := NewTFIDF(10, true, NormL2)
	_ = e.Fit(tfidfSample)

	restored, err := FromState(e.State())
	if err != nil {
		t.Fatalf("FromState failed: %v", err)
	}
	if restored.Kind() != KindTFIDF {
		t.Errorf("expected kind %s, got %s", KindTFIDF, restored.Kind())
	}

	for _, text := range tfidfSample {
		a, _ := e.Transform(text)
		b, _ := restored.Transform(text)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("restored encoding of %q differs: %v vs %v", text, b, a)
		}
	}
}

func TestTFIDF_CorruptState(t *testing.T) {
	tests := []struct {
		name  string
		state State
	}{
		{"empty vocabulary", State{Kind: KindTFIDF}},
		{"weight count mismatch", State{Kind: KindTFIDF, Dimension: 2, Vocabulary: []string{"a", "b"}, IDF: []float64{1}}},
		{"dimension mismatch", State{Kind: KindTFIDF, Dimension: 3, Vocabulary: []string{"a", "b"}, IDF: []float64{1, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromState(tt.state); !errors.Is(err, domain.ErrBundleCorrupt) {
				t.Errorf("expected ErrBundleCorrupt, got %v", err)
			}
		})
	}
}

func TestNew_Strategies(t *testing.T) {
	h, err := New(Options{Strategy: KindHashing, Dimension: 16})
	if err != nil || h.Kind() != KindHashing || h.Dimension() != 16 {
		t.Errorf("unexpected hashing encoder: %v, %v", h, err)
	}
	f, err := New(Options{Strategy: KindTFIDF, MaxFeatures: 5, StopWords: true})
	if err != nil || f.Kind() != KindTFIDF {
		t.Errorf("unexpected tfidf encoder: %v, %v", f, err)
	}
}
