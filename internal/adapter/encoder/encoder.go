package encoder

import (
	"fmt"
	"math"

	"recipes/internal/domain"
	"recipes/internal/port"
)

const (
	KindTFIDF   = "tfidf"
	KindHashing = "hashing"

	NormL2   = "l2"
	NormNone = "none"
)

// Options selects and parameterizes an encoder strategy.
type Options struct {
	Strategy    string
	Dimension   int
	MaxFeatures int
	StopWords   bool
	Norm        string
}

// State is the persisted form of an encoder. It carries parameters and
// learned weights only, never a reference to code.
type State struct {
	Kind       string    `json:"kind"`
	Dimension  int       `json:"dimension"`
	Norm       string    `json:"norm"`
	StopWords  bool      `json:"stop_words"`
	Vocabulary []string  `json:"vocabulary,omitempty"`
	IDF        []float64 `json:"idf,omitempty"`
	Documents  int       `json:"documents,omitempty"`
}

// Stateful encoders can be persisted and restored with FromState.
type Stateful interface {
	port.Encoder
	State() State
}

// New builds an unfitted encoder for the requested strategy.
func New(opts Options) (Stateful, error) {
	if opts.Norm == "" {
		opts.Norm = NormL2
	}
	if opts.Norm != NormL2 && opts.Norm != NormNone {
		return nil, fmt.Errorf("%w: unknown norm %q", domain.ErrInvalidArgument, opts.Norm)
	}
	switch opts.Strategy {
	case KindHashing:
		return NewHashing(opts.Dimension, opts.Norm)
	case KindTFIDF:
		return NewTFIDF(opts.MaxFeatures, opts.StopWords, opts.Norm)
	default:
		return nil, fmt.Errorf("%w: unknown encoder strategy %q", domain.ErrInvalidArgument, opts.Strategy)
	}
}

// FromState restores the encoder variant recorded in s.
func FromState(s State) (Stateful, error) {
	switch s.Kind {
	case KindHashing:
		return NewHashing(s.Dimension, s.Norm)
	case KindTFIDF:
		return restoreTFIDF(s)
	default:
		return nil, fmt.Errorf("%w: unknown encoder kind %q", domain.ErrBundleCorrupt, s.Kind)
	}
}

func transformAll(enc port.Encoder, texts []string) ([]domain.Vector, error) {
	out := make([]domain.Vector, len(texts))
	for i, text := range texts {
		v, err := enc.Transform(text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// normalize scales v to unit L2 length in place. Values are visited in
// index order so the result is reproducible.
func normalize(v *domain.Vector, norm string) {
	if norm != NormL2 {
		return
	}
	sum := v.SquaredNorm()
	if sum == 0 {
		return
	}
	n := math.Sqrt(sum)
	for i, x := range v.Values {
		v.Values[i] = float32(float64(x) / n)
	}
}
