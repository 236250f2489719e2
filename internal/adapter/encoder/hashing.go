package encoder

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"recipes/internal/adapter/analyzer"
	"recipes/internal/domain"
	"recipes/internal/port"
)

// Hashing maps every token to xxhash64(token) mod dim and accumulates
// non-negative counts. It needs no fitting and cannot go stale as the
// corpus grows; distinct ingredients may collide in one bucket.
// Empty pieces, such as the one after a trailing comma, are skipped, so
// "salt, pepper," encodes the same as "salt, pepper".
type Hashing struct {
	dim       int
	norm      string
	tokenizer port.Tokenizer
}

// NewHashing creates a hashed encoder with dim output buckets.
func NewHashing(dim int, norm string) (*Hashing, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: hashing dimension must be positive, got %d", domain.ErrInvalidArgument, dim)
	}
	if norm == "" {
		norm = NormL2
	}
	return &Hashing{
		dim:       dim,
		norm:      norm,
		tokenizer: analyzer.NewTokenizer(false),
	}, nil
}

// Fit is a no-op; hashed encoders carry no learned state.
func (h *Hashing) Fit(sample []string) error {
	return nil
}

func (h *Hashing) Transform(text string) (domain.Vector, error) {
	tokens := h.tokenizer.Tokenize(text)
	if len(tokens) == 0 {
		return domain.Vector{Dim: h.dim}, nil
	}
	counts := make(map[int32]float64, len(tokens))
	for _, tok := range tokens {
		counts[h.bucket(tok)]++
	}
	v := domain.NewVector(h.dim, counts)
	normalize(&v, h.norm)
	return v, nil
}

func (h *Hashing) TransformBatch(texts []string) ([]domain.Vector, error) {
	return transformAll(h, texts)
}

func (h *Hashing) Dimension() int {
	return h.dim
}

func (h *Hashing) Kind() string {
	return KindHashing
}

func (h *Hashing) State() State {
	return State{
		Kind:      KindHashing,
		Dimension: h.dim,
		Norm:      h.norm,
	}
}

func (h *Hashing) bucket(token string) int32 {
	return int32(xxhash.Sum64String(token) % uint64(h.dim))
}
