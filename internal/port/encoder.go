package port

import "recipes/internal/domain"

// Encoder turns an ingredient list into a fixed-dimension vector.
type Encoder interface {
	// Fit learns encoder state from a sample of ingredient texts.
	// Encoders without state accept any sample.
	Fit(sample []string) error

	// Transform encodes one ingredient text.
	Transform(text string) (domain.Vector, error)

	// TransformBatch encodes texts preserving their order.
	TransformBatch(texts []string) ([]domain.Vector, error)

	// Dimension returns the length of every produced vector.
	Dimension() int

	// Kind names the strategy, recorded in persisted bundles.
	Kind() string
}
