package encoder

import (
	"fmt"
	"math"
	"sort"

	"recipes/internal/adapter/analyzer"
	"recipes/internal/domain"
)

// DefaultMaxFeatures bounds the learned vocabulary.
const DefaultMaxFeatures = 10000

// TFIDF is a frequency-weighted encoder. Its vocabulary holds the
// maxFeatures tokens with the highest document frequency in the fitting
// sample; weights are raw term count times smoothed IDF, L2 normalized.
type TFIDF struct {
	maxFeatures int
	norm        string
	tokenizer   *analyzer.Tokenizer

	vocabulary map[string]int32
	terms      []string
	idf        []float64
	documents  int
	fitted     bool
}

// NewTFIDF creates an unfitted frequency-weighted encoder.
func NewTFIDF(maxFeatures int, stopWords bool, norm string) (*TFIDF, error) {
	if maxFeatures <= 0 {
		return nil, fmt.Errorf("%w: max features must be positive, got %d", domain.ErrInvalidArgument, maxFeatures)
	}
	if norm == "" {
		norm = NormL2
	}
	return &TFIDF{
		maxFeatures: maxFeatures,
		norm:        norm,
		tokenizer:   analyzer.NewTokenizer(stopWords),
	}, nil
}

// Fit learns vocabulary and IDF weights from sample.
func (e *TFIDF) Fit(sample []string) error {
	if len(sample) == 0 {
		return fmt.Errorf("%w: empty fitting sample", domain.ErrInsufficientData)
	}

	df := make(map[string]int)
	for _, text := range sample {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenizer.Tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return fmt.Errorf("%w: fitting sample produced an empty vocabulary", domain.ErrInsufficientData)
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	// Highest document frequency first, lexicographic among equals.
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > e.maxFeatures {
		terms = terms[:e.maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(sample))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}

	e.setVocabulary(terms, idf)
	e.documents = len(sample)
	return nil
}

func (e *TFIDF) setVocabulary(terms []string, idf []float64) {
	e.terms = terms
	e.idf = idf
	e.vocabulary = make(map[string]int32, len(terms))
	for i, term := range terms {
		e.vocabulary[term] = int32(i)
	}
	e.fitted = true
}

// Transform encodes text; tokens outside the vocabulary are ignored, so
// text made only of unknown ingredients yields an all-zero vector.
func (e *TFIDF) Transform(text string) (domain.Vector, error) {
	if !e.fitted {
		return domain.Vector{}, domain.ErrNotFitted
	}
	counts := make(map[int32]float64)
	for _, tok := range e.tokenizer.Tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			counts[idx]++
		}
	}
	for idx, c := range counts {
		counts[idx] = c * e.idf[idx]
	}
	v := domain.NewVector(len(e.terms), counts)
	normalize(&v, e.norm)
	return v, nil
}

func (e *TFIDF) TransformBatch(texts []string) ([]domain.Vector, error) {
	if !e.fitted {
		return nil, domain.ErrNotFitted
	}
	return transformAll(e, texts)
}

// Dimension is the vocabulary size, zero before fitting.
func (e *TFIDF) Dimension() int {
	return len(e.terms)
}

func (e *TFIDF) Kind() string {
	return KindTFIDF
}

func (e *TFIDF) State() State {
	return State{
		Kind:       KindTFIDF,
		Dimension:  len(e.terms),
		Norm:       e.norm,
		StopWords:  e.tokenizer.RemovesStopwords(),
		Vocabulary: e.terms,
		IDF:        e.idf,
		Documents:  e.documents,
	}
}

func restoreTFIDF(s State) (*TFIDF, error) {
	if len(s.Vocabulary) == 0 {
		return nil, fmt.Errorf("%w: tfidf state has no vocabulary", domain.ErrBundleCorrupt)
	}
	if len(s.Vocabulary) != len(s.IDF) || s.Dimension != len(s.Vocabulary) {
		return nil, fmt.Errorf("%w: tfidf vocabulary has %d terms, %d weights, dimension %d",
			domain.ErrBundleCorrupt, len(s.Vocabulary), len(s.IDF), s.Dimension)
	}
	e, err := NewTFIDF(len(s.Vocabulary), s.StopWords, s.Norm)
	if err != nil {
		return nil, err
	}
	e.setVocabulary(s.Vocabulary, s.IDF)
	e.documents = s.Documents
	return e, nil
}
