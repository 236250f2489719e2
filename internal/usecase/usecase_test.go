package usecase

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recipes/internal/adapter/corpus"
	"recipes/internal/adapter/encoder"
	"recipes/internal/adapter/fs"
	"recipes/internal/adapter/memstore"
	"recipes/internal/adapter/metrics"
	"recipes/internal/domain"
	"recipes/internal/logging"
)

func TestMain(m *testing.M) {
	logging.Init(logging.Config{Level: "disabled"})
	os.Exit(m.Run())
}

func seedStore(t *testing.T, ingredients ...string) *memstore.MemoryStore {
	t.Helper()
	s := memstore.NewMemoryStore()
	recipes := make([]domain.Recipe, len(ingredients))
	for i, ing := range ingredients {
		recipes[i] = domain.Recipe{Title: "recipe " + ing, Ingredients: ing, Directions: "cook"}
	}
	if _, err := s.Insert(recipes); err != nil {
		t.Fatal(err)
	}
	return s
}

func hashingOptions(dim int) TrainOptions {
	return TrainOptions{
		Encoder:       encoder.Options{Strategy: encoder.KindHashing, Dimension: dim},
		BatchSize:     2,
		NeighborCount: 2,
		Workers:       1,
		Seed:          42,
	}
}

func trainModel(t *testing.T, s *memstore.MemoryStore, opts TrainOptions) *Model {
	t.Helper()
	b, _, err := NewTrainUseCase(s, opts).Train(context.Background(), nil)
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	m, err := LoadModel(b, 1)
	if err != nil {
		t.Fatalf("load model failed: %v", err)
	}
	return m
}

func TestTrain_HashingScenario(t *testing.T) {
	s := seedStore(t, "chicken, rice", "beef, potato", "chicken, rice, onion")
	m := trainModel(t, s, hashingOptions(8))

	got, err := m.Neighbors("chicken, rice", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 neighbours, got %d", len(got))
	}
	if got[0].Row != 0 || got[0].Distance != 0 {
		t.Errorf("expected recipe 0 at distance 0, got %+v", got[0])
	}
	if got[1].Row != 2 || got[1].Distance <= 0 {
		t.Errorf("expected recipe 2 at a positive distance, got %+v", got[1])
	}

	all, err := m.Neighbors("chicken, rice", 3)
	if err != nil {
		t.Fatal(err)
	}
	if all[2].Row != 1 || !(all[1].Distance < all[2].Distance) {
		t.Errorf("expected recipe 1 last and farther than recipe 2, got %+v", all)
	}
	if got[0].RecipeID != 1 || got[1].RecipeID != 3 {
		t.Errorf("expected recipe ids 1 and 3, got %d and %d", got[0].RecipeID, got[1].RecipeID)
	}
}

func TestTrain_KExceedsRows(t *testing.T) {
	s := seedStore(t, "chicken, rice", "beef, potato", "chicken, rice, onion")
	m := trainModel(t, s, hashingOptions(8))

	if _, err := m.Neighbors("chicken", 5); !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestTrain_EmptyStore(t *testing.T) {
	_, _, err := NewTrainUseCase(memstore.NewMemoryStore(), hashingOptions(8)).Train(context.Background(), nil)
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestTrain_MappingAndProgress(t *testing.T) {
	s := seedStore(t, "a, b", "b, c", "c, d", "d, e", "e, f")
	s.Delete(2)

	var last, total int64
	b, res, err := NewTrainUseCase(s, hashingOptions(32)).Train(context.Background(), func(p, n int64, _ string) {
		last, total = p, n
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Mapping) != len(b.Index.Rows) {
		t.Errorf("expected mapping length %d, got %d", len(b.Index.Rows), len(b.Mapping))
	}
	expected := []int64{1, 3, 4, 5}
	for i, id := range expected {
		if b.Mapping[i] != id {
			t.Errorf("expected mapping %v, got %v", expected, b.Mapping)
			break
		}
	}
	if last != 4 || total != 4 {
		t.Errorf("expected final progress 4/4, got %d/%d", last, total)
	}
	if res.Recipes != 4 || res.Dimension != 32 {
		t.Errorf("unexpected result %+v", res)
	}
	for i, row := range b.Index.Rows {
		if row.Dim != 32 {
			t.Errorf("row %d: expected dimension 32, got %d", i, row.Dim)
		}
	}
}

func TestTrain_TFIDFSample(t *testing.T) {
	s := seedStore(t, "chicken, rice", "beef, potato", "chicken, rice, onion", "salt, pepper")
	opts := hashingOptions(0)
	opts.Encoder = encoder.Options{Strategy: encoder.KindTFIDF, MaxFeatures: 100, StopWords: true}
	opts.SampleSize = 3

	b1, r1, err := NewTrainUseCase(s, opts).Train(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	b2, _, err := NewTrainUseCase(s, opts).Train(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if r1.Sampled != 3 {
		t.Errorf("expected sample of 3, got %d", r1.Sampled)
	}
	if strings.Join(b1.Encoder.Vocabulary, "|") != strings.Join(b2.Encoder.Vocabulary, "|") {
		t.Errorf("expected identical vocabularies for a fixed seed, got %v and %v", b1.Encoder.Vocabulary, b2.Encoder.Vocabulary)
	}
}

func corpusOf(n int) []string {
	base := []string{"chicken", "rice", "beef", "potato", "onion", "garlic", "salt", "pepper", "butter", "egg"}
	out := make([]string, n)
	for i := range out {
		out[i] = base[i%len(base)] + ", " + base[(i*3+1)%len(base)] + ", " + base[(i*7+2)%len(base)]
	}
	return out
}

func TestEvaluate_BoundsAndReproducibility(t *testing.T) {
	s := seedStore(t, corpusOf(40)...)
	m := trainModel(t, s, hashingOptions(64))
	p := EvalParams{K: 3, TestFraction: 0.25, SampleSize: 5, Seed: 7}

	r1, err := NewEvaluateUseCase(s, m).Evaluate(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	r2, err := NewEvaluateUseCase(s, m).Evaluate(context.Background(), p, nil)
	if err != nil {
		t.Fatal(err)
	}

	for name, v := range r1.Map() {
		if v < 0 || v > 1 || math.IsNaN(v) {
			t.Errorf("%s out of bounds: %v", name, v)
		}
		if r2.Map()[name] != v {
			t.Errorf("%s not reproducible: %v vs %v", name, v, r2.Map()[name])
		}
	}
	if r1.Sampled != 5 || r1.TestSize != 10 || r1.TrainSize != 30 || r1.Universe != 40 {
		t.Errorf("unexpected accounting %+v", r1)
	}
	if r1.BundleID != m.ID {
		t.Errorf("expected bundle id %s, got %s", m.ID, r1.BundleID)
	}
}

func TestEvaluate_SelfRetrievalOnDistinctCorpus(t *testing.T) {
	s := seedStore(t, "chicken, rice", "beef, potato", "salt, pepper", "butter, egg")
	m := trainModel(t, s, hashingOptions(1024))

	r, err := NewEvaluateUseCase(s, m).Evaluate(context.Background(), EvalParams{K: 1, TestFraction: 0.5, SampleSize: 10, Seed: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Recall != 1 || r.MRR != 1 || r.Precision != 1 {
		t.Errorf("expected perfect self retrieval, got %+v", r)
	}
}

func TestEvaluate_MissingRecordsCountAsMisses(t *testing.T) {
	s := seedStore(t, "chicken, rice", "beef, potato", "salt, pepper", "butter, egg")
	m := trainModel(t, s, hashingOptions(1024))

	r, err := NewEvaluateUseCase(&failingStore{MemoryStore: s, err: domain.ErrRecordNotFound}, m).
		Evaluate(context.Background(), EvalParams{K: 1, TestFraction: 0.5, SampleSize: 10, Seed: 3}, nil)
	if err != nil {
		t.Fatalf("missing records should not abort evaluation: %v", err)
	}
	if r.Sampled != 2 || r.Missing != 2 {
		t.Errorf("expected 2 sampled and 2 missing, got %d and %d", r.Sampled, r.Missing)
	}
	for name, v := range r.Map() {
		if v != 0 {
			t.Errorf("expected %s to be 0, got %v", name, v)
		}
	}
}

func TestEvaluate_StorageErrorAborts(t *testing.T) {
	s := seedStore(t, "chicken, rice", "beef, potato", "salt, pepper", "butter, egg")
	m := trainModel(t, s, hashingOptions(1024))

	broken := &failingStore{MemoryStore: s, err: domain.StorageError("get", errors.New("disk gone"))}
	_, err := NewEvaluateUseCase(broken, m).Evaluate(context.Background(), EvalParams{K: 1, TestFraction: 0.5, SampleSize: 10, Seed: 3}, nil)
	var sae *domain.StorageAccessError
	if !errors.As(err, &sae) {
		t.Errorf("expected StorageAccessError, got %v", err)
	}
}

// failingStore fails every Get with err.
type failingStore struct {
	*memstore.MemoryStore
	err error
}

func (f *failingStore) Get(int64) (domain.Recipe, error) {
	return domain.Recipe{}, f.err
}

func TestEvaluate_InvalidParams(t *testing.T) {
	s := seedStore(t, "chicken, rice", "beef, potato", "salt, pepper")
	m := trainModel(t, s, hashingOptions(8))
	uc := NewEvaluateUseCase(s, m)

	tests := []struct {
		name string
		p    EvalParams
		want error
	}{
		{"zero k", EvalParams{K: 0, TestFraction: 0.5}, domain.ErrInvalidArgument},
		{"k above rows", EvalParams{K: 5, TestFraction: 0.5}, domain.ErrInsufficientData},
		{"fraction one", EvalParams{K: 1, TestFraction: 1}, domain.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := uc.Evaluate(context.Background(), tt.p, nil); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestEvaluate_SplitIsReproducible(t *testing.T) {
	ids := []int64{1, 2, 3, 4}
	var first []int64
	for run := 0; run < 2; run++ {
		train, test, err := metrics.TrainTestSplit(rand.New(rand.NewSource(11)), ids, 0.5)
		if err != nil {
			t.Fatal(err)
		}
		if len(train) != 2 || len(test) != 2 {
			t.Fatalf("expected 2/2 split, got %d/%d", len(train), len(test))
		}
		joined := append(append([]int64{}, train...), test...)
		if run == 0 {
			first = joined
			continue
		}
		for i := range first {
			if first[i] != joined[i] {
				t.Errorf("expected identical partitions, got %v and %v", first, joined)
				break
			}
		}
	}
}

func TestRecommend_ExactMatch(t *testing.T) {
	s := seedStore(t, "chicken, rice", "beef, potato", "chicken, rice, onion")
	m := trainModel(t, s, hashingOptions(8))

	recs, err := NewRecommendUseCase(s, m).Recommend("Chicken, Rice", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	if !recs[0].ExactMatch || recs[0].Recipe.ID != 1 || recs[0].Rank != 1 {
		t.Errorf("expected exact match on recipe 1 first, got %+v", recs[0])
	}
	if recs[1].ExactMatch {
		t.Errorf("expected second result not to be exact, got %+v", recs[1])
	}
}

func TestIngest(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("stir ", 20)
	content := "title,ingredients,directions,source\n" +
		"A,\"Chicken, Rice, Garlic\"," + long + ",web\n" +
		"B,\"salt, pepper\"," + long + ",web\n" +
		"C,\"beef, potato, onion\"," + long + ",web\n"
	if err := os.WriteFile(filepath.Join(dir, "one.csv"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "two.csv"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s := memstore.NewMemoryStore()
	opts := corpus.Options{
		Filter:    corpus.Filter{MinIngredients: 3, MaxIngredients: 20, MinDirectionWords: 20},
		ChunkSize: 1,
		Encoding:  corpus.EncodingAuto,
	}

	var lastProgress int64
	res, err := NewIngestUseCase(s, fs.NewWalker([]string{"*.csv"}, nil), opts, 3).
		Ingest(context.Background(), []string{dir}, func(p, _ int64, _ string) { lastProgress = p })
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if res.Inserted != 3 || !res.Truncated {
		t.Errorf("expected 3 inserted with truncation, got %+v", res)
	}
	if res.SkipReasons[corpus.ReasonIngredientCount] != 1 {
		t.Errorf("expected one ingredient count rejection, got %v", res.SkipReasons)
	}
	if lastProgress == 0 {
		t.Error("expected progress to be reported")
	}

	r, err := s.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if r.Ingredients != "chicken, rice, garlic" || r.Title != "A" {
		t.Errorf("unexpected stored recipe %+v", r)
	}
}

func TestIngest_NoFiles(t *testing.T) {
	uc := NewIngestUseCase(memstore.NewMemoryStore(), fs.NewWalker(nil, nil), corpus.Options{}, 0)
	if _, err := uc.Ingest(context.Background(), []string{t.TempDir()}, nil); !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

type fakeLegacy struct {
	rows []domain.Recipe
}

func (f *fakeLegacy) CountRecords(context.Context) (int64, error) {
	return int64(len(f.rows)), nil
}

func (f *fakeLegacy) ReadBatch(_ context.Context, since int64, limit int) ([]domain.Recipe, error) {
	var out []domain.Recipe
	for _, r := range f.rows {
		if r.ID > since && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestImport(t *testing.T) {
	src := &fakeLegacy{rows: []domain.Recipe{
		{ID: 10, Title: "a", Ingredients: "x, y, z"},
		{ID: 20, Title: "b"},
		{ID: 35, Title: "c", Ingredients: "u, v, w"},
	}}
	s := memstore.NewMemoryStore()

	res, err := NewImportUseCase(src, s, 2).Import(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Read != 3 || res.Inserted != 2 || res.Skipped != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	r, err := s.Get(2)
	if err != nil {
		t.Fatal(err)
	}
	if r.Title != "c" {
		t.Errorf("expected reassigned id 2 to hold recipe c, got %+v", r)
	}
}
