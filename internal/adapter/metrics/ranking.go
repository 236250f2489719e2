package metrics

// PrecisionAtK is the number of relevant ids among retrieved divided by k.
func PrecisionAtK(retrieved, relevant []int64, k int) float64 {
	if k <= 0 {
		return 0
	}
	return float64(hits(retrieved, relevant)) / float64(k)
}

// RecallAtK is the fraction of relevant ids found among retrieved.
func RecallAtK(retrieved, relevant []int64) float64 {
	if len(relevant) == 0 {
		return 0
	}
	return float64(hits(retrieved, relevant)) / float64(len(relevant))
}

// ReciprocalRank is 1/rank of the first retrieved relevant id, or 0.
func ReciprocalRank(retrieved []int64, relevant int64) float64 {
	for i, r := range retrieved {
		if r == relevant {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// UniqueCount is the number of distinct ids in one result list.
func UniqueCount(retrieved []int64) int {
	seen := make(map[int64]struct{}, len(retrieved))
	for _, r := range retrieved {
		seen[r] = struct{}{}
	}
	return len(seen)
}

func hits(retrieved, relevant []int64) int {
	relevantSet := make(map[int64]struct{}, len(relevant))
	for _, r := range relevant {
		relevantSet[r] = struct{}{}
	}
	seen := make(map[int64]struct{}, len(retrieved))
	n := 0
	for _, r := range retrieved {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		if _, ok := relevantSet[r]; ok {
			n++
		}
	}
	return n
}

// Accumulator sums per-query self-retrieval metrics, where the only
// relevant id of a query is its own.
type Accumulator struct {
	k         int
	queries   int
	precision float64
	recall    float64
	rr        float64
	slots     int
}

func NewAccumulator(k int) *Accumulator {
	return &Accumulator{k: k}
}

// Observe records the results of one query for recipe id.
func (a *Accumulator) Observe(retrieved []int64, id int64) {
	relevant := []int64{id}
	a.queries++
	a.precision += PrecisionAtK(retrieved, relevant, a.k)
	a.recall += RecallAtK(retrieved, relevant)
	a.rr += ReciprocalRank(retrieved, id)
	a.slots += UniqueCount(retrieved)
}

// ObserveMiss records a query that contributes zero to every metric.
func (a *Accumulator) ObserveMiss() {
	a.queries++
}

func (a *Accumulator) Queries() int {
	return a.queries
}

func (a *Accumulator) Precision() float64 {
	return a.mean(a.precision)
}

func (a *Accumulator) Recall() float64 {
	return a.mean(a.recall)
}

func (a *Accumulator) MRR() float64 {
	return a.mean(a.rr)
}

// Coverage divides the summed per-query unique result counts by the size
// of the whole id universe. Ids returned by several queries are counted
// once per query, so the value exceeds 1 once queries*k outgrows the
// universe. The arithmetic is kept as is so reported numbers stay
// comparable with earlier runs.
func (a *Accumulator) Coverage(universe int) float64 {
	if universe <= 0 {
		return 0
	}
	return float64(a.slots) / float64(universe)
}

func (a *Accumulator) mean(sum float64) float64 {
	if a.queries == 0 {
		return 0
	}
	return sum / float64(a.queries)
}
