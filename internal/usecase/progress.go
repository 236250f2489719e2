package usecase

// ProgressFunc reports how far a long-running step has come. total is
// the expected amount of work in the same unit as processed.
type ProgressFunc func(processed, total int64, stage string)

func report(fn ProgressFunc, processed, total int64, stage string) {
	if fn != nil {
		fn(processed, total, stage)
	}
}
