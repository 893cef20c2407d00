package editor

import "log/slog"

const (
	// MinElementCount is the smallest element count handed to the generator.
	MinElementCount = 2
	// MinScale is the per-axis floor for shape scales.
	MinScale = 0.1
)

// Options tunes the store. Zero fields take the DefaultOptions value.
type Options struct {
	// LargeSceneThreshold is the vertex count above which performance mode switches on.
	LargeSceneThreshold int
	// DeferSelectionThreshold is the vertex count above which shape selection
	// re-derivation is posted to the scheduler instead of run inline.
	DeferSelectionThreshold int
	// ChunkSize is the number of updates applied per chunk in batch updates.
	ChunkSize int
	// ChunkThreshold is the batch size above which updates are chunked.
	ChunkThreshold int
	// ParallelThreshold is the point count above which transform math fans out.
	ParallelThreshold int
	MaxElementCount   int
	HistoryLimit      int

	Logger *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		LargeSceneThreshold:     1000,
		DeferSelectionThreshold: 500,
		ChunkSize:               50,
		ChunkThreshold:          100,
		ParallelThreshold:       100,
		MaxElementCount:         20000,
		HistoryLimit:            200,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LargeSceneThreshold <= 0 {
		o.LargeSceneThreshold = d.LargeSceneThreshold
	}
	if o.DeferSelectionThreshold <= 0 {
		o.DeferSelectionThreshold = d.DeferSelectionThreshold
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = d.ChunkSize
	}
	if o.ChunkThreshold <= 0 {
		o.ChunkThreshold = d.ChunkThreshold
	}
	if o.ParallelThreshold <= 0 {
		o.ParallelThreshold = d.ParallelThreshold
	}
	if o.MaxElementCount < MinElementCount {
		o.MaxElementCount = d.MaxElementCount
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = d.HistoryLimit
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// clampCount bounds an element count to [MinElementCount, MaxElementCount].
func (o Options) clampCount(n int) int {
	return min(max(n, MinElementCount), o.MaxElementCount)
}
