package geometry

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/fxlayout/fxlayout/internal/scene"
)

// DefaultParallelThreshold is the batch size above which TransformPoints fans out.
const DefaultParallelThreshold = 100

// PointFunc maps one position to another.
type PointFunc func(scene.Vec3) scene.Vec3

// TransformPoints applies fn to every point. Batches larger than threshold are split
// across a bounded pool of goroutines; the result is the same either way.
// A threshold <= 0 selects DefaultParallelThreshold.
func TransformPoints(ctx context.Context, pts []scene.Vec3, fn PointFunc, threshold int) ([]scene.Vec3, error) {
	if threshold <= 0 {
		threshold = DefaultParallelThreshold
	}
	out := make([]scene.Vec3, len(pts))

	if len(pts) <= threshold {
		for i, p := range pts {
			out[i] = fn(p)
		}
		return out, nil
	}

	workers := runtime.GOMAXPROCS(0)
	span := (len(pts) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(pts); lo += span {
		hi := min(lo+span, len(pts))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				out[i] = fn(pts[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
