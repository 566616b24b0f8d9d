// Package parallel runs bounded fork-join regions over a fixed-size worker
// team. Work is split into chunks that workers claim in increasing index
// order; every region returns only after all chunks have finished.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Team is a fixed-size group of workers. The zero value uses runtime.NumCPU.
type Team struct {
	Workers int
}

// New creates a team with the given number of workers (<= 0 means NumCPU).
func New(workers int) *Team {
	return &Team{Workers: workers}
}

// Size returns the effective number of workers.
func (t *Team) Size() int {
	if t == nil || t.Workers <= 0 {
		return runtime.NumCPU()
	}
	return t.Workers
}

func (t *Team) width(n int) int {
	w := t.Size()
	if w > n {
		w = n
	}
	return w
}

// For calls fn(i) for every i in [0, n) and waits for all calls to finish.
func (t *Team) For(n int, fn func(i int)) {
	_ = t.ForErr(n, func(i int) error {
		fn(i)
		return nil
	})
}

// ForErr is For with error propagation. After the first error no new chunk
// is started, and that error is returned.
func (t *Team) ForErr(n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	w := t.width(n)
	if w == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		next   atomic.Int64
		failed atomic.Bool
		g      errgroup.Group
	)
	for k := 0; k < w; k++ {
		g.Go(func() error {
			for !failed.Load() {
				i := int(next.Add(1) - 1)
				if i >= n {
					return nil
				}
				if err := fn(i); err != nil {
					failed.Store(true)
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// Ordered runs work(i) for every chunk in parallel, then commit(i) for the
// same chunk once every lower-numbered chunk has committed. Commits are
// serialized and always happen in chunk-index order, so their combined
// effect does not depend on scheduling.
func (t *Team) Ordered(n int, work func(i int), commit func(i int)) {
	if n <= 0 {
		return
	}
	var (
		mu   sync.Mutex
		cond = sync.NewCond(&mu)
		turn int
	)
	t.For(n, func(i int) {
		work(i)
		mu.Lock()
		for turn != i {
			cond.Wait()
		}
		commit(i)
		turn++
		cond.Broadcast()
		mu.Unlock()
	})
}

// Plan describes how n rows are split into chunks.
type Plan struct {
	NChunks  int
	ChunkLen int
	N        int
}

// Chunks splits n rows into about 2×Size() chunks of at least minChunk rows.
func (t *Team) Chunks(n, minChunk int) Plan {
	if minChunk < 1 {
		minChunk = 1
	}
	if n <= 0 {
		return Plan{NChunks: 0, ChunkLen: minChunk, N: 0}
	}
	nchunks := 2 * t.Size()
	if limit := (n + minChunk - 1) / minChunk; nchunks > limit {
		nchunks = limit
	}
	if nchunks < 1 {
		nchunks = 1
	}
	chunkLen := (n + nchunks - 1) / nchunks
	nchunks = (n + chunkLen - 1) / chunkLen
	return Plan{NChunks: nchunks, ChunkLen: chunkLen, N: n}
}

// Bounds returns the [start, end) row range of chunk i.
func (p Plan) Bounds(i int) (start, end int) {
	start = i * p.ChunkLen
	end = start + p.ChunkLen
	if end > p.N {
		end = p.N
	}
	return start, end
}
