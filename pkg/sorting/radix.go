package sorting

import (
	"math/bits"

	"go.uber.org/zap"

	"github.com/ajitpratap0/datatable/pkg/column"
	"github.com/ajitpratap0/datatable/pkg/parallel"
	"github.com/ajitpratap0/datatable/pkg/pool"
)

// keyType is the element type of the remaining-bits array.
type keyType interface {
	uint8 | uint16 | uint32 | uint64
}

// histograms recycles the bucket counters of serial passes.
var histograms = pool.New(
	func() *[]int { h := make([]int, 1<<16); return &h },
	nil,
)

// pass describes one radix pass over n elements.
type pass struct {
	plan     parallel.Plan
	nbuckets int
	// offsets[c*nbuckets+b] is the next output position of bucket b for
	// chunk c; after scattering it ends at the start of the next cell.
	offsets []int
	// bounds[b] is the first output position of bucket b, bounds[nbuckets]
	// is n.
	bounds []int
}

// cumulate turns per-chunk bucket counts into output offsets, bucket-major
// then chunk, so that each bucket keeps its rows in input order.
func (p *pass) cumulate() {
	p.bounds = make([]int, p.nbuckets+1)
	cum := 0
	for b := 0; b < p.nbuckets; b++ {
		p.bounds[b] = cum
		for c := 0; c < p.plan.NChunks; c++ {
			cell := c*p.nbuckets + b
			cnt := p.offsets[cell]
			p.offsets[cell] = cum
			cum += cnt
		}
	}
	p.bounds[p.nbuckets] = cum
}

// keyBounds is the key range of the non-NA values of one chunk.
type keyBounds struct {
	lo, hi uint64
	ok     bool
}

// radixSortValues is the first pass over the column values. NA values go
// into bucket 0, every other value v into 1 + ((key(v)-min) >> shift), and
// the low shift bits of key(v)-min are kept in a remaining-bits array for
// the following passes.
func radixSortValues[S column.Scalar](s *Sorter, vals []S) []int32 {
	isNA, key := keyFuncs[S]()
	n := len(vals)
	plan := s.team.Chunks(n, s.opts.MinChunkRows)

	partial := make([]keyBounds, plan.NChunks)
	s.team.For(plan.NChunks, func(c int) {
		start, end := plan.Bounds(c)
		var b keyBounds
		for _, v := range vals[start:end] {
			if isNA(v) {
				continue
			}
			k := key(v)
			if !b.ok {
				b = keyBounds{lo: k, hi: k, ok: true}
				continue
			}
			b.lo = min(b.lo, k)
			b.hi = max(b.hi, k)
		}
		partial[c] = b
	})
	var total keyBounds
	for _, b := range partial {
		switch {
		case !b.ok:
		case !total.ok:
			total = b
		default:
			total.lo = min(total.lo, b.lo)
			total.hi = max(total.hi, b.hi)
		}
	}

	ord := make([]int32, n)
	if !total.ok {
		for i := range ord {
			ord[i] = int32(i)
		}
		return ord
	}

	nsig := bits.Len64(total.hi - total.lo)
	rbits := min(nsig, s.opts.MaxRadixBits)
	shift := nsig - rbits
	minKey := total.lo
	p := &pass{plan: plan, nbuckets: 1<<rbits + 1}

	s.logger.Debug("radix plan",
		zap.Int("nrows", n),
		zap.Int("chunks", plan.NChunks),
		zap.Int("significant_bits", nsig),
		zap.Int("radix_bits", rbits),
		zap.Int("shift", shift))

	bucket := func(v S) int {
		if isNA(v) {
			return 0
		}
		return 1 + int((key(v)-minKey)>>shift)
	}
	p.offsets = make([]int, plan.NChunks*p.nbuckets)
	s.team.For(plan.NChunks, func(c int) {
		start, end := plan.Bounds(c)
		counts := p.offsets[c*p.nbuckets : (c+1)*p.nbuckets]
		for _, v := range vals[start:end] {
			counts[bucket(v)]++
		}
	})
	p.cumulate()

	switch {
	case shift == 0:
		scatterValues[S, uint8](s, vals, ord, nil, p, bucket, nil)
	case shift <= 8:
		finishValues[S, uint8](s, vals, ord, p, bucket, key, isNA, minKey, shift)
	case shift <= 16:
		finishValues[S, uint16](s, vals, ord, p, bucket, key, isNA, minKey, shift)
	case shift <= 32:
		finishValues[S, uint32](s, vals, ord, p, bucket, key, isNA, minKey, shift)
	default:
		finishValues[S, uint64](s, vals, ord, p, bucket, key, isNA, minKey, shift)
	}
	return ord
}

func finishValues[S column.Scalar, T keyType](s *Sorter, vals []S, ord []int32, p *pass,
	bucket func(S) int, key func(S) uint64, isNA func(S) bool, minKey uint64, shift int) {
	mask := uint64(1)<<shift - 1
	rem := make([]T, len(vals))
	scatterValues(s, vals, ord, rem, p, bucket, func(v S) T {
		if isNA(v) {
			return 0
		}
		return T((key(v) - minKey) & mask)
	})
	tmpKeys := make([]T, len(vals))
	tmpOrd := make([]int32, len(vals))
	// Bucket 0 holds the NAs, already in input order.
	sub := &buckets[T]{keys: rem, ord: ord, tmpKeys: tmpKeys, tmpOrd: tmpOrd}
	sub.resolve(s, p.bounds[1:], shift, true)
}

// scatterValues writes every row index into its bucket's next slot, and
// when rem is set, the row's remaining bits alongside.
func scatterValues[S column.Scalar, T keyType](s *Sorter, vals []S, ord []int32, rem []T, p *pass,
	bucket func(S) int, low func(S) T) {
	s.team.For(p.plan.NChunks, func(c int) {
		start, end := p.plan.Bounds(c)
		next := p.offsets[c*p.nbuckets : (c+1)*p.nbuckets]
		for i := start; i < end; i++ {
			v := vals[i]
			b := bucket(v)
			pos := next[b]
			next[b]++
			ord[pos] = int32(i)
			if rem != nil {
				rem[pos] = low(v)
			}
		}
	})
}

// buckets is a bucketed region of the remaining-bits array with its
// ordering and scratch space. Sub-slices of disjoint ranges are sorted
// concurrently.
type buckets[T keyType] struct {
	keys    []T
	ord     []int32
	tmpKeys []T
	tmpOrd  []int32
}

func (r *buckets[T]) slice(lo, hi int) *buckets[T] {
	return &buckets[T]{
		keys:    r.keys[lo:hi],
		ord:     r.ord[lo:hi],
		tmpKeys: r.tmpKeys[lo:hi],
		tmpOrd:  r.tmpOrd[lo:hi],
	}
}

// resolve sorts every bucket delimited by bounds on its nbits remaining
// bits. bounds holds absolute positions into r; the last entry is the end
// of the final bucket. Buckets larger than 2n/nbuckets are sorted first,
// one at a time, each with a parallel pass; the rest are then spread over
// the team.
func (r *buckets[T]) resolve(s *Sorter, bounds []int, nbits int, inParallel bool) {
	nb := len(bounds) - 1
	if nb <= 0 {
		return
	}
	n := bounds[nb] - bounds[0]
	large := 2 * n / nb

	var small []int
	for b := 0; b < nb; b++ {
		size := bounds[b+1] - bounds[b]
		switch {
		case size <= 1:
		case inParallel && size > large && size > s.opts.MinChunkRows:
			r.slice(bounds[b], bounds[b+1]).sort(s, nbits, true)
		default:
			small = append(small, b)
		}
	}
	if !inParallel {
		for _, b := range small {
			r.slice(bounds[b], bounds[b+1]).sort(s, nbits, false)
		}
		return
	}
	s.team.For(len(small), func(k int) {
		b := small[k]
		r.slice(bounds[b], bounds[b+1]).sort(s, nbits, false)
	})
}

// sort orders r stably by its keys, which have nbits significant bits.
// Small regions are insertion sorted; otherwise one counting pass over the
// top bits is made and the resulting buckets are resolved recursively.
func (r *buckets[T]) sort(s *Sorter, nbits int, inParallel bool) {
	n := len(r.keys)
	if n <= s.opts.InsertThreshold || nbits == 0 {
		insertionSortKeys(r.keys, r.ord)
		return
	}

	rbits := min(nbits, s.opts.MaxRadixBits)
	if !inParallel {
		// No more buckets than about twice the rows.
		rbits = min(rbits, bits.Len(uint(n)))
	}
	shift := nbits - rbits
	mask := T(1)<<shift - 1
	p := &pass{nbuckets: 1 << rbits}
	if inParallel {
		p.plan = s.team.Chunks(n, s.opts.MinChunkRows)
		p.offsets = make([]int, p.plan.NChunks*p.nbuckets)
	} else {
		p.plan = parallel.Plan{NChunks: 1, ChunkLen: n, N: n}
		h := histograms.Get()
		defer histograms.Put(h)
		p.offsets = (*h)[:p.nbuckets]
		clear(p.offsets)
	}

	run := func(fn func(c int)) {
		if inParallel {
			s.team.For(p.plan.NChunks, fn)
		} else {
			fn(0)
		}
	}
	run(func(c int) {
		start, end := p.plan.Bounds(c)
		counts := p.offsets[c*p.nbuckets : (c+1)*p.nbuckets]
		for _, k := range r.keys[start:end] {
			counts[k>>shift]++
		}
	})
	p.cumulate()
	run(func(c int) {
		start, end := p.plan.Bounds(c)
		next := p.offsets[c*p.nbuckets : (c+1)*p.nbuckets]
		for i := start; i < end; i++ {
			k := r.keys[i]
			b := k >> shift
			pos := next[b]
			next[b]++
			r.tmpKeys[pos] = k & mask
			r.tmpOrd[pos] = r.ord[i]
		}
	})
	copy(r.keys, r.tmpKeys)
	copy(r.ord, r.tmpOrd)

	if shift > 0 {
		r.resolve(s, p.bounds, shift, inParallel)
	}
}
