package sorting

import (
	"github.com/ajitpratap0/datatable/pkg/column"
)

// insertionSortValues sorts (value, index) pairs directly.
func insertionSortValues[S column.Scalar](vals []S) []int32 {
	isNA, key := keyFuncs[S]()
	n := len(vals)
	ord := make([]int32, n)
	keys := make([]uint64, n)
	nas := make([]bool, n)
	for i, v := range vals {
		ord[i] = int32(i)
		if nas[i] = isNA(v); !nas[i] {
			keys[i] = key(v)
		}
	}
	less := func(na1 bool, k1 uint64, na2 bool, k2 uint64) bool {
		if na1 || na2 {
			return na1 && !na2
		}
		return k1 < k2
	}
	for i := 1; i < n; i++ {
		k, na, o := keys[i], nas[i], ord[i]
		j := i
		for ; j > 0 && less(na, k, nas[j-1], keys[j-1]); j-- {
			keys[j], nas[j], ord[j] = keys[j-1], nas[j-1], ord[j-1]
		}
		keys[j], nas[j], ord[j] = k, na, o
	}
	return ord
}

// insertionSortKeys stably sorts ord by keys, both reordered in place.
func insertionSortKeys[T keyType](keys []T, ord []int32) {
	for i := 1; i < len(keys); i++ {
		k, o := keys[i], ord[i]
		j := i
		for ; j > 0 && keys[j-1] > k; j-- {
			keys[j], ord[j] = keys[j-1], ord[j-1]
		}
		keys[j], ord[j] = k, o
	}
}
