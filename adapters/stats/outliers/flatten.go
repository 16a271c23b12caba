package outliers

import (
	"sort"
)

// sampleIndexFromFlatIndex maps a position in the flattened value array back
// to the owning sample. cumsum holds the cumulative count of values per
// sample, so the first index whose cumulative sum is greater than the flat
// index is the sample index. For example with cumsum [1, 6, 11, 13] and flat
// index 6, the value belongs to the third sample, index 2.
func sampleIndexFromFlatIndex(cumsum []int, flat int) int {
	return sort.Search(len(cumsum), func(i int) bool {
		return cumsum[i] > flat
	})
}
