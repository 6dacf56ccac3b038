// Package pool provides bucketed sync.Pool instances for the float32 sample
// buffers behind image planes. Buffers are organized by size class (in
// samples, not bytes) so that frames of similar resolution share storage.
package pool

import "sync"

// Size classes for bucketed pools, in float32 samples.
const (
	Size4K   = 4096    // 64x64 plane
	Size64K  = 65536   // 256x256 plane
	Size256K = 262144  // 512x512 plane
	Size1M   = 1048576 // ~1080p chroma at 2x subsampling
	Size4M   = 4194304 // ~1440p luma
	Size16M  = 16777216
)

// bucketIndex returns the pool index for a given sample count.
func bucketIndex(n int) int {
	switch {
	case n <= Size4K:
		return 0
	case n <= Size64K:
		return 1
	case n <= Size256K:
		return 2
	case n <= Size1M:
		return 3
	case n <= Size4M:
		return 4
	default:
		return 5
	}
}

var sizes = [6]int{Size4K, Size64K, Size256K, Size1M, Size4M, Size16M}

var pools [6]sync.Pool

// Get returns a zeroed float32 slice of exactly n samples. The backing array
// may be larger. The caller must call Put when done.
func Get(n int) []float32 {
	idx := bucketIndex(n)
	if v := pools[idx].Get(); v != nil {
		bp := v.(*[]float32)
		if b := *bp; cap(b) >= n {
			b = b[:n]
			clear(b)
			return b
		}
	}
	c := sizes[idx]
	if c < n {
		c = n
	}
	return make([]float32, n, c)
}

// Put returns a slice to the pool. The slice should have been obtained from
// Get. Slices below the smallest size class are dropped.
func Put(b []float32) {
	c := cap(b)
	if c < Size4K {
		return
	}
	idx := bucketIndex(c)
	// A buffer only serves its bucket if it can hold the bucket's largest
	// request; otherwise file it one class down.
	if c < sizes[idx] && idx > 0 {
		idx--
	}
	b = b[:c]
	pools[idx].Put(&b)
}
