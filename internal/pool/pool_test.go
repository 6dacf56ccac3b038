package pool

import (
	"sync"
	"testing"
)

func TestGet_ExactSize(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"1", 1},
		{"64", 64},
		{"4K", Size4K},
		{"64K", Size64K},
		{"256K", Size256K},
		{"1M", Size1M},
		{"odd", 1920*1080 + 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Get(tt.n)
			if len(b) != tt.n {
				t.Errorf("Get(%d): len = %d, want %d", tt.n, len(b), tt.n)
			}
			Put(b)
		})
	}
}

func TestGet_Zeroed(t *testing.T) {
	b := Get(Size4K)
	for i := range b {
		b[i] = 1
	}
	Put(b)
	// Whether or not the pool hands back the same array, it must be clean.
	b = Get(Size4K)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("Get after Put: b[%d] = %v, want 0", i, v)
		}
	}
	Put(b)
}

func TestGet_MinCapacity(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		minCap int
	}{
		{"bucket0_small", 10, Size4K},
		{"bucket1_mid", Size4K + 1, Size64K},
		{"bucket2_exact", Size256K, Size256K},
		{"bucket3_mid", Size256K + 1, Size1M},
		{"bucket4_exact", Size4M, Size4M},
		{"bucket5_over", Size16M + 1, Size16M + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Get(tt.n)
			if cap(b) < tt.minCap {
				t.Errorf("Get(%d): cap = %d, want >= %d", tt.n, cap(b), tt.minCap)
			}
			Put(b)
		})
	}
}

func TestPut_SmallSlice(t *testing.T) {
	// Undersized slices are dropped, not pooled.
	Put(make([]float32, 100))
	Put(make([]float32, 0, 10))

	b := Get(Size4K)
	if len(b) != Size4K {
		t.Errorf("Get(%d) after small Put: len = %d", Size4K, len(b))
	}
	Put(b)
}

func TestPut_UndersizedForBucket(t *testing.T) {
	// cap 5000 falls in bucket 1 but cannot serve a 64K request.
	Put(make([]float32, 5000))
	b := Get(Size64K)
	if len(b) != Size64K {
		t.Errorf("Get(%d): len = %d", Size64K, len(b))
	}
	Put(b)
}

func TestConcurrency(t *testing.T) {
	const goroutines = 16
	const iterations = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				for _, n := range []int{64, 3000, 40000, 200000} {
					b := Get(n)
					if len(b) != n {
						t.Errorf("concurrent Get(%d): len = %d", n, len(b))
						return
					}
					for j := range b {
						b[j] = float32(j)
					}
					Put(b)
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkGetPut_1080pLuma(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Put(Get(1920 * 1080))
	}
}
