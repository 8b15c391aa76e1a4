package clockseq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStartsAtOneAndIncrementsMonotonically(t *testing.T) {
	c := New()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestNextIsUniqueUnderConcurrentUse(t *testing.T) {
	// Ordering across interleaved audit.Log.Record calls depends on this:
	// no two concurrent Next() callers may observe the same sequence
	// number, whatever wall-clock timestamps they end up sharing.
	c := New()
	const goroutines = 50
	const perGoroutine = 50

	var wg sync.WaitGroup
	seqs := make(chan int64, goroutines*perGoroutine)
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				seqs <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for seq := range seqs {
		require.False(t, seen[seq], "duplicate sequence number %d", seq)
		seen[seq] = true
	}
	assert.Len(t, seen, goroutines*perGoroutine)
}
