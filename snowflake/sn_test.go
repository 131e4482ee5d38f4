package snowflake

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextProducesIncreasingValuesWithinBounds(t *testing.T) {
	gen := New(nil)
	prev := gen.Next(1)
	require.LessOrEqual(t, prev.Value(), uint64(MaxSerialNumber))

	for i := 0; i < 1000; i++ {
		next := gen.Next(1)
		require.GreaterOrEqual(t, next.Value(), prev.Value())
		require.LessOrEqual(t, next.Value(), uint64(MaxSerialNumber))
		prev = next
	}
}

// TestSerialNumberRaceS6 implements scenario S6: 10 goroutines x 100 calls,
// all 1000 values distinct and each <= 2^54-1.
func TestSerialNumberRaceS6(t *testing.T) {
	gen := New(nil)
	const goroutines = 10
	const perGoroutine = 100

	results := make(chan uint64, goroutines*perGoroutine)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				results <- gen.Next(1).Value()
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[uint64]bool, goroutines*perGoroutine)
	count := 0
	for v := range results {
		require.False(t, seen[v], "duplicate serial number %d", v)
		seen[v] = true
		require.LessOrEqual(t, v, uint64(MaxSerialNumber))
		count++
	}
	require.Equal(t, goroutines*perGoroutine, count)
}

func TestNewSerialNumberValidatesRange(t *testing.T) {
	sn, err := NewSerialNumber(MaxSerialNumber)
	require.NoError(t, err)
	require.Equal(t, MaxSerialNumber, sn.Value())

	_, err = NewSerialNumber(MaxSerialNumber + 1)
	require.Error(t, err)
}

func TestWorkerIDIsWithinFiveBits(t *testing.T) {
	gen := New(nil)
	require.LessOrEqual(t, gen.workerID, uint64(31))
}
