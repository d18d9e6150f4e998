package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialIDs_Sequence(t *testing.T) {
	gen := NewSequentialIDs("test")

	assert.Equal(t, "test-1", gen.Generate())
	assert.Equal(t, "test-2", gen.Generate())
	assert.Equal(t, "test-3", gen.Generate())
}

func TestSequentialIDs_EmptyPrefixDefault(t *testing.T) {
	gen := NewSequentialIDs("")

	assert.Equal(t, "ev-1", gen.Generate())
}

func TestSequentialIDs_Reset(t *testing.T) {
	gen := NewSequentialIDs("ev")
	gen.Generate()
	gen.Generate()

	gen.Reset()
	assert.Equal(t, "ev-1", gen.Generate())
}

func TestSequentialIDs_Deterministic(t *testing.T) {
	gen1 := NewSequentialIDs("ev")
	gen2 := NewSequentialIDs("ev")

	for i := 0; i < 100; i++ {
		assert.Equal(t, gen1.Generate(), gen2.Generate())
	}
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	gen := NewSequentialIDs("ev")
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, numGoroutines*callsPerGoroutine)
	assert.True(t, seen["ev-1"])
	assert.True(t, seen["ev-5000"])
}
