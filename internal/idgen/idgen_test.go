package idgen

import (
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULIDNextUnique(t *testing.T) {
	gen := NewULID()

	const workers, perWorker = 8, 500
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := gen.Next()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestULIDNextParses(t *testing.T) {
	id := NewULID().Next()
	_, err := ulid.Parse(id)
	require.NoError(t, err)
}

func TestULIDNextMonotonic(t *testing.T) {
	gen := NewULID()
	prev := gen.Next()
	for i := 0; i < 1000; i++ {
		next := gen.Next()
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestFunc(t *testing.T) {
	n := 0
	gen := Func(func() string {
		n++
		return string(rune('a' + n - 1))
	})
	assert.Equal(t, "a", gen.Next())
	assert.Equal(t, "b", gen.Next())
}
