package registry

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterTwice(t *testing.T) {
	r := New[string, int]()
	require.NoError(t, r.Register("a", 1))

	err := r.Register("a", 2)
	assert.ErrorIs(t, err, ErrKeyAlreadyRegistered)

	v, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestRegistry_ConcurrentClaimsOneWinner(t *testing.T) {
	r := New[string, int]()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if r.Register("schedule_x", i) == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, r.Length())
}

func TestRegistry_UnregisterIf(t *testing.T) {
	r := New[string, int]()
	require.NoError(t, r.Register("k", 7))

	assert.False(t, r.UnregisterIf("k", func(v int) bool { return v == 8 }))
	assert.True(t, r.Exists("k"))
	assert.True(t, r.UnregisterIf("k", func(v int) bool { return v == 7 }))
	assert.False(t, r.Exists("k"))
}

func TestRegistry_RangeAndKeys(t *testing.T) {
	r := New[string, int]()
	for i, k := range []string{"c", "a", "b"} {
		require.NoError(t, r.Register(k, i))
	}
	assert.Equal(t, []string{"a", "b", "c"}, Keys(r))

	seen := 0
	err := r.Range(func(k string, v int) error {
		seen++
		return ErrStopIteration
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, seen)

	boom := errors.New("boom")
	assert.ErrorIs(t, r.Range(func(k string, v int) error { return boom }), boom)
}
