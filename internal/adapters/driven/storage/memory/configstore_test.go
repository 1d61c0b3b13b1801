package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigStore_Getters(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"name":     "tripwise",
		"top_k":    int64(7),
		"ratio":    0.5,
		"whole":    3,
		"delay":    "1500ms",
		"timeout":  int64(90),
		"interval": 5 * time.Second,
	})

	assert.Equal(t, "tripwise", store.GetString("name"))
	assert.Equal(t, 7, store.GetInt("top_k"))
	assert.Equal(t, 0, store.GetInt("ratio"))
	assert.Equal(t, 0.5, store.GetFloat("ratio"))
	assert.Equal(t, float64(3), store.GetFloat("whole"))
	assert.Equal(t, 1500*time.Millisecond, store.GetDuration("delay"))
	assert.Equal(t, 90*time.Second, store.GetDuration("timeout"))
	assert.Equal(t, 5*time.Second, store.GetDuration("interval"))
}

func TestConfigStore_Missing(t *testing.T) {
	store := NewConfigStore(nil)

	_, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Empty(t, store.GetString("missing"))
	assert.Zero(t, store.GetInt("missing"))
	assert.Zero(t, store.GetFloat("missing"))
	assert.Zero(t, store.GetDuration("missing"))
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_SeedIsCopied(t *testing.T) {
	seed := map[string]any{"a": "1"}
	store := NewConfigStore(seed)
	seed["a"] = "2"

	assert.Equal(t, "1", store.GetString("a"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			store.Set("k", i)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("k")
		}()
	}
	wg.Wait()

	_, ok := store.Get("k")
	assert.True(t, ok)
}
