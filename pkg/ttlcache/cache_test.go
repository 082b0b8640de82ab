package ttlcache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_AddGet(t *testing.T) {
	c := New[string, int](time.Minute)
	defer c.Close()

	require.True(t, c.Add("a", 1))
	assert.False(t, c.Add("a", 2), "existing keys are not overwritten")

	item, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, item.Value)
	assert.False(t, item.LastAccessedAt.Before(item.CreatedAt))

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c := New[string, string](50 * time.Millisecond)
	defer c.Close()

	c.Add("k", "v")
	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_SlidingExpiry(t *testing.T) {
	ttl := 200 * time.Millisecond
	c := New[string, string](ttl)
	defer c.Close()

	c.Add("k", "v")

	// keep reading before the window closes; total age exceeds ttl
	for i := 0; i < 4; i++ {
		time.Sleep(ttl / 2)
		_, ok := c.Get("k")
		require.True(t, ok, "read %d", i)
	}

	// Get would restart the window, so wait on Len
	require.Eventually(t, func() bool { return c.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_TouchRefreshes(t *testing.T) {
	ttl := 200 * time.Millisecond
	c := New[string, int](ttl)
	defer c.Close()

	c.Add("k", 1)
	time.Sleep(ttl / 2)
	require.True(t, c.Touch("k"))
	time.Sleep(ttl / 2)
	require.True(t, c.Touch("k"))
	time.Sleep(ttl / 2)

	_, ok := c.Get("k")
	assert.True(t, ok)
	assert.False(t, c.Touch("missing"))
}

func TestCache_DeleteIsIdempotent(t *testing.T) {
	c := New[string, int](time.Minute)
	defer c.Close()

	c.Add("k", 1)
	assert.True(t, c.Delete("k"))
	assert.False(t, c.Delete("k"))
	assert.False(t, c.Delete("never"))

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_EntriesDoesNotRefresh(t *testing.T) {
	ttl := 100 * time.Millisecond
	c := New[string, int](ttl)
	defer c.Close()

	c.Add("k", 1)
	before := c.Entries()
	require.Len(t, before, 1)

	time.Sleep(ttl / 2)
	after := c.Entries()
	require.Len(t, after, 1)
	assert.Equal(t, before[0].Item.LastAccessedAt, after[0].Item.LastAccessedAt)

	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCache_OnEvict(t *testing.T) {
	var mu sync.Mutex
	reasons := map[string]EvictionReason{}

	c := New[string, int](50*time.Millisecond, WithOnEvict(func(key string, _ int, reason EvictionReason) {
		mu.Lock()
		reasons[key] = reason
		mu.Unlock()
	}))
	defer c.Close()

	c.Add("expired", 1)
	c.Add("deleted", 2)
	c.Delete("deleted")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reasons["expired"] == ReasonExpired
	}, time.Second, 5*time.Millisecond)

	// long enough not to expire before Close
	long := New[string, int](time.Hour, WithOnEvict(func(key string, _ int, reason EvictionReason) {
		mu.Lock()
		reasons[key] = reason
		mu.Unlock()
	}))
	long.Add("closed", 3)
	long.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, ReasonDeleted, reasons["deleted"])
	assert.Equal(t, ReasonClosed, reasons["closed"])
	assert.Equal(t, "expired", ReasonExpired.String())
}

func TestCache_Close(t *testing.T) {
	c := New[string, int](time.Hour)
	c.Add("a", 1)
	c.Add("b", 2)
	assert.False(t, c.Closed())

	c.Close()
	assert.True(t, c.Closed())
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Add("c", 3))
	c.Close()
}

func TestCache_StaleTimerDoesNotEvictRefreshedEntry(t *testing.T) {
	c := New[string, int](time.Hour)
	defer c.Close()

	c.Add("k", 1)

	c.mu.Lock()
	staleGen := c.items["k"].gen
	c.mu.Unlock()

	require.True(t, c.Touch("k"))

	// simulate the old timer firing after the refresh took the lock
	c.expire("k", staleGen)

	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestCache_ExpiredOnReadEvenIfTimerIsLate(t *testing.T) {
	ttl := time.Hour
	c := New[string, int](ttl)
	defer c.Close()

	c.Add("k", 1)

	// the timer is still armed, but the entry has been idle past the ttl
	c.mu.Lock()
	e := c.items["k"]
	e.item.LastAccessedAt = time.Now().Add(-2 * ttl)
	c.mu.Unlock()

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_SnapshotsSkipIdleEntries(t *testing.T) {
	ttl := time.Hour
	c := New[string, int](ttl)
	defer c.Close()

	c.Add("idle", 1)
	c.Add("fresh", 2)

	c.mu.Lock()
	c.items["idle"].item.LastAccessedAt = time.Now().Add(-2 * ttl)
	c.mu.Unlock()

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, []string{"fresh"}, c.Keys())
	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].Key)

	_, ok := c.Get("idle")
	assert.False(t, ok)
}

func TestCache_Concurrent(t *testing.T) {
	c := New[string, int](time.Minute)
	defer c.Close()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("%d-%d", w, i%20)
				c.Add(key, i)
				c.Get(key)
				c.Touch(key)
				if i%3 == 0 {
					c.Delete(key)
				}
				c.Entries()
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 8*20)
	assert.Len(t, c.Keys(), c.Len())
}

func TestNew_DefaultTTL(t *testing.T) {
	c := New[string, int](0)
	defer c.Close()
	assert.Equal(t, DefaultTTL, c.TTL())
}
