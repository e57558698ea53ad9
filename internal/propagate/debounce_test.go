package propagate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldSendFirstAndRepeat(t *testing.T) {
	c := NewDebounceCache(60 * time.Second)
	key := StockKey(42)

	assert.True(t, c.ShouldSend(key, 12), "first report must send")
	assert.False(t, c.ShouldSend(key, 12), "same value within TTL must be suppressed")
	assert.True(t, c.ShouldSend(key, 13), "changed value must send")
	assert.False(t, c.ShouldSend(key, 13))
}

func TestShouldSendAfterExpiry(t *testing.T) {
	c := NewDebounceCache(60 * time.Second)
	now := time.Now()
	c.now = func() time.Time { return now }
	key := StockKey(1)

	require.True(t, c.ShouldSend(key, 5))
	now = now.Add(59 * time.Second)
	assert.False(t, c.ShouldSend(key, 5), "within TTL")

	// The matched attempt refreshed the expiry.
	now = now.Add(59 * time.Second)
	assert.False(t, c.ShouldSend(key, 5), "TTL refreshed by the matched attempt")

	now = now.Add(61 * time.Second)
	assert.True(t, c.ShouldSend(key, 5), "expired entry must send again")
}

func TestPeek(t *testing.T) {
	c := NewDebounceCache(60 * time.Second)
	now := time.Now()
	c.now = func() time.Time { return now }
	key := StockKey(7)

	_, live := c.Peek(key)
	require.False(t, live)

	c.ShouldSend(key, 9)
	v, live := c.Peek(key)
	require.True(t, live)
	assert.Equal(t, int64(9), v)

	now = now.Add(61 * time.Second)
	_, live = c.Peek(key)
	assert.False(t, live, "expired entry reads as absent")
}

func TestKeysAreIndependent(t *testing.T) {
	c := NewDebounceCache(time.Minute)
	require.True(t, c.ShouldSend(StockKey(1), 5))
	require.True(t, c.ShouldSend(StockKey(2), 5), "different entity, independent entry")
}

func TestConcurrentCheckAndSet(t *testing.T) {
	c := NewDebounceCache(time.Minute)
	key := StockKey(3)

	var wg sync.WaitGroup
	sends := make(chan bool, 200)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sends <- c.ShouldSend(key, 10)
		}()
	}
	wg.Wait()
	close(sends)

	sent := 0
	for s := range sends {
		if s {
			sent++
		}
	}
	// At least one racer must win; redundant sends are acceptable, a lost
	// write is not: afterwards the entry must hold the reported value.
	require.GreaterOrEqual(t, sent, 1)
	v, live := c.Peek(key)
	require.True(t, live)
	assert.Equal(t, int64(10), v)
	assert.False(t, c.ShouldSend(key, 10), "completed write observed by the next check")
}
