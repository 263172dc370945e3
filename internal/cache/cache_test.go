package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestGetWithinFreshness(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Put("trending", []string{"a", "b"})
	clock.Advance(4 * time.Minute)

	got, ok := c.Get("trending")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestGetMissesAfterFreshness(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Put("trending", "payload")

	clock.Advance(DefaultFreshness)
	_, ok := c.Get("trending")
	assert.True(t, ok, "exactly at the window edge is still fresh")

	clock.Advance(time.Millisecond)
	_, ok = c.Get("trending")
	assert.False(t, ok)

	// expired entries stay until swept
	assert.Equal(t, 1, c.Len())
}

func TestGetUnknownKey(t *testing.T) {
	c := New()
	got, ok := c.Get("never-set")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestPutLastWriteWins(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Put("k", 1)
	clock.Advance(3 * time.Minute)
	c.Put("k", 2)
	clock.Advance(3 * time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok, "second put refreshes the timestamp")
	assert.Equal(t, 2, got)
}

func TestSweepRemovesOnlyStaleEntries(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Put("old", 1)
	clock.Advance(20 * time.Minute)
	c.Put("young", 2)
	clock.Advance(11 * time.Minute)

	removed := c.Sweep(clock.Now())
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())

	// the surviving entry is past freshness, so Get still misses
	_, ok := c.Get("young")
	assert.False(t, ok)

	clock.Advance(20 * time.Minute)
	assert.Equal(t, 1, c.Sweep(clock.Now()))
	assert.Zero(t, c.Len())
}

func TestCustomWindows(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now), WithFreshness(time.Second), WithStaleness(2*time.Second))

	c.Put("k", "v")
	clock.Advance(1500 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Sweep(clock.Now()))

	clock.Advance(time.Second)
	assert.Equal(t, 1, c.Sweep(clock.Now()))
}

func TestClear(t *testing.T) {
	c := New()
	c.Put("a", 1)
	c.Put("b", 2)
	require.Equal(t, 2, c.Len())

	c.Clear()
	assert.Zero(t, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%5)
			c.Put(key, i)
			c.Get(key)
			c.Sweep(time.Now())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, c.Len())
}
