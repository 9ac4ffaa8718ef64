package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngenohkevin/hivedeck-monitor/internal/system"
)

func TestCache_SetAndGet(t *testing.T) {
	c := New[string](time.Hour)

	c.Set("key1", "value1")

	val, found := c.Get("key1")
	assert.True(t, found)
	assert.Equal(t, "value1", val)
}

func TestCache_GetMissing(t *testing.T) {
	c := New[string](time.Hour)

	val, found := c.Get("nonexistent")
	assert.False(t, found)
	assert.Empty(t, val)
}

func TestCache_Expiration(t *testing.T) {
	c := New[string](50 * time.Millisecond)

	c.Set("key", "value")

	_, found := c.Get("key")
	assert.True(t, found)

	time.Sleep(100 * time.Millisecond)

	val, found := c.Get("key")
	assert.False(t, found)
	assert.Empty(t, val)
}

func TestCache_LenCountsStoredValues(t *testing.T) {
	c := New[int](time.Hour)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)

	assert.Equal(t, 2, c.Len())
	val, found := c.Get("a")
	assert.True(t, found)
	assert.Equal(t, 3, val)
}

func TestCache_GetOrSet(t *testing.T) {
	c := New[string](time.Hour)

	callCount := 0
	fn := func() (string, error) {
		callCount++
		return "computed", nil
	}

	val, err := c.GetOrSet("key", fn)
	require.NoError(t, err)
	assert.Equal(t, "computed", val)

	val, err = c.GetOrSet("key", fn)
	require.NoError(t, err)
	assert.Equal(t, "computed", val)
	assert.Equal(t, 1, callCount)
}

func TestCache_GetOrSetError(t *testing.T) {
	c := New[string](time.Hour)

	_, err := c.GetOrSet("key", func() (string, error) {
		return "", errors.New("boom")
	})
	assert.Error(t, err)
	assert.Zero(t, c.Len())
}

func TestCache_StartStop(t *testing.T) {
	c := New[string](20 * time.Millisecond)
	go c.Start()
	defer c.Stop()

	c.Set("key", "value")
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHostCache(t *testing.T) {
	calls := 0
	hc := NewHostCache(func(context.Context) (*system.HostInfo, error) {
		calls++
		return &system.HostInfo{Hostname: "node-1", LogicalCores: 8}, nil
	})

	info, err := hc.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "node-1", info.Hostname)

	_, err = hc.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestHostCache_ErrorNotCached(t *testing.T) {
	fail := true
	hc := NewHostCache(func(context.Context) (*system.HostInfo, error) {
		if fail {
			return nil, errors.New("no host")
		}
		return &system.HostInfo{Hostname: "node-1"}, nil
	})

	_, err := hc.Info(context.Background())
	assert.Error(t, err)

	fail = false
	info, err := hc.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "node-1", info.Hostname)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int](time.Hour)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			c.Set("key", i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			c.Get("key")
		}
	}()
	wg.Wait()
}
