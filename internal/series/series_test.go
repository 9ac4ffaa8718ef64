package series

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries_Empty(t *testing.T) {
	s := New(DefaultCapacity)

	v, ok := s.Last()
	assert.False(t, ok)
	assert.Zero(t, v)
	assert.Empty(t, s.Snapshot())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 60, s.Cap())
}

func TestSeries_NonPositiveCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).Cap())
	assert.Equal(t, DefaultCapacity, New(-3).Cap())
}

func TestSeries_EvictsOldest(t *testing.T) {
	s := New(60)
	for i := 1; i <= 65; i++ {
		s.Push(float64(i))
	}

	snap := s.Snapshot()
	require.Len(t, snap, 60)
	assert.Equal(t, 6.0, snap[0])
	assert.Equal(t, 65.0, snap[59])
	for i, v := range snap {
		assert.Equal(t, float64(i+6), v)
	}

	last, ok := s.Last()
	assert.True(t, ok)
	assert.Equal(t, 65.0, last)
}

func TestSeries_LengthIsMinOfPushesAndCapacity(t *testing.T) {
	for _, n := range []int{0, 1, 4, 5, 6, 17} {
		s := New(5)
		for i := 0; i < n; i++ {
			s.Push(float64(i))
		}

		want := n
		if want > 5 {
			want = 5
		}
		snap := s.Snapshot()
		assert.Len(t, snap, want, "after %d pushes", n)
		for i, v := range snap {
			assert.Equal(t, float64(n-want+i), v)
		}
	}
}

func TestSeries_SnapshotIsCopy(t *testing.T) {
	s := New(3)
	s.Push(1)
	s.Push(2)

	first := s.Snapshot()
	second := s.Snapshot()
	assert.Equal(t, first, second)

	first[0] = 99
	assert.Equal(t, []float64{1, 2}, s.Snapshot())
}

func TestSeries_ConcurrentReaders(t *testing.T) {
	s := New(10)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			s.Push(float64(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			assert.LessOrEqual(t, len(s.Snapshot()), 10)
			s.Last()
		}
	}()
	wg.Wait()

	assert.Equal(t, 10, s.Len())
}

func TestScale(t *testing.T) {
	assert.Equal(t, 100.0, Scale([]float64{3, 250}, true))
	assert.Equal(t, 1.0, Scale(nil, false))
	assert.Equal(t, 1.0, Scale([]float64{0, 0}, false))
	assert.InDelta(t, 12.0, Scale([]float64{2, 10, 4}, false), 1e-9)
}
