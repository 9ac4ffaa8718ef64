package sampler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngenohkevin/hivedeck-monitor/internal/system"
)

type stubCounter struct {
	values []float64
	err    error
	n      int
	closed int
}

func (c *stubCounter) Sample() (float64, error) {
	if c.err != nil {
		return 0, c.err
	}
	v := c.values[c.n%len(c.values)]
	c.n++
	return v, nil
}

func (c *stubCounter) Close() error {
	c.closed++
	return nil
}

func allCounters() map[system.Channel]*stubCounter {
	return map[system.Channel]*stubCounter{
		system.ChannelCPU:       {values: []float64{12.345}},
		system.ChannelMemory:    {values: []float64{55.56}},
		system.ChannelDiskRead:  {values: []float64{2097152}},
		system.ChannelDiskWrite: {values: []float64{1048576}},
		system.ChannelNetSent:   {values: []float64{524288}},
		system.ChannelNetRecv:   {values: []float64{0}},
	}
}

func asCounters(stubs map[system.Channel]*stubCounter) map[system.Channel]system.Counter {
	out := make(map[system.Channel]system.Counter, len(stubs))
	for ch, c := range stubs {
		out[ch] = c
	}
	return out
}

func TestConvert(t *testing.T) {
	assert.Equal(t, 2.0, Convert(system.ChannelDiskRead, 2097152))
	assert.Equal(t, 1.0, Convert(system.ChannelDiskWrite, 1048576))
	assert.Equal(t, 0.5, Convert(system.ChannelNetSent, 524288))
	assert.Equal(t, 0.01, Convert(system.ChannelNetRecv, 10486))
	assert.Equal(t, 12.3, Convert(system.ChannelCPU, 12.345))
	assert.Equal(t, 55.6, Convert(system.ChannelMemory, 55.56))
}

func TestTick_AllChannels(t *testing.T) {
	s := New(asCounters(allCounters()), 60)
	s.Tick()

	want := map[system.Channel]float64{
		system.ChannelCPU:       12.3,
		system.ChannelMemory:    55.6,
		system.ChannelDiskRead:  2.0,
		system.ChannelDiskWrite: 1.0,
		system.ChannelNetSent:   0.5,
		system.ChannelNetRecv:   0,
	}
	for ch, v := range want {
		got, ok := s.Latest(ch)
		require.True(t, ok, ch.String())
		assert.Equal(t, v, got, ch.String())
		assert.True(t, s.Healthy(ch))
	}
}

func TestTick_FailureIsolatedPerChannel(t *testing.T) {
	stubs := allCounters()
	stubs[system.ChannelDiskRead].err = fmt.Errorf("%w: disk gone", system.ErrSourceUnavailable)
	s := New(asCounters(stubs), 60)

	s.Tick()
	s.Tick()

	assert.Empty(t, s.History(system.ChannelDiskRead))
	assert.False(t, s.Healthy(system.ChannelDiskRead))
	for _, ch := range system.Channels {
		if ch == system.ChannelDiskRead {
			continue
		}
		assert.Len(t, s.History(ch), 2, ch.String())
	}

	stubs[system.ChannelDiskRead].err = nil
	s.Tick()
	assert.Equal(t, []float64{2.0}, s.History(system.ChannelDiskRead))
	assert.True(t, s.Healthy(system.ChannelDiskRead))
}

func TestTick_NoNetworkCounters(t *testing.T) {
	stubs := allCounters()
	delete(stubs, system.ChannelNetSent)
	delete(stubs, system.ChannelNetRecv)
	s := New(asCounters(stubs), 60)

	s.Tick()

	assert.False(t, s.Supported(system.ChannelNetSent))
	assert.False(t, s.Supported(system.ChannelNetRecv))
	_, ok := s.Latest(system.ChannelNetRecv)
	assert.False(t, ok)
	assert.Empty(t, s.History(system.ChannelNetSent))
	assert.True(t, s.Supported(system.ChannelCPU))
}

func TestTick_BoundedHistory(t *testing.T) {
	cpu := &stubCounter{values: make([]float64, 0, 65)}
	for i := 1; i <= 65; i++ {
		cpu.values = append(cpu.values, float64(i))
	}
	s := New(map[system.Channel]system.Counter{system.ChannelCPU: cpu}, 60)

	for i := 0; i < 65; i++ {
		s.Tick()
	}

	hist := s.History(system.ChannelCPU)
	require.Len(t, hist, 60)
	assert.Equal(t, 6.0, hist[0])
	assert.Equal(t, 65.0, hist[59])
	assert.Equal(t, 60, s.Capacity())
}

func TestClose_ReleasesOnce(t *testing.T) {
	stubs := allCounters()
	stubs[system.ChannelCPU].err = errors.New("ignored")
	s := New(asCounters(stubs), 60)

	s.Close()
	s.Close()

	for ch, c := range stubs {
		assert.Equal(t, 1, c.closed, ch.String())
	}
}
