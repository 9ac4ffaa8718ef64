package system

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
)

// OSSource reads counters from the host through gopsutil.
type OSSource struct{}

// NewOSSource creates a gopsutil backed counter source
func NewOSSource() *OSSource {
	return &OSSource{}
}

// OpenCounter opens the counter backing ch
func (s *OSSource) OpenCounter(ch Channel, iface string) (Counter, error) {
	switch ch {
	case ChannelCPU:
		return newCPUCounter()
	case ChannelMemory:
		return newMemoryCounter()
	case ChannelDiskRead:
		return newRateCounter("disk read", func() (uint64, error) {
			read, _, err := diskTotals()
			return read, err
		}, nil)
	case ChannelDiskWrite:
		return newRateCounter("disk write", func() (uint64, error) {
			_, written, err := diskTotals()
			return written, err
		}, nil)
	case ChannelNetSent, ChannelNetRecv:
		if iface == "" {
			return nil, fmt.Errorf("%w: %s: %w", ErrInitialization, ch, ErrNoActiveInterface)
		}
		return newRateCounter(ch.String()+" "+iface, func() (uint64, error) {
			io, err := interfaceCounters(iface)
			if err != nil {
				return 0, err
			}
			if ch == ChannelNetSent {
				return io.BytesSent, nil
			}
			return io.BytesRecv, nil
		}, nil)
	}
	return nil, fmt.Errorf("%w: unknown channel %d", ErrInitialization, int(ch))
}

// OpenThroughput opens a total bytes per second counter for iface
func (s *OSSource) OpenThroughput(iface string) (Counter, error) {
	return newRateCounter("net total "+iface, func() (uint64, error) {
		io, err := interfaceCounters(iface)
		if err != nil {
			return 0, err
		}
		return io.BytesSent + io.BytesRecv, nil
	}, nil)
}

// InterfaceNames lists non-loopback interfaces in the order the OS reports them
func (s *OSSource) InterfaceNames() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to get network interfaces: %w", err)
	}

	var names []string
	for _, iface := range ifaces {
		if isLoopback(iface.Flags) {
			continue
		}
		names = append(names, iface.Name)
	}
	return names, nil
}

func isLoopback(flags []string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, "loopback") {
			return true
		}
	}
	return false
}

func interfaceCounters(name string) (net.IOCountersStat, error) {
	counters, err := net.IOCounters(true)
	if err != nil {
		return net.IOCountersStat{}, fmt.Errorf("failed to get network io counters: %w", err)
	}
	for _, c := range counters {
		if c.Name == name {
			return c, nil
		}
	}
	return net.IOCountersStat{}, fmt.Errorf("interface %q not found", name)
}

func diskTotals() (read, written uint64, err error) {
	counters, err := disk.IOCounters()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get disk io counters: %w", err)
	}
	for _, c := range counters {
		read += c.ReadBytes
		written += c.WriteBytes
	}
	return read, written, nil
}

// cpuCounter reports aggregate busy percentage since the previous call.
type cpuCounter struct {
	mu     sync.Mutex
	closed bool
}

func newCPUCounter() (*cpuCounter, error) {
	// primes gopsutil's last reading so the first Sample covers one period.
	// Without a baseline the first call only records one and errors.
	percents, err := cpu.Percent(0, false)
	if err != nil {
		percents, err = cpu.Percent(0, false)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cpu: %w", ErrInitialization, err)
	}
	if len(percents) == 0 {
		return nil, fmt.Errorf("%w: cpu: no aggregate reading", ErrInitialization)
	}
	return &cpuCounter{}, nil
}

func (c *cpuCounter) Sample() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, fmt.Errorf("%w: cpu counter closed", ErrSourceUnavailable)
	}

	percents, err := cpu.Percent(0, false)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get cpu percent: %w", ErrSourceUnavailable, err)
	}
	if len(percents) == 0 {
		return 0, fmt.Errorf("%w: no aggregate cpu reading", ErrSourceUnavailable)
	}
	return percents[0], nil
}

func (c *cpuCounter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type memoryCounter struct {
	mu     sync.Mutex
	closed bool
}

func newMemoryCounter() (*memoryCounter, error) {
	if _, err := mem.VirtualMemory(); err != nil {
		return nil, fmt.Errorf("%w: memory: %w", ErrInitialization, err)
	}
	return &memoryCounter{}, nil
}

func (c *memoryCounter) Sample() (float64, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return 0, fmt.Errorf("%w: memory counter closed", ErrSourceUnavailable)
	}

	vmem, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get virtual memory: %w", ErrSourceUnavailable, err)
	}
	return vmem.UsedPercent, nil
}

func (c *memoryCounter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
