package system

// Channel identifies one of the six sampled metric streams.
type Channel int

const (
	ChannelCPU Channel = iota
	ChannelMemory
	ChannelDiskRead
	ChannelDiskWrite
	ChannelNetSent
	ChannelNetRecv
)

// Channels lists every channel in display order.
var Channels = []Channel{
	ChannelCPU,
	ChannelMemory,
	ChannelDiskRead,
	ChannelDiskWrite,
	ChannelNetSent,
	ChannelNetRecv,
}

var channelNames = map[Channel]string{
	ChannelCPU:       "cpu",
	ChannelMemory:    "memory",
	ChannelDiskRead:  "disk_read",
	ChannelDiskWrite: "disk_write",
	ChannelNetSent:   "net_sent",
	ChannelNetRecv:   "net_recv",
}

func (c Channel) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseChannel resolves a channel from its String form
func ParseChannel(name string) (Channel, bool) {
	for ch, n := range channelNames {
		if n == name {
			return ch, true
		}
	}
	return 0, false
}

// IsPercent reports whether the channel is already a percentage
func (c Channel) IsPercent() bool {
	return c == ChannelCPU || c == ChannelMemory
}

// IsNetwork reports whether the channel needs a resolved network interface
func (c Channel) IsNetwork() bool {
	return c == ChannelNetSent || c == ChannelNetRecv
}

// Unit returns the display unit of converted samples
func (c Channel) Unit() string {
	if c.IsPercent() {
		return "%"
	}
	return "MB/s"
}

// Counter is an open subscription to one instantaneous OS metric. Close
// releases it; closing twice is a no-op.
type Counter interface {
	Sample() (float64, error)
	Close() error
}

// Source opens OS counters for the metric channels and for interface probing.
type Source interface {
	// OpenCounter opens the counter backing ch. Network channels read iface.
	OpenCounter(ch Channel, iface string) (Counter, error)
	// OpenThroughput opens a bytes sent+received per second counter for iface.
	OpenThroughput(iface string) (Counter, error)
	// InterfaceNames lists candidate network interfaces in OS order.
	InterfaceNames() ([]string, error)
}

// HostInfo contains system identification information
type HostInfo struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	KernelVersion   string `json:"kernel_version"`
	KernelArch      string `json:"kernel_arch"`
	Uptime          uint64 `json:"uptime"`
	UptimeHuman     string `json:"uptime_human"`
	BootTime        uint64 `json:"boot_time"`
	Procs           uint64 `json:"procs"`
	LogicalCores    int    `json:"logical_cores"`
}
