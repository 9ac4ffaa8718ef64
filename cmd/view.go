package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/ngenohkevin/hivedeck-monitor/internal/format"
	"github.com/ngenohkevin/hivedeck-monitor/internal/monitor"
	"github.com/ngenohkevin/hivedeck-monitor/internal/process"
	"github.com/ngenohkevin/hivedeck-monitor/internal/system"
)

const minNameWidth = 12

type reading struct {
	value float64
	ok    bool
}

// view is one frame of the watch screen
type view struct {
	at        time.Time
	iface     string
	readings  map[system.Channel]reading
	processes []process.Record
	total     int
}

func captureView(mon *monitor.Monitor, top int) view {
	s := mon.Sampler()
	v := view{
		at:       time.Now(),
		iface:    mon.Interface(),
		readings: make(map[system.Channel]reading, len(system.Channels)),
	}
	for _, ch := range system.Channels {
		val, ok := s.Latest(ch)
		v.readings[ch] = reading{value: val, ok: ok}
	}

	records := mon.Registry().CurrentRecords()
	v.total = len(records)
	process.SortByMemory(records)
	v.processes = process.Top(records, top)
	return v
}

func (v view) render(w io.Writer, width int) error {
	iface := v.iface
	if iface == "" {
		iface = "none"
	}
	fmt.Fprintf(w, "%s  interface: %s  processes: %d\n\n", v.at.Format(time.TimeOnly), iface, v.total)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tVALUE")
	for _, ch := range system.Channels {
		r := v.readings[ch]
		fmt.Fprintf(tw, "%s\t%s\n", ch, format.Value(r.value, r.ok, ch.IsPercent()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PID\tCPU\tMEMORY\tSIZE\tSTATUS\tNAME\t")
	nameWidth := width - 48
	if nameWidth < minNameWidth {
		nameWidth = minNameWidth
	}
	for _, p := range v.processes {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			p.PID,
			format.Percent(p.CPUPercent),
			format.MemoryMB(p.MemoryBytes),
			format.Size(p.MemoryBytes),
			p.Status,
			runewidth.Truncate(p.Name, nameWidth, "…"),
		)
	}
	return tw.Flush()
}
