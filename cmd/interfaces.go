package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ngenohkevin/hivedeck-monitor/internal/system"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "Probe network interfaces and show which one would be sampled",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		src := system.NewOSSource()
		names, err := src.InterfaceNames()
		if err != nil {
			return fmt.Errorf("failed to list interfaces: %w", err)
		}

		probe := system.NewInterfaceProbe(src)
		defer probe.Close()

		// record every probe so the table can show what the selector saw
		seen := make(map[string]float64, len(names))
		record := func(name string) (float64, error) {
			v, err := probe.Sample(name)
			if err == nil && v > seen[name] {
				seen[name] = v
			}
			return v, err
		}

		winner, ok := system.NewSelector(cfg.ProbeSettle).Select(names, record)
		if !ok {
			return system.ErrNoActiveInterface
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "INTERFACE\tPEAK B/S\tSELECTED")
		for _, name := range names {
			mark := ""
			if name == winner {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%.0f\t%s\n", name, seen[name], mark)
		}
		if cfg.NetInterface != "" {
			fmt.Fprintf(w, "\nNET_INTERFACE=%s overrides the probe\n", cfg.NetInterface)
		}
		return w.Flush()
	},
}
