package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	altScreenOn  = "\x1b[?1049h"
	altScreenOff = "\x1b[?1049l"
	clearScreen  = "\x1b[H\x1b[2J"
	defaultWidth = 100
)

var (
	watchTop  int
	watchOnce bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show live metrics and the busiest processes in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		mon, err := startMonitor(ctx)
		if err != nil {
			return err
		}
		defer mon.Stop()

		ticks, unsubscribe := mon.Scheduler().Subscribe()
		defer unsubscribe()

		out := cmd.OutOrStdout()
		fd := int(os.Stdout.Fd())
		interactive := out == os.Stdout && term.IsTerminal(fd) && !watchOnce

		if interactive {
			fmt.Fprint(out, altScreenOn)
			defer fmt.Fprint(out, altScreenOff)
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticks:
			}

			if err := draw(out, captureView(mon, watchTop), interactive, fd); err != nil {
				return err
			}
			if watchOnce {
				return nil
			}
		}
	},
}

func draw(out io.Writer, v view, interactive bool, fd int) error {
	width := defaultWidth
	if interactive {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	}

	buf := bufio.NewWriter(out)
	if interactive {
		fmt.Fprint(buf, clearScreen)
	}
	if err := v.render(buf, width); err != nil {
		return err
	}
	if !interactive {
		fmt.Fprintln(buf)
	}
	return buf.Flush()
}

func init() {
	watchCmd.Flags().IntVarP(&watchTop, "top", "n", 10, "Number of processes to show, largest memory first")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "Print a single frame after the first sample and exit")
}
