// Package format renders sampled values for text views.
package format

import (
	"fmt"

	"github.com/c2h5oh/datasize"
)

// Percent formats a percentage with one decimal, e.g. "42.5%"
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// Rate formats a megabytes-per-second rate with two decimals, e.g. "1.25 MB/s"
func Rate(v float64) string {
	return fmt.Sprintf("%.2f MB/s", v)
}

// MemoryMB formats a byte count as megabytes with one decimal, e.g. "12.0 MB"
func MemoryMB(bytes uint64) string {
	return fmt.Sprintf("%.1f MB", float64(bytes)/float64(datasize.MB))
}

// Size formats a byte count with the largest fitting unit, e.g. "1.5 GB"
func Size(bytes uint64) string {
	return datasize.ByteSize(bytes).HumanReadable()
}

// Value formats a converted sample for its unit. Missing values render as "-".
func Value(v float64, ok, percent bool) string {
	if !ok {
		return "-"
	}
	if percent {
		return Percent(v)
	}
	return Rate(v)
}
