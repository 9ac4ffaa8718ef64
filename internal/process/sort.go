package process

import "sort"

// SortByMemory orders records by memory usage, largest first
func SortByMemory(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].MemoryBytes == records[j].MemoryBytes {
			return records[i].PID < records[j].PID
		}
		return records[i].MemoryBytes > records[j].MemoryBytes
	})
}

// SortByCPU orders records by CPU usage, busiest first
func SortByCPU(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CPUPercent == records[j].CPUPercent {
			return records[i].PID < records[j].PID
		}
		return records[i].CPUPercent > records[j].CPUPercent
	})
}

// Top returns at most n records. A non-positive n returns all of them.
func Top(records []Record, n int) []Record {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[:n]
}
