// Package sysinfo reports local disk usage for run summaries.
package sysinfo

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"
)

// RootUsage describes the filesystem holding the backup root.
type RootUsage struct {
	Path        string
	UsedBytes   uint64
	TotalBytes  uint64
	UsedPercent float64
}

// Usage returns disk usage for the filesystem containing path.
func Usage(path string) (*RootUsage, error) {
	stat, err := disk.Usage(path)
	if err != nil {
		return nil, fmt.Errorf("disk usage for %s: %w", path, err)
	}
	return &RootUsage{
		Path:        path,
		UsedBytes:   stat.Used,
		TotalBytes:  stat.Total,
		UsedPercent: stat.UsedPercent,
	}, nil
}

// String renders the usage as a single summary line.
func (u *RootUsage) String() string {
	return fmt.Sprintf("Disk: %s / %s used (%.1f%%)",
		FormatBytes(u.UsedBytes), FormatBytes(u.TotalBytes), u.UsedPercent)
}

// FormatBytes renders a byte count in human-readable units.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
