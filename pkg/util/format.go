package util

import (
	"fmt"
	"time"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count with two decimals, e.g. "1.50 MB".
// FormatBytes 格式化字节数
func FormatBytes(n int64) string {
	size := float64(n)
	for _, unit := range sizeUnits[:len(sizeUnits)-1] {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[len(sizeUnits)-1])
}

// FormatDuration renders "12.3s", "4m 5s" or "2h 10m".
// FormatDuration 格式化耗时
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	switch {
	case seconds < 60:
		return fmt.Sprintf("%.1fs", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", int(seconds)/60, int(seconds)%60)
	default:
		return fmt.Sprintf("%dh %dm", int(seconds)/3600, (int(seconds)%3600)/60)
	}
}
