package sysmon

import "fmt"

// Severity grades a usage percentage for bar colouring.
type Severity int

const (
	SeverityNormal Severity = iota
	SeverityWarn
	SeverityCritical
)

// SeverityOf returns warn above 70% and critical above 90%.
func SeverityOf(percent float64) Severity {
	switch {
	case percent > 90:
		return SeverityCritical
	case percent > 70:
		return SeverityWarn
	default:
		return SeverityNormal
	}
}

// FormatRate renders a byte rate as B/s, KB/s or MB/s.
func FormatRate(bytesPerSec float64) string {
	switch {
	case bytesPerSec < 1024:
		return fmt.Sprintf("%.0f B/s", bytesPerSec)
	case bytesPerSec < 1024*1024:
		return fmt.Sprintf("%.0f KB/s", bytesPerSec/1024)
	default:
		return fmt.Sprintf("%.1f MB/s", bytesPerSec/(1024*1024))
	}
}

// GiB converts bytes to gibibytes.
func GiB(bytes uint64) float64 {
	return float64(bytes) / (1 << 30)
}

// FormatUsage renders "used / total GiB".
func FormatUsage(u Usage) string {
	return fmt.Sprintf("%.1f / %.1f GiB", GiB(u.Used), GiB(u.Total))
}
