package usage

import (
	"strings"

	"github.com/yanizio/wpmanager/internal/gateway"
)

// mib is the unit WHM uses for diskused and disklimit.
const mib = 1 << 20

// Snapshot is a sanitised view of one account's usage.  Byte fields are
// always bytes; a 0 limit means unlimited or unknown.
type Snapshot struct {
	DiskUsed         float64 `json:"disk_used"`
	DiskLimit        float64 `json:"disk_limit"`
	BandwidthUsed    float64 `json:"bandwidth_used"`
	BandwidthLimit   float64 `json:"bandwidth_limit"`
	DiskPercent      float64 `json:"disk_percent"`
	BandwidthPercent float64 `json:"bandwidth_percent"`
	Labels           Labels  `json:"labels"`
}

// Labels are the display strings for each field.
type Labels struct {
	DiskUsed       string `json:"disk_used"`
	DiskLimit      string `json:"disk_limit"`
	BandwidthUsed  string `json:"bandwidth_used"`
	BandwidthLimit string `json:"bandwidth_limit"`
}

// FromSummary builds a Snapshot from an accountsummary answer.
func FromSummary(s *gateway.AccountSummary) Snapshot {
	if s == nil {
		return Snapshot{Labels: Labels{LabelNA, LabelNA, LabelNA, LabelNA}}
	}
	diskUsed := megabytes(s.DiskUsed)
	diskLimit := megabytes(s.DiskLimit)

	snap := Snapshot{
		DiskUsed:       SanitizeNumeric(diskUsed),
		DiskLimit:      SanitizeNumeric(diskLimit),
		BandwidthUsed:  SanitizeNumeric(s.BandwidthUsed),
		BandwidthLimit: SanitizeNumeric(s.BandwidthLimit),
		Labels: Labels{
			DiskUsed:       FormatForDisplay(diskUsed),
			DiskLimit:      FormatForDisplay(diskLimit),
			BandwidthUsed:  FormatForDisplay(s.BandwidthUsed),
			BandwidthLimit: FormatForDisplay(s.BandwidthLimit),
		},
	}
	snap.DiskPercent = Percentage(snap.DiskUsed, snap.DiskLimit)
	snap.BandwidthPercent = Percentage(snap.BandwidthUsed, snap.BandwidthLimit)
	return snap
}

// megabytes converts a WHM MiB value ("512", "512M", 512) to bytes.  Tokens
// and garbage pass through untouched so the labels stay right.
func megabytes(v any) any {
	if s, ok := v.(string); ok {
		v = strings.TrimSuffix(strings.TrimSpace(s), "M")
	}
	f, ok := parse(v)
	if !ok {
		return v
	}
	return f * mib
}
