package series

import (
	"log/slog"
	"strings"

	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/util"
)

// Segment classifies a battery history point for colouring.
type Segment int

const (
	SegmentCharging Segment = iota
	SegmentDischarging
	SegmentLow
)

// LowBattery is the capacity below which a discharging segment is critical.
const LowBattery = 20

// TimelinePoint is one long-horizon battery sample.
type TimelinePoint struct {
	Label   string
	Value   *float64
	Status  string
	Segment Segment
}

// Timeline converts battery history into labelled points. The first label
// carries the date ("Jan 2 15:04"); later ones carry only the time of day.
// Entries with unparseable timestamps keep their raw timestamp as label.
func Timeline(entries []model.BatteryHistoryEntry) []TimelinePoint {
	out := make([]TimelinePoint, 0, len(entries))
	for i, e := range entries {
		label := e.Timestamp
		if ts, err := util.ParseTimestamp(e.Timestamp); err == nil {
			if i == 0 {
				label = ts.Format("Jan 2 15:04")
			} else {
				label = ts.Format("15:04")
			}
		} else {
			slog.Debug("battery history: bad timestamp", "index", i, "timestamp", e.Timestamp)
		}
		out = append(out, TimelinePoint{
			Label:   label,
			Value:   e.Capacity.Ptr(),
			Status:  e.Status,
			Segment: Classify(e.Status, e.Capacity.Float()),
		})
	}
	return out
}

// Classify picks the segment colour for a status/capacity pair. A status
// containing "charg" but not "discharg" is charging; otherwise a capacity
// under LowBattery is low.
func Classify(status string, capacity float64) Segment {
	s := strings.ToLower(status)
	if strings.Contains(s, "charg") && !strings.Contains(s, "discharg") {
		return SegmentCharging
	}
	if util.Finite(capacity) && capacity < LowBattery {
		return SegmentLow
	}
	return SegmentDischarging
}
