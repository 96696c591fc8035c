package wire

import (
	"sort"
	"strings"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper"
)

// IST is the zone Indian carriers report local timestamps in.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// ParseTime tries each layout in turn. Layouts without a zone are read as IST.
func ParseTime(value string, layouts ...string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, IST); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TimePtr returns a pointer to t, or nil for the zero time.
func TimePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Tracking assembles a result with events in ascending time order. When the
// carrier's summary status is unknown the latest event's status is used.
func Tracking(trackingNumber string, current shipper.CanonicalStatus, events []shipper.TrackingEvent) *shipper.TrackingResult {
	if events == nil {
		events = []shipper.TrackingEvent{}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	if current == "" || current == shipper.StatusUnknown {
		current = shipper.StatusUnknown
		for i := len(events) - 1; i >= 0; i-- {
			if events[i].Status != shipper.StatusUnknown {
				current = events[i].Status
				break
			}
		}
	}
	return &shipper.TrackingResult{
		TrackingNumber: trackingNumber,
		Status:         current,
		Events:         events,
	}
}
