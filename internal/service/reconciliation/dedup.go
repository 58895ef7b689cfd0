package reconciliation

import (
	"sort"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
)

// SortEvents returns a copy ordered by time, then IN before OUT, then source and ID, so the
// outcome never depends on storage order.
func SortEvents(events []punch.Event) []punch.Event {
	sorted := make([]punch.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.Direction != b.Direction {
			return a.Direction == punch.DirectionIn
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ID < b.ID
	})
	return sorted
}

// Dedup collapses double taps. events must be ordered by time. The first event is always kept;
// a later event is dropped when its time bucket and direction equal the last kept event.
// A grain of 1 minute compares the exact "HH.mm" value.
func Dedup(events []punch.Event, grainMinutes int) []punch.Event {
	if len(events) == 0 {
		return nil
	}
	if grainMinutes <= 0 {
		grainMinutes = 1
	}

	kept := make([]punch.Event, 0, len(events))
	kept = append(kept, events[0])
	for _, e := range events[1:] {
		last := kept[len(kept)-1]
		if e.Direction == last.Direction && e.Time.Minutes()/grainMinutes == last.Time.Minutes()/grainMinutes {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
