package consumer

import "time"

// GuestList is a host consumer's persisted guest-id set together with the
// write ordering metadata used for conflict resolution. Concurrent reports
// resolve by server-assigned timestamp, never by database insertion order;
// identical timestamps fall back to the reporting request ID as a stable
// tiebreaker.
type GuestList struct {
	GuestIDs   []string
	ReportedAt time.Time
	RequestID  string
}

// Copy returns an independent copy.
func (g GuestList) Copy() GuestList {
	return GuestList{
		GuestIDs:   append([]string(nil), g.GuestIDs...),
		ReportedAt: g.ReportedAt,
		RequestID:  g.RequestID,
	}
}

// Contains reports whether a guest ID is in the list. Virt UUIDs are
// compared verbatim, with no case folding or normalization.
func (g GuestList) Contains(guestID string) bool {
	for _, id := range g.GuestIDs {
		if id == guestID {
			return true
		}
	}
	return false
}

// Apply merges a reported guest list. The incoming report wins when its
// timestamp is later, or equal with a greater request ID; otherwise the
// stored list is kept. Returns true when the stored list changed.
func (g *GuestList) Apply(guestIDs []string, reportedAt time.Time, requestID string) bool {
	reportedAt = reportedAt.UTC()
	if reportedAt.Before(g.ReportedAt) {
		return false
	}
	if reportedAt.Equal(g.ReportedAt) && requestID <= g.RequestID {
		return false
	}

	changed := !sameOrderedSet(g.GuestIDs, guestIDs)
	g.GuestIDs = append([]string(nil), guestIDs...)
	g.ReportedAt = reportedAt
	g.RequestID = requestID
	return changed
}

func sameOrderedSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
