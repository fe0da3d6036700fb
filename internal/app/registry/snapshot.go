/*
Package registry implements the authoritative in-memory room registry.

This file derives the read-only roster snapshot. The snapshot is recomputed
from Room, Membership, and presence state on every read and never stored, so
it cannot diverge from the authoritative data.
*/
package registry

import "sort"

// RoomSummary is the roster-facing view of one room.
type RoomSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DJName        string `json:"djName"`
	DJOnline      bool   `json:"djOnline"`
	ListenerCount int    `json:"listenerCount"`
	IsOwnRoom     bool   `json:"isOwnRoom"`
}

// Snapshot is the full roster as seen by one viewer.
type Snapshot struct {
	Rooms []RoomSummary `json:"rooms"`
}

// Snapshot assembles the roster for the given viewer. IsOwnRoom flags rooms
// whose DJ is the viewer. Rooms are ordered by creation time so the roster
// is stable across pushes.
func (r *Registry) Snapshot(viewerID string) Snapshot {
	r.mu.RLock()
	states := make([]*roomState, 0, len(r.rooms))
	for _, rs := range r.rooms {
		states = append(states, rs)
	}
	r.mu.RUnlock()

	type keyed struct {
		summary   RoomSummary
		createdAt int64
	}

	entries := make([]keyed, 0, len(states))

	for _, rs := range states {
		rs.mu.Lock()

		if rs.closed {
			rs.mu.Unlock()
			continue
		}

		listeners := 0
		for _, m := range rs.members {
			if m.Role == RoleListener {
				listeners++
			}
		}

		summary := RoomSummary{
			ID:            rs.room.ID,
			Name:          rs.room.Name,
			ListenerCount: listeners,
			IsOwnRoom:     rs.room.DJClientID == viewerID,
		}
		djClientID := rs.room.DJClientID
		createdAt := rs.room.CreatedAt

		rs.mu.Unlock()

		if r.names != nil {
			summary.DJName = r.names.DisplayName(djClientID)
		}
		if r.presence != nil {
			summary.DJOnline = r.presence.IsOnline(djClientID, summary.ID)
		}

		entries = append(entries, keyed{summary: summary, createdAt: createdAt.UnixNano()})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].createdAt < entries[j].createdAt
	})

	summaries := make([]RoomSummary, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, e.summary)
	}

	return Snapshot{Rooms: summaries}
}
