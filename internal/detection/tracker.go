package detection

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// TrackedSquare is a square followed across frames.
type TrackedSquare struct {
	ID        uuid.UUID `json:"id"`
	Polygon   Polygon   `json:"polygon"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`

	// Hits counts the updates that matched this square.
	Hits int `json:"hits"`
}

// Tracker keeps squares alive across successive detections. Time only moves
// through Advance, so matching and expiry are deterministic.
type Tracker struct {
	// MaxDistance is the largest centroid movement accepted as a match.
	MaxDistance float64

	// MaxAge expires squares not matched for longer than this.
	MaxAge time.Duration

	now    time.Time
	tracks map[uuid.UUID]*TrackedSquare
}

// NewTracker creates an empty tracker whose clock starts at start.
func NewTracker(maxDistance float64, maxAge time.Duration, start time.Time) *Tracker {
	return &Tracker{
		MaxDistance: maxDistance,
		MaxAge:      maxAge,
		now:         start,
		tracks:      make(map[uuid.UUID]*TrackedSquare),
	}
}

// Now returns the tracker clock.
func (t *Tracker) Now() time.Time {
	return t.now
}

// Advance moves the clock forward and expires stale squares. It returns the
// IDs removed. A time before the current clock is ignored.
func (t *Tracker) Advance(now time.Time) []uuid.UUID {
	if now.After(t.now) {
		t.now = now
	}
	var expired []uuid.UUID
	for id, tr := range t.tracks {
		if t.now.Sub(tr.LastSeen) > t.MaxAge {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(t.tracks, id)
	}
	sortIDs(expired)
	return expired
}

// Update matches squares against the tracked set at the current clock. Each
// square takes the nearest unmatched track within MaxDistance or starts a new
// one. The returned IDs are in input order.
func (t *Tracker) Update(squares []Polygon) []uuid.UUID {
	ids := make([]uuid.UUID, len(squares))
	claimed := make(map[uuid.UUID]bool)

	for i, sq := range squares {
		c := sq.Centroid()
		var match *TrackedSquare
		best := t.MaxDistance
		for _, tr := range t.sorted() {
			if claimed[tr.ID] {
				continue
			}
			if d := tr.Polygon.Centroid().Sub(c).Norm(); d <= best {
				match, best = tr, d
			}
		}
		if match == nil {
			match = &TrackedSquare{ID: uuid.New(), FirstSeen: t.now}
			t.tracks[match.ID] = match
		}
		match.Polygon = sq
		match.LastSeen = t.now
		match.Hits++
		claimed[match.ID] = true
		ids[i] = match.ID
	}
	return ids
}

// Get returns a copy of a tracked square.
func (t *Tracker) Get(id uuid.UUID) (TrackedSquare, bool) {
	tr, ok := t.tracks[id]
	if !ok {
		return TrackedSquare{}, false
	}
	return *tr, true
}

// Tracks returns copies of all tracked squares, oldest first.
func (t *Tracker) Tracks() []TrackedSquare {
	sorted := t.sorted()
	out := make([]TrackedSquare, len(sorted))
	for i, tr := range sorted {
		out[i] = *tr
	}
	return out
}

// Len returns the number of tracked squares.
func (t *Tracker) Len() int {
	return len(t.tracks)
}

func (t *Tracker) sorted() []*TrackedSquare {
	out := make([]*TrackedSquare, 0, len(t.tracks))
	for _, tr := range t.tracks {
		out = append(out, tr)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].FirstSeen.Before(out[j].FirstSeen)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
