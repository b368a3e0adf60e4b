package dispatch

import (
	"mirror/internal/vision"
)

// track is one spatially tracked face position.
type track struct {
	id      int64
	centerX int
	centerY int
	lastSeq uint64
}

// tracker assigns stable IDs to face regions across consecutive frames by
// nearest-center matching. It is deliberately not full object tracking: a
// region adopts the closest existing track within maxDistance pixels, or
// starts a new one.
type tracker struct {
	tracks      map[int64]*track
	nextID      int64
	maxDistance int
	// staleAfter is the number of frames a track survives without being
	// matched before it is pruned.
	staleAfter uint64
}

func newTracker(maxDistancePx int) *tracker {
	return &tracker{
		tracks:      make(map[int64]*track),
		nextID:      1,
		maxDistance: maxDistancePx,
		staleAfter:  30,
	}
}

// assign returns the track ID for a region, creating a new track when no
// existing track is close enough. Call prune once per frame before assigning
// that frame's regions.
func (t *tracker) assign(region vision.Region) int64 {
	cx, cy := region.CenterX(), region.CenterY()
	maxSq := t.maxDistance * t.maxDistance

	var best *track
	bestSq := maxSq + 1
	for _, tr := range t.tracks {
		// A track matches at most one region per frame.
		if tr.lastSeq == region.FrameSeq {
			continue
		}
		dx := tr.centerX - cx
		dy := tr.centerY - cy
		sq := dx*dx + dy*dy
		if sq <= maxSq && sq < bestSq {
			best = tr
			bestSq = sq
		}
	}

	if best != nil {
		best.centerX = cx
		best.centerY = cy
		best.lastSeq = region.FrameSeq
		return best.id
	}

	id := t.nextID
	t.nextID++
	t.tracks[id] = &track{id: id, centerX: cx, centerY: cy, lastSeq: region.FrameSeq}
	return id
}

// prune drops tracks not seen for staleAfter frames.
func (t *tracker) prune(currentSeq uint64) {
	for id, tr := range t.tracks {
		if currentSeq > tr.lastSeq && currentSeq-tr.lastSeq > t.staleAfter {
			delete(t.tracks, id)
		}
	}
}

func (t *tracker) active() int {
	return len(t.tracks)
}
