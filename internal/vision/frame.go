package vision

import (
	"sort"
	"time"
)

// Frame is a captured image with a monotonically increasing sequence number.
//
// Data holds the JPEG-encoded frame bytes and must not be modified after the
// frame leaves its source. Frames are handed downstream by reference.
type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	Data       []byte
	Width      int
	Height     int
}

// Region is a face bounding box within a frame.
type Region struct {
	FrameSeq uint64
	X        int
	Y        int
	Width    int
	Height   int
}

// CenterX returns the horizontal center of the region.
func (r Region) CenterX() int { return r.X + r.Width/2 }

// CenterY returns the vertical center of the region.
func (r Region) CenterY() int { return r.Y + r.Height/2 }

// DistanceSq returns the squared pixel distance between two region centers.
// Squared form avoids a sqrt in the tracker hot path.
func (r Region) DistanceSq(other Region) int {
	dx := r.CenterX() - other.CenterX()
	dy := r.CenterY() - other.CenterY()
	return dx*dx + dy*dy
}

// SortRegions orders regions left to right by x coordinate so detection
// output is deterministic for a given frame.
func SortRegions(regions []Region) {
	sort.Slice(regions, func(i, j int) bool {
		if regions[i].X != regions[j].X {
			return regions[i].X < regions[j].X
		}
		return regions[i].Y < regions[j].Y
	})
}
