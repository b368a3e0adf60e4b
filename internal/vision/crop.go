package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// CropRegion extracts a region from the frame and scales it to edge x edge
// pixels, returning the JPEG bytes the embedding service expects.
//
// The crop is padded by a fraction of the region size on each side because
// tight face boxes clip features the embedder relies on.
func CropRegion(frame *Frame, region Region, edge int) ([]byte, error) {
	if edge <= 0 {
		edge = 160
	}

	src, _, err := image.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", frame.Seq, err)
	}

	pad := region.Width / 5
	rect := image.Rect(region.X-pad, region.Y-pad, region.X+region.Width+pad, region.Y+region.Height+pad)
	rect = rect.Intersect(src.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region outside frame %d bounds", frame.Seq)
	}

	dst := image.NewRGBA(image.Rect(0, 0, edge, edge))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, rect, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}
