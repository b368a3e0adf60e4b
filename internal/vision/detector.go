package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"mirror/internal/services"
)

// HTTPDetector delegates face detection to a sidecar service that accepts a
// JPEG upload and returns bounding boxes.
type HTTPDetector struct {
	baseURL     string
	client      *http.Client
	minRegionPx int
}

// NewHTTPDetector builds a detector client against the service base URL.
// Detections with an edge shorter than minRegionPx are discarded.
func NewHTTPDetector(baseURL string, timeout time.Duration, minRegionPx int) *HTTPDetector {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPDetector{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		client:      &http.Client{Timeout: timeout},
		minRegionPx: minRegionPx,
	}
}

type detectionBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type detectionResponse struct {
	Faces []detectionBox `json:"faces"`
}

// DetectFaces posts the frame to the detection service and returns regions
// sorted left to right. A detector failure is an adapter error, never fatal.
func (d *HTTPDetector) DetectFaces(ctx context.Context, frame *Frame) ([]Region, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, services.Wrap(services.ErrAdapter, "detector", "request", "build multipart body", err)
	}
	if _, err := part.Write(frame.Data); err != nil {
		return nil, services.Wrap(services.ErrAdapter, "detector", "request", "write frame data", err)
	}
	if err := writer.Close(); err != nil {
		return nil, services.Wrap(services.ErrAdapter, "detector", "request", "close multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/detect", &buf)
	if err != nil {
		return nil, services.Wrap(services.ErrAdapter, "detector", "request", "build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrAdapter, "detector", "detect", "service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(services.ErrAdapter, "detector", "detect",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var parsed detectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, services.Wrap(services.ErrAdapter, "detector", "detect", "malformed response", err)
	}

	regions := make([]Region, 0, len(parsed.Faces))
	for _, box := range parsed.Faces {
		if box.Width < d.minRegionPx || box.Height < d.minRegionPx {
			continue
		}
		regions = append(regions, Region{
			FrameSeq: frame.Seq,
			X:        box.X,
			Y:        box.Y,
			Width:    box.Width,
			Height:   box.Height,
		})
	}
	SortRegions(regions)
	return regions, nil
}
