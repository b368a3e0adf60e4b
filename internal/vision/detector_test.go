package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mirror/internal/services"
)

func testFrame(t *testing.T, width, height int) *Frame {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test frame: %v", err)
	}
	return &Frame{Seq: 1, CapturedAt: time.Now(), Data: buf.Bytes(), Width: width, Height: height}
}

func TestHTTPDetectorParsesAndSorts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		_ = json.NewEncoder(w).Encode(detectionResponse{Faces: []detectionBox{
			{X: 300, Y: 10, Width: 80, Height: 80},
			{X: 40, Y: 20, Width: 90, Height: 90},
			{X: 150, Y: 15, Width: 10, Height: 10}, // below min size
		}})
	}))
	defer server.Close()

	detector := NewHTTPDetector(server.URL, time.Second, 30)
	regions, err := detector.DetectFaces(context.Background(), testFrame(t, 640, 480))
	if err != nil {
		t.Fatalf("DetectFaces: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("expected 2 regions after min-size filter, got %d", len(regions))
	}
	if regions[0].X != 40 || regions[1].X != 300 {
		t.Fatalf("regions not sorted left to right: %+v", regions)
	}
	if regions[0].FrameSeq != 1 {
		t.Fatalf("region missing frame seq: %+v", regions[0])
	}
}

func TestHTTPDetectorErrorIsAdapterError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	detector := NewHTTPDetector(server.URL, time.Second, 30)
	_, err := detector.DetectFaces(context.Background(), testFrame(t, 64, 64))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrAdapter) {
		t.Fatalf("expected adapter error, got %v", err)
	}
	if services.Fatal(err) {
		t.Fatal("detector failure must not be fatal")
	}
}

func TestHTTPDetectorEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(detectionResponse{})
	}))
	defer server.Close()

	detector := NewHTTPDetector(server.URL, time.Second, 30)
	regions, err := detector.DetectFaces(context.Background(), testFrame(t, 64, 64))
	if err != nil {
		t.Fatalf("DetectFaces: %v", err)
	}
	if len(regions) != 0 {
		t.Fatalf("expected no regions, got %d", len(regions))
	}
}
