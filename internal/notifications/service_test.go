package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"mirror/internal/config"
	"mirror/internal/notifications"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		mu.Lock()
		requests = append(requests, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), requests...)
	}
}

func notifyConfig(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	cfg.Notifications.RequestTimeout = 5
	cfg.Notifications.CameraErrors = true
	cfg.Notifications.UnknownLinger = true
	cfg.Notifications.DedupWindowSeconds = 300
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyCameraError(context.Background(), errors.New("gone")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestCameraErrorAlert(t *testing.T) {
	server, captured := newCaptureServer(t)
	svc := notifications.NewService(notifyConfig(server.URL))

	if err := svc.NotifyCameraError(context.Background(), errors.New("stream closed")); err != nil {
		t.Fatalf("NotifyCameraError: %v", err)
	}

	requests := captured()
	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	got := requests[0]
	if got.title != "Mirror - Camera Error" || got.priority != "high" {
		t.Errorf("unexpected alert headers: %+v", got)
	}
	if got.tags != "mirror,camera,alert" {
		t.Errorf("unexpected tags: %q", got.tags)
	}
}

func TestCameraErrorDedupWindow(t *testing.T) {
	server, captured := newCaptureServer(t)
	svc := notifications.NewService(notifyConfig(server.URL))

	ctx := context.Background()
	if err := svc.NotifyCameraError(ctx, errors.New("first")); err != nil {
		t.Fatalf("NotifyCameraError: %v", err)
	}
	if err := svc.NotifyCameraError(ctx, errors.New("second")); err != nil {
		t.Fatalf("NotifyCameraError repeat: %v", err)
	}

	if got := len(captured()); got != 1 {
		t.Errorf("expected repeat alert suppressed inside dedup window, got %d requests", got)
	}
}

func TestCameraErrorsDisabled(t *testing.T) {
	server, captured := newCaptureServer(t)
	cfg := notifyConfig(server.URL)
	cfg.Notifications.CameraErrors = false
	svc := notifications.NewService(cfg)

	if err := svc.NotifyCameraError(context.Background(), errors.New("gone")); err != nil {
		t.Fatalf("NotifyCameraError: %v", err)
	}
	if got := len(captured()); got != 0 {
		t.Errorf("expected no alert when camera errors disabled, got %d", got)
	}
}

func TestUnknownLingerAlert(t *testing.T) {
	server, captured := newCaptureServer(t)
	svc := notifications.NewService(notifyConfig(server.URL))

	if err := svc.NotifyUnknownLinger(context.Background(), 95*time.Second); err != nil {
		t.Fatalf("NotifyUnknownLinger: %v", err)
	}

	requests := captured()
	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	if requests[0].title != "Mirror - Unrecognized Visitor" {
		t.Errorf("unexpected title: %q", requests[0].title)
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic not found", http.StatusNotFound)
	}))
	defer server.Close()

	svc := notifications.NewService(notifyConfig(server.URL))
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
