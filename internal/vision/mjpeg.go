package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"mirror/internal/services"
)

// MJPEGSource reads frames from a multipart/x-mixed-replace JPEG stream, the
// format served by most IP webcams and by mjpg-streamer.
type MJPEGSource struct {
	url    string
	client *http.Client

	mu     sync.Mutex
	body   io.ReadCloser
	reader *multipart.Reader
	seq    uint64
}

// NewMJPEGSource connects to the stream URL. The connection is established
// lazily on the first Read so construction never blocks.
func NewMJPEGSource(url string) *MJPEGSource {
	return &MJPEGSource{
		url: url,
		// No overall timeout: the stream is long-lived. Dial problems surface
		// through the request context instead.
		client: &http.Client{},
	}
}

// Read returns the next frame from the stream.
func (s *MJPEGSource) Read(ctx context.Context) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reader == nil {
		if err := s.connectLocked(ctx); err != nil {
			return nil, err
		}
	}

	part, err := s.reader.NextPart()
	if err != nil {
		// A live camera never ends its stream cleanly: EOF means the
		// connection dropped. Drop the dead reader so the next Read
		// re-dials instead of failing on it forever.
		s.resetLocked()
		if err == io.EOF {
			return nil, services.Wrap(services.ErrSourceUnavailable, "mjpeg", "read", "stream ended", err)
		}
		return nil, services.Wrap(services.ErrSourceUnavailable, "mjpeg", "read", "stream interrupted", err)
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		s.resetLocked()
		return nil, services.Wrap(services.ErrSourceUnavailable, "mjpeg", "read", "truncated part", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		s.resetLocked()
		return nil, services.Wrap(services.ErrSourceUnavailable, "mjpeg", "decode", "malformed frame", err)
	}

	s.seq++
	return &Frame{
		Seq:        s.seq,
		CapturedAt: time.Now(),
		Data:       data,
		Width:      cfg.Width,
		Height:     cfg.Height,
	}, nil
}

func (s *MJPEGSource) connectLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return services.Wrap(services.ErrSourceUnavailable, "mjpeg", "connect", "bad stream url", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrSourceUnavailable, "mjpeg", "connect", "camera unreachable", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return services.Wrap(services.ErrSourceUnavailable, "mjpeg", "connect",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		resp.Body.Close()
		return services.Wrap(services.ErrSourceUnavailable, "mjpeg", "connect",
			fmt.Sprintf("not an mjpeg stream (content-type %q)", resp.Header.Get("Content-Type")), err)
	}

	s.body = resp.Body
	s.reader = multipart.NewReader(resp.Body, params["boundary"])
	return nil
}

// resetLocked tears down the current connection so the next Read re-dials.
func (s *MJPEGSource) resetLocked() {
	s.reader = nil
	if s.body != nil {
		s.body.Close()
		s.body = nil
	}
}

// Close terminates the stream connection.
func (s *MJPEGSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reader = nil
	if s.body != nil {
		err := s.body.Close()
		s.body = nil
		return err
	}
	return nil
}
