package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"mirror/internal/services"
)

// EmbeddingClient computes face embeddings using an HTTP embedding server.
type EmbeddingClient struct {
	baseURL string
	dim     int
	client  *http.Client
}

// NewEmbeddingClient creates a client against the embedding server base URL.
// The per-call deadline comes from the caller's context; the dispatcher owns
// the recognition timeout.
func NewEmbeddingClient(baseURL string, dim int) *EmbeddingClient {
	return &EmbeddingClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{},
	}
}

type embeddingResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
}

// Embed posts the JPEG crop and returns the embedding vector.
func (c *EmbeddingClient) Embed(ctx context.Context, crop []byte) ([]float32, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "face.jpg")
	if err != nil {
		return nil, services.Wrap(services.ErrAdapter, "embedder", "request", "build multipart body", err)
	}
	if _, err := part.Write(crop); err != nil {
		return nil, services.Wrap(services.ErrAdapter, "embedder", "request", "write crop data", err)
	}
	if err := writer.Close(); err != nil {
		return nil, services.Wrap(services.ErrAdapter, "embedder", "request", "close multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", &buf)
	if err != nil {
		return nil, services.Wrap(services.ErrAdapter, "embedder", "request", "build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrAdapter, "embedder", "embed", "service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(services.ErrAdapter, "embedder", "embed",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, services.Wrap(services.ErrAdapter, "embedder", "embed", "malformed response", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, services.Wrap(services.ErrAdapter, "embedder", "embed", "empty embedding", nil)
	}
	if c.dim > 0 && len(parsed.Embedding) != c.dim {
		return nil, services.Wrap(services.ErrAdapter, "embedder", "embed",
			fmt.Sprintf("dimension mismatch: got %d, want %d", len(parsed.Embedding), c.dim), nil)
	}
	return parsed.Embedding, nil
}
