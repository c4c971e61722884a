package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"legaldraft/internal/domain"
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance; point ids are template ids.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Init drops the collection if present and recreates it with the given dimension.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	if err := s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil, http.StatusNotFound); err != nil {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil)
}

func (s *Storage) Upsert(ctx context.Context, entries []domain.IndexEntry, vectors [][]float64) error {
	if len(entries) != len(vectors) {
		return errors.New("entries and vectors length mismatch")
	}
	if len(entries) == 0 {
		return nil
	}
	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		if e.TemplateID <= 0 {
			return fmt.Errorf("invalid point id %d", e.TemplateID)
		}
		points[i] = map[string]any{
			"id":     uint64(e.TemplateID),
			"vector": vectors[i],
			"payload": map[string]any{
				"template_id": e.TemplateID,
				"text":        e.Text,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil)
}

func (s *Storage) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	points := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			points = append(points, uint64(id))
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPost, s.collectionURL("/points/delete?wait=true"), body, nil)
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      json.Number    `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		entry := domain.IndexEntry{}
		if id, err := r.ID.Int64(); err == nil {
			entry.TemplateID = id
		}
		if v, ok := r.Payload["text"].(string); ok {
			entry.Text = v
		}
		results = append(results, domain.SearchResult{Entry: entry, Score: r.Score})
	}
	return results, nil
}

// Clear recreates an empty collection with the last known dimension.
func (s *Storage) Clear(ctx context.Context) error {
	if s.dimension == 0 {
		return s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil, http.StatusNotFound)
	}
	return s.Init(ctx, s.dimension)
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

// do sends a JSON request; statuses listed in tolerate are treated as success.
func (s *Storage) do(ctx context.Context, method, url string, body, out any, tolerate ...int) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	for _, code := range tolerate {
		if resp.StatusCode == code {
			return nil
		}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		return dec.Decode(out)
	}
	return nil
}
