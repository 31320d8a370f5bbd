// Package memory implements the External Memory store collaborator
// (§6.1): add/search/delete against an external memory service, with
// graceful degradation to an in-process fallback grounded on
// original_source/her-core/memory/fallback_memory.py's FallbackMemory
// when the external service is unavailable and strict mode is off.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"autonomy-core/internal/apperr"
)

// Hit is one search result.
type Hit struct {
	ID       string         `json:"id"`
	Text     string         `json:"memory"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Store is the collaborator surface: add/search/delete.
type Store interface {
	Add(ctx context.Context, userID, text string, metadata map[string]any) (string, error)
	Search(ctx context.Context, userID, query string, k int) ([]Hit, error)
	Delete(ctx context.Context, userID, id string) error
}

// HTTPStore talks to an external Mem0-compatible memory service over a
// small REST surface: a typed net/http client with explicit error
// wrapping.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPStore builds an HTTPStore against baseURL.
func NewHTTPStore(baseURL string, client *http.Client) *HTTPStore {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPStore{baseURL: baseURL, client: client}
}

func (s *HTTPStore) Add(ctx context.Context, userID, text string, metadata map[string]any) (string, error) {
	body, _ := json.Marshal(map[string]any{"user_id": userID, "text": text, "metadata": metadata})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/memories", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", memoryUnavailable(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return "", memoryUnavailable(fmt.Errorf("memory service returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return "", apperr.Domain("", "I couldn't save that memory.", fmt.Sprintf("memory service returned %d", resp.StatusCode), nil)
	}

	var out struct {
		ID string `json:"id"`
	}
	respBody, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(respBody, &out); err != nil || out.ID == "" {
		return uuid.NewString(), nil
	}
	return out.ID, nil
}

func (s *HTTPStore) Search(ctx context.Context, userID, query string, k int) ([]Hit, error) {
	body, _ := json.Marshal(map[string]any{"user_id": userID, "query": query, "limit": k})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/memories/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, memoryUnavailable(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return nil, memoryUnavailable(fmt.Errorf("memory service returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, apperr.Domain("", "I couldn't search memories.", fmt.Sprintf("memory service returned %d", resp.StatusCode), nil)
	}

	var hits []Hit
	respBody, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(respBody, &hits); err != nil {
		return nil, apperr.Domain("", "I couldn't search memories.", "malformed memory service response", err)
	}
	return hits, nil
}

func (s *HTTPStore) Delete(ctx context.Context, userID, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/memories/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return memoryUnavailable(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return memoryUnavailable(fmt.Errorf("memory service returned %d", resp.StatusCode))
	}
	return nil
}

func memoryUnavailable(cause error) error {
	return apperr.Transient("", "memory_unavailable", cause)
}

// Guarded wraps a primary Store with strict-mode gating and an
// in-process fallback: on MemoryUnavailable, strict mode surfaces the
// error to the caller; non-strict mode logs it and delegates to
// fallback instead of failing the caller's request.
type Guarded struct {
	primary  Store
	fallback Store
	strict   bool
	log      *slog.Logger
}

// NewGuarded builds a Guarded store. fallback may be nil, in which case
// non-strict degradation returns empty results instead of delegating.
func NewGuarded(primary, fallback Store, strict bool, log *slog.Logger) *Guarded {
	return &Guarded{primary: primary, fallback: fallback, strict: strict, log: log}
}

func (g *Guarded) isUnavailable(err error) bool {
	var ae *apperr.Error
	return err != nil && errors.As(err, &ae) && ae.OperatorMessage == "memory_unavailable"
}

func (g *Guarded) Add(ctx context.Context, userID, text string, metadata map[string]any) (string, error) {
	id, err := g.primary.Add(ctx, userID, text, metadata)
	if err == nil || !g.isUnavailable(err) {
		return id, err
	}
	g.log.Warn("memory store unavailable on add", "err", err)
	if g.strict {
		return "", err
	}
	if g.fallback != nil {
		return g.fallback.Add(ctx, userID, text, metadata)
	}
	return "", nil
}

func (g *Guarded) Search(ctx context.Context, userID, query string, k int) ([]Hit, error) {
	hits, err := g.primary.Search(ctx, userID, query, k)
	if err == nil || !g.isUnavailable(err) {
		return hits, err
	}
	g.log.Warn("memory store unavailable on search, treating as empty", "err", err)
	if g.strict {
		return nil, err
	}
	if g.fallback != nil {
		return g.fallback.Search(ctx, userID, query, k)
	}
	return nil, nil
}

func (g *Guarded) Delete(ctx context.Context, userID, id string) error {
	err := g.primary.Delete(ctx, userID, id)
	if err == nil || !g.isUnavailable(err) {
		return err
	}
	g.log.Warn("memory store unavailable on delete", "err", err)
	if g.strict {
		return err
	}
	if g.fallback != nil {
		return g.fallback.Delete(ctx, userID, id)
	}
	return nil
}
