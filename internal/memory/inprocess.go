package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// InProcess is a minimal per-process memory fallback used when the
// external memory service is unavailable, grounded on
// original_source/her-core/memory/fallback_memory.py's FallbackMemory:
// substring search over an append-only per-user slice, most-recent-N
// on a miss.
type InProcess struct {
	mu      sync.Mutex
	byUser  map[string][]Hit
}

// NewInProcess builds an empty InProcess fallback store.
func NewInProcess() *InProcess {
	return &InProcess{byUser: map[string][]Hit{}}
}

func (m *InProcess) Add(ctx context.Context, userID, text string, metadata map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hit := Hit{ID: uuid.NewString(), Text: text, Score: 1, Metadata: metadata}
	m.byUser[userID] = append(m.byUser[userID], hit)
	return hit.ID, nil
}

func (m *InProcess) Search(ctx context.Context, userID, query string, k int) ([]Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k <= 0 {
		k = 5
	}
	items := m.byUser[userID]
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return lastN(items, k), nil
	}

	var matches []Hit
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Text), needle) {
			matches = append(matches, item)
		}
	}
	if len(matches) == 0 {
		return lastN(items, k), nil
	}
	return lastN(matches, k), nil
}

func (m *InProcess) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.byUser[userID]
	for i, item := range items {
		if item.ID == id {
			m.byUser[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return nil
}

func lastN(items []Hit, n int) []Hit {
	if len(items) <= n {
		out := make([]Hit, len(items))
		copy(out, items)
		return out
	}
	out := make([]Hit, n)
	copy(out, items[len(items)-n:])
	return out
}
