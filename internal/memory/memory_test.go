package memory

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPStore_AddAndSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/memories":
			json.NewEncoder(w).Encode(map[string]string{"id": "mem-1"})
		case "/memories/search":
			json.NewEncoder(w).Encode([]Hit{{ID: "mem-1", Text: "likes coffee", Score: 0.9}})
		}
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, server.Client())
	id, err := store.Add(context.Background(), "u1", "likes coffee", nil)
	if err != nil || id != "mem-1" {
		t.Fatalf("Add failed: id=%q err=%v", id, err)
	}

	hits, err := store.Search(context.Background(), "u1", "coffee", 5)
	if err != nil || len(hits) != 1 {
		t.Fatalf("Search failed: hits=%v err=%v", hits, err)
	}
}

func TestHTTPStore_5xxIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, server.Client())
	_, err := store.Search(context.Background(), "u1", "x", 5)
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestGuarded_NonStrictFallsBackToInProcess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	primary := NewHTTPStore(server.URL, server.Client())
	fallback := NewInProcess()
	g := NewGuarded(primary, fallback, false, testLogger())

	id, err := g.Add(context.Background(), "u1", "remembers this", nil)
	if err != nil {
		t.Fatalf("expected graceful degradation, got %v", err)
	}
	if id == "" {
		t.Fatal("expected fallback to assign an id")
	}

	hits, err := g.Search(context.Background(), "u1", "remembers", 5)
	if err != nil {
		t.Fatalf("expected graceful degradation on search, got %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected the fallback-stored memory to be found, got %v", hits)
	}
}

func TestGuarded_StrictModeSurfacesError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	primary := NewHTTPStore(server.URL, server.Client())
	g := NewGuarded(primary, NewInProcess(), true, testLogger())

	_, err := g.Search(context.Background(), "u1", "x", 5)
	if err == nil {
		t.Fatal("expected strict mode to surface the MemoryUnavailable error")
	}
}

func TestInProcess_SearchFallsBackToRecentOnNoMatch(t *testing.T) {
	m := NewInProcess()
	m.Add(context.Background(), "u1", "likes tea", nil)
	m.Add(context.Background(), "u1", "likes coffee", nil)

	hits, err := m.Search(context.Background(), "u1", "nonexistent", 5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("expected fallback to most-recent items, got %d", len(hits))
	}
}
