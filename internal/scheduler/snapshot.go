package scheduler

import (
	"encoding/json"
	"time"

	"autonomy-core/internal/store"
)

// upcomingEntry is the shape published to the "her:scheduler:state" KV key
// for operator visibility and the admin API's schedule list endpoint.
type upcomingEntry struct {
	ID        string     `json:"id"`
	OwnerUser string     `json:"owner_user"`
	Kind      string     `json:"kind"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	Enabled   bool       `json:"enabled"`
}

func marshalUpcoming(tasks []*store.Task) ([]byte, error) {
	entries := make([]upcomingEntry, 0, len(tasks))
	for _, t := range tasks {
		entries = append(entries, upcomingEntry{
			ID:        t.ID,
			OwnerUser: t.OwnerUser,
			Kind:      string(t.Kind),
			NextRunAt: t.NextRunAt,
			Enabled:   t.Enabled,
		})
	}
	return json.Marshal(entries)
}
