package alias

import (
	"context"
	"fmt"

	"washplant-monitor/internal/db"
)

// Store is the read side of the alias collaborator consumed by the engine.
type Store interface {
	AllAliases(ctx context.Context) (map[int64]string, error)
}

var _ Store = (*db.Database)(nil)

// Snapshot is an immutable client_id to display_name mapping taken at one
// point in time. Callers that need consistent names across a batch (the
// report builder) take one snapshot and reuse it for the whole batch.
type Snapshot struct {
	names map[int64]string
}

// Take reads the current alias mapping. A failed read yields an empty
// snapshot so every id falls back to its canonical display form; alias
// lookup is never a hard failure.
func Take(ctx context.Context, store Store) Snapshot {
	names, err := store.AllAliases(ctx)
	if err != nil {
		return Snapshot{}
	}
	return Snapshot{names: names}
}

// FromMap builds a snapshot from an in-memory mapping.
func FromMap(names map[int64]string) Snapshot {
	copied := make(map[int64]string, len(names))
	for id, name := range names {
		copied[id] = name
	}
	return Snapshot{names: copied}
}

// Resolve maps a client id to its display name. Ids without an alias resolve
// to "Client <id>", deterministically.
func (s Snapshot) Resolve(clientID int64) string {
	if name, ok := s.names[clientID]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("Client %d", clientID)
}

// Has reports whether an explicit alias exists for the id.
func (s Snapshot) Has(clientID int64) bool {
	name, ok := s.names[clientID]
	return ok && name != ""
}
