package main

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/codeloop/internal/agent"
	"github.com/danielpatrickdp/codeloop/internal/config"
	"github.com/danielpatrickdp/codeloop/internal/snapshot"
	"github.com/danielpatrickdp/codeloop/internal/store"
)

// openStore opens the configured database.
func openStore() (*store.Store, error) {
	st, err := store.NewStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", agent.ErrStorageUnavailable, err)
	}
	return st, nil
}

// snapshotBackend picks the file or sqlite snapshot store.
func snapshotBackend(st *store.Store, note string) agent.SnapshotStore {
	if cfg.Snapshot.Backend == config.BackendSQLite {
		return st.SnapshotStore(note)
	}
	return snapshot.NewFileStore(cfg.Snapshot.Path)
}

// loadAgent builds an agent over the store's experience log and loads the
// persisted value table. A missing snapshot starts from an empty table.
func loadAgent(ctx context.Context, st *store.Store, note string) (*agent.Agent, error) {
	ag, err := agent.New(cfg.AgentConfig(),
		agent.WithLog(st),
		agent.WithSnapshots(snapshotBackend(st, note)),
		agent.WithLogger(logger.Named("agent")),
	)
	if err != nil {
		return nil, err
	}
	if err := ag.LoadSnapshot(ctx); err != nil {
		return nil, err
	}
	return ag, nil
}
