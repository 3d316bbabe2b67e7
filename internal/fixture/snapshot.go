package fixture

import (
	"context"
	"fmt"
	"log/slog"

	json "github.com/goccy/go-json"
)

const snapshotVersion = 1

// snapshot holds the raw documents a fixture is built from. Derived state is
// recomputed on restore so a snapshot never outlives a change of the derivation.
type snapshot struct {
	Version     int    `json:"v"`
	RootURI     string `json:"root_uri"`
	APIURI      string `json:"api_uri"`
	Landing     []byte `json:"landing"`
	API         []byte `json:"api"`
	Conformance []byte `json:"conformance"`
	Collections []byte `json:"collections"`
}

func loadSnapshot(ctx context.Context, deps Deps, key string, log *slog.Logger) (*snapshot, bool) {
	if deps.Snapshots == nil {
		return nil, false
	}
	opCtx, cancel := withTimeout(ctx, deps)
	defer cancel()

	b, ok, err := deps.Snapshots.Get(opCtx, key)
	if err != nil {
		log.WarnContext(ctx, "fixture snapshot lookup failed", "key", key, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		log.WarnContext(ctx, "fixture snapshot is corrupt", "key", key, "err", err)
		return nil, false
	}
	if snap.Version != snapshotVersion {
		return nil, false
	}
	return &snap, true
}

func storeSnapshot(ctx context.Context, deps Deps, key string, snap *snapshot, log *slog.Logger) {
	if deps.Snapshots == nil {
		return
	}
	b, err := json.Marshal(snap)
	if err != nil {
		log.WarnContext(ctx, "fixture snapshot encode failed", "err", fmt.Errorf("encode snapshot: %w", err))
		return
	}
	opCtx, cancel := withTimeout(ctx, deps)
	defer cancel()
	if err := deps.Snapshots.Set(opCtx, key, b, deps.SnapshotTTL); err != nil {
		log.WarnContext(ctx, "fixture snapshot store failed", "key", key, "err", err)
	}
}

func withTimeout(ctx context.Context, deps Deps) (context.Context, context.CancelFunc) {
	if deps.SnapshotTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, deps.SnapshotTimeout)
}
