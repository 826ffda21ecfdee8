package save

import (
	"context"

	"minyoung-maker/affection"
)

type boundStore struct {
	svc      Service
	playerID uint64
}

// Bind adapts svc to the engine's single-slot snapshot store for one
// player.
func Bind(svc Service, playerID uint64) affection.SnapshotStore {
	return &boundStore{svc: svc, playerID: playerID}
}

func (b *boundStore) LoadSnapshot() ([]byte, error) {
	return b.svc.Load(context.Background(), b.playerID)
}

func (b *boundStore) SaveSnapshot(data []byte) error {
	return b.svc.Save(context.Background(), b.playerID, data)
}
