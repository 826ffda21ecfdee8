package save

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"minyoung-maker/apps/server/internal/localdb"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS save_snapshots (
    player_id INTEGER NOT NULL,
    save_key TEXT NOT NULL,
    data TEXT NOT NULL,
    updated_at_ms INTEGER NOT NULL,
    PRIMARY KEY (player_id, save_key)
)`

type sqliteService struct {
	db *sql.DB
}

func NewSQLiteServiceFromEnv() (Service, string, error) {
	dbPath, err := localdb.PathFromEnv("SAVE_LOCAL_DATABASE_PATH")
	if err != nil {
		return nil, "", err
	}
	service, err := NewSQLiteService(dbPath)
	if err != nil {
		return nil, "", err
	}
	return service, "sqlite", nil
}

func NewSQLiteService(dbPath string) (Service, error) {
	db, err := localdb.Open(dbPath, sqliteSchema)
	if err != nil {
		return nil, err
	}
	return &sqliteService{db: db}, nil
}

func (s *sqliteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteService) Load(ctx context.Context, playerID uint64) ([]byte, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var data []byte
	err := s.db.QueryRowContext(ctx, `
SELECT data
FROM save_snapshots
WHERE player_id = ? AND save_key = ?
`, playerID, SaveKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *sqliteService) Save(ctx context.Context, playerID uint64, data []byte) error {
	if playerID == 0 {
		return fmt.Errorf("invalid player id")
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO save_snapshots (player_id, save_key, data, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(player_id, save_key) DO UPDATE
SET data = excluded.data, updated_at_ms = excluded.updated_at_ms
`, playerID, SaveKey, string(data), time.Now().UTC().UnixMilli())
	return err
}

func (s *sqliteService) Reset(ctx context.Context, playerID uint64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
DELETE FROM save_snapshots
WHERE player_id = ? AND save_key = ?
`, playerID, SaveKey)
	return err
}
