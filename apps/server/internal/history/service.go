package history

import (
	"context"
	"encoding/base64"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"minyoung-maker/apps/server/internal/localdb"
	"minyoung-maker/journal"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Item is one recorded entry of a player's activity. EntryB64 is the
// protobuf encoding from journal.EncodeEntryB64.
type Item struct {
	TapeID   string `json:"tape_id"`
	Seq      uint64 `json:"seq"`
	Type     string `json:"type"`
	AtMs     int64  `json:"at_ms"`
	EntryB64 string `json:"entry_b64"`
}

type Service interface {
	Close() error
	Append(ctx context.Context, playerID uint64, tapeID string, en journal.Entry) error
	List(ctx context.Context, playerID uint64, limit int) ([]Item, error)
}

type noopService struct{}

func (noopService) Close() error { return nil }

func (noopService) Append(context.Context, uint64, string, journal.Entry) error { return nil }

func (noopService) List(context.Context, uint64, int) ([]Item, error) { return []Item{}, nil }

// NoopService records nothing.
func NoopService() Service { return noopService{} }

// NewServiceFromEnv follows the save mode: memory saves keep no history.
func NewServiceFromEnv(mode string) (Service, string, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "memory" {
		return NoopService(), "memory-noop", nil
	}
	dbPath, err := localdb.PathFromEnv("HISTORY_LOCAL_DATABASE_PATH", "SAVE_LOCAL_DATABASE_PATH")
	if err != nil {
		return nil, "", err
	}
	service, err := NewSQLiteService(dbPath)
	if err != nil {
		return nil, "", err
	}
	return service, "sqlite", nil
}

var sqliteSchema = []string{
	`
CREATE TABLE IF NOT EXISTS activity_history (
    player_id INTEGER NOT NULL,
    tape_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    entry_type TEXT NOT NULL,
    at_ms INTEGER NOT NULL,
    entry_blob BLOB NOT NULL,
    PRIMARY KEY (tape_id, seq)
)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_history_player ON activity_history(player_id, at_ms DESC, seq DESC)`,
}

type SQLiteService struct {
	db *sql.DB
}

func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	db, err := localdb.Open(dbPath, sqliteSchema...)
	if err != nil {
		return nil, err
	}
	return &SQLiteService{db: db}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) Append(ctx context.Context, playerID uint64, tapeID string, en journal.Entry) error {
	blob, err := journal.EncodeEntry(en)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
INSERT INTO activity_history (player_id, tape_id, seq, entry_type, at_ms, entry_blob)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(tape_id, seq) DO NOTHING
`, playerID, tapeID, en.Seq, en.Type, en.AtMs, blob)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// List returns the newest entries first.
func (s *SQLiteService) List(ctx context.Context, playerID uint64, limit int) ([]Item, error) {
	limit = clampLimit(limit)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
SELECT tape_id, seq, entry_type, at_ms, entry_blob
FROM activity_history
WHERE player_id = ?
ORDER BY at_ms DESC, seq DESC
LIMIT ?
`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0, limit)
	for rows.Next() {
		var it Item
		var blob []byte
		if err := rows.Scan(&it.TapeID, &it.Seq, &it.Type, &it.AtMs, &blob); err != nil {
			return nil, err
		}
		it.EntryB64 = base64.StdEncoding.EncodeToString(blob)
		items = append(items, it)
	}
	return items, rows.Err()
}

func clampLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
