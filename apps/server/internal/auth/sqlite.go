package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"minyoung-maker/apps/server/internal/localdb"
)

var sqliteSchema = []string{
	`
CREATE TABLE IF NOT EXISTS players (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    password_hash TEXT,
    guest INTEGER NOT NULL DEFAULT 0,
    created_at_ms INTEGER NOT NULL,
    last_login_at_ms INTEGER
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_players_name_ci ON players(lower(name))`,
	`
CREATE TABLE IF NOT EXISTS player_sessions (
    token TEXT PRIMARY KEY,
    player_id INTEGER NOT NULL,
    issued_at_ms INTEGER NOT NULL,
    expires_at_ms INTEGER NOT NULL,
    revoked_at_ms INTEGER,
    FOREIGN KEY(player_id) REFERENCES players(id) ON DELETE CASCADE
)`,
	`CREATE INDEX IF NOT EXISTS idx_player_sessions_player ON player_sessions(player_id, expires_at_ms DESC)`,
}

type SQLiteManager struct {
	db         *sql.DB
	sessionTTL time.Duration
}

func NewSQLiteManagerFromEnv() (*SQLiteManager, error) {
	dbPath, err := localdb.PathFromEnv("AUTH_LOCAL_DATABASE_PATH", "SAVE_LOCAL_DATABASE_PATH")
	if err != nil {
		return nil, err
	}
	return NewSQLiteManager(dbPath, defaultSessionTTL)
}

func NewSQLiteManager(dbPath string, sessionTTL time.Duration) (*SQLiteManager, error) {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	db, err := localdb.Open(dbPath, sqliteSchema...)
	if err != nil {
		return nil, err
	}
	return &SQLiteManager{db: db, sessionTTL: sessionTTL}, nil
}

func (m *SQLiteManager) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (m *SQLiteManager) Register(name, password string) (Player, string, error) {
	key, hash, err := credentials(name, password)
	if err != nil {
		return Player{}, "", err
	}
	p, token, err := m.insertPlayer(key, string(hash), false)
	if localdb.IsUniqueViolation(err) {
		return Player{}, "", ErrNameTaken
	}
	return p, token, err
}

func (m *SQLiteManager) Guest() (Player, string, error) {
	for i := 0; i < 5; i++ {
		p, token, err := m.insertPlayer(guestName(), "", true)
		if localdb.IsUniqueViolation(err) {
			continue
		}
		return p, token, err
	}
	return Player{}, "", fmt.Errorf("failed to allocate guest name")
}

func (m *SQLiteManager) insertPlayer(name, hash string, guest bool) (Player, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return Player{}, "", err
	}
	defer tx.Rollback()

	nowMs := time.Now().UTC().UnixMilli()
	res, err := tx.ExecContext(ctx, `
INSERT INTO players (name, password_hash, guest, created_at_ms, last_login_at_ms)
VALUES (?, NULLIF(?, ''), ?, ?, ?)
`, name, hash, guest, nowMs, nowMs)
	if err != nil {
		return Player{}, "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Player{}, "", err
	}
	token, err := m.issueSessionTx(ctx, tx, uint64(id), nowMs)
	if err != nil {
		return Player{}, "", err
	}
	if err := tx.Commit(); err != nil {
		return Player{}, "", err
	}
	return Player{ID: uint64(id), Name: name, Guest: guest}, token, nil
}

func (m *SQLiteManager) Login(name, password string) (Player, string, error) {
	key := normalizeName(name)
	if key == "" || password == "" {
		return Player{}, "", ErrInvalidCredentials
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p := Player{Name: key}
	var hash sql.NullString
	err := m.db.QueryRowContext(ctx, `
SELECT id, password_hash
FROM players
WHERE lower(name) = ? AND guest = 0
`, key).Scan(&p.ID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return Player{}, "", err
	}
	if !hash.Valid || bcrypt.CompareHashAndPassword([]byte(hash.String), []byte(password)) != nil {
		return Player{}, "", ErrInvalidCredentials
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return Player{}, "", err
	}
	defer tx.Rollback()

	nowMs := time.Now().UTC().UnixMilli()
	if _, err := tx.ExecContext(ctx, `UPDATE players SET last_login_at_ms = ? WHERE id = ?`, nowMs, p.ID); err != nil {
		return Player{}, "", err
	}
	token, err := m.issueSessionTx(ctx, tx, p.ID, nowMs)
	if err != nil {
		return Player{}, "", err
	}
	if err := tx.Commit(); err != nil {
		return Player{}, "", err
	}
	return p, token, nil
}

func (m *SQLiteManager) Claim(token, name, password string) (Player, error) {
	key, hash, err := credentials(name, password)
	if err != nil {
		return Player{}, err
	}
	p, ok := m.ResolveSession(token)
	if !ok {
		return Player{}, ErrInvalidCredentials
	}
	if !p.Guest {
		return Player{}, ErrNotGuest
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := m.db.ExecContext(ctx, `
UPDATE players
SET name = ?, password_hash = ?, guest = 0
WHERE id = ? AND guest = 1
`, key, string(hash), p.ID)
	if localdb.IsUniqueViolation(err) {
		return Player{}, ErrNameTaken
	}
	if err != nil {
		return Player{}, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return Player{}, ErrNotGuest
	}
	return Player{ID: p.ID, Name: key}, nil
}

func (m *SQLiteManager) ResolveSession(token string) (Player, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Player{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	nowMs := time.Now().UTC().UnixMilli()
	res, err := m.db.ExecContext(ctx, `
UPDATE player_sessions
SET expires_at_ms = ?
WHERE token = ?
  AND revoked_at_ms IS NULL
  AND expires_at_ms > ?
`, nowMs+m.sessionTTL.Milliseconds(), token, nowMs)
	if err != nil {
		return Player{}, false
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return Player{}, false
	}

	var p Player
	err = m.db.QueryRowContext(ctx, `
SELECT p.id, p.name, p.guest
FROM player_sessions AS s
JOIN players AS p ON p.id = s.player_id
WHERE s.token = ?
`, token).Scan(&p.ID, &p.Name, &p.Guest)
	if err != nil {
		return Player{}, false
	}
	return p, true
}

func (m *SQLiteManager) Logout(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = m.db.ExecContext(ctx, `
UPDATE player_sessions
SET revoked_at_ms = ?
WHERE token = ? AND revoked_at_ms IS NULL
`, time.Now().UTC().UnixMilli(), token)
}

func (m *SQLiteManager) issueSessionTx(ctx context.Context, tx *sql.Tx, playerID uint64, nowMs int64) (string, error) {
	for i := 0; i < 5; i++ {
		token := mustToken()
		_, err := tx.ExecContext(ctx, `
INSERT INTO player_sessions (token, player_id, issued_at_ms, expires_at_ms)
VALUES (?, ?, ?, ?)
`, token, playerID, nowMs, nowMs+m.sessionTTL.Milliseconds())
		if localdb.IsUniqueViolation(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		return token, nil
	}
	return "", fmt.Errorf("failed to generate unique session token")
}
