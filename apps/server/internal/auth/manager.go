package auth

import (
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Manager keeps players and sessions in memory. Everything is lost on
// restart; use SQLiteManager for a persistent install.
type Manager struct {
	mu sync.Mutex

	nextPlayerID uint64
	sessionTTL   time.Duration
	sessions     map[string]session
	players      map[uint64]*player
	byName       map[string]uint64
}

type session struct {
	PlayerID  uint64
	ExpiresAt time.Time
}

type player struct {
	Player
	PasswordHash []byte
	LastLogin    time.Time
}

func NewManager() *Manager {
	return &Manager{
		nextPlayerID: 1000,
		sessionTTL:   defaultSessionTTL,
		sessions:     make(map[string]session),
		players:      make(map[uint64]*player),
		byName:       make(map[string]uint64),
	}
}

func (m *Manager) Close() error { return nil }

func (m *Manager) Register(name, password string) (Player, string, error) {
	key, hash, err := credentials(name, password)
	if err != nil {
		return Player{}, "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byName[key]; taken {
		return Player{}, "", ErrNameTaken
	}
	p := m.addPlayerLocked(key, hash, false)
	return p.Player, m.issueLocked(p.ID), nil
}

func (m *Manager) Login(name, password string) (Player, string, error) {
	key := normalizeName(name)
	if key == "" || password == "" {
		return Player{}, "", ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.players[m.byName[key]]
	if p == nil || p.Guest || bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(password)) != nil {
		return Player{}, "", ErrInvalidCredentials
	}
	p.LastLogin = time.Now()
	return p.Player, m.issueLocked(p.ID), nil
}

func (m *Manager) Guest() (Player, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := guestName()
	for _, taken := m.byName[name]; taken; _, taken = m.byName[name] {
		name = guestName()
	}
	p := m.addPlayerLocked(name, nil, true)
	return p.Player, m.issueLocked(p.ID), nil
}

func (m *Manager) Claim(token, name, password string) (Player, error) {
	key, hash, err := credentials(name, password)
	if err != nil {
		return Player{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.sessionPlayerLocked(token, time.Now())
	if p == nil {
		return Player{}, ErrInvalidCredentials
	}
	if !p.Guest {
		return Player{}, ErrNotGuest
	}
	if _, taken := m.byName[key]; taken {
		return Player{}, ErrNameTaken
	}
	delete(m.byName, p.Name)
	p.Name = key
	p.Guest = false
	p.PasswordHash = hash
	m.byName[key] = p.ID
	return p.Player, nil
}

// ResolveSession validates token and slides its expiry forward.
func (m *Manager) ResolveSession(token string) (Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.sessionPlayerLocked(token, time.Now())
	if p == nil {
		return Player{}, false
	}
	return p.Player, true
}

func (m *Manager) Logout(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

func (m *Manager) sessionPlayerLocked(token string, now time.Time) *player {
	s, ok := m.sessions[token]
	if !ok {
		return nil
	}
	if !now.Before(s.ExpiresAt) {
		delete(m.sessions, token)
		return nil
	}
	s.ExpiresAt = now.Add(m.sessionTTL)
	m.sessions[token] = s
	return m.players[s.PlayerID]
}

func (m *Manager) addPlayerLocked(name string, hash []byte, guest bool) *player {
	m.nextPlayerID++
	p := &player{
		Player:       Player{ID: m.nextPlayerID, Name: name, Guest: guest},
		PasswordHash: hash,
		LastLogin:    time.Now(),
	}
	m.players[p.ID] = p
	m.byName[name] = p.ID
	return p
}

func (m *Manager) issueLocked(playerID uint64) string {
	token := mustToken()
	m.sessions[token] = session{PlayerID: playerID, ExpiresAt: time.Now().Add(m.sessionTTL)}
	return token
}
