package lobby

import (
	"context"
	"log"
	"sync"
	"time"

	"minyoung-maker/affection"
	"minyoung-maker/affection/script"
	"minyoung-maker/apps/server/internal/history"
	"minyoung-maker/apps/server/internal/save"
	"minyoung-maker/apps/server/internal/session"
)

const (
	reapInterval = time.Minute
	detachedTTL  = 10 * time.Minute
)

// Lobby keeps at most one live session per player.
type Lobby struct {
	mu       sync.Mutex
	sessions map[uint64]*attached
	closed   bool
	done     chan struct{}

	config  affection.Config
	content *script.Registry
	saves   save.Service
	history history.Service
}

type attached struct {
	s   *session.Session
	gen uint64
}

func New(cfg affection.Config, content *script.Registry, saves save.Service, hist history.Service) *Lobby {
	l := &Lobby{
		sessions: make(map[uint64]*attached),
		done:     make(chan struct{}),
		config:   cfg,
		content:  content,
		saves:    saves,
		history:  hist,
	}
	go l.reap()
	return l
}

// Attach finds or creates the player's session and points it at send.
// The returned generation is passed back to Detach, so a stale connection
// cannot detach a newer one.
func (l *Lobby) Attach(playerID uint64, send func(session.Frame)) (*session.Session, uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, 0, session.ErrSessionClosed
	}

	a := l.sessions[playerID]
	if a == nil || a.s.IsClosed() {
		s, err := session.New(session.Options{
			PlayerID: playerID,
			Config:   l.config,
			Content:  l.content,
			Store:    save.Bind(l.saves, playerID),
			History:  l.history,
		})
		if err != nil {
			return nil, 0, err
		}
		a = &attached{s: s}
		l.sessions[playerID] = a
		log.Printf("[Lobby] Player %d: new session %s", playerID, s.ID)
	}
	a.gen++
	a.s.SetSink(send)
	return a.s, a.gen, nil
}

func (l *Lobby) Detach(playerID, gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a := l.sessions[playerID]; a != nil && a.gen == gen {
		a.s.SetSink(nil)
	}
}

// Reset wipes the player's save and ends the live session; the next
// Attach starts fresh.
func (l *Lobby) Reset(ctx context.Context, playerID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Close returns once the actor has exited, and Attach waits on l.mu,
	// so nothing can save over the wipe.
	if a := l.sessions[playerID]; a != nil {
		a.s.Close()
		delete(l.sessions, playerID)
	}
	return l.saves.Reset(ctx, playerID)
}

func (l *Lobby) Session(playerID uint64) *session.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a := l.sessions[playerID]; a != nil {
		return a.s
	}
	return nil
}

func (l *Lobby) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.done)
	for id, a := range l.sessions {
		a.s.Close()
		delete(l.sessions, id)
	}
}

func (l *Lobby) reap() {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.reapIdle(detachedTTL)
		case <-l.done:
			return
		}
	}
}

func (l *Lobby) reapIdle(ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, a := range l.sessions {
		if a.s.IsIdleFor(ttl) {
			a.s.Close()
			delete(l.sessions, id)
			log.Printf("[Lobby] Player %d: session %s reaped", id, a.s.ID)
		}
	}
}
