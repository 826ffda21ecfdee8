package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"minyoung-maker/affection"
	"minyoung-maker/affection/script"
	"minyoung-maker/apps/server/internal/history"
	"minyoung-maker/journal"
)

var ErrSessionClosed = errors.New("session closed")

// tapeLimit bounds the in-memory tape; history keeps the full record.
const tapeLimit = 256

// Frame is one message pushed to the player's connection.
type Frame struct {
	Seq   uint64           `json:"seq"`
	Event *affection.Event `json:"event,omitempty"`
}

// Options configure a session. Store and History may be nil.
type Options struct {
	PlayerID uint64
	Config   affection.Config
	Content  *script.Registry
	Store    affection.SnapshotStore
	History  history.Service
}

type request struct {
	cmd   journal.Command
	reply chan result
}

type result struct {
	reply journal.Reply
	err   error
}

// Session owns one player's engine. Commands and the idle tick all run on
// the session goroutine, so the engine only ever sees one caller.
type Session struct {
	ID       string
	PlayerID uint64

	mu       sync.RWMutex
	send     func(Frame)
	closed   bool
	stopOnce sync.Once
	lastSeen time.Time

	requests chan request
	done     chan struct{}
	stopped  chan struct{}

	engine   *affection.Engine
	driver   *journal.Driver
	recorder *journal.Recorder
	history  history.Service
	idleTick time.Duration
}

func New(opts Options) (*Session, error) {
	if opts.Content == nil {
		return nil, fmt.Errorf("session needs content")
	}
	s := &Session{
		PlayerID: opts.PlayerID,
		requests: make(chan request, 64),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		history:  opts.History,
		idleTick: opts.Config.IdleTick,
		lastSeen: time.Now(),
	}
	if s.history == nil {
		s.history = history.NoopService()
	}
	s.recorder = journal.NewRecorder("", nil, s.deliver)
	s.recorder.SetLimit(tapeLimit)
	s.ID = s.recorder.ID()

	engine, err := affection.NewEngine(opts.Config, opts.Store, opts.Content.Catalog(),
		affection.WithNotifier(s.recorder.Notify),
	)
	if err != nil {
		return nil, err
	}
	s.engine = engine
	s.driver = journal.NewDriver(engine, opts.Content)

	go s.run()

	log.Printf("[Session %s] Created for player %d", s.ID, s.PlayerID)
	return s, nil
}

func (s *Session) run() {
	defer close(s.stopped)
	s.engine.Start()

	ticker := time.NewTicker(s.idleTick)
	defer ticker.Stop()

	for {
		select {
		case req := <-s.requests:
			reply, err := s.driver.Apply(req.cmd)
			if err != nil {
				s.recorder.Reject(req.cmd, err)
			}
			req.reply <- result{reply: reply, err: err}
		case <-ticker.C:
			s.engine.CheckIdle()
		case <-s.done:
			log.Printf("[Session %s] Actor stopped", s.ID)
			return
		}
	}
}

// Submit runs cmd on the session goroutine and waits for the outcome.
func (s *Session) Submit(cmd journal.Command) (journal.Reply, error) {
	s.mu.Lock()
	closed := s.closed
	s.lastSeen = time.Now()
	s.mu.Unlock()
	if closed {
		return journal.Reply{}, ErrSessionClosed
	}

	req := request{cmd: cmd, reply: make(chan result, 1)}
	select {
	case s.requests <- req:
	case <-s.done:
		return journal.Reply{}, ErrSessionClosed
	}
	select {
	case res := <-req.reply:
		return res.reply, res.err
	case <-s.done:
		return journal.Reply{}, ErrSessionClosed
	}
}

// SetSink replaces the connection frames are pushed to. nil drops frames.
func (s *Session) SetSink(send func(Frame)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = send
	s.lastSeen = time.Now()
}

// deliver runs on the session goroutine, from inside the engine notifier.
func (s *Session) deliver(en journal.Entry) {
	s.mu.RLock()
	send := s.send
	s.mu.RUnlock()

	if en.Type != string(affection.EventHUD) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := s.history.Append(ctx, s.PlayerID, s.ID, en); err != nil {
			log.Printf("[Session %s] history append failed: %v", s.ID, err)
		}
		cancel()
	}
	if send == nil || en.Type == journal.EntryRejected {
		return
	}
	ev := en.Event
	send(Frame{Seq: en.Seq, Event: &ev})
}

// Tape returns the recent in-memory tape.
func (s *Session) Tape() journal.Tape { return s.recorder.Tape() }

func (s *Session) IsIdleFor(ttl time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return true
	}
	return s.send == nil && time.Since(s.lastSeen) >= ttl
}

func (s *Session) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close stops the actor and waits for it to exit, so no save from this
// session lands after Close returns. Must not be called from the session
// goroutine.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.send = nil
	s.mu.Unlock()
	s.stopOnce.Do(func() {
		close(s.done)
	})
	<-s.stopped
}
