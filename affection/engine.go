package affection

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// SnapshotStore is the persistence adapter for one player's snapshot.
// LoadSnapshot returns (nil, nil) when nothing has been saved yet.
type SnapshotStore interface {
	LoadSnapshot() ([]byte, error)
	SaveSnapshot(data []byte) error
}

type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithNotifier receives every event after the engine lock is released.
// The notifier may call back into the engine.
func WithNotifier(fn func(Event)) Option {
	return func(e *Engine) { e.notify = fn }
}

// WithAssets reports whether a sprite identifier exists.
func WithAssets(fn func(sprite string) bool) Option {
	return func(e *Engine) { e.assets = fn }
}

// Engine owns one player's progression state. Every exported method is
// serialized on an internal mutex; events are delivered after it is
// released.
type Engine struct {
	cfg     Config
	catalog Catalog
	store   SnapshotStore
	rng     *rand.Rand
	now     func() time.Time
	notify  func(Event)
	assets  func(string) bool

	mu      sync.Mutex
	state   State
	arbiter Arbiter
	modal   *Modal

	trials map[int]*fsm.FSM
	ending *fsm.FSM

	// Active run (mini-game, trial or ending). Zero when nothing runs.
	runID     uint64
	runSeq    uint64
	modalSeq  uint64
	story     *endingProgress
	cheatHold map[string]Amount

	outbox   []Event
	hudDirty bool
}

func NewEngine(cfg Config, store SnapshotStore, catalog Catalog, opts ...Option) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := catalog.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	if store == nil {
		store = NewMemoryStore(nil)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := &Engine{
		cfg:       cfg,
		catalog:   catalog,
		store:     store,
		rng:       rand.New(rand.NewSource(seed)),
		now:       time.Now,
		cheatHold: make(map[string]Amount),
	}
	for _, opt := range opts {
		opt(e)
	}

	// A failed load must not fall through to defaults: the first gating
	// pass would persist them over the real save.
	data, err := store.LoadSnapshot()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	st, err := DecodeState(data, e.now())
	if err != nil {
		log.Printf("[Engine] Snapshot recovered with defaults: %v", err)
	}
	e.state = st
	e.trials = make(map[int]*fsm.FSM, len(trialStages))
	for _, stage := range trialStages {
		e.trials[stage] = newTrialMachine(stage, st.StageTrialPassed[stage])
	}
	e.ending = newEndingMachine(st.EndingSeen)
	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Start runs the first gating pass of a session, greets the player and
// may roll a home popup.
func (e *Engine) Start() {
	e.mu.Lock()
	e.sayLocked(fmt.Sprintf("Your mission is simple: make %s laugh, feed her, and impress her with gifts 💗", e.cfg.Name))
	e.recomputeLocked()
	if e.rng.Float64() < e.cfg.HomePopupRoll {
		e.maybeTriggerPopupLocked(PopupHome)
	}
	e.unlock()
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) CanInterrupt() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arbiter.CanInterrupt()
}

// Modal returns the open modal, if any.
func (e *Engine) Modal() (Modal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.modal == nil {
		return Modal{}, false
	}
	return *e.modal, true
}

func (e *Engine) Owns(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.owns(name)
}

// ReturnToMenu clears the interruption arbiter and re-evaluates gating.
func (e *Engine) ReturnToMenu() {
	e.mu.Lock()
	e.returnToMenuLocked()
	e.unlock()
}

func (e *Engine) returnToMenuLocked() {
	e.arbiter.reset()
	e.runID = 0
	e.story = nil
	e.recomputeLocked()
}

// Quit unwinds whatever is running. Safe to call when nothing runs.
func (e *Engine) Quit() {
	e.mu.Lock()
	e.quitLocked()
	e.unlock()
}

func (e *Engine) quitLocked() {
	e.touchActionLocked()
	if e.arbiter.Trial || e.arbiter.Ending {
		e.state.TrialCooldownUntil = e.nowMs() + e.cfg.QuitCooldown.Milliseconds()
	}
	for _, stage := range trialStages {
		fire(e.trials[stage], evQuit)
	}
	fire(e.ending, evQuit)
	e.persistLocked()
	e.returnToMenuLocked()
}

func (e *Engine) nowMs() int64 { return e.now().UnixMilli() }

func (e *Engine) nextRunLocked() uint64 {
	e.runSeq++
	e.runID = e.runSeq
	return e.runID
}

func (e *Engine) persistLocked() {
	data, err := e.state.Encode()
	if err != nil {
		log.Printf("[Engine] Encode snapshot failed: %v", err)
		return
	}
	if err := e.store.SaveSnapshot(data); err != nil {
		log.Printf("[Engine] Save snapshot failed: %v", err)
	}
}

func (e *Engine) emitLocked(ev Event) {
	e.outbox = append(e.outbox, ev)
}

func (e *Engine) sayLocked(text string) {
	e.emitLocked(Event{Kind: EventDialogue, Text: text})
}

func (e *Engine) renderLocked() { e.hudDirty = true }

// unlock releases the mutex and then delivers queued events, with a HUD
// refresh last if anything rendered.
func (e *Engine) unlock() {
	out := e.outbox
	e.outbox = nil
	if e.hudDirty {
		e.hudDirty = false
		snap := e.snapshotLocked()
		out = append(out, Event{Kind: EventHUD, Snapshot: &snap})
	}
	e.mu.Unlock()

	if e.notify == nil {
		return
	}
	for _, ev := range out {
		e.notify(ev)
	}
}
