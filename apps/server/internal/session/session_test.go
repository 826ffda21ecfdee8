package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"minyoung-maker/affection"
	"minyoung-maker/affection/script"
	"minyoung-maker/journal"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	content, err := script.Default()
	if err != nil {
		t.Fatalf("script.Default err: %v", err)
	}
	cfg := affection.DefaultConfig()
	cfg.Seed = 1
	cfg.HomePopupRoll = 0
	cfg.PopupChance = map[affection.PopupContext]float64{affection.PopupAny: 0}

	s, err := New(Options{PlayerID: 77, Config: cfg, Content: content})
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

type frameLog struct {
	mu     sync.Mutex
	frames []Frame
}

func (l *frameLog) add(f Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = append(l.frames, f)
}

func (l *frameLog) kinds() map[affection.EventKind]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[affection.EventKind]int)
	for _, f := range l.frames {
		out[f.Event.Kind]++
	}
	return out
}

func TestSubmit_TrialFlowPushesFrames(t *testing.T) {
	s := newTestSession(t)
	var log frameLog
	s.SetSink(log.add)

	if _, err := s.Submit(journal.Command{Op: journal.OpReward, Affection: 500}); err != nil {
		t.Fatalf("reward err: %v", err)
	}
	if _, err := s.Submit(journal.Command{Op: journal.OpEnterTrial}); err != nil {
		t.Fatalf("enter trial err: %v", err)
	}
	if _, err := s.Submit(journal.Command{Op: journal.OpFinishTrial, Passed: true}); err != nil {
		t.Fatalf("finish trial err: %v", err)
	}
	reply, err := s.Submit(journal.Command{Op: journal.OpSnapshot})
	if err != nil {
		t.Fatalf("snapshot err: %v", err)
	}
	if reply.Snapshot == nil || reply.Snapshot.Stage != 2 {
		t.Fatalf("expected stage 2, got %+v", reply.Snapshot)
	}

	kinds := log.kinds()
	if kinds[affection.EventModal] == 0 || kinds[affection.EventTrialStart] != 1 || kinds[affection.EventStage] != 1 {
		t.Fatalf("unexpected frames %v", kinds)
	}
}

func TestSubmit_RejectionReturnsErrorAndIsTaped(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Submit(journal.Command{Op: journal.OpBuy, Item: "perfume"})
	if !errors.Is(err, affection.ErrInsufficientHearts) {
		t.Fatalf("expected ErrInsufficientHearts, got %v", err)
	}
	tape := s.Tape()
	last := tape.Entries[len(tape.Entries)-1]
	if last.Type != journal.EntryRejected || last.Op != journal.OpBuy {
		t.Fatalf("expected rejected buy on tape, got %+v", last)
	}
}

func TestClose_SubmitFails(t *testing.T) {
	s := newTestSession(t)
	s.Close()
	s.Close()
	if _, err := s.Submit(journal.Command{Op: journal.OpTouch}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if !s.IsIdleFor(0) {
		t.Fatalf("closed session counts as idle")
	}
}

type unreachableStore struct{ saves int }

func (s *unreachableStore) LoadSnapshot() ([]byte, error) { return nil, errors.New("connection refused") }

func (s *unreachableStore) SaveSnapshot([]byte) error {
	s.saves++
	return nil
}

func TestNew_LoadFailureRefusesSession(t *testing.T) {
	content, err := script.Default()
	if err != nil {
		t.Fatal(err)
	}
	store := &unreachableStore{}
	if _, err := New(Options{PlayerID: 78, Config: affection.DefaultConfig(), Content: content, Store: store}); err == nil {
		t.Fatalf("expected New to fail when the save cannot be loaded")
	}
	if store.saves != 0 {
		t.Fatalf("expected no saves, got %d", store.saves)
	}
}

func TestClose_NoSavesAfterReturn(t *testing.T) {
	content, err := script.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg := affection.DefaultConfig()
	cfg.HomePopupRoll = 0
	store := affection.NewMemoryStore(nil)
	s, err := New(Options{PlayerID: 79, Config: cfg, Content: content, Store: store})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(journal.Command{Op: journal.OpReward, Hearts: 3}); err != nil {
		t.Fatal(err)
	}
	s.Close()
	before := store.Saves()
	time.Sleep(2 * cfg.IdleTick)
	if store.Saves() != before {
		t.Fatalf("session saved after Close returned")
	}
}
