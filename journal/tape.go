package journal

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"minyoung-maker/affection"
)

const tapeVersion = 1

// EntryRejected marks a command the engine refused. Rejections are part of
// the tape so replays of the same script match.
const EntryRejected = "rejected"

type Tape struct {
	TapeVersion int                 `json:"tape_version"`
	ID          string              `json:"id"`
	Seed        int64               `json:"seed,omitempty"`
	Entries     []Entry             `json:"entries"`
	Final       *affection.Snapshot `json:"final,omitempty"`
}

// Entry is one sequenced event. Type is the event kind, or EntryRejected.
type Entry struct {
	Seq   uint64          `json:"seq"`
	Type  string          `json:"type"`
	AtMs  int64           `json:"at_ms"`
	Event affection.Event `json:"event"`
	Op    Op              `json:"op,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Recorder collects engine events into a tape. Pass Notify to
// affection.WithNotifier. Sinks see every entry as it is recorded.
type Recorder struct {
	mu    sync.Mutex
	now   func() time.Time
	tape  Tape
	seq   uint64
	limit int
	sinks []func(Entry)
}

// SetLimit keeps only the newest n entries. Zero keeps everything.
func (r *Recorder) SetLimit(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limit = n
}

// NewRecorder starts a tape. An empty id gets a random UUID.
func NewRecorder(id string, now func() time.Time, sinks ...func(Entry)) *Recorder {
	if id == "" {
		id = uuid.NewString()
	}
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		now:   now,
		tape:  Tape{TapeVersion: tapeVersion, ID: id, Entries: make([]Entry, 0, 64)},
		sinks: sinks,
	}
}

func (r *Recorder) ID() string { return r.tape.ID }

func (r *Recorder) Notify(ev affection.Event) {
	r.push(Entry{Type: string(ev.Kind), Event: ev})
}

func (r *Recorder) Reject(cmd Command, err error) {
	r.push(Entry{Type: EntryRejected, Op: cmd.Op, Error: err.Error()})
}

func (r *Recorder) push(en Entry) {
	r.mu.Lock()
	r.seq++
	en.Seq = r.seq
	en.AtMs = r.now().UnixMilli()
	r.tape.Entries = append(r.tape.Entries, en)
	if r.limit > 0 && len(r.tape.Entries) > r.limit {
		r.tape.Entries = append(r.tape.Entries[:0], r.tape.Entries[len(r.tape.Entries)-r.limit:]...)
	}
	sinks := r.sinks
	r.mu.Unlock()

	for _, sink := range sinks {
		sink(en)
	}
}

// Tape returns a copy of what has been recorded so far.
func (r *Recorder) Tape() Tape {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.tape
	t.Entries = append([]Entry(nil), r.tape.Entries...)
	return t
}
