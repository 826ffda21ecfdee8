package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"minyoung-maker/affection"
	"minyoung-maker/affection/script"
)

// scriptEpoch is time zero for scripted runs.
var scriptEpoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

type steppedClock struct{ t time.Time }

func (c *steppedClock) Now() time.Time { return c.t }

// Run replays s against a fresh engine seeded from the script, on a clock
// that only moves to each command's offset. The tape id is derived from
// the script, so the same script always yields the same tape.
func Run(s Script) (*Tape, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}

	cfg := affection.DefaultConfig()
	if s.Tuning != "" {
		tuned, err := script.ApplyTuning([]byte(s.Tuning), cfg)
		if err != nil {
			return nil, err
		}
		cfg = tuned
	}
	cfg.Seed = s.Seed
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}

	content, err := script.Default()
	if err != nil {
		return nil, err
	}

	clock := &steppedClock{t: scriptEpoch}
	rec := NewRecorder(tapeID(s), clock.Now)
	engine, err := affection.NewEngine(cfg, affection.NewMemoryStore(s.State), content.Catalog(),
		affection.WithClock(clock.Now),
		affection.WithNotifier(rec.Notify),
	)
	if err != nil {
		return nil, fmt.Errorf("engine init: %w", err)
	}
	engine.Start()

	d := NewDriver(engine, content)
	for _, cmd := range s.Commands {
		clock.t = scriptEpoch.Add(time.Duration(cmd.AtMs) * time.Millisecond)
		if _, err := d.Apply(cmd); err != nil {
			rec.Reject(cmd, err)
		}
	}

	tape := rec.Tape()
	tape.Seed = cfg.Seed
	final := engine.Snapshot()
	tape.Final = &final
	return &tape, nil
}

func tapeID(s Script) string {
	data, err := json.Marshal(s)
	if err != nil {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, data).String()
}
