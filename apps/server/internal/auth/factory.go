package auth

import (
	"fmt"
	"os"
	"strings"
)

// Mode selects where accounts live.
type Mode string

const (
	ModeMemory Mode = "memory"
	ModeSQLite Mode = "sqlite"
)

// ParseMode reads an AUTH_MODE value. Empty means SQLite, so accounts and
// pets survive a restart by default.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "sqlite", "local":
		return ModeSQLite, nil
	case "memory", "mem":
		return ModeMemory, nil
	}
	return "", fmt.Errorf("invalid AUTH_MODE %q (supported: %s, %s)", raw, ModeMemory, ModeSQLite)
}

func NewService(mode Mode) (Service, error) {
	if mode == ModeMemory {
		return NewManager(), nil
	}
	return NewSQLiteManagerFromEnv()
}

// NewServiceFromEnv builds the account service from AUTH_MODE and reports
// the mode it settled on.
func NewServiceFromEnv() (Service, string, error) {
	mode, err := ParseMode(os.Getenv("AUTH_MODE"))
	if err != nil {
		return nil, "", err
	}
	svc, err := NewService(mode)
	if err != nil {
		return nil, string(mode), err
	}
	return svc, string(mode), nil
}
