package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultSessionTTL = 30 * 24 * time.Hour
	tokenBytes        = 32
)

var (
	ErrInvalidName        = errors.New("invalid player name")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrNameTaken          = errors.New("player name already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotGuest           = errors.New("player already has an account")
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{2,31}$`)

// Player is who a session token belongs to. Guests play without a
// password until they claim a name.
type Player struct {
	ID    uint64 `json:"player_id"`
	Name  string `json:"name"`
	Guest bool   `json:"guest"`
}

// Service is the player account contract used by the gateway and the
// HTTP handlers. Player ids key saves and history.
type Service interface {
	Register(name, password string) (Player, string, error)
	Login(name, password string) (Player, string, error)
	Guest() (Player, string, error)
	// Claim gives the guest behind token a name and password. The player id
	// does not change, so the pet's save carries over.
	Claim(token, name, password string) (Player, error)
	ResolveSession(token string) (Player, bool)
	Logout(token string)
	Close() error
}

// credentials validates a name and password and hashes the password.
func credentials(name, password string) (string, []byte, error) {
	if err := validateName(name); err != nil {
		return "", nil, err
	}
	if err := validatePassword(password); err != nil {
		return "", nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}
	return normalizeName(name), hash, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validateName(name string) error {
	if !namePattern.MatchString(strings.TrimSpace(name)) {
		return ErrInvalidName
	}
	return nil
}

// bcrypt ignores bytes past 72.
func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

func guestName() string {
	return "guest_" + mustToken()[:12]
}

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
