package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
)

type HTTPHandler struct {
	players Service
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// signedIn is returned by every route that issues a token.
type signedIn struct {
	Player
	SessionToken string `json:"session_token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(players Service) *HTTPHandler {
	return &HTTPHandler{players: players}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", only(http.MethodPost, h.handleRegister))
	mux.HandleFunc("/api/auth/login", only(http.MethodPost, h.handleLogin))
	mux.HandleFunc("/api/auth/guest", only(http.MethodPost, h.handleGuest))
	mux.HandleFunc("/api/auth/claim", only(http.MethodPost, h.handleClaim))
	mux.HandleFunc("/api/auth/logout", only(http.MethodPost, h.handleLogout))
	mux.HandleFunc("/api/auth/me", only(http.MethodGet, h.handleMe))
}

func only(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next(w, r)
	}
}

func (h *HTTPHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, token, err := h.players.Register(req.Name, req.Password)
	if err != nil {
		writeAccountError(w, "register", err)
		return
	}
	WriteJSON(w, http.StatusOK, signedIn{Player: p, SessionToken: token})
}

func (h *HTTPHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, token, err := h.players.Login(req.Name, req.Password)
	if err != nil {
		writeAccountError(w, "login", err)
		return
	}
	WriteJSON(w, http.StatusOK, signedIn{Player: p, SessionToken: token})
}

// handleGuest lets someone start raising a pet before choosing a name.
func (h *HTTPHandler) handleGuest(w http.ResponseWriter, r *http.Request) {
	p, token, err := h.players.Guest()
	if err != nil {
		writeAccountError(w, "guest", err)
		return
	}
	WriteJSON(w, http.StatusOK, signedIn{Player: p, SessionToken: token})
}

// handleClaim names a guest account. The token stays valid.
func (h *HTTPHandler) handleClaim(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		WriteError(w, http.StatusUnauthorized, "missing session token")
		return
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.players.Claim(token, req.Name, req.Password)
	if err != nil {
		writeAccountError(w, "claim", err)
		return
	}
	log.Printf("[Auth] Guest %d claimed name %s", p.ID, p.Name)
	WriteJSON(w, http.StatusOK, signedIn{Player: p, SessionToken: token})
}

func (h *HTTPHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		WriteError(w, http.StatusUnauthorized, "missing session token")
		return
	}
	h.players.Logout(token)
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := PlayerFromRequest(h.players, r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "invalid session token")
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func writeAccountError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidPassword):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNameTaken), errors.Is(err, ErrNotGuest):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid name or password")
	default:
		log.Printf("[Auth] %s failed: %v", action, err)
		WriteError(w, http.StatusInternalServerError, action+" failed")
	}
}

// PlayerFromRequest resolves the bearer token on r.
func PlayerFromRequest(players Service, r *http.Request) (Player, bool) {
	token := BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return Player{}, false
	}
	return players.ResolveSession(token)
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func BearerToken(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, errorResponse{Error: msg})
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
