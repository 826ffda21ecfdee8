package history

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"minyoung-maker/apps/server/internal/auth"
)

type HTTPHandler struct {
	players auth.Service
	history Service
}

func NewHTTPHandler(players auth.Service, history Service) *HTTPHandler {
	return &HTTPHandler{players: players, history: history}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/history", h.handleList)
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		auth.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	player, ok := auth.PlayerFromRequest(h.players, r)
	if !ok {
		auth.WriteError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	items, err := h.history.List(ctx, player.ID, parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		auth.WriteError(w, http.StatusInternalServerError, "query history failed")
		return
	}
	auth.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultListLimit
	}
	return clampLimit(n)
}
