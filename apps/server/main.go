package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"minyoung-maker/affection"
	"minyoung-maker/affection/script"
	"minyoung-maker/apps/server/internal/auth"
	"minyoung-maker/apps/server/internal/gateway"
	"minyoung-maker/apps/server/internal/history"
	"minyoung-maker/apps/server/internal/lobby"
	"minyoung-maker/apps/server/internal/save"
)

func main() {
	cfg, err := configFromEnv()
	if err != nil {
		log.Fatalf("[Server] Failed to load tuning: %v", err)
	}
	content, err := contentFromEnv()
	if err != nil {
		log.Fatalf("[Server] Failed to load content: %v", err)
	}

	authService, authMode, err := auth.NewServiceFromEnv()
	if err != nil {
		log.Fatalf("[Server] Failed to init auth manager: %v", err)
	}
	defer authService.Close()

	// Saves follow the auth mode unless SAVE_MODE says otherwise.
	saveMode := strings.TrimSpace(os.Getenv("SAVE_MODE"))
	if saveMode == "" {
		saveMode = authMode
	}
	saveService, saveMode, err := save.NewServiceFromEnv(saveMode)
	if err != nil {
		log.Fatalf("[Server] Failed to init save service: %v", err)
	}
	defer saveService.Close()

	historyService, historyMode, err := history.NewServiceFromEnv(saveMode)
	if err != nil {
		log.Fatalf("[Server] Failed to init history service: %v", err)
	}
	defer historyService.Close()

	lby := lobby.New(cfg, content, saveService, historyService)
	defer lby.Close()
	gw := gateway.New(lby, authService)
	authHTTP := auth.NewHTTPHandler(authService)
	historyHTTP := history.NewHTTPHandler(authService, historyService)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	authHTTP.RegisterRoutes(mux)
	historyHTTP.RegisterRoutes(mux)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: mux}

	log.Printf("[Server] Auth mode: %s", authMode)
	log.Printf("[Server] Save mode: %s", saveMode)
	log.Printf("[Server] History mode: %s", historyMode)
	log.Printf("[Server] Starting WebSocket server on %s", addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Server] Failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("[Server] Shutting down (%d open connections)", gw.Connections())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[Server] Shutdown error: %v", err)
	}
}

func configFromEnv() (affection.Config, error) {
	cfg := affection.DefaultConfig()
	path := strings.TrimSpace(os.Getenv("TUNING_PATH"))
	if path == "" {
		return cfg, nil
	}
	log.Printf("[Server] Tuning from %s", path)
	return script.LoadTuning(path, cfg)
}

func contentFromEnv() (*script.Registry, error) {
	content, err := script.Default()
	if err != nil {
		return nil, err
	}
	if dir := strings.TrimSpace(os.Getenv("CONTENT_DIR")); dir != "" {
		log.Printf("[Server] Content overrides from %s", dir)
		if err := content.LoadDir(dir); err != nil {
			return nil, err
		}
	}
	return content, nil
}
