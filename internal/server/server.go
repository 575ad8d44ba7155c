// Package server is the HTTP transport: one chat endpoint, a health check
// and the webhook verification handshake. It stays thin; every turn goes
// straight to the orchestrator.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	logx "github.com/agente-usados/server/pkg/logger"
)

// ChatHandler processes one conversational turn.
type ChatHandler interface {
	Chat(ctx context.Context, threadID, message string) (string, error)
}

// HealthChecker reports collaborator liveness for the health endpoint.
type HealthChecker func(ctx context.Context) map[string]string

// Config holds the transport settings.
type Config struct {
	Addr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	WebhookToken    string        `envconfig:"WEBHOOK_VERIFY_TOKEN"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"5s"`
}

// Server serves the chat API.
type Server struct {
	chat   ChatHandler
	health HealthChecker
	cfg    Config
}

func New(cfg Config, chat ChatHandler, health HealthChecker) *Server {
	return &Server{chat: chat, health: health, cfg: cfg}
}

// Handler builds the full route tree with middleware, exposed separately so
// tests can drive it without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/webhook", s.handleWebhook)
	return corsMiddleware(loggingMiddleware(mux))
}

// Start runs the server until the context is cancelled, then drains.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	logx.Info().Str("addr", s.cfg.Addr).Msg("HTTP server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logx.Error().Err(err).Msg("HTTP shutdown failed")
		}
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

type chatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
}

type chatResponse struct {
	Reply    string `json:"reply"`
	ThreadID string `json:"thread_id"`
}

// handleChat runs one turn. A missing thread id starts a new thread; the id
// is echoed back in the body and the X-Thread-Id header, and the caller must
// resend it to keep the conversation.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	reply, err := s.chat.Chat(r.Context(), threadID, req.Message)
	if err != nil {
		logx.Error().Err(err).Str("threadID", threadID).Msg("Chat turn failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Thread-Id", threadID)
	json.NewEncoder(w).Encode(chatResponse{Reply: reply, ThreadID: threadID})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.health != nil {
		for k, v := range s.health(r.Context()) {
			status[k] = v
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// handleWebhook answers the messaging-platform subscription handshake:
// echo hub.challenge when the verify token matches.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && s.cfg.WebhookToken != "" &&
		q.Get("hub.verify_token") == s.cfg.WebhookToken {
		w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	http.Error(w, "Verification failed", http.StatusForbidden)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logx.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
