// Package server exposes the webhook endpoint that translates
// source-host pull-request events into pipeline trigger events.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattsre/conflux/internal/orchestrator"
)

// Server handles incoming webhooks and runs sessions in the background.
type Server struct {
	orch   *orchestrator.Orchestrator
	logger *slog.Logger

	baseCtx context.Context
	wg      sync.WaitGroup
}

// New creates a webhook Server. Sessions started by webhooks run on
// baseCtx so an HTTP request finishing does not cancel its pipeline;
// cancelling baseCtx aborts in-flight sessions (including polls).
func New(baseCtx context.Context, orch *orchestrator.Orchestrator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{orch: orch, logger: logger, baseCtx: baseCtx}
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.health)
	r.Post("/webhook", s.webhook)
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type webhookPayload struct {
	Action      string `json:"action"`
	PullRequest *struct {
		Number int `json:"number"`
	} `json:"pull_request"`
	Issue *struct {
		Number      int `json:"number"`
		PullRequest *struct {
			URL string `json:"url"`
		} `json:"pull_request"`
	} `json:"issue"`
	Comment *struct {
		Body string `json:"body"`
	} `json:"comment"`
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

// webhook accepts pull_request and issue_comment events. The pipeline
// runs in the background; the hook responds immediately.
func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	event := r.Header.Get("X-GitHub-Event")

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("decode payload: %v", err), http.StatusBadRequest)
		return
	}
	owner := payload.Repository.Owner.Login
	repo := payload.Repository.Name

	switch event {
	case "pull_request":
		if payload.PullRequest == nil || !isTriggerAction(payload.Action) {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		ev := orchestrator.TriggerEvent{
			Owner:    owner,
			Repo:     repo,
			PRNumber: payload.PullRequest.Number,
			Action:   payload.Action,
		}
		s.spawn(func(ctx context.Context) {
			if _, err := s.orch.HandleTriggerEvent(ctx, ev); err != nil {
				s.logger.Error("trigger event failed", "pr", ev.PRNumber, "error", err)
			}
		})

	case "issue_comment":
		if payload.Action != "created" || payload.Issue == nil ||
			payload.Issue.PullRequest == nil || payload.Comment == nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		number := payload.Issue.Number
		body := payload.Comment.Body
		s.spawn(func(ctx context.Context) {
			if _, err := s.orch.HandleManualCommand(ctx, owner, repo, number, body); err != nil {
				s.logger.Error("manual command failed", "pr", number, "error", err)
			}
		})
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) spawn(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.baseCtx)
	}()
}

// Wait blocks until all in-flight sessions have finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func isTriggerAction(action string) bool {
	switch action {
	case "opened", "synchronize", "reopened":
		return true
	}
	return false
}
