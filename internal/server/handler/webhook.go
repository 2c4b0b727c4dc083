// Package handler provides the HTTP handlers for the webhook and review API.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/platform"
	"github.com/sevigo/review-relay/internal/storage"
	"github.com/sevigo/review-relay/internal/webhook"
)

// maxPayloadBytes caps webhook bodies; platform payloads stay well under this.
const maxPayloadBytes = 10 << 20

// WebhookHandler receives platform webhook deliveries, validates them, and
// dispatches accepted pull request events to the review queue.
type WebhookHandler struct {
	parsers    *webhook.Registry
	adapters   *platform.Registry
	repos      storage.RepoStore
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewWebhookHandler creates the webhook handler.
func NewWebhookHandler(parsers *webhook.Registry, adapters *platform.Registry, repos storage.RepoStore, dispatcher core.JobDispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		parsers:    parsers,
		adapters:   adapters,
		repos:      repos,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

type webhookResponse struct {
	Message     string `json:"message"`
	Repository  string `json:"repository,omitempty"`
	PullRequest int    `json:"pullRequest,omitempty"`
}

// Handle processes one webhook delivery for the platform named in the URL.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	plat, err := core.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, webhookResponse{Message: "unsupported platform"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		h.logger.Error("failed to read webhook body", "platform", plat, "error", err)
		writeJSON(w, http.StatusBadRequest, webhookResponse{Message: "unreadable payload"})
		return
	}

	delivery := extractDelivery(plat, r)
	log := h.logger.With("platform", plat, "event", delivery.EventType, "delivery_id", delivery.DeliveryID)

	parser, err := h.parsers.Resolve(plat)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, webhookResponse{Message: "unsupported platform"})
		return
	}

	event, err := parser.Parse(body, delivery)
	if err != nil {
		log.Warn("malformed webhook payload", "error", err)
		writeJSON(w, http.StatusBadRequest, webhookResponse{Message: "malformed payload"})
		return
	}

	if !parser.ShouldProcess(event) {
		log.Debug("event skipped", "action", event.Action)
		writeJSON(w, http.StatusOK, webhookResponse{Message: "event skipped"})
		return
	}

	repo, err := h.resolveRepository(r, event)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Info("repository not configured", "repo", event.Repository.FullName)
			writeJSON(w, http.StatusOK, webhookResponse{
				Message:    "repository not configured, skipped",
				Repository: event.Repository.FullName,
			})
			return
		}
		log.Error("repository lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, webhookResponse{Message: "internal error"})
		return
	}

	if !h.validSignature(r, plat, repo, body, delivery) {
		log.Warn("webhook signature rejected", "repo", event.Repository.FullName)
		writeJSON(w, http.StatusUnauthorized, webhookResponse{Message: "invalid signature"})
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), event); err != nil {
		log.Error("failed to dispatch review job", "repo", event.Repository.FullName, "error", err)
		writeJSON(w, http.StatusInternalServerError, webhookResponse{Message: "failed to queue review"})
		return
	}

	log.Info("review job dispatched", "repo", event.Repository.FullName, "pr", event.PullRequest.Number)
	writeJSON(w, http.StatusOK, webhookResponse{
		Message:     "review queued",
		Repository:  event.Repository.FullName,
		PullRequest: event.PullRequest.Number,
	})
}

// resolveRepository mirrors the pipeline's lookup order so signature
// validation can use repository-level secrets.
func (h *WebhookHandler) resolveRepository(r *http.Request, event *core.CanonicalEvent) (*core.Repository, error) {
	repo, err := h.repos.GetByRemoteID(r.Context(), event.Platform, event.Repository.RemoteID)
	if errors.Is(err, storage.ErrNotFound) {
		repo, err = h.repos.GetByFullName(r.Context(), event.Platform, event.Repository.FullName)
	}
	return repo, err
}

// validSignature enforces the platform's signature scheme only when there is
// something to check on both sides: a configured secret and a signature on
// the delivery. An unsecured repository or an unsigned delivery passes
// through; a signature that is present but wrong is rejected.
func (h *WebhookHandler) validSignature(r *http.Request, plat core.Platform, repo *core.Repository, body []byte, delivery webhook.Delivery) bool {
	adapter, err := h.adapters.Resolve(plat)
	if err != nil {
		return false
	}
	settings, err := h.repos.GetPlatformSettings(r.Context(), plat)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.logger.Error("failed to load platform settings", "platform", plat, "error", err)
		return false
	}
	secret := core.WebhookSecretFor(repo, settings)
	if secret == "" || delivery.Token == "" {
		return true
	}
	return adapter.ValidateSignature(body, delivery.Token, secret)
}

// extractDelivery pulls the platform-specific webhook headers. The Token field
// carries whatever the platform uses for authentication: a digest on GitHub, a
// verbatim shared token on GitLab, nothing on Bitbucket.
func extractDelivery(plat core.Platform, r *http.Request) webhook.Delivery {
	switch plat {
	case core.PlatformGitHub:
		return webhook.Delivery{
			EventType:  r.Header.Get("X-GitHub-Event"),
			Token:      r.Header.Get("X-Hub-Signature-256"),
			DeliveryID: r.Header.Get("X-GitHub-Delivery"),
		}
	case core.PlatformGitLab:
		return webhook.Delivery{
			EventType: r.Header.Get("X-Gitlab-Event"),
			Token:     r.Header.Get("X-Gitlab-Token"),
		}
	case core.PlatformBitbucket:
		return webhook.Delivery{
			EventType:  r.Header.Get("X-Event-Key"),
			DeliveryID: r.Header.Get("X-Hook-UUID"),
		}
	}
	return webhook.Delivery{}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
