package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/review-relay/internal/review"
	"github.com/sevigo/review-relay/internal/storage"
)

// ReviewHandler serves the status of past and in-flight review runs.
type ReviewHandler struct {
	orchestrator *review.Orchestrator
	logger       *slog.Logger
}

// NewReviewHandler creates the review status handler.
func NewReviewHandler(orchestrator *review.Orchestrator, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{orchestrator: orchestrator, logger: logger}
}

type reviewStatusResponse struct {
	ID                int64      `json:"id"`
	RepositoryID      int64      `json:"repositoryId"`
	PullRequestNumber int        `json:"pullRequestNumber"`
	PullRequestTitle  string     `json:"pullRequestTitle"`
	Author            string     `json:"author"`
	Status            string     `json:"status"`
	StartedAt         time.Time  `json:"startedAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	FilesProcessed    int        `json:"filesProcessed"`
	CommentsGenerated int        `json:"commentsGenerated"`
	TokensConsumed    int64      `json:"tokensConsumed"`
	EstimatedCost     string     `json:"estimatedCost"`
	ErrorMessage      string     `json:"errorMessage,omitempty"`
}

// Get returns one review record by ID.
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, webhookResponse{Message: "invalid review id"})
		return
	}

	record, err := h.orchestrator.GetReviewStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, webhookResponse{Message: "review not found"})
			return
		}
		h.logger.Error("failed to load review", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, webhookResponse{Message: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, reviewStatusResponse{
		ID:                record.ID,
		RepositoryID:      record.RepositoryID,
		PullRequestNumber: record.PullRequestNumber,
		PullRequestTitle:  record.PullRequestTitle,
		Author:            record.Author,
		Status:            string(record.Status),
		StartedAt:         record.StartedAt,
		CompletedAt:       record.CompletedAt,
		FilesProcessed:    record.FilesProcessed,
		CommentsGenerated: record.CommentsGenerated,
		TokensConsumed:    record.TokensConsumed,
		EstimatedCost:     record.EstimatedCost.String(),
		ErrorMessage:      record.ErrorMessage,
	})
}
