package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/platform"
	"github.com/sevigo/review-relay/internal/storage"
	"github.com/sevigo/review-relay/internal/webhook"
)

const githubPayload = `{
	"action": "opened",
	"repository": {
		"id": 4242,
		"name": "relay",
		"full_name": "acme/relay",
		"clone_url": "https://github.com/acme/relay.git"
	},
	"pull_request": {
		"number": 7,
		"title": "Add caching",
		"state": "open",
		"head": {"ref": "feature/cache", "sha": "abc123"},
		"base": {"ref": "main"},
		"user": {"id": 99, "login": "octocat"}
	}
}`

type stubRepoStore struct {
	repo     *core.Repository
	settings *core.PlatformSettings
}

func (s *stubRepoStore) GetByRemoteID(context.Context, core.Platform, string) (*core.Repository, error) {
	if s.repo == nil {
		return nil, storage.ErrNotFound
	}
	return s.repo, nil
}

func (s *stubRepoStore) GetByFullName(context.Context, core.Platform, string) (*core.Repository, error) {
	if s.repo == nil {
		return nil, storage.ErrNotFound
	}
	return s.repo, nil
}

func (s *stubRepoStore) Create(context.Context, *core.Repository) error  { return nil }
func (s *stubRepoStore) SetActive(context.Context, int64, bool) error    { return nil }
func (s *stubRepoStore) List(context.Context) ([]core.Repository, error) { return nil, nil }

func (s *stubRepoStore) GetPlatformSettings(context.Context, core.Platform) (*core.PlatformSettings, error) {
	if s.settings == nil {
		return nil, storage.ErrNotFound
	}
	return s.settings, nil
}

type stubDispatcher struct {
	events []*core.CanonicalEvent
	err    error
}

func (d *stubDispatcher) Dispatch(_ context.Context, event *core.CanonicalEvent) error {
	if d.err != nil {
		return d.err
	}
	d.events = append(d.events, event)
	return nil
}

func newTestRouter(repos storage.RepoStore, dispatcher core.JobDispatcher) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapters := platform.NewRegistry(
		platform.NewGitHubAdapter(nil, logger),
		platform.NewGitLabAdapter(logger),
		platform.NewBitbucketAdapter(nil, logger),
	)
	h := NewWebhookHandler(webhook.DefaultRegistry(), adapters, repos, dispatcher, logger)

	r := chi.NewRouter()
	r.Post("/webhook/{platform}", h.Handle)
	return r
}

func githubSignature(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, router http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/github", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	msg, _ := resp["message"].(string)
	return msg
}

func TestWebhookQueuesReview(t *testing.T) {
	repos := &stubRepoStore{
		repo: &core.Repository{ID: 1, Platform: core.PlatformGitHub, FullName: "acme/relay", WebhookSecret: "s3cret", Active: true},
	}
	dispatcher := &stubDispatcher{}
	router := newTestRouter(repos, dispatcher)

	rec := postWebhook(t, router, githubPayload, map[string]string{
		"X-GitHub-Event":      "pull_request",
		"X-Hub-Signature-256": githubSignature(githubPayload, "s3cret"),
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "review queued", decodeMessage(t, rec))
	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, "acme/relay", dispatcher.events[0].Repository.FullName)
	assert.Equal(t, 7, dispatcher.events[0].PullRequest.Number)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	repos := &stubRepoStore{
		repo: &core.Repository{ID: 1, FullName: "acme/relay", WebhookSecret: "s3cret", Active: true},
	}
	dispatcher := &stubDispatcher{}
	router := newTestRouter(repos, dispatcher)

	rec := postWebhook(t, router, githubPayload, map[string]string{
		"X-GitHub-Event":      "pull_request",
		"X-Hub-Signature-256": githubSignature(githubPayload, "wrong"),
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid signature", decodeMessage(t, rec))
	assert.Empty(t, dispatcher.events)
}

func TestWebhookAcceptsUnsignedWhenNoSecretConfigured(t *testing.T) {
	repos := &stubRepoStore{
		repo: &core.Repository{ID: 1, Platform: core.PlatformGitHub, FullName: "acme/relay", Active: true},
	}
	dispatcher := &stubDispatcher{}
	router := newTestRouter(repos, dispatcher)

	rec := postWebhook(t, router, githubPayload, map[string]string{
		"X-GitHub-Event": "pull_request",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "review queued", decodeMessage(t, rec))
	require.Len(t, dispatcher.events, 1)
}

func TestWebhookAcceptsUnsignedWhenSecretConfigured(t *testing.T) {
	repos := &stubRepoStore{
		repo: &core.Repository{ID: 1, Platform: core.PlatformGitHub, FullName: "acme/relay", WebhookSecret: "s3cret", Active: true},
	}
	dispatcher := &stubDispatcher{}
	router := newTestRouter(repos, dispatcher)

	// No signature header at all: validation only runs when both sides are
	// present, so the delivery still goes through.
	rec := postWebhook(t, router, githubPayload, map[string]string{
		"X-GitHub-Event": "pull_request",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "review queued", decodeMessage(t, rec))
	require.Len(t, dispatcher.events, 1)
}

func TestWebhookSkipsUnconfiguredRepository(t *testing.T) {
	dispatcher := &stubDispatcher{}
	router := newTestRouter(&stubRepoStore{}, dispatcher)

	rec := postWebhook(t, router, githubPayload, map[string]string{
		"X-GitHub-Event": "pull_request",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "repository not configured, skipped", decodeMessage(t, rec))
	assert.Empty(t, dispatcher.events)
}

func TestWebhookSkipsIrrelevantAction(t *testing.T) {
	dispatcher := &stubDispatcher{}
	router := newTestRouter(&stubRepoStore{}, dispatcher)

	body := strings.Replace(githubPayload, `"opened"`, `"labeled"`, 1)
	rec := postWebhook(t, router, body, map[string]string{
		"X-GitHub-Event": "pull_request",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "event skipped", decodeMessage(t, rec))
	assert.Empty(t, dispatcher.events)
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	router := newTestRouter(&stubRepoStore{}, &stubDispatcher{})

	rec := postWebhook(t, router, "{{{", map[string]string{
		"X-GitHub-Event": "pull_request",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "malformed payload", decodeMessage(t, rec))
}

func TestWebhookRejectsUnknownPlatform(t *testing.T) {
	router := newTestRouter(&stubRepoStore{}, &stubDispatcher{})

	req := httptest.NewRequest(http.MethodPost, "/webhook/svn", strings.NewReader(githubPayload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unsupported platform", decodeMessage(t, rec))
}

func TestWebhookReportsFullQueue(t *testing.T) {
	repos := &stubRepoStore{
		repo: &core.Repository{ID: 1, FullName: "acme/relay", WebhookSecret: "s3cret", Active: true},
	}
	dispatcher := &stubDispatcher{err: core.ErrQueueFull}
	router := newTestRouter(repos, dispatcher)

	rec := postWebhook(t, router, githubPayload, map[string]string{
		"X-GitHub-Event":      "pull_request",
		"X-Hub-Signature-256": githubSignature(githubPayload, "s3cret"),
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to queue review", decodeMessage(t, rec))
}
