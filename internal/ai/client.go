// Package ai holds the contract with the external AI review backend. The
// backend is opaque: we submit one file diff per request and get back an
// answer plus token usage. Everything brittle about interpreting the answer
// is isolated in the parser.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/retry"
)

// Request describes one file review submission. Endpoint and Key come from
// the rule being applied, not from global configuration.
type Request struct {
	Endpoint          string
	Key               string
	FileName          string
	FileDiff          string
	FileContent       string
	AdditionalContext string
}

// Result is the structured outcome of one backend call. Zero comments always
// means HasIssues=false; the parser never fabricates a finding out of an
// ambiguous answer.
type Result struct {
	Success      bool
	HasIssues    bool
	Comments     []core.ReviewComment
	RequestID    string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	ModelName    string
	DurationMs   int64
	ErrorMessage string
}

// Client submits file diffs for review.
type Client interface {
	Review(ctx context.Context, req Request) (*Result, error)
}

type httpClient struct {
	client *http.Client
	logger *slog.Logger
}

// NewClient builds an AI review client over the given HTTP client. Callers
// are expected to pass a client with a per-request deadline configured.
func NewClient(client *http.Client, logger *slog.Logger) Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpClient{client: client, logger: logger}
}

type reviewPayload struct {
	Inputs       reviewInputs `json:"inputs"`
	ResponseMode string       `json:"response_mode"`
	User         string       `json:"user"`
}

type reviewInputs struct {
	FileName          string `json:"file_name"`
	FileDiff          string `json:"file_diff"`
	FileContent       string `json:"file_content"`
	AdditionalContext string `json:"additional_context"`
}

type backendResponse struct {
	MessageID string `json:"message_id"`
	Answer    string `json:"answer"`
	Metadata  struct {
		Usage struct {
			PromptTokens     int    `json:"prompt_tokens"`
			CompletionTokens int    `json:"completion_tokens"`
			TotalTokens      int    `json:"total_tokens"`
			Model            string `json:"model"`
		} `json:"usage"`
	} `json:"metadata"`
}

// Review posts the diff to the backend and parses the answer into comments.
// Transport failures are retried per the uniform backoff policy and surface
// as an error once exhausted; answer-parsing problems never do.
func (c *httpClient) Review(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	var resp backendResponse
	err := retry.Do(ctx, func() error {
		return c.post(ctx, req, &resp)
	})
	if err != nil {
		return nil, err
	}

	comments := ParseAnswer(resp.Answer)
	result := &Result{
		Success:      true,
		HasIssues:    len(comments) > 0,
		Comments:     comments,
		RequestID:    resp.MessageID,
		InputTokens:  resp.Metadata.Usage.PromptTokens,
		OutputTokens: resp.Metadata.Usage.CompletionTokens,
		TotalTokens:  resp.Metadata.Usage.TotalTokens,
		ModelName:    resp.Metadata.Usage.Model,
		DurationMs:   time.Since(start).Milliseconds(),
	}

	c.logger.Debug("ai review finished",
		"file", req.FileName,
		"comments", len(comments),
		"tokens", result.TotalTokens,
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

func (c *httpClient) post(ctx context.Context, req Request, out *backendResponse) error {
	payload := reviewPayload{
		Inputs: reviewInputs{
			FileName:          req.FileName,
			FileDiff:          req.FileDiff,
			FileContent:       req.FileContent,
			AdditionalContext: req.AdditionalContext,
		},
		ResponseMode: "blocking",
		User:         "review-relay-bot",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode review request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build review request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Key)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return &core.TransportError{Op: "ai review", Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &core.TransportError{Op: "ai review", Err: err}
	}
	if httpResp.StatusCode != http.StatusOK {
		return &core.TransportError{
			Op:         "ai review",
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("backend returned %s", http.StatusText(httpResp.StatusCode)),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}
