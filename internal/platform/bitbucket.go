package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/retry"
)

const bitbucketDefaultBaseURL = "https://api.bitbucket.org/2.0"

// bitbucketAdapter talks to the Bitbucket Cloud 2.0 REST API directly. No Go
// SDK covers the endpoints we need, and the API's cursor pagination ("next"
// URLs) and combined-diff endpoint are simple enough over net/http.
type bitbucketAdapter struct {
	client *http.Client
	logger *slog.Logger
}

// NewBitbucketAdapter returns the Bitbucket platform adapter.
func NewBitbucketAdapter(client *http.Client, logger *slog.Logger) Adapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &bitbucketAdapter{client: client, logger: logger}
}

func (a *bitbucketAdapter) Platform() core.Platform { return core.PlatformBitbucket }

func (a *bitbucketAdapter) baseURL(creds core.Credentials) string {
	if creds.APIBaseURL != "" {
		return strings.TrimRight(creds.APIBaseURL, "/")
	}
	return bitbucketDefaultBaseURL
}

// do performs one authenticated request and decodes a JSON response into out
// (when out is non-nil) or returns the raw body (when raw is true).
func (a *bitbucketAdapter) do(ctx context.Context, creds core.Credentials, method, url string, body []byte, accept string, out any) (string, error) {
	if creds.AccessToken == "" {
		return "", core.ErrMissingCredentials
	}

	var result string
	err := retry.Do(ctx, func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return fmt.Errorf("failed to build bitbucket request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
		req.Header.Set("Accept", accept)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := a.client.Do(req)
		if err != nil {
			return &core.TransportError{Op: "bitbucket: " + method + " " + url, Err: err}
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &core.TransportError{Op: "bitbucket: read response", Err: err}
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &core.TransportError{
				Op:         "bitbucket: " + method + " " + url,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("unexpected status %s", resp.Status),
			}
		}
		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("failed to decode bitbucket response: %w", err)
			}
		}
		result = string(data)
		return nil
	})
	return result, err
}

type bitbucketRepo struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
	MainBranch  struct {
		Name string `json:"name"`
	} `json:"mainbranch"`
}

func (a *bitbucketAdapter) GetRepositoryInfo(ctx context.Context, creds core.Credentials, fullName string) (*RepoInfo, error) {
	var repo bitbucketRepo
	url := fmt.Sprintf("%s/repositories/%s", a.baseURL(creds), fullName)
	if _, err := a.do(ctx, creds, http.MethodGet, url, nil, "application/json", &repo); err != nil {
		return nil, err
	}
	return &RepoInfo{
		RemoteID:      strings.Trim(repo.UUID, "{}"),
		Name:          repo.Name,
		FullName:      repo.FullName,
		Description:   repo.Description,
		DefaultBranch: repo.MainBranch.Name,
		Private:       repo.IsPrivate,
	}, nil
}

type bitbucketDiffStatPage struct {
	Values []struct {
		Status string `json:"status"`
		Old    *struct {
			Path string `json:"path"`
		} `json:"old"`
		New *struct {
			Path string `json:"path"`
		} `json:"new"`
		LinesAdded   int `json:"lines_added"`
		LinesRemoved int `json:"lines_removed"`
	} `json:"values"`
	Next string `json:"next"`
}

// GetPullRequestFiles walks the diffstat cursor pages, then slices each
// file's hunk out of the PR's single combined diff. Bitbucket has no
// per-file diff endpoint.
func (a *bitbucketAdapter) GetPullRequestFiles(ctx context.Context, creds core.Credentials, fullName string, number int) ([]core.ChangedFile, error) {
	var all []core.ChangedFile
	url := fmt.Sprintf("%s/repositories/%s/pullrequests/%d/diffstat", a.baseURL(creds), fullName, number)
	for url != "" {
		var page bitbucketDiffStatPage
		if _, err := a.do(ctx, creds, http.MethodGet, url, nil, "application/json", &page); err != nil {
			return nil, err
		}
		for _, v := range page.Values {
			path := ""
			if v.New != nil {
				path = v.New.Path
			} else if v.Old != nil {
				path = v.Old.Path
			}
			all = append(all, core.ChangedFile{
				Path:       path,
				ChangeType: bitbucketChangeType(v.Status),
				Additions:  v.LinesAdded,
				Deletions:  v.LinesRemoved,
			})
		}
		url = page.Next
	}
	if len(all) == 0 {
		return all, nil
	}

	diffURL := fmt.Sprintf("%s/repositories/%s/pullrequests/%d/diff", a.baseURL(creds), fullName, number)
	fullDiff, err := a.do(ctx, creds, http.MethodGet, diffURL, nil, "text/plain", nil)
	if err != nil {
		return nil, err
	}
	for i := range all {
		all[i].Patch = extractFileDiff(fullDiff, all[i].Path)
	}
	return all, nil
}

// extractFileDiff slices one file's section out of a combined unified diff by
// matching the `diff --git a/... b/<path>` boundary for the requested path.
func extractFileDiff(fullDiff, path string) string {
	var b strings.Builder
	inFile := false
	for _, line := range strings.Split(fullDiff, "\n") {
		if strings.HasPrefix(line, "diff --git") {
			if inFile {
				break
			}
			inFile = strings.HasSuffix(line, " b/"+path)
			if !inFile {
				continue
			}
		}
		if inFile {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

type bitbucketCommentPayload struct {
	Content struct {
		Raw string `json:"raw"`
	} `json:"content"`
	Inline *struct {
		Path string `json:"path"`
		To   int    `json:"to"`
	} `json:"inline,omitempty"`
}

func (a *bitbucketAdapter) PostInlineComment(ctx context.Context, creds core.Credentials, fullName string, number int, path string, line int, text string) error {
	payload := bitbucketCommentPayload{}
	payload.Content.Raw = text
	payload.Inline = &struct {
		Path string `json:"path"`
		To   int    `json:"to"`
	}{Path: path, To: line}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode bitbucket comment: %w", err)
	}
	url := fmt.Sprintf("%s/repositories/%s/pullrequests/%d/comments", a.baseURL(creds), fullName, number)
	if _, err := a.do(ctx, creds, http.MethodPost, url, body, "application/json", nil); err != nil {
		a.logger.Warn("inline comment rejected, falling back to PR comment",
			"repo", fullName, "pr", number, "path", path, "line", line, "error", err)
		return a.PostSummaryComment(ctx, creds, fullName, number, inlineFallbackText(path, line, text))
	}
	return nil
}

func (a *bitbucketAdapter) PostSummaryComment(ctx context.Context, creds core.Credentials, fullName string, number int, text string) error {
	payload := bitbucketCommentPayload{}
	payload.Content.Raw = text
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode bitbucket comment: %w", err)
	}
	url := fmt.Sprintf("%s/repositories/%s/pullrequests/%d/comments", a.baseURL(creds), fullName, number)
	_, err = a.do(ctx, creds, http.MethodPost, url, body, "application/json", nil)
	return err
}

// ValidateSignature always succeeds: Bitbucket Cloud does not sign webhook
// deliveries. The gap is documented, not accidental; deployments needing
// authentication should put the endpoint behind network-level controls.
func (a *bitbucketAdapter) ValidateSignature(_ []byte, _, _ string) bool {
	return true
}

func bitbucketChangeType(status string) core.FileChangeType {
	switch strings.ToLower(status) {
	case "added":
		return core.FileAdded
	case "removed":
		return core.FileDeleted
	case "renamed":
		return core.FileRenamed
	default:
		return core.FileModified
	}
}
