package platform

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/retry"
)

// GitHubAppConfig enables GitHub App installation auth. When set, it is used
// for any repository that carries no access token of its own.
type GitHubAppConfig struct {
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
}

type githubAdapter struct {
	app    *GitHubAppConfig
	logger *slog.Logger
}

// NewGitHubAdapter returns the GitHub platform adapter. app may be nil when
// only token auth is configured.
func NewGitHubAdapter(app *GitHubAppConfig, logger *slog.Logger) Adapter {
	return &githubAdapter{app: app, logger: logger}
}

func (a *githubAdapter) Platform() core.Platform { return core.PlatformGitHub }

// client builds a go-github client for one call: token auth from credentials
// when present, otherwise App installation auth.
func (a *githubAdapter) client(ctx context.Context, creds core.Credentials) (*github.Client, error) {
	var httpClient *http.Client
	switch {
	case creds.AccessToken != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken})
		httpClient = oauth2.NewClient(ctx, ts)
	case a.app != nil && a.app.AppID != 0:
		key, err := os.ReadFile(a.app.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read GitHub App private key: %w", err)
		}
		transport, err := ghinstallation.New(http.DefaultTransport, a.app.AppID, a.app.InstallationID, key)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
		}
		httpClient = &http.Client{Transport: transport}
	default:
		return nil, core.ErrMissingCredentials
	}

	client := github.NewClient(httpClient)
	if creds.APIBaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(creds.APIBaseURL, creds.APIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API base URL %q: %w", creds.APIBaseURL, err)
		}
	}
	return client, nil
}

func splitFullName(fullName string) (owner, repo string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository full name %q", fullName)
	}
	return parts[0], parts[1], nil
}

func ghErr(op string, resp *github.Response, err error) error {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	return &core.TransportError{Op: op, StatusCode: status, Err: err}
}

func (a *githubAdapter) GetRepositoryInfo(ctx context.Context, creds core.Credentials, fullName string) (*RepoInfo, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}
	client, err := a.client(ctx, creds)
	if err != nil {
		return nil, err
	}

	var repo *github.Repository
	err = retry.Do(ctx, func() error {
		r, resp, err := client.Repositories.Get(ctx, owner, name)
		if err != nil {
			return ghErr("github: get repository", resp, err)
		}
		repo = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &RepoInfo{
		RemoteID:      strconv.FormatInt(repo.GetID(), 10),
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		Description:   repo.GetDescription(),
		DefaultBranch: repo.GetDefaultBranch(),
		Private:       repo.GetPrivate(),
	}, nil
}

// GetPullRequestFiles pages through the PR file list (GitHub caps pages at
// 100 entries) and maps each entry to a ChangedFile.
func (a *githubAdapter) GetPullRequestFiles(ctx context.Context, creds core.Credentials, fullName string, number int) ([]core.ChangedFile, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}
	client, err := a.client(ctx, creds)
	if err != nil {
		return nil, err
	}

	var all []core.ChangedFile
	opts := &github.ListOptions{PerPage: 100}
	for {
		var page []*github.CommitFile
		var resp *github.Response
		err = retry.Do(ctx, func() error {
			files, r, err := client.PullRequests.ListFiles(ctx, owner, name, number, opts)
			if err != nil {
				return ghErr("github: list pull request files", r, err)
			}
			page, resp = files, r
			return nil
		})
		if err != nil {
			return nil, err
		}

		for _, f := range page {
			all = append(all, core.ChangedFile{
				Path:       f.GetFilename(),
				ChangeType: githubChangeType(f.GetStatus()),
				Additions:  f.GetAdditions(),
				Deletions:  f.GetDeletions(),
				Patch:      f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// PostInlineComment anchors a review comment at (path, line) on the RIGHT
// side of the diff. When GitHub rejects the anchor the comment is republished
// as a summary comment instead of being dropped.
func (a *githubAdapter) PostInlineComment(ctx context.Context, creds core.Credentials, fullName string, number int, path string, line int, text string) error {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return err
	}
	client, err := a.client(ctx, creds)
	if err != nil {
		return err
	}

	var pr *github.PullRequest
	err = retry.Do(ctx, func() error {
		p, resp, err := client.PullRequests.Get(ctx, owner, name, number)
		if err != nil {
			return ghErr("github: get pull request", resp, err)
		}
		pr = p
		return nil
	})
	if err != nil {
		return err
	}

	comment := &github.PullRequestComment{
		Body:     github.Ptr(text),
		CommitID: github.Ptr(pr.GetHead().GetSHA()),
		Path:     github.Ptr(path),
		Line:     github.Ptr(line),
		Side:     github.Ptr("RIGHT"),
	}
	err = retry.Do(ctx, func() error {
		_, resp, err := client.PullRequests.CreateComment(ctx, owner, name, number, comment)
		if err != nil {
			return ghErr("github: create review comment", resp, err)
		}
		return nil
	})
	if err != nil {
		a.logger.Warn("inline comment rejected, falling back to summary comment",
			"repo", fullName, "pr", number, "path", path, "line", line, "error", err)
		return a.PostSummaryComment(ctx, creds, fullName, number, inlineFallbackText(path, line, text))
	}
	return nil
}

func (a *githubAdapter) PostSummaryComment(ctx context.Context, creds core.Credentials, fullName string, number int, text string) error {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return err
	}
	client, err := a.client(ctx, creds)
	if err != nil {
		return err
	}
	return retry.Do(ctx, func() error {
		_, resp, err := client.Issues.CreateComment(ctx, owner, name, number, &github.IssueComment{Body: github.Ptr(text)})
		if err != nil {
			return ghErr("github: create issue comment", resp, err)
		}
		return nil
	})
}

// ValidateSignature checks the X-Hub-Signature-256 header: HMAC-SHA256 over
// the raw body, hex encoded, compared case-insensitively against the
// "sha256="-prefixed header value.
func (a *githubAdapter) ValidateSignature(body []byte, signature, secret string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(signature, prefix) {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return strings.EqualFold(strings.TrimPrefix(signature, prefix), expected)
}

func githubChangeType(status string) core.FileChangeType {
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
