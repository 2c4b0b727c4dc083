package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/retry"
)

type gitlabAdapter struct {
	logger *slog.Logger
}

// NewGitLabAdapter returns the GitLab platform adapter.
func NewGitLabAdapter(logger *slog.Logger) Adapter {
	return &gitlabAdapter{logger: logger}
}

func (a *gitlabAdapter) Platform() core.Platform { return core.PlatformGitLab }

func (a *gitlabAdapter) client(creds core.Credentials) (*gitlab.Client, error) {
	if creds.AccessToken == "" {
		return nil, core.ErrMissingCredentials
	}
	var opts []gitlab.ClientOptionFunc
	if creds.APIBaseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(creds.APIBaseURL))
	}
	client, err := gitlab.NewClient(creds.AccessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}
	return client, nil
}

func glErr(op string, resp *gitlab.Response, err error) error {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	return &core.TransportError{Op: op, StatusCode: status, Err: err}
}

func (a *gitlabAdapter) GetRepositoryInfo(ctx context.Context, creds core.Credentials, fullName string) (*RepoInfo, error) {
	client, err := a.client(creds)
	if err != nil {
		return nil, err
	}

	var project *gitlab.Project
	err = retry.Do(ctx, func() error {
		p, resp, err := client.Projects.GetProject(fullName, nil, gitlab.WithContext(ctx))
		if err != nil {
			return glErr("gitlab: get project", resp, err)
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &RepoInfo{
		RemoteID:      strconv.Itoa(project.ID),
		Name:          project.Name,
		FullName:      project.PathWithNamespace,
		Description:   project.Description,
		DefaultBranch: project.DefaultBranch,
		Private:       project.Visibility == gitlab.PrivateVisibility,
	}, nil
}

// GetPullRequestFiles pages through the MR diffs endpoint. GitLab reports the
// diff per file but no addition/deletion counts on this endpoint, so those
// stay zero.
func (a *gitlabAdapter) GetPullRequestFiles(ctx context.Context, creds core.Credentials, fullName string, number int) ([]core.ChangedFile, error) {
	client, err := a.client(creds)
	if err != nil {
		return nil, err
	}

	var all []core.ChangedFile
	opts := &gitlab.ListMergeRequestDiffsOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100, Page: 1},
	}
	for {
		var page []*gitlab.MergeRequestDiff
		var resp *gitlab.Response
		err = retry.Do(ctx, func() error {
			diffs, r, err := client.MergeRequests.ListMergeRequestDiffs(fullName, number, opts, gitlab.WithContext(ctx))
			if err != nil {
				return glErr("gitlab: list merge request diffs", r, err)
			}
			page, resp = diffs, r
			return nil
		})
		if err != nil {
			return nil, err
		}

		for _, d := range page {
			path := d.NewPath
			if path == "" {
				path = d.OldPath
			}
			all = append(all, core.ChangedFile{
				Path:       path,
				ChangeType: gitlabChangeType(d),
				Patch:      d.Diff,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// PostInlineComment creates a positioned discussion on the MR. GitLab anchors
// by diff position, so the MR's head SHA is fetched first; an unanchorable
// position falls back to a plain MR note.
func (a *gitlabAdapter) PostInlineComment(ctx context.Context, creds core.Credentials, fullName string, number int, path string, line int, text string) error {
	client, err := a.client(creds)
	if err != nil {
		return err
	}

	var mr *gitlab.MergeRequest
	err = retry.Do(ctx, func() error {
		m, resp, err := client.MergeRequests.GetMergeRequest(fullName, number, nil, gitlab.WithContext(ctx))
		if err != nil {
			return glErr("gitlab: get merge request", resp, err)
		}
		mr = m
		return nil
	})
	if err != nil {
		return err
	}

	opts := &gitlab.CreateMergeRequestDiscussionOptions{
		Body: gitlab.Ptr(text),
		Position: &gitlab.PositionOptions{
			BaseSHA:      gitlab.Ptr(mr.SHA),
			StartSHA:     gitlab.Ptr(mr.SHA),
			HeadSHA:      gitlab.Ptr(mr.SHA),
			PositionType: gitlab.Ptr("text"),
			NewPath:      gitlab.Ptr(path),
			NewLine:      gitlab.Ptr(line),
		},
	}
	err = retry.Do(ctx, func() error {
		_, resp, err := client.Discussions.CreateMergeRequestDiscussion(fullName, number, opts, gitlab.WithContext(ctx))
		if err != nil {
			return glErr("gitlab: create discussion", resp, err)
		}
		return nil
	})
	if err != nil {
		a.logger.Warn("positioned discussion rejected, falling back to MR note",
			"repo", fullName, "mr", number, "path", path, "line", line, "error", err)
		return a.PostSummaryComment(ctx, creds, fullName, number, inlineFallbackText(path, line, text))
	}
	return nil
}

func (a *gitlabAdapter) PostSummaryComment(ctx context.Context, creds core.Credentials, fullName string, number int, text string) error {
	client, err := a.client(creds)
	if err != nil {
		return err
	}
	return retry.Do(ctx, func() error {
		_, resp, err := client.Notes.CreateMergeRequestNote(fullName, number, &gitlab.CreateMergeRequestNoteOptions{
			Body: gitlab.Ptr(text),
		}, gitlab.WithContext(ctx))
		if err != nil {
			return glErr("gitlab: create note", resp, err)
		}
		return nil
	})
}

// ValidateSignature compares the X-Gitlab-Token header verbatim against the
// configured shared secret. GitLab sends the secret itself, not a digest.
func (a *gitlabAdapter) ValidateSignature(_ []byte, signature, secret string) bool {
	return signature == secret
}

func gitlabChangeType(d *gitlab.MergeRequestDiff) core.FileChangeType {
	switch {
	case d.NewFile:
		return core.FileAdded
	case d.DeletedFile:
		return core.FileDeleted
	case d.RenamedFile:
		return core.FileRenamed
	default:
		return core.FileModified
	}
}
