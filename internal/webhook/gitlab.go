package webhook

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sevigo/review-relay/internal/core"
)

// gitlabParser normalizes GitLab merge request hook deliveries. GitLab nests
// everything interesting under object_attributes and names the repository a
// "project".
type gitlabParser struct{}

// NewGitLabParser returns the webhook parser for GitLab.
func NewGitLabParser() Parser { return gitlabParser{} }

func (gitlabParser) Platform() core.Platform { return core.PlatformGitLab }

type gitlabPayload struct {
	ObjectKind string `json:"object_kind"`
	Project    *struct {
		ID                int64  `json:"id"`
		Name              string `json:"name"`
		PathWithNamespace string `json:"path_with_namespace"`
		GitHTTPURL        string `json:"git_http_url"`
	} `json:"project"`
	ObjectAttributes *struct {
		IID          int    `json:"iid"`
		Title        string `json:"title"`
		Description  string `json:"description"`
		State        string `json:"state"`
		Action       string `json:"action"`
		SourceBranch string `json:"source_branch"`
		TargetBranch string `json:"target_branch"`
		AuthorID     int64  `json:"author_id"`
		LastCommit   struct {
			ID string `json:"id"`
		} `json:"last_commit"`
	} `json:"object_attributes"`
	User *struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

func (p gitlabParser) Parse(body []byte, delivery Delivery) (*core.CanonicalEvent, error) {
	var payload gitlabPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, malformed(core.PlatformGitLab, err.Error())
	}
	if payload.Project == nil || payload.Project.PathWithNamespace == "" {
		return nil, malformed(core.PlatformGitLab, "project information missing")
	}

	eventType := payload.ObjectKind
	if eventType == "" {
		eventType = delivery.EventType
	}
	if eventType == "" {
		eventType = "unknown"
	}

	event := &core.CanonicalEvent{
		Platform:  core.PlatformGitLab,
		EventType: eventType,
		Repository: core.EventRepo{
			RemoteID: strconv.FormatInt(payload.Project.ID, 10),
			Name:     payload.Project.Name,
			FullName: payload.Project.PathWithNamespace,
			CloneURL: payload.Project.GitHTTPURL,
		},
		RawPayload: string(body),
	}

	if attrs := payload.ObjectAttributes; attrs != nil {
		event.Action = attrs.Action
		if payload.ObjectKind == "merge_request" {
			event.PullRequest = &core.EventPullRequest{
				Number:       attrs.IID,
				Title:        attrs.Title,
				Body:         attrs.Description,
				State:        attrs.State,
				SourceBranch: attrs.SourceBranch,
				TargetBranch: attrs.TargetBranch,
				HeadSHA:      attrs.LastCommit.ID,
			}
			if attrs.AuthorID != 0 {
				event.PullRequest.Author = &core.EventUser{
					ID: strconv.FormatInt(attrs.AuthorID, 10),
				}
			}
		}
	}

	if payload.User != nil {
		event.Sender = &core.EventUser{
			ID:       strconv.FormatInt(payload.User.ID, 10),
			Username: payload.User.Username,
		}
		// MR hooks carry only the author's numeric ID; fall back to the acting
		// user for a readable name.
		if event.PullRequest != nil && event.PullRequest.Author != nil && event.PullRequest.Author.Username == "" {
			event.PullRequest.Author.Username = payload.User.Username
		}
	}
	return event, nil
}

// ShouldProcess accepts merge_request events for open, reopen, and update
// actions.
func (gitlabParser) ShouldProcess(event *core.CanonicalEvent) bool {
	if event.EventType != "merge_request" || event.PullRequest == nil {
		return false
	}
	switch strings.ToLower(event.Action) {
	case "open", "reopen", "update":
		return true
	}
	return false
}
