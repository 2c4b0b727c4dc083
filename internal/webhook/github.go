package webhook

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sevigo/review-relay/internal/core"
)

// githubParser normalizes GitHub pull_request webhook deliveries. The event
// type arrives in the X-GitHub-Event header; the action inside the body.
type githubParser struct{}

// NewGitHubParser returns the webhook parser for GitHub.
func NewGitHubParser() Parser { return githubParser{} }

func (githubParser) Platform() core.Platform { return core.PlatformGitHub }

type githubPayload struct {
	Action     string `json:"action"`
	Repository *struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		FullName string `json:"full_name"`
		CloneURL string `json:"clone_url"`
	} `json:"repository"`
	PullRequest *struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		Body   string `json:"body"`
		State  string `json:"state"`
		Head   struct {
			Ref string `json:"ref"`
			SHA string `json:"sha"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
		User *githubUser `json:"user"`
	} `json:"pull_request"`
	Sender *githubUser `json:"sender"`
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

func (p githubParser) Parse(body []byte, delivery Delivery) (*core.CanonicalEvent, error) {
	var payload githubPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, malformed(core.PlatformGitHub, err.Error())
	}
	if payload.Repository == nil || payload.Repository.FullName == "" {
		return nil, malformed(core.PlatformGitHub, "repository information missing")
	}

	eventType := delivery.EventType
	if eventType == "" {
		eventType = "unknown"
	}
	event := &core.CanonicalEvent{
		Platform:  core.PlatformGitHub,
		EventType: eventType,
		Action:    payload.Action,
		Repository: core.EventRepo{
			RemoteID: strconv.FormatInt(payload.Repository.ID, 10),
			Name:     payload.Repository.Name,
			FullName: payload.Repository.FullName,
			CloneURL: payload.Repository.CloneURL,
		},
		RawPayload: string(body),
	}

	if pr := payload.PullRequest; pr != nil {
		event.PullRequest = &core.EventPullRequest{
			Number:       pr.Number,
			Title:        pr.Title,
			Body:         pr.Body,
			State:        pr.State,
			SourceBranch: pr.Head.Ref,
			TargetBranch: pr.Base.Ref,
			HeadSHA:      pr.Head.SHA,
		}
		if pr.User != nil {
			event.PullRequest.Author = &core.EventUser{
				ID:       strconv.FormatInt(pr.User.ID, 10),
				Username: pr.User.Login,
			}
		}
	}
	if payload.Sender != nil {
		event.Sender = &core.EventUser{
			ID:       strconv.FormatInt(payload.Sender.ID, 10),
			Username: payload.Sender.Login,
		}
	}
	return event, nil
}

// ShouldProcess accepts only pull_request events whose action means the PR was
// created or its head changed.
func (githubParser) ShouldProcess(event *core.CanonicalEvent) bool {
	if event.EventType != "pull_request" || event.PullRequest == nil {
		return false
	}
	switch strings.ToLower(event.Action) {
	case "opened", "synchronize", "reopened":
		return true
	}
	return false
}
