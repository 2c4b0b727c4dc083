package webhook

import (
	"encoding/json"
	"strings"

	"github.com/sevigo/review-relay/internal/core"
)

// bitbucketParser normalizes Bitbucket Cloud pull request deliveries. The
// event key header carries both event and action (e.g. "pullrequest:created");
// repository and user IDs are brace-wrapped UUIDs.
type bitbucketParser struct{}

// NewBitbucketParser returns the webhook parser for Bitbucket.
func NewBitbucketParser() Parser { return bitbucketParser{} }

func (bitbucketParser) Platform() core.Platform { return core.PlatformBitbucket }

type bitbucketPayload struct {
	Repository *struct {
		UUID     string `json:"uuid"`
		Name     string `json:"name"`
		FullName string `json:"full_name"`
	} `json:"repository"`
	PullRequest *struct {
		ID          int    `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		State       string `json:"state"`
		Source      struct {
			Branch struct {
				Name string `json:"name"`
			} `json:"branch"`
			Commit struct {
				Hash string `json:"hash"`
			} `json:"commit"`
		} `json:"source"`
		Destination struct {
			Branch struct {
				Name string `json:"name"`
			} `json:"branch"`
		} `json:"destination"`
		Author *bitbucketUser `json:"author"`
	} `json:"pullrequest"`
	Actor *bitbucketUser `json:"actor"`
}

type bitbucketUser struct {
	UUID        string `json:"uuid"`
	Nickname    string `json:"nickname"`
	DisplayName string `json:"display_name"`
}

func (u *bitbucketUser) toEventUser() *core.EventUser {
	username := u.Nickname
	if username == "" {
		username = u.DisplayName
	}
	return &core.EventUser{
		ID:       strings.Trim(u.UUID, "{}"),
		Username: username,
	}
}

func (p bitbucketParser) Parse(body []byte, delivery Delivery) (*core.CanonicalEvent, error) {
	var payload bitbucketPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, malformed(core.PlatformBitbucket, err.Error())
	}
	if payload.Repository == nil || payload.Repository.FullName == "" {
		return nil, malformed(core.PlatformBitbucket, "repository information missing")
	}

	eventType := delivery.EventType
	if eventType == "" {
		eventType = "unknown"
	}
	// "pullrequest:created" -> action "created"
	action := ""
	if idx := strings.LastIndex(eventType, ":"); idx >= 0 {
		action = eventType[idx+1:]
	}

	event := &core.CanonicalEvent{
		Platform:  core.PlatformBitbucket,
		EventType: eventType,
		Action:    action,
		Repository: core.EventRepo{
			RemoteID: strings.Trim(payload.Repository.UUID, "{}"),
			Name:     payload.Repository.Name,
			FullName: payload.Repository.FullName,
		},
		RawPayload: string(body),
	}

	if pr := payload.PullRequest; pr != nil {
		event.PullRequest = &core.EventPullRequest{
			Number:       pr.ID,
			Title:        pr.Title,
			Body:         pr.Description,
			State:        pr.State,
			SourceBranch: pr.Source.Branch.Name,
			TargetBranch: pr.Destination.Branch.Name,
			HeadSHA:      pr.Source.Commit.Hash,
		}
		if pr.Author != nil {
			event.PullRequest.Author = pr.Author.toEventUser()
		}
	}
	if payload.Actor != nil {
		event.Sender = payload.Actor.toEventUser()
	}
	return event, nil
}

// ShouldProcess accepts pullrequest:created and pullrequest:updated events.
func (bitbucketParser) ShouldProcess(event *core.CanonicalEvent) bool {
	if !strings.HasPrefix(event.EventType, "pullrequest:") || event.PullRequest == nil {
		return false
	}
	switch strings.ToLower(event.Action) {
	case "created", "updated":
		return true
	}
	return false
}
