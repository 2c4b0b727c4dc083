package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-relay/internal/core"
)

const githubPRPayload = `{
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
		"body": "Speeds things up",
		"state": "open",
		"head": {"ref": "feature/cache", "sha": "abc123"},
		"base": {"ref": "main"},
		"user": {"id": 99, "login": "octocat"}
	},
	"sender": {"id": 99, "login": "octocat"}
}`

func TestGitHubParse(t *testing.T) {
	parser := NewGitHubParser()

	event, err := parser.Parse([]byte(githubPRPayload), Delivery{EventType: "pull_request", DeliveryID: "d-1"})
	require.NoError(t, err)

	assert.Equal(t, core.PlatformGitHub, event.Platform)
	assert.Equal(t, "pull_request", event.EventType)
	assert.Equal(t, "opened", event.Action)
	assert.Equal(t, "4242", event.Repository.RemoteID)
	assert.Equal(t, "acme/relay", event.Repository.FullName)

	require.NotNil(t, event.PullRequest)
	assert.Equal(t, 7, event.PullRequest.Number)
	assert.Equal(t, "feature/cache", event.PullRequest.SourceBranch)
	assert.Equal(t, "main", event.PullRequest.TargetBranch)
	assert.Equal(t, "abc123", event.PullRequest.HeadSHA)
	require.NotNil(t, event.PullRequest.Author)
	assert.Equal(t, "octocat", event.PullRequest.Author.Username)

	assert.True(t, parser.ShouldProcess(event))
}

func TestGitHubParseMalformed(t *testing.T) {
	parser := NewGitHubParser()

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{{{"},
		{"missing repository", `{"action": "opened"}`},
		{"empty full name", `{"repository": {"id": 1, "full_name": ""}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse([]byte(tt.body), Delivery{EventType: "pull_request"})
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestGitHubShouldProcessActions(t *testing.T) {
	parser := NewGitHubParser()

	tests := []struct {
		eventType string
		action    string
		want      bool
	}{
		{"pull_request", "opened", true},
		{"pull_request", "synchronize", true},
		{"pull_request", "reopened", true},
		{"pull_request", "closed", false},
		{"pull_request", "labeled", false},
		{"push", "opened", false},
	}
	for _, tt := range tests {
		t.Run(tt.eventType+"/"+tt.action, func(t *testing.T) {
			event := &core.CanonicalEvent{
				Platform:    core.PlatformGitHub,
				EventType:   tt.eventType,
				Action:      tt.action,
				PullRequest: &core.EventPullRequest{Number: 1},
			}
			assert.Equal(t, tt.want, parser.ShouldProcess(event))
		})
	}

	t.Run("nil pull request never processed", func(t *testing.T) {
		event := &core.CanonicalEvent{EventType: "pull_request", Action: "opened"}
		assert.False(t, parser.ShouldProcess(event))
	})
}

const gitlabMRPayload = `{
	"object_kind": "merge_request",
	"project": {
		"id": 314,
		"name": "relay",
		"path_with_namespace": "acme/relay",
		"git_http_url": "https://gitlab.com/acme/relay.git"
	},
	"object_attributes": {
		"iid": 12,
		"title": "Refactor parser",
		"description": "",
		"state": "opened",
		"action": "open",
		"source_branch": "refactor",
		"target_branch": "main",
		"author_id": 55,
		"last_commit": {"id": "def456"}
	},
	"user": {"id": 55, "username": "jdoe"}
}`

func TestGitLabParse(t *testing.T) {
	parser := NewGitLabParser()

	event, err := parser.Parse([]byte(gitlabMRPayload), Delivery{EventType: "Merge Request Hook"})
	require.NoError(t, err)

	assert.Equal(t, core.PlatformGitLab, event.Platform)
	assert.Equal(t, "merge_request", event.EventType)
	assert.Equal(t, "open", event.Action)
	assert.Equal(t, "314", event.Repository.RemoteID)
	assert.Equal(t, "acme/relay", event.Repository.FullName)

	require.NotNil(t, event.PullRequest)
	assert.Equal(t, 12, event.PullRequest.Number)
	assert.Equal(t, "def456", event.PullRequest.HeadSHA)
	require.NotNil(t, event.PullRequest.Author)
	assert.Equal(t, "55", event.PullRequest.Author.ID)
	assert.Equal(t, "jdoe", event.PullRequest.Author.Username, "author name falls back to acting user")

	assert.True(t, parser.ShouldProcess(event))
}

func TestGitLabShouldProcessActions(t *testing.T) {
	parser := NewGitLabParser()

	tests := []struct {
		action string
		want   bool
	}{
		{"open", true},
		{"reopen", true},
		{"update", true},
		{"close", false},
		{"merge", false},
		{"approved", false},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			event := &core.CanonicalEvent{
				EventType:   "merge_request",
				Action:      tt.action,
				PullRequest: &core.EventPullRequest{Number: 1},
			}
			assert.Equal(t, tt.want, parser.ShouldProcess(event))
		})
	}
}

const bitbucketPRPayload = `{
	"repository": {
		"uuid": "{8a1b-22cd}",
		"name": "relay",
		"full_name": "acme/relay"
	},
	"pullrequest": {
		"id": 3,
		"title": "Fix typo",
		"description": "",
		"state": "OPEN",
		"source": {
			"branch": {"name": "typo-fix"},
			"commit": {"hash": "fff888"}
		},
		"destination": {"branch": {"name": "main"}},
		"author": {"uuid": "{user-1}", "nickname": "sam", "display_name": "Sam D"}
	},
	"actor": {"uuid": "{user-1}", "nickname": "sam"}
}`

func TestBitbucketParse(t *testing.T) {
	parser := NewBitbucketParser()

	event, err := parser.Parse([]byte(bitbucketPRPayload), Delivery{EventType: "pullrequest:created", DeliveryID: "hook-1"})
	require.NoError(t, err)

	assert.Equal(t, core.PlatformBitbucket, event.Platform)
	assert.Equal(t, "pullrequest:created", event.EventType)
	assert.Equal(t, "created", event.Action)
	assert.Equal(t, "8a1b-22cd", event.Repository.RemoteID, "uuid braces stripped")
	assert.Equal(t, "acme/relay", event.Repository.FullName)

	require.NotNil(t, event.PullRequest)
	assert.Equal(t, 3, event.PullRequest.Number)
	assert.Equal(t, "typo-fix", event.PullRequest.SourceBranch)
	assert.Equal(t, "fff888", event.PullRequest.HeadSHA)
	require.NotNil(t, event.PullRequest.Author)
	assert.Equal(t, "user-1", event.PullRequest.Author.ID)
	assert.Equal(t, "sam", event.PullRequest.Author.Username)

	assert.True(t, parser.ShouldProcess(event))
}

func TestBitbucketShouldProcessEventKeys(t *testing.T) {
	parser := NewBitbucketParser()

	tests := []struct {
		eventType string
		action    string
		want      bool
	}{
		{"pullrequest:created", "created", true},
		{"pullrequest:updated", "updated", true},
		{"pullrequest:fulfilled", "fulfilled", false},
		{"pullrequest:rejected", "rejected", false},
		{"repo:push", "push", false},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			event := &core.CanonicalEvent{
				EventType:   tt.eventType,
				Action:      tt.action,
				PullRequest: &core.EventPullRequest{Number: 1},
			}
			assert.Equal(t, tt.want, parser.ShouldProcess(event))
		})
	}
}

func TestRegistryResolve(t *testing.T) {
	registry := DefaultRegistry()

	for _, platform := range core.Platforms() {
		p, err := registry.Resolve(platform)
		require.NoError(t, err)
		assert.Equal(t, platform, p.Platform())
	}

	_, err := registry.Resolve(core.Platform("svn"))
	assert.ErrorIs(t, err, core.ErrPlatformNotSupported)
}

func TestParseIsPure(t *testing.T) {
	parser := NewGitHubParser()
	delivery := Delivery{EventType: "pull_request"}

	first, err := parser.Parse([]byte(githubPRPayload), delivery)
	require.NoError(t, err)
	second, err := parser.Parse([]byte(githubPRPayload), delivery)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
