package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/review"
)

func TestReviewJobValidation(t *testing.T) {
	orchestrator := review.NewOrchestrator(nil, nil, nil, nil, nil, nil, nil, nil,
		decimal.Zero, time.Second, testLogger())
	job := NewReviewJob(orchestrator, time.Second, testLogger())

	tests := []struct {
		name    string
		event   *core.CanonicalEvent
		wantErr string
	}{
		{
			name:    "nil event",
			event:   nil,
			wantErr: "event cannot be nil",
		},
		{
			name: "unknown platform",
			event: &core.CanonicalEvent{
				Platform:    core.Platform("svn"),
				Repository:  core.EventRepo{FullName: "acme/relay"},
				PullRequest: &core.EventPullRequest{Number: 1},
			},
			wantErr: "platform not supported",
		},
		{
			name: "missing repository",
			event: &core.CanonicalEvent{
				Platform:    core.PlatformGitHub,
				PullRequest: &core.EventPullRequest{Number: 1},
			},
			wantErr: "no repository",
		},
		{
			name: "missing pull request",
			event: &core.CanonicalEvent{
				Platform:   core.PlatformGitHub,
				Repository: core.EventRepo{FullName: "acme/relay"},
			},
			wantErr: "no pull request",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := job.Run(context.Background(), tt.event)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewReviewJobPanicsOnNilDependencies(t *testing.T) {
	orchestrator := review.NewOrchestrator(nil, nil, nil, nil, nil, nil, nil, nil,
		decimal.Zero, time.Second, testLogger())

	assert.Panics(t, func() { NewReviewJob(nil, time.Second, testLogger()) })
	assert.Panics(t, func() { NewReviewJob(orchestrator, time.Second, nil) })
}
