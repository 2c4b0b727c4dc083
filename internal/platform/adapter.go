// Package platform hides each source-control platform's REST and webhook
// peculiarities behind one adapter contract. Adapters page transparently,
// retry transient transport failures with bounded backoff, and fall back to a
// summary comment when an inline comment cannot be anchored.
package platform

import (
	"context"
	"fmt"

	"github.com/sevigo/review-relay/internal/core"
)

// RepoInfo is platform-reported repository metadata.
type RepoInfo struct {
	RemoteID      string
	Name          string
	FullName      string
	Description   string
	DefaultBranch string
	Private       bool
}

// Adapter is the capability contract one platform implementation satisfies.
// Callers never see page boundaries: GetPullRequestFiles returns the full
// concatenated file list.
type Adapter interface {
	Platform() core.Platform
	GetRepositoryInfo(ctx context.Context, creds core.Credentials, fullName string) (*RepoInfo, error)
	GetPullRequestFiles(ctx context.Context, creds core.Credentials, fullName string, number int) ([]core.ChangedFile, error)
	PostInlineComment(ctx context.Context, creds core.Credentials, fullName string, number int, path string, line int, text string) error
	PostSummaryComment(ctx context.Context, creds core.Credentials, fullName string, number int, text string) error
	ValidateSignature(body []byte, signature, secret string) bool
}

// Registry resolves a platform to its adapter. No fallback adapter exists:
// an unregistered platform is an error.
type Registry struct {
	adapters map[core.Platform]Adapter
}

// NewRegistry builds a registry over the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[core.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

// Resolve returns the adapter for a platform or ErrPlatformNotSupported.
func (r *Registry) Resolve(platform core.Platform) (Adapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for %q", core.ErrPlatformNotSupported, platform)
	}
	return a, nil
}

// inlineFallbackText embeds the failed anchor in a summary comment body so the
// finding survives an un-anchorable inline comment.
func inlineFallbackText(path string, line int, text string) string {
	return fmt.Sprintf("**%s** (line %d):\n\n%s", path, line, text)
}
