// Package webhook normalizes raw platform webhook deliveries into canonical
// events. Parsers are pure: the same body and headers always produce the same
// event or the same error, and a malformed payload never yields a partial
// event.
package webhook

import (
	"errors"
	"fmt"

	"github.com/sevigo/review-relay/internal/core"
)

// ErrMalformedPayload marks a body that could not be normalized. The HTTP
// layer maps it to a 400 response.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// Delivery carries the platform-specific header values alongside the raw
// body. Token is the signature or shared-secret header verbatim; validation
// happens at the orchestrator boundary where the secret is known, not here.
type Delivery struct {
	EventType  string
	Token      string
	DeliveryID string
}

// Parser converts one platform's webhook shape into a canonical event and
// decides whether the event is relevant enough to process.
type Parser interface {
	Platform() core.Platform
	Parse(body []byte, delivery Delivery) (*core.CanonicalEvent, error)
	ShouldProcess(event *core.CanonicalEvent) bool
}

// Registry resolves a platform to its parser. There is no default parser.
type Registry struct {
	parsers map[core.Platform]Parser
}

// NewRegistry builds a registry over the given parsers.
func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{parsers: make(map[core.Platform]Parser, len(parsers))}
	for _, p := range parsers {
		r.parsers[p.Platform()] = p
	}
	return r
}

// DefaultRegistry returns a registry covering every supported platform.
func DefaultRegistry() *Registry {
	return NewRegistry(NewGitHubParser(), NewGitLabParser(), NewBitbucketParser())
}

// Resolve returns the parser for a platform or ErrPlatformNotSupported.
func (r *Registry) Resolve(platform core.Platform) (Parser, error) {
	p, ok := r.parsers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: no webhook parser for %q", core.ErrPlatformNotSupported, platform)
	}
	return p, nil
}

func malformed(platform core.Platform, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedPayload, platform, reason)
}
