// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import "fmt"

// Platform identifies a source-control platform. The set is closed: adding a
// platform means adding a constant here and registering an adapter and a
// webhook parser for it at startup.
type Platform string

const (
	PlatformGitHub    Platform = "github"
	PlatformGitLab    Platform = "gitlab"
	PlatformBitbucket Platform = "bitbucket"
)

// Platforms lists every supported platform.
func Platforms() []Platform {
	return []Platform{PlatformGitHub, PlatformGitLab, PlatformBitbucket}
}

// ParsePlatform converts a string (route segment, DB column) into a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformGitHub, PlatformGitLab, PlatformBitbucket:
		return Platform(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrPlatformNotSupported, s)
}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	_, err := ParsePlatform(string(p))
	return err == nil
}

func (p Platform) String() string { return string(p) }
