package core

// EventRepo is the repository reference carried by a webhook payload.
type EventRepo struct {
	RemoteID string
	Name     string
	FullName string
	CloneURL string
}

// EventUser identifies a platform user referenced by a webhook payload.
type EventUser struct {
	ID       string
	Username string
}

// EventPullRequest is the pull/merge request described by a webhook payload.
type EventPullRequest struct {
	Number       int
	Title        string
	Body         string
	State        string
	SourceBranch string
	TargetBranch string
	HeadSHA      string
	Author       *EventUser
}

// CanonicalEvent is the platform-agnostic view of a webhook notification.
// Parsers fill it best-effort; Repository.FullName is always non-empty for a
// successfully parsed event, and PullRequest is non-nil for any event that
// reaches the review pipeline.
type CanonicalEvent struct {
	Platform    Platform
	EventType   string
	Action      string
	Repository  EventRepo
	PullRequest *EventPullRequest
	Sender      *EventUser
	RawPayload  string
}

// FileChangeType classifies how a pull request touched a file.
type FileChangeType string

const (
	FileAdded    FileChangeType = "added"
	FileModified FileChangeType = "modified"
	FileDeleted  FileChangeType = "deleted"
	FileRenamed  FileChangeType = "renamed"
)

// ChangedFile is one file of a pull request's diff. Patch holds the unified
// diff hunk text when the platform provides it per file.
type ChangedFile struct {
	Path       string
	ChangeType FileChangeType
	Additions  int
	Deletions  int
	Patch      string
}
