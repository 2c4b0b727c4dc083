package core

import "time"

// Rule binds a set of file patterns to an external AI review endpoint.
// FilePatterns is a comma-separated glob list; empty means "match all files".
// Lower Priority wins when several rules apply to the same file.
type Rule struct {
	ID             int64
	Name           string
	Description    string
	ReviewEndpoint string
	ReviewKey      string
	Priority       int
	FilePatterns   string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// RepoRule is a rule as linked to one repository. A link may override the
// rule's priority and file patterns without touching the rule itself.
type RepoRule struct {
	Rule
	PriorityOverride    *int
	FilePatternOverride *string
}

// EffectivePriority returns the link override when set, else the rule's own
// priority.
func (r RepoRule) EffectivePriority() int {
	if r.PriorityOverride != nil {
		return *r.PriorityOverride
	}
	return r.Priority
}

// EffectivePatterns returns the link override when set, else the rule's own
// pattern list.
func (r RepoRule) EffectivePatterns() string {
	if r.FilePatternOverride != nil {
		return *r.FilePatternOverride
	}
	return r.FilePatterns
}

// Severity levels used by keyword alerts and review comments.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// HotKeyword is a pattern whose presence in a diff triggers an immediate,
// rule-independent alert comment. Pattern is a plain substring unless IsRegex
// is set; both modes match case-insensitively.
type HotKeyword struct {
	ID           int64
	Pattern      string
	IsRegex      bool
	FilePatterns string
	Severity     string
	Category     string
	AlertMessage string
	Active       bool
	TriggerCount int64
	CreatedAt    time.Time
}
