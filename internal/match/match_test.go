package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-relay/internal/core"
)

func TestMatchesFilePattern(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		patterns string
		want     bool
	}{
		{"empty pattern matches all", "src/Foo.cs", "", true},
		{"blank pattern matches all", "main.go", "   ", true},
		{"star extension match", "src/Foo.cs", "*.cs", true},
		{"star extension mismatch", "src/Foo.go", "*.cs", false},
		{"case insensitive", "SRC/FOO.CS", "*.cs", true},
		{"comma separated, second matches", "api/handler.go", "*.cs,*.go", true},
		{"question mark single char", "a.go", "?.go", true},
		{"question mark needs one char", "ab.go", "?.go", false},
		{"anchored, no substring match", "main.go.bak", "*.go", false},
		{"directory prefix", "internal/core/event.go", "internal/*", true},
		{"literal dot not wildcard", "maingo", "main.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesFilePattern(tt.path, tt.patterns))
		})
	}
}

func TestKeywordMatches(t *testing.T) {
	tests := []struct {
		name    string
		keyword core.HotKeyword
		path    string
		diff    string
		want    bool
	}{
		{
			name:    "substring case insensitive",
			keyword: core.HotKeyword{Pattern: "password", Active: true},
			path:    "config.go",
			diff:    "+ var PASSWORD = \"hunter2\"",
			want:    true,
		},
		{
			name:    "inactive never matches",
			keyword: core.HotKeyword{Pattern: "password", Active: false},
			path:    "config.go",
			diff:    "+ password",
			want:    false,
		},
		{
			name:    "file pattern filters",
			keyword: core.HotKeyword{Pattern: "password", Active: true, FilePatterns: "*.cs"},
			path:    "config.go",
			diff:    "+ password",
			want:    false,
		},
		{
			name:    "regex mode",
			keyword: core.HotKeyword{Pattern: `api[_-]key`, IsRegex: true, Active: true},
			path:    "settings.py",
			diff:    "+ API-KEY = abc",
			want:    true,
		},
		{
			name:    "invalid regex never matches",
			keyword: core.HotKeyword{Pattern: `ap[i`, IsRegex: true, Active: true},
			path:    "settings.py",
			diff:    "+ ap[i",
			want:    false,
		},
		{
			name:    "empty diff never matches",
			keyword: core.HotKeyword{Pattern: "password", Active: true},
			path:    "config.go",
			diff:    "",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeywordMatches(tt.keyword, tt.path, tt.diff))
		})
	}
}

func TestScanKeywordsFiresOncePerKeyword(t *testing.T) {
	keywords := []core.HotKeyword{
		{ID: 1, Pattern: "todo", Active: true},
		{ID: 2, Pattern: "secret", Active: true},
	}
	diff := "+ todo: fix\n+ TODO again\n+ todo third time"

	matched := ScanKeywords(keywords, "main.go", diff)
	require.Len(t, matched, 1)
	assert.Equal(t, int64(1), matched[0].ID)
}

func TestSelectRules(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	override := 1

	rules := []core.RepoRule{
		{Rule: core.Rule{ID: 1, Name: "general", Priority: 50, Active: true, CreatedAt: base}},
		{Rule: core.Rule{ID: 2, Name: "go-only", Priority: 10, FilePatterns: "*.go", Active: true, CreatedAt: base}},
		{Rule: core.Rule{ID: 3, Name: "disabled", Priority: 1, Active: false, CreatedAt: base}},
		{
			Rule:             core.Rule{ID: 4, Name: "overridden", Priority: 99, Active: true, CreatedAt: base},
			PriorityOverride: &override,
		},
	}

	selected := SelectRules(rules, "cmd/server/main.go")
	require.Len(t, selected, 3)
	assert.Equal(t, "overridden", selected[0].Name)
	assert.Equal(t, "go-only", selected[1].Name)
	assert.Equal(t, "general", selected[2].Name)

	selected = SelectRules(rules, "README.md")
	require.Len(t, selected, 2)
	assert.Equal(t, "overridden", selected[0].Name)
	assert.Equal(t, "general", selected[1].Name)
}
