// Package match implements the file-pattern and hot-keyword matching engine
// used to decide which rules and alerts apply to a changed file.
package match

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sevigo/review-relay/internal/core"
)

// MatchesFilePattern reports whether path matches any pattern of the
// comma-separated list. An empty or blank list matches everything. Within a
// pattern, `*` matches any run of characters and `?` exactly one; matching is
// anchored and case-insensitive.
func MatchesFilePattern(path, patterns string) bool {
	if strings.TrimSpace(patterns) == "" {
		return true
	}
	for _, pattern := range strings.Split(patterns, ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		expr := "(?i)^" + strings.NewReplacer(`\*`, ".*", `\?`, ".").Replace(regexp.QuoteMeta(pattern)) + "$"
		re, err := regexp.Compile(expr)
		if err != nil {
			continue
		}
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// KeywordMatches reports whether the keyword fires for the given file path and
// diff text. Substring and regex modes are both case-insensitive; a keyword
// with an invalid regex never matches.
func KeywordMatches(k core.HotKeyword, path, diff string) bool {
	if !k.Active || diff == "" {
		return false
	}
	if !MatchesFilePattern(path, k.FilePatterns) {
		return false
	}
	if k.IsRegex {
		re, err := regexp.Compile("(?i)" + k.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(diff)
	}
	return strings.Contains(strings.ToLower(diff), strings.ToLower(k.Pattern))
}

// ScanKeywords returns the keywords that fire for one file, at most once per
// keyword regardless of how many places in the diff match.
func ScanKeywords(keywords []core.HotKeyword, path, diff string) []core.HotKeyword {
	var matched []core.HotKeyword
	for _, k := range keywords {
		if KeywordMatches(k, path, diff) {
			matched = append(matched, k)
		}
	}
	return matched
}

// SelectRules returns the active rules applicable to path, ordered by
// effective priority ascending (link override wins over the rule's own
// priority). Ties keep rule creation order; the sort is stable so equal
// priorities never reshuffle between runs.
func SelectRules(rules []core.RepoRule, path string) []core.RepoRule {
	var selected []core.RepoRule
	for _, r := range rules {
		if !r.Active {
			continue
		}
		if MatchesFilePattern(path, r.EffectivePatterns()) {
			selected = append(selected, r)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		pi, pj := selected[i].EffectivePriority(), selected[j].EffectivePriority()
		if pi != pj {
			return pi < pj
		}
		if !selected[i].CreatedAt.Equal(selected[j].CreatedAt) {
			return selected[i].CreatedAt.Before(selected[j].CreatedAt)
		}
		return selected[i].ID < selected[j].ID
	})
	return selected
}
