package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sevigo/review-relay/internal/core"
)

var lineRefRegex = regexp.MustCompile(`[Ll]ine\s*(\d+)`)

// noIssuePhrases short-circuit free-text parsing: an answer containing any of
// them yields zero comments.
var noIssuePhrases = []string{
	"no issues",
	"looks good",
	"no problems",
	"lgtm",
	"沒有問題",
	"沒有發現問題",
}

type jsonComment struct {
	Line     int    `json:"line"`
	Comment  string `json:"comment"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Category string `json:"category"`
}

// ParseAnswer extracts review comments from the backend's answer text.
// It tries, in order:
//  1. a structured JSON array of comment objects,
//  2. "no issues" phrase detection,
//  3. line-oriented parsing of bullet / numbered findings,
//  4. a single comment wrapping the whole answer when it carries substance.
//
// Any ambiguity degrades to zero comments rather than a fabricated finding.
func ParseAnswer(answer string) []core.ReviewComment {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil
	}

	if comments, ok := parseJSONComments(answer); ok {
		return comments
	}

	lower := strings.ToLower(answer)
	for _, phrase := range noIssuePhrases {
		if strings.Contains(lower, phrase) {
			return nil
		}
	}

	comments := parseFreeText(answer)
	if len(comments) == 0 && len(answer) > 20 {
		// Substantial answer with no recognizable structure: surface it whole
		// so the finding is not silently lost.
		comments = []core.ReviewComment{{Text: answer, Severity: core.SeverityInfo}}
	}
	return comments
}

func parseJSONComments(answer string) ([]core.ReviewComment, bool) {
	if !strings.HasPrefix(answer, "[") {
		return nil, false
	}
	var raw []jsonComment
	if err := json.Unmarshal([]byte(answer), &raw); err != nil {
		return nil, false
	}

	var comments []core.ReviewComment
	for _, c := range raw {
		text := c.Comment
		if text == "" {
			text = c.Message
		}
		if text == "" {
			continue
		}
		severity := c.Severity
		if severity == "" {
			severity = core.SeverityInfo
		}
		comments = append(comments, core.ReviewComment{
			LineNumber: c.Line,
			Text:       text,
			Severity:   severity,
			Category:   c.Category,
		})
	}
	return comments, true
}

func parseFreeText(answer string) []core.ReviewComment {
	var comments []core.ReviewComment
	var current *core.ReviewComment

	flush := func() {
		if current != nil && strings.TrimSpace(current.Text) != "" {
			current.Text = strings.TrimSpace(current.Text)
			comments = append(comments, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "---") {
			continue
		}

		if isFindingStart(line) {
			flush()
			current = &core.ReviewComment{
				Text:     strings.TrimLeft(line, "-*0123456789. "),
				Severity: inferSeverity(line),
			}
			if m := lineRefRegex.FindStringSubmatch(line); m != nil {
				current.LineNumber = atoiSafe(m[1])
			}
			continue
		}

		if current != nil {
			current.Text += " " + line
		}
	}
	flush()
	return comments
}

func isFindingStart(line string) bool {
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
		return true
	}
	return line[0] >= '0' && line[0] <= '9'
}

func inferSeverity(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "error"),
		strings.Contains(lower, "critical"),
		strings.Contains(lower, "security"):
		return core.SeverityError
	case strings.Contains(lower, "warning"),
		strings.Contains(lower, "should"):
		return core.SeverityWarning
	}
	return core.SeverityInfo
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
