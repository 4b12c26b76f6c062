package scoring

import (
	"fmt"
	"strings"

	"github.com/planwright/planwright/internal/rules"
)

// feedbackSectionCap bounds each feedback section so the text stays
// usable as a generation prompt.
const feedbackSectionCap = 5

// RenderFeedback formats a result as deterministic, ranked guidance
// text: critical rule issues first, then structural failures, then
// errors, then suggestions. Tests assert on the structured issue list,
// not on this prose.
func RenderFeedback(res *Result) string {
	var b strings.Builder

	critical := issuesBySeverity(res.Issues, rules.SeverityCritical)
	errs := issuesBySeverity(res.Issues, rules.SeverityError)
	warnings := issuesBySeverity(res.Issues, rules.SeverityWarning)

	if len(critical) > 0 {
		b.WriteString("Must fix:\n")
		writeIssueLines(&b, critical)
	}

	if len(res.HardFailures) > 0 {
		b.WriteString("Structural problems:\n")
		writeLines(&b, res.HardFailures)
	}

	if len(errs) > 0 {
		b.WriteString("Errors:\n")
		writeIssueLines(&b, errs)
	}

	suggestions := make([]string, 0, len(warnings)+len(res.SoftFailures))
	for _, is := range warnings {
		suggestions = append(suggestions, is.Message)
	}
	suggestions = append(suggestions, res.SoftFailures...)
	if len(suggestions) > 0 {
		b.WriteString("Suggestions:\n")
		writeLines(&b, suggestions)
	}

	if b.Len() == 0 {
		return "Layout complies with all checked rules."
	}
	return strings.TrimRight(b.String(), "\n")
}

func issuesBySeverity(issues []rules.Issue, sev rules.Severity) []rules.Issue {
	var out []rules.Issue
	for _, is := range issues {
		if is.Severity == sev {
			out = append(out, is)
		}
	}
	return out
}

func writeIssueLines(b *strings.Builder, issues []rules.Issue) {
	for i, is := range issues {
		if i >= feedbackSectionCap {
			fmt.Fprintf(b, "- and %d more\n", len(issues)-feedbackSectionCap)
			break
		}
		fmt.Fprintf(b, "- %s\n", is.Message)
	}
}

func writeLines(b *strings.Builder, lines []string) {
	for i, line := range lines {
		if i >= feedbackSectionCap {
			fmt.Fprintf(b, "- and %d more\n", len(lines)-feedbackSectionCap)
			break
		}
		fmt.Fprintf(b, "- %s\n", line)
	}
}
