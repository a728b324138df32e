package models

import (
	"fmt"
	"strings"
)

// BugReport is the payload accepted from the web form and trusted
// application clients. Title and Description are required; everything else
// is optional detail folded into the generated issue body.
type BugReport struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity,omitempty"`
	Category    string   `json:"category,omitempty"`
	Steps       string   `json:"steps,omitempty"`
	Expected    string   `json:"expected,omitempty"`
	Actual      string   `json:"actual,omitempty"`
	SystemInfo  string   `json:"systemInfo,omitempty"`
	Additional  string   `json:"additional,omitempty"`
}

// Normalize fills in defaults for omitted optional fields.
func (r *BugReport) Normalize() {
	if !r.Severity.Valid() {
		r.Severity = SeverityMedium
	}
	if r.Category == "" {
		r.Category = DefaultCategory
	}
}

// RenderBody produces the markdown issue body for the report. The source
// attribution line records whether the report came from a recognized
// application client or the anonymous web form.
func (r *BugReport) RenderBody(source string) string {
	var sb strings.Builder

	sb.WriteString("## Description\n\n")
	sb.WriteString(r.Description)
	sb.WriteString("\n")

	section := func(heading, text string) {
		if text == "" {
			return
		}
		fmt.Fprintf(&sb, "\n## %s\n\n%s\n", heading, text)
	}
	section("Steps to Reproduce", r.Steps)
	section("Expected Behavior", r.Expected)
	section("Actual Behavior", r.Actual)
	section("System Info", r.SystemInfo)
	section("Additional Context", r.Additional)

	fmt.Fprintf(&sb, "\n---\n\n*Severity: %s | Category: %s | Source: %s*\n",
		r.Severity, r.Category, source)

	return sb.String()
}

// IssueLabels returns the label set for the created issue. Anonymous web
// submissions additionally carry the web-submission marker.
func (r *BugReport) IssueLabels(trusted bool) []string {
	labels := []string{
		"bug",
		SeverityLabelPrefix + string(r.Severity),
		CategoryLabelPrefix + r.Category,
	}
	if !trusted {
		labels = append(labels, "web-submission")
	}
	return labels
}
