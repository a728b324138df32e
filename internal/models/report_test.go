package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDefaults(t *testing.T) {
	r := BugReport{Title: "t", Description: "d"}
	r.Normalize()
	assert.Equal(t, SeverityMedium, r.Severity)
	assert.Equal(t, "general", r.Category)
}

func TestNormalizeRejectsUnknownSeverity(t *testing.T) {
	r := BugReport{Title: "t", Description: "d", Severity: "catastrophic"}
	r.Normalize()
	assert.Equal(t, SeverityMedium, r.Severity)
}

func TestNormalizeKeepsProvidedValues(t *testing.T) {
	r := BugReport{Title: "t", Description: "d", Severity: SeverityLow, Category: "audio"}
	r.Normalize()
	assert.Equal(t, SeverityLow, r.Severity)
	assert.Equal(t, "audio", r.Category)
}

func TestRenderBody(t *testing.T) {
	r := BugReport{
		Title:       "Crash on launch",
		Description: "The app crashes right away.",
		Severity:    SeverityHigh,
		Category:    "crash",
		Steps:       "1. Open the app",
		Expected:    "App starts",
		Actual:      "App closes",
		SystemInfo:  "macOS 15.2",
	}

	body := r.RenderBody("web form")
	assert.True(t, strings.HasPrefix(body, "## Description\n"))
	assert.Contains(t, body, "The app crashes right away.")
	assert.Contains(t, body, "## Steps to Reproduce")
	assert.Contains(t, body, "## Expected Behavior")
	assert.Contains(t, body, "## Actual Behavior")
	assert.Contains(t, body, "## System Info")
	assert.NotContains(t, body, "## Additional Context", "empty sections are omitted")
	assert.Contains(t, body, "*Severity: high | Category: crash | Source: web form*")
}

func TestRenderBodyMinimal(t *testing.T) {
	r := BugReport{Title: "t", Description: "just a description"}
	r.Normalize()

	body := r.RenderBody("application")
	assert.Contains(t, body, "just a description")
	assert.Contains(t, body, "Source: application")
	assert.NotContains(t, body, "## Steps to Reproduce")
}

func TestIssueLabels(t *testing.T) {
	r := BugReport{Severity: SeverityHigh, Category: "ui"}

	assert.Equal(t,
		[]string{"bug", "severity:high", "category:ui"},
		r.IssueLabels(true))
	assert.Equal(t,
		[]string{"bug", "severity:high", "category:ui", "web-submission"},
		r.IssueLabels(false))
}

func TestColumnValid(t *testing.T) {
	for _, col := range Columns {
		assert.True(t, col.Valid(), "column %q", col)
	}
	assert.False(t, Column("archived").Valid())
	assert.False(t, Column("").Valid())
}

func TestSeverityValid(t *testing.T) {
	for _, sev := range []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow} {
		assert.True(t, sev.Valid(), "severity %q", sev)
	}
	assert.False(t, Severity("urgent").Valid())
}

func TestIssueClosed(t *testing.T) {
	assert.True(t, (&Issue{State: "closed"}).Closed())
	assert.False(t, (&Issue{State: "open"}).Closed())
}
