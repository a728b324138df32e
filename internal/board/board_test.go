package board

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nightfallstudio/bugboard/internal/models"
)

func TestColumnOf(t *testing.T) {
	tests := []struct {
		name   string
		issue  models.Issue
		expect models.Column
	}{
		{
			name:   "open with status label",
			issue:  models.Issue{State: "open", Labels: []string{"bug", "status:testing"}},
			expect: models.ColumnTesting,
		},
		{
			name:   "open without status label defaults to backlog",
			issue:  models.Issue{State: "open", Labels: []string{"bug"}},
			expect: models.ColumnBacklog,
		},
		{
			name:   "closed without status label defaults to done",
			issue:  models.Issue{State: "closed", Labels: []string{"bug"}},
			expect: models.ColumnDone,
		},
		{
			name:   "closed with explicit status keeps it",
			issue:  models.Issue{State: "closed", Labels: []string{"status:testing"}},
			expect: models.ColumnTesting,
		},
		{
			name:   "unknown status value falls back to backlog",
			issue:  models.Issue{State: "open", Labels: []string{"status:bogus"}},
			expect: models.ColumnBacklog,
		},
		{
			name:   "duplicate status labels first wins",
			issue:  models.Issue{State: "open", Labels: []string{"status:todo", "status:done"}},
			expect: models.ColumnTodo,
		},
		{
			name:   "no labels at all",
			issue:  models.Issue{State: "open"},
			expect: models.ColumnBacklog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ColumnOf(&tt.issue)
			assert.Equal(t, tt.expect, got)
			assert.True(t, got.Valid(), "ColumnOf must always return a known column")
		})
	}
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		expect models.Severity
	}{
		{"explicit severity", []string{"severity:critical"}, models.SeverityCritical},
		{"no severity defaults to medium", []string{"bug"}, models.SeverityMedium},
		{"unknown severity defaults to medium", []string{"severity:apocalyptic"}, models.SeverityMedium},
		{"duplicate severity first wins", []string{"severity:low", "severity:high"}, models.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := models.Issue{State: "open", Labels: tt.labels}
			assert.Equal(t, tt.expect, SeverityOf(&issue))
		})
	}
}

func TestCategoryOf(t *testing.T) {
	issue := models.Issue{Labels: []string{"category:audio", "category:ui"}}
	assert.Equal(t, "audio", CategoryOf(&issue), "first category in label order wins")

	bare := models.Issue{Labels: []string{"bug"}}
	assert.Equal(t, "general", CategoryOf(&bare))
}

func TestWithColumn(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		target models.Column
		expect []string
	}{
		{
			name:   "replaces existing status",
			labels: []string{"bug", "status:todo", "severity:high"},
			target: models.ColumnTesting,
			expect: []string{"bug", "severity:high", "status:testing"},
		},
		{
			name:   "adds status when none present",
			labels: []string{"bug"},
			target: models.ColumnTodo,
			expect: []string{"bug", "status:todo"},
		},
		{
			name:   "removes every status label",
			labels: []string{"status:backlog", "status:done", "web-submission"},
			target: models.ColumnInProgress,
			expect: []string{"web-submission", "status:in-progress"},
		},
		{
			name:   "collapses duplicate non-status labels",
			labels: []string{"bug", "bug", "status:todo"},
			target: models.ColumnDone,
			expect: []string{"bug", "status:done"},
		},
		{
			name:   "empty set",
			labels: nil,
			target: models.ColumnBacklog,
			expect: []string{"status:backlog"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WithColumn(tt.labels, tt.target)
			assert.Equal(t, tt.expect, got)

			statusCount := 0
			for _, label := range got {
				if label == "status:"+string(tt.target) {
					statusCount++
				}
			}
			assert.Equal(t, 1, statusCount, "exactly one status label")
		})
	}
}

func TestWithColumnIdempotent(t *testing.T) {
	start := []string{"bug", "severity:high", "status:todo"}

	first := WithColumn(start, models.ColumnTesting)
	second := WithColumn(start, models.ColumnTesting)
	assert.Equal(t, first, second)

	// Applying again to its own output is also stable.
	again := WithColumn(first, models.ColumnTesting)
	assert.Equal(t, first, again)
}

func TestNormalizeLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		expect []string
	}{
		{
			name:   "collapses duplicate families keeping first",
			labels: []string{"status:todo", "bug", "status:done", "severity:high", "severity:low"},
			expect: []string{"status:todo", "bug", "severity:high"},
		},
		{
			name:   "drops exact duplicates",
			labels: []string{"bug", "bug", "web-submission"},
			expect: []string{"bug", "web-submission"},
		},
		{
			name:   "passes clean sets through",
			labels: []string{"bug", "status:testing"},
			expect: []string{"bug", "status:testing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, NormalizeLabels(tt.labels))
		})
	}
}
