// Package board maps between issue labels and Kanban board columns, and
// categorizes fetched issues for display. All functions here are pure;
// nothing in this package talks to the network.
package board

import (
	"strings"

	"github.com/nightfallstudio/bugboard/internal/models"
)

// ColumnOf derives the board column for an issue. A closed issue with no
// recognized status label lands in done; an open issue with none lands in
// backlog. When an issue carries several status labels (upstream does not
// enforce the one-per-family invariant) the first in upstream label order
// wins.
func ColumnOf(issue *models.Issue) models.Column {
	if name, ok := familyValue(issue.Labels, models.StatusLabelPrefix); ok {
		if col := models.Column(name); col.Valid() {
			return col
		}
	}
	if issue.Closed() {
		return models.ColumnDone
	}
	return models.ColumnBacklog
}

// SeverityOf derives the display severity for an issue, defaulting to
// medium. First match in upstream label order wins.
func SeverityOf(issue *models.Issue) models.Severity {
	if name, ok := familyValue(issue.Labels, models.SeverityLabelPrefix); ok {
		if sev := models.Severity(name); sev.Valid() {
			return sev
		}
	}
	return models.SeverityMedium
}

// CategoryOf derives the display category for an issue, defaulting to
// general. First match in upstream label order wins.
func CategoryOf(issue *models.Issue) string {
	if name, ok := familyValue(issue.Labels, models.CategoryLabelPrefix); ok && name != "" {
		return name
	}
	return models.DefaultCategory
}

// WithColumn computes the complete label set that places an issue in the
// target column: every status-family label is removed, exactly one
// status:<target> is added, and all other labels pass through unchanged
// with duplicates collapsed. The result is what gets submitted as a full
// label replacement, so calling it twice with the same inputs yields the
// same set.
func WithColumn(labels []string, target models.Column) []string {
	result := make([]string, 0, len(labels)+1)
	seen := make(map[string]bool, len(labels)+1)
	for _, label := range labels {
		if strings.HasPrefix(label, models.StatusLabelPrefix) {
			continue
		}
		if seen[label] {
			continue
		}
		seen[label] = true
		result = append(result, label)
	}
	result = append(result, models.StatusLabelPrefix+string(target))
	return result
}

// NormalizeLabels collapses duplicate labels and keeps only the first
// label of each family, so a sanitized set never violates the
// one-label-per-family invariant regardless of what a client submitted.
// Order is preserved otherwise.
func NormalizeLabels(labels []string) []string {
	familyPrefixes := []string{
		models.StatusLabelPrefix,
		models.SeverityLabelPrefix,
		models.CategoryLabelPrefix,
	}

	result := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	familySeen := make(map[string]bool, len(familyPrefixes))
	for _, label := range labels {
		if seen[label] {
			continue
		}
		skip := false
		for _, prefix := range familyPrefixes {
			if strings.HasPrefix(label, prefix) {
				if familySeen[prefix] {
					skip = true
				}
				familySeen[prefix] = true
				break
			}
		}
		if skip {
			continue
		}
		seen[label] = true
		result = append(result, label)
	}
	return result
}

// familyValue returns the value of the first label carrying the given
// family prefix, preserving upstream label order.
func familyValue(labels []string, prefix string) (string, bool) {
	for _, label := range labels {
		if strings.HasPrefix(label, prefix) {
			return strings.TrimPrefix(label, prefix), true
		}
	}
	return "", false
}
