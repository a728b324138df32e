package models

import "time"

// Column represents a workflow position on the Kanban board. Columns are
// derived from an issue's status label; they have no storage of their own.
type Column string

const (
	ColumnBacklog    Column = "backlog"
	ColumnTodo       Column = "todo"
	ColumnInProgress Column = "in-progress"
	ColumnTesting    Column = "testing"
	ColumnDone       Column = "done"
)

// Columns lists every column in board order.
var Columns = []Column{
	ColumnBacklog,
	ColumnTodo,
	ColumnInProgress,
	ColumnTesting,
	ColumnDone,
}

// Valid reports whether c is one of the known columns.
func (c Column) Valid() bool {
	for _, known := range Columns {
		if c == known {
			return true
		}
	}
	return false
}

// Severity represents the urgency of a reported bug.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Label family prefixes. Each family allows at most one label per issue;
// the board mapper enforces this by replacing, never appending.
const (
	StatusLabelPrefix   = "status:"
	SeverityLabelPrefix = "severity:"
	CategoryLabelPrefix = "category:"
)

// DefaultCategory is applied when an issue carries no category label.
const DefaultCategory = "general"

// Issue represents an issue in the upstream tracker. The gateway never
// persists issues; only transient cached copies of upstream responses exist.
type Issue struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	State     string     `json:"state"`
	Labels    []string   `json:"labels"`
	Assignee  string     `json:"assignee,omitempty"`
	Comments  int        `json:"comments"`
	URL       string     `json:"url"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// Closed reports whether the issue is closed upstream.
func (i *Issue) Closed() bool {
	return i.State == "closed"
}
