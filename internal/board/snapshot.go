package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/nightfallstudio/bugboard/internal/models"
)

// Card is an issue annotated with its derived board position. Cards are
// recomputed from labels on every snapshot; they are never stored.
type Card struct {
	models.Issue
	Column   models.Column   `json:"column"`
	Severity models.Severity `json:"severity"`
	Category string          `json:"category"`
}

// NewCard derives a card from an issue.
func NewCard(issue models.Issue) Card {
	return Card{
		Issue:    issue,
		Column:   ColumnOf(&issue),
		Severity: SeverityOf(&issue),
		Category: CategoryOf(&issue),
	}
}

// Snapshot is an in-memory view of fetched issues grouped into columns.
// Searching and filtering run against the snapshot without further network
// calls; moves mutate the snapshot optimistically and roll back when the
// upstream mutation fails.
type Snapshot struct {
	cards []Card
}

// NewSnapshot categorizes the given issues into a board snapshot.
func NewSnapshot(issues []models.Issue) *Snapshot {
	cards := make([]Card, len(issues))
	for i, issue := range issues {
		cards[i] = NewCard(issue)
	}
	return &Snapshot{cards: cards}
}

// Cards returns all cards in listing order.
func (s *Snapshot) Cards() []Card {
	return s.cards
}

// Column returns the cards currently in the given column.
func (s *Snapshot) Column(col models.Column) []Card {
	var out []Card
	for _, c := range s.cards {
		if c.Column == col {
			out = append(out, c)
		}
	}
	return out
}

// Search returns cards whose title, body, or labels contain the query,
// case-insensitively. An empty query matches everything.
func (s *Snapshot) Search(query string) []Card {
	if query == "" {
		return s.cards
	}
	q := strings.ToLower(query)
	var out []Card
	for _, c := range s.cards {
		if strings.Contains(strings.ToLower(c.Title), q) ||
			strings.Contains(strings.ToLower(c.Body), q) {
			out = append(out, c)
			continue
		}
		for _, label := range c.Labels {
			if strings.Contains(strings.ToLower(label), q) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Mutator applies a full label replacement upstream. It matches the
// upstream client's ReplaceLabels signature.
type Mutator func(ctx context.Context, number int, labels []string) ([]string, error)

// Move places the identified card in the target column: the snapshot is
// updated first so the caller's view reflects the drop immediately, then
// the label mutation is submitted. If the mutation fails the pre-move
// card is restored verbatim and the error is returned.
func (s *Snapshot) Move(ctx context.Context, number int, target models.Column, mutate Mutator) error {
	if !target.Valid() {
		return fmt.Errorf("unknown column: %q", target)
	}

	idx := -1
	for i, c := range s.cards {
		if c.Number == number {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("issue #%d not in snapshot", number)
	}

	before := s.cards[idx]

	moved := before
	moved.Labels = WithColumn(before.Labels, target)
	moved.Column = target
	s.cards[idx] = moved

	applied, err := mutate(ctx, number, moved.Labels)
	if err != nil {
		s.cards[idx] = before
		return err
	}

	// The upstream's view of the label set is authoritative.
	moved.Labels = applied
	s.cards[idx] = NewCard(moved.Issue)
	return nil
}
