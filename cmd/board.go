package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nightfallstudio/bugboard/internal/board"
	"github.com/nightfallstudio/bugboard/internal/models"
	"github.com/nightfallstudio/bugboard/internal/output"
	"github.com/nightfallstudio/bugboard/internal/upstream"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the Kanban board",
	Long:  "Show open and closed issues grouped into board columns derived from their status labels.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return boardShowRun(cmd.Context())
	},
}

var boardMoveCmd = &cobra.Command{
	Use:   "move <issue-number> <column>",
	Short: "Move an issue to another column",
	Long:  "Move an issue to another column by replacing its status label. Non-status labels are preserved.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[0])
		if err != nil || number < 1 {
			return fmt.Errorf("invalid issue number: %q", args[0])
		}
		return boardMoveRun(cmd.Context(), number, models.Column(args[1]))
	},
}

func init() {
	boardCmd.AddCommand(boardMoveCmd)
	rootCmd.AddCommand(boardCmd)
}

func boardShowRun(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	api, err := newUpstream(cfg)
	if err != nil {
		return err
	}

	issues, err := api.ListIssues(ctx, upstream.ListOptions{State: "all", PerPage: 100})
	if err != nil {
		return fmt.Errorf("list issues: %w", err)
	}

	snapshot := board.NewSnapshot(issues)
	for _, col := range models.Columns {
		cards := snapshot.Column(col)
		fmt.Fprintf(ui.Out, "\n%s (%d)\n", output.ColumnColor(col), len(cards))
		if len(cards) == 0 {
			continue
		}
		table := ui.Table([]string{"#", "Title", "Severity"})
		for _, c := range cards {
			_ = table.Append([]string{
				fmt.Sprintf("%d", c.Number),
				c.Title,
				output.SeverityColor(c.Severity),
			})
		}
		_ = table.Render()
	}
	return nil
}

func boardMoveRun(ctx context.Context, number int, target models.Column) error {
	if !target.Valid() {
		return fmt.Errorf("unknown column %q (expected one of %v)", target, models.Columns)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	api, err := newUpstream(cfg)
	if err != nil {
		return err
	}

	issues, err := api.ListIssues(ctx, upstream.ListOptions{State: "all", PerPage: 100})
	if err != nil {
		return fmt.Errorf("list issues: %w", err)
	}

	if dryRun {
		for _, issue := range issues {
			if issue.Number == number {
				ui.DryRunMsg("Would move #%d from %s to %s", number, board.ColumnOf(&issue), target)
				return nil
			}
		}
		return fmt.Errorf("issue #%d not found", number)
	}

	snapshot := board.NewSnapshot(issues)
	if err := snapshot.Move(ctx, number, target, api.ReplaceLabels); err != nil {
		return fmt.Errorf("move issue: %w", err)
	}

	ui.Success("Moved #%d to %s", number, output.ColumnColor(target))
	return nil
}
