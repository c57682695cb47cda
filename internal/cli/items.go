package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/pantry/internal/model"
	"github.com/Makepad-fr/pantry/internal/pantry"
	"github.com/Makepad-fr/pantry/internal/ui"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "Print the current items",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.synchronizer()
			if err != nil {
				return err
			}
			items, err := a.items(cmd.Context(), s)
			if err != nil {
				return err
			}
			printItems(items)
			return nil
		},
	}
}

func printItems(items []model.Item) {
	t := ui.Current()
	if len(items) == 0 {
		fmt.Fprintln(ui.Out, t.Muted.Render("no items yet"))
		fmt.Fprintln(ui.Out, "Run: pantry add <name> <quantity>")
		return
	}
	width := 0
	for _, it := range items {
		if len(it.Name) > width {
			width = len(it.Name)
		}
	}
	lines := []string{t.Title.Render(fmt.Sprintf("Pantry  %s %d", t.SymBullet, len(items)))}
	for i, it := range items {
		lines = append(lines, fmt.Sprintf("%2d. %-*s  %s", i+1, width, it.Name, t.Accent.Render(it.Price)))
	}
	ui.Panel(lines)
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "add <name> <quantity>",
		Short:   "Add an item",
		Example: `  pantry add Milk 2
  pantry add "Olive oil" "1 bottle"`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := model.Draft{Name: args[0], Price: args[1]}
			if !pantry.ValidDraft(d) {
				return usagef("add: name and quantity are required")
			}
			s, err := a.synchronizer()
			if err != nil {
				return err
			}
			name := strings.TrimSpace(d.Name)
			if err := s.AddItem(cmd.Context(), &d); err != nil {
				return fmt.Errorf("add: %w", err)
			}
			ui.OK("added " + name)
			return nil
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <index|id>",
		Aliases: []string{"remove"},
		Short:   "Remove an item by 1-based index (as shown by ls) or by id",
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.synchronizer()
			if err != nil {
				return err
			}
			items, err := a.items(cmd.Context(), s)
			if err != nil {
				return err
			}
			it, err := resolveItem(items, args[0])
			if err != nil {
				return err
			}
			if err := s.DeleteItem(cmd.Context(), it.ID); err != nil {
				return fmt.Errorf("rm: %w", err)
			}
			ui.OK("removed " + it.Name)
			return nil
		},
	}
}

// resolveItem accepts an exact id first, then a 1-based index.
func resolveItem(items []model.Item, arg string) (model.Item, error) {
	for _, it := range items {
		if it.ID == arg {
			return it, nil
		}
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return model.Item{}, usagef("rm: no item with id %q", arg)
	}
	if n < 1 || n > len(items) {
		return model.Item{}, usagef("index out of range: have %d, got %d", len(items), n)
	}
	return items[n-1], nil
}
