package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/pantry/internal/llm"
	"github.com/Makepad-fr/pantry/internal/ui"
)

func newRecipeCmd(a *app) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "recipe",
		Short: "Ask for a recipe that uses the current items",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.synchronizer()
			if err != nil {
				return err
			}
			flow, err := a.recipeFlow()
			if err != nil {
				return err
			}
			items, err := a.items(cmd.Context(), s)
			if err != nil {
				return err
			}

			res := flow.Generate(cmd.Context(), items)
			if res.Text == "" {
				if errors.Is(res.Err, llm.ErrNoAPIKey) {
					fmt.Fprintln(ui.Err, ui.Current().Muted.Render("Hint: set GROQ_API_KEY or run `pantry auth login`"))
				}
				return fmt.Errorf("no recipe (%s)", res.Outcome)
			}
			if raw {
				fmt.Fprintln(ui.Out, res.Text)
				return nil
			}
			fmt.Fprintln(ui.Out, renderMarkdown(res.Text))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the recipe text without markdown rendering")
	return cmd
}

func renderMarkdown(text string) string {
	style := "dark"
	if ui.Current().Name == "mono" {
		style = "notty"
	}
	out, err := glamour.Render(text, style)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
