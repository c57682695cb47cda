package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/pantry/internal/model"
	"github.com/Makepad-fr/pantry/internal/pantry"
)

// itemsMsg carries the latest snapshot projection.
type itemsMsg []model.Item

// writeMsg reports the end of an add or delete.
type writeMsg struct {
	op  string
	err error
}

type recipeMsg pantry.Result

// waitForItems blocks until the synchronizer has a new list or ctx ends.
func waitForItems(ctx context.Context, s *pantry.Synchronizer) tea.Cmd {
	return func() tea.Msg {
		select {
		case items := <-s.Updates():
			return itemsMsg(items)
		case <-ctx.Done():
			return nil
		}
	}
}

func addItem(ctx context.Context, s *pantry.Synchronizer, d model.Draft) tea.Cmd {
	return func() tea.Msg {
		return writeMsg{op: "add", err: s.AddItem(ctx, &d)}
	}
}

func deleteItem(ctx context.Context, s *pantry.Synchronizer, id string) tea.Cmd {
	return func() tea.Msg {
		return writeMsg{op: "delete", err: s.DeleteItem(ctx, id)}
	}
}

func generateRecipe(ctx context.Context, f *pantry.RecipeFlow, items []model.Item) tea.Cmd {
	return func() tea.Msg {
		return recipeMsg(f.Generate(ctx, items))
	}
}
