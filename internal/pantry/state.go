package pantry

import "github.com/Makepad-fr/pantry/internal/model"

// State is what a view shows: the mirrored list, the add-form draft and the
// last generated recipe. A view owns one State; the list part changes only
// through ReplaceSnapshot, the form only edits Draft.
type State struct {
	Items  []model.Item
	Draft  model.Draft
	Recipe string
}

// ReplaceSnapshot swaps in a new list from the synchronizer.
func (st *State) ReplaceSnapshot(items []model.Item) {
	st.Items = cloneItems(items)
}

// HasRecipe reports whether there is recipe text to show.
func (st State) HasRecipe() bool { return st.Recipe != "" }
