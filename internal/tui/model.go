// Package tui is the interactive terminal view of the pantry list.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/Makepad-fr/pantry/internal/model"
	"github.com/Makepad-fr/pantry/internal/pantry"
	"github.com/Makepad-fr/pantry/internal/ui"
)

const (
	fieldName = iota
	fieldQuantity
)

var (
	addKey    = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	deleteKey = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	recipeKey = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "recipe"))
)

type Model struct {
	ctx    context.Context
	sync   *pantry.Synchronizer
	recipe *pantry.RecipeFlow
	log    *zap.Logger

	state pantry.State
	list  list.Model

	// Inline add form
	adding bool
	inputs [2]textinput.Model
	focus  int
	hint   string

	loading  bool
	spinner  spinner.Model
	viewport viewport.Model

	status        string
	width, height int
}

// New builds the model; snapshots start flowing once the synchronizer is
// subscribed.
func New(ctx context.Context, s *pantry.Synchronizer, f *pantry.RecipeFlow, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}
	t := ui.Current()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.Title = "Pantry"
	l.SetShowHelp(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = t.Title
	l.Styles.HelpStyle = t.Help
	l.Styles.PaginationStyle = t.Help
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")
	l.AdditionalShortHelpKeys = func() []key.Binding { return []key.Binding{addKey, deleteKey, recipeKey} }
	l.AdditionalFullHelpKeys = l.AdditionalShortHelpKeys

	name := textinput.New()
	name.Prompt = "Name > "
	name.Placeholder = "Milk"
	name.CharLimit = 200
	qty := textinput.New()
	qty.Prompt = "Quantity > "
	qty.Placeholder = "2"
	qty.CharLimit = 50

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = t.Pending

	vp := viewport.New(80, 10)
	vp.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
	}

	m := Model{
		ctx:      ctx,
		sync:     s,
		recipe:   f,
		log:      log,
		list:     l,
		inputs:   [2]textinput.Model{name, qty},
		spinner:  sp,
		viewport: vp,
		width:    80,
		height:   24,
	}
	m.layout()
	return m
}

// Run subscribes, shows the list until the user quits, then unsubscribes.
func Run(ctx context.Context, s *pantry.Synchronizer, f *pantry.RecipeFlow, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.Subscribe(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer s.Unsubscribe()

	p := tea.NewProgram(New(ctx, s, f, log), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd { return waitForItems(m.ctx, m.sync) }

// State is what the view currently shows.
func (m Model) State() pantry.State { return m.state }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.renderRecipe()
		return m, nil

	case itemsMsg:
		m.state.ReplaceSnapshot(msg)
		cmd := m.list.SetItems(toListItems(m.state.Items))
		return m, tea.Batch(cmd, waitForItems(m.ctx, m.sync))

	case writeMsg:
		if msg.err != nil {
			m.log.Warn("write failed", zap.String("op", msg.op), zap.Error(msg.err))
			m.status = fmt.Sprintf("%s failed: %v", msg.op, msg.err)
		} else {
			m.status = ""
		}
		return m, nil

	case recipeMsg:
		m.loading = false
		m.state.Recipe = msg.Text
		if msg.Err != nil {
			m.status = "no recipe: " + msg.Outcome.String()
		}
		m.layout()
		m.renderRecipe()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.adding {
		return m.updateForm(msg)
	}

	if k, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch k.String() {
		case "q", "ctrl+c":
			m.sync.Unsubscribe()
			return m, tea.Quit
		case "a":
			m.adding = true
			m.hint = ""
			m.focus = fieldName
			m.layout()
			return m, m.focusInputs()
		case "d":
			it, ok := m.list.SelectedItem().(listItem)
			if !ok {
				return m, nil
			}
			return m, deleteItem(m.ctx, m.sync, it.ID)
		case "r":
			if m.loading {
				return m, nil
			}
			m.loading = true
			m.status = ""
			return m, tea.Batch(m.spinner.Tick, generateRecipe(m.ctx, m.recipe, m.state.Items))
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "ctrl+c":
			m.sync.Unsubscribe()
			return m, tea.Quit
		case "esc":
			m.closeForm()
			return m, nil
		case "tab", "shift+tab", "up", "down":
			m.focus = (m.focus + 1) % len(m.inputs)
			return m, m.focusInputs()
		case "enter":
			m.state.Draft = model.Draft{
				Name:  m.inputs[fieldName].Value(),
				Price: m.inputs[fieldQuantity].Value(),
			}
			if !pantry.ValidDraft(m.state.Draft) {
				m.hint = "name and quantity are required"
				return m, nil
			}
			// The form clears before the write is issued.
			d := m.state.Draft
			m.state.Draft.Reset()
			m.closeForm()
			return m, addItem(m.ctx, m.sync, d)
		}
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) focusInputs() tea.Cmd {
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == m.focus {
			cmd = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) closeForm() {
	m.adding = false
	m.hint = ""
	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
	m.layout()
}

// layout splits the height between list, form and recipe panel.
func (m *Model) layout() {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	listHeight := m.height - 4
	if m.adding {
		listHeight -= 5
	}
	if m.state.HasRecipe() {
		vh := m.height/2 - 2
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = w - 4
		m.viewport.Height = vh
		listHeight -= vh + 3
	}
	if listHeight < 3 {
		listHeight = 3
	}
	m.list.SetSize(w, listHeight)
}

func (m *Model) renderRecipe() {
	if !m.state.HasRecipe() {
		m.viewport.SetContent("")
		return
	}
	style := "dark"
	if ui.Current().Name == "mono" {
		style = "notty"
	}
	out := m.state.Recipe
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle(style), glamour.WithWordWrap(m.viewport.Width))
	if err == nil {
		if rendered, err := r.Render(m.state.Recipe); err == nil {
			out = strings.TrimSpace(rendered)
		}
	}
	m.viewport.SetContent(out)
	m.viewport.GotoTop()
}

func (m Model) View() string {
	t := ui.Current()
	var b strings.Builder
	b.WriteString(m.list.View())

	if m.adding {
		title := "Add item"
		if m.hint != "" {
			title += "  " + t.Error.Render(m.hint)
		}
		b.WriteString("\n" + ui.Box([]string{title, m.inputs[fieldName].View(), m.inputs[fieldQuantity].View()}))
	}
	if m.loading {
		b.WriteString("\n" + m.spinner.View() + " " + t.Muted.Render("asking for a recipe..."))
	}
	if m.status != "" {
		b.WriteString("\n" + t.Error.Render(m.status))
	}
	if m.state.HasRecipe() {
		panel := lipgloss.NewStyle().
			Border(t.Border).
			BorderForeground(t.BorderColor).
			Padding(0, 1).
			Render(t.Title.Render("Recipe") + "\n" + m.viewport.View())
		b.WriteString("\n" + panel)
	}
	return ui.Box([]string{b.String()})
}
