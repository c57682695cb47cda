package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Makepad-fr/pantry/internal/config"
	"github.com/Makepad-fr/pantry/internal/llm"
	"github.com/Makepad-fr/pantry/internal/logging"
	"github.com/Makepad-fr/pantry/internal/model"
	"github.com/Makepad-fr/pantry/internal/pantry"
	"github.com/Makepad-fr/pantry/internal/store"
	"github.com/Makepad-fr/pantry/internal/store/jsonstore"
	"github.com/Makepad-fr/pantry/internal/store/memstore"
	"github.com/Makepad-fr/pantry/internal/store/sqlitestore"
	"github.com/Makepad-fr/pantry/internal/tui"
	"github.com/Makepad-fr/pantry/internal/ui"
)

// app carries flag values and everything built from them for one run.
type app struct {
	configPath  string
	theme       string
	verbose     bool
	storeDriver string

	cfg *config.Config
	log *zap.Logger
	st  store.Store
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	path := a.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.theme != "" {
		cfg.UI.Theme = a.theme
	}
	if a.storeDriver != "" {
		cfg.Store.Driver = strings.ToLower(a.storeDriver)
	}
	if err := cfg.Validate(); err != nil {
		return usageError{err}
	}
	ui.SetTheme(cfg.UI.Theme)

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.File, a.verbose)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func (a *app) teardown() {
	if a.st != nil {
		if err := a.st.Close(); err != nil {
			a.log.Warn("close store", zap.Error(err))
		}
		a.st = nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// openStore opens the configured backend once per run.
func (a *app) openStore() (store.Store, error) {
	if a.st != nil {
		return a.st, nil
	}
	log := a.log.Named(logging.Store)
	var (
		st  store.Store
		err error
	)
	switch a.cfg.Store.Driver {
	case config.DriverMemory:
		st = memstore.New()
	case config.DriverJSON:
		st, err = jsonstore.Open(a.cfg.Store.Path, jsonstore.WithLogger(log))
	default:
		st, err = sqlitestore.Open(a.cfg.Store.Path, sqlitestore.WithLogger(log))
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.cfg.Store.Driver, err)
	}
	a.st = st
	return st, nil
}

func (a *app) synchronizer() (*pantry.Synchronizer, error) {
	st, err := a.openStore()
	if err != nil {
		return nil, err
	}
	return pantry.NewSynchronizer(st,
		pantry.WithCollection(a.cfg.Store.Collection),
		pantry.WithLogger(a.log.Named(logging.Sync)),
	), nil
}

// items subscribes long enough to read the current list.
func (a *app) items(ctx context.Context, s *pantry.Synchronizer) ([]model.Item, error) {
	if err := s.Subscribe(ctx); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	defer s.Unsubscribe()
	select {
	case <-s.Ready():
		return s.Items(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *app) recipeFlow() (*pantry.RecipeFlow, error) {
	if _, err := a.cfg.ResolveAPIKey(); err != nil {
		return nil, err
	}
	// The stored credential may have changed the provider.
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	timeout, err := a.cfg.RecipeTimeout()
	if err != nil {
		return nil, err
	}
	client, err := llm.NewClient(a.cfg.Recipe.Provider, llm.Config{
		APIKey:  a.cfg.Recipe.APIKey,
		BaseURL: a.cfg.Recipe.BaseURL,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	name := a.cfg.Recipe.Model
	if strings.EqualFold(a.cfg.Recipe.Provider, llm.ProviderGemini) && (name == "" || name == pantry.DefaultModel) {
		name = llm.DefaultGeminiModel
	}
	return pantry.NewRecipeFlow(client,
		pantry.WithModel(name),
		pantry.WithRecipeLogger(a.log.Named(logging.Recipe)),
	), nil
}

// interactiveRecipeFlow is recipeFlow for the long-running views: a broken
// recipe setup is logged and reported on the first request, and the list
// still opens.
func (a *app) interactiveRecipeFlow() *pantry.RecipeFlow {
	flow, err := a.recipeFlow()
	if err == nil {
		return flow
	}
	a.log.Warn("recipe service unavailable", zap.Error(err))
	return pantry.NewRecipeFlow(unavailableClient{err: err},
		pantry.WithRecipeLogger(a.log.Named(logging.Recipe)))
}

// unavailableClient fails every request with the setup error.
type unavailableClient struct{ err error }

func (c unavailableClient) Complete(context.Context, llm.Request) (*llm.Response, error) {
	return nil, c.err
}

func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	s, err := a.synchronizer()
	if err != nil {
		return err
	}
	return tui.Run(cmd.Context(), s, a.interactiveRecipeFlow(), a.log.Named(logging.TUI))
}
