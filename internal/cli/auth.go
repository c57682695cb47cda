package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/pantry/internal/config"
	"github.com/Makepad-fr/pantry/internal/ui"
)

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the recipe service API key",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return usagef("usage: pantry auth <login|logout|status>")
		},
	}

	var provider string
	login := &cobra.Command{
		Use:   "login",
		Short: "Store an API key in ~/.pantry/credentials.json",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider != "" && !config.ValidProvider(provider) {
				return usagef("unknown provider %q (groq, openai, gemini)", provider)
			}
			fmt.Fprint(cmd.OutOrStdout(), "Paste your API key: ")
			key, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && strings.TrimSpace(key) == "" {
				return fmt.Errorf("read key: %w", err)
			}
			if provider == "" {
				provider = a.cfg.Recipe.Provider
			}
			if err := config.SetAPIKey(key, provider); err != nil {
				return fmt.Errorf("save key: %w", err)
			}
			ui.OK("logged in")
			return nil
		},
	}
	login.Flags().StringVar(&provider, "provider", "", "recipe provider the key belongs to (groq, openai, gemini)")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored API key",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.DeleteAPIKey(); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			ui.OK("logged out")
			if a.cfg.Recipe.APIKey != "" {
				fmt.Fprintln(ui.Out, ui.Current().Muted.Render("a key from the config file or environment is still in effect"))
			}
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show where the API key comes from",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := a.cfg.ResolveAPIKey()
			if err != nil {
				return err
			}
			if cred == nil {
				fmt.Fprintln(ui.Out, ui.Current().Muted.Render("not logged in"))
				fmt.Fprintln(ui.Out, "Run: pantry auth login")
				return nil
			}
			fmt.Fprintf(ui.Out, "provider: %s\n", a.cfg.Recipe.Provider)
			fmt.Fprintf(ui.Out, "source:   %s\n", cred.Source)
			fmt.Fprintf(ui.Out, "key:      %s\n", mask(cred.APIKey))
			fmt.Fprintln(ui.Out, "env override: GROQ_API_KEY, GEMINI_API_KEY")
			return nil
		},
	}

	cmd.AddCommand(login, logout, status)
	return cmd
}

// mask keeps the last four characters of a key.
func mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
