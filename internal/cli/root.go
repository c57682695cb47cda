// Package cli wires configuration, storage and views into the pantry command.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/pantry/internal/ui"
)

// usageError marks a failure the user can fix by changing the invocation;
// it exits with code 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, a ...any) error {
	return usageError{fmt.Errorf(format, a...)}
}

// usageArgs turns positional-argument failures into usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// newRoot builds the full command tree around a fresh app.
func newRoot() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "pantry",
		Short: "Track pantry items and ask for a recipe",
		Long: `pantry keeps a shared list of pantry items (name and quantity).
Every open view updates live when the list changes.
Run without a subcommand for the interactive list.`,
		Args:              usageArgs(cobra.NoArgs),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runTUI,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error { return usageError{err} })

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.pantry/config.yaml)")
	root.PersistentFlags().StringVar(&a.theme, "theme", "", "color theme: classic, neon, mono")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.storeDriver, "store", "", "store driver: sqlite, json, memory")

	root.AddCommand(
		newListCmd(a),
		newAddCmd(a),
		newRemoveCmd(a),
		newRecipeCmd(a),
		newServeCmd(a),
		newAuthCmd(a),
	)
	return root, a
}

// Execute runs the command line and returns the process exit code:
// 0 ok, 1 error, 2 usage.
func Execute() int {
	return run(os.Args[1:], os.Stdin)
}

func run(args []string, in io.Reader) int {
	root, a := newRoot()
	defer a.teardown()

	root.SetIn(in)
	root.SetOut(ui.Out)
	root.SetErr(ui.Err)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}
	ui.Fail(err.Error())
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(ui.Err, ui.Current().Muted.Render("Run `pantry --help` for usage"))
		return 2
	}
	return 1
}
