package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/groupmeal/internal/harness"
)

// SeedResult is the output of the seed command.
type SeedResult struct {
	Fixture  string `json:"fixture"`
	Entities int    `json:"entities"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load listings and users from a YAML fixture",
		Long: `Write the listings (orders, plans, restaurants, foods) and users of a
YAML fixture into the database. Existing entities with the same id are
replaced.

Example:
  groupmeal seed --db ./groupmeal.db ./fixtures/team_lunch.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runSeed(opts *RootOptions, path string, cmd *cobra.Command) error {
	fx, err := harness.LoadFixture(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load fixture", err)
	}

	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	n, err := fx.Apply(ctx, a.store)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to seed database", err)
	}
	a.logger.Info("fixture seeded", "path", path, "entities", n)

	result := SeedResult{Fixture: path, Entities: n}
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Seeded %d entities from %s\n", n, path)
		return err
	})
}
