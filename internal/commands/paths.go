package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdpower/agentusage/internal/loader"
	"github.com/sdpower/agentusage/internal/output"
	"github.com/sdpower/agentusage/internal/types"
)

func NewPathsCommand() *cobra.Command {
	var out outputFlags

	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Show which log directories would be read",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := output.ValidateFormat(out.format); err != nil {
				return err
			}

			rows, err := resolvePathRows(loader.DefaultEnvironment())
			if err != nil {
				return err
			}

			formatter := output.NewFormatter(output.FormatterOptions{
				Format:  out.format,
				NoColor: out.colorDisabled(),
			})
			rendered, err := formatter.FormatPaths(rows)
			if err != nil {
				return fmt.Errorf("failed to format paths: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		},
	}

	out.register(cmd)
	return cmd
}

func resolvePathRows(env loader.Environment) ([]output.PathRow, error) {
	claude, err := loader.ResolveClaudeRoots(env)
	if err != nil {
		return nil, types.ProviderError{Provider: types.ProviderClaude, Err: err}
	}
	codex, err := loader.ResolveCodexRoots(env)
	if err != nil {
		return nil, types.ProviderError{Provider: types.ProviderCodex, Err: err}
	}

	var rows []output.PathRow
	add := func(provider types.Provider, res loader.Resolution) {
		for _, p := range res.Roots {
			rows = append(rows, output.PathRow{Provider: provider, Path: p, Exists: true})
		}
		for _, p := range res.Missing {
			rows = append(rows, output.PathRow{Provider: provider, Path: p})
		}
	}
	add(types.ProviderClaude, claude)
	add(types.ProviderCodex, codex)
	return rows, nil
}
