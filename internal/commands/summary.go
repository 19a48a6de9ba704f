package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdpower/agentusage/internal/locale"
	"github.com/sdpower/agentusage/internal/output"
	"github.com/sdpower/agentusage/internal/usage"
)

func NewSummaryCommand() *cobra.Command {
	var (
		mode     string
		timezone string
		lang     string
		out      outputFlags
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show current Claude and Codex usage",
		Long: `Show Claude usage for the trailing 5-hour block and Codex usage for today,
read from the local session logs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := usage.ParseMode(mode)
			if err != nil {
				return err
			}
			if err := output.ValidateFormat(out.format); err != nil {
				return err
			}
			tag, err := locale.Parse(lang)
			if err != nil {
				return err
			}

			engine := usage.New(usage.WithLogger(newLogger(out.debug)))
			defer engine.Close()

			summary, err := engine.GetUsage(cmd.Context(), m, usage.Options{
				Timezone: timezone,
				Locale:   lang,
			})
			if err != nil {
				return err
			}

			formatter := output.NewFormatter(output.FormatterOptions{
				Format:  out.format,
				NoColor: out.colorDisabled(),
				Locale:  tag,
			})
			rendered, err := formatter.FormatSummary(summary)
			if err != nil {
				return fmt.Errorf("failed to format summary: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(usage.ModeAuto), "Providers to read (claude, codex, both, auto)")
	cmd.Flags().StringVarP(&timezone, "timezone", "z", "", "IANA time zone for Codex's \"today\" (default: system)")
	cmd.Flags().StringVarP(&lang, "locale", "l", "", "BCP 47 locale for dates and numbers (default: en-US)")
	out.register(cmd)

	return cmd
}
