package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"healthmate/internal/app"
)

// Raw HTML in the summary is escaped since WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func newCoachCmd(opts *options) *cobra.Command {
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "coach",
		Short: "Show the weekly coach summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			summary, err := app.NewCoachService(d.identity, d.records, d.cfg.UI.RedirectDelay).Generate(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asHTML {
				var buf bytes.Buffer
				if err := mdRenderer.Convert([]byte(summary.Summary), &buf); err != nil {
					return fmt.Errorf("render summary: %w", err)
				}
				_, err := out.Write(buf.Bytes())
				return err
			}
			fmt.Fprintf(out, "Health logs this week: %d\n", summary.HealthLogsCount)
			fmt.Fprintf(out, "Meal logs this week:   %d\n\n", summary.MealLogsCount)
			fmt.Fprintln(out, summary.Summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "Render the summary as HTML")
	return cmd
}
