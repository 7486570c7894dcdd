package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			st, err := d.records.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("backend %s unreachable: %w", d.cfg.Backend.BaseURL, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backend %s: %s", d.cfg.Backend.BaseURL, st.Status)
			if st.Message != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", st.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}
