package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newShadowsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shadows",
		Short: "Manage the annotation shadow tables",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "reconfigure",
		Short: "Rebuild the shadow tables for the configured frequency groups",
		Long: `Rebuild the transcript and frequency shadow tables from the current
annotations after frequencies.groups has changed. Ingest and filtering are
blocked until the rebuild commits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			groups := a.settings.Frequencies.FrequencyGroups()
			if err := st.Reconfigure(cmd.Context(), groups); err != nil {
				return err
			}
			a.logger.Info("shadow tables rebuilt", zap.String("fingerprint", groups.Fingerprint()))
			fmt.Fprintf(cmd.OutOrStdout(), "Shadow tables rebuilt (fingerprint %s)\n", groups.Fingerprint())
			return nil
		},
	})
	return cmd
}
