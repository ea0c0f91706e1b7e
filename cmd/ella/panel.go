package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
)

func newPanelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "panel",
		Short: "Manage gene panels",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "load <dir> <name> <version>",
		Short: "Load a gene panel from its TSV files",
		Long: `Load a gene panel from <dir>/<name>_<version>.transcripts.tsv, the optional
.phenotypes.tsv and the optional .config.json holding per-gene overrides.`,
		Example: `  ella panel load panels/ HBOC v1.0.0`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := genepanel.LoadPanel(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.SavePanel(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded panel %s: %d genes, %d transcripts, %d phenotypes\n",
				p.Key(), len(p.Genes), len(p.Transcripts), len(p.Phenotypes))
			return nil
		},
	})
	return cmd
}
