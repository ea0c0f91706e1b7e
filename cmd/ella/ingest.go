package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
	"github.com/glbala87/ELLA-tool-sub001/internal/ingest"
)

func newIngestCmd(a *app) *cobra.Command {
	var (
		appendMode  bool
		noPrefilter bool
		workers     int
	)
	cmd := &cobra.Command{
		Use:   "ingest <analysis-config | analysis-dir | vcf>",
		Short: "Deposit an analysis from its VCF, PED and analysis config",
		Long: `Deposit an analysis: alleles, annotation, samples and genotypes are written in
one transaction. The argument is an analysis config JSON file, a directory
holding one, or a legacy VCF named <analysis>.<panel>_<version>.vcf.`,
		Example: `  ella ingest /data/Diag-excap01-NA12878
  ella ingest --append /data/Diag-excap01-NA12878/extra.analysis
  ella ingest --no-prefilter analysis.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ingest.LoadAnalysisConfig(args[0])
			if err != nil {
				return err
			}

			opts := a.settings.IngestOptions()
			if noPrefilter {
				opts.PrefilterEnabled = false
			}
			if workers > 0 {
				opts.Workers = workers
			}
			if path := a.settings.HGNC.Path; path != "" {
				if opts.HGNC, err = genepanel.LoadHGNCMap(path); err != nil {
					return err
				}
				a.logger.Info("loaded HGNC map", zap.String("path", path), zap.Int("entries", opts.HGNC.Len()))
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			in := ingest.New(st, opts)
			in.SetLogger(a.logger.Named("ingest"))
			var res *ingest.Result
			if appendMode {
				res, err = in.Append(cmd.Context(), cfg)
			} else {
				res, err = in.Ingest(cmd.Context(), cfg)
			}
			if err != nil {
				return err
			}

			verb := "Deposited"
			if res.Appended {
				verb = "Appended to"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s analysis %s (id %d)\n", verb, cfg.Name, res.AnalysisID)
			fmt.Fprintf(cmd.OutOrStdout(), "  records: %d read, %d kept\n", res.Records, res.Kept)
			fmt.Fprintf(cmd.OutOrStdout(), "  alleles: %d, genotypes: %d\n", res.Alleles, res.Genotypes)
			return nil
		},
	}
	cmd.Flags().BoolVar(&appendMode, "append", false, "Add the VCF's samples to an existing analysis")
	cmd.Flags().BoolVar(&noPrefilter, "no-prefilter", false, "Keep common variants during ingest")
	cmd.Flags().IntVar(&workers, "workers", 0, "Record conversion workers (default from config)")
	return cmd
}
