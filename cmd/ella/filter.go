package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/filter"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
	"github.com/glbala87/ELLA-tool-sub001/internal/store"
)

// filterConfigFile is the YAML form of a filter config.
type filterConfigFile struct {
	Name         string              `yaml:"name"`
	Chain        model.FilterChain   `yaml:"filterconfig"`
	Requirements []model.Requirement `yaml:"requirements"`
	Active       *bool               `yaml:"active"`
}

func readFilterConfig(path string) (*model.FilterConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f filterConfigFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrBadInput, path, err)
	}
	if f.Name == "" {
		return nil, fmt.Errorf("%w: %s: name is required", apperr.ErrBadInput, path)
	}
	if err := filter.Validate(f.Chain); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	fc := &model.FilterConfig{Name: f.Name, Chain: f.Chain, Requirements: f.Requirements, Active: true}
	if f.Active != nil {
		fc.Active = *f.Active
	}
	return fc, nil
}

type filterReport struct {
	Analysis     string             `yaml:"analysis"`
	FilterConfig string             `yaml:"filterconfig"`
	Kept         []int64            `yaml:"kept"`
	Excluded     map[string][]int64 `yaml:"excluded"`
	Commonness   map[string][]int64 `yaml:"commonness,omitempty"`
}

func newFilterCmd(a *app) *cobra.Command {
	var (
		configName string
		configFile string
		usergroup  int64
		commonness bool
	)
	cmd := &cobra.Command{
		Use:   "filter <analysis-name>",
		Short: "Run a filter config over the alleles of an analysis",
		Long: `Run a filter chain over an analysis and print the kept alleles and the
alleles each filter excluded. The config is chosen by name, read from a YAML
file, or selected from a user group's configs by their requirements.`,
		Example: `  ella filter --filterconfig default Diag-excap01-NA12878
  ella filter --file filters/trio.yaml Diag-excap01-NA12878-TRIO
  ella filter --usergroup 1 --commonness Diag-excap01-NA12878`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			an, err := st.AnalysisByName(ctx, args[0])
			if err != nil {
				return err
			}
			fc, err := chooseFilterConfig(ctx, st, an, configName, configFile, usergroup)
			if err != nil {
				return err
			}

			runner := filter.NewRunner(a.settings.Classification.Options)
			runner.SetLogger(a.logger.Named("filter"))
			runner.SetRetryPolicy(a.settings.Filter.Policy())
			res, err := runner.RunStore(ctx, st, an.ID, an.GenePanel, fc)
			if err != nil {
				return err
			}

			report := filterReport{
				Analysis:     an.Name,
				FilterConfig: fc.Name,
				Kept:         res.Kept.Sorted(),
				Excluded:     make(map[string][]int64, len(res.Excluded)),
			}
			for name, ids := range res.Excluded {
				report.Excluded[name] = ids.Sorted()
			}
			if commonness {
				if report.Commonness, err = commonnessReport(ctx, st, an, fc); err != nil {
					return err
				}
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&configName, "filterconfig", "", "Name of a stored filter config")
	cmd.Flags().StringVar(&configFile, "file", "", "Filter config YAML file")
	cmd.Flags().Int64Var(&usergroup, "usergroup", 0, "Select among the filter configs of this user group")
	cmd.Flags().BoolVar(&commonness, "commonness", false, "Also report frequency categories of all alleles")
	cmd.MarkFlagsMutuallyExclusive("filterconfig", "file", "usergroup")
	cmd.MarkFlagsOneRequired("filterconfig", "file", "usergroup")
	return cmd
}

func chooseFilterConfig(ctx context.Context, st *store.Store, an *model.Analysis, name, file string, usergroup int64) (*model.FilterConfig, error) {
	switch {
	case file != "":
		return readFilterConfig(file)
	case name != "":
		return st.FilterConfigByName(ctx, name)
	}
	configs, err := st.UserGroupFilterConfigs(ctx, usergroup)
	if err != nil {
		return nil, err
	}
	return filter.SelectFilterConfig(configs, an)
}

// commonnessReport categorizes every allele of the analysis with the first
// frequency filter of fc.
func commonnessReport(ctx context.Context, st *store.Store, an *model.Analysis, fc *model.FilterConfig) (map[string][]int64, error) {
	var cfg map[string]interface{}
	for _, spec := range fc.Chain.Filters {
		if spec.Name == "frequency" {
			cfg = spec.Config
			break
		}
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: filter config %q has no frequency filter", apperr.ErrBadInput, fc.Name)
	}

	groups := st.FrequencyGroups()
	snap, err := st.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer snap.Close()
	panel, err := snap.GenePanel(ctx, an.GenePanel)
	if err != nil {
		return nil, err
	}
	ids, err := snap.AnalysisAlleleIDs(ctx, an.ID)
	if err != nil {
		return nil, err
	}
	env := &filter.Env{Source: snap, AnalysisID: an.ID, Panel: panel, Groups: groups}
	byCategory, err := filter.CommonnessGroups(ctx, env, cfg, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]int64, len(byCategory))
	for c, ids := range byCategory {
		out[c.String()] = ids.Sorted()
	}
	return out, nil
}

func newFilterConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filterconfig",
		Short: "Manage stored filter configs",
	}
	var (
		usergroup int64
		rank      int
	)
	add := &cobra.Command{
		Use:   "add <file.yaml>",
		Short: "Validate and store a filter config",
		Example: `  ella filterconfig add filters/default.yaml
  ella filterconfig add --usergroup 1 --rank 0 filters/trio.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := readFilterConfig(args[0])
			if err != nil {
				return err
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.CreateFilterConfig(cmd.Context(), fc); err != nil {
				return err
			}
			if cmd.Flags().Changed("usergroup") {
				if err := st.AssignFilterConfig(cmd.Context(), usergroup, fc.ID, rank); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored filter config %s (id %d, schema v%d)\n", fc.Name, fc.ID, fc.SchemaVersion)
			return nil
		},
	}
	add.Flags().Int64Var(&usergroup, "usergroup", 0, "Assign the config to this user group")
	add.Flags().IntVar(&rank, "rank", 0, "Position among the user group's configs")
	cmd.AddCommand(add)
	return cmd
}
