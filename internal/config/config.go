// Package config loads the ella settings from ~/.ella.yaml (or an explicit
// file) and ELLA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/glbala87/ELLA-tool-sub001/internal/annotation"
	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/ingest"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
	"github.com/glbala87/ELLA-tool-sub001/internal/vcf"
)

// FileName is the default config file in the home directory.
const FileName = ".ella.yaml"

// EnvPrefix prefixes environment overrides, e.g. ELLA_DATABASE.
const EnvPrefix = "ELLA"

// ProviderKeys lists the frequency keys of one provider in a group.
// Providers are given as values, not map keys, so their case survives viper.
type ProviderKeys struct {
	Provider string   `mapstructure:"provider"`
	Keys     []string `mapstructure:"keys"`
}

// Frequencies configures the frequency groups.
type Frequencies struct {
	Groups map[string][]ProviderKeys `mapstructure:"groups"`
}

// FrequencyGroups converts the configured groups.
func (f Frequencies) FrequencyGroups() annotation.FrequencyGroups {
	out := make(annotation.FrequencyGroups, len(f.Groups))
	for group, providers := range f.Groups {
		out[group] = make(map[string][]string, len(providers))
		for _, p := range providers {
			out[group][p.Provider] = append(out[group][p.Provider], p.Keys...)
		}
	}
	return out
}

// Prefilter configures the ingest prefilter.
type Prefilter struct {
	Enabled       bool    `mapstructure:"enabled"`
	Provider      string  `mapstructure:"provider"`
	Key           string  `mapstructure:"key"`
	MinFreq       float64 `mapstructure:"min_freq"`
	MinNum        int64   `mapstructure:"min_num"`
	BatchSize     int     `mapstructure:"batch_size"`
	BlockDistance int64   `mapstructure:"block_distance"`
}

// Config returns the prefilter in terms of VCF INFO fields.
func (p Prefilter) Config() vcf.PrefilterConfig {
	return vcf.PrefilterConfig{
		FreqField:     annotation.InfoField(p.Provider, "AF", p.Key),
		NumField:      annotation.InfoField(p.Provider, "AN", p.Key),
		MinFreq:       p.MinFreq,
		MinNum:        p.MinNum,
		BlockDistance: p.BlockDistance,
	}
}

// Retry configures retries of transient store failures.
type Retry struct {
	MaxRetries     uint64        `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
}

// Policy returns the retry policy.
func (r Retry) Policy() apperr.RetryPolicy {
	p := apperr.DefaultRetryPolicy
	p.MaxRetries = r.MaxRetries
	if r.InitialBackoff > 0 {
		p.InitialBackoff = r.InitialBackoff
	}
	return p
}

// Settings holds all configuration values.
type Settings struct {
	Database        string          `mapstructure:"database"`
	GenomeReference string          `mapstructure:"genome_reference"`
	Frequencies     Frequencies     `mapstructure:"frequencies"`
	Prefilter       Prefilter       `mapstructure:"prefilter"`
	QC              ingest.QCConfig `mapstructure:"qc"`
	Classification  struct {
		Options []model.ClassificationOption `mapstructure:"options"`
	} `mapstructure:"classification"`
	Filter Retry `mapstructure:"filter"`
	HGNC   struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"hgnc"`
	Ingest struct {
		Workers int `mapstructure:"workers"`
	} `mapstructure:"ingest"`
}

// IngestOptions returns the ingest options described by s. The HGNC map is
// loaded separately.
func (s *Settings) IngestOptions() ingest.Options {
	opts := ingest.DefaultOptions()
	opts.QC = s.QC
	opts.Prefilter = s.Prefilter.Config()
	opts.PrefilterEnabled = s.Prefilter.Enabled
	opts.BatchSize = s.Prefilter.BatchSize
	opts.Workers = s.Ingest.Workers
	opts.Retry = s.Filter.Policy()
	return opts
}

func defaultGroups() map[string]interface{} {
	provider := func(name string, keys ...string) map[string]interface{} {
		return map[string]interface{}{"provider": name, "keys": keys}
	}
	return map[string]interface{}{
		"external": []interface{}{
			provider("GNOMAD_GENOMES", "G", "AFR", "AMR", "ASJ", "EAS", "FIN", "NFE", "OTH"),
			provider("GNOMAD_EXOMES", "G", "AFR", "AMR", "ASJ", "EAS", "FIN", "NFE", "OTH", "SAS"),
		},
		"internal": []interface{}{
			provider("inDB", "AF"),
		},
	}
}

func defaultClassificationOptions() []interface{} {
	out := make([]interface{}, 0, 5)
	for _, class := range []string{"1", "2", "3", "4", "5"} {
		o := map[string]interface{}{"value": class}
		if class == "1" || class == "2" {
			o["outdated_after_days"] = 180
		}
		out = append(out, o)
	}
	return out
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	database := filepath.Join(".ella", "ella.duckdb")
	if home, err := os.UserHomeDir(); err == nil {
		database = filepath.Join(home, database)
	}
	qc := ingest.DefaultQCConfig()
	pre := vcf.DefaultPrefilterConfig()

	v.SetDefault("database", database)
	v.SetDefault("genome_reference", "GRCh37")
	v.SetDefault("frequencies.groups", defaultGroups())
	v.SetDefault("prefilter.enabled", true)
	v.SetDefault("prefilter.provider", "GNOMAD_GENOMES")
	v.SetDefault("prefilter.key", "G")
	v.SetDefault("prefilter.min_freq", pre.MinFreq)
	v.SetDefault("prefilter.min_num", pre.MinNum)
	v.SetDefault("prefilter.batch_size", vcf.DefaultBatchSize)
	v.SetDefault("prefilter.block_distance", pre.BlockDistance)
	v.SetDefault("qc.min_qual", qc.MinQual)
	v.SetDefault("qc.min_depth", qc.MinDepth)
	v.SetDefault("qc.hom_ratio", qc.HomRatio)
	v.SetDefault("qc.het_ratio_low", qc.HetRatioLow)
	v.SetDefault("qc.het_ratio_high", qc.HetRatioHigh)
	v.SetDefault("classification.options", defaultClassificationOptions())
	v.SetDefault("filter.max_retries", apperr.DefaultRetryPolicy.MaxRetries)
	v.SetDefault("filter.initial_backoff", apperr.DefaultRetryPolicy.InitialBackoff)
	v.SetDefault("hgnc.path", "")
	v.SetDefault("ingest.workers", runtime.NumCPU())
}

// Init points v at the config file and the environment. An explicit
// cfgFile must exist; a missing default file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		v.AddConfigPath(home)
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Load decodes and validates the settings of v.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%w: decoding config: %v", apperr.ErrBadInput, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	bad := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", apperr.ErrBadInput, fmt.Sprintf(format, args...))
	}
	if len(s.Frequencies.Groups) == 0 {
		return bad("frequencies.groups is empty")
	}
	for group, providers := range s.Frequencies.Groups {
		for _, p := range providers {
			if p.Provider == "" || len(p.Keys) == 0 {
				return bad("frequencies.groups.%s: provider and keys are required", group)
			}
		}
	}
	if s.Prefilter.BatchSize <= 0 {
		return bad("prefilter.batch_size must be positive, got %d", s.Prefilter.BatchSize)
	}
	if s.Prefilter.BlockDistance < 0 {
		return bad("prefilter.block_distance must not be negative")
	}
	if s.QC.HetRatioLow > s.QC.HetRatioHigh {
		return bad("qc.het_ratio_low %v exceeds qc.het_ratio_high %v", s.QC.HetRatioLow, s.QC.HetRatioHigh)
	}
	if s.Ingest.Workers <= 0 {
		return bad("ingest.workers must be positive, got %d", s.Ingest.Workers)
	}
	for _, o := range s.Classification.Options {
		if o.Value == "" {
			return bad("classification.options: value is required")
		}
	}
	return nil
}
