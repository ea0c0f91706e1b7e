// Package ingest deposits a decomposed, normalized VCF into the store as an
// analysis with its samples, alleles, annotations and genotypes.
package ingest

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/glbala87/ELLA-tool-sub001/internal/annotation"
	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
	"github.com/glbala87/ELLA-tool-sub001/internal/store"
	"github.com/glbala87/ELLA-tool-sub001/internal/vcf"
)

// Options configures an Ingester.
type Options struct {
	KeyValueFields   []string
	HGNC             *genepanel.HGNCMap
	QC               QCConfig
	Prefilter        vcf.PrefilterConfig
	PrefilterEnabled bool
	BatchSize        int
	Workers          int
	Retry            apperr.RetryPolicy
}

// DefaultOptions enables the prefilter with its standard constants.
func DefaultOptions() Options {
	return Options{
		KeyValueFields:   []string{"CLINVAR"},
		QC:               DefaultQCConfig(),
		Prefilter:        vcf.DefaultPrefilterConfig(),
		PrefilterEnabled: true,
		BatchSize:        vcf.DefaultBatchSize,
		Workers:          runtime.NumCPU(),
		Retry:            apperr.DefaultRetryPolicy,
	}
}

// Result summarizes one ingest run.
type Result struct {
	RunID      string
	AnalysisID int64
	Records    int // records read
	Kept       int // records left after the prefilter
	Alleles    int
	Genotypes  int
	Appended   bool
}

// Ingester deposits analyses. At most one ingest per analysis name runs at
// a time within the process.
type Ingester struct {
	store     *store.Store
	opts      Options
	logger    *zap.Logger
	distances *annotation.DistanceCalculator

	mu     sync.Mutex
	active map[string]bool
}

// New creates an Ingester writing to st.
func New(st *store.Store, opts Options) *Ingester {
	if opts.Prefilter.BlockDistance <= 0 {
		opts.Prefilter.BlockDistance = vcf.DefaultBlockDistance
	}
	in := &Ingester{
		store:  st,
		opts:   opts,
		active: make(map[string]bool),
	}
	in.SetLogger(zap.NewNop())
	return in
}

// SetLogger sets the logger.
func (in *Ingester) SetLogger(l *zap.Logger) {
	in.logger = l
	in.distances = annotation.NewDistanceCalculator(l)
}

func (in *Ingester) acquire(name string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.active[name] {
		return false
	}
	in.active[name] = true
	return true
}

func (in *Ingester) release(name string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.active, name)
}

// Ingest creates the analysis described by cfg. An existing analysis with
// the same name is a conflict.
func (in *Ingester) Ingest(ctx context.Context, cfg *AnalysisConfigData) (*Result, error) {
	return in.run(ctx, cfg, false)
}

// Append deposits cfg's VCFs onto an existing, non-family analysis. Samples
// already in the analysis are rejected.
func (in *Ingester) Append(ctx context.Context, cfg *AnalysisConfigData) (*Result, error) {
	return in.run(ctx, cfg, true)
}

func (in *Ingester) run(ctx context.Context, cfg *AnalysisConfigData, appendMode bool) (*Result, error) {
	if !in.acquire(cfg.Name) {
		return nil, fmt.Errorf("analysis %q is being ingested: %w", cfg.Name, apperr.ErrConflict)
	}
	defer in.release(cfg.Name)

	runID := uuid.NewString()
	log := in.logger.With(zap.String("run_id", runID), zap.String("analysis", cfg.Name))

	if _, err := in.store.GenePanel(ctx, cfg.GenePanel()); err != nil {
		return nil, err
	}
	groups := in.store.FrequencyGroups()

	start := time.Now()
	var res *Result
	err := apperr.Retry(ctx, in.opts.Retry, func() error {
		r, err := in.ingestOnce(ctx, cfg, appendMode, groups, log)
		if apperr.IsTransient(err) {
			log.Warn("transient ingest failure, retrying", zap.Error(err))
		}
		res = r
		return err
	})
	if err != nil {
		log.Error("ingest rolled back", zap.Error(err))
		return nil, err
	}
	res.RunID = runID
	log.Info("ingest committed",
		zap.Int64("analysis_id", res.AnalysisID),
		zap.Int("records", res.Records),
		zap.Int("kept", res.Kept),
		zap.Int("alleles", res.Alleles),
		zap.Int("genotypes", res.Genotypes),
		zap.Bool("append", res.Appended),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (in *Ingester) ingestOnce(ctx context.Context, cfg *AnalysisConfigData, appendMode bool, groups annotation.FrequencyGroups, log *zap.Logger) (*Result, error) {
	tx, err := in.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var an *model.Analysis
	if appendMode {
		if an, err = tx.AnalysisByName(ctx, cfg.Name); err != nil {
			return nil, err
		}
		if model.IsFamily(an.Samples) {
			return nil, fmt.Errorf("cannot append to family analysis %q: %w", cfg.Name, apperr.ErrConflict)
		}
	} else {
		if an, err = cfg.Analysis(); err != nil {
			return nil, err
		}
		if err := tx.CreateAnalysis(ctx, an); err != nil {
			return nil, err
		}
	}

	res := &Result{AnalysisID: an.ID, Appended: appendMode}
	for _, entry := range cfg.Data {
		if err := in.ingestVCF(ctx, tx, an, entry, appendMode, groups, res, log); err != nil {
			return nil, fmt.Errorf("ingest %s: %w", entry.VCF, err)
		}
	}

	if !appendMode {
		if _, err := tx.CreateInterpretation(ctx, an.ID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// batch is one prefiltered batch of records, split into blocks.
type batch struct {
	read   int
	blocks []*vcf.Block
}

func (in *Ingester) ingestVCF(ctx context.Context, tx *store.Tx, an *model.Analysis, entry DataEntry,
	appendMode bool, groups annotation.FrequencyGroups, res *Result, log *zap.Logger) error {
	p, err := vcf.NewParser(entry.VCF)
	if err != nil {
		return err
	}
	defer p.Close()

	ss, err := resolveSamples(entry, p.SampleNames(), an, appendMode)
	if err != nil {
		return err
	}
	if err := tx.AddSamples(ctx, an.ID, ss.samples, ss.parents); err != nil {
		return err
	}
	an.Samples = append(an.Samples, ss.samples...)

	format, _ := annotation.ParseCSQFormat(p.Header())
	conv := &Converter{
		Builder: &annotation.Builder{
			Groups:         groups,
			CSQ:            format,
			Distances:      in.distances,
			HGNC:           in.hgnc(),
			KeyValueFields: in.opts.KeyValueFields,
		},
		GenomeReference: in.store.GenomeReference(),
	}

	distance := in.opts.Prefilter.BlockDistance
	probandCols := make([]int, len(ss.probands))
	for i, pc := range ss.probands {
		probandCols[i] = pc.column
	}

	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan batch, 2)

	g.Go(func() error {
		defer close(batches)
		batcher := vcf.NewBatcher(p, in.opts.BatchSize, distance)
		for {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, err := batcher.Next()
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				return nil
			}
			kept := recs
			if in.opts.PrefilterEnabled {
				if kept, err = in.prefilter(gctx, recs, probandCols); err != nil {
					return err
				}
			}
			select {
			case batches <- batch{read: len(recs), blocks: vcf.SplitBlocks(kept, distance)}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	g.Go(func() error {
		for b := range batches {
			if err := in.writeBatch(gctx, tx, conv, b, ss, res, log); err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait()
}

// prefilter drops blocks of common variants. Assessed records are looked up
// for the candidates only.
func (in *Ingester) prefilter(ctx context.Context, recs []*vcf.Variant, probandCols []int) ([]*vcf.Variant, error) {
	cfg := in.opts.Prefilter
	var keys []model.VCFKey
	for _, r := range recs {
		if cfg.Candidate(r, probandCols, nil) {
			keys = append(keys, r.Key())
		}
	}
	assessed, err := in.store.AssessedVCFKeys(ctx, keys)
	if err != nil {
		return nil, err
	}
	return vcf.Prefilter(recs, cfg.BlockDistance, func(v *vcf.Variant) bool {
		return cfg.Candidate(v, probandCols, assessed)
	}), nil
}

func (in *Ingester) writeBatch(ctx context.Context, tx *store.Tx, conv *Converter, b batch, ss *resolvedSamples, res *Result, log *zap.Logger) error {
	var records []*vcf.Variant
	for _, blk := range b.blocks {
		for _, i := range carriedRecords(blk, ss.probands) {
			records = append(records, blk.Records[i])
		}
	}

	converted, err := conv.ConvertAll(records, in.opts.Workers)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	byRecord := make(map[*vcf.Variant]*model.Allele, len(converted))
	alleles := make([]*model.Allele, len(converted))
	for i, c := range converted {
		alleles[i] = c.Allele
		byRecord[c.Record] = c.Allele
	}
	if err := tx.UpsertAlleles(ctx, alleles); err != nil {
		return err
	}
	for _, c := range converted {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.Annotation.AlleleID = c.Allele.ID
		if err := tx.InsertAnnotation(ctx, c.Annotation); err != nil {
			return fmt.Errorf("line %d: %w", c.Record.Line, err)
		}
	}

	var genotypes []*store.GenotypeRecord
	for _, blk := range b.blocks {
		blockAlleles := make([]*model.Allele, len(blk.Records))
		for i, r := range blk.Records {
			blockAlleles[i] = byRecord[r]
		}
		genotypes = append(genotypes, blockGenotypes(blk, blockAlleles, ss.probands, ss.others, in.opts.QC)...)
	}
	if err := tx.InsertGenotypes(ctx, genotypes); err != nil {
		return err
	}

	kept := 0
	for _, blk := range b.blocks {
		kept += len(blk.Records)
	}
	res.Records += b.read
	res.Kept += kept
	res.Alleles += len(alleles)
	res.Genotypes += len(genotypes)

	log.Info("ingested batch",
		zap.Int("records", b.read),
		zap.Int("kept", kept),
		zap.Int("blocks", len(b.blocks)),
		zap.Int("alleles", len(alleles)),
		zap.Int("genotypes", len(genotypes)))
	for _, gr := range genotypes {
		for _, sd := range gr.SampleData {
			if sd.NeedsVerification && sd.SampleID == gr.Genotype.SampleID {
				log.Debug("genotype needs verification",
					zap.Int64("allele_id", gr.Genotype.AlleleID),
					zap.String("failed", FormatChecks(sd.VerificationChecks)))
			}
		}
	}
	return nil
}

func (in *Ingester) hgnc() annotation.HGNCResolver {
	if in.opts.HGNC == nil {
		return nil
	}
	return in.opts.HGNC
}
