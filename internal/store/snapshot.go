package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/glbala87/ELLA-tool-sub001/internal/annotation"
	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

// Snapshot is a read-only, transaction-scoped view of the store. Every read
// through one Snapshot observes the state current when it was opened.
type Snapshot struct {
	s          *Store
	tx         *sql.Tx
	consistent bool
	unlock     func()
}

// Snapshot opens a read view. The caller must Close it.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.shadowMu.RLock()
	var once sync.Once
	unlock := func() { once.Do(s.shadowMu.RUnlock) }

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		unlock()
		return nil, classify(fmt.Errorf("begin snapshot: %w", err))
	}
	fp, err := readFingerprint(ctx, tx)
	if err != nil {
		tx.Rollback()
		unlock()
		return nil, err
	}
	return &Snapshot{
		s:          s,
		tx:         tx,
		consistent: fp == s.groups.Fingerprint(),
		unlock:     unlock,
	}, nil
}

// Close ends the snapshot and drops its temp tables.
func (sn *Snapshot) Close() error {
	defer sn.unlock()
	return sn.tx.Rollback()
}

// withIDs runs fn with a temp table holding ids.
func (sn *Snapshot) withIDs(ctx context.Context, ids model.IDSet, fn func(table string) error) error {
	table, drop, err := createTempIDs(ctx, sn.tx, ids.Sorted())
	if err != nil {
		return err
	}
	defer drop()
	return fn(table)
}

// AnalysisAlleleIDs returns the alleles genotyped in the analysis.
func (sn *Snapshot) AnalysisAlleleIDs(ctx context.Context, analysisID int64) (model.IDSet, error) {
	return analysisAlleleIDs(ctx, sn.tx, analysisID)
}

// Alleles returns the alleles with the given ids.
func (sn *Snapshot) Alleles(ctx context.Context, ids model.IDSet) (map[int64]*model.Allele, error) {
	out := make(map[int64]*model.Allele, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	err := sn.withIDs(ctx, ids, func(table string) error {
		rows, err := sn.tx.QueryContext(ctx,
			`SELECT `+alleleColumns+` FROM allele WHERE id IN (SELECT id FROM `+table+`)`)
		if err != nil {
			return classify(fmt.Errorf("query alleles: %w", err))
		}
		alleles, err := scanAlleles(rows)
		for _, a := range alleles {
			out[a.ID] = a
		}
		return err
	})
	return out, err
}

// TranscriptShadows returns the transcript shadow rows of the alleles.
func (sn *Snapshot) TranscriptShadows(ctx context.Context, ids model.IDSet) ([]annotation.ShadowTranscript, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []annotation.ShadowTranscript
	err := sn.withIDs(ctx, ids, func(table string) error {
		rows, err := sn.tx.QueryContext(ctx,
			`SELECT allele_id, transcript, hgnc_id, symbol, strand, is_canonical, in_last_exon,
				consequences, hgvsc, hgvsp, protein, exon_distance, coding_region_distance
			FROM annotationshadowtranscript
			WHERE allele_id IN (SELECT id FROM `+table+`)
			ORDER BY allele_id, transcript`)
		if err != nil {
			return classify(fmt.Errorf("query transcript shadows: %w", err))
		}
		defer rows.Close()
		for rows.Next() {
			var st annotation.ShadowTranscript
			var hgnc, strand, exonDist, codingDist sql.NullInt64
			var symbol, consequences, hgvsc, hgvsp, protein sql.NullString
			var canonical, lastExon sql.NullBool
			if err := rows.Scan(&st.AlleleID, &st.Transcript, &hgnc, &symbol, &strand, &canonical,
				&lastExon, &consequences, &hgvsc, &hgvsp, &protein, &exonDist, &codingDist); err != nil {
				return err
			}
			st.HGNCID = int(hgnc.Int64)
			st.Symbol = symbol.String
			st.Strand = genomic.Strand(strand.Int64)
			st.IsCanonical, st.InLastExon = canonical.Bool, lastExon.Bool
			st.Consequences = genomic.SplitConsequences(consequences.String)
			st.HGVSc, st.HGVSp, st.Protein = hgvsc.String, hgvsp.String, protein.String
			st.ExonDistance, st.CodingRegionDistance = int64Ptr(exonDist), int64Ptr(codingDist)
			out = append(out, st)
		}
		return rows.Err()
	})
	return out, err
}

// FrequencyShadows returns the frequency shadow rows of the alleles. It
// fails with ErrInconsistent when the shadows were built for other groups.
func (sn *Snapshot) FrequencyShadows(ctx context.Context, ids model.IDSet) ([]annotation.ShadowFrequency, error) {
	if !sn.consistent {
		return nil, fmt.Errorf("frequency shadows are stale, run reconfigure: %w", apperr.ErrInconsistent)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var out []annotation.ShadowFrequency
	err := sn.withIDs(ctx, ids, func(table string) error {
		rows, err := sn.tx.QueryContext(ctx,
			`SELECT allele_id, provider, freq_key, freq, num, allele_count
			FROM annotationshadowfrequency
			WHERE allele_id IN (SELECT id FROM `+table+`)
			ORDER BY allele_id, provider, freq_key`)
		if err != nil {
			return classify(fmt.Errorf("query frequency shadows: %w", err))
		}
		defer rows.Close()
		for rows.Next() {
			var sf annotation.ShadowFrequency
			var num, count sql.NullInt64
			if err := rows.Scan(&sf.AlleleID, &sf.Provider, &sf.Key, &sf.Freq, &num, &count); err != nil {
				return err
			}
			sf.Num, sf.Count = int64Ptr(num), int64Ptr(count)
			out = append(out, sf)
		}
		return rows.Err()
	})
	return out, err
}

// Annotations returns the current annotation of each allele.
func (sn *Snapshot) Annotations(ctx context.Context, ids model.IDSet) (map[int64]*annotation.Annotation, error) {
	out := make(map[int64]*annotation.Annotation, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	err := sn.withIDs(ctx, ids, func(table string) error {
		rows, err := sn.tx.QueryContext(ctx,
			`SELECT id, allele_id, schema_version, annotations, date_created, date_superceeded
			FROM annotation
			WHERE date_superceeded IS NULL AND allele_id IN (SELECT id FROM `+table+`)`)
		if err != nil {
			return classify(fmt.Errorf("query annotations: %w", err))
		}
		anns, err := scanAnnotations(rows)
		for _, a := range anns {
			out[a.AlleleID] = a
		}
		return err
	})
	return out, err
}

// GenePanel returns a published panel from the store's cache.
func (sn *Snapshot) GenePanel(ctx context.Context, key model.GenePanelKey) (*genepanel.Panel, error) {
	return sn.s.GenePanel(ctx, key)
}

// Samples returns the samples of an analysis.
func (sn *Snapshot) Samples(ctx context.Context, analysisID int64) ([]*model.Sample, error) {
	return samples(ctx, sn.tx, analysisID)
}

// Genotypes returns, for the given alleles, every sample call recorded in the
// analysis. A call on the second allele of a split genotype is reported
// against that second allele.
func (sn *Snapshot) Genotypes(ctx context.Context, analysisID int64, ids model.IDSet) ([]model.AlleleGenotype, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []model.AlleleGenotype
	err := sn.withIDs(ctx, ids, func(table string) error {
		rows, err := sn.tx.QueryContext(ctx,
			`SELECT allele_id, sample_id, type, multiallelic, allele_ratio, variant_quality, filter_status
			FROM (
				SELECT CASE WHEN gsd.secondallele THEN g.secondallele_id ELSE g.allele_id END AS allele_id,
					gsd.sample_id, gsd.type, gsd.multiallelic, gsd.allele_ratio,
					g.variant_quality, g.filter_status
				FROM genotype g
				JOIN genotypesampledata gsd ON gsd.genotype_id = g.id
				JOIN sample s ON s.id = g.sample_id
				WHERE s.analysis_id = ?
			) calls
			WHERE allele_id IN (SELECT id FROM `+table+`)
			ORDER BY allele_id, sample_id`, analysisID)
		if err != nil {
			return classify(fmt.Errorf("query genotypes: %w", err))
		}
		defer rows.Close()
		for rows.Next() {
			var g model.AlleleGenotype
			var typ string
			var ratio, qual sql.NullFloat64
			var filterStatus sql.NullString
			if err := rows.Scan(&g.AlleleID, &g.SampleID, &typ, &g.Multiallelic, &ratio, &qual, &filterStatus); err != nil {
				return err
			}
			if g.Type, err = genomic.ParseZygosity(typ); err != nil {
				return err
			}
			g.AlleleRatio, g.VariantQuality = float64Ptr(ratio), float64Ptr(qual)
			g.FilterStatus = filterStatus.String
			out = append(out, g)
		}
		return rows.Err()
	})
	return out, err
}

// Assessments returns the current assessment of each allele that has one.
func (sn *Snapshot) Assessments(ctx context.Context, ids model.IDSet) (map[int64]*model.Assessment, error) {
	out := make(map[int64]*model.Assessment)
	if len(ids) == 0 {
		return out, nil
	}
	err := sn.withIDs(ctx, ids, func(table string) error {
		rows, err := sn.tx.QueryContext(ctx,
			`SELECT `+assessmentColumns+` FROM alleleassessment
			WHERE date_superceeded IS NULL AND allele_id IN (SELECT id FROM `+table+`)`)
		if err != nil {
			return classify(fmt.Errorf("query assessments: %w", err))
		}
		as, err := scanAssessments(rows)
		for _, a := range as {
			out[a.AlleleID] = a
		}
		return err
	})
	return out, err
}
