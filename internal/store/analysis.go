package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

// Interpretation statuses.
const (
	InterpretationNotStarted = "Not started"
	InterpretationOngoing    = "Ongoing"
	InterpretationDone       = "Done"
)

// CreateAnalysis inserts a new analysis. An analysis with the same name is a
// conflict.
func (t *Tx) CreateAnalysis(ctx context.Context, a *model.Analysis) error {
	var n int64
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis WHERE name = ?`, a.Name).Scan(&n); err != nil {
		return classify(err)
	}
	if n > 0 {
		return fmt.Errorf("analysis %q already exists: %w", a.Name, apperr.ErrConflict)
	}
	if a.DateDeposited.IsZero() {
		a.DateDeposited = t.s.now()
	}
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO analysis (name, genepanel_name, genepanel_version, priority, date_requested,
			date_deposited, report, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		a.Name, a.GenePanel.Name, a.GenePanel.Version, int64(a.Priority),
		nullTime(a.DateRequested), a.DateDeposited, a.Report, a.Warnings,
	).Scan(&a.ID)
	if err != nil {
		return classify(fmt.Errorf("insert analysis %q: %w", a.Name, err))
	}
	return nil
}

// AnalysisByName loads an analysis with its samples.
func (t *Tx) AnalysisByName(ctx context.Context, name string) (*model.Analysis, error) {
	return analysisByName(ctx, t.tx, name)
}

// AnalysisByName loads an analysis with its samples.
func (s *Store) AnalysisByName(ctx context.Context, name string) (*model.Analysis, error) {
	return analysisByName(ctx, s.db, name)
}

func analysisByName(ctx context.Context, q queryer, name string) (*model.Analysis, error) {
	var a model.Analysis
	var priority int64
	var requested sql.NullTime
	var report, warnings sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT id, name, genepanel_name, genepanel_version, priority, date_requested,
			date_deposited, report, warnings
		FROM analysis WHERE name = ?`, name,
	).Scan(&a.ID, &a.Name, &a.GenePanel.Name, &a.GenePanel.Version, &priority,
		&requested, &a.DateDeposited, &report, &warnings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %q: %w", name, apperr.ErrMissingReference)
	}
	if err != nil {
		return nil, classify(err)
	}
	a.Priority = int(priority)
	a.DateRequested = timePtr(requested)
	a.Report, a.Warnings = report.String, warnings.String

	if a.Samples, err = samples(ctx, q, a.ID); err != nil {
		return nil, err
	}
	return &a, nil
}

// SetWarnings replaces the warnings text of an analysis.
func (t *Tx) SetWarnings(ctx context.Context, analysisID int64, warnings string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE analysis SET warnings = ? WHERE id = ?`, warnings, analysisID)
	return classify(err)
}

// AddSamples inserts samples of an analysis. Parent references are given
// as indexes into samples through parents; -1 means no parent. Sample ids
// are assigned in place.
func (t *Tx) AddSamples(ctx context.Context, analysisID int64, samples []*model.Sample, parents [][2]int) error {
	now := t.s.now()
	for _, s := range samples {
		s.AnalysisID = analysisID
		err := t.tx.QueryRowContext(ctx,
			`INSERT INTO sample (identifier, analysis_id, proband, affected, sex, sample_type,
				family_id, date_deposited)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			s.Identifier, analysisID, s.Proband, s.Affected, s.Sex.String(), s.SampleType,
			s.FamilyID, now,
		).Scan(&s.ID)
		if err != nil {
			return classify(fmt.Errorf("insert sample %q: %w", s.Identifier, err))
		}
	}
	for i, p := range parents {
		if i >= len(samples) || (p[0] < 0 && p[1] < 0) {
			continue
		}
		s := samples[i]
		if p[0] >= 0 {
			id := samples[p[0]].ID
			s.FatherID = &id
		}
		if p[1] >= 0 {
			id := samples[p[1]].ID
			s.MotherID = &id
		}
		if _, err := t.tx.ExecContext(ctx,
			`UPDATE sample SET father_id = ?, mother_id = ? WHERE id = ?`,
			nullInt64(s.FatherID), nullInt64(s.MotherID), s.ID); err != nil {
			return classify(fmt.Errorf("link parents of sample %q: %w", s.Identifier, err))
		}
	}
	return nil
}

// Samples returns the samples of an analysis in insertion order.
func (s *Store) Samples(ctx context.Context, analysisID int64) ([]*model.Sample, error) {
	return samples(ctx, s.db, analysisID)
}

func samples(ctx context.Context, q queryer, analysisID int64) ([]*model.Sample, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, identifier, analysis_id, proband, affected, sex, father_id, mother_id,
			sample_type, family_id
		FROM sample WHERE analysis_id = ? ORDER BY id`, analysisID)
	if err != nil {
		return nil, classify(fmt.Errorf("query samples: %w", err))
	}
	defer rows.Close()
	var out []*model.Sample
	for rows.Next() {
		var s model.Sample
		var sex string
		var father, mother sql.NullInt64
		var family sql.NullString
		if err := rows.Scan(&s.ID, &s.Identifier, &s.AnalysisID, &s.Proband, &s.Affected, &sex,
			&father, &mother, &s.SampleType, &family); err != nil {
			return nil, err
		}
		if s.Sex, err = model.ParseSex(sex); err != nil {
			return nil, err
		}
		s.FatherID, s.MotherID = int64Ptr(father), int64Ptr(mother)
		s.FamilyID = family.String
		out = append(out, &s)
	}
	return out, rows.Err()
}

// CreateInterpretation opens the first interpretation round of an analysis.
func (t *Tx) CreateInterpretation(ctx context.Context, analysisID int64) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO analysisinterpretation (analysis_id, status, date_created) VALUES (?, ?, ?) RETURNING id`,
		analysisID, InterpretationNotStarted, t.s.now()).Scan(&id)
	return id, classify(err)
}

// InterpretationStatus returns the status of the latest interpretation.
func (s *Store) InterpretationStatus(ctx context.Context, analysisID int64) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM analysisinterpretation WHERE analysis_id = ? ORDER BY id DESC LIMIT 1`,
		analysisID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("interpretation of analysis %d: %w", analysisID, apperr.ErrMissingReference)
	}
	return status, classify(err)
}

// GenotypeRecord is a genotype with its per-sample data rows.
type GenotypeRecord struct {
	Genotype   model.Genotype
	SampleData []model.SampleData
}

// InsertGenotypes stores genotypes and their sample data, assigning ids.
func (t *Tx) InsertGenotypes(ctx context.Context, records []*GenotypeRecord) error {
	for _, r := range records {
		g := &r.Genotype
		err := t.tx.QueryRowContext(ctx,
			`INSERT INTO genotype (allele_id, secondallele_id, sample_id, variant_quality, filter_status)
			VALUES (?, ?, ?, ?, ?) RETURNING id`,
			g.AlleleID, nullInt64(g.SecondAlleleID), g.SampleID,
			nullFloat64(g.VariantQuality), g.FilterStatus,
		).Scan(&g.ID)
		if err != nil {
			return classify(fmt.Errorf("insert genotype for allele %d: %w", g.AlleleID, err))
		}
		for i := range r.SampleData {
			sd := &r.SampleData[i]
			sd.GenotypeID = g.ID
			ad, _ := json.Marshal(sd.AlleleDepth)
			checks, _ := json.Marshal(sd.VerificationChecks)
			if _, err := t.tx.ExecContext(ctx,
				`INSERT INTO genotypesampledata (genotype_id, sample_id, secondallele, type, multiallelic,
					sequencing_depth, genotype_quality, allele_depth, allele_ratio,
					needs_verification, verification_checks)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				sd.GenotypeID, sd.SampleID, sd.SecondAllele, sd.Type.String(), sd.Multiallelic,
				nullInt64(sd.SequencingDepth), nullInt64(sd.GenotypeQuality), string(ad),
				nullFloat64(sd.AlleleRatio), sd.NeedsVerification, string(checks)); err != nil {
				return classify(fmt.Errorf("insert sample data for genotype %d: %w", g.ID, err))
			}
		}
	}
	return nil
}

// SampleData returns every sample data row of an analysis's genotypes,
// ordered by genotype then sample.
func (s *Store) SampleData(ctx context.Context, analysisID int64) ([]model.SampleData, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT gsd.genotype_id, gsd.sample_id, gsd.secondallele, gsd.type, gsd.multiallelic,
			gsd.sequencing_depth, gsd.genotype_quality, gsd.allele_depth, gsd.allele_ratio,
			gsd.needs_verification, gsd.verification_checks
		FROM genotypesampledata gsd
		JOIN sample s ON s.id = gsd.sample_id
		WHERE s.analysis_id = ?
		ORDER BY gsd.genotype_id, gsd.sample_id, gsd.secondallele`, analysisID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	var out []model.SampleData
	for rows.Next() {
		var sd model.SampleData
		var typ string
		var dp, gq sql.NullInt64
		var ad, checks sql.NullString
		var ratio sql.NullFloat64
		if err := rows.Scan(&sd.GenotypeID, &sd.SampleID, &sd.SecondAllele, &typ, &sd.Multiallelic,
			&dp, &gq, &ad, &ratio, &sd.NeedsVerification, &checks); err != nil {
			return nil, err
		}
		if sd.Type, err = genomic.ParseZygosity(typ); err != nil {
			return nil, err
		}
		sd.SequencingDepth, sd.GenotypeQuality = int64Ptr(dp), int64Ptr(gq)
		sd.AlleleRatio = float64Ptr(ratio)
		if ad.Valid && ad.String != "null" {
			if err := json.Unmarshal([]byte(ad.String), &sd.AlleleDepth); err != nil {
				return nil, err
			}
		}
		if checks.Valid && checks.String != "null" {
			if err := json.Unmarshal([]byte(checks.String), &sd.VerificationChecks); err != nil {
				return nil, err
			}
		}
		out = append(out, sd)
	}
	return out, rows.Err()
}

// AnalysisAlleleIDs returns the ids of alleles with a genotype in the analysis.
func (s *Store) AnalysisAlleleIDs(ctx context.Context, analysisID int64) (model.IDSet, error) {
	return analysisAlleleIDs(ctx, s.db, analysisID)
}

func analysisAlleleIDs(ctx context.Context, q queryer, analysisID int64) (model.IDSet, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT g.allele_id FROM genotype g JOIN sample s ON s.id = g.sample_id WHERE s.analysis_id = ?
		UNION
		SELECT g.secondallele_id FROM genotype g JOIN sample s ON s.id = g.sample_id
		WHERE s.analysis_id = ? AND g.secondallele_id IS NOT NULL`, analysisID, analysisID)
	if err != nil {
		return nil, classify(fmt.Errorf("query analysis alleles: %w", err))
	}
	defer rows.Close()
	ids := make(model.IDSet)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids.Add(id)
	}
	return ids, rows.Err()
}
