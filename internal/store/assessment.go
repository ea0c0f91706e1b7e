package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

// CreateAssessment stores a classification for an allele and supersedes the
// allele's previous assessment.
func (s *Store) CreateAssessment(ctx context.Context, a *model.Assessment) error {
	return s.inTx(ctx, func(tx *Tx) error {
		now := s.now()
		if _, err := tx.tx.ExecContext(ctx,
			`UPDATE alleleassessment SET date_superceeded = ? WHERE allele_id = ? AND date_superceeded IS NULL`,
			now, a.AlleleID); err != nil {
			return classify(fmt.Errorf("supersede assessment: %w", err))
		}
		if a.DateCreated.IsZero() {
			a.DateCreated = now
		}
		a.DateSuperceeded = nil
		return classify(tx.tx.QueryRowContext(ctx,
			`INSERT INTO alleleassessment (allele_id, classification, evaluation, user_id,
				genepanel_name, genepanel_version, date_created)
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			a.AlleleID, a.Classification, a.Evaluation, a.UserID,
			a.GenePanel.Name, a.GenePanel.Version, a.DateCreated,
		).Scan(&a.ID))
	})
}

// CreateAlleleReport stores a free-text report for an allele, superseding
// the previous one.
func (s *Store) CreateAlleleReport(ctx context.Context, alleleID, userID int64, evaluation string) (int64, error) {
	var id int64
	err := s.inTx(ctx, func(tx *Tx) error {
		now := s.now()
		if _, err := tx.tx.ExecContext(ctx,
			`UPDATE allelereport SET date_superceeded = ? WHERE allele_id = ? AND date_superceeded IS NULL`,
			now, alleleID); err != nil {
			return classify(err)
		}
		return classify(tx.tx.QueryRowContext(ctx,
			`INSERT INTO allelereport (allele_id, evaluation, user_id, date_created) VALUES (?, ?, ?, ?) RETURNING id`,
			alleleID, evaluation, userID, now).Scan(&id))
	})
	return id, err
}

// AssessedVCFKeys reports which VCF record keys already map to an allele
// with a current assessment.
func (s *Store) AssessedVCFKeys(ctx context.Context, keys []model.VCFKey) (map[model.VCFKey]bool, error) {
	out := make(map[model.VCFKey]bool)
	if len(keys) == 0 {
		return out, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	defer tx.Rollback()

	name, drop, err := createTempVCFKeys(ctx, tx, keys)
	if err != nil {
		return nil, err
	}
	defer drop()

	rows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT k.chromosome, k.vcf_pos, k.vcf_ref, k.vcf_alt
		FROM `+name+` k
		JOIN allele a ON a.chromosome = k.chromosome AND a.vcf_pos = k.vcf_pos
			AND a.vcf_ref = k.vcf_ref AND a.vcf_alt = k.vcf_alt AND a.genome_reference = ?
		JOIN alleleassessment aa ON aa.allele_id = a.id AND aa.date_superceeded IS NULL`,
		s.genomeReference)
	if err != nil {
		return nil, classify(fmt.Errorf("query assessed keys: %w", err))
	}
	defer rows.Close()
	for rows.Next() {
		var k model.VCFKey
		if err := rows.Scan(&k.Chromosome, &k.Pos, &k.Ref, &k.Alt); err != nil {
			return nil, err
		}
		out[k] = true
	}
	return out, rows.Err()
}

// AssessmentHistory returns every assessment of an allele, oldest first.
func (s *Store) AssessmentHistory(ctx context.Context, alleleID int64) ([]*model.Assessment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assessmentColumns+` FROM alleleassessment WHERE allele_id = ? ORDER BY id`, alleleID)
	if err != nil {
		return nil, classify(err)
	}
	return scanAssessments(rows)
}

const assessmentColumns = `id, allele_id, classification, evaluation, user_id,
	genepanel_name, genepanel_version, date_created, date_superceeded`

func scanAssessments(rows *sql.Rows) ([]*model.Assessment, error) {
	defer rows.Close()
	var out []*model.Assessment
	for rows.Next() {
		var a model.Assessment
		var evaluation, panelName, panelVersion sql.NullString
		var superceeded sql.NullTime
		if err := rows.Scan(&a.ID, &a.AlleleID, &a.Classification, &evaluation, &a.UserID,
			&panelName, &panelVersion, &a.DateCreated, &superceeded); err != nil {
			return nil, err
		}
		a.Evaluation = evaluation.String
		a.GenePanel = model.GenePanelKey{Name: panelName.String, Version: panelVersion.String}
		a.DateSuperceeded = timePtr(superceeded)
		out = append(out, &a)
	}
	return out, rows.Err()
}
