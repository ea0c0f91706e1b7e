package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

const alleleColumns = `id, genome_reference, chromosome, start_position, open_end_position,
	change_from, change_to, change_type, length, vcf_pos, vcf_ref, vcf_alt`

// UpsertAlleles assigns ids to alleles, reusing the stored allele when one
// with the same identity exists. Alleles are never modified once stored.
func (t *Tx) UpsertAlleles(ctx context.Context, alleles []*model.Allele) error {
	for _, a := range alleles {
		if a.GenomeReference == "" {
			a.GenomeReference = t.s.genomeReference
		}
		var id int64
		err := t.tx.QueryRowContext(ctx,
			`SELECT id FROM allele
			WHERE chromosome = ? AND start_position = ? AND open_end_position = ?
				AND change_from = ? AND change_to = ? AND genome_reference = ?`,
			a.Chromosome, a.StartPosition, a.OpenEndPosition, a.ChangeFrom, a.ChangeTo, a.GenomeReference,
		).Scan(&id)
		switch {
		case err == nil:
			a.ID = id
			continue
		case !errors.Is(err, sql.ErrNoRows):
			return classify(fmt.Errorf("lookup allele %s: %w", a.Key(), err))
		}

		err = t.tx.QueryRowContext(ctx,
			`INSERT INTO allele (genome_reference, chromosome, start_position, open_end_position,
				change_from, change_to, change_type, length, vcf_pos, vcf_ref, vcf_alt)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			a.GenomeReference, a.Chromosome, a.StartPosition, a.OpenEndPosition,
			a.ChangeFrom, a.ChangeTo, a.ChangeType.String(), a.Length,
			a.VCFPos, a.VCFRef, a.VCFAlt,
		).Scan(&a.ID)
		if err != nil {
			return classify(fmt.Errorf("insert allele %s: %w", a.Key(), err))
		}
	}
	return nil
}

// AlleleByKey returns the stored allele with the given identity, or nil.
func (s *Store) AlleleByKey(ctx context.Context, k model.AlleleKey) (*model.Allele, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+alleleColumns+` FROM allele
		WHERE chromosome = ? AND start_position = ? AND open_end_position = ?
			AND change_from = ? AND change_to = ? AND genome_reference = ?`,
		k.Chromosome, k.Start, k.OpenEnd, k.ChangeFrom, k.ChangeTo, s.genomeReference)
	if err != nil {
		return nil, classify(err)
	}
	alleles, err := scanAlleles(rows)
	if err != nil || len(alleles) == 0 {
		return nil, err
	}
	return alleles[0], nil
}

// CountAlleles returns the number of stored alleles.
func (s *Store) CountAlleles(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM allele`).Scan(&n)
	return n, err
}

func scanAlleles(rows *sql.Rows) ([]*model.Allele, error) {
	defer rows.Close()
	var out []*model.Allele
	for rows.Next() {
		var a model.Allele
		var changeType string
		if err := rows.Scan(&a.ID, &a.GenomeReference, &a.Chromosome, &a.StartPosition,
			&a.OpenEndPosition, &a.ChangeFrom, &a.ChangeTo, &changeType, &a.Length,
			&a.VCFPos, &a.VCFRef, &a.VCFAlt); err != nil {
			return nil, err
		}
		ct, err := genomic.ParseChangeType(changeType)
		if err != nil {
			return nil, err
		}
		a.ChangeType = ct
		out = append(out, &a)
	}
	return out, rows.Err()
}
