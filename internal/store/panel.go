package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

type panelConfig struct {
	Genes map[string]genepanel.GeneConfig `json:"genes"`
}

// SavePanel publishes a gene panel. Genes, transcripts and phenotypes shared
// with earlier panels are reused. Publishing an existing name and version
// fails with ErrConflict since panels are immutable.
func (s *Store) SavePanel(ctx context.Context, p *genepanel.Panel) error {
	cfg := panelConfig{Genes: make(map[string]genepanel.GeneConfig, len(p.GeneConfig))}
	for id, gc := range p.GeneConfig {
		cfg.Genes[strconv.Itoa(id)] = gc
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, func(tx *Tx) error {
		var n int64
		if err := tx.tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM genepanel WHERE name = ? AND version = ?`, p.Name, p.Version).Scan(&n); err != nil {
			return classify(err)
		}
		if n > 0 {
			return fmt.Errorf("gene panel %s already exists: %w", p.Key(), apperr.ErrConflict)
		}
		if _, err := tx.tx.ExecContext(ctx,
			`INSERT INTO genepanel (name, version, genome_reference, config, date_created) VALUES (?, ?, ?, ?, ?)`,
			p.Name, p.Version, s.genomeReference, string(cfgJSON), s.now()); err != nil {
			return classify(fmt.Errorf("insert gene panel: %w", err))
		}

		for _, id := range sortedGeneIDs(p.Genes) {
			if _, err := tx.tx.ExecContext(ctx,
				`INSERT INTO gene (hgnc_id, hgnc_symbol) VALUES (?, ?) ON CONFLICT DO NOTHING`,
				int64(id), p.Genes[id].Symbol); err != nil {
				return classify(fmt.Errorf("insert gene %d: %w", id, err))
			}
		}
		for _, t := range p.Transcripts {
			if err := tx.saveTranscript(ctx, t); err != nil {
				return err
			}
			if _, err := tx.tx.ExecContext(ctx,
				`INSERT INTO genepanel_transcript (genepanel_name, genepanel_version, transcript_id) VALUES (?, ?, ?)`,
				p.Name, p.Version, t.ID); err != nil {
				return classify(err)
			}
		}
		for i := range p.Phenotypes {
			ph := &p.Phenotypes[i]
			if err := tx.savePhenotype(ctx, ph); err != nil {
				return err
			}
			if _, err := tx.tx.ExecContext(ctx,
				`INSERT INTO genepanel_phenotype (genepanel_name, genepanel_version, phenotype_id) VALUES (?, ?, ?)`,
				p.Name, p.Version, ph.ID); err != nil {
				return classify(err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("saved gene panel",
		zap.String("panel", p.Key().String()),
		zap.Int("genes", len(p.Genes)),
		zap.Int("transcripts", len(p.Transcripts)),
		zap.Int("phenotypes", len(p.Phenotypes)))
	return nil
}

func (t *Tx) saveTranscript(ctx context.Context, tr *genepanel.Transcript) error {
	starts, _ := json.Marshal(tr.ExonStarts)
	ends, _ := json.Marshal(tr.ExonEnds)
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO transcript (transcript_name, gene_id, chromosome, strand, tx_start, tx_end,
			cds_start, cds_end, exon_starts, exon_ends, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		tr.Name, int64(tr.HGNCID), tr.Chromosome, int64(tr.Strand), tr.TxStart, tr.TxEnd,
		tr.CDSStart, tr.CDSEnd, string(starts), string(ends), tr.Source); err != nil {
		return classify(fmt.Errorf("insert transcript %s: %w", tr.Name, err))
	}
	var gene int64
	if err := t.tx.QueryRowContext(ctx,
		`SELECT id, gene_id FROM transcript WHERE transcript_name = ?`, tr.Name).Scan(&tr.ID, &gene); err != nil {
		return classify(fmt.Errorf("lookup transcript %s: %w", tr.Name, err))
	}
	if int(gene) != tr.HGNCID {
		return fmt.Errorf("%w: transcript %s is stored for gene %d, not %d",
			apperr.ErrBadInput, tr.Name, gene, tr.HGNCID)
	}
	return nil
}

func (t *Tx) savePhenotype(ctx context.Context, ph *genepanel.Phenotype) error {
	var omim sql.NullInt64
	if ph.OMIMID != nil {
		omim = sql.NullInt64{Int64: int64(*ph.OMIMID), Valid: true}
	}
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO phenotype (gene_id, description, inheritance, omim_id) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		int64(ph.HGNCID), ph.Description, ph.Inheritance.String(), omim); err != nil {
		return classify(fmt.Errorf("insert phenotype %q: %w", ph.Description, err))
	}
	if err := t.tx.QueryRowContext(ctx,
		`SELECT id FROM phenotype WHERE gene_id = ? AND description = ? AND inheritance = ?`,
		int64(ph.HGNCID), ph.Description, ph.Inheritance.String()).Scan(&ph.ID); err != nil {
		return classify(fmt.Errorf("lookup phenotype %q: %w", ph.Description, err))
	}
	return nil
}

// GenePanel loads a published panel. Panels are immutable, so loaded panels
// are cached for the lifetime of the store.
func (s *Store) GenePanel(ctx context.Context, key model.GenePanelKey) (*genepanel.Panel, error) {
	s.panelMu.Lock()
	if p, ok := s.panels[key.String()]; ok {
		s.panelMu.Unlock()
		return p, nil
	}
	s.panelMu.Unlock()

	p, err := loadPanel(ctx, s.db, key)
	if err != nil {
		return nil, err
	}

	s.panelMu.Lock()
	s.panels[key.String()] = p
	s.panelMu.Unlock()
	return p, nil
}

// PanelExists reports whether a panel has been published.
func (s *Store) PanelExists(ctx context.Context, key model.GenePanelKey) (bool, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM genepanel WHERE name = ? AND version = ?`, key.Name, key.Version).Scan(&n)
	return n > 0, classify(err)
}

func loadPanel(ctx context.Context, q queryer, key model.GenePanelKey) (*genepanel.Panel, error) {
	var cfgJSON sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT config FROM genepanel WHERE name = ? AND version = ?`, key.Name, key.Version).Scan(&cfgJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("gene panel %s: %w", key, apperr.ErrMissingReference)
	}
	if err != nil {
		return nil, classify(err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT t.id, t.transcript_name, t.gene_id, g.hgnc_symbol, t.chromosome, t.strand,
			t.tx_start, t.tx_end, t.cds_start, t.cds_end, t.exon_starts, t.exon_ends, t.source
		FROM genepanel_transcript gt
		JOIN transcript t ON t.id = gt.transcript_id
		JOIN gene g ON g.hgnc_id = t.gene_id
		WHERE gt.genepanel_name = ? AND gt.genepanel_version = ?
		ORDER BY t.transcript_name`, key.Name, key.Version)
	if err != nil {
		return nil, classify(fmt.Errorf("query panel transcripts: %w", err))
	}
	genes := make(map[int]genepanel.Gene)
	var transcripts []*genepanel.Transcript
	for rows.Next() {
		var t genepanel.Transcript
		var gene, strand int64
		var cdsStart, cdsEnd sql.NullInt64
		var symbol, starts, ends string
		var source sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &gene, &symbol, &t.Chromosome, &strand,
			&t.TxStart, &t.TxEnd, &cdsStart, &cdsEnd, &starts, &ends, &source); err != nil {
			rows.Close()
			return nil, err
		}
		t.HGNCID = int(gene)
		t.Strand = genomic.Strand(strand)
		t.CDSStart, t.CDSEnd = cdsStart.Int64, cdsEnd.Int64
		t.Source = source.String
		if err := json.Unmarshal([]byte(starts), &t.ExonStarts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("transcript %s exon starts: %w", t.Name, err)
		}
		if err := json.Unmarshal([]byte(ends), &t.ExonEnds); err != nil {
			rows.Close()
			return nil, fmt.Errorf("transcript %s exon ends: %w", t.Name, err)
		}
		genes[t.HGNCID] = genepanel.Gene{HGNCID: t.HGNCID, Symbol: symbol}
		transcripts = append(transcripts, &t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx,
		`SELECT p.id, p.gene_id, p.description, p.inheritance, p.omim_id
		FROM genepanel_phenotype gp
		JOIN phenotype p ON p.id = gp.phenotype_id
		WHERE gp.genepanel_name = ? AND gp.genepanel_version = ?
		ORDER BY p.id`, key.Name, key.Version)
	if err != nil {
		return nil, classify(fmt.Errorf("query panel phenotypes: %w", err))
	}
	var phenotypes []genepanel.Phenotype
	for rows.Next() {
		var ph genepanel.Phenotype
		var gene int64
		var inheritance string
		var omim sql.NullInt64
		if err := rows.Scan(&ph.ID, &gene, &ph.Description, &inheritance, &omim); err != nil {
			rows.Close()
			return nil, err
		}
		ph.HGNCID = int(gene)
		ph.Inheritance = genomic.ParseInheritance(inheritance)
		if omim.Valid {
			v := int(omim.Int64)
			ph.OMIMID = &v
		}
		phenotypes = append(phenotypes, ph)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	geneList := make([]genepanel.Gene, 0, len(genes))
	for _, id := range sortedGeneIDs(genes) {
		geneList = append(geneList, genes[id])
	}
	p := genepanel.NewPanel(key.Name, key.Version, geneList, transcripts, phenotypes)

	if cfgJSON.Valid && cfgJSON.String != "" {
		var cfg panelConfig
		if err := json.Unmarshal([]byte(cfgJSON.String), &cfg); err != nil {
			return nil, fmt.Errorf("gene panel %s config: %w", key, err)
		}
		for k, gc := range cfg.Genes {
			id, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("gene panel %s config: gene key %q: %w", key, k, err)
			}
			p.GeneConfig[id] = gc
		}
	}
	return p, nil
}

func sortedGeneIDs(genes map[int]genepanel.Gene) []int {
	ids := make([]int, 0, len(genes))
	for id := range genes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
