package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/glbala87/ELLA-tool-sub001/internal/annotation"
	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
)

// InsertAnnotation stores a as the current annotation of a.AlleleID,
// superseding the previous one, and rebuilds the allele's shadow rows.
// A zero SchemaVersion selects the highest version the document validates
// against.
func (t *Tx) InsertAnnotation(ctx context.Context, a *annotation.Annotation) error {
	doc, err := a.MarshalDocument()
	if err != nil {
		return err
	}
	if a.SchemaVersion == 0 {
		if a.SchemaVersion, err = t.s.schemas.Match(SchemaAnnotation, doc); err != nil {
			return fmt.Errorf("annotation for allele %d: %w", a.AlleleID, err)
		}
	} else if err := t.s.schemas.Validate(SchemaAnnotation, a.SchemaVersion, doc); err != nil {
		return fmt.Errorf("annotation for allele %d: %w", a.AlleleID, err)
	}

	if err := t.checkFingerprint(ctx); err != nil {
		return err
	}

	now := t.s.now()
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE annotation SET date_superceeded = ? WHERE allele_id = ? AND date_superceeded IS NULL`,
		now, a.AlleleID); err != nil {
		return classify(fmt.Errorf("supersede annotation for allele %d: %w", a.AlleleID, err))
	}
	if err := t.tx.QueryRowContext(ctx,
		`INSERT INTO annotation (allele_id, schema_version, annotations, date_created)
		VALUES (?, ?, ?, ?) RETURNING id`,
		a.AlleleID, a.SchemaVersion, string(doc), now,
	).Scan(&a.ID); err != nil {
		return classify(fmt.Errorf("insert annotation for allele %d: %w", a.AlleleID, err))
	}
	a.DateCreated = now
	a.DateSuperceeded = nil

	transcripts, frequencies := annotation.BuildShadows(a.AlleleID, a, t.s.groups)
	return t.replaceShadows(ctx, a.AlleleID, transcripts, frequencies)
}

func (t *Tx) checkFingerprint(ctx context.Context) error {
	stored, err := readFingerprint(ctx, t.tx)
	if err != nil {
		return err
	}
	if live := t.s.groups.Fingerprint(); stored != live {
		return fmt.Errorf("shadow tables built for frequency groups %.12s, live config is %.12s: %w",
			stored, live, apperr.ErrInconsistent)
	}
	return nil
}

func readFingerprint(ctx context.Context, q queryer) (string, error) {
	var fp string
	err := q.QueryRowContext(ctx,
		`SELECT fingerprint FROM annotationshadowmeta ORDER BY date_created DESC LIMIT 1`).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", classify(fmt.Errorf("read shadow fingerprint: %w", err))
	}
	return fp, nil
}

// ensureShadowMeta records the configured groups when no shadow metadata
// exists yet. A stored fingerprint that differs is left in place; writes
// fail with ErrInconsistent until Reconfigure runs.
func (s *Store) ensureShadowMeta(ctx context.Context) error {
	fp, err := readFingerprint(ctx, s.db)
	if err != nil {
		return err
	}
	live := s.groups.Fingerprint()
	if fp == "" {
		return writeShadowMeta(ctx, s.db, s.groups, s.now())
	}
	if fp != live {
		s.logger.Warn("frequency groups changed since shadow tables were built",
			zap.String("stored", fp), zap.String("live", live))
	}
	return nil
}

func writeShadowMeta(ctx context.Context, q queryer, groups annotation.FrequencyGroups, now time.Time) error {
	b, err := json.Marshal(groups)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM annotationshadowmeta`); err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO annotationshadowmeta (fingerprint, frequency_groups, date_created) VALUES (?, ?, ?)`,
		groups.Fingerprint(), string(b), now)
	return err
}

func (t *Tx) replaceShadows(ctx context.Context, alleleID int64, transcripts []annotation.ShadowTranscript, frequencies []annotation.ShadowFrequency) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM annotationshadowtranscript WHERE allele_id = ?`, alleleID); err != nil {
		return classify(err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM annotationshadowfrequency WHERE allele_id = ?`, alleleID); err != nil {
		return classify(err)
	}
	for _, st := range transcripts {
		if _, err := t.tx.ExecContext(ctx,
			`INSERT INTO annotationshadowtranscript (allele_id, transcript, hgnc_id, symbol, strand,
				is_canonical, in_last_exon, consequences, hgvsc, hgvsp, protein,
				exon_distance, coding_region_distance)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			execArgs(shadowTranscriptRow(st))...); err != nil {
			return classify(fmt.Errorf("insert transcript shadow %s: %w", st.Transcript, err))
		}
	}
	for _, sf := range frequencies {
		if _, err := t.tx.ExecContext(ctx,
			`INSERT INTO annotationshadowfrequency (allele_id, provider, freq_key, freq, num, allele_count)
			VALUES (?, ?, ?, ?, ?, ?)`,
			execArgs(shadowFrequencyRow(sf))...); err != nil {
			return classify(fmt.Errorf("insert frequency shadow %s/%s: %w", sf.Provider, sf.Key, err))
		}
	}
	return nil
}

func shadowTranscriptRow(st annotation.ShadowTranscript) []driver.Value {
	return []driver.Value{
		st.AlleleID, st.Transcript, int64(st.HGNCID), st.Symbol, int64(st.Strand),
		st.IsCanonical, st.InLastExon, joinConsequences(st.Consequences),
		st.HGVSc, st.HGVSp, st.Protein,
		optionalInt64(st.ExonDistance), optionalInt64(st.CodingRegionDistance),
	}
}

func shadowFrequencyRow(sf annotation.ShadowFrequency) []driver.Value {
	return []driver.Value{sf.AlleleID, sf.Provider, sf.Key, sf.Freq, optionalInt64(sf.Num), optionalInt64(sf.Count)}
}

// execArgs adapts an appender row to ExecContext arguments.
func execArgs(row []driver.Value) []any {
	args := make([]any, len(row))
	for i, v := range row {
		args[i] = v
	}
	return args
}

// optionalInt64 returns nil for a nil pointer so both database/sql and the
// appender bind NULL.
func optionalInt64(v *int64) driver.Value {
	if v == nil {
		return nil
	}
	return *v
}

func joinConsequences(cs []genomic.Consequence) string {
	terms := make([]string, len(cs))
	for i, c := range cs {
		terms[i] = c.String()
	}
	return strings.Join(terms, ",")
}

// AnnotationHistory returns every annotation of an allele, oldest first.
func (s *Store) AnnotationHistory(ctx context.Context, alleleID int64) ([]*annotation.Annotation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, allele_id, schema_version, annotations, date_created, date_superceeded
		FROM annotation WHERE allele_id = ? ORDER BY date_created, id`, alleleID)
	if err != nil {
		return nil, classify(err)
	}
	return scanAnnotations(rows)
}

func scanAnnotations(rows *sql.Rows) ([]*annotation.Annotation, error) {
	defer rows.Close()
	var out []*annotation.Annotation
	for rows.Next() {
		var a annotation.Annotation
		var doc string
		var version int64
		var superceeded sql.NullTime
		if err := rows.Scan(&a.ID, &a.AlleleID, &version, &doc, &a.DateCreated, &superceeded); err != nil {
			return nil, err
		}
		if err := a.UnmarshalDocument([]byte(doc)); err != nil {
			return nil, err
		}
		a.SchemaVersion = int(version)
		a.DateSuperceeded = timePtr(superceeded)
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Reconfigure replaces the frequency-group configuration and rebuilds both
// shadow tables from the current annotations. It runs exclusively:
// no annotation write or snapshot observes a partially rebuilt table.
func (s *Store) Reconfigure(ctx context.Context, groups annotation.FrequencyGroups) error {
	s.shadowMu.Lock()
	defer s.shadowMu.Unlock()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return classify(fmt.Errorf("get connection: %w", err))
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `BEGIN TRANSACTION`); err != nil {
		return classify(fmt.Errorf("begin reconfigure: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			conn.ExecContext(context.Background(), `ROLLBACK`)
		}
	}()

	rows, err := conn.QueryContext(ctx,
		`SELECT id, allele_id, schema_version, annotations, date_created, date_superceeded
		FROM annotation WHERE date_superceeded IS NULL ORDER BY allele_id`)
	if err != nil {
		return classify(fmt.Errorf("read current annotations: %w", err))
	}
	current, err := scanAnnotations(rows)
	if err != nil {
		return fmt.Errorf("read current annotations: %w", err)
	}

	for _, table := range []string{"annotationshadowtranscript", "annotationshadowfrequency"} {
		if _, err := conn.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return classify(fmt.Errorf("clear %s: %w", table, err))
		}
	}

	txApp, err := newAppender(conn, "annotationshadowtranscript")
	if err != nil {
		return err
	}
	freqApp, err := newAppender(conn, "annotationshadowfrequency")
	if err != nil {
		txApp.Close()
		return err
	}
	closeAll := func() error {
		err := txApp.Close()
		if ferr := freqApp.Close(); err == nil {
			err = ferr
		}
		return err
	}

	var nTranscripts, nFrequencies int
	for _, a := range current {
		if err := ctx.Err(); err != nil {
			closeAll()
			return err
		}
		transcripts, frequencies := annotation.BuildShadows(a.AlleleID, a, groups)
		for _, st := range transcripts {
			if err := txApp.AppendRow(shadowTranscriptRow(st)...); err != nil {
				closeAll()
				return fmt.Errorf("append transcript shadow: %w", err)
			}
		}
		for _, sf := range frequencies {
			if err := freqApp.AppendRow(shadowFrequencyRow(sf)...); err != nil {
				closeAll()
				return fmt.Errorf("append frequency shadow: %w", err)
			}
		}
		nTranscripts += len(transcripts)
		nFrequencies += len(frequencies)
	}
	if err := closeAll(); err != nil {
		return fmt.Errorf("flush shadows: %w", err)
	}

	if err := writeShadowMeta(ctx, conn, groups, s.now()); err != nil {
		return classify(fmt.Errorf("write shadow metadata: %w", err))
	}
	if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
		return classify(fmt.Errorf("commit reconfigure: %w", err))
	}
	committed = true
	s.groups = groups

	s.logger.Info("rebuilt frequency shadows",
		zap.Int("annotations", len(current)),
		zap.Int("transcript_rows", nTranscripts),
		zap.Int("frequency_rows", nFrequencies),
		zap.String("fingerprint", groups.Fingerprint()))
	return nil
}

func newAppender(conn *sql.Conn, table string) (*goduckdb.Appender, error) {
	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return nil, fmt.Errorf("create appender for %s: %w", table, err)
	}
	return appender, nil
}
