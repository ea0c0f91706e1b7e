// Package store persists alleles, annotations, gene panels, analyses,
// genotypes, assessments and filter configs in DuckDB, and serves
// snapshot-consistent reads to the filter engine.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/glbala87/ELLA-tool-sub001/internal/annotation"
	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
)

// Store manages a DuckDB connection holding all persistent entities.
type Store struct {
	db              *sql.DB
	path            string
	logger          *zap.Logger
	genomeReference string
	schemas         *schemaRegistry
	now             func() time.Time

	// shadowMu guards the shadow tables and groups. Annotation writers and
	// snapshot readers hold it shared; Reconfigure holds it exclusively.
	shadowMu sync.RWMutex
	groups   annotation.FrequencyGroups

	panelMu sync.Mutex
	panels  map[string]*genepanel.Panel
}

// Option configures a Store.
type Option func(*Store)

// WithFrequencyGroups sets the frequency-group configuration that shadow
// tables are built from.
func WithFrequencyGroups(g annotation.FrequencyGroups) Option {
	return func(s *Store) { s.groups = g }
}

// WithGenomeReference sets the genome reference stored on new alleles.
func WithGenomeReference(ref string) Option {
	return func(s *Store) { s.genomeReference = ref }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the time source used for date_created columns.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string, opts ...Option) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{
		db:              db,
		path:            path,
		logger:          zap.NewNop(),
		genomeReference: "GRCh37",
		now:             func() time.Time { return time.Now().UTC() },
		groups:          annotation.FrequencyGroups{},
		panels:          make(map[string]*genepanel.Panel),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	ctx := context.Background()
	if s.schemas, err = loadSchemas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.ensureShadowMeta(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("shadow metadata: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SetLogger sets the logger.
func (s *Store) SetLogger(l *zap.Logger) {
	s.logger = l
}

// FrequencyGroups returns the live frequency-group configuration.
func (s *Store) FrequencyGroups() annotation.FrequencyGroups {
	s.shadowMu.RLock()
	defer s.shadowMu.RUnlock()
	return s.groups
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is a write transaction. It holds the shadow lock shared until Commit or
// Rollback so a concurrent Reconfigure cannot interleave with its writes.
type Tx struct {
	s      *Store
	tx     *sql.Tx
	unlock func()
}

// Begin starts a write transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	s.shadowMu.RLock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.shadowMu.RUnlock()
		return nil, classify(fmt.Errorf("begin transaction: %w", err))
	}
	var once sync.Once
	return &Tx{s: s, tx: tx, unlock: func() { once.Do(s.shadowMu.RUnlock) }}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	defer t.unlock()
	if err := t.tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// Rollback aborts the transaction. Calling it after Commit is a no-op.
func (t *Tx) Rollback() error {
	defer t.unlock()
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// inTx runs fn in a write transaction, committing on success.
func (s *Store) inTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// classify maps DuckDB errors onto the error kinds: transaction conflicts
// and catalog collisions are transient, constraint violations conflicts.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var de *goduckdb.Error
	if errors.As(err, &de) {
		switch de.Type {
		case goduckdb.ErrorTypeTransaction:
			return fmt.Errorf("%w: %w", apperr.ErrTransient, err)
		case goduckdb.ErrorTypeCatalog:
			if strings.Contains(de.Msg, "already exists") {
				return fmt.Errorf("%w: %w", apperr.ErrTransient, err)
			}
		case goduckdb.ErrorTypeConstraint:
			return fmt.Errorf("%w: %w", apperr.ErrConflict, err)
		}
		return err
	}
	if strings.Contains(err.Error(), "Transaction conflict") {
		return fmt.Errorf("%w: %w", apperr.ErrTransient, err)
	}
	return err
}

// nullInt64 converts an optional value for binding.
func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func float64Ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// GenomeReference returns the genome build assigned to new alleles.
func (s *Store) GenomeReference() string {
	return s.genomeReference
}
