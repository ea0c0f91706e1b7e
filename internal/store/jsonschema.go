package store

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names stored in the jsonschema table.
const (
	SchemaAnnotation   = "annotation"
	SchemaFilterConfig = "filterconfig"
)

type versionedSchema struct {
	version int
	schema  *jsonschema.Schema
}

// schemaRegistry holds compiled schemas per name, sorted by descending version.
type schemaRegistry struct {
	byName map[string][]versionedSchema
}

// loadSchemas seeds the embedded schema files into the jsonschema table and
// compiles every stored definition.
func loadSchemas(ctx context.Context, db *sql.DB) (*schemaRegistry, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}
	for _, e := range entries {
		name, version, ok := parseSchemaFile(e.Name())
		if !ok {
			continue
		}
		def, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, err
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO jsonschema (name, version, definition) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
			name, version, string(def)); err != nil {
			return nil, fmt.Errorf("seed schema %s v%d: %w", name, version, err)
		}
	}

	rows, err := db.QueryContext(ctx, `SELECT name, version, definition FROM jsonschema`)
	if err != nil {
		return nil, fmt.Errorf("query schemas: %w", err)
	}
	defer rows.Close()

	reg := &schemaRegistry{byName: make(map[string][]versionedSchema)}
	for rows.Next() {
		var name, def string
		var version int64
		if err := rows.Scan(&name, &version, &def); err != nil {
			return nil, err
		}
		url := fmt.Sprintf("mem://%s_v%d.json", name, version)
		compiled, err := jsonschema.CompileString(url, def)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s v%d: %w", name, version, err)
		}
		reg.byName[name] = append(reg.byName[name], versionedSchema{version: int(version), schema: compiled})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for name := range reg.byName {
		vs := reg.byName[name]
		sort.Slice(vs, func(i, j int) bool { return vs[i].version > vs[j].version })
	}
	return reg, nil
}

// parseSchemaFile splits "annotation_v2.json" into ("annotation", 2).
func parseSchemaFile(file string) (string, int, bool) {
	base := strings.TrimSuffix(file, ".json")
	i := strings.LastIndex(base, "_v")
	if i <= 0 {
		return "", 0, false
	}
	v, err := strconv.Atoi(base[i+2:])
	if err != nil {
		return "", 0, false
	}
	return base[:i], v, true
}

// decodeDocument decodes doc with json.Number values, as Schema.Validate
// expects.
func decodeDocument(doc []byte) (interface{}, error) {
	d := json.NewDecoder(bytes.NewReader(doc))
	d.UseNumber()
	var v interface{}
	if err := d.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Match returns the largest schema version doc validates against.
func (r *schemaRegistry) Match(name string, doc []byte) (int, error) {
	versions := r.byName[name]
	if len(versions) == 0 {
		return 0, fmt.Errorf("no %s schema registered: %w", name, apperr.ErrSchemaMismatch)
	}
	v, err := decodeDocument(doc)
	if err != nil {
		return 0, fmt.Errorf("%s is not valid JSON: %v: %w", name, err, apperr.ErrBadInput)
	}
	var last error
	for _, vs := range versions {
		if err := vs.schema.Validate(v); err != nil {
			last = err
			continue
		}
		return vs.version, nil
	}
	return 0, fmt.Errorf("%s matches no schema version: %v: %w", name, last, apperr.ErrSchemaMismatch)
}

// Validate checks doc against one specific version.
func (r *schemaRegistry) Validate(name string, version int, doc []byte) error {
	for _, vs := range r.byName[name] {
		if vs.version != version {
			continue
		}
		v, err := decodeDocument(doc)
		if err != nil {
			return fmt.Errorf("%s is not valid JSON: %v: %w", name, err, apperr.ErrBadInput)
		}
		if err := vs.schema.Validate(v); err != nil {
			return fmt.Errorf("%s v%d: %v: %w", name, version, err, apperr.ErrSchemaMismatch)
		}
		return nil
	}
	return fmt.Errorf("unknown %s schema version %d: %w", name, version, apperr.ErrSchemaMismatch)
}

// SchemaVersions returns the registered versions of name, highest first.
func (s *Store) SchemaVersions(name string) []int {
	var out []int
	for _, vs := range s.schemas.byName[name] {
		out = append(out, vs.version)
	}
	return out
}
