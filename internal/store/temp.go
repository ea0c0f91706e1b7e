package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

// tempChunk bounds the bind parameters of one temp table insert.
const tempChunk = 500

// tempName returns a table name unique to this call.
func tempName(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// createTempIDs materializes ids as a temp table on the connection owning tx.
// The returned drop func removes it.
func createTempIDs(ctx context.Context, tx *sql.Tx, ids []int64) (string, func(), error) {
	name := tempName("tmp_ids")
	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE `+name+` (id BIGINT)`); err != nil {
		return "", nil, classify(fmt.Errorf("create temp table: %w", err))
	}
	drop := func() { tx.ExecContext(context.Background(), `DROP TABLE IF EXISTS `+name) }
	for lo := 0; lo < len(ids); lo += tempChunk {
		hi := min(lo+tempChunk, len(ids))
		args := make([]any, 0, hi-lo)
		for _, id := range ids[lo:hi] {
			args = append(args, id)
		}
		stmt := `INSERT INTO ` + name + ` VALUES ` + placeholders(hi-lo, "(?)")
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			drop()
			return "", nil, classify(fmt.Errorf("fill temp table: %w", err))
		}
	}
	return name, drop, nil
}

// createTempVCFKeys materializes VCF record keys as a temp table.
func createTempVCFKeys(ctx context.Context, tx *sql.Tx, keys []model.VCFKey) (string, func(), error) {
	name := tempName("tmp_keys")
	if _, err := tx.ExecContext(ctx,
		`CREATE TEMP TABLE `+name+` (chromosome VARCHAR, vcf_pos BIGINT, vcf_ref VARCHAR, vcf_alt VARCHAR)`); err != nil {
		return "", nil, classify(fmt.Errorf("create temp table: %w", err))
	}
	drop := func() { tx.ExecContext(context.Background(), `DROP TABLE IF EXISTS `+name) }
	for lo := 0; lo < len(keys); lo += tempChunk {
		hi := min(lo+tempChunk, len(keys))
		args := make([]any, 0, 4*(hi-lo))
		for _, k := range keys[lo:hi] {
			args = append(args, k.Chromosome, k.Pos, k.Ref, k.Alt)
		}
		stmt := `INSERT INTO ` + name + ` VALUES ` + placeholders(hi-lo, "(?, ?, ?, ?)")
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			drop()
			return "", nil, classify(fmt.Errorf("fill temp table: %w", err))
		}
	}
	return name, drop, nil
}

func placeholders(n int, tuple string) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	return b.String()
}
