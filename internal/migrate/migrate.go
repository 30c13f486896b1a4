package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

// ApplyDir applies every *.sql file in dir, in name order, that is not yet
// recorded in schema_migrations.
func ApplyDir(ctx context.Context, db *sql.DB, dir string) error {
	if dir == "" {
		dir = "./migrations"
	}
	return ApplyFS(ctx, db, os.DirFS(dir))
}

func ApplyFS(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return err
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if err := ensureSchemaMigrations(ctx, db); err != nil {
		return err
	}

	for _, name := range files {
		applied, err := isApplied(ctx, db, name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		b, err := fs.ReadFile(fsys, path.Clean(name))
		if err != nil {
			return err
		}

		// the driver runs one statement per Exec
		for i, stmt := range Statements(string(b)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %s statement %d failed: %w", name, i+1, err)
			}
		}

		if err := markApplied(ctx, db, name); err != nil {
			return err
		}
	}

	return nil
}

// Statements splits a migration file on semicolons that end a line and drops
// blank statements and "--" comment lines.
func Statements(src string) []string {
	var (
		out []string
		cur strings.Builder
	)

	flush := func() {
		s := strings.TrimSpace(cur.String())
		if s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") {
			continue
		}
		if strings.HasSuffix(trimmed, ";") {
			cur.WriteString(strings.TrimSuffix(trimmed, ";"))
			flush()
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
	}
	flush()

	return out
}

func ensureSchemaMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  name VARCHAR(255) NOT NULL,
  applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (name)
) ENGINE=InnoDB`)
	return err
}

func isApplied(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var v string
	err := db.QueryRowContext(ctx, `SELECT name FROM schema_migrations WHERE name = ?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func markApplied(ctx context.Context, db *sql.DB, name string) error {
	_, err := db.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES (?)`, name)
	return err
}
