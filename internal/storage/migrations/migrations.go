// Package migrations embeds the SQL schema of both record backends and
// applies it through a version ledger, so a restart only runs new files.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed postgres/*.sql clickhouse/*.sql
var files embed.FS

// Dialect selects one backend's migration directory and statement rules.
type Dialect string

const (
	// Postgres files run as one multi-statement exec.
	Postgres Dialect = "postgres"
	// ClickHouse files are split on semicolons; the native protocol runs one statement per exec.
	ClickHouse Dialect = "clickhouse"
)

// Migration is one numbered schema file.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// Target is a database that keeps a ledger of applied migration versions.
type Target interface {
	// EnsureMigrationTable creates the ledger table if it is missing.
	EnsureMigrationTable(ctx context.Context) error
	// AppliedVersions lists versions already recorded in the ledger.
	AppliedVersions(ctx context.Context) (map[int]bool, error)
	// ApplyMigration runs m's statements and records m.Version.
	ApplyMigration(ctx context.Context, m Migration) error
}

// Load returns the embedded migrations for d, ordered by version.
func Load(d Dialect) ([]Migration, error) {
	return load(files, d)
}

// Apply runs every migration of d that target has not recorded yet and
// returns the versions it applied, in order.
func Apply(ctx context.Context, target Target, d Dialect) ([]int, error) {
	all, err := Load(d)
	if err != nil {
		return nil, err
	}
	if err := target.EnsureMigrationTable(ctx); err != nil {
		return nil, fmt.Errorf("%s: ensure migration table: %w", d, err)
	}
	done, err := target.AppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: read applied versions: %w", d, err)
	}

	var applied []int
	for _, m := range all {
		if done[m.Version] {
			continue
		}
		if err := target.ApplyMigration(ctx, m); err != nil {
			return applied, fmt.Errorf("%s: apply %s: %w", d, m.Name, err)
		}
		applied = append(applied, m.Version)
	}
	return applied, nil
}

func load(fsys fs.FS, d Dialect) ([]Migration, error) {
	dir := string(d)
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s migrations: %w", d, err)
	}

	seen := make(map[int]string)
	var out []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		version, err := parseVersion(name)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, name, version)
		}
		seen[version] = name

		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		stmts, err := statements(d, string(data))
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", name, err)
		}
		if len(stmts) == 0 {
			continue
		}
		out = append(out, Migration{Version: version, Name: name, Statements: stmts})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// parseVersion reads the numeric prefix of names like 001_phase_records.sql.
func parseVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("migration %s: name must start with <version>_", name)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("migration %s: invalid version %q", name, prefix)
	}
	return v, nil
}

func statements(d Dialect, sql string) ([]string, error) {
	switch d {
	case Postgres:
		if strings.TrimSpace(sql) == "" {
			return nil, nil
		}
		return []string{sql}, nil
	case ClickHouse:
		if err := validateNoSemicolonInStrings(sql); err != nil {
			return nil, err
		}
		return splitStatements(sql), nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", d)
	}
}

// splitStatements drops -- comment lines and splits on semicolons.
// Semicolons inside string literals or /* */ comments are not supported.
func splitStatements(input string) []string {
	var filtered []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		filtered = append(filtered, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(filtered, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects files the splitter would cut inside a literal.
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return fmt.Errorf("semicolon inside string literal at offset %d", i)
			}
		}
	}
	return nil
}
