package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"

	"github.com/biblionet/biblionet-backend/pkg/config"
	"github.com/pressly/goose/v3"
)

// DefaultDir is the on-disk location of the SQL migrations, used by `create`.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source selects where migrations are read from. An empty Dir reads the files
// compiled into the binary.
type Source struct {
	Dir    string
	Driver string
}

func (s Source) dialect() string {
	if s.Driver == config.DriverSQLite {
		return "sqlite3"
	}
	return "postgres"
}

func (s Source) prepare() (string, error) {
	if err := goose.SetDialect(s.dialect()); err != nil {
		return "", fmt.Errorf("set goose dialect: %w", err)
	}
	if s.Dir != "" {
		goose.SetBaseFS(nil)
		return s.Dir, nil
	}
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		return "", fmt.Errorf("embedded migrations: %w", err)
	}
	goose.SetBaseFS(sub)
	return ".", nil
}

// Embedded exposes the compiled-in migration files.
func Embedded() fs.FS {
	sub, _ := fs.Sub(embedded, "migrations")
	return sub
}

func (s Source) files() fs.FS {
	if s.Dir != "" {
		return os.DirFS(s.Dir)
	}
	return Embedded()
}

// commands that apply migrations refuse to run over a broken set.
var applying = map[string]bool{"up": true, "up-by-one": true, "redo": true}

// Run executes a goose command (up, down, status, version, redo, reset).
func Run(ctx context.Context, db *sql.DB, src Source, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if applying[command] {
		if err := ValidateFS(src.files()); err != nil {
			return fmt.Errorf("refusing to %s: %w", command, err)
		}
	}
	dir, err := src.prepare()
	if err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until it sits at targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, src Source, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	if target != 0 {
		known, err := scan(src.files())
		if err != nil {
			return err
		}
		if !slices.ContainsFunc(known, func(f migrationFile) bool { return f.Version == target }) {
			return fmt.Errorf("no migration with version %d", target)
		}
	}

	dir, err := src.prepare()
	if err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}
