package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

const (
	versionLayout = "20060102150405"

	markerUp        = "-- +goose Up"
	markerDown      = "-- +goose Down"
	markerStmtBegin = "-- +goose StatementBegin"
	markerStmtEnd   = "-- +goose StatementEnd"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

// migrationFile is one parsed <version>_<name>.sql entry.
type migrationFile struct {
	Version int64
	Name    string
	File    string
}

// ValidateDir checks the migrations in an on-disk directory.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS checks every .sql file at the root of fsys and reports all
// problems at once: bad filenames, repeated versions or names, missing or
// misordered goose sections and unbalanced statement blocks.
func ValidateFS(fsys fs.FS) error {
	files, errs := scan(fsys)
	for _, f := range files {
		body, err := fs.ReadFile(fsys, f.File)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read %q: %w", f.File, err))
			continue
		}
		errs = multierr.Append(errs, checkBody(f.File, string(body)))
	}
	return errs
}

// scan lists the migrations in version order. Invalid or duplicated entries
// are reported and left out of the result.
func scan(fsys fs.FS) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var (
		errs      error
		files     []migrationFile
		byVersion = map[int64]string{}
		byName    = map[string]string{}
	)
	for _, e := range entries {
		file := e.Name()
		if e.IsDir() || !strings.HasSuffix(file, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(file)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", file))
			continue
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		if prev, ok := byVersion[version]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, file))
			continue
		}
		if prev, ok := byName[m[2]]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration name %q in %q and %q", m[2], prev, file))
			continue
		}
		byVersion[version], byName[m[2]] = file, file
		files = append(files, migrationFile{Version: version, Name: m[2], File: file})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, errs
}

func checkBody(file, body string) error {
	up, down := strings.Index(body, markerUp), strings.Index(body, markerDown)
	var errs error
	if up < 0 {
		errs = multierr.Append(errs, fmt.Errorf("migration %q missing %q", file, markerUp))
	}
	if down < 0 {
		errs = multierr.Append(errs, fmt.Errorf("migration %q missing %q", file, markerDown))
	}
	if up >= 0 && down >= 0 && down < up {
		errs = multierr.Append(errs, fmt.Errorf("migration %q has its Down section before Up", file))
	}

	depth := 0
	for _, line := range strings.Split(body, "\n") {
		switch strings.TrimSpace(line) {
		case markerStmtBegin:
			depth++
		case markerStmtEnd:
			depth--
		}
		if depth < 0 || depth > 1 {
			break
		}
	}
	if depth != 0 {
		errs = multierr.Append(errs, fmt.Errorf("migration %q has unbalanced StatementBegin/StatementEnd", file))
	}
	return errs
}
