package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafeNameRe = regexp.MustCompile(`[^a-z0-9]+`)

const sqlTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes a goose skeleton to dir and returns its path.
// The version is now in UTC, pushed one second past the newest existing
// migration when the clock would otherwise sort it earlier. A name that is
// already taken is refused.
func CreateSQLMigration(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	existing, err := scan(os.DirFS(dir))
	if err != nil {
		return "", fmt.Errorf("existing migrations: %w", err)
	}
	stamp := now.UTC().Truncate(time.Second)
	for _, f := range existing {
		if f.Name == slug {
			return "", fmt.Errorf("migration %q already exists as %s", slug, f.File)
		}
	}
	if n := len(existing); n > 0 {
		latest, err := time.Parse(versionLayout, fmt.Sprint(existing[n-1].Version))
		if err == nil && !stamp.After(latest) {
			stamp = latest.Add(time.Second)
		}
	}

	path := filepath.Join(dir, stamp.Format(versionLayout)+"_"+slug+".sql")
	if err := os.WriteFile(path, []byte(fmt.Sprintf(sqlTemplate, slug)), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}

func slugify(name string) string {
	slug := unsafeNameRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	return strings.Trim(slug, "_")
}
