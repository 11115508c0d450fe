package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var unsafeNameRe = regexp.MustCompile(`[^a-z0-9_]+`)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- Mirror table and index changes in pkg/migrate/sqlite.go so the test schema
-- keeps the same constraints.
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty goose migration named after name into
// dir and returns its path.
func CreateSQLMigration(dir string, name string) (string, error) {
	return createMigration(dir, name, time.Now().UTC())
}

// createMigration stamps the file with now, or one second past the newest
// existing migration when now would sort before it.
func createMigration(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := migrationSlug(name)
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	existing, err := listMigrations(os.DirFS(dir))
	if err != nil {
		return "", err
	}
	version, err := parseVersion(now.UTC().Format(versionLayout))
	if err != nil {
		return "", err
	}
	if n := len(existing); n > 0 && version <= existing[n-1].version {
		latest, _ := time.Parse(versionLayout, strconv.FormatInt(existing[n-1].version, 10))
		version, _ = parseVersion(latest.Add(time.Second).Format(versionLayout))
	}

	path := filepath.Join(dir, fmt.Sprintf("%d_%s.sql", version, slug))
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("migration already exists: %s", path)
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf(migrationTemplate, slug)), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}

func migrationSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = unsafeNameRe.ReplaceAllString(slug, "_")
	return strings.Trim(slug, "_")
}
