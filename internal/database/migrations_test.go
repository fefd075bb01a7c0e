package database

import (
	"strings"
	"testing"
	"testing/fstest"

	"land-review/migrations"
)

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_add_index.up.sql":       {Data: []byte("CREATE INDEX x ON t (a);")},
		"000001_initial_schema.up.sql":  {Data: []byte("CREATE TABLE t (a INT);")},
		"000001_initial_schema.down.sql": {Data: []byte("DROP TABLE t;")},
		"000003_only_down.down.sql":     {Data: []byte("SELECT 1;")},
		"README.md":                     {Data: []byte("ignored")},
	}

	got, err := ReadMigrations(fsys)
	if err != nil {
		t.Fatalf("Failed to read migrations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 migrations, got %d", len(got))
	}

	first := got[0]
	if first.Version != "000001" || first.Name != "initial_schema" || first.Title != "initial schema" {
		t.Errorf("Unexpected first migration: %+v", first)
	}
	if first.DownSQL != "DROP TABLE t;" {
		t.Errorf("Expected down SQL to be paired, got %q", first.DownSQL)
	}
	if first.Checksum != calculateChecksum("CREATE TABLE t (a INT);") {
		t.Error("Checksum should cover the up SQL")
	}
	if got[1].Version != "000002" {
		t.Errorf("Expected version order, got %s", got[1].Version)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := ReadMigrations(migrations.FS)
	if err != nil {
		t.Fatalf("Failed to read embedded migrations: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("Expected embedded migrations")
	}
	if !strings.Contains(got[0].UpSQL, "uq_review_documents_under_review") {
		t.Error("Schema must enforce a single document under review per slot")
	}
}

func TestCompareChecksums(t *testing.T) {
	list := []Migration{{Version: "000001", Title: "initial", Checksum: "abc"}}

	if err := compareChecksums(list, map[string]string{"000001": "abc"}); err != nil {
		t.Errorf("Matching checksums should pass, got %v", err)
	}
	if err := compareChecksums(list, map[string]string{}); err != nil {
		t.Errorf("Pending migrations should pass, got %v", err)
	}
	if err := compareChecksums(list, map[string]string{"000001": "def"}); err == nil {
		t.Error("Expected error for modified migration")
	}
}
