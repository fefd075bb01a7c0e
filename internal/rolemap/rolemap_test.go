package rolemap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"land-review/internal/models"
)

func TestDefaultMapping(t *testing.T) {
	m := Default()

	for _, role := range []models.ReviewRole{models.RoleSales, models.RoleAnalyst, models.RoleGovernance} {
		if !m.KnownRole(role) {
			t.Errorf("Expected built-in role %s", role)
		}
		if len(m.DocumentTypes(role)) == 0 {
			t.Errorf("Role %s should gate at least one document type", role)
		}
	}

	roles := m.RolesFor("title_deed")
	if len(roles) != 1 || roles[0] != models.RoleSales {
		t.Errorf("Expected title_deed to map to sales, got %v", roles)
	}
}

func TestParseRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "version: 1\n"},
		{"bad role name", "roles:\n  Sales Team: [title_deed]\n"},
		{"reserved admin", "roles:\n  admin: [title_deed]\n"},
		{"bad document type", "roles:\n  sales: [\"Title Deed\"]\n"},
		{"not yaml", "roles: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("Expected parse error")
			}
		})
	}
}

func TestSharedDocumentType(t *testing.T) {
	m, err := Parse([]byte("roles:\n  sales: [site_survey]\n  analyst: [site_survey, site_survey]\n"))
	if err != nil {
		t.Fatalf("Failed to parse mapping: %v", err)
	}

	roles := m.RolesFor("site_survey")
	if len(roles) != 2 || roles[0] != models.RoleAnalyst || roles[1] != models.RoleSales {
		t.Errorf("Expected [analyst sales], got %v", roles)
	}
	if got := m.DocumentTypes(models.RoleAnalyst); len(got) != 1 {
		t.Errorf("Duplicates should collapse, got %v", got)
	}
}

func TestRegistryReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	if err := os.WriteFile(path, []byte("roles:\n  sales: [title_deed]\n"), 0o600); err != nil {
		t.Fatalf("Failed to write mapping: %v", err)
	}

	reg, err := NewRegistry(path)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	if reg.Current().KnownRole(models.RoleAnalyst) {
		t.Fatal("analyst should not be known yet")
	}

	changed, err := reg.Reload()
	if err != nil || changed {
		t.Fatalf("Unchanged file should not reload, changed=%v err=%v", changed, err)
	}

	if err := os.WriteFile(path, []byte("roles:\n  sales: [title_deed]\n  analyst: [valuation_report]\n"), 0o600); err != nil {
		t.Fatalf("Failed to rewrite mapping: %v", err)
	}
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Failed to touch mapping: %v", err)
	}

	changed, err = reg.Reload()
	if err != nil || !changed {
		t.Fatalf("Expected reload, changed=%v err=%v", changed, err)
	}
	if !reg.Current().KnownRole(models.RoleAnalyst) {
		t.Error("analyst should be known after reload")
	}

	// a broken file keeps the previous mapping
	if err := os.WriteFile(path, []byte("roles: [\n"), 0o600); err != nil {
		t.Fatalf("Failed to write broken mapping: %v", err)
	}
	later := future.Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Failed to touch mapping: %v", err)
	}
	if _, err := reg.Reload(); err == nil {
		t.Error("Expected error for broken mapping")
	}
	if !reg.Current().KnownRole(models.RoleAnalyst) {
		t.Error("Broken reload must keep the previous mapping")
	}
}

func TestRegistryWithoutPathUsesDefaults(t *testing.T) {
	reg, err := NewRegistry("")
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	if !reg.Current().KnownRole(models.RoleGovernance) {
		t.Error("Expected built-in governance role")
	}
	if changed, err := reg.Reload(); changed || err != nil {
		t.Errorf("Reload without path should be a no-op, changed=%v err=%v", changed, err)
	}
}
