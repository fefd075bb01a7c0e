package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"land-review/internal/models"
)

// Actors used across handler and integration tests
var (
	Admin      = models.Actor{ID: "admin-1", Roles: []string{models.AdminRole}}
	SalesRev   = models.Actor{ID: "rev-sales", Roles: []string{string(models.RoleSales)}}
	AnalystRev = models.Actor{ID: "rev-analyst", Roles: []string{string(models.RoleAnalyst)}}
	Landowner  = models.Actor{ID: "owner-1", Roles: []string{"landowner"}}
)

// WriteRoleMap writes a role mapping file into a temp dir and returns its path
func WriteRoleMap(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rolemap.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write role mapping: %v", err)
	}
	return path
}

// Rating returns a pointer to v
func Rating(v int) *int {
	return &v
}
