package vault

import (
	"context"
	"testing"

	"land-review/internal/testutil"
)

func TestStringField(t *testing.T) {
	data := map[string]interface{}{
		"jwt_secret": "s3cret",
		"empty":      "",
		"number":     42,
	}

	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"jwt_secret", "s3cret", false},
		{"empty", "", true},
		{"number", "", true},
		{"missing", "", true},
	}
	for _, tt := range tests {
		got, err := stringField(data, "land-review/auth", tt.key)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("stringField(%q) = %q, %v", tt.key, got, err)
		}
	}
}

func TestClientAgainstVault(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	tc := testutil.SetupVault(t)
	ctx := context.Background()

	client, err := NewClient(&Config{Address: tc.VaultAddr, Token: tc.VaultToken})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if err := client.Health(ctx); err != nil {
		t.Fatalf("Expected healthy vault: %v", err)
	}

	if err := client.StoreSecret(ctx, "land-review/auth", map[string]interface{}{"jwt_secret": "from-vault"}); err != nil {
		t.Fatalf("Failed to store secret: %v", err)
	}

	secret, err := client.GetString(ctx, "land-review/auth", "jwt_secret")
	if err != nil {
		t.Fatalf("Failed to read secret: %v", err)
	}
	if secret != "from-vault" {
		t.Errorf("Expected from-vault, got %q", secret)
	}

	if _, err := client.GetSecret(ctx, "land-review/missing"); err == nil {
		t.Error("Expected error for missing secret")
	}
}
