package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"land-review/internal/testutil"
)

func TestObjectKey(t *testing.T) {
	key := objectKey("project-1", "Title Deed.PDF")
	if !strings.HasPrefix(key, "projects/project-1/") {
		t.Errorf("Unexpected prefix in %q", key)
	}
	if !strings.HasSuffix(key, ".pdf") {
		t.Errorf("Expected lower-cased extension, got %q", key)
	}
	if objectKey("p", "a.pdf") == objectKey("p", "a.pdf") {
		t.Error("Keys must be unique per upload")
	}
}

func TestObjectKeySanitizesProject(t *testing.T) {
	tests := map[string]string{
		"../../etc": "projects/.._.._etc/",
		"a/b":       "projects/a_b/",
		"..":        "projects/_/",
		"":          "projects/_/",
	}
	for projectID, prefix := range tests {
		if key := objectKey(projectID, `C:\docs\scan.png`); !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, ".png") {
			t.Errorf("objectKey(%q) = %q, want prefix %q", projectID, key, prefix)
		}
	}
}

func TestParseRef(t *testing.T) {
	bucket, key, err := ParseRef("s3://documents/projects/p1/x.pdf")
	if err != nil {
		t.Fatalf("Failed to parse ref: %v", err)
	}
	if bucket != "documents" || key != "projects/p1/x.pdf" {
		t.Errorf("Unexpected split %s / %s", bucket, key)
	}

	for _, ref := range []string{"", "documents/x", "s3://", "s3://bucket", "s3:///key"} {
		if _, _, err := ParseRef(ref); !errors.Is(err, ErrInvalidRef) {
			t.Errorf("ParseRef(%q) should fail, got %v", ref, err)
		}
	}
}

func TestMinioStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	tc := testutil.SetupMinio(t)
	ctx := context.Background()

	store, err := NewMinioStore(Config{
		Endpoint:  tc.MinioEndpoint,
		AccessKey: tc.MinioAccessKey,
		SecretKey: tc.MinioSecretKey,
		Bucket:    "review-documents",
	})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("Failed to create bucket: %v", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket should be idempotent: %v", err)
	}

	payload := "deed contents"
	ref, err := store.Put(ctx, "p1", "deed.pdf", strings.NewReader(payload), int64(len(payload)), "application/pdf")
	if err != nil {
		t.Fatalf("Failed to put: %v", err)
	}

	rc, err := store.Open(ctx, ref)
	if err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if string(got) != payload {
		t.Errorf("Expected %q, got %q", payload, got)
	}

	if err := store.Health(ctx); err != nil {
		t.Errorf("Expected healthy store: %v", err)
	}
}
