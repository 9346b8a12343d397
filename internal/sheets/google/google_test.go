package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func TestNewMissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	logger := log.Discard()

	if _, err := credentials(Config{}, logger); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}

	b, err := credentials(Config{CredentialsJSON: ` {"type":"service_account"} `}, logger)
	if err != nil || string(b) != `{"type":"service_account"}` {
		t.Fatalf("inline: %q %v", b, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	b, err = credentials(Config{}, logger)
	if err != nil || string(b) != `{"from":"file"}` {
		t.Fatalf("fallback file: %q %v", b, err)
	}

	if _, err := credentials(Config{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")}, logger); err == nil {
		t.Fatal("expected read error")
	}
}

func TestAppendWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheet: "Savings", logger: log.Discard()}

	if _, err := c.AppendSnapshot(context.Background(), core.MonthlySavings{OwnerID: "u1", Year: 2024, Month: 13}); err == nil {
		t.Fatal("expected validation error")
	}
	rec := core.MonthlySavings{OwnerID: "u1", Year: 2024, Month: 3}
	if _, err := c.AppendSnapshot(context.Background(), rec); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected uninitialized error, got %v", err)
	}
}
