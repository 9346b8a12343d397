package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "postgres", PostgresURL: "postgres://x"})
	if err != nil || cfg.Type != PostgresBackend || cfg.PostgresURL != "postgres://x" {
		t.Fatalf("unexpected config %+v %v", cfg, err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr string
	}{
		{Config{Type: MemoryBackend}, ""},
		{Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, ""},
		{Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{Config{Type: PostgresBackend}, "Postgres URL is required"},
		{Config{Type: "redis"}, "invalid backend type"},
	}
	for _, tt := range tests {
		err := tt.cfg.Validate()
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tt.cfg.Type, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("%s: error %v, want %q", tt.cfg.Type, err, tt.wantErr)
		}
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "db", "fintrack.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer res.Cleanup()

			if err := res.Store.Ping(ctx); err != nil {
				t.Fatal(err)
			}
			tx := core.Transaction{
				OwnerID: "u1",
				Name:    "Coffee",
				Amount:  core.Money{Cents: 350},
				Type:    core.Expense,
				Tag:     "Food",
				Date:    core.NewDate(2024, 1, 2),
			}
			if _, err := res.Store.Create(ctx, tx); err != nil {
				t.Fatal(err)
			}
			owners, err := res.Store.Owners(ctx)
			if err != nil || len(owners) != 1 || owners[0] != "u1" {
				t.Fatalf("owners %v %v", owners, err)
			}
		})
	}

	if _, err := f.CreateBackend(ctx, Config{Type: PostgresBackend}); err == nil {
		t.Fatal("expected validation error")
	}
}
