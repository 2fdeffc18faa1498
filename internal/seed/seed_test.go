package seed

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/Simplici0/stackcost/internal/costing"
	"github.com/Simplici0/stackcost/internal/db"
	"github.com/Simplici0/stackcost/internal/migrations"
)

func openMigrated(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "seed-test.db"), nil)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func TestRunIsIdempotent(t *testing.T) {
	database := openMigrated(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		stats, err := Run(ctx, database, DefaultTemplates())
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != 2 {
				t.Fatalf("expected 2 inserts in first run, got %d", stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 || stats.Updates != 0 {
			t.Fatalf("expected no changes in iteration %d, got %+v", i, stats)
		}
	}

	templates, err := Templates(ctx, database)
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(templates))
	}
	if templates[0].Name != "Stator" || templates[1].Name != "Rotor" {
		t.Fatalf("unexpected template order: %q, %q", templates[0].Name, templates[1].Name)
	}
	if templates[0].StackHeightMm != 33 || templates[0].SingleLamWeightG != 13.14 {
		t.Fatalf("unexpected stator template: %+v", templates[0])
	}
}

func TestRunUpdatesChangedTemplate(t *testing.T) {
	database := openMigrated(t)
	ctx := context.Background()

	if _, err := Run(ctx, database, DefaultTemplates()); err != nil {
		t.Fatalf("first seed: %v", err)
	}

	changed := DefaultTemplates()
	changed[1].StackHeightMm = 40
	changed[1].ToolMaintOverride = &costing.ToolMaintOverride{Enabled: true, Value: 2}

	stats, err := Run(ctx, database, changed)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if stats.Inserts != 0 || stats.Updates != 1 {
		t.Fatalf("expected 1 update, got %+v", stats)
	}

	templates, err := Templates(ctx, database)
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	if templates[1].StackHeightMm != 40 {
		t.Fatalf("expected updated stack height, got %v", templates[1].StackHeightMm)
	}
}

func TestLoadTemplates(t *testing.T) {
	dir := t.TempDir()

	got, err := LoadTemplates(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatalf("load absent file: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected default templates, got %d", len(got))
	}

	path := filepath.Join(dir, "components.yaml")
	content := []byte(`
components:
  - name: Stator 90
    stack_height: 45
  - name: Rotor 90
    rivet_count: 4
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write templates: %v", err)
	}

	got, err = LoadTemplates(path)
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(got))
	}
	if got[0].StackHeightMm != 45 || got[0].SingleLamWeightG != 13.14 {
		t.Fatalf("expected defaults to fill missing keys, got %+v", got[0])
	}
	if got[1].RivetCount != 4 || got[1].StackHeightMm != 33 {
		t.Fatalf("unexpected rotor template: %+v", got[1])
	}

	if err := os.WriteFile(path, []byte("components:\n  - stack_height: 10\n  - stack_height: 12\n"), 0o600); err != nil {
		t.Fatalf("write templates: %v", err)
	}
	if _, err := LoadTemplates(path); err == nil {
		t.Fatalf("expected error for duplicate default-named templates")
	}
}
