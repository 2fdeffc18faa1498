package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Simplici0/stackcost/internal/costing"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

type templatesFile struct {
	Components []costing.ComponentInputs `yaml:"components"`
}

// DefaultTemplates is used when no templates file exists.
func DefaultTemplates() []costing.ComponentInputs {
	stator := costing.DefaultComponent()
	return []costing.ComponentInputs{stator, costing.CloneComponent(stator, "Rotor")}
}

// LoadTemplates reads component templates from a YAML file. Keys missing from
// an entry take the component defaults, including the name. A missing file
// yields DefaultTemplates.
func LoadTemplates(path string) ([]costing.ComponentInputs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultTemplates(), nil
		}
		return nil, fmt.Errorf("read templates file: %w", err)
	}

	var f templatesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse templates file %s: %w", path, err)
	}
	seen := make(map[string]bool, len(f.Components))
	for _, c := range f.Components {
		if seen[c.Name] {
			return nil, fmt.Errorf("parse templates file %s: duplicate template %q", path, c.Name)
		}
		seen[c.Name] = true
	}
	return f.Components, nil
}

// Run upserts templates by name in an idempotent way.
func Run(ctx context.Context, db *sql.DB, templates []costing.ComponentInputs) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	for _, tmpl := range templates {
		if err := ensureTemplate(ctx, tx, tmpl, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureTemplate(ctx context.Context, tx *sql.Tx, c costing.ComponentInputs, stats *Stats) error {
	var current costing.ComponentInputs
	err := tx.QueryRowContext(ctx, `
		SELECT name, stack_height, single_lam_weight_g, rivet_unit_cost, rivet_count, rivet_manpower_cost, pressing_cost
		FROM component_templates
		WHERE name = ?
	`, c.Name).Scan(
		&current.Name,
		&current.StackHeightMm,
		&current.SingleLamWeightG,
		&current.RivetUnitCost,
		&current.RivetCount,
		&current.RivetManpowerCost,
		&current.PressingCost,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO component_templates (
				name,
				stack_height,
				single_lam_weight_g,
				rivet_unit_cost,
				rivet_count,
				rivet_manpower_cost,
				pressing_cost
			)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.Name, c.StackHeightMm, c.SingleLamWeightG, c.RivetUnitCost, c.RivetCount, c.RivetManpowerCost, c.PressingCost); err != nil {
			return fmt.Errorf("insert template %q: %w", c.Name, err)
		}
		stats.Inserts++
		return nil
	case err != nil:
		return fmt.Errorf("check template %q existence: %w", c.Name, err)
	}

	if current == stripOptional(c) {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE component_templates
		SET stack_height = ?,
			single_lam_weight_g = ?,
			rivet_unit_cost = ?,
			rivet_count = ?,
			rivet_manpower_cost = ?,
			pressing_cost = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, c.StackHeightMm, c.SingleLamWeightG, c.RivetUnitCost, c.RivetCount, c.RivetManpowerCost, c.PressingCost, c.Name); err != nil {
		return fmt.Errorf("update template %q: %w", c.Name, err)
	}
	stats.Updates++
	return nil
}

// Templates lists the seeded templates in insertion order.
func Templates(ctx context.Context, db *sql.DB) ([]costing.ComponentInputs, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name, stack_height, single_lam_weight_g, rivet_unit_cost, rivet_count, rivet_manpower_cost, pressing_cost
		FROM component_templates
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	out := []costing.ComponentInputs{}
	for rows.Next() {
		var c costing.ComponentInputs
		if err := rows.Scan(
			&c.Name,
			&c.StackHeightMm,
			&c.SingleLamWeightG,
			&c.RivetUnitCost,
			&c.RivetCount,
			&c.RivetManpowerCost,
			&c.PressingCost,
		); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return out, nil
}

// stripOptional drops the fields templates do not store.
func stripOptional(c costing.ComponentInputs) costing.ComponentInputs {
	c.ToolMaintOverride = nil
	c.Extra = nil
	return c
}
