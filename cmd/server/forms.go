package main

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/Simplici0/stackcost/internal/costing"
	"github.com/Simplici0/stackcost/internal/yield"
)

// numField describes one numeric form input bound to a field of T.
type numField[T any] struct {
	name    string
	label   string
	unit    string
	percent bool
	integer bool
	min     float64
	get     func(T) float64
	set     func(*T, float64)
}

var commonFieldSpecs = []numField[costing.CommonInputs]{
	{name: "yield_pct", label: "Yield", unit: "%", percent: true,
		get: func(c costing.CommonInputs) float64 { return c.YieldPct }, set: func(c *costing.CommonInputs, v float64) { c.YieldPct = v }},
	{name: "weight_per_stroke_g", label: "Weight per Stroke", unit: "g",
		get: func(c costing.CommonInputs) float64 { return c.WeightPerStrokeG }, set: func(c *costing.CommonInputs, v float64) { c.WeightPerStrokeG = v }},
	{name: "sheet_thickness", label: "Sheet Thickness", unit: "mm",
		get: func(c costing.CommonInputs) float64 { return c.SheetThicknessMm }, set: func(c *costing.CommonInputs, v float64) { c.SheetThicknessMm = v }},
	{name: "rm_rate", label: "Raw Material Rate", unit: "Rs/Kg",
		get: func(c costing.CommonInputs) float64 { return c.RMRate }, set: func(c *costing.CommonInputs, v float64) { c.RMRate = v }},
	{name: "scrap_rate", label: "Scrap Rate", unit: "Rs/Kg",
		get: func(c costing.CommonInputs) float64 { return c.ScrapRate }, set: func(c *costing.CommonInputs, v float64) { c.ScrapRate = v }},
	{name: "stroke_rate", label: "Stroke Rate", unit: "Rs/stroke",
		get: func(c costing.CommonInputs) float64 { return c.StrokeRate }, set: func(c *costing.CommonInputs, v float64) { c.StrokeRate = v }},
	{name: "packing_rate", label: "Packing Rate", unit: "Rs/Kg",
		get: func(c costing.CommonInputs) float64 { return c.PackingRate }, set: func(c *costing.CommonInputs, v float64) { c.PackingRate = v }},
	{name: "transport_rate", label: "Transport Rate", unit: "Rs/Kg",
		get: func(c costing.CommonInputs) float64 { return c.TransportRate }, set: func(c *costing.CommonInputs, v float64) { c.TransportRate = v }},
	{name: "inventory_pct", label: "Inventory", unit: "%",
		get: func(c costing.CommonInputs) float64 { return c.InventoryPct }, set: func(c *costing.CommonInputs, v float64) { c.InventoryPct = v }},
	{name: "rejection_pct", label: "Rejection", unit: "%",
		get: func(c costing.CommonInputs) float64 { return c.RejectionPct }, set: func(c *costing.CommonInputs, v float64) { c.RejectionPct = v }},
	{name: "overhead_pct", label: "Overhead", unit: "%",
		get: func(c costing.CommonInputs) float64 { return c.OverheadPct }, set: func(c *costing.CommonInputs, v float64) { c.OverheadPct = v }},
	{name: "profit_pct", label: "Profit", unit: "%",
		get: func(c costing.CommonInputs) float64 { return c.ProfitPct }, set: func(c *costing.CommonInputs, v float64) { c.ProfitPct = v }},
	{name: "tool_maint_rate", label: "Tool Maintenance Rate", unit: "Rs/lam",
		get: func(c costing.CommonInputs) float64 { return c.ToolMaintRate }, set: func(c *costing.CommonInputs, v float64) { c.ToolMaintRate = v }},
}

var componentFieldSpecs = []numField[costing.ComponentInputs]{
	{name: "stack_height", label: "Stack Height", unit: "mm",
		get: func(c costing.ComponentInputs) float64 { return c.StackHeightMm }, set: func(c *costing.ComponentInputs, v float64) { c.StackHeightMm = v }},
	{name: "single_lam_weight_g", label: "Single Lam Weight", unit: "g",
		get: func(c costing.ComponentInputs) float64 { return c.SingleLamWeightG }, set: func(c *costing.ComponentInputs, v float64) { c.SingleLamWeightG = v }},
	{name: "rivet_unit_cost", label: "Rivet Unit Cost", unit: "Rs",
		get: func(c costing.ComponentInputs) float64 { return c.RivetUnitCost }, set: func(c *costing.ComponentInputs, v float64) { c.RivetUnitCost = v }},
	{name: "rivet_count", label: "Rivets per Stack", unit: "Nos", integer: true,
		get: func(c costing.ComponentInputs) float64 { return float64(c.RivetCount) }, set: func(c *costing.ComponentInputs, v float64) { c.RivetCount = int(v) }},
	{name: "rivet_manpower_cost", label: "Riveting Manpower", unit: "Rs",
		get: func(c costing.ComponentInputs) float64 { return c.RivetManpowerCost }, set: func(c *costing.ComponentInputs, v float64) { c.RivetManpowerCost = v }},
	{name: "pressing_cost", label: "Pressing Cost", unit: "Rs",
		get: func(c costing.ComponentInputs) float64 { return c.PressingCost }, set: func(c *costing.ComponentInputs, v float64) { c.PressingCost = v }},
}

var yieldFieldSpecs = []numField[yield.Inputs]{
	{name: "pitch_mm", label: "Pitch", unit: "mm",
		get: func(in yield.Inputs) float64 { return in.PitchMm }, set: func(in *yield.Inputs, v float64) { in.PitchMm = v }},
	{name: "sheet_width_mm", label: "Sheet Width", unit: "mm",
		get: func(in yield.Inputs) float64 { return in.SheetWidthMm }, set: func(in *yield.Inputs, v float64) { in.SheetWidthMm = v }},
	{name: "sheet_thickness_mm", label: "Sheet Thickness", unit: "mm",
		get: func(in yield.Inputs) float64 { return in.SheetThicknessMm }, set: func(in *yield.Inputs, v float64) { in.SheetThicknessMm = v }},
	{name: "density_g_per_mm3", label: "Density", unit: "g/mm³",
		get: func(in yield.Inputs) float64 { return in.DensityGPerMm3 }, set: func(in *yield.Inputs, v float64) { in.DensityGPerMm3 = v }},
	{name: "yield_deduction_pct", label: "Yield Deduction", unit: "%", percent: true,
		get: func(in yield.Inputs) float64 { return in.YieldDeductionPct }, set: func(in *yield.Inputs, v float64) { in.YieldDeductionPct = v }},
}

var yieldComponentFieldSpecs = []numField[yield.Component]{
	{name: "outer_area_mm2", label: "Outer Area", unit: "mm²",
		get: func(c yield.Component) float64 { return c.OuterAreaMm2 }, set: func(c *yield.Component, v float64) { c.OuterAreaMm2 = v }},
	{name: "parts_per_stroke", label: "Parts per Stroke", unit: "Nos", integer: true, min: 1,
		get: func(c yield.Component) float64 { return float64(c.PartsPerStroke) }, set: func(c *yield.Component, v float64) { c.PartsPerStroke = int(v) }},
}

var slotFieldSpecs = []numField[yield.Slot]{
	{name: "area_mm2", label: "Slot Area", unit: "mm²",
		get: func(s yield.Slot) float64 { return s.AreaMm2 }, set: func(s *yield.Slot, v float64) { s.AreaMm2 = v }},
	{name: "count", label: "Count per Part", unit: "Nos", integer: true, min: 1,
		get: func(s yield.Slot) float64 { return float64(s.CountPerPart) }, set: func(s *yield.Slot, v float64) { s.CountPerPart = int(v) }},
}

// parse validates raw and stores it into target. On error target keeps its
// previous value, so a re-rendered form falls back to the prior input.
func (f numField[T]) parse(raw string, target *T) error {
	raw = strings.TrimSpace(raw)
	var (
		value float64
		err   error
	)
	switch {
	case f.percent:
		value, err = parsePercent(raw, f.label)
	case f.integer:
		value, err = parseCount(raw, f.label, f.min)
	default:
		value, err = parseNonNegativeFloat(raw, f.label)
	}
	if err != nil {
		return err
	}
	f.set(target, value)
	return nil
}

func parseFields[T any](r *http.Request, prefix string, specs []numField[T], target *T) error {
	var firstErr error
	for _, f := range specs {
		if err := f.parse(r.FormValue(prefix+f.name), target); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func parseFinite(raw, field string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%s must be a number", field)
	}
	return value, nil
}

func parseNonNegativeFloat(raw, field string) (float64, error) {
	value, err := parseFinite(raw, field)
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, fmt.Errorf("%s must be 0 or greater", field)
	}
	return value, nil
}

func parsePercent(raw, field string) (float64, error) {
	value, err := parseNonNegativeFloat(raw, field)
	if err != nil {
		return 0, err
	}
	if value > 100 {
		return 0, fmt.Errorf("%s must be between 0 and 100", field)
	}
	return value, nil
}

func parseCount(raw, field string, min float64) (float64, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", field)
	}
	if float64(value) < min {
		return 0, fmt.Errorf("%s must be at least %d", field, int(min))
	}
	return float64(value), nil
}

func componentPrefix(i int) string {
	return fmt.Sprintf("comp_%d_", i)
}

func slotPrefix(i, j int) string {
	return fmt.Sprintf("comp_%d_slot_%d_", i, j)
}

// formCount reads a hidden row counter, capped at maxRows.
func formCount(r *http.Request, field string) int {
	const maxRows = 50

	n, err := strconv.Atoi(r.FormValue(field))
	if err != nil || n < 0 {
		return 0
	}
	if n > maxRows {
		return maxRows
	}
	return n
}

// parseCostForm rebuilds the explicit input records from a cost form post.
// It always returns usable inputs; err carries the first validation message.
func parseCostForm(r *http.Request) (costing.CommonInputs, []costing.ComponentInputs, error) {
	common := costing.DefaultCommonInputs()
	if name := strings.TrimSpace(r.FormValue("tool_ref_name")); name != "" {
		common.ToolRefName = name
	}
	firstErr := parseFields(r, "", commonFieldSpecs, &common)

	n := formCount(r, "component_count")
	components := make([]costing.ComponentInputs, 0, n)
	for i := 0; i < n; i++ {
		prefix := componentPrefix(i)

		c := costing.DefaultComponent()
		c.Name = strings.TrimSpace(r.FormValue(prefix + "name"))
		if c.Name == "" {
			c.Name = fmt.Sprintf("Component %d", i+1)
		}
		if err := parseFields(r, prefix, componentFieldSpecs, &c); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", c.Name, err)
		}

		if r.FormValue(prefix+"tool_maint_manual") == "1" {
			value, err := parseNonNegativeFloat(strings.TrimSpace(r.FormValue(prefix+"tool_maint_value")), "Tool Maintenance")
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", c.Name, err)
			}
			c.ToolMaintOverride = &costing.ToolMaintOverride{Enabled: true, Value: value}
		}

		extraLabel := strings.TrimSpace(r.FormValue(prefix + "extra_label"))
		extraRaw := strings.TrimSpace(r.FormValue(prefix + "extra_value"))
		if extraLabel != "" || extraRaw != "" {
			value := 0.0
			if extraRaw != "" {
				v, err := parseNonNegativeFloat(extraRaw, "Extra Cost")
				if err != nil && firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", c.Name, err)
				}
				value = v
			}
			c.Extra = &costing.ExtraCost{Label: extraLabel, Value: value}
		}

		components = append(components, c)
	}

	return common, components, firstErr
}

// parseYieldForm rebuilds yield inputs from a yield form post.
func parseYieldForm(r *http.Request) (yield.Inputs, error) {
	in := yield.DefaultInputs()
	in.Label = strings.TrimSpace(r.FormValue("label"))
	firstErr := parseFields(r, "", yieldFieldSpecs, &in)

	n := formCount(r, "component_count")
	in.Components = make([]yield.Component, 0, n)
	for i := 0; i < n; i++ {
		prefix := componentPrefix(i)

		c := yield.Component{PartsPerStroke: 1, Slots: []yield.Slot{}}
		c.Name = strings.TrimSpace(r.FormValue(prefix + "name"))
		if c.Name == "" {
			c.Name = fmt.Sprintf("Component %d", i+1)
		}
		if err := parseFields(r, prefix, yieldComponentFieldSpecs, &c); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", c.Name, err)
		}

		slots := formCount(r, prefix+"slot_count")
		for j := 0; j < slots; j++ {
			sp := slotPrefix(i, j)
			s := yield.Slot{Name: strings.TrimSpace(r.FormValue(sp + "name")), CountPerPart: 1}
			if err := parseFields(r, sp, slotFieldSpecs, &s); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("%s slot %d: %w", c.Name, j+1, err)
			}
			c.Slots = append(c.Slots, s)
		}

		in.Components = append(in.Components, c)
	}

	return in, firstErr
}

// indexedAction splits actions such as "remove-2" into verb and index.
func indexedAction(action, verb string) (int, bool) {
	rest, ok := strings.CutPrefix(action, verb+"-")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// pairAction splits actions such as "remove-slot-1-3" into two indexes.
func pairAction(action, verb string) (int, int, bool) {
	rest, ok := strings.CutPrefix(action, verb+"-")
	if !ok {
		return 0, 0, false
	}
	a, b, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, 0, false
	}
	i, err := strconv.Atoi(a)
	if err != nil || i < 0 {
		return 0, 0, false
	}
	j, err := strconv.Atoi(b)
	if err != nil || j < 0 {
		return 0, 0, false
	}
	return i, j, true
}
