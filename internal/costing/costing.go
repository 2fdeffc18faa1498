package costing

import "math"

// CommonInputs represents the tool, strip and overhead parameters shared by every
// component stamped from the same strip stock.
type CommonInputs struct {
	ToolRefName      string  `json:"tool_ref_name" yaml:"tool_ref_name"`
	YieldPct         float64 `json:"yield_pct" yaml:"yield_pct"`
	WeightPerStrokeG float64 `json:"weight_per_stroke_g" yaml:"weight_per_stroke_g"`
	SheetThicknessMm float64 `json:"sheet_thickness" yaml:"sheet_thickness"`
	RMRate           float64 `json:"rm_rate" yaml:"rm_rate"`
	ScrapRate        float64 `json:"scrap_rate" yaml:"scrap_rate"`
	StrokeRate       float64 `json:"stroke_rate" yaml:"stroke_rate"`
	PackingRate      float64 `json:"packing_rate" yaml:"packing_rate"`
	TransportRate    float64 `json:"transport_rate" yaml:"transport_rate"`
	InventoryPct     float64 `json:"inventory_pct" yaml:"inventory_pct"`
	RejectionPct     float64 `json:"rejection_pct" yaml:"rejection_pct"`
	OverheadPct      float64 `json:"overhead_pct" yaml:"overhead_pct"`
	ProfitPct        float64 `json:"profit_pct" yaml:"profit_pct"`
	ToolMaintRate    float64 `json:"tool_maint_rate" yaml:"tool_maint_rate"`
}

// CommonRates contains the blended per-kilogram cost derived from CommonInputs.
// It is always recomputed in full; nothing updates it field by field.
type CommonRates struct {
	GrossWeightKg  float64 `json:"gross_weight"`
	ScrapWeightKg  float64 `json:"scrap_weight"`
	RMCost         float64 `json:"rm_cost"`
	ScrapRecovery  float64 `json:"scrap_recovery"`
	NRM            float64 `json:"nrm"`
	StrokesPerKg   int     `json:"strokes_per_kg"`
	ProcessCost    float64 `json:"process_cost"`
	InventoryCost  float64 `json:"inventory_cost"`
	RejectionCost  float64 `json:"rejection_cost"`
	OverheadCost   float64 `json:"overhead_cost"`
	ProfitCost     float64 `json:"profit_cost"`
	ToolMaintRate  float64 `json:"tool_maint_rate"`
	TotalCostPerKg float64 `json:"total_cost_per_kg"`
}

// ToolMaintOverride replaces the automatic tool maintenance cost with a fixed value.
type ToolMaintOverride struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Value   float64 `json:"value" yaml:"value"`
}

// ExtraCost is an optional labelled fee added to a stack's manufacturing cost.
type ExtraCost struct {
	Label string  `json:"label" yaml:"label"`
	Value float64 `json:"value" yaml:"value"`
}

// ComponentInputs represents the physical and process parameters of one stacked component.
type ComponentInputs struct {
	Name              string             `json:"name" yaml:"name"`
	StackHeightMm     float64            `json:"stack_height" yaml:"stack_height"`
	SingleLamWeightG  float64            `json:"single_lam_weight_g" yaml:"single_lam_weight_g"`
	RivetUnitCost     float64            `json:"rivet_unit_cost" yaml:"rivet_unit_cost"`
	RivetCount        int                `json:"rivet_count" yaml:"rivet_count"`
	RivetManpowerCost float64            `json:"rivet_manpower_cost" yaml:"rivet_manpower_cost"`
	PressingCost      float64            `json:"pressing_cost" yaml:"pressing_cost"`
	ToolMaintOverride *ToolMaintOverride `json:"tool_maint_override,omitempty" yaml:"tool_maint_override,omitempty"`
	Extra             *ExtraCost         `json:"extra_cost,omitempty" yaml:"extra_cost,omitempty"`
}

// ComponentResult contains every derived value of a component's landed cost.
type ComponentResult struct {
	Input            ComponentInputs `json:"input"`
	SheetThicknessMm float64         `json:"sheet_thickness"`
	LamsPerStack     float64         `json:"lams_per_stack"`
	StackWeightG     float64         `json:"stack_weight_g"`
	StackWeightKg    float64         `json:"stack_weight_kg"`
	BaseStackCost    float64         `json:"base_stack_cost"`
	RivetTotalCost   float64         `json:"rivet_total_cost"`
	PressingCost     float64         `json:"pressing_cost"`
	ToolMaintCost    float64         `json:"tool_maint_cost"`
	ToolMaintManual  bool            `json:"tool_maint_cost_is_manual"`
	ExtraCost        float64         `json:"extra_cost"`
	StackMfgCost     float64         `json:"stack_mfg_cost"`
	PackingCost      float64         `json:"packing_cost"`
	TransportCost    float64         `json:"transport_cost"`
	FinalStackCost   float64         `json:"final_stack_cost"`
}

// Estimate groups the common inputs, the rates derived from them and every
// component result. Reports and cost history consume it as a unit.
type Estimate struct {
	Common     CommonInputs      `json:"common_inputs"`
	Rates      CommonRates       `json:"common_rates"`
	Components []ComponentResult `json:"components"`
}

// ComputeCommonRates derives the blended manufacturing cost per kilogram.
// Zero or negative yield and stroke weight resolve the dependent values to 0,
// as do values too small for the derived quantities to be represented.
func ComputeCommonRates(in CommonInputs) CommonRates {
	var r CommonRates

	if in.YieldPct > 0 {
		// Subnormal yields underflow the divisor to zero.
		if gross := 1 / (in.YieldPct / 100.0); !math.IsInf(gross, 0) {
			r.GrossWeightKg = gross
			r.ScrapWeightKg = gross - 1
		}
	}
	r.RMCost = r.GrossWeightKg * in.RMRate
	r.ScrapRecovery = r.ScrapWeightKg * in.ScrapRate
	r.NRM = r.RMCost - r.ScrapRecovery

	// A partial stroke still costs a full press cycle.
	if in.WeightPerStrokeG > 0 {
		if strokes := math.Ceil(1000.0 / in.WeightPerStrokeG); strokes < float64(math.MaxInt) {
			r.StrokesPerKg = int(strokes)
		}
	}
	r.ProcessCost = float64(r.StrokesPerKg) * in.StrokeRate

	r.InventoryCost = r.NRM * (in.InventoryPct / 100.0)
	r.RejectionCost = r.NRM * (in.RejectionPct / 100.0)
	r.OverheadCost = r.ProcessCost * (in.OverheadPct / 100.0)
	r.ProfitCost = r.NRM * (in.ProfitPct / 100.0)
	r.ToolMaintRate = in.ToolMaintRate

	r.TotalCostPerKg = r.NRM +
		r.ProcessCost +
		r.InventoryCost +
		r.RejectionCost +
		r.OverheadCost +
		r.ProfitCost

	return r
}

// ComputeComponentCost derives one component's landed stack cost from the common rate.
// An enabled ToolMaintOverride is passed through unchanged; otherwise tool
// maintenance is LamsPerStack times rates.ToolMaintRate.
func ComputeComponentCost(rates CommonRates, sheetThicknessMm float64, in ComponentInputs, packingRate, transportRate float64) ComponentResult {
	res := ComponentResult{
		Input:            in,
		SheetThicknessMm: sheetThicknessMm,
		PressingCost:     in.PressingCost,
	}

	if sheetThicknessMm > 0 {
		res.LamsPerStack = in.StackHeightMm / sheetThicknessMm
	}
	res.StackWeightG = res.LamsPerStack * in.SingleLamWeightG
	res.StackWeightKg = res.StackWeightG / 1000.0
	res.BaseStackCost = res.StackWeightKg * rates.TotalCostPerKg

	res.RivetTotalCost = in.RivetUnitCost*float64(in.RivetCount) + in.RivetManpowerCost

	if in.ToolMaintOverride != nil && in.ToolMaintOverride.Enabled {
		res.ToolMaintCost = in.ToolMaintOverride.Value
		res.ToolMaintManual = true
	} else {
		res.ToolMaintCost = res.LamsPerStack * rates.ToolMaintRate
	}

	if in.Extra != nil {
		res.ExtraCost = in.Extra.Value
	}

	res.StackMfgCost = res.BaseStackCost +
		res.RivetTotalCost +
		res.PressingCost +
		res.ToolMaintCost +
		res.ExtraCost

	res.PackingCost = res.StackWeightKg * packingRate
	res.TransportCost = res.StackWeightKg * transportRate
	res.FinalStackCost = res.StackMfgCost + res.PackingCost + res.TransportCost

	return res
}

// Calculate runs the full pipeline: common rates once, then every component.
func Calculate(common CommonInputs, components []ComponentInputs) Estimate {
	rates := ComputeCommonRates(common)

	results := make([]ComponentResult, 0, len(components))
	for _, c := range components {
		results = append(results, ComputeComponentCost(rates, common.SheetThicknessMm, c, common.PackingRate, common.TransportRate))
	}

	return Estimate{
		Common:     common,
		Rates:      rates,
		Components: results,
	}
}

// Inputs returns the component inputs of an estimate in order, so a stored
// estimate can be edited and recalculated.
func (e Estimate) Inputs() []ComponentInputs {
	inputs := make([]ComponentInputs, 0, len(e.Components))
	for _, c := range e.Components {
		inputs = append(inputs, c.Input)
	}
	return inputs
}

// TotalLandedCost sums FinalStackCost over every component.
func (e Estimate) TotalLandedCost() float64 {
	total := 0.0
	for _, c := range e.Components {
		total += c.FinalStackCost
	}
	return total
}
