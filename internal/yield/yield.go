// Package yield computes strip material utilisation for a set of stamped
// component shapes.
package yield

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Slot is a cut-out inside a component's outer profile.
type Slot struct {
	Name         string  `json:"name,omitempty" yaml:"name,omitempty"`
	AreaMm2      float64 `json:"area_mm2" yaml:"area_mm2"`
	CountPerPart int     `json:"count_per_part" yaml:"count_per_part"`
}

// Component is one shape produced from the strip on every stroke.
type Component struct {
	Name           string  `json:"name,omitempty" yaml:"name,omitempty"`
	OuterAreaMm2   float64 `json:"outer_area_mm2" yaml:"outer_area_mm2"`
	PartsPerStroke int     `json:"parts_per_stroke" yaml:"parts_per_stroke"`
	Slots          []Slot  `json:"slots" yaml:"slots"`
}

// Inputs holds the strip geometry and the components stamped from it.
type Inputs struct {
	Label             string      `json:"label,omitempty" yaml:"label,omitempty"`
	PitchMm           float64     `json:"pitch_mm" yaml:"pitch_mm"`
	SheetWidthMm      float64     `json:"sheet_width_mm" yaml:"sheet_width_mm"`
	SheetThicknessMm  float64     `json:"sheet_thickness_mm" yaml:"sheet_thickness_mm"`
	DensityGPerMm3    float64     `json:"density_g_per_mm3" yaml:"density_g_per_mm3"`
	YieldDeductionPct float64     `json:"yield_deduction_pct" yaml:"yield_deduction_pct"`
	Components        []Component `json:"components" yaml:"components"`
}

// ComponentResult contains the derived areas and weight of one component.
type ComponentResult struct {
	Name         string  `json:"name,omitempty"`
	NetAreaMm2   float64 `json:"net_area_mm2"`
	TotalAreaMm2 float64 `json:"total_area_mm2"`
	WeightG      float64 `json:"weight_g"`
}

// Result contains per-component and strip-level yield figures.
type Result struct {
	Components         []ComponentResult `json:"components"`
	TotalFinishAreaMm2 float64           `json:"total_finish_area_mm2"`
	StripAreaMm2       float64           `json:"strip_area_mm2"`
	GrossYieldPct      float64           `json:"gross_yield_pct"`
	NetYieldPct        float64           `json:"net_yield_pct"`
	GrossWeightG       float64           `json:"gross_weight_g"`
	NetWeightG         float64           `json:"net_weight_g"`
}

// Calculation is the inputs and result pair kept in yield history.
type Calculation struct {
	Inputs Inputs `json:"inputs"`
	Result Result `json:"result"`
}

// DefaultDensity is electrical steel in g/mm³.
const DefaultDensity = 0.00765

// DefaultInputs returns a single-component strip used to seed the yield form.
func DefaultInputs() Inputs {
	return Inputs{
		PitchMm:          100,
		SheetWidthMm:     120,
		SheetThicknessMm: 0.5,
		DensityGPerMm3:   DefaultDensity,
		Components: []Component{
			{Name: "Component 1", PartsPerStroke: 1, Slots: []Slot{}},
		},
	}
}

// Compute derives yield and weights. Net areas are not floored: slots that
// exceed the outer profile give a negative area, and that value flows into the
// totals and weights unchanged.
func Compute(in Inputs) Result {
	res := Result{Components: make([]ComponentResult, 0, len(in.Components))}

	for _, c := range in.Components {
		slotArea := 0.0
		for _, s := range c.Slots {
			slotArea += s.AreaMm2 * float64(s.CountPerPart)
		}

		net := c.OuterAreaMm2 - slotArea
		cr := ComponentResult{
			Name:         c.Name,
			NetAreaMm2:   net,
			TotalAreaMm2: net * float64(c.PartsPerStroke),
			WeightG:      net * in.SheetThicknessMm * in.DensityGPerMm3,
		}
		res.TotalFinishAreaMm2 += cr.TotalAreaMm2
		res.Components = append(res.Components, cr)
	}

	res.StripAreaMm2 = in.PitchMm * in.SheetWidthMm
	if in.PitchMm > 0 && in.SheetWidthMm > 0 {
		res.GrossYieldPct = res.TotalFinishAreaMm2 / res.StripAreaMm2 * 100
	}
	res.NetYieldPct = res.GrossYieldPct - in.YieldDeductionPct
	res.GrossWeightG = res.StripAreaMm2 * in.SheetThicknessMm * in.DensityGPerMm3
	res.NetWeightG = res.TotalFinishAreaMm2 * in.SheetThicknessMm * in.DensityGPerMm3

	return res
}

// Calculate pairs the inputs with their computed result.
func Calculate(in Inputs) Calculation {
	return Calculation{Inputs: in, Result: Compute(in)}
}

// UnmarshalJSON defaults parts_per_stroke to 1 for snapshots that omit it.
func (c *Component) UnmarshalJSON(data []byte) error {
	type plain Component
	p := plain{PartsPerStroke: 1}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Slots == nil {
		p.Slots = []Slot{}
	}
	*c = Component(p)
	return nil
}

// UnmarshalJSON defaults count_per_part to 1 for snapshots that omit it.
func (s *Slot) UnmarshalJSON(data []byte) error {
	type plain Slot
	p := plain{CountPerPart: 1}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Slot(p)
	return nil
}

// UnmarshalYAML applies the same defaults as UnmarshalJSON for strip job files.
func (c *Component) UnmarshalYAML(node *yaml.Node) error {
	type plain Component
	p := plain{PartsPerStroke: 1}
	if err := node.Decode(&p); err != nil {
		return err
	}
	if p.Slots == nil {
		p.Slots = []Slot{}
	}
	*c = Component(p)
	return nil
}

// UnmarshalYAML defaults count_per_part to 1.
func (s *Slot) UnmarshalYAML(node *yaml.Node) error {
	type plain Slot
	p := plain{CountPerPart: 1}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = Slot(p)
	return nil
}
