package costing

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Stored snapshots and job files may predate fields added later. Missing values
// take the system defaults: DefaultCommonInputs for the tool parameters and
// DefaultComponent for each component.

// UnmarshalJSON decodes common inputs over the system defaults.
func (c *CommonInputs) UnmarshalJSON(data []byte) error {
	type plain CommonInputs
	p := plain(DefaultCommonInputs())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = CommonInputs(p)
	return nil
}

// UnmarshalYAML decodes common inputs over the system defaults.
func (c *CommonInputs) UnmarshalYAML(node *yaml.Node) error {
	type plain CommonInputs
	p := plain(DefaultCommonInputs())
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = CommonInputs(p)
	return nil
}

// legacyToolMaint carries the flat override keys written by the first history format.
type legacyToolMaint struct {
	Manual *bool    `json:"tool_maint_cost_is_manual"`
	Cost   *float64 `json:"tool_maint_cost"`
}

// UnmarshalJSON decodes component inputs over the component defaults and maps the
// legacy tool_maint_cost_is_manual/tool_maint_cost pair onto ToolMaintOverride.
func (c *ComponentInputs) UnmarshalJSON(data []byte) error {
	type plain ComponentInputs
	p := plain(DefaultComponent())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	if p.ToolMaintOverride == nil {
		var legacy legacyToolMaint
		if err := json.Unmarshal(data, &legacy); err != nil {
			return err
		}
		if legacy.Manual != nil && *legacy.Manual {
			o := &ToolMaintOverride{Enabled: true}
			if legacy.Cost != nil {
				o.Value = *legacy.Cost
			}
			p.ToolMaintOverride = o
		}
	}

	*c = ComponentInputs(p)
	return nil
}

// UnmarshalYAML decodes component inputs over the component defaults.
func (c *ComponentInputs) UnmarshalYAML(node *yaml.Node) error {
	type plain ComponentInputs
	p := plain(DefaultComponent())
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = ComponentInputs(p)
	return nil
}

// UnmarshalJSON accepts both the nested layout ({"input": {...}, ...derived}) and
// the flat layout of the first history format, where input and derived values
// share one object.
func (r *ComponentResult) UnmarshalJSON(data []byte) error {
	type plain ComponentResult
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var probe struct {
		Input json.RawMessage `json:"input"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Input == nil {
		if err := json.Unmarshal(data, &p.Input); err != nil {
			return err
		}
		if p.PressingCost == 0 {
			p.PressingCost = p.Input.PressingCost
		}
	}

	*r = ComponentResult(p)
	return nil
}

// UnmarshalJSON restores an estimate snapshot. Snapshots written before rates
// were stored recompute them from the common inputs; the component list is read
// from "components" or, for the first history format, "components_data".
func (e *Estimate) UnmarshalJSON(data []byte) error {
	var raw struct {
		Common         *CommonInputs     `json:"common_inputs"`
		Rates          *CommonRates      `json:"common_rates"`
		Components     []ComponentResult `json:"components"`
		ComponentsData []ComponentResult `json:"components_data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	common := DefaultCommonInputs()
	if raw.Common != nil {
		common = *raw.Common
	}

	out := Estimate{Common: common, Components: raw.Components}
	if out.Components == nil {
		out.Components = raw.ComponentsData
	}
	if out.Components == nil {
		out.Components = []ComponentResult{}
	}

	if raw.Rates != nil {
		out.Rates = *raw.Rates
	} else {
		out.Rates = ComputeCommonRates(common)
	}

	*e = out
	return nil
}
