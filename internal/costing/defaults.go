package costing

// DefaultToolMaintRate is the tool maintenance cost charged per lamination when
// no rate is configured.
const DefaultToolMaintRate = 0.03

// DefaultCommonInputs returns the system defaults for the tool and strip parameters.
func DefaultCommonInputs() CommonInputs {
	return CommonInputs{
		ToolRefName:      "AL-102517A Combo",
		YieldPct:         31.97,
		WeightPerStrokeG: 25.0,
		SheetThicknessMm: 0.5,
		RMRate:           92.0,
		ScrapRate:        32.0,
		StrokeRate:       0.50,
		PackingRate:      2.0,
		TransportRate:    3.0,
		InventoryPct:     2.0,
		RejectionPct:     2.0,
		OverheadPct:      20.0,
		ProfitPct:        12.0,
		ToolMaintRate:    DefaultToolMaintRate,
	}
}

// DefaultComponent returns the system defaults for a component.
func DefaultComponent() ComponentInputs {
	return ComponentInputs{
		Name:              "Stator",
		StackHeightMm:     33.0,
		SingleLamWeightG:  13.14,
		RivetUnitCost:     0.25,
		RivetCount:        0,
		RivetManpowerCost: 0.7,
		PressingCost:      1.0,
	}
}

// CloneComponent builds a new component from a template record. Every physical
// and process field is copied; the name is replaced and the tool maintenance
// override and extra cost are left unset so the new component starts on the
// automatic rule.
func CloneComponent(template ComponentInputs, name string) ComponentInputs {
	c := template
	c.Name = name
	c.ToolMaintOverride = nil
	c.Extra = nil
	return c
}
