package main

import (
	"math"
	"strconv"

	"github.com/Simplici0/stackcost/internal/costing"
	"github.com/Simplici0/stackcost/internal/yield"
)

const defaultTolerance = 1e-9

// matchesDefault compares with a relative tolerance so that values which went
// through a form round trip still count as untouched.
func matchesDefault(v, def float64) bool {
	if def == 0 {
		return math.Abs(v) <= defaultTolerance
	}
	return math.Abs(v-def) <= defaultTolerance*math.Abs(def)
}

// fieldView is one rendered numeric input.
type fieldView struct {
	Name      string
	Label     string
	Unit      string
	Value     string
	Step      string
	IsDefault bool
}

func formatInput(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func buildFields[T any](prefix string, specs []numField[T], current, defaults T) []fieldView {
	out := make([]fieldView, 0, len(specs))
	for _, f := range specs {
		step := "any"
		if f.integer {
			step = "1"
		}
		v := f.get(current)
		out = append(out, fieldView{
			Name:      prefix + f.name,
			Label:     f.label,
			Unit:      f.unit,
			Value:     formatInput(v),
			Step:      step,
			IsDefault: matchesDefault(v, f.get(defaults)),
		})
	}
	return out
}

func commonFields(in costing.CommonInputs) []fieldView {
	return buildFields("", commonFieldSpecs, in, costing.DefaultCommonInputs())
}

func componentFields(i int, c costing.ComponentInputs) []fieldView {
	return buildFields(componentPrefix(i), componentFieldSpecs, c, costing.DefaultComponent())
}

func yieldFields(in yield.Inputs) []fieldView {
	return buildFields("", yieldFieldSpecs, in, yield.DefaultInputs())
}

func yieldComponentFields(i int, c yield.Component) []fieldView {
	return buildFields(componentPrefix(i), yieldComponentFieldSpecs, c, yield.Component{PartsPerStroke: 1})
}

func slotFields(i, j int, s yield.Slot) []fieldView {
	return buildFields(slotPrefix(i, j), slotFieldSpecs, s, yield.Slot{CountPerPart: 1})
}
