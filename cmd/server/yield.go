package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/stackcost/internal/history"
	"github.com/Simplici0/stackcost/internal/metrics"
	"github.com/Simplici0/stackcost/internal/yield"
)

type yieldSlotView struct {
	Index  int
	Name   string
	Fields []fieldView
}

type yieldComponentView struct {
	Index  int
	Name   string
	Fields []fieldView
	Slots  []yieldSlotView
	Result yield.ComponentResult
}

type yieldViewData struct {
	baseViewData
	Label      string
	Fields     []fieldView
	Components []yieldComponentView
	Result     yield.Result
	History    []historyItem
}

func (s *server) yieldView(r *http.Request, base baseViewData, calc yield.Calculation) yieldViewData {
	view := yieldViewData{
		baseViewData: base,
		Label:        calc.Inputs.Label,
		Fields:       yieldFields(calc.Inputs),
		Result:       calc.Result,
		History:      s.historyItems(r, history.CollectionYield),
	}

	for i, c := range calc.Inputs.Components {
		cv := yieldComponentView{
			Index:  i,
			Name:   c.Name,
			Fields: yieldComponentFields(i, c),
		}
		if i < len(calc.Result.Components) {
			cv.Result = calc.Result.Components[i]
		}
		for j, slot := range c.Slots {
			cv.Slots = append(cv.Slots, yieldSlotView{Index: j, Name: slot.Name, Fields: slotFields(i, j, slot)})
		}
		view.Components = append(view.Components, cv)
	}

	return view
}

func (s *server) handleYieldPage(w http.ResponseWriter, r *http.Request) {
	base := s.base(r)
	calc := yield.Calculate(yield.DefaultInputs())

	if id := r.URL.Query().Get("load"); id != "" {
		entry, ok := s.store.Get(r.Context(), history.CollectionYield, id)
		switch {
		case !ok:
			base.ErrorMessage = "History entry not found."
		default:
			loaded, err := history.Decode[yield.Calculation](entry)
			if err != nil {
				s.logger.Warn("yield snapshot unreadable", zap.String("id", id), zap.Error(err))
				base.ErrorMessage = "History entry could not be read."
				break
			}
			calc = loaded
			base.SuccessMessage = fmt.Sprintf("Loaded %q from history.", entry.Label)
		}
	}

	s.renderTemplate(w, http.StatusOK, "yield.html", s.yieldView(r, base, calc))
}

func (s *server) handleYieldSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	in, validationErr := parseYieldForm(r)
	action := r.FormValue("action")

	if action == "add-component" {
		in.Components = append(in.Components, yield.Component{
			Name:           fmt.Sprintf("Component %d", len(in.Components)+1),
			PartsPerStroke: 1,
			Slots:          []yield.Slot{},
		})
	} else if i, ok := indexedAction(action, "add-slot"); ok && i < len(in.Components) {
		c := &in.Components[i]
		c.Slots = append(c.Slots, yield.Slot{Name: fmt.Sprintf("Slot %d", len(c.Slots)+1), CountPerPart: 1})
	} else if i, ok := indexedAction(action, "remove-component"); ok && i < len(in.Components) {
		in.Components = append(in.Components[:i], in.Components[i+1:]...)
	} else if i, j, ok := pairAction(action, "remove-slot"); ok && i < len(in.Components) && j < len(in.Components[i].Slots) {
		c := &in.Components[i]
		c.Slots = append(c.Slots[:j], c.Slots[j+1:]...)
	}

	calc := yield.Calculate(in)
	metrics.RecordCalculation(metrics.KindYield)

	base := baseViewData{Authenticated: s.auth.isAuthenticated(r)}
	status := http.StatusOK
	switch {
	case validationErr != nil:
		base.ErrorMessage = validationErr.Error()
		status = http.StatusBadRequest
	case action == "save":
		label := in.Label
		if label == "" {
			label = fmt.Sprintf("Strip %sx%s mm", formatInput(in.PitchMm), formatInput(in.SheetWidthMm))
		}
		entry, err := s.store.Save(r.Context(), history.CollectionYield, label, calc)
		if err != nil {
			s.logger.Error("save yield history", zap.Error(err))
			base.ErrorMessage = "Could not save to history."
			status = http.StatusInternalServerError
		} else {
			base.SuccessMessage = fmt.Sprintf("Saved %q to history.", entry.Label)
		}
	}

	s.renderTemplate(w, status, "yield.html", s.yieldView(r, base, calc))
}

func (s *server) handleYieldHistoryDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), history.CollectionYield, id); err != nil {
		s.logger.Error("delete yield history", zap.String("id", id), zap.Error(err))
		http.Redirect(w, r, "/yield?error="+url.QueryEscape("Could not delete history entry."), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/yield?success="+url.QueryEscape("History entry deleted."), http.StatusSeeOther)
}
