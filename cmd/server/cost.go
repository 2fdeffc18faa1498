package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/stackcost/internal/costing"
	"github.com/Simplici0/stackcost/internal/history"
	"github.com/Simplici0/stackcost/internal/metrics"
	"github.com/Simplici0/stackcost/internal/report"
)

type costComponentView struct {
	Index       int
	Name        string
	NameDefault bool
	Fields      []fieldView
	ManualMaint bool
	ManualValue string
	ExtraLabel  string
	ExtraValue  string
	Result      costing.ComponentResult
}

type costViewData struct {
	baseViewData
	ToolRefName        string
	ToolRefNameDefault bool
	Common             []fieldView
	Rates              costing.CommonRates
	Components         []costComponentView
	TotalLanded        float64
	Templates          []string
	History            []historyItem
	LoadedID           string
}

func (s *server) defaultTemplate() costing.ComponentInputs {
	if len(s.templates) > 0 {
		return s.templates[0]
	}
	return costing.DefaultComponent()
}

func (s *server) defaultEstimate() costing.Estimate {
	return costing.Calculate(costing.DefaultCommonInputs(), []costing.ComponentInputs{s.defaultTemplate()})
}

func (s *server) costView(r *http.Request, base baseViewData, est costing.Estimate) costViewData {
	defaults := costing.DefaultCommonInputs()
	view := costViewData{
		baseViewData:       base,
		ToolRefName:        est.Common.ToolRefName,
		ToolRefNameDefault: est.Common.ToolRefName == defaults.ToolRefName,
		Common:             commonFields(est.Common),
		Rates:              est.Rates,
		TotalLanded:        est.TotalLandedCost(),
		History:            s.historyItems(r, history.CollectionCost),
	}

	for _, t := range s.templates {
		view.Templates = append(view.Templates, t.Name)
	}

	for i, c := range est.Components {
		cv := costComponentView{
			Index:       i,
			Name:        c.Input.Name,
			NameDefault: i == 0 && c.Input.Name == costing.DefaultComponent().Name,
			Fields:      componentFields(i, c.Input),
			Result:      c,
		}
		if o := c.Input.ToolMaintOverride; o != nil && o.Enabled {
			cv.ManualMaint = true
			cv.ManualValue = formatInput(o.Value)
		} else {
			cv.ManualValue = formatInput(c.ToolMaintCost)
		}
		if e := c.Input.Extra; e != nil {
			cv.ExtraLabel = e.Label
			cv.ExtraValue = formatInput(e.Value)
		}
		view.Components = append(view.Components, cv)
	}

	return view
}

// handleCostPage shows the default estimate, or a stored snapshot exactly as
// it was saved when ?load=<id> is given.
func (s *server) handleCostPage(w http.ResponseWriter, r *http.Request) {
	base := s.base(r)
	est := s.defaultEstimate()

	loadedID := ""
	if id := r.URL.Query().Get("load"); id != "" {
		if loaded, ok := s.loadEstimate(r, id, &base); ok {
			est, loadedID = loaded, id
		}
	}

	view := s.costView(r, base, est)
	view.LoadedID = loadedID
	s.renderTemplate(w, http.StatusOK, "cost.html", view)
}

func (s *server) loadEstimate(r *http.Request, id string, base *baseViewData) (costing.Estimate, bool) {
	entry, ok := s.store.Get(r.Context(), history.CollectionCost, id)
	if !ok {
		base.ErrorMessage = "History entry not found."
		return costing.Estimate{}, false
	}

	est, err := history.Decode[costing.Estimate](entry)
	if err != nil {
		s.logger.Warn("cost snapshot unreadable", zap.String("id", id), zap.Error(err))
		base.ErrorMessage = "History entry could not be read."
		return costing.Estimate{}, false
	}

	base.SuccessMessage = fmt.Sprintf("Loaded %q from history.", entry.Label)
	return est, true
}

func (s *server) handleCostSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	common, components, validationErr := parseCostForm(r)
	action := r.FormValue("action")

	switch {
	case action == "add":
		tmpl := s.defaultTemplate()
		if len(components) > 0 {
			tmpl = components[0]
		}
		components = append(components, costing.CloneComponent(tmpl, fmt.Sprintf("Component %d", len(components)+1)))
	case action == "add-template":
		name := r.FormValue("template")
		for _, t := range s.templates {
			if t.Name == name {
				components = append(components, costing.CloneComponent(t, t.Name))
				break
			}
		}
	default:
		if i, ok := indexedAction(action, "remove"); ok && i < len(components) && len(components) > 1 {
			components = append(components[:i], components[i+1:]...)
		}
	}

	est := costing.Calculate(common, components)
	metrics.RecordCalculation(metrics.KindCost)

	base := baseViewData{Authenticated: true}
	status := http.StatusOK
	switch {
	case validationErr != nil:
		base.ErrorMessage = validationErr.Error()
		status = http.StatusBadRequest
	case action == "save":
		entry, err := s.store.Save(r.Context(), history.CollectionCost, est.Common.ToolRefName, est)
		if err != nil {
			s.logger.Error("save cost history", zap.Error(err))
			base.ErrorMessage = "Could not save to history."
			status = http.StatusInternalServerError
		} else {
			base.SuccessMessage = fmt.Sprintf("Saved %q to history.", entry.Label)
		}
	}

	s.renderTemplate(w, status, "cost.html", s.costView(r, base, est))
}

func (s *server) handleCostHistoryDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), history.CollectionCost, id); err != nil {
		s.logger.Error("delete cost history", zap.String("id", id), zap.Error(err))
		http.Redirect(w, r, "/cost?error="+url.QueryEscape("Could not delete history entry."), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/cost?success="+url.QueryEscape("History entry deleted."), http.StatusSeeOther)
}

func (s *server) handleCostReport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	common, components, validationErr := parseCostForm(r)
	if validationErr != nil {
		http.Error(w, validationErr.Error(), http.StatusBadRequest)
		return
	}

	est := costing.Calculate(common, components)
	metrics.RecordCalculation(metrics.KindCost)
	s.writeReport(w, r, chi.URLParam(r, "variant"), est)
}

// handleCostHistoryReport renders a stored snapshot without recalculating it.
func (s *server) handleCostHistoryReport(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.store.Get(r.Context(), history.CollectionCost, chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	est, err := history.Decode[costing.Estimate](entry)
	if err != nil {
		s.logger.Warn("cost snapshot unreadable", zap.String("id", entry.ID), zap.Error(err))
		http.Error(w, "history entry could not be read", http.StatusUnprocessableEntity)
		return
	}

	s.writeReport(w, r, chi.URLParam(r, "variant"), est)
}

func (s *server) writeReport(w http.ResponseWriter, r *http.Request, variant string, est costing.Estimate) {
	var (
		buf         bytes.Buffer
		err         error
		fileName    string
		contentType string
	)

	switch variant {
	case "detailed.pdf", "summary.pdf":
		doc := report.Detailed(est)
		if variant == "summary.pdf" {
			doc = report.Summary(est)
		}
		fileName, contentType = doc.FileName, "application/pdf"
		err = report.WritePDF(&buf, doc, s.now())
	case "estimate.xlsx":
		fileName = report.XLSXFileName(est)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = report.WriteXLSX(&buf, est)
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		s.logger.Error("render report", zap.String("variant", variant), zap.Error(err))
		http.Error(w, "failed to render report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
