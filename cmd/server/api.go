package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/stackcost/internal/costing"
	"github.com/Simplici0/stackcost/internal/history"
	"github.com/Simplici0/stackcost/internal/metrics"
	"github.com/Simplici0/stackcost/internal/yield"
)

const maxRequestBody = 1 << 20

type costEstimateRequest struct {
	Common     costing.CommonInputs      `json:"common_inputs"`
	Components []costing.ComponentInputs `json:"components"`
	Save       bool                      `json:"save"`
}

type costEstimateResponse struct {
	Estimate  costing.Estimate `json:"estimate"`
	HistoryID string           `json:"history_id,omitempty"`
}

type yieldRequest struct {
	Inputs yield.Inputs `json:"inputs"`
	Save   bool         `json:"save"`
}

type yieldResponse struct {
	Calculation yield.Calculation `json:"calculation"`
	HistoryID   string            `json:"history_id,omitempty"`
}

type historyListItem struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Label     string    `json:"label"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *server) handleAPICostEstimate(w http.ResponseWriter, r *http.Request) {
	req := costEstimateRequest{Common: costing.DefaultCommonInputs()}
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Components == nil {
		req.Components = []costing.ComponentInputs{s.defaultTemplate()}
	}

	resp := costEstimateResponse{Estimate: costing.Calculate(req.Common, req.Components)}
	metrics.RecordCalculation(metrics.KindCost)

	if req.Save {
		entry, err := s.store.Save(r.Context(), history.CollectionCost, req.Common.ToolRefName, resp.Estimate)
		if err != nil {
			s.logger.Error("save cost history", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "could not save to history")
			return
		}
		resp.HistoryID = entry.ID
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleAPIYield(w http.ResponseWriter, r *http.Request) {
	req := yieldRequest{Inputs: yield.DefaultInputs()}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	resp := yieldResponse{Calculation: yield.Calculate(req.Inputs)}
	metrics.RecordCalculation(metrics.KindYield)

	if req.Save {
		entry, err := s.store.Save(r.Context(), history.CollectionYield, req.Inputs.Label, resp.Calculation)
		if err != nil {
			s.logger.Error("save yield history", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "could not save to history")
			return
		}
		resp.HistoryID = entry.ID
	}

	writeJSON(w, http.StatusOK, resp)
}

// collectionParam resolves {collection} and enforces the session on the cost
// collection. It writes the error response itself.
func (s *server) collectionParam(w http.ResponseWriter, r *http.Request) (history.Collection, bool) {
	c, err := history.ParseCollection(chi.URLParam(r, "collection"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return "", false
	}
	if c == history.CollectionCost && !s.auth.isAuthenticated(r) {
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return c, true
}

func (s *server) handleAPIHistoryList(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collectionParam(w, r)
	if !ok {
		return
	}

	entries := s.store.Load(r.Context(), c)
	items := make([]historyListItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyListItem{ID: e.ID, Timestamp: e.Timestamp, Label: e.Label})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleAPIHistoryEntry(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collectionParam(w, r)
	if !ok {
		return
	}

	entry, ok := s.store.Get(r.Context(), c, chi.URLParam(r, "id"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "history entry not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
