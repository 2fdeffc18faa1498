package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Simplici0/stackcost/internal/costing"
	"github.com/Simplici0/stackcost/internal/history"
)

func TestCostPageRendersDefaults(t *testing.T) {
	srv := newTestServer(t)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/cost", nil), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, expected := range []string{`name="tool_ref_name"`, `name="comp_0_stack_height"`, "Total Landed Cost", "No saved estimates yet."} {
		if !strings.Contains(body, expected) {
			t.Fatalf("expected body to contain %q", expected)
		}
	}
}

func TestCostSubmitValidationErrorRendersMessage(t *testing.T) {
	srv := newTestServer(t)
	form := costForm("AL-1")
	form.Set("yield_pct", "101")

	rr := serve(srv, postForm("/cost", form), true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Yield must be between 0 and 100") {
		t.Fatalf("expected validation message in body")
	}
}

func TestCostSubmitAddAndRemoveComponents(t *testing.T) {
	srv := newTestServer(t)

	form := costForm("AL-1")
	form.Set("action", "add-template")
	form.Set("template", "Rotor")
	rr := serve(srv, postForm("/cost", form), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `name="comp_1_name" value="Rotor"`) {
		t.Fatalf("expected Rotor component to be added")
	}
	if !strings.Contains(body, `name="component_count" value="2"`) {
		t.Fatalf("expected two components")
	}

	form = costForm("AL-1")
	form.Set("action", "remove-0")
	rr = serve(srv, postForm("/cost", form), true)
	if !strings.Contains(rr.Body.String(), `name="component_count" value="1"`) {
		t.Fatalf("expected the last component to stay")
	}
}

func TestCostSubmitSaveStoresSnapshot(t *testing.T) {
	srv := newTestServer(t)
	form := costForm("AL-7")
	form.Set("action", "save")

	rr := serve(srv, postForm("/cost", form), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	entries := srv.store.Load(context.Background(), history.CollectionCost)
	if len(entries) != 1 || entries[0].Label != "AL-7" {
		t.Fatalf("expected one saved entry labelled AL-7, got %+v", entries)
	}

	est, err := history.Decode[costing.Estimate](entries[0])
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	want := costing.Calculate(withName(costing.DefaultCommonInputs(), "AL-7"), []costing.ComponentInputs{costing.DefaultComponent()})
	if est.TotalLandedCost() != want.TotalLandedCost() {
		t.Fatalf("expected landed cost %v, got %v", want.TotalLandedCost(), est.TotalLandedCost())
	}
}

func saveEstimate(t *testing.T, srv *server, finalCost float64) string {
	t.Helper()

	est := costing.Calculate(withName(costing.DefaultCommonInputs(), "Stored Tool"), []costing.ComponentInputs{costing.DefaultComponent()})
	est.Components[0].FinalStackCost = finalCost

	entry, err := srv.store.Save(context.Background(), history.CollectionCost, "Stored Tool", est)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	return entry.ID
}

func TestCostLoadShowsStoredValuesWithoutRecalculation(t *testing.T) {
	srv := newTestServer(t)
	id := saveEstimate(t, srv, 98765.43)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/cost?load="+id, nil), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "98765.43") {
		t.Fatalf("expected stored final cost in body")
	}
	if !strings.Contains(body, `value="Stored Tool"`) {
		t.Fatalf("expected stored tool name in body")
	}
}

func TestCostLoadUnknownID(t *testing.T) {
	srv := newTestServer(t)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/cost?load=missing", nil), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "History entry not found.") {
		t.Fatalf("expected not found message")
	}
}

func TestCostHistoryDelete(t *testing.T) {
	srv := newTestServer(t)
	id := saveEstimate(t, srv, 1)

	rr := serve(srv, httptest.NewRequest(http.MethodPost, "/cost/history/"+id+"/delete", nil), true)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Location"), "/cost?success=") {
		t.Fatalf("unexpected redirect %q", rr.Header().Get("Location"))
	}
	if entries := srv.store.Load(context.Background(), history.CollectionCost); len(entries) != 0 {
		t.Fatalf("expected history to be empty, got %+v", entries)
	}
}

func TestCostReportFromForm(t *testing.T) {
	srv := newTestServer(t)

	rr := serve(srv, postForm("/cost/report/detailed.pdf", costForm("AL 9")), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ct)
	}
	if !strings.HasPrefix(rr.Body.String(), "%PDF-") {
		t.Fatalf("expected a PDF body")
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "AL_9_Detailed.pdf") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
}

func TestCostHistoryReportVariants(t *testing.T) {
	srv := newTestServer(t)
	id := saveEstimate(t, srv, 10)

	tests := []struct {
		variant string
		status  int
		ctype   string
	}{
		{"summary.pdf", http.StatusOK, "application/pdf"},
		{"estimate.xlsx", http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"report.doc", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		rr := serve(srv, httptest.NewRequest(http.MethodGet, "/cost/history/"+id+"/report/"+tt.variant, nil), true)
		if rr.Code != tt.status {
			t.Fatalf("%s: expected %d, got %d", tt.variant, tt.status, rr.Code)
		}
		if tt.ctype != "" && rr.Header().Get("Content-Type") != tt.ctype {
			t.Fatalf("%s: unexpected content type %q", tt.variant, rr.Header().Get("Content-Type"))
		}
	}

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/cost/history/missing/report/summary.pdf", nil), true)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown entry, got %d", rr.Code)
	}
}
