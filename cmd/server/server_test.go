package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/stackcost/internal/costing"
	"github.com/Simplici0/stackcost/internal/history"
	"github.com/Simplici0/stackcost/internal/seed"
	"github.com/Simplici0/stackcost/internal/yield"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *server {
	t.Helper()

	store, err := history.NewFileStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open history store: %v", err)
	}

	auth, err := newAuthService("secret", "test-session-key", time.Hour)
	if err != nil {
		t.Fatalf("failed to create auth service: %v", err)
	}
	auth.now = func() time.Time { return testNow }

	return &server{
		auth:      auth,
		store:     store,
		templates: seed.DefaultTemplates(),
		logger:    zap.NewNop(),
		now:       func() time.Time { return testNow },
	}
}

func sessionCookie(srv *server) *http.Cookie {
	return &http.Cookie{Name: sessionCookieName, Value: srv.auth.createSessionValue()}
}

// serve runs req through the full router, adding a session cookie when authed.
func serve(srv *server, req *http.Request, authed bool) *httptest.ResponseRecorder {
	if authed {
		req.AddCookie(sessionCookie(srv))
	}
	rr := httptest.NewRecorder()
	srv.routes().ServeHTTP(rr, req)
	return rr
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// costForm renders the default estimate's inputs the way the cost page posts them.
func costForm(toolName string) url.Values {
	form := url.Values{}
	form.Set("tool_ref_name", toolName)
	for _, f := range commonFields(costing.DefaultCommonInputs()) {
		form.Set(f.Name, f.Value)
	}
	form.Set("component_count", "1")
	form.Set("comp_0_name", "Stator")
	for _, f := range componentFields(0, costing.DefaultComponent()) {
		form.Set(f.Name, f.Value)
	}
	return form
}

func yieldForm(outerArea, slotArea string) url.Values {
	form := url.Values{}
	form.Set("label", "Strip A")
	for _, f := range yieldFields(yield.DefaultInputs()) {
		form.Set(f.Name, f.Value)
	}
	form.Set("component_count", "1")
	form.Set("comp_0_name", "Lam")
	form.Set("comp_0_outer_area_mm2", outerArea)
	form.Set("comp_0_parts_per_stroke", "1")
	if slotArea == "" {
		form.Set("comp_0_slot_count", "0")
		return form
	}
	form.Set("comp_0_slot_count", "1")
	form.Set("comp_0_slot_0_area_mm2", slotArea)
	form.Set("comp_0_slot_0_count", "1")
	return form
}
