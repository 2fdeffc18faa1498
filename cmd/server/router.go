package main

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Simplici0/stackcost/internal/history"
	"github.com/Simplici0/stackcost/internal/metrics"
	"github.com/Simplici0/stackcost/internal/report"
	"github.com/Simplici0/stackcost/web"
)

type baseViewData struct {
	Authenticated  bool
	ErrorMessage   string
	SuccessMessage string
}

type loginViewData struct {
	baseViewData
	Next string
}

type historyItem struct {
	ID        string
	Label     string
	Timestamp string
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", s.handleHome)
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.requireAuth)
		r.Get("/cost", s.handleCostPage)
		r.Post("/cost", s.handleCostSubmit)
		r.Post("/cost/history/{id}/delete", s.handleCostHistoryDelete)
		r.Post("/cost/report/{variant}", s.handleCostReport)
		r.Get("/cost/history/{id}/report/{variant}", s.handleCostHistoryReport)
	})

	r.Get("/yield", s.handleYieldPage)
	r.Post("/yield", s.handleYieldSubmit)
	r.Post("/yield/history/{id}/delete", s.handleYieldHistoryDelete)

	r.Route("/api", func(r chi.Router) {
		r.With(s.auth.requireAuthAPI).Post("/cost/estimate", s.handleAPICostEstimate)
		r.Post("/yield", s.handleAPIYield)
		r.Get("/history/{collection}", s.handleAPIHistoryList)
		r.Get("/history/{collection}/{id}", s.handleAPIHistoryEntry)
	})

	return r
}

// requestLogger records latency per route pattern and logs each request.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		metrics.RecordHTTP(route, r.Method, strconv.Itoa(status), elapsed)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *server) base(r *http.Request) baseViewData {
	return baseViewData{
		Authenticated:  s.auth.isAuthenticated(r),
		ErrorMessage:   r.URL.Query().Get("error"),
		SuccessMessage: r.URL.Query().Get("success"),
	}
}

var templateFuncs = template.FuncMap{
	"fixed": func(v float64, places int) string {
		return report.Fixed(v, int32(places))
	},
	"negative": func(v float64) bool {
		return v < 0
	},
}

func (s *server) renderTemplate(w http.ResponseWriter, status int, page string, data any) {
	templates, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(
		web.Templates,
		"templates/layout.html",
		"templates/"+page,
	)
	if err != nil {
		s.logger.Error("parse template", zap.String("page", page), zap.Error(err))
		http.Error(w, "failed to parse template", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.logger.Error("render template", zap.String("page", page), zap.Error(err))
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *server) historyItems(r *http.Request, c history.Collection) []historyItem {
	entries := s.store.Load(r.Context(), c)
	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{
			ID:        e.ID,
			Label:     e.Label,
			Timestamp: e.Timestamp.Local().Format("2006-01-02 15:04"),
		})
	}
	return items
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, http.StatusOK, "home.html", s.base(r))
}

func (s *server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if s.auth.isAuthenticated(r) {
		http.Redirect(w, r, "/cost", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, http.StatusOK, "login.html", loginViewData{Next: r.URL.Query().Get("next")})
}

func (s *server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	next := r.FormValue("next")
	if !s.auth.validatePassword(r.FormValue("password")) {
		msg := "Invalid password. Try again."
		if !s.auth.enabled() {
			msg = "The cost module is locked until COST_PASSWORD is configured."
		}
		s.renderTemplate(w, http.StatusUnauthorized, "login.html", loginViewData{
			baseViewData: baseViewData{ErrorMessage: msg},
			Next:         next,
		})
		return
	}

	s.auth.setSessionCookie(w)
	http.Redirect(w, r, safeRedirect(next, "/cost"), http.StatusSeeOther)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// safeRedirect only allows local absolute paths.
func safeRedirect(next, fallback string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

// writeJSON encodes v before committing the status, so an unencodable value
// becomes a 500 instead of an empty response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
