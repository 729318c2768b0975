// Package api exposes the HTTP interface for the catalog service.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/catalog"
	"github.com/openclaw/forager/internal/clicks"
	"github.com/openclaw/forager/internal/metrics"
	"github.com/openclaw/forager/internal/service"
	"github.com/openclaw/forager/internal/store"
)

// Server wires HTTP handlers to the retrieval and catalog services.
type Server struct {
	router    chi.Router
	catalog   *service.CatalogService
	retrieval *service.RetrievalService
	tracker   *clicks.Tracker
	logger    *zap.Logger
	maxLimit  int
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	catalogSvc *service.CatalogService,
	retrieval *service.RetrievalService,
	tracker *clicks.Tracker,
	maxLimit int,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}
	s := &Server{
		catalog:   catalogSvc,
		retrieval: retrieval,
		tracker:   tracker,
		logger:    logger,
		maxLimit:  maxLimit,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/search", s.search)
		r.Get("/browse", s.browse)
		r.Get("/query", s.query)
		r.Route("/entries", func(r chi.Router) {
			r.Get("/{slug}", s.getEntry)
			r.Post("/{id}/click", s.click)
		})
		r.Route("/skills", func(r chi.Router) {
			r.Get("/search", s.searchSkills)
			r.Get("/browse", s.browseSkills)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// A cheap store round trip: readiness means the catalog answers.
	if _, err := s.catalog.GetBySlug(r.Context(), "readyz-probe"); err != nil && !isNotFound(err) {
		writeError(w, http.StatusServiceUnavailable, "store unavailable", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, s.logger)
}

// search runs a lexical full-text search. Zero results is a 200 with an
// empty list, never an error.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusBadRequest, "q is required", s.logger)
		return
	}

	req := service.SearchRequest{
		Query: q,
		Tags:  splitTags(r.URL.Query().Get("tags")),
		Limit: s.limitParam(r),
	}
	if c, ok, err := categoryParam(r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	} else if ok {
		req.Category = &c
	}
	if v := r.URL.Query().Get("openclaw_ready"); v != "" {
		b := v == "true"
		req.OpenClawReady = &b
	}
	if v := r.URL.Query().Get("self_hostable"); v != "" {
		b := v == "true"
		req.SelfHostable = &b
	}

	hits, err := s.retrieval.Search(r.Context(), req)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed", s.logger)
		return
	}
	results := make([]searchHit, 0, len(hits))
	for _, h := range hits {
		results = append(results, searchHit{Entry: h.Entry, Score: h.Score})
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results, Total: len(results)}, s.logger)
}

// browse lists a category page with a consistent total count.
func (s *Server) browse(w http.ResponseWriter, r *http.Request) {
	req := service.BrowseRequest{
		Order: store.Order(r.URL.Query().Get("order")),
		Page: store.Page{
			Limit:  s.limitParam(r),
			Offset: intParam(r, "offset"),
		},
	}
	if c, ok, err := categoryParam(r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	} else if ok {
		req.Category = &c
	}

	res, err := s.retrieval.Browse(r.Context(), req)
	if err != nil {
		s.logger.Error("browse failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "browse failed", s.logger)
		return
	}
	if res.Entries == nil {
		res.Entries = []catalog.Entry{}
	}
	writeJSON(w, http.StatusOK, browseResponse{Entries: res.Entries, Total: res.Total}, s.logger)
}

// query answers a free-text question through the hybrid waterfall.
func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusBadRequest, "q is required", s.logger)
		return
	}

	res, err := s.retrieval.Query(r.Context(), q, s.limitParam(r))
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed", s.logger)
		return
	}
	if res.Entries == nil {
		res.Entries = []catalog.Entry{}
	}
	writeJSON(w, http.StatusOK, queryResponse{Entries: res.Entries, Stage: res.Stage}, s.logger)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	e, err := s.catalog.GetBySlug(r.Context(), slug)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "entry not found", s.logger)
			return
		}
		s.logger.Error("entry lookup failed", zap.String("slug", slug), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, e, s.logger)
}

// click records a click counter increment. The increment itself is
// fire-and-forget; the handler acknowledges immediately.
func (s *Server) click(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.catalog.GetByID(r.Context(), id); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "entry not found", s.logger)
			return
		}
		s.logger.Error("click lookup failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed", s.logger)
		return
	}
	s.tracker.Record(id)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"}, s.logger)
}

func (s *Server) searchSkills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusBadRequest, "q is required", s.logger)
		return
	}

	var category *catalog.SkillCategory
	if v := r.URL.Query().Get("category"); v != "" {
		c := catalog.SkillCategory(strings.ToLower(v))
		if !c.Valid() {
			writeError(w, http.StatusBadRequest, "unknown skill category", s.logger)
			return
		}
		category = &c
	}

	hits, err := s.retrieval.SearchSkills(r.Context(), q, category, s.limitParam(r))
	if err != nil {
		s.logger.Error("skill search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed", s.logger)
		return
	}
	results := make([]skillHit, 0, len(hits))
	for _, h := range hits {
		results = append(results, skillHit{Skill: h.Skill, Score: h.Score})
	}
	writeJSON(w, http.StatusOK, skillSearchResponse{Results: results, Total: len(results)}, s.logger)
}

func (s *Server) browseSkills(w http.ResponseWriter, r *http.Request) {
	var category *catalog.SkillCategory
	if v := r.URL.Query().Get("category"); v != "" {
		c := catalog.SkillCategory(strings.ToLower(v))
		if !c.Valid() {
			writeError(w, http.StatusBadRequest, "unknown skill category", s.logger)
			return
		}
		category = &c
	}

	page := store.Page{Limit: s.limitParam(r), Offset: intParam(r, "offset")}
	rows, total, err := s.retrieval.BrowseSkills(r.Context(), category, page)
	if err != nil {
		s.logger.Error("skill browse failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "browse failed", s.logger)
		return
	}
	if rows == nil {
		rows = []catalog.Skill{}
	}
	writeJSON(w, http.StatusOK, skillBrowseResponse{Skills: rows, Total: total}, s.logger)
}

func (s *Server) limitParam(r *http.Request) int {
	limit := intParam(r, "limit")
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return limit
}

func intParam(r *http.Request, name string) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func categoryParam(r *http.Request) (catalog.Category, bool, error) {
	v := r.URL.Query().Get("category")
	if v == "" {
		return "", false, nil
	}
	c := catalog.Category(strings.ToLower(v))
	if !c.Valid() {
		return "", false, errInvalidCategory
	}
	return c, true, nil
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error", s.logger)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type requestIDKey struct{}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
