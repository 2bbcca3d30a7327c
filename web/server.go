// Package web serves a localhost-only JSON API and the leave calendar feed; it
// intentionally has no auth/CSRF protection in this mode.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ninetofiver/feed"
	"ninetofiver/internal/timeutil"
	"ninetofiver/model"
	"ninetofiver/reconcile"
	"ninetofiver/redmine"
	"ninetofiver/report"
	"ninetofiver/storage"
)

var errRedmineUpstream = errors.New("redmine upstream request failed")

type Options struct {
	Store *storage.SQLiteStore
	// Client may be nil when Redmine is not configured.
	Client   redmine.Client
	Resolver reconcile.ResolverOptions
	Feed     feed.LeaveFeed
	Logger   zerolog.Logger
	Now      func() time.Time
}

type Server struct {
	store      *storage.SQLiteStore
	client     redmine.Client
	reconciler *reconcile.Service
	feed       feed.LeaveFeed
	log        zerolog.Logger
	router     *chi.Mux
}

func NewServer(opts Options) http.Handler {
	var client redmine.Client
	if opts.Client != nil {
		client = upstreamErrorClient{base: opts.Client}
	}

	server := &Server{
		store:  opts.Store,
		client: client,
		reconciler: reconcile.NewService(reconcile.Options{
			Client:       client,
			Contracts:    opts.Store,
			Performances: opts.Store,
			Resolver:     opts.Resolver,
			Logger:       opts.Logger,
			Now:          opts.Now,
		}),
		feed: opts.Feed,
		log:  opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(server.accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/feeds/"+feed.LeaveFileName, server.handleLeaveFeed)
	r.Route("/api", func(r chi.Router) {
		r.Get("/reports", server.handleReportList)
		r.Get("/reports/{name}/filters", server.handleReportFilters)
		r.Get("/reports/{name}", server.handleReportRun)
		r.Get("/redmine/users", server.handleRedmineUsers)
		r.Get("/redmine/projects", server.handleRedmineProjects)
		r.Get("/users/{id}/redmine/performances", server.handleUserPerformances)
		r.Get("/users/{id}/redmine/issues", server.handleUserIssues)
	})
	r.Handle("/metrics", promhttp.Handler())
	server.router = r

	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("access")
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleLeaveFeed(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListLeaveDates()
	if err != nil {
		http.Error(w, fmt.Sprintf("load leave dates: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", feed.CalendarMIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", feed.LeaveFileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.feed.Render(items)))
}

type reportSummary struct {
	Name  string       `json:"name"`
	Title string       `json:"title"`
	Model report.Model `json:"model"`
}

func (s *Server) handleReportList(w http.ResponseWriter, r *http.Request) {
	sets := report.Sets()
	out := make([]reportSummary, 0, len(sets))
	for _, set := range sets {
		out = append(out, reportSummary{Name: set.Name, Title: set.Title, Model: set.Model})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReportFilters(w http.ResponseWriter, r *http.Request) {
	set, ok := s.findReport(w, r)
	if !ok {
		return
	}

	filters, err := set.Describe(r.Context(), s.store)
	if err != nil {
		http.Error(w, fmt.Sprintf("load report filters: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report.FilterSet{Name: set.Name, Title: set.Title, Model: set.Model, Filters: filters})
}

func (s *Server) handleReportRun(w http.ResponseWriter, r *http.Request) {
	set, ok := s.findReport(w, r)
	if !ok {
		return
	}

	query, err := set.Bind(r.Context(), r.URL.Query(), s.store)
	if err != nil {
		var validationErr *report.ValidationError
		if errors.As(err, &validationErr) {
			writeJSON(w, http.StatusBadRequest, validationErr)
			return
		}
		http.Error(w, fmt.Sprintf("bind report filters: %v", err), http.StatusInternalServerError)
		return
	}

	result, err := s.store.RunReport(r.Context(), query)
	if err != nil {
		http.Error(w, fmt.Sprintf("run report: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) findReport(w http.ResponseWriter, r *http.Request) (report.FilterSet, bool) {
	set, err := report.Find(chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, report.ErrUnknownReport) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return report.FilterSet{}, false
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return report.FilterSet{}, false
	}
	return set, true
}

func (s *Server) handleRedmineUsers(w http.ResponseWriter, r *http.Request) {
	choices, err := redmine.UserChoices(r.Context(), s.client)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, choices)
}

func (s *Server) handleRedmineProjects(w http.ResponseWriter, r *http.Request) {
	choices, err := redmine.ProjectChoices(r.Context(), s.client)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, choices)
}

func (s *Server) handleUserPerformances(w http.ResponseWriter, r *http.Request) {
	user, ok := s.loadUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	from, err := parseOptionalDay(query.Get("from"))
	if err != nil {
		http.Error(w, "invalid from date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	to, err := parseOptionalDay(query.Get("to"))
	if err != nil {
		http.Error(w, "invalid to date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		http.Error(w, "to must not be before from", http.StatusBadRequest)
		return
	}

	results, err := s.reconciler.UserPerformances(r.Context(), user, from, to)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleUserIssues(w http.ResponseWriter, r *http.Request) {
	user, ok := s.loadUser(w, r)
	if !ok {
		return
	}

	issues, err := s.reconciler.UserIssues(r.Context(), user)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

func (s *Server) loadUser(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	id, err := parsePositiveInt64(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return model.User{}, false
	}

	user, err := s.store.GetUser(id)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return model.User{}, false
	}
	return user, true
}

func parsePositiveInt64(value string) (int64, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("value must be > 0")
	}
	return parsed, nil
}

func parseOptionalDay(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	return timeutil.ParseDay(value, time.UTC)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, reconcile.ErrNoRedmineUser):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errRedmineUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func wrapUpstreamError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", errRedmineUpstream, err)
}

// upstreamErrorClient tags every Redmine failure so handlers can answer 502.
type upstreamErrorClient struct {
	base redmine.Client
}

func (c upstreamErrorClient) BaseURL() string {
	return c.base.BaseURL()
}

func (c upstreamErrorClient) ListUsers(ctx context.Context) ([]redmine.User, error) {
	values, err := c.base.ListUsers(ctx)
	return values, wrapUpstreamError(err)
}

func (c upstreamErrorClient) FindUsersByName(ctx context.Context, name string, limit int) ([]redmine.User, error) {
	values, err := c.base.FindUsersByName(ctx, name, limit)
	return values, wrapUpstreamError(err)
}

func (c upstreamErrorClient) ListProjects(ctx context.Context) ([]redmine.Project, error) {
	values, err := c.base.ListProjects(ctx)
	return values, wrapUpstreamError(err)
}

func (c upstreamErrorClient) ListIssues(ctx context.Context, filter redmine.IssueFilter) ([]redmine.Issue, error) {
	values, err := c.base.ListIssues(ctx, filter)
	return values, wrapUpstreamError(err)
}

func (c upstreamErrorClient) ListTimeEntries(ctx context.Context, filter redmine.TimeEntryFilter) ([]redmine.TimeEntry, error) {
	values, err := c.base.ListTimeEntries(ctx, filter)
	return values, wrapUpstreamError(err)
}
