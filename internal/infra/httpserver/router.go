package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appai "github.com/bryanwahyu/automaton-sapaudit/internal/application/ai"
	appanalysis "github.com/bryanwahyu/automaton-sapaudit/internal/application/analysis"
	domai "github.com/bryanwahyu/automaton-sapaudit/internal/domain/ai"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/inactivity"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/report"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/tables"
	"github.com/bryanwahyu/automaton-sapaudit/internal/middleware"
)

const maxMultipartMemory = 32 << 20

// Options tune the HTTP layer
type Options struct {
	CORSOrigins  []string
	RateCapacity int
	RateRefill   int
	Checkers     map[string]middleware.HealthChecker
}

type Router struct {
	analysisSvc *appanalysis.Service
	aiSvc       *appai.Service
}

func NewRouter(analysisSvc *appanalysis.Service, aiSvc *appai.Service, opts Options) http.Handler {
	r := &Router{analysisSvc: analysisSvc, aiSvc: aiSvc}
	mux := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if opts.RateCapacity > 0 {
		mux.Use(middleware.RateLimitMiddleware(opts.RateCapacity, opts.RateRefill))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analyses/access", r.wrap(r.handleAnalyzeAccess))
		rt.Get("/analyses/access/{id}", r.wrap(r.handleGetAccess))
		rt.Post("/analyses/access/{id}/narrative", r.wrap(r.handleNarrate))
		rt.Get("/analyses/access/{id}/narrative", r.wrap(r.handleGetNarrative))
		rt.Get("/narratives", r.wrap(r.handleListNarratives))
		rt.Post("/analyses/inactivity", r.wrap(r.handleAnalyzeInactivity))
		rt.Get("/analyses/inactivity/{id}", r.wrap(r.handleGetInactivity))
		rt.Get("/failures", r.wrap(r.handleFailures))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks caller errors
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return badRequest{msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var (
			ve *tables.ValidationError
			br badRequest
		)
		switch {
		case errors.As(err, &ve):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": ve.Error(), "issues": ve.Issues})
		case errors.Is(err, inactivity.ErrNoLoginRecords):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
		case errors.As(err, &br):
			http.Error(w, br.msg, http.StatusBadRequest)
		case errors.Is(err, report.ErrNotFound), errors.Is(err, sql.ErrNoRows):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, report.ErrAlreadyExists):
			http.Error(w, "already exists", http.StatusConflict)
		case errors.Is(err, domai.ErrQuotaExceeded):
			http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
		default:
			log.Printf("req_id=%s path=%s error=%v", chimw.GetReqID(req.Context()), req.URL.Path, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// POST /v1/analyses/access
// multipart: usr02, agr_users, usr12 (files), start_date, end_date (optional)
func (r *Router) handleAnalyzeAccess(w http.ResponseWriter, req *http.Request) error {
	if err := req.ParseMultipartForm(maxMultipartMemory); err != nil {
		return badRequestf("invalid multipart form: %v", err)
	}
	rng, err := middleware.ParseDateRange(req.FormValue("start_date"), req.FormValue("end_date"))
	if err != nil {
		return badRequest{msg: err.Error()}
	}

	var cmd appanalysis.AccessCommand
	cmd.Range = rng
	fields := []struct {
		field, table string
		dst          **tables.RawTable
	}{
		{"usr02", tables.USR02, &cmd.Users},
		{"agr_users", tables.AGRUsers, &cmd.Roles},
		{"usr12", tables.USR12, &cmd.Auths},
	}
	uploaded := 0
	for _, f := range fields {
		t, err := r.readTable(req, string(report.KindAccess), f.field, f.table)
		if err != nil {
			return err
		}
		if t != nil {
			uploaded++
		}
		*f.dst = t
	}
	if uploaded == 0 {
		return badRequestf("at least one of usr02, agr_users, usr12 is required")
	}

	middleware.IncrementAnalyses()
	middleware.IncrementAnalysesRunning()
	defer middleware.DecrementAnalysesRunning()

	res, err := r.analysisSvc.AnalyzeAccess(req.Context(), cmd)
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	middleware.AddRowsSkipped(res.Skipped)

	writeJSON(w, http.StatusCreated, res.Report)
	return nil
}

// GET /v1/analyses/access/{id}
func (r *Router) handleGetAccess(w http.ResponseWriter, req *http.Request) error {
	id, err := reportID(req)
	if err != nil {
		return err
	}
	rep, err := r.analysisSvc.GetAccess(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, rep)
	return nil
}

// POST /v1/analyses/inactivity
// multipart: ust12 (file), start_date, end_date (optional)
func (r *Router) handleAnalyzeInactivity(w http.ResponseWriter, req *http.Request) error {
	if err := req.ParseMultipartForm(maxMultipartMemory); err != nil {
		return badRequestf("invalid multipart form: %v", err)
	}
	rng, err := middleware.ParseDateRange(req.FormValue("start_date"), req.FormValue("end_date"))
	if err != nil {
		return badRequest{msg: err.Error()}
	}
	t, err := r.readTable(req, string(report.KindInactivity), "ust12", tables.UST12)
	if err != nil {
		return err
	}
	if t == nil {
		return badRequestf("ust12 file is required")
	}

	middleware.IncrementAnalyses()
	middleware.IncrementAnalysesRunning()
	defer middleware.DecrementAnalysesRunning()

	rep, err := r.analysisSvc.AnalyzeInactivity(req.Context(), t, rng)
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	writeJSON(w, http.StatusCreated, rep)
	return nil
}

// GET /v1/analyses/inactivity/{id}
func (r *Router) handleGetInactivity(w http.ResponseWriter, req *http.Request) error {
	id, err := reportID(req)
	if err != nil {
		return err
	}
	rep, err := r.analysisSvc.GetInactivity(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, rep)
	return nil
}

// POST /v1/analyses/access/{id}/narrative
func (r *Router) handleNarrate(w http.ResponseWriter, req *http.Request) error {
	id, err := reportID(req)
	if err != nil {
		return err
	}
	rep, err := r.analysisSvc.GetAccess(req.Context(), id)
	if err != nil {
		return err
	}
	n, err := r.aiSvc.Narrate(req.Context(), rep)
	if err != nil {
		return err
	}
	middleware.IncrementNarratives()
	writeJSON(w, http.StatusCreated, n)
	return nil
}

// GET /v1/analyses/access/{id}/narrative
func (r *Router) handleGetNarrative(w http.ResponseWriter, req *http.Request) error {
	id, err := reportID(req)
	if err != nil {
		return err
	}
	n, err := r.aiSvc.Latest(req.Context(), id)
	if err != nil {
		return err
	}
	if n == nil {
		return report.ErrNotFound
	}
	writeJSON(w, http.StatusOK, n)
	return nil
}

// GET /v1/narratives?page=&page_size=
func (r *Router) handleListNarratives(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.aiSvc.List(req.Context(), page, middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/failures?limit=
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.analysisSvc.LatestFailures(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// helper

// readTable returns nil, nil when the form field is absent
func (r *Router) readTable(req *http.Request, analysis, field, table string) (*tables.RawTable, error) {
	file, header, err := req.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, badRequestf("%s: %v", field, err)
	}
	defer file.Close()

	if err := middleware.ValidateUpload(header.Filename, header.Size); err != nil {
		return nil, badRequestf("%s: %v", field, err)
	}
	data, err := readAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	t, err := r.analysisSvc.Decode(req.Context(), analysis, table, data)
	if err != nil {
		return nil, badRequestf("%s: %v", field, err)
	}
	return t, nil
}

func readAll(f multipart.File) ([]byte, error) {
	return io.ReadAll(io.LimitReader(f, middleware.MaxUploadBytes))
}

func reportID(req *http.Request) (string, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateReportID(id); err != nil {
		return "", badRequest{msg: err.Error()}
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response error: %v", err)
	}
}
