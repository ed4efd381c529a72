package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appdocs "github.com/bryanwahyu/sheetqa/internal/application/documents"
	appqa "github.com/bryanwahyu/sheetqa/internal/application/qa"
	"github.com/bryanwahyu/sheetqa/internal/domain/documents"
	"github.com/bryanwahyu/sheetqa/internal/domain/qa"
	"github.com/bryanwahyu/sheetqa/internal/middleware"
)

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

type Options struct {
	Log         *slog.Logger
	Metrics     *middleware.Metrics
	CORSOrigins []string
	// RateLimitCapacity of 0 leaves /ask unlimited.
	RateLimitCapacity   int
	RateLimitRefillRate int
}

type Router struct {
	docsSvc *appdocs.Service
	qaSvc   *appqa.Service
	log     *slog.Logger
	metrics *middleware.Metrics
}

// NewRouter builds the HTTP API. ctx bounds background work such as rate limiter cleanup.
func NewRouter(ctx context.Context, docsSvc *appdocs.Service, qaSvc *appqa.Service, opts Options) http.Handler {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = middleware.NewMetrics()
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	r := &Router{docsSvc: docsSvc, qaSvc: qaSvc, log: opts.Log, metrics: opts.Metrics}
	mux := chi.NewRouter()

	mux.Use(middleware.LoggingMiddleware(opts.Log))
	mux.Use(chimw.Recoverer)
	mux.Use(opts.Metrics.Middleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.Log, map[string]middleware.HealthChecker{
		"store": middleware.StoreHealthChecker{Store: docsSvc.Store},
	}))
	mux.Get("/metrics", opts.Metrics.Handler)

	mux.Post("/uploads", r.wrap(r.handleUpload))
	mux.Get("/uploads", r.wrap(r.handleListUploads))
	mux.With(middleware.RateLimitMiddleware(ctx, opts.RateLimitCapacity, opts.RateLimitRefillRate)).
		Post("/ask", r.wrap(r.handleAsk))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap maps service errors onto status codes. Error details are logged, never returned.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		status, msg := http.StatusInternalServerError, "internal server error"
		switch {
		case errors.Is(err, documents.ErrNoFile):
			status, msg = http.StatusBadRequest, "no file uploaded"
		case errors.Is(err, qa.ErrEmptyQuestion):
			status, msg = http.StatusBadRequest, "question is required"
		case errors.Is(err, errBadRequest):
			status, msg = http.StatusBadRequest, "invalid request body"
		case errors.Is(err, documents.ErrNoDocuments):
			status, msg = http.StatusNotFound, "no spreadsheet files found"
		case errors.Is(err, documents.ErrNotFound):
			status, msg = http.StatusNotFound, "not found"
		}

		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		r.log.Log(req.Context(), level, "request failed",
			"request_id", middleware.GetRequestID(req.Context()),
			"path", req.URL.Path,
			"status", status,
			"err", err,
		)
		writeJSON(w, status, map[string]string{"error": msg})
	}
}

// writeJSON encodes v before touching the response, so an encode error leaves it unwritten
// for wrap to report. Write errors after the header is sent are not returned.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
	return nil
}

// POST /uploads?parse=true
// Multipart field "file".
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	file, header, err := req.FormFile("file")
	if err != nil {
		return fmt.Errorf("read multipart file: %v: %w", err, documents.ErrNoFile)
	}
	defer file.Close()

	uploaded, err := r.docsSvc.Upload(req.Context(), header.Filename, file)
	if err != nil {
		return err
	}
	r.metrics.IncrementUploads()

	resp := map[string]any{
		"message": "File uploaded successfully",
		"file":    uploaded.StoredName,
	}
	if middleware.QueryFlag(req, "parse") {
		records, err := r.docsSvc.Parse(req.Context(), uploaded.StoredName)
		if err != nil {
			// the stored file is kept; only the parse result is missing
			return fmt.Errorf("parse upload %s: %w", uploaded.StoredName, err)
		}
		if records == nil {
			records = []documents.Record{}
		}
		resp["documentContent"] = records
	}
	return writeJSON(w, http.StatusOK, resp)
}

// GET /uploads
func (r *Router) handleListUploads(w http.ResponseWriter, req *http.Request) error {
	ids, err := r.docsSvc.List(req.Context())
	if err != nil {
		return err
	}
	if ids == nil {
		ids = []string{}
	}
	return writeJSON(w, http.StatusOK, map[string]any{"files": ids})
}

// POST /ask
// Body: {"question": "<text>"}
func (r *Router) handleAsk(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode ask body: %v: %w", err, errBadRequest)
	}
	question := middleware.SanitizeString(body.Question)
	if question == "" {
		return qa.ErrEmptyQuestion
	}
	r.metrics.IncrementQuestions()

	res, err := r.qaSvc.Ask(req.Context(), question)
	if err != nil {
		return err
	}

	failed := 0
	for _, a := range res.Answers {
		if a.Error != "" {
			failed++
		}
	}
	r.metrics.RecordAnswers(len(res.Answers)-failed, failed)
	return writeJSON(w, http.StatusOK, res)
}
