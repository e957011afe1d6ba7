package httpserver

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	appanalysis "github.com/ngocminh/chudau-catalog/internal/application/analysis"
	appcatalog "github.com/ngocminh/chudau-catalog/internal/application/catalog"
	domai "github.com/ngocminh/chudau-catalog/internal/domain/ai"
	domain "github.com/ngocminh/chudau-catalog/internal/domain/catalog"
	"github.com/ngocminh/chudau-catalog/internal/middleware"
)

type Router struct {
	catalogSvc  *appcatalog.Service
	analysisSvc *appanalysis.Service
	settings    domai.SettingsSource
}

// Options tunes the outer middleware; zero values disable a feature.
type Options struct {
	AnalyzePerMinute int // token bucket capacity for /api/analyze
	HealthCheckers   map[string]middleware.HealthChecker
}

func NewRouter(catalogSvc *appcatalog.Service, analysisSvc *appanalysis.Service, settings domai.SettingsSource, opts Options) http.Handler {
	r := &Router{catalogSvc: catalogSvc, analysisSvc: analysisSvc, settings: settings}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/api", func(rt chi.Router) {
		rt.Get("/records", r.wrap(r.handleListRecords))
		rt.Post("/records", r.wrap(r.handleCreateRecord))
		rt.Get("/categories", r.wrap(r.handleCategories))
		rt.Get("/community", r.wrap(r.handleListCommunity))
		rt.Post("/community", r.wrap(r.handleCreatePost))
		rt.Get("/settings", r.wrap(r.handleGetSettings))
		rt.Put("/settings", r.wrap(r.handlePutSettings))
		rt.Get("/analyze/{id}/progress", r.wrap(r.handleProgress))

		rt.Group(func(g chi.Router) {
			if opts.AnalyzePerMinute > 0 {
				g.Use(middleware.RateLimitMiddleware(opts.AnalyzePerMinute, 1))
			}
			g.Post("/analyze", r.wrap(r.handleAnalyze))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks caller errors so wrap maps them to 400
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var br badRequest
			switch {
			case errors.Is(err, sql.ErrNoRows):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, domai.ErrMissingAPIKey),
				errors.Is(err, domai.ErrEmptyImage),
				errors.Is(err, domai.ErrNoModels):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.As(err, &br):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case strings.Contains(err.Error(), domai.ErrorMarker):
				// model list exhausted; upstream at fault
				http.Error(w, err.Error(), http.StatusBadGateway)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// GET /api/records
func (r *Router) handleListRecords(w http.ResponseWriter, req *http.Request) error {
	list, err := r.catalogSvc.Records(req.Context())
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Record{}
	}
	return writeJSON(w, list)
}

// POST /api/records
func (r *Router) handleCreateRecord(w http.ResponseWriter, req *http.Request) error {
	var f domain.NewRecordFields
	if err := json.NewDecoder(req.Body).Decode(&f); err != nil {
		return badRequest{err}
	}
	id, err := r.catalogSvc.CreateRecord(req.Context(), f)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"id": id})
}

// GET /api/categories
func (r *Router) handleCategories(w http.ResponseWriter, req *http.Request) error {
	list, err := r.catalogSvc.Categories(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /api/community
func (r *Router) handleListCommunity(w http.ResponseWriter, req *http.Request) error {
	list, err := r.catalogSvc.Community(req.Context())
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.CommunityPost{}
	}
	return writeJSON(w, list)
}

// POST /api/community
// JSON body {title, content, author, imageUrl}; or multipart/form-data
// with the same fields plus an "image" file that is stored in the
// object store first.
func (r *Router) handleCreatePost(w http.ResponseWriter, req *http.Request) error {
	var f domain.NewPostFields
	var image []byte
	var contentType string

	if strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
		if err := req.ParseMultipartForm(middleware.MaxImageBytes); err != nil {
			return badRequest{err}
		}
		f.Title = req.FormValue("title")
		f.Content = req.FormValue("content")
		f.Author = req.FormValue("author")
		if file, hdr, err := req.FormFile("image"); err == nil {
			defer file.Close()
			data, err := io.ReadAll(io.LimitReader(file, middleware.MaxImageBytes+1))
			if err != nil {
				return err
			}
			if err := middleware.ValidateImagePayload(data); err != nil {
				return badRequest{err}
			}
			image = data
			contentType = hdr.Header.Get("Content-Type")
		}
	} else {
		if err := json.NewDecoder(req.Body).Decode(&f); err != nil {
			return badRequest{err}
		}
	}

	if err := middleware.ValidatePostFields(f.Title, f.Content, f.Author); err != nil {
		return badRequest{err}
	}
	if err := middleware.ValidateImageURL(f.ImageURL); err != nil {
		return badRequest{err}
	}

	id, err := r.catalogSvc.CreateCommunityPost(req.Context(), f, image, contentType)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"id": id})
}

// POST /api/analyze
// Body: {"image": "<base64 or data URL>"}. Runs the fallback chain to
// completion; progress is pollable under /api/analyze/{id}/progress
// while this call is in flight.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest{err}
	}

	payload := body.Image
	if i := strings.IndexByte(payload, ','); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+1:]
	}
	img, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return badRequest{fmt.Errorf("image is not valid base64: %w", err)}
	}
	if err := middleware.ValidateImagePayload(img); err != nil {
		return badRequest{err}
	}

	id := uuid.New().String()
	w.Header().Set("X-Analysis-Id", id)

	middleware.IncrementAnalyses()
	res, err := r.analysisSvc.Analyze(req.Context(), id, img)
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	return writeJSON(w, res)
}

// GET /api/analyze/{id}/progress
func (r *Router) handleProgress(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	p := r.analysisSvc.Tracker.Get(id)
	if p == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return nil
	}
	value, done := p.Value()
	return writeJSON(w, map[string]any{"progress": value, "done": done})
}

// GET /api/settings — the API key itself is never echoed back
func (r *Router) handleGetSettings(w http.ResponseWriter, req *http.Request) error {
	st, err := r.settings.Load(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"models":    st.Models,
		"hasApiKey": st.APIKey != "",
	})
}

// PUT /api/settings
func (r *Router) handlePutSettings(w http.ResponseWriter, req *http.Request) error {
	var st domai.Settings
	if err := json.NewDecoder(req.Body).Decode(&st); err != nil {
		return badRequest{err}
	}
	if err := r.settings.Save(req.Context(), st); err != nil {
		if errors.Is(err, domai.ErrNoModels) {
			return badRequest{err}
		}
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
