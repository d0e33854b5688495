package main

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/estimategenie/quote-engine/internal/estimate"
	"github.com/estimategenie/quote-engine/internal/model"
	"github.com/estimategenie/quote-engine/internal/monitoring"
	"github.com/estimategenie/quote-engine/internal/store"
)

// maxUploadBytes bounds quote image uploads.
const maxUploadBytes = 20 << 20

type apiServer struct {
	env *quoteEnv

	// runCtx outlives individual requests; pipeline runs launched from
	// a handler are bound to server shutdown, not to the request.
	runCtx context.Context
}

// newRouter builds the HTTP API.
func newRouter(ctx context.Context, env *quoteEnv, allowOrigins []string) http.Handler {
	s := &apiServer{env: env, runCtx: ctx}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/quotes", s.handleCreateQuote)
		r.Get("/quotes", s.handleListQuotes)
		r.Get("/quotes/{id}", s.handleGetQuote)
		r.Delete("/quotes/{id}", s.handleDeleteQuote)

		r.Get("/models", s.handleModels)
		r.Get("/materials/search", s.handleMaterialSearch)
		r.Get("/labor/rates", s.handleLaborRates)

		r.Post("/pricing/reload", s.handlePricingReload)
		r.Get("/pricing/status", s.handlePricingStatus)
		r.Get("/pricing/lookup/{key}", s.handlePricingLookup)

		r.Get("/stats", s.handleStats)
	})

	return r
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": s.env.Selector.Available(),
	})
}

// createQuoteRequest is the JSON body for quote creation. Multipart
// submissions carry the same fields as form values plus an image part.
type createQuoteRequest struct {
	ProjectType string         `json:"project_type"`
	Description string         `json:"description"`
	ZipCode     string         `json:"zip_code"`
	Model       string         `json:"model"`
	Options     map[string]any `json:"options"`
}

func (s *apiServer) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var req createQuoteRequest
	var imagePath string

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case strings.HasPrefix(ct, "multipart/"):
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		req.ProjectType = r.FormValue("project_type")
		req.Description = r.FormValue("description")
		req.ZipCode = r.FormValue("zip_code")
		req.Model = r.FormValue("model")
		req.Options = optionsFromForm(r)

		path, err := s.saveUpload(r)
		if err != nil {
			zap.L().Warn("image upload failed", zap.Error(err))
			writeError(w, http.StatusBadRequest, "image upload failed")
			return
		}
		imagePath = path
	default:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if req.ProjectType == "" && req.Description == "" {
		writeError(w, http.StatusBadRequest, "project_type or description is required")
		return
	}
	if req.ProjectType == "" {
		req.ProjectType = "general"
	}

	now := time.Now().UTC()
	q := &model.Quote{
		ID:          uuid.New().String(),
		ProjectType: strings.ToLower(strings.TrimSpace(req.ProjectType)),
		Description: req.Description,
		ZipCode:     req.ZipCode,
		ImagePath:   imagePath,
		Model:       req.Model,
		Status:      model.StatusProcessing,
		Options:     estimate.ResolveOptions(req.Options),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.env.Store.CreateQuote(r.Context(), q); err != nil {
		zap.L().Error("create quote failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create quote")
		return
	}

	go s.env.Orchestrator.Run(s.runCtx, q)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"quote_id": q.ID,
		"status":   q.Status,
	})
}

// saveUpload persists the multipart image part, when present, under the
// uploads dir. Returns "" without error when the request has no image.
func (s *apiServer) saveUpload(r *http.Request) (string, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		if eris.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", eris.Wrap(err, "read image part")
	}
	defer file.Close()

	dir := cfg.Uploads.Dir
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "create uploads dir")
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	path := filepath.Join(dir, uuid.New().String()+ext)

	dst, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "create upload file")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(file, maxUploadBytes)); err != nil {
		return "", eris.Wrap(err, "write upload file")
	}
	return path, nil
}

func (s *apiServer) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.env.Store.GetQuote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "quote not found")
			return
		}
		zap.L().Error("get quote failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load quote")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *apiServer) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	filter := store.QuoteFilter{
		Status:      model.QuoteStatus(r.URL.Query().Get("status")),
		ProjectType: r.URL.Query().Get("project_type"),
		Limit:       intQuery(r, "limit", 50),
		Offset:      intQuery(r, "offset", 0),
	}

	quotes, err := s.env.Store.ListQuotes(r.Context(), filter)
	if err != nil {
		zap.L().Error("list quotes failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list quotes")
		return
	}
	if quotes == nil {
		quotes = []model.Quote{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"quotes": quotes,
		"count":  len(quotes),
	})
}

func (s *apiServer) handleDeleteQuote(w http.ResponseWriter, r *http.Request) {
	err := s.env.Store.DeleteQuote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "quote not found")
			return
		}
		zap.L().Error("delete quote failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete quote")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models": s.env.Selector.Models(),
	})
}

func (s *apiServer) handleMaterialSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	entries := s.env.Catalog.Search(query, intQuery(r, "limit", 20))
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": entries,
		"count":   len(entries),
	})
}

func (s *apiServer) handleLaborRates(w http.ResponseWriter, r *http.Request) {
	rates := s.env.Calculator.LaborRates(r.URL.Query().Get("trade"))
	writeJSON(w, http.StatusOK, map[string]any{"rates": rates})
}

func (s *apiServer) handlePricingReload(w http.ResponseWriter, r *http.Request) {
	summary := s.env.Catalog.Reload()
	writeJSON(w, http.StatusOK, summary)
}

func (s *apiServer) handlePricingStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.env.Catalog.Status())
}

func (s *apiServer) handlePricingLookup(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	entry, ok := s.env.Catalog.Lookup(r.Context(), key)
	if !ok {
		writeError(w, http.StatusNotFound, "material not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := monitoring.NewCollector(s.env.Store).Collect(r.Context(), intQuery(r, "hours", 24))
	if err != nil {
		zap.L().Error("stats collection failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to collect stats")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// optionsFromForm lifts estimate knobs out of form values. Absent keys
// stay absent so resolution applies its defaults.
func optionsFromForm(r *http.Request) map[string]any {
	opts := map[string]any{}
	for _, key := range []string{"quality", "region", "contingency_pct", "profit_pct"} {
		if v := r.FormValue(key); v != "" {
			opts[key] = v
		}
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

func intQuery(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
