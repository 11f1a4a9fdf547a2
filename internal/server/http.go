package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/docintel/constants"
	"github.com/joseph-ayodele/docintel/internal/common"
	"github.com/joseph-ayodele/docintel/internal/export"
)

// RouterConfig wires the HTTP surface. Metrics, Health and Exporter are optional.
type RouterConfig struct {
	Service        *IntelligenceService
	Metrics        http.Handler
	Health         func(ctx context.Context) error
	Exporter       *export.Service
	MaxUploadBytes int64
	Logger         *slog.Logger
}

type httpAPI struct {
	cfg    RouterConfig
	logger *slog.Logger
}

// NewRouter returns the HTTP API:
//
//	GET  /healthz
//	GET  /metrics
//	POST /v1/analyze                  multipart "file" upload or JSON AnalyzeRequest
//	GET  /v1/documents/export.xlsx    ?company_id=&limit=
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = constants.MaxUploadBytes
	}
	api := &httpAPI{cfg: cfg, logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(api.logRequests)

	r.Get("/healthz", api.health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/analyze", api.analyze)
		if cfg.Exporter != nil {
			r.Get("/documents/export.xlsx", api.exportDocuments)
		}
	})
	return r
}

func (h *httpAPI) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *httpAPI) health(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Health != nil {
		if err := h.cfg.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *httpAPI) analyze(w http.ResponseWriter, r *http.Request) {
	// Leave headroom for multipart framing and JSON base64 expansion.
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes*2)

	req, err := h.decodeAnalyze(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx := common.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
	ctx = common.WithCaller(ctx, r.Header.Get("X-Company-ID"), r.Header.Get("X-User-ID"))
	resp, err := h.cfg.Service.Analyze(ctx, req)
	if err != nil {
		writeError(w, httpStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *httpAPI) decodeAnalyze(r *http.Request) (*AnalyzeRequest, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/json":
		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		return &req, nil
	case "multipart/form-data":
		return decodeMultipart(r)
	}
	return nil, fmt.Errorf("unsupported content type %q", mt)
}

func decodeMultipart(r *http.Request) (*AnalyzeRequest, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("file: %w", err)
	}
	defer func() { _ = file.Close() }()
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	req := &AnalyzeRequest{}
	req.Filename = hdr.Filename
	req.OriginalFilename = r.FormValue("original_filename")
	req.MimeType = hdr.Header.Get("Content-Type")
	req.Content = content
	req.Context = r.FormValue("context")
	req.CompanyID = r.FormValue("company_id")
	req.UserID = r.FormValue("user_id")
	req.DocumentID = r.FormValue("document_id")
	req.Options.StrictMode = formBool(r, "strict_mode")
	req.Options.ExactOnly = formBool(r, "exact_only")
	req.Store = formBool(r, "store")
	return req, nil
}

func (h *httpAPI) exportDocuments(w http.ResponseWriter, r *http.Request) {
	company := strings.TrimSpace(r.URL.Query().Get("company_id"))
	if company == "" {
		writeError(w, http.StatusBadRequest, errors.New("company_id is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	b, err := h.cfg.Exporter.DocumentsXLSX(r.Context(), company, limit)
	if err != nil {
		h.logger.Error("export.xlsx.failed", "company_id", company, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="documents.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func formBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.FormValue(key))
	return b
}

func httpStatus(err error) int {
	switch status.Code(err) {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Canceled, codes.Unavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	msg := err.Error()
	if st, ok := status.FromError(err); ok {
		msg = st.Message()
	}
	writeJSON(w, code, map[string]string{"error": msg})
}
