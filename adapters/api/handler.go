package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"statlab/app"
	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/internal"
	"statlab/internal/errors"
)

// Config holds the headless API settings
type Config struct {
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

// DefaultConfig returns the limits used when none are configured
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:   20 << 20,
		RequestTimeout: 2 * time.Minute,
	}
}

// Handler serves analysis requests without sessions or history.
// Every call is a pure function of its body.
type Handler struct {
	service *app.AnalysisService
	config  Config
	logger  *internal.Logger
}

// NewHandler creates the API handler
func NewHandler(service *app.AnalysisService, config Config, logger *internal.Logger) *Handler {
	defaults := DefaultConfig()
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Handler{service: service, config: config, logger: logger}
}

// Routes builds the chi router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.config.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/tests", h.handleTests)
	r.Post("/analyze", h.handleAnalyze)
	r.Post("/assumptions", h.handleAssumptions)
	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("[API] %s %s %d %.2fms id=%s", r.Method, r.URL.Path, ww.Status(),
			float64(time.Since(start).Nanoseconds())/1e6, middleware.GetReqID(r.Context()))
	})
}

func (h *Handler) handleTests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tests":        h.service.Catalog(),
		"capabilities": h.service.Capabilities(),
	})
}

// handleAnalyze runs one analysis; ?narrate=true adds an interpretation
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	narrate, _ := strconv.ParseBool(r.URL.Query().Get("narrate"))

	outcome, err := h.service.Run(r.Context(), req, app.RunOptions{Narrate: narrate})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) handleAssumptions(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	checks, err := h.service.CheckAssumptions(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"testType":    req.TestType,
		"assumptions": checks,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*analysis.Request, error) {
	body := http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes)
	defer body.Close()

	var req analysis.Request
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return nil, errors.TooLarge(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		case stderrors.Is(err, io.EOF):
			return nil, errors.InvalidInput("request body is required")
		}
		return nil, errors.InvalidInput("invalid JSON body: " + err.Error())
	}
	return &req, nil
}

// ErrorResponse is the body of every failed call
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error(), Code: errors.GetCode(err)}
	if kind := core.ErrorKind(err); kind != core.KindInternal || resp.Code == errors.CodeInternalError {
		resp.Kind = kind
	}
	writeJSON(w, errors.HTTPStatus(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		internal.DefaultLogger.Error("[API] failed to encode response: %v", err)
	}
}
