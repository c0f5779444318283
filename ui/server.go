package ui

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"statlab/app"
	"statlab/domain/analysis"
	"statlab/internal"
	"statlab/internal/usage"
	"statlab/ports"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// Server is the statlab web server
type Server struct {
	router    *gin.Engine
	service   *app.AnalysisService
	reader    ports.DatasetReader
	templates *template.Template
	maxUpload int64
	usage     *usage.Tracker
	logger    *internal.Logger
	started   time.Time
}

// Options configures NewServer
type Options struct {
	GinMode        string
	MaxUploadBytes int64
	Usage          *usage.Tracker // optional, enables /api/usage
}

// NewServer creates the server and registers every route
func NewServer(service *app.AnalysisService, reader ports.DatasetReader, opts Options, logger *internal.Logger) (*Server, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}

	funcMap := template.FuncMap{
		"family": func(f analysis.Family) string { return strings.ReplaceAll(string(f), "-", " ") },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		router:    gin.New(),
		service:   service,
		reader:    reader,
		templates: templates,
		maxUpload: opts.MaxUploadBytes,
		usage:     opts.Usage,
		logger:    logger,
		started:   time.Now(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/tests", s.handleTests)
	api.POST("/datasets", s.handleDatasetUpload)
	api.POST("/analyses", s.handleRunAnalysis)
	api.POST("/assumptions", s.handleAssumptions)
	api.GET("/analyses", s.handleListAnalyses)
	api.GET("/analyses/:id", s.handleGetAnalysis)
	api.DELETE("/analyses/:id", s.handleDeleteAnalysis)
	api.GET("/analyses/:id/report", s.handleReport)
	if s.usage != nil {
		api.GET("/usage", s.handleUsage)
	}
}

// Handler exposes the router for http.Server and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) renderTemplate(c *gin.Context, templateName string, data interface{}) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(c.Writer, templateName, data); err != nil {
		s.logger.Error("Template error: %v", err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}
