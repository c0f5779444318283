package ui

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"statlab/adapters/excel"
	"statlab/app"
	"statlab/domain/analysis"
	"statlab/internal/errors"
	"statlab/ports"
)

// handleIndex renders the test catalog page
func (s *Server) handleIndex(c *gin.Context) {
	s.renderTemplate(c, "index.html", gin.H{
		"Catalog":  s.service.Catalog(),
		"Advanced": s.service.Capabilities().Advanced,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// handleTests lists the catalog with availability under the current plan
func (s *Server) handleTests(c *gin.Context) {
	catalog := s.service.Catalog()
	c.JSON(http.StatusOK, gin.H{
		"tests":        catalog,
		"count":        len(catalog),
		"capabilities": s.service.Capabilities(),
	})
}

// handleDatasetUpload parses a CSV or XLSX upload into rows, columns and inferred measures
func (s *Server) handleDatasetUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, uploadError(err))
		return
	}
	f, err := header.Open()
	if err != nil {
		respondError(c, errors.InvalidInput("failed to open upload"))
		return
	}
	defer f.Close()

	upload, err := s.reader.Read(c.Request.Context(), f, header.Filename)
	if err != nil {
		respondError(c, readError(err))
		return
	}
	s.logger.Info("[Upload] %s: %d rows, %d columns", upload.Name, len(upload.Rows), len(upload.Columns))
	c.JSON(http.StatusOK, upload)
}

// handleRunAnalysis runs, narrates and stores one analysis.
// ?narrate=false and ?persist=false skip the optional steps.
func (s *Server) handleRunAnalysis(c *gin.Context) {
	req, ok := s.bindRequest(c)
	if !ok {
		return
	}
	opts := app.RunOptions{
		DatasetName: c.Query("dataset"),
		Narrate:     queryBool(c, "narrate", true),
		Persist:     queryBool(c, "persist", true),
	}
	outcome, err := s.service.Run(c.Request.Context(), req, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) handleAssumptions(c *gin.Context) {
	req, ok := s.bindRequest(c)
	if !ok {
		return
	}
	checks, err := s.service.CheckAssumptions(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"testType": req.TestType, "assumptions": checks})
}

func (s *Server) handleListAnalyses(c *gin.Context) {
	filters := ports.AnalysisFilters{
		Limit:  queryInt(c, "limit", 0),
		Offset: queryInt(c, "offset", 0),
	}
	if t := c.Query("testType"); t != "" {
		filters.TestType = analysis.ParseTestType(t)
	}
	runs, err := s.service.History(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": runs, "count": len(runs)})
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	rec, err := s.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDeleteAnalysis(c *gin.Context) {
	if err := s.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleReport serves a stored run as a standalone HTML page
func (s *Server) handleReport(c *gin.Context) {
	page, err := s.service.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// handleUsage reports the LLM tokens spent on narratives since startup
func (s *Server) handleUsage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models":      s.usage.Snapshot(),
		"totalTokens": s.usage.TotalTokens(),
	})
}

// bindRequest decodes an analysis request body, writing the error response itself
func (s *Server) bindRequest(c *gin.Context) (*analysis.Request, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	var req analysis.Request
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		respondError(c, bodyError(err))
		return nil, false
	}
	return &req, true
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &tooLarge):
		return errors.TooLarge(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	case stderrors.Is(err, io.EOF):
		return errors.InvalidInput("request body is required")
	}
	return errors.InvalidInput("invalid JSON body: " + err.Error())
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.TooLarge(fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
	}
	if stderrors.Is(err, http.ErrMissingFile) {
		return errors.InvalidInput("multipart field \"file\" is required")
	}
	return errors.InvalidInput("invalid upload: " + err.Error())
}

func readError(err error) error {
	switch {
	case stderrors.Is(err, excel.ErrTooManyRows):
		return errors.TooLarge(err.Error())
	case stderrors.Is(err, excel.ErrUnsupportedFile):
		return errors.InvalidInput(err.Error())
	}
	return errors.ValidationError(err.Error())
}

func queryBool(c *gin.Context, key string, def bool) bool {
	v, err := strconv.ParseBool(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
