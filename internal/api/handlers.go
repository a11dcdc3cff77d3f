package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/internal/reporter"
	"claims-reconciliation-service/internal/store"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"
)

const defaultRunsLimit = 20

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Category string `json:"category"`
}

// RunResponse is an archived run with its full statistics
type RunResponse struct {
	*store.ReconciliationRun
	Statistics *models.Summary `json:"summary"`
}

// RecordsResponse wraps a filtered record list
type RecordsResponse struct {
	Count   int                           `json:"count"`
	Records []models.ReconciliationRecord `json:"records"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Server is running",
	})
}

func (s *Server) reconcile(c *gin.Context) (*reconciler.Result, bool) {
	claims, invoices := s.sources()
	result, err := reconciler.Reconcile(c.Request.Context(), claims, invoices)
	if err != nil {
		s.abortWithError(c, err)
		return nil, false
	}
	return result, true
}

func (s *Server) getSummary(c *gin.Context) {
	result, ok := s.reconcile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result.Summary)
}

func (s *Server) getRecords(c *gin.Context) {
	var filter models.ReconciliationStatus
	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseReconciliationStatus(raw)
		if err != nil {
			badRequest(c, errors.CodeInvalidEnum, err.Error())
			return
		}
		filter = status
	}

	result, ok := s.reconcile(c)
	if !ok {
		return
	}

	records := make([]models.ReconciliationRecord, 0, len(result.Records))
	for _, r := range result.Records {
		if filter == "" || r.ReconciliationStatus == filter {
			records = append(records, r)
		}
	}
	c.JSON(http.StatusOK, RecordsResponse{Count: len(records), Records: records})
}

func (s *Server) getReport(c *gin.Context) {
	format := reporter.FormatHTML
	if raw := c.Query("format"); raw != "" {
		parsed, err := reporter.ParseOutputFormat(raw)
		if err != nil {
			badRequest(c, errors.CodeInvalidConfig, err.Error())
			return
		}
		format = parsed
	}

	config := reporter.DefaultReportConfig()
	config.Format = format
	if s.reportTitle != "" {
		config.Title = s.reportTitle
	}
	generator, err := reporter.NewReportGenerator(config)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	result, ok := s.reconcile(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := generator.Render(&buf, result.Summary, result.Records); err != nil {
		s.abortWithError(c, errors.WrapIfNeeded(err, errors.CategoryWrite, errors.CodeRenderFailed, "failed to render report"))
		return
	}
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (s *Server) listRuns(c *gin.Context) {
	if s.archive == nil {
		s.archiveDisabled(c)
		return
	}

	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, errors.CodeInvalidNumber, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.archive.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if runs == nil {
		runs = []store.ReconciliationRun{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(runs), "runs": runs})
}

func (s *Server) createRun(c *gin.Context) {
	if s.archive == nil {
		s.archiveDisabled(c)
		return
	}

	start := time.Now()
	claims, invoices := s.sources()
	result, err := reconciler.Reconcile(c.Request.Context(), claims, invoices)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	run, err := s.archive.SaveRun(c.Request.Context(), result.Summary, store.RunMeta{
		Trigger:        "api",
		ClaimsSource:   describe(claims),
		InvoicesSource: describe(invoices),
		Duration:       time.Since(start),
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, run)
}

func (s *Server) getRun(c *gin.Context) {
	if s.archive == nil {
		s.archiveDisabled(c)
		return
	}

	run, err := s.archive.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:    fmt.Sprintf("run not found: %s", c.Param("id")),
			Code:     string(errors.CodeSourceQuery),
			Category: string(errors.CategoryDataLoad),
		})
		return
	}

	summary, err := run.Summary()
	if err != nil {
		s.abortWithError(c, errors.InternalError(errors.CodeDataInconsistent, "decode archived summary", err))
		return
	}
	c.JSON(http.StatusOK, RunResponse{ReconciliationRun: run, Statistics: summary})
}

func (s *Server) archiveDisabled(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:    "run archive is not configured",
		Code:     string(errors.CodeMissingConfig),
		Category: string(errors.CategoryConfiguration),
	})
}

func (s *Server) abortWithError(c *gin.Context, err error) {
	reconcilerErr, ok := errors.AsReconcilerError(err)
	if !ok {
		reconcilerErr = errors.Wrap(err, errors.CategoryInternal, errors.CodeUnexpectedError, "unexpected error")
	}

	status := statusFor(reconcilerErr.Category)
	entry := s.logger.WithError(err).WithFields(logger.Fields{
		"path":     c.Request.URL.Path,
		"code":     reconcilerErr.Code,
		"category": reconcilerErr.Category,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:    reconcilerErr.Error(),
		Code:     string(reconcilerErr.Code),
		Category: string(reconcilerErr.Category),
	})
}

func badRequest(c *gin.Context, code errors.ErrorCode, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:    message,
		Code:     string(code),
		Category: "request",
	})
}

// statusFor maps error categories to HTTP status codes. Input data problems
// are the client's to fix; everything else is a server fault.
func statusFor(category errors.ErrorCategory) int {
	switch category {
	case errors.CategorySchema:
		return http.StatusUnprocessableEntity
	case errors.CategoryReconciliation:
		return http.StatusConflict
	case errors.CategoryNetwork:
		return http.StatusServiceUnavailable
	case errors.CategoryDataLoad:
		return http.StatusFailedDependency
	default:
		return http.StatusInternalServerError
	}
}

func describe(source interface{}) string {
	if named, ok := source.(fmt.Stringer); ok {
		return named.String()
	}
	return fmt.Sprintf("%T", source)
}
