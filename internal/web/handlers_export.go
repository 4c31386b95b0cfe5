package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/export"
	"github.com/JonMunkholm/catalog/internal/logging"
)

// handleExportProducts streams products ordered by id:
//
//	{"success":true,"data":[...],"total":N}
func (s *Server) handleExportProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseQueryInt(r, "limit", 1)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	src, err := s.service.ExportProducts(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.stream(w, r, "products", src, export.Envelope{}, "limit", limit)
}

// handleExportCompanyProducts streams one page of a company's products:
//
//	{"success":true,"company":{...},"data":[...],"pagination":{...},"streamedCount":N}
//
// The company is resolved before the cursor opens, so an unknown id is a
// plain 404.
func (s *Server) handleExportCompanyProducts(w http.ResponseWriter, r *http.Request) {
	companyID, err := parseID(r, "companyId", "company")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	req, err := parsePageRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	exp, err := s.service.ExportCompanyProducts(r.Context(), companyID, req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.stream(w, r, "company_products", exp.Source, exp.Envelope(),
		"company_id", companyID, "page", exp.Pagination.Page, "limit", exp.Pagination.Limit)
}

// stream runs one export session and reports its outcome. A failure before
// any byte was sent becomes an ordinary 500; after that the document
// carries the error itself.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, name string, src export.Source, env export.Envelope, fields ...any) {
	ctx := r.Context()
	logger := logging.WithFields(ctx, append([]any{"export", name, "export_id", uuid.NewString()}, fields...)...)

	s.metrics.ExportStarted()
	start := time.Now()
	logger.Info("export started")

	res, err := export.ServeHTTP(ctx, w, src, env, export.Options{
		FlushEvery:   s.cfg.Export.FlushEvery,
		ErrorMessage: s.streamErrorMessage,
	})

	elapsed := time.Since(start)
	s.metrics.ExportFinished(name, string(res.Outcome), res.Rows, elapsed)

	args := []any{
		"outcome", res.Outcome,
		"rows", res.Rows,
		"duration_ms", elapsed.Milliseconds(),
		"peak_row_bytes", res.PeakRowBytes,
	}
	switch res.Outcome {
	case export.OutcomeCompleted:
		logger.Info("export completed", args...)
	case export.OutcomeAborted:
		logger.Warn("export aborted", append(args, "error", err)...)
	default:
		logger.Error("export failed", append(args, "error", err)...)
	}

	if !res.Committed && err != nil && ctx.Err() == nil {
		s.respondError(w, r, err)
	}
}

// streamErrorMessage is the "error" member written when a query fails after
// rows were sent.
func (s *Server) streamErrorMessage(err error) string {
	if s.cfg.App.IsDevelopment() {
		return err.Error()
	}
	return core.MapError(err).Message
}
