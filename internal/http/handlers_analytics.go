package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"finboard/internal/aggregate"
	"finboard/internal/export"
	applog "finboard/internal/log"
)

// handleAnalytics renders the analytics page: trend, comparison and export
// controls. The charts themselves load as partials.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	params := ParseMonthParams(r.URL.Query())
	data := struct {
		Email       string
		Year        int
		Month       int
		Label       string
		TrendWindow int
		QueueReady  bool
	}{
		Email:       sess.Email,
		Year:        params.Year,
		Month:       params.Month,
		Label:       params.Period().Label(),
		TrendWindow: s.trendWindow,
		QueueReady:  s.queue != nil,
	}
	s.renderTemplate(w, r, "analytics_page", data)
}

// handleExportCSV streams the selected month's transactions as a CSV
// download.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	snap, err := s.loader.get(r.Context(), sess.ID, sess.AccessToken)
	if err != nil {
		if s.authFailed(w, r, err) {
			return
		}
		slog.ErrorContext(r.Context(), "Snapshot load failed", "error", err)
		InternalServerError("Could not load data").Write(w)
		return
	}

	p := ParseMonthParams(r.URL.Query()).Period()
	txs := aggregate.FilterByPeriod(snap.transactions(), p)
	rows := export.BuildRows(txs, snap.lookup)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(p)))
	if err := export.WriteCSV(w, rows); err != nil {
		slog.ErrorContext(r.Context(), "CSV export failed", "error", err)
		return
	}

	slog.InfoContext(r.Context(), "CSV exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldRecordCount, len(txs),
		"period", p.Key())
}

// handleEnqueueReport queues a report request for the export worker.
func (s *Server) handleEnqueueReport(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	if s.queue == nil {
		ErrorResponse(http.StatusServiceUnavailable, "Report exports are not configured").Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	params := ParseMonthParams(r.PostForm)
	ctx := r.Context()
	if err := s.queue.PublishReportRequest(ctx, params.Year, params.Month, sess.Email); err != nil {
		slog.ErrorContext(ctx, "Report enqueue failed", "error", err)
		ErrorResponse(http.StatusServiceUnavailable, "Could not queue the report, try again later").Write(w)
		return
	}

	slog.InfoContext(ctx, "Report queued",
		applog.FieldOperation, applog.OpExport,
		"period", params.Period().Key(),
		"requested_by", sess.Email)

	NewHTMXResponse().
		Status(http.StatusOK).
		TriggerSuccessNotification(fmt.Sprintf("Report for %s queued", params.Period().Label())).
		Write(w)
}
