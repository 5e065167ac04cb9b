package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"salesboard/internal/core"
	"salesboard/internal/filter"
	"salesboard/internal/log"
	"salesboard/internal/report"
	"salesboard/internal/session"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type (
	// reportView is the report partial: the render output plus the query
	// string that reproduces it and the chart data for the page script.
	reportView struct {
		report.RenderedOutput
		Query      string
		ChartsJSON template.JS
	}

	checkbox struct {
		Value    string
		Selected bool
	}

	filterForm struct {
		Start      string
		End        string
		MinDate    string
		MaxDate    string
		Categories []checkbox
		Segments   []checkbox
		ProfitMin  string
		ProfitMax  string
		ProfitLow  string
		ProfitHigh string
	}

	pageData struct {
		MaxUploadMB    int64
		Uploaded       bool
		Banner         string
		Report         *reportView
		Filters        *filterForm
		HistoryEnabled bool
		Error          string
	}
)

// sessionFor returns the caller's session, setting the cookie when a new one
// was started.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) *session.State {
	st, created := s.sessions.FromRequest(r)
	if created {
		s.sessions.SetCookie(w, st, s.secureCookies)
		s.metrics.SetSessions(s.sessions.Size())
	}
	return st
}

// datasetFor returns the session's dataset, attaching the default dataset
// the first time a session needs one.
func (s *Server) datasetFor(ctx context.Context, st *session.State) (*session.State, error) {
	if st.Dataset != nil {
		return st, nil
	}
	if s.defaults == nil {
		return st, &core.SourceUnavailableError{}
	}
	ds, err := s.defaults.Load(ctx)
	if err != nil {
		s.loads.Failed(ctx, s.defaults.Location(), err)
		return st, err
	}
	st = s.sessions.Attach(st.ID, ds, core.OriginDefault)
	s.loads.Loaded(ctx, st.ID, core.OriginDefault, ds)
	return st, nil
}

// render runs the pipeline for the request's filters. Parameters that could
// not be parsed are reported ahead of the other notices.
func (s *Server) render(r *http.Request, ds *core.Dataset, view string) reportView {
	c, ignored := filter.ParseQuery(r.URL.Query())

	start := time.Now()
	out := report.Render(ds, c)
	s.metrics.ObserveRender(view, time.Since(start), out.View.Len(), out.Heatmap.Empty())

	out.PrependNotices(ignored)

	rv := reportView{RenderedOutput: out}
	if q := filter.EncodeQuery(c).Encode(); q != "" {
		rv.Query = "?" + q
	}
	charts, err := json.Marshal(map[string]report.ChartSpec{
		"sales_trend": out.SalesTrend,
		"by_category": out.ByCategory,
	})
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode chart data", log.FieldError, err.Error())
		charts = []byte("{}")
	}
	rv.ChartsJSON = template.JS(charts)

	log.FromContext(r.Context()).DebugContext(r.Context(), "Report rendered",
		log.FieldOperation, log.OpRender,
		log.FieldDataset, ds.Name,
		log.FieldFiltered, out.View.Len(),
		log.FieldAdvisories, len(out.Advisories))
	return rv
}

// filterFormOf fills the widgets from the merged criteria. Bounds and
// choices come from the whole dataset so a narrow selection can be widened
// again.
func filterFormOf(out report.RenderedOutput) *filterForm {
	c, opts := out.Criteria, out.Options
	f := &filterForm{
		Start:      c.Dates.Start.String(),
		End:        c.Dates.End.String(),
		MinDate:    opts.Dates.Start.String(),
		MaxDate:    opts.Dates.End.String(),
		Categories: checkboxes(opts.Categories, c.Categories),
		Segments:   checkboxes(opts.Segments, c.Segments),
		ProfitMin:  amountInput(c.Profit.Min, decimal.Decimal.RoundFloor),
		ProfitMax:  amountInput(c.Profit.Max, decimal.Decimal.RoundCeil),
		ProfitLow:  amountInput(opts.Profit.Min, decimal.Decimal.RoundFloor),
		ProfitHigh: amountInput(opts.Profit.Max, decimal.Decimal.RoundCeil),
	}
	return f
}

// checkboxes marks every option selected when nothing is selected.
func checkboxes(options, selected []string) []checkbox {
	set := make(map[string]bool, len(selected))
	for _, v := range selected {
		set[v] = true
	}
	out := make([]checkbox, len(options))
	for i, v := range options {
		out[i] = checkbox{Value: v, Selected: len(set) == 0 || set[v]}
	}
	return out
}

func amountInput(a decimal.NullDecimal, round func(decimal.Decimal, int32) decimal.Decimal) string {
	if !a.Valid {
		return ""
	}
	return round(a.Decimal, 2).StringFixed(2)
}

func bannerOf(st *session.State) string {
	if st.Uploaded() {
		return "Using uploaded file: " + st.Dataset.Name
	}
	return "Using Sample Dataset"
}

// execute renders a template into a buffer first so a template error never
// leaves a half-written page.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).LogError(r.Context(), "Template execution failed", err, log.OpRender,
			log.NewFields().With("template", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := s.sessionFor(w, r)
	data := pageData{
		MaxUploadMB:    s.maxUpload >> 20,
		HistoryEnabled: s.loads.HistoryEnabled(),
	}

	st, err := s.datasetFor(r.Context(), st)
	if err != nil {
		data.Error = report.ErrorNotice(err)
		data.Banner = "No dataset loaded"
		s.execute(w, r, http.StatusOK, "index.html", data)
		return
	}

	rv := s.render(r, st.Dataset, "page")
	data.Uploaded = st.Uploaded()
	data.Banner = bannerOf(st)
	data.Report = &rv
	data.Filters = filterFormOf(rv.RenderedOutput)
	s.execute(w, r, http.StatusOK, "index.html", data)
}

func (s *Server) handleReportPartial(w http.ResponseWriter, r *http.Request) {
	st, err := s.datasetFor(r.Context(), s.sessionFor(w, r))
	if err != nil {
		NotifyResponse(http.StatusOK, "warning", report.ErrorNotice(err)).Write(w)
		return
	}
	s.execute(w, r, http.StatusOK, "report.html", s.render(r, st.Dataset, "partial"))
}

func (s *Server) handleReportJSON(w http.ResponseWriter, r *http.Request) {
	st, err := s.datasetFor(r.Context(), s.sessionFor(w, r))
	if err != nil {
		writeJSONError(w, r, http.StatusNotFound, report.ErrorNotice(err))
		return
	}
	writeJSON(w, r, http.StatusOK, s.render(r, st.Dataset, "api").RenderedOutput)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	st := s.sessionFor(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	fail := func(status int, msg string) {
		if isHTMX(r) {
			ErrorResponse(status, msg).Write(w)
			return
		}
		http.Error(w, msg, status)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.loads.Failed(r.Context(), "", err)
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			fail(http.StatusRequestEntityTooLarge, s.tooLargeMessage())
		case errors.Is(err, http.ErrMissingFile):
			fail(http.StatusBadRequest, "No file uploaded. Please choose a file.")
		default:
			fail(http.StatusBadRequest, "Invalid upload form.")
		}
		return
	}
	defer file.Close()

	ds, err := s.loads.Upload(r.Context(), st.ID, header.Filename, file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, core.ErrUnsupportedFormat):
			fail(http.StatusUnsupportedMediaType, report.ErrorNotice(err))
		case errors.As(err, &tooLarge):
			fail(http.StatusRequestEntityTooLarge, s.tooLargeMessage())
		default:
			fail(http.StatusBadRequest, report.ErrorNotice(err))
		}
		return
	}

	s.sessions.Attach(st.ID, ds, core.OriginUpload)

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	msg := fmt.Sprintf("Loaded %s: %s rows.", ds.Name, core.FormatCount(ds.Len()))
	if n := ds.UndatedCount(); n > 0 {
		msg += fmt.Sprintf(" %s rows have no readable order date.", core.FormatCount(n))
	}
	NotifyResponse(http.StatusOK, "success", msg).
		TriggerDatasetLoaded(ds.Name, ds.Len()).
		Refresh().
		Write(w)
}

func (s *Server) tooLargeMessage() string {
	return fmt.Sprintf("File too large. The limit is %d MB.", s.maxUpload>>20)
}

// handleReset drops the session's upload so the next page shows the default
// dataset again.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	st := s.sessionFor(w, r)
	s.sessions.Reset(st.ID)
	s.metrics.SetSessions(s.sessions.Size())

	if isHTMX(r) {
		NewHTMXResponse().Refresh().Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, report.CSVFileName, report.CSVContentType, report.WriteCSV)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, report.XLSXFileName, report.XLSXContentType, report.WriteXLSX)
}

// export writes the filtered view. The file is built in memory so an encoding
// failure can still be answered with a 500.
func (s *Server) export(w http.ResponseWriter, r *http.Request, name, contentType string, write func(io.Writer, core.FilteredView) error) {
	st, err := s.datasetFor(r.Context(), s.sessionFor(w, r))
	if err != nil {
		http.Error(w, report.ErrorNotice(err), http.StatusNotFound)
		return
	}

	c, _ := filter.ParseQuery(r.URL.Query())
	view := filter.Apply(st.Dataset, c)

	var buf bytes.Buffer
	if err := write(&buf, view); err != nil {
		log.FromContext(r.Context()).LogError(r.Context(), "Export failed", err, log.OpExport,
			log.NewFields().With(log.FieldDataset, st.Dataset.Name).With("file", name))
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.loads.HistoryEnabled() {
		http.NotFound(w, r)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSONError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	events, err := s.loads.History(r.Context(), limit)
	if err != nil {
		log.FromContext(r.Context()).LogError(r.Context(), "Failed to list loads", err, log.OpList, nil)
		if isHTMX(r) {
			ErrorResponse(http.StatusInternalServerError, "Could not load history.").Write(w)
			return
		}
		writeJSONError(w, r, http.StatusInternalServerError, "could not load history")
		return
	}

	if isHTMX(r) {
		s.execute(w, r, http.StatusOK, "history.html", events)
		return
	}
	if events == nil {
		events = []core.LoadEvent{}
	}
	writeJSON(w, r, http.StatusOK, events)
}
