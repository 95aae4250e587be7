package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"spendlens/internal/aggregate"
	"spendlens/internal/core"
	"spendlens/internal/export"
	"spendlens/internal/log"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type categoriesView struct {
	Total      decimal.Decimal           `json:"total"`
	Categories []aggregate.CategoryTotal `json:"categories"`
}

type heatmapView struct {
	aggregate.IntensityGrid
	Intensities [aggregate.Weekdays][aggregate.Hours]float64 `json:"intensities"`
}

// summarize runs the summary service for the current user with the query's
// options. It writes the error response itself and reports false on failure.
func (s *Server) summarize(w http.ResponseWriter, r *http.Request) (aggregate.Summary, core.User, bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return aggregate.Summary{}, user, false
	}
	req, err := ParseSummaryRequest(r.URL.Query())
	if err != nil {
		ServiceError(r, err).Write(w)
		return aggregate.Summary{}, user, false
	}
	sum, err := s.deps.Summaries.Summarize(r.Context(), user.ID, req)
	if err != nil {
		ServiceError(r, err).Write(w)
		return aggregate.Summary{}, user, false
	}
	return sum, user, true
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, _, ok := s.summarize(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Payload(sum).Write(w)
}

func (s *Server) handleSummaryCategories(w http.ResponseWriter, r *http.Request) {
	sum, _, ok := s.summarize(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Payload(categoriesView{
		Total:      sum.Total,
		Categories: aggregate.SortCategoryTotals(sum.Categories),
	}).Write(w)
}

func (s *Server) handleSummaryMonths(w http.ResponseWriter, r *http.Request) {
	sum, _, ok := s.summarize(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Payload(sum.Months).Write(w)
}

// handleSummarySeries recomputes only the series, so switching granularity
// does not rebuild the other views.
func (s *Server) handleSummarySeries(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	req, err := ParseSummaryRequest(r.URL.Query())
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	series, err := s.deps.Summaries.Series(r.Context(), user.ID, req)
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Payload(map[string]any{
		"granularity": req.Granularity,
		"series":      series,
	}).Write(w)
}

func (s *Server) handleSummaryHeatmap(w http.ResponseWriter, r *http.Request) {
	sum, _, ok := s.summarize(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Payload(heatmapView{
		IntensityGrid: sum.Heatmap,
		Intensities:   sum.Heatmap.Intensities(),
	}).Write(w)
}

func (s *Server) handleSummaryExport(w http.ResponseWriter, r *http.Request) {
	sum, user, ok := s.summarize(w, r)
	if !ok {
		return
	}

	f, err := export.Build(sum)
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="spendlens-summary.xlsx"`)
	if _, err := f.WriteTo(w); err != nil && !isClientGone(r.Context().Err()) {
		s.logger.ErrorContext(r.Context(), "Export write failed",
			log.FieldOwnerID, user.ID,
			log.FieldError, err.Error())
	}
}
