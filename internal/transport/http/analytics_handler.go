package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"shoppulse/internal/analytics"
	"shoppulse/internal/config"
	apierrors "shoppulse/internal/errors"
	"shoppulse/internal/middleware"
)

// AnalyticsService is the surface the handler needs from the analytics
// layer.
type AnalyticsService interface {
	Run(ctx context.Context, from, to time.Time) (*analytics.Result, error)
	DateBounds() (time.Time, time.Time)
}

// AnalyticsHandler serves the dashboard JSON API. Every data endpoint
// accepts an optional from/to date window on order approval dates,
// mirroring the dashboard's date picker.
type AnalyticsHandler struct {
	service  AnalyticsService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewAnalyticsHandler creates the handler.
func NewAnalyticsHandler(service AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsHandler{
		service:  service,
		logger:   logger.With(slog.String("component", "analytics_handler")),
		validate: validator.New(),
	}
}

// Routes returns the analytics routes.
func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/summary", h.GetSummary)
	r.Get("/rfm", h.GetRFM)
	r.Get("/rfm/segments", h.GetSegments)
	r.Get("/region-stats", h.GetRegionStats)
	r.Get("/products/revenue", h.GetProductRevenue)
	r.Get("/orders/daily", h.GetDailyOrders)
	r.Get("/customers/by-state", h.GetCustomersByState)
	r.Get("/reviews/scores", h.GetReviewScores)

	return r
}

// dateRangeQuery is the validated shape of the from/to query parameters.
type dateRangeQuery struct {
	From string `validate:"omitempty,datetime=2006-01-02"`
	To   string `validate:"omitempty,datetime=2006-01-02"`
}

// window parses and validates the date range from the request. A
// missing bound leaves the window open on that side.
func (h *AnalyticsHandler) window(r *http.Request) (time.Time, time.Time, *apierrors.APIError) {
	q := dateRangeQuery{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
	if err := h.validate.Struct(q); err != nil {
		return time.Time{}, time.Time{}, apierrors.ErrValidation("from/to", "dates must be formatted YYYY-MM-DD")
	}

	var from, to time.Time
	if q.From != "" {
		from, _ = time.Parse(config.AnalysisDateFormat, q.From)
	}
	if q.To != "" {
		to, _ = time.Parse(config.AnalysisDateFormat, q.To)
		// Include the whole end day
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, apierrors.ErrValidation("from/to", "from must not be after to")
	}
	return from, to, nil
}

// run executes the pipeline over the request's window and handles the
// shared error path.
func (h *AnalyticsHandler) run(w http.ResponseWriter, r *http.Request) (*analytics.Result, bool) {
	from, to, apiErr := h.window(r)
	if apiErr != nil {
		render.Render(w, r, apiErr)
		return nil, false
	}

	result, err := h.service.Run(r.Context(), from, to)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "analytics run failed",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())))
		render.Render(w, r, apierrors.FromAppError(err))
		return nil, false
	}
	return result, true
}

// GetSummary handles GET /api/summary
func (h *AnalyticsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	result, ok := h.run(w, r)
	if !ok {
		return
	}
	minDate, maxDate := h.service.DateBounds()

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"run_id":            result.RunID,
			"analysis_date":     result.AnalysisDate.Format(config.AnalysisDateFormat),
			"date_min":          formatBound(minDate),
			"date_max":          formatBound(maxDate),
			"customers":         len(result.RFM),
			"states":            len(result.RegionStats),
			"products":          len(result.ProductRevenue),
			"most_common_state": result.MostCommonState,
			"most_common_score": result.MostCommonScore,
			"overall":           result.Overall,
			"segment_counts":    result.SegmentCounts,
		},
	})
}

// GetRFM handles GET /api/rfm
func (h *AnalyticsHandler) GetRFM(w http.ResponseWriter, r *http.Request) {
	result, ok := h.run(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result.RFM,
		"count":  len(result.RFM),
	})
}

// GetSegments handles GET /api/rfm/segments
func (h *AnalyticsHandler) GetSegments(w http.ResponseWriter, r *http.Request) {
	result, ok := h.run(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result.SegmentCounts,
		"count":  len(result.SegmentCounts),
	})
}

// GetRegionStats handles GET /api/region-stats
func (h *AnalyticsHandler) GetRegionStats(w http.ResponseWriter, r *http.Request) {
	result, ok := h.run(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status":  "success",
		"data":    result.RegionStats,
		"overall": result.Overall,
		"count":   len(result.RegionStats),
	})
}

// GetProductRevenue handles GET /api/products/revenue
func (h *AnalyticsHandler) GetProductRevenue(w http.ResponseWriter, r *http.Request) {
	result, ok := h.run(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result.ProductRevenue,
		"count":  len(result.ProductRevenue),
	})
}

// GetDailyOrders handles GET /api/orders/daily
func (h *AnalyticsHandler) GetDailyOrders(w http.ResponseWriter, r *http.Request) {
	result, ok := h.run(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result.DailyOrders,
		"count":  len(result.DailyOrders),
	})
}

// GetCustomersByState handles GET /api/customers/by-state
func (h *AnalyticsHandler) GetCustomersByState(w http.ResponseWriter, r *http.Request) {
	result, ok := h.run(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status":            "success",
		"data":              result.CustomersByState,
		"most_common_state": result.MostCommonState,
		"count":             len(result.CustomersByState),
	})
}

// GetReviewScores handles GET /api/reviews/scores
func (h *AnalyticsHandler) GetReviewScores(w http.ResponseWriter, r *http.Request) {
	result, ok := h.run(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status":            "success",
		"data":              result.ReviewScores,
		"most_common_score": result.MostCommonScore,
		"count":             len(result.ReviewScores),
	})
}

func formatBound(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format(config.AnalysisDateFormat)
}
