package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoppulse/internal/analytics"
	apperrors "shoppulse/internal/errors"
	"shoppulse/internal/rfm"
)

// fakeService records the window it was called with and returns a
// canned result or error.
type fakeService struct {
	result *analytics.Result
	err    error

	from, to time.Time
	calls    int
}

func (f *fakeService) Run(ctx context.Context, from, to time.Time) (*analytics.Result, error) {
	f.calls++
	f.from, f.to = from, to
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeService) DateBounds() (time.Time, time.Time) {
	return time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2018, 8, 30, 0, 0, 0, 0, time.UTC)
}

func fakeResult() *analytics.Result {
	return &analytics.Result{
		RunID:        "run-1",
		AnalysisDate: time.Date(2018, 9, 1, 0, 0, 0, 0, time.UTC),
		RFM: []rfm.Record{
			{CustomerUniqueID: "u-1", Code: "444", Segment: "Best Customers"},
		},
		SegmentCounts: []rfm.SegmentCount{
			{Segment: "Best Customers", Count: 1},
		},
		MostCommonState: "SP",
		MostCommonScore: 5,
	}
}

func doRequest(t *testing.T, svc AnalyticsService, target string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewAnalyticsHandler(svc, nil)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAnalyticsHandler_GetRFM(t *testing.T) {
	svc := &fakeService{result: fakeResult()}
	rec := doRequest(t, svc, "/rfm")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.EqualValues(t, 1, body["count"])

	data, ok := body["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "u-1", first["customer_unique_id"])
	assert.Equal(t, "444", first["code"])
}

func TestAnalyticsHandler_GetSummary(t *testing.T) {
	svc := &fakeService{result: fakeResult()}
	rec := doRequest(t, svc, "/summary")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "run-1", data["run_id"])
	assert.Equal(t, "2018-09-01", data["analysis_date"])
	assert.Equal(t, "2017-01-01", data["date_min"])
	assert.Equal(t, "2018-08-30", data["date_max"])
	assert.Equal(t, "SP", data["most_common_state"])
}

func TestAnalyticsHandler_DateWindow(t *testing.T) {
	svc := &fakeService{result: fakeResult()}
	rec := doRequest(t, svc, "/rfm?from=2018-01-01&to=2018-06-30")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, svc.calls)
	assert.Equal(t, time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), svc.from)
	// The upper bound covers the whole end day
	assert.Equal(t, time.Date(2018, 6, 30, 23, 59, 59, 999999999, time.UTC), svc.to)
}

func TestAnalyticsHandler_InvalidWindow(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{name: "bad from format", target: "/rfm?from=01-01-2018"},
		{name: "bad to format", target: "/rfm?to=notadate"},
		{name: "from after to", target: "/rfm?from=2018-06-30&to=2018-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{result: fakeResult()}
			rec := doRequest(t, svc, tt.target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, 0, svc.calls, "service must not run with an invalid window")

			body := decodeBody(t, rec)
			assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
		})
	}
}

func TestAnalyticsHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "degenerate distribution maps to 422",
			err:        apperrors.NewDegenerateDistributionError("recency", 1),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "storage error maps to opaque 500",
			err:        apperrors.NewStorageError("disk gone", nil),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{err: tt.err}
			rec := doRequest(t, svc, "/region-stats")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAnalyticsHandler_AllRoutes(t *testing.T) {
	routes := []string{
		"/summary",
		"/rfm",
		"/rfm/segments",
		"/region-stats",
		"/products/revenue",
		"/orders/daily",
		"/customers/by-state",
		"/reviews/scores",
	}

	for _, route := range routes {
		t.Run(route, func(t *testing.T) {
			svc := &fakeService{result: fakeResult()}
			rec := doRequest(t, svc, route)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "success", decodeBody(t, rec)["status"])
		})
	}
}
