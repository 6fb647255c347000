package exporter

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shoppulse/internal/analytics"
	"shoppulse/internal/regionstats"
	"shoppulse/internal/rfm"
)

func floatPtr(v float64) *float64 { return &v }

func testResult() *analytics.Result {
	return &analytics.Result{
		RunID:        "test-run",
		AnalysisDate: time.Date(2018, 9, 1, 0, 0, 0, 0, time.UTC),
		GeneratedAt:  time.Date(2018, 9, 2, 0, 0, 0, 0, time.UTC),
		RFM: []rfm.Record{
			{CustomerUniqueID: "u-1", Recency: 10, Frequency: 3, Monetary: 199.9, RScore: 4, FScore: 4, MScore: 4, Code: "444", Segment: "Best Customers"},
			{CustomerUniqueID: "u-2", Recency: 120, Frequency: 1, Monetary: 20, RScore: 1, FScore: 1, MScore: 1, Code: "111", Segment: "Lost Customers"},
		},
		SegmentCounts: []rfm.SegmentCount{
			{Segment: "Best Customers", Count: 1},
			{Segment: "Lost Customers", Count: 1},
		},
		RegionStats: []regionstats.RegionStat{
			{State: "AC", Mean: 80, Count: 1},
			{State: "SP", Mean: 109.95, Std: 127.21, Count: 2, CILow: floatPtr(-1033.0), CIHigh: floatPtr(1252.9)},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := strings.TrimPrefix(string(data), "\xEF\xBB\xBF")
	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestReportWriter_WriteAll(t *testing.T) {
	dir := t.TempDir()
	writer := NewReportWriter(dir, nil)

	require.NoError(t, writer.WriteAll(context.Background(), testResult()))

	for _, name := range []string{FileRFM, FileRegionStats, FileProductRevenue, FileDailyOrders, FileJSON, FileWorkbook} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "missing report %s", name)
	}
}

func TestReportWriter_WriteRFMCSV(t *testing.T) {
	dir := t.TempDir()
	writer := NewReportWriter(dir, nil)
	require.NoError(t, writer.WriteRFMCSV(testResult()))

	records := readCSV(t, filepath.Join(dir, FileRFM))
	require.Len(t, records, 3)
	assert.Equal(t, rfmHeaders(), records[0])
	assert.Equal(t, []string{"u-1", "10", "3", "199.90", "4", "4", "4", "444", "Best Customers"}, records[1])
}

func TestReportWriter_WriteRegionStatsCSV(t *testing.T) {
	dir := t.TempDir()
	writer := NewReportWriter(dir, nil)
	require.NoError(t, writer.WriteRegionStatsCSV(testResult()))

	records := readCSV(t, filepath.Join(dir, FileRegionStats))
	require.Len(t, records, 3)

	// Singleton state carries empty interval cells, not zeros
	assert.Equal(t, []string{"AC", "80.00", "0.00", "1", "", ""}, records[1])
	assert.Equal(t, "-1033.00", records[2][4])
	assert.Equal(t, "1252.90", records[2][5])
}

func TestReportWriter_WriteJSON(t *testing.T) {
	dir := t.TempDir()
	writer := NewReportWriter(dir, nil)
	require.NoError(t, writer.WriteJSON(testResult()))

	data, err := os.ReadFile(filepath.Join(dir, FileJSON))
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "analytics_v1", payload["format"])
	assert.NotEmpty(t, payload["generated_at"])

	result, ok := payload["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "test-run", result["run_id"])
}

func TestReportWriter_WriteWorkbook(t *testing.T) {
	dir := t.TempDir()
	writer := NewReportWriter(dir, nil)
	require.NoError(t, writer.WriteWorkbook(testResult()))

	f, err := excelize.OpenFile(filepath.Join(dir, FileWorkbook))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.ElementsMatch(t, []string{"RFM", "RegionStats", "ProductRevenue", "DailyOrders", "Segments"}, sheets)

	rows, err := f.GetRows("RFM")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, rfmHeaders(), rows[0])
	assert.Equal(t, "u-1", rows[1][0])
	assert.Equal(t, "444", rows[1][7])
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(nil)
	path := filepath.Join(dir, "nested", "out.csv")

	t.Run("creates directories and writes BOM", func(t *testing.T) {
		err := writer.WriteCSV(path, WriteOptions{
			Headers:   []string{"a", "b"},
			Records:   [][]string{{"1", "2"}},
			BOMPrefix: true,
		})
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "\xEF\xBB\xBF"))
	})

	t.Run("append skips headers", func(t *testing.T) {
		err := writer.WriteCSV(path, WriteOptions{
			Headers: []string{"a", "b"},
			Records: [][]string{{"3", "4"}},
			Append:  true,
		})
		require.NoError(t, err)

		records := readCSV(t, path)
		require.Len(t, records, 3)
		assert.Equal(t, []string{"3", "4"}, records[2])
	})
}
