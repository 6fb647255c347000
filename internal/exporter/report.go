package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"shoppulse/internal/analytics"
	apperrors "shoppulse/internal/errors"
)

// Report file names inside the reports directory.
const (
	FileRFM            = "rfm_segments.csv"
	FileRegionStats    = "region_stats.csv"
	FileProductRevenue = "product_revenue.csv"
	FileDailyOrders    = "daily_orders.csv"
	FileJSON           = "analytics.json"
	FileWorkbook       = "analytics.xlsx"
)

// ReportWriter renders one analytics result into the reports directory.
type ReportWriter struct {
	dir    string
	csv    *CSVWriter
	logger *slog.Logger
}

// NewReportWriter creates a report writer rooted at dir.
func NewReportWriter(dir string, logger *slog.Logger) *ReportWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportWriter{dir: dir, csv: NewCSVWriter(logger), logger: logger}
}

// WriteAll writes every report format.
func (w *ReportWriter) WriteAll(ctx context.Context, result *analytics.Result) error {
	if err := w.WriteRFMCSV(result); err != nil {
		return err
	}
	if err := w.WriteRegionStatsCSV(result); err != nil {
		return err
	}
	if err := w.WriteProductRevenueCSV(result); err != nil {
		return err
	}
	if err := w.WriteDailyOrdersCSV(result); err != nil {
		return err
	}
	if err := w.WriteJSON(result); err != nil {
		return err
	}
	if err := w.WriteWorkbook(result); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "wrote analytics reports",
		slog.String("dir", w.dir),
		slog.String("run_id", result.RunID))
	return nil
}

// WriteRFMCSV writes the scored customer table.
func (w *ReportWriter) WriteRFMCSV(result *analytics.Result) error {
	records := make([][]string, 0, len(result.RFM))
	for _, rec := range result.RFM {
		records = append(records, []string{
			rec.CustomerUniqueID,
			strconv.Itoa(rec.Recency),
			strconv.Itoa(rec.Frequency),
			fmt.Sprintf("%.2f", rec.Monetary),
			strconv.Itoa(rec.RScore),
			strconv.Itoa(rec.FScore),
			strconv.Itoa(rec.MScore),
			rec.Code,
			rec.Segment,
		})
	}
	return w.csv.WriteSimpleCSV(filepath.Join(w.dir, FileRFM), rfmHeaders(), records)
}

// WriteRegionStatsCSV writes the per-state interval table. Undefined
// interval bounds come out as empty cells, never zeros.
func (w *ReportWriter) WriteRegionStatsCSV(result *analytics.Result) error {
	records := make([][]string, 0, len(result.RegionStats))
	for _, rs := range result.RegionStats {
		records = append(records, []string{
			rs.State,
			fmt.Sprintf("%.2f", rs.Mean),
			fmt.Sprintf("%.2f", rs.Std),
			strconv.Itoa(rs.Count),
			formatBound(rs.CILow),
			formatBound(rs.CIHigh),
		})
	}
	return w.csv.WriteSimpleCSV(filepath.Join(w.dir, FileRegionStats), regionHeaders(), records)
}

// WriteProductRevenueCSV writes the product pivot.
func (w *ReportWriter) WriteProductRevenueCSV(result *analytics.Result) error {
	records := make([][]string, 0, len(result.ProductRevenue))
	for _, pr := range result.ProductRevenue {
		records = append(records, []string{
			pr.ProductID,
			strconv.Itoa(pr.ItemsSold),
			fmt.Sprintf("%.2f", pr.MeanPrice),
			fmt.Sprintf("%.2f", pr.Total),
			fmt.Sprintf("%.6f", pr.SellProbability),
		})
	}
	return w.csv.WriteSimpleCSV(filepath.Join(w.dir, FileProductRevenue), productHeaders(), records)
}

// WriteDailyOrdersCSV writes the daily order series.
func (w *ReportWriter) WriteDailyOrdersCSV(result *analytics.Result) error {
	records := make([][]string, 0, len(result.DailyOrders))
	for _, d := range result.DailyOrders {
		records = append(records, []string{
			d.Date,
			strconv.Itoa(d.OrderCount),
			fmt.Sprintf("%.2f", d.Revenue),
		})
	}
	return w.csv.WriteSimpleCSV(filepath.Join(w.dir, FileDailyOrders), dailyHeaders(), records)
}

// WriteJSON writes the full result with metadata for the web interface.
func (w *ReportWriter) WriteJSON(result *analytics.Result) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return apperrors.NewStorageError("failed to create reports directory", err)
	}

	payload := map[string]interface{}{
		"result":       result,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"format":       "analytics_v1",
	}

	file, err := os.Create(filepath.Join(w.dir, FileJSON))
	if err != nil {
		return apperrors.NewStorageError("failed to create JSON report", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return apperrors.NewStorageError("failed to encode JSON report", err)
	}
	return nil
}

// WriteWorkbook writes a single Excel workbook with one sheet per
// report table.
func (w *ReportWriter) WriteWorkbook(result *analytics.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeSheet(f, "RFM", rfmHeaders(), func(row int) []interface{} {
		if row >= len(result.RFM) {
			return nil
		}
		rec := result.RFM[row]
		return []interface{}{rec.CustomerUniqueID, rec.Recency, rec.Frequency, rec.Monetary,
			rec.RScore, rec.FScore, rec.MScore, rec.Code, rec.Segment}
	}); err != nil {
		return err
	}

	if err := w.writeSheet(f, "RegionStats", regionHeaders(), func(row int) []interface{} {
		if row >= len(result.RegionStats) {
			return nil
		}
		rs := result.RegionStats[row]
		cells := []interface{}{rs.State, rs.Mean, rs.Std, rs.Count, nil, nil}
		if rs.CILow != nil {
			cells[4] = *rs.CILow
		}
		if rs.CIHigh != nil {
			cells[5] = *rs.CIHigh
		}
		return cells
	}); err != nil {
		return err
	}

	if err := w.writeSheet(f, "ProductRevenue", productHeaders(), func(row int) []interface{} {
		if row >= len(result.ProductRevenue) {
			return nil
		}
		pr := result.ProductRevenue[row]
		return []interface{}{pr.ProductID, pr.ItemsSold, pr.MeanPrice, pr.Total, pr.SellProbability}
	}); err != nil {
		return err
	}

	if err := w.writeSheet(f, "DailyOrders", dailyHeaders(), func(row int) []interface{} {
		if row >= len(result.DailyOrders) {
			return nil
		}
		d := result.DailyOrders[row]
		return []interface{}{d.Date, d.OrderCount, d.Revenue}
	}); err != nil {
		return err
	}

	if err := w.writeSheet(f, "Segments", []string{"segment", "count"}, func(row int) []interface{} {
		if row >= len(result.SegmentCounts) {
			return nil
		}
		sc := result.SegmentCounts[row]
		return []interface{}{sc.Segment, sc.Count}
	}); err != nil {
		return err
	}

	// The default sheet excelize creates is replaced by the first report
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return apperrors.NewStorageError("failed to drop default sheet", err)
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return apperrors.NewStorageError("failed to create reports directory", err)
	}
	if err := f.SaveAs(filepath.Join(w.dir, FileWorkbook)); err != nil {
		return apperrors.NewStorageError("failed to save Excel workbook", err)
	}
	return nil
}

func (w *ReportWriter) writeSheet(f *excelize.File, sheet string, headers []string, rowAt func(int) []interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create sheet %s", sheet), err)
	}

	headerCells := make([]interface{}, len(headers))
	for i, h := range headers {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerCells); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to write header of sheet %s", sheet), err)
	}

	for row := 0; ; row++ {
		cells := rowAt(row)
		if cells == nil {
			break
		}
		cell, err := excelize.CoordinatesToCellName(1, row+2)
		if err != nil {
			return apperrors.NewStorageError("failed to compute cell coordinates", err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write row of sheet %s", sheet), err)
		}
	}
	return nil
}

func rfmHeaders() []string {
	return []string{"customer_unique_id", "recency", "frequency", "monetary", "r_score", "f_score", "m_score", "code", "segment"}
}

func regionHeaders() []string {
	return []string{"state", "mean", "std", "count", "ci_low", "ci_hi"}
}

func productHeaders() []string {
	return []string{"product_id", "items_sold", "mean_price", "total", "sell_probability"}
}

func dailyHeaders() []string {
	return []string{"date", "order_count", "revenue"}
}

func formatBound(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}
