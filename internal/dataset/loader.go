package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "shoppulse/internal/errors"
)

// Canonical file names of the extracts inside the data directory.
const (
	FileCustomers    = "customers.csv"
	FileOrders       = "orders.csv"
	FileOrderItems   = "order_items.csv"
	FilePayments     = "order_payments.csv"
	FileReviews      = "order_reviews.csv"
	FileProducts     = "products.csv"
	FileSellers      = "sellers.csv"
	FileGeolocation  = "geolocation.csv"
	FileTranslations = "product_category_translation.csv"
)

const timestampFormat = "2006-01-02 15:04:05"

// Loader reads the CSV extracts from a data directory into typed tables.
// Columns are resolved by header name, not position, and a UTF-8 BOM on
// the first header cell is tolerated.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{dir: dir, logger: logger}
}

// LoadAll reads every extract concurrently. Loading is the only
// concurrent part of the system; everything downstream is a pure
// single-threaded transformation.
func (l *Loader) LoadAll(ctx context.Context) (*Tables, error) {
	tables := &Tables{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { var err error; tables.Customers, err = l.LoadCustomers(ctx); return err })
	g.Go(func() error { var err error; tables.Orders, err = l.LoadOrders(ctx); return err })
	g.Go(func() error { var err error; tables.OrderItems, err = l.LoadOrderItems(ctx); return err })
	g.Go(func() error { var err error; tables.Payments, err = l.LoadPayments(ctx); return err })
	g.Go(func() error { var err error; tables.Reviews, err = l.LoadReviews(ctx); return err })
	g.Go(func() error { var err error; tables.Products, err = l.LoadProducts(ctx); return err })
	g.Go(func() error { var err error; tables.Sellers, err = l.LoadSellers(ctx); return err })
	g.Go(func() error { var err error; tables.Geolocations, err = l.LoadGeolocations(ctx); return err })
	g.Go(func() error { var err error; tables.Translations, err = l.LoadTranslations(ctx); return err })

	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "loaded all extracts",
		slog.Int("customers", len(tables.Customers)),
		slog.Int("orders", len(tables.Orders)),
		slog.Int("order_items", len(tables.OrderItems)),
		slog.Int("payments", len(tables.Payments)),
		slog.Int("reviews", len(tables.Reviews)),
		slog.Int("products", len(tables.Products)),
		slog.Int("sellers", len(tables.Sellers)),
		slog.Int("geolocations", len(tables.Geolocations)))

	return tables, nil
}

// table is a raw CSV extract with header-resolved column access.
type table struct {
	columns map[string]int
	rows    [][]string
}

func (t *table) field(row []string, column string) string {
	idx, ok := t.columns[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// readTable reads and parses one CSV extract. Ragged rows are kept
// (FieldsPerRecord=-1); per-row tolerance is the caller's business.
func (l *Loader) readTable(filename string) (*table, error) {
	path := filepath.Join(l.dir, filename)
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read extract %s", filename), err)
	}

	// Strip UTF-8 BOM so the first header cell resolves
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		content = content[3:]
	}

	reader := csv.NewReader(strings.NewReader(string(content)))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to parse extract %s", filename), err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("extract %s has no header row", filename), nil)
	}

	columns := make(map[string]int, len(records[0]))
	for i, col := range records[0] {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		columns[strings.ToLower(col)] = i
	}

	return &table{columns: columns, rows: records[1:]}, nil
}

// LoadCustomers reads the customers extract.
func (l *Loader) LoadCustomers(ctx context.Context) ([]Customer, error) {
	t, err := l.readTable(FileCustomers)
	if err != nil {
		return nil, err
	}
	customers := make([]Customer, 0, len(t.rows))
	for _, row := range t.rows {
		c := Customer{
			ID:        t.field(row, "customer_id"),
			UniqueID:  t.field(row, "customer_unique_id"),
			ZipPrefix: t.field(row, "customer_zip_code_prefix"),
			City:      t.field(row, "customer_city"),
			State:     t.field(row, "customer_state"),
		}
		if c.ID == "" || c.UniqueID == "" {
			continue
		}
		customers = append(customers, c)
	}
	return customers, nil
}

// LoadOrders reads the orders extract.
func (l *Loader) LoadOrders(ctx context.Context) ([]Order, error) {
	t, err := l.readTable(FileOrders)
	if err != nil {
		return nil, err
	}
	orders := make([]Order, 0, len(t.rows))
	for _, row := range t.rows {
		o := Order{
			ID:                  t.field(row, "order_id"),
			CustomerID:          t.field(row, "customer_id"),
			Status:              t.field(row, "order_status"),
			PurchasedAt:         parseTimestamp(t.field(row, "order_purchase_timestamp")),
			ApprovedAt:          parseTimestamp(t.field(row, "order_approved_at")),
			DeliveredCarrierAt:  parseTimestamp(t.field(row, "order_delivered_carrier_date")),
			DeliveredCustomerAt: parseTimestamp(t.field(row, "order_delivered_customer_date")),
			EstimatedDeliveryAt: parseTimestamp(t.field(row, "order_estimated_delivery_date")),
		}
		if o.ID == "" || o.CustomerID == "" {
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// LoadOrderItems reads the order items extract.
func (l *Loader) LoadOrderItems(ctx context.Context) ([]OrderItem, error) {
	t, err := l.readTable(FileOrderItems)
	if err != nil {
		return nil, err
	}
	items := make([]OrderItem, 0, len(t.rows))
	for _, row := range t.rows {
		item := OrderItem{
			OrderID:         t.field(row, "order_id"),
			ItemID:          parseInt(t.field(row, "order_item_id")),
			ProductID:       t.field(row, "product_id"),
			SellerID:        t.field(row, "seller_id"),
			ShippingLimitAt: parseTimestamp(t.field(row, "shipping_limit_date")),
			Price:           parseFloat(t.field(row, "price")),
			FreightValue:    parseFloat(t.field(row, "freight_value")),
		}
		if item.OrderID == "" || item.ProductID == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// LoadPayments reads the payments extract.
func (l *Loader) LoadPayments(ctx context.Context) ([]Payment, error) {
	t, err := l.readTable(FilePayments)
	if err != nil {
		return nil, err
	}
	payments := make([]Payment, 0, len(t.rows))
	for _, row := range t.rows {
		p := Payment{
			OrderID:      t.field(row, "order_id"),
			Sequential:   parseInt(t.field(row, "payment_sequential")),
			Type:         t.field(row, "payment_type"),
			Installments: parseInt(t.field(row, "payment_installments")),
			Value:        parseFloat(t.field(row, "payment_value")),
		}
		if p.OrderID == "" {
			continue
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// LoadReviews reads the reviews extract.
func (l *Loader) LoadReviews(ctx context.Context) ([]Review, error) {
	t, err := l.readTable(FileReviews)
	if err != nil {
		return nil, err
	}
	reviews := make([]Review, 0, len(t.rows))
	for _, row := range t.rows {
		r := Review{
			ID:             t.field(row, "review_id"),
			OrderID:        t.field(row, "order_id"),
			Score:          parseInt(t.field(row, "review_score")),
			CommentTitle:   t.field(row, "review_comment_title"),
			CommentMessage: t.field(row, "review_comment_message"),
			CreatedAt:      parseTimestamp(t.field(row, "review_creation_date")),
		}
		if r.ID == "" || r.OrderID == "" {
			continue
		}
		reviews = append(reviews, r)
	}
	return reviews, nil
}

// LoadProducts reads the products extract and resolves translated
// category names when the column is present in the extract itself.
func (l *Loader) LoadProducts(ctx context.Context) ([]Product, error) {
	t, err := l.readTable(FileProducts)
	if err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(t.rows))
	for _, row := range t.rows {
		p := Product{
			ID:              t.field(row, "product_id"),
			Category:        t.field(row, "product_category_name"),
			CategoryEnglish: t.field(row, "product_category_name_english"),
			NameLength:      parseFloat(t.field(row, "product_name_lenght")),
			DescLength:      parseFloat(t.field(row, "product_description_lenght")),
			PhotosQty:       parseFloat(t.field(row, "product_photos_qty")),
			WeightGrams:     parseFloat(t.field(row, "product_weight_g")),
			LengthCm:        parseFloat(t.field(row, "product_length_cm")),
			HeightCm:        parseFloat(t.field(row, "product_height_cm")),
			WidthCm:         parseFloat(t.field(row, "product_width_cm")),
		}
		if p.ID == "" {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// LoadSellers reads the sellers extract.
func (l *Loader) LoadSellers(ctx context.Context) ([]Seller, error) {
	t, err := l.readTable(FileSellers)
	if err != nil {
		return nil, err
	}
	sellers := make([]Seller, 0, len(t.rows))
	for _, row := range t.rows {
		s := Seller{
			ID:        t.field(row, "seller_id"),
			ZipPrefix: t.field(row, "seller_zip_code_prefix"),
			City:      t.field(row, "seller_city"),
			State:     t.field(row, "seller_state"),
		}
		if s.ID == "" {
			continue
		}
		sellers = append(sellers, s)
	}
	return sellers, nil
}

// LoadGeolocations reads the geolocation extract.
func (l *Loader) LoadGeolocations(ctx context.Context) ([]Geolocation, error) {
	t, err := l.readTable(FileGeolocation)
	if err != nil {
		return nil, err
	}
	geos := make([]Geolocation, 0, len(t.rows))
	for _, row := range t.rows {
		g := Geolocation{
			CustomerUniqueID: t.field(row, "customer_unique_id"),
			ZipPrefix:        t.field(row, "geolocation_zip_code_prefix"),
			Lat:              parseFloat(t.field(row, "geolocation_lat")),
			Lng:              parseFloat(t.field(row, "geolocation_lng")),
			City:             t.field(row, "geolocation_city"),
			State:            t.field(row, "geolocation_state"),
		}
		if g.ZipPrefix == "" && g.CustomerUniqueID == "" {
			continue
		}
		geos = append(geos, g)
	}
	return geos, nil
}

// LoadTranslations reads the category translation extract.
func (l *Loader) LoadTranslations(ctx context.Context) ([]CategoryTranslation, error) {
	t, err := l.readTable(FileTranslations)
	if err != nil {
		return nil, err
	}
	translations := make([]CategoryTranslation, 0, len(t.rows))
	for _, row := range t.rows {
		ct := CategoryTranslation{
			Raw:     t.field(row, "product_category_name"),
			English: t.field(row, "product_category_name_english"),
		}
		if ct.Raw == "" {
			continue
		}
		translations = append(translations, ct)
	}
	return translations, nil
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(timestampFormat, s); err == nil {
		return ts
	}
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		return ts
	}
	return time.Time{}
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
