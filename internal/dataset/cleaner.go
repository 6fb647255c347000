package dataset

import (
	"context"
	"fmt"
	"log/slog"
)

// Cleaner applies the row-exclusion rules ahead of the joins. Rules drop
// whole rows; no field is ever imputed. Empty results are legal and flow
// through as empty aggregates downstream.
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a cleaner.
func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger}
}

// Clean returns a filtered copy of the tables. The input is not mutated.
func (c *Cleaner) Clean(ctx context.Context, tables *Tables) *Tables {
	cleaned := &Tables{
		Customers:    tables.Customers,
		OrderItems:   tables.OrderItems,
		Payments:     tables.Payments,
		Sellers:      tables.Sellers,
		Translations: tables.Translations,
		Orders:       c.cleanOrders(ctx, tables.Orders),
		Products:     c.cleanProducts(ctx, tables.Products),
		Reviews:      c.cleanReviews(ctx, tables.Reviews),
		Geolocations: c.dedupGeolocations(ctx, tables.Geolocations),
	}
	return cleaned
}

// cleanOrders drops orders missing any required delivery timestamp.
func (c *Cleaner) cleanOrders(ctx context.Context, orders []Order) []Order {
	kept := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.HasDeliveryTimestamps() {
			kept = append(kept, o)
		}
	}
	c.logDropped(ctx, "orders", len(orders), len(kept))
	return kept
}

// cleanProducts drops products with any missing attribute.
func (c *Cleaner) cleanProducts(ctx context.Context, products []Product) []Product {
	kept := make([]Product, 0, len(products))
	for _, p := range products {
		if p.IsComplete() {
			kept = append(kept, p)
		}
	}
	c.logDropped(ctx, "products", len(products), len(kept))
	return kept
}

// cleanReviews drops reviews missing a comment title or message. This
// only narrows the review-score summary; the RFM and CI paths never
// read reviews.
func (c *Cleaner) cleanReviews(ctx context.Context, reviews []Review) []Review {
	kept := make([]Review, 0, len(reviews))
	for _, r := range reviews {
		if r.HasComment() {
			kept = append(kept, r)
		}
	}
	c.logDropped(ctx, "reviews", len(reviews), len(kept))
	return kept
}

// dedupGeolocations removes rows identical on every column.
func (c *Cleaner) dedupGeolocations(ctx context.Context, geos []Geolocation) []Geolocation {
	seen := make(map[string]struct{}, len(geos))
	kept := make([]Geolocation, 0, len(geos))
	for _, g := range geos {
		key := fmt.Sprintf("%s|%s|%.6f|%.6f|%s|%s", g.CustomerUniqueID, g.ZipPrefix, g.Lat, g.Lng, g.City, g.State)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, g)
	}
	c.logDropped(ctx, "geolocations", len(geos), len(kept))
	return kept
}

// MappingView deduplicates geolocation rows by customer unique id,
// keeping the first row per customer. This is the view the map overlay
// consumes; rows without a customer unique id are skipped.
func (c *Cleaner) MappingView(ctx context.Context, geos []Geolocation) []Geolocation {
	seen := make(map[string]struct{}, len(geos))
	kept := make([]Geolocation, 0, len(geos))
	for _, g := range geos {
		if g.CustomerUniqueID == "" {
			continue
		}
		if _, ok := seen[g.CustomerUniqueID]; ok {
			continue
		}
		seen[g.CustomerUniqueID] = struct{}{}
		kept = append(kept, g)
	}
	return kept
}

func (c *Cleaner) logDropped(ctx context.Context, tableName string, before, after int) {
	if before == after {
		return
	}
	c.logger.InfoContext(ctx, "dropped incomplete rows",
		slog.String("table", tableName),
		slog.Int("before", before),
		slog.Int("after", after),
		slog.Int("dropped", before-after))
}
