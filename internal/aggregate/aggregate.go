// Package aggregate derives the dashboard's summary tables from the
// joined views: product revenue and sell probability, daily order
// volume, spend and customer counts by city and state, items per
// category, order status and review score summaries.
package aggregate

import (
	"sort"
	"time"

	"shoppulse/internal/dataset"
	"shoppulse/internal/pipeline"
)

// ProductRevenue is the per-product pivot: items sold, mean price,
// estimated revenue and the product's share of total sales.
type ProductRevenue struct {
	ProductID       string  `json:"product_id"`
	ItemsSold       int     `json:"items_sold"`
	MeanPrice       float64 `json:"mean_price"`
	Total           float64 `json:"total"`
	SellProbability float64 `json:"sell_probability"`
}

// DailyOrders is one approval day's order count and revenue.
type DailyOrders struct {
	Date       string  `json:"date"`
	OrderCount int     `json:"order_count"`
	Revenue    float64 `json:"revenue"`
}

// PlaceSpend is aggregate payment value for one city or state.
type PlaceSpend struct {
	Place string  `json:"place"`
	Total float64 `json:"total"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// PlaceCustomers is the distinct customer count for one city or state.
type PlaceCustomers struct {
	Place string `json:"place"`
	Count int    `json:"count"`
}

// CategoryCount is items sold for one product category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// StatusCount is the number of orders in one lifecycle status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// ScoreCount is the number of reviews carrying one score.
type ScoreCount struct {
	Score int `json:"score"`
	Count int `json:"count"`
}

// ProductRevenuePivot aggregates sales rows per product. Sell
// probability is the product's item count over the number of distinct
// products in the pivot; rows come back sorted by total, descending.
func ProductRevenuePivot(rows []pipeline.SalesRow) []ProductRevenue {
	type acc struct {
		items    int
		priceSum float64
	}
	byProduct := make(map[string]*acc)
	for _, row := range rows {
		a, ok := byProduct[row.ProductID]
		if !ok {
			a = &acc{}
			byProduct[row.ProductID] = a
		}
		a.items++
		a.priceSum += row.Price
	}

	numProducts := len(byProduct)
	pivot := make([]ProductRevenue, 0, numProducts)
	for id, a := range byProduct {
		meanPrice := a.priceSum / float64(a.items)
		pivot = append(pivot, ProductRevenue{
			ProductID:       id,
			ItemsSold:       a.items,
			MeanPrice:       meanPrice,
			Total:           float64(a.items) * meanPrice,
			SellProbability: float64(a.items) / float64(numProducts),
		})
	}
	sort.Slice(pivot, func(i, j int) bool {
		if pivot[i].Total != pivot[j].Total {
			return pivot[i].Total > pivot[j].Total
		}
		return pivot[i].ProductID < pivot[j].ProductID
	})
	return pivot
}

// DailyOrderSeries buckets payment rows by approval date and sums
// revenue over distinct orders per day, sorted chronologically.
func DailyOrderSeries(rows []pipeline.PaymentRow) []DailyOrders {
	type acc struct {
		orders  map[string]struct{}
		revenue float64
	}
	byDay := make(map[string]*acc)
	for _, row := range rows {
		if row.ApprovedAt.IsZero() {
			continue
		}
		day := row.ApprovedAt.Format("2006-01-02")
		a, ok := byDay[day]
		if !ok {
			a = &acc{orders: make(map[string]struct{})}
			byDay[day] = a
		}
		a.orders[row.OrderID] = struct{}{}
		a.revenue += row.Value
	}

	series := make([]DailyOrders, 0, len(byDay))
	for day, a := range byDay {
		series = append(series, DailyOrders{
			Date:       day,
			OrderCount: len(a.orders),
			Revenue:    a.revenue,
		})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series
}

// SpendByPlace aggregates payment values by the given key (city or
// state), sorted by total descending.
func SpendByPlace(rows []pipeline.PaymentRow, key func(pipeline.PaymentRow) string) []PlaceSpend {
	type acc struct {
		total float64
		count int
	}
	byPlace := make(map[string]*acc)
	for _, row := range rows {
		place := key(row)
		if place == "" {
			continue
		}
		a, ok := byPlace[place]
		if !ok {
			a = &acc{}
			byPlace[place] = a
		}
		a.total += row.Value
		a.count++
	}

	spends := make([]PlaceSpend, 0, len(byPlace))
	for place, a := range byPlace {
		spends = append(spends, PlaceSpend{
			Place: place,
			Total: a.total,
			Mean:  a.total / float64(a.count),
			Count: a.count,
		})
	}
	sort.Slice(spends, func(i, j int) bool {
		if spends[i].Total != spends[j].Total {
			return spends[i].Total > spends[j].Total
		}
		return spends[i].Place < spends[j].Place
	})
	return spends
}

// ByCity keys a payment row by customer city.
func ByCity(row pipeline.PaymentRow) string { return row.CustomerCity }

// ByState keys a payment row by customer state.
func ByState(row pipeline.PaymentRow) string { return row.CustomerState }

// CustomersByPlace counts distinct customer unique ids per place,
// sorted by count descending.
func CustomersByPlace(customers []dataset.Customer, key func(dataset.Customer) string) []PlaceCustomers {
	byPlace := make(map[string]map[string]struct{})
	for _, c := range customers {
		place := key(c)
		if place == "" || c.UniqueID == "" {
			continue
		}
		set, ok := byPlace[place]
		if !ok {
			set = make(map[string]struct{})
			byPlace[place] = set
		}
		set[c.UniqueID] = struct{}{}
	}

	counts := make([]PlaceCustomers, 0, len(byPlace))
	for place, set := range byPlace {
		counts = append(counts, PlaceCustomers{Place: place, Count: len(set)})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Place < counts[j].Place
	})
	return counts
}

// CustomerCity keys a customer by city.
func CustomerCity(c dataset.Customer) string { return c.City }

// CustomerState keys a customer by state.
func CustomerState(c dataset.Customer) string { return c.State }

// MostCommonPlace returns the top entry of a sorted place-count table.
func MostCommonPlace(counts []PlaceCustomers) string {
	if len(counts) == 0 {
		return ""
	}
	return counts[0].Place
}

// CategoryCounts tallies items sold per translated category. Products
// keep their raw category name when no translation exists; items whose
// product dropped out in cleaning are not counted.
func CategoryCounts(rows []pipeline.SalesRow, products []dataset.Product, translations []dataset.CategoryTranslation) []CategoryCount {
	english := make(map[string]string, len(translations))
	for _, t := range translations {
		english[t.Raw] = t.English
	}
	categoryByProduct := make(map[string]string, len(products))
	for _, p := range products {
		category := p.CategoryEnglish
		if category == "" {
			if translated, ok := english[p.Category]; ok {
				category = translated
			} else {
				category = p.Category
			}
		}
		categoryByProduct[p.ID] = category
	}

	byCategory := make(map[string]int)
	for _, row := range rows {
		category, ok := categoryByProduct[row.ProductID]
		if !ok {
			continue
		}
		byCategory[category]++
	}

	counts := make([]CategoryCount, 0, len(byCategory))
	for category, count := range byCategory {
		counts = append(counts, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Category < counts[j].Category
	})
	return counts
}

// StatusCounts tallies orders per lifecycle status, sorted by count
// descending.
func StatusCounts(orders []dataset.Order) []StatusCount {
	byStatus := make(map[string]int)
	for _, o := range orders {
		byStatus[o.Status]++
	}
	counts := make([]StatusCount, 0, len(byStatus))
	for status, count := range byStatus {
		counts = append(counts, StatusCount{Status: status, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Status < counts[j].Status
	})
	return counts
}

// ReviewScores builds the review-score histogram over the cleaned
// reviews, one row per score 1..5.
func ReviewScores(reviews []dataset.Review) []ScoreCount {
	byScore := make(map[int]int)
	for _, r := range reviews {
		byScore[r.Score]++
	}
	counts := make([]ScoreCount, 0, 5)
	for score := 1; score <= 5; score++ {
		counts = append(counts, ScoreCount{Score: score, Count: byScore[score]})
	}
	return counts
}

// MostCommonScore returns the score with the highest review count, ties
// resolved toward the lower score.
func MostCommonScore(counts []ScoreCount) int {
	best, bestCount := 0, -1
	for _, sc := range counts {
		if sc.Count > bestCount {
			best, bestCount = sc.Score, sc.Count
		}
	}
	return best
}

// ApprovalBounds returns the earliest and latest approval timestamps in
// the payment rows, the range the dashboard date picker offers.
func ApprovalBounds(rows []pipeline.PaymentRow) (time.Time, time.Time) {
	var min, max time.Time
	for _, row := range rows {
		if row.ApprovedAt.IsZero() {
			continue
		}
		if min.IsZero() || row.ApprovedAt.Before(min) {
			min = row.ApprovedAt
		}
		if max.IsZero() || row.ApprovedAt.After(max) {
			max = row.ApprovedAt
		}
	}
	return min, max
}
