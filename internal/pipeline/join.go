// Package pipeline performs the relational joins that feed the
// analytics stages. All joins are inner joins: a row whose foreign key
// has no match is silently excluded so incomplete records contribute to
// no aggregate.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"shoppulse/internal/dataset"
	"shoppulse/internal/regionstats"
	"shoppulse/internal/rfm"
)

// SalesRow is one order-item row joined to its order and customer
// (order_items ⋈ orders ⋈ customers).
type SalesRow struct {
	OrderID          string
	ItemID           int
	ProductID        string
	SellerID         string
	Price            float64
	FreightValue     float64
	Status           string
	PurchasedAt      time.Time
	ApprovedAt       time.Time
	CustomerID       string
	CustomerUniqueID string
	CustomerCity     string
	CustomerState    string
}

// PaymentRow is one payment row joined to its order and customer
// (payments ⋈ orders ⋈ customers).
type PaymentRow struct {
	OrderID          string
	Value            float64
	ApprovedAt       time.Time
	CustomerUniqueID string
	CustomerCity     string
	CustomerState    string
}

// Joiner builds the joined views.
type Joiner struct {
	logger *slog.Logger
}

// NewJoiner creates a joiner.
func NewJoiner(logger *slog.Logger) *Joiner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Joiner{logger: logger}
}

// SalesRows joins order items to orders on order_id and to customers on
// customer_id. Items referencing an unknown order, or orders referencing
// an unknown customer, drop out.
func (j *Joiner) SalesRows(ctx context.Context, tables *dataset.Tables) []SalesRow {
	ordersByID := make(map[string]dataset.Order, len(tables.Orders))
	for _, o := range tables.Orders {
		ordersByID[o.ID] = o
	}
	customersByID := make(map[string]dataset.Customer, len(tables.Customers))
	for _, c := range tables.Customers {
		customersByID[c.ID] = c
	}

	rows := make([]SalesRow, 0, len(tables.OrderItems))
	for _, item := range tables.OrderItems {
		order, ok := ordersByID[item.OrderID]
		if !ok {
			continue
		}
		customer, ok := customersByID[order.CustomerID]
		if !ok {
			continue
		}
		rows = append(rows, SalesRow{
			OrderID:          item.OrderID,
			ItemID:           item.ItemID,
			ProductID:        item.ProductID,
			SellerID:         item.SellerID,
			Price:            item.Price,
			FreightValue:     item.FreightValue,
			Status:           order.Status,
			PurchasedAt:      order.PurchasedAt,
			ApprovedAt:       order.ApprovedAt,
			CustomerID:       customer.ID,
			CustomerUniqueID: customer.UniqueID,
			CustomerCity:     customer.City,
			CustomerState:    customer.State,
		})
	}

	j.logger.InfoContext(ctx, "joined sales rows",
		slog.Int("order_items", len(tables.OrderItems)),
		slog.Int("joined", len(rows)),
		slog.Int("excluded", len(tables.OrderItems)-len(rows)))

	return rows
}

// PaymentRows joins payments to orders on order_id and to customers on
// customer_id.
func (j *Joiner) PaymentRows(ctx context.Context, tables *dataset.Tables) []PaymentRow {
	ordersByID := make(map[string]dataset.Order, len(tables.Orders))
	for _, o := range tables.Orders {
		ordersByID[o.ID] = o
	}
	customersByID := make(map[string]dataset.Customer, len(tables.Customers))
	for _, c := range tables.Customers {
		customersByID[c.ID] = c
	}

	rows := make([]PaymentRow, 0, len(tables.Payments))
	for _, payment := range tables.Payments {
		order, ok := ordersByID[payment.OrderID]
		if !ok {
			continue
		}
		customer, ok := customersByID[order.CustomerID]
		if !ok {
			continue
		}
		rows = append(rows, PaymentRow{
			OrderID:          payment.OrderID,
			Value:            payment.Value,
			ApprovedAt:       order.ApprovedAt,
			CustomerUniqueID: customer.UniqueID,
			CustomerCity:     customer.City,
			CustomerState:    customer.State,
		})
	}

	j.logger.InfoContext(ctx, "joined payment rows",
		slog.Int("payments", len(tables.Payments)),
		slog.Int("joined", len(rows)),
		slog.Int("excluded", len(tables.Payments)-len(rows)))

	return rows
}

// Purchases projects sales rows onto the RFM engine's input.
func Purchases(rows []SalesRow) []rfm.Purchase {
	purchases := make([]rfm.Purchase, 0, len(rows))
	for _, row := range rows {
		purchases = append(purchases, rfm.Purchase{
			CustomerUniqueID: row.CustomerUniqueID,
			PurchasedAt:      row.PurchasedAt,
			Price:            row.Price,
		})
	}
	return purchases
}

// CustomerSpend folds payment rows into one spend total per unique
// customer, keeping the customer's state for the region grouping.
func CustomerSpend(rows []PaymentRow) []regionstats.CustomerSpend {
	totals := make(map[string]*regionstats.CustomerSpend)
	order := make([]string, 0)
	for _, row := range rows {
		if row.CustomerUniqueID == "" {
			continue
		}
		spend, ok := totals[row.CustomerUniqueID]
		if !ok {
			spend = &regionstats.CustomerSpend{
				CustomerUniqueID: row.CustomerUniqueID,
				State:            row.CustomerState,
			}
			totals[row.CustomerUniqueID] = spend
			order = append(order, row.CustomerUniqueID)
		}
		spend.Total += row.Value
	}
	result := make([]regionstats.CustomerSpend, 0, len(order))
	for _, id := range order {
		result = append(result, *totals[id])
	}
	return result
}

// FilterByApproval keeps sales rows whose order approval falls inside
// [from, to]. Zero bounds are open.
func FilterByApproval(rows []SalesRow, from, to time.Time) []SalesRow {
	kept := make([]SalesRow, 0, len(rows))
	for _, row := range rows {
		if inWindow(row.ApprovedAt, from, to) {
			kept = append(kept, row)
		}
	}
	return kept
}

// FilterPaymentsByApproval is FilterByApproval for payment rows.
func FilterPaymentsByApproval(rows []PaymentRow, from, to time.Time) []PaymentRow {
	kept := make([]PaymentRow, 0, len(rows))
	for _, row := range rows {
		if inWindow(row.ApprovedAt, from, to) {
			kept = append(kept, row)
		}
	}
	return kept
}

func inWindow(ts time.Time, from, to time.Time) bool {
	if !from.IsZero() && ts.Before(from) {
		return false
	}
	if !to.IsZero() && ts.After(to) {
		return false
	}
	return true
}
