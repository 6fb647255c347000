package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "shoppulse/internal/errors"
)

func writeExtract(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// writeAllExtracts seeds a data directory with one small, consistent row
// per extract.
func writeAllExtracts(t *testing.T, dir string) {
	t.Helper()
	writeExtract(t, dir, FileCustomers,
		"customer_id,customer_unique_id,customer_zip_code_prefix,customer_city,customer_state\n"+
			"cust-1,u-1,01310,sao paulo,SP\n")
	writeExtract(t, dir, FileOrders,
		"order_id,customer_id,order_status,order_purchase_timestamp,order_approved_at,order_delivered_carrier_date,order_delivered_customer_date,order_estimated_delivery_date\n"+
			"order-1,cust-1,delivered,2018-05-10 11:00:00,2018-05-10 12:00:00,2018-05-11 08:00:00,2018-05-15 14:30:00,2018-05-25 00:00:00\n")
	writeExtract(t, dir, FileOrderItems,
		"order_id,order_item_id,product_id,seller_id,shipping_limit_date,price,freight_value\n"+
			"order-1,1,prod-1,sel-1,2018-05-12 00:00:00,129.90,18.50\n")
	writeExtract(t, dir, FilePayments,
		"order_id,payment_sequential,payment_type,payment_installments,payment_value\n"+
			"order-1,1,credit_card,3,148.40\n")
	writeExtract(t, dir, FileReviews,
		"review_id,order_id,review_score,review_comment_title,review_comment_message,review_creation_date\n"+
			"rev-1,order-1,5,otimo,chegou antes do prazo,2018-05-16 00:00:00\n")
	writeExtract(t, dir, FileProducts,
		"product_id,product_category_name,product_name_lenght,product_description_lenght,product_photos_qty,product_weight_g,product_length_cm,product_height_cm,product_width_cm\n"+
			"prod-1,informatica_acessorios,40,250,2,500,20,10,15\n")
	writeExtract(t, dir, FileSellers,
		"seller_id,seller_zip_code_prefix,seller_city,seller_state\n"+
			"sel-1,04571,sao paulo,SP\n")
	writeExtract(t, dir, FileGeolocation,
		"customer_unique_id,geolocation_zip_code_prefix,geolocation_lat,geolocation_lng,geolocation_city,geolocation_state\n"+
			"u-1,01310,-23.561684,-46.655981,sao paulo,SP\n")
	writeExtract(t, dir, FileTranslations,
		"product_category_name,product_category_name_english\n"+
			"informatica_acessorios,computers_accessories\n")
}

func TestLoader_LoadAll(t *testing.T) {
	dir := t.TempDir()
	writeAllExtracts(t, dir)

	tables, err := NewLoader(dir, nil).LoadAll(context.Background())
	require.NoError(t, err)

	require.Len(t, tables.Customers, 1)
	assert.Equal(t, "u-1", tables.Customers[0].UniqueID)

	require.Len(t, tables.Orders, 1)
	order := tables.Orders[0]
	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, "delivered", order.Status)
	assert.Equal(t, time.Date(2018, 5, 10, 12, 0, 0, 0, time.UTC), order.ApprovedAt)
	assert.True(t, order.HasDeliveryTimestamps())

	require.Len(t, tables.OrderItems, 1)
	assert.InDelta(t, 129.90, tables.OrderItems[0].Price, 1e-9)
	assert.Equal(t, 1, tables.OrderItems[0].ItemID)

	require.Len(t, tables.Payments, 1)
	assert.Equal(t, "credit_card", tables.Payments[0].Type)
	assert.Equal(t, 3, tables.Payments[0].Installments)

	require.Len(t, tables.Reviews, 1)
	assert.Equal(t, 5, tables.Reviews[0].Score)

	require.Len(t, tables.Products, 1)
	assert.True(t, tables.Products[0].IsComplete())

	require.Len(t, tables.Sellers, 1)
	require.Len(t, tables.Geolocations, 1)
	assert.InDelta(t, -23.561684, tables.Geolocations[0].Lat, 1e-9)

	require.Len(t, tables.Translations, 1)
	assert.Equal(t, "computers_accessories", tables.Translations[0].English)
}

func TestLoader_LoadAll_MissingFile(t *testing.T) {
	dir := t.TempDir()
	writeAllExtracts(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, FileOrders)))

	_, err := NewLoader(dir, nil).LoadAll(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestLoader_LoadCustomers(t *testing.T) {
	t.Run("skips rows missing key columns", func(t *testing.T) {
		dir := t.TempDir()
		writeExtract(t, dir, FileCustomers,
			"customer_id,customer_unique_id,customer_zip_code_prefix,customer_city,customer_state\n"+
				"cust-1,u-1,01310,sao paulo,SP\n"+
				",u-2,20000,rio de janeiro,RJ\n"+
				"cust-3,,30100,belo horizonte,MG\n")

		customers, err := NewLoader(dir, nil).LoadCustomers(context.Background())
		require.NoError(t, err)
		require.Len(t, customers, 1)
		assert.Equal(t, "cust-1", customers[0].ID)
	})

	t.Run("strips a UTF-8 BOM from the header", func(t *testing.T) {
		dir := t.TempDir()
		writeExtract(t, dir, FileCustomers,
			"\xEF\xBB\xBFcustomer_id,customer_unique_id,customer_zip_code_prefix,customer_city,customer_state\n"+
				"cust-1,u-1,01310,sao paulo,SP\n")

		customers, err := NewLoader(dir, nil).LoadCustomers(context.Background())
		require.NoError(t, err)
		require.Len(t, customers, 1)
		assert.Equal(t, "cust-1", customers[0].ID)
	})

	t.Run("resolves columns by header name not position", func(t *testing.T) {
		dir := t.TempDir()
		writeExtract(t, dir, FileCustomers,
			"customer_state,customer_id,customer_city,customer_unique_id,customer_zip_code_prefix\n"+
				"SP,cust-1,sao paulo,u-1,01310\n")

		customers, err := NewLoader(dir, nil).LoadCustomers(context.Background())
		require.NoError(t, err)
		require.Len(t, customers, 1)
		assert.Equal(t, "SP", customers[0].State)
		assert.Equal(t, "u-1", customers[0].UniqueID)
	})
}

func TestLoader_LoadOrders_MissingTimestamps(t *testing.T) {
	dir := t.TempDir()
	writeExtract(t, dir, FileOrders,
		"order_id,customer_id,order_status,order_purchase_timestamp,order_approved_at,order_delivered_carrier_date,order_delivered_customer_date,order_estimated_delivery_date\n"+
			"order-1,cust-1,shipped,2018-05-10 11:00:00,2018-05-10 12:00:00,,,2018-05-25 00:00:00\n")

	orders, err := NewLoader(dir, nil).LoadOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].DeliveredCarrierAt.IsZero())
	assert.False(t, orders[0].HasDeliveryTimestamps())
}

func TestLoader_EmptyExtract(t *testing.T) {
	dir := t.TempDir()
	writeExtract(t, dir, FileSellers, "")

	_, err := NewLoader(dir, nil).LoadSellers(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{name: "full timestamp", input: "2018-05-10 12:00:00", want: time.Date(2018, 5, 10, 12, 0, 0, 0, time.UTC)},
		{name: "date only", input: "2018-05-10", want: time.Date(2018, 5, 10, 0, 0, 0, 0, time.UTC)},
		{name: "empty", input: "", want: time.Time{}},
		{name: "garbage", input: "not-a-date", want: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTimestamp(tt.input))
		})
	}
}
