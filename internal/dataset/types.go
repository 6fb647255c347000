package dataset

import (
	"time"
)

// Customer is one row of the customers extract. ID is the per-order alias
// the orders table references; UniqueID is stable across a customer's
// orders and is the grouping key for every customer-level statistic.
type Customer struct {
	ID        string `json:"customer_id"`
	UniqueID  string `json:"customer_unique_id"`
	ZipPrefix string `json:"customer_zip_code_prefix"`
	City      string `json:"customer_city"`
	State     string `json:"customer_state"`
}

// Order is one row of the orders extract. Orders are immutable after
// ingestion; a zero timestamp marks a value missing in the extract.
type Order struct {
	ID                  string    `json:"order_id"`
	CustomerID          string    `json:"customer_id"`
	Status              string    `json:"order_status"`
	PurchasedAt         time.Time `json:"order_purchase_timestamp"`
	ApprovedAt          time.Time `json:"order_approved_at"`
	DeliveredCarrierAt  time.Time `json:"order_delivered_carrier_date"`
	DeliveredCustomerAt time.Time `json:"order_delivered_customer_date"`
	EstimatedDeliveryAt time.Time `json:"order_estimated_delivery_date"`
}

// HasDeliveryTimestamps reports whether the order carries every
// timestamp the cleaner requires.
func (o Order) HasDeliveryTimestamps() bool {
	return !o.ApprovedAt.IsZero() && !o.DeliveredCarrierAt.IsZero() && !o.DeliveredCustomerAt.IsZero()
}

// OrderItem is one row of the order items extract. Orders can carry
// multiple items; ItemID is the 1-based index within the order.
type OrderItem struct {
	OrderID         string    `json:"order_id"`
	ItemID          int       `json:"order_item_id"`
	ProductID       string    `json:"product_id"`
	SellerID        string    `json:"seller_id"`
	ShippingLimitAt time.Time `json:"shipping_limit_date"`
	Price           float64   `json:"price"`
	FreightValue    float64   `json:"freight_value"`
}

// Payment is one row of the payments extract. An order may have several
// payment rows; consumers aggregate by sum.
type Payment struct {
	OrderID      string  `json:"order_id"`
	Sequential   int     `json:"payment_sequential"`
	Type         string  `json:"payment_type"`
	Installments int     `json:"payment_installments"`
	Value        float64 `json:"payment_value"`
}

// Review is one row of the reviews extract. Reviews feed only the
// review-score summary, never the RFM or CI computations.
type Review struct {
	ID             string    `json:"review_id"`
	OrderID        string    `json:"order_id"`
	Score          int       `json:"review_score"`
	CommentTitle   string    `json:"review_comment_title"`
	CommentMessage string    `json:"review_comment_message"`
	CreatedAt      time.Time `json:"review_creation_date"`
}

// HasComment reports whether both comment fields are populated.
func (r Review) HasComment() bool {
	return r.CommentTitle != "" && r.CommentMessage != ""
}

// Product is one row of the products extract.
type Product struct {
	ID              string  `json:"product_id"`
	Category        string  `json:"product_category_name"`
	CategoryEnglish string  `json:"product_category_name_english"`
	NameLength      float64 `json:"product_name_lenght"`
	DescLength      float64 `json:"product_description_lenght"`
	PhotosQty       float64 `json:"product_photos_qty"`
	WeightGrams     float64 `json:"product_weight_g"`
	LengthCm        float64 `json:"product_length_cm"`
	HeightCm        float64 `json:"product_height_cm"`
	WidthCm         float64 `json:"product_width_cm"`
}

// IsComplete reports whether every product attribute is populated. Rows
// failing this are excluded whole; there is no field-level imputation.
func (p Product) IsComplete() bool {
	return p.ID != "" && p.Category != "" &&
		p.NameLength > 0 && p.DescLength > 0 && p.PhotosQty > 0 &&
		p.WeightGrams > 0 && p.LengthCm > 0 && p.HeightCm > 0 && p.WidthCm > 0
}

// Seller is one row of the sellers extract.
type Seller struct {
	ID        string `json:"seller_id"`
	ZipPrefix string `json:"seller_zip_code_prefix"`
	City      string `json:"seller_city"`
	State     string `json:"seller_state"`
}

// Geolocation is one row of the geolocation extract, already joined to a
// customer unique id in the silver extract used for mapping.
type Geolocation struct {
	CustomerUniqueID string  `json:"customer_unique_id"`
	ZipPrefix        string  `json:"geolocation_zip_code_prefix"`
	Lat              float64 `json:"geolocation_lat"`
	Lng              float64 `json:"geolocation_lng"`
	City             string  `json:"geolocation_city"`
	State            string  `json:"geolocation_state"`
}

// CategoryTranslation maps a raw category name to its English name.
type CategoryTranslation struct {
	Raw     string `json:"product_category_name"`
	English string `json:"product_category_name_english"`
}

// Tables bundles the in-memory extracts a pipeline run operates on.
// All slices are pipeline-local values; no stage mutates its input.
type Tables struct {
	Customers    []Customer
	Orders       []Order
	OrderItems   []OrderItem
	Payments     []Payment
	Reviews      []Review
	Products     []Product
	Sellers      []Seller
	Geolocations []Geolocation
	Translations []CategoryTranslation
}
