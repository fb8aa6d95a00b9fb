// Package analytics contains the canonical analytics records produced by the
// normalizer. Field names follow the GA4 event parameter vocabulary; optional
// fields are pointers or omitempty so an absent value drops the key entirely
// instead of sending an empty one.
package analytics

// Canonical event names.
const (
	PageView          = "page_view"
	ViewItemList      = "view_item_list"
	ViewItem          = "view_item"
	AddToCart         = "add_to_cart"
	ViewCart          = "view_cart"
	RemoveFromCart    = "remove_from_cart"
	BeginCheckout     = "begin_checkout"
	AddShippingInfo   = "add_shipping_info"
	AddPaymentInfo    = "add_payment_info"
	Purchase          = "purchase"
	ViewSearchResults = "view_search_results"
	FormSubmit        = "form_submit"
)

// Event is one canonical analytics event.
type Event struct {
	Name          string   `json:"-"`
	PageLocation  string   `json:"page_location"`
	PageReferrer  *string  `json:"page_referrer,omitempty"`
	PageTitle     *string  `json:"page_title,omitempty"`
	Currency      *string  `json:"currency,omitempty"`
	Value         *float64 `json:"value,omitempty"`
	TransactionID *string  `json:"transaction_id,omitempty"`
	Tax           *float64 `json:"tax,omitempty"`
	Shipping      *float64 `json:"shipping,omitempty"`
	Coupon        *string  `json:"coupon,omitempty"`
	Affiliation   *string  `json:"affiliation,omitempty"`
	ShippingTier  *string  `json:"shipping_tier,omitempty"`
	PaymentType   *string  `json:"payment_type,omitempty"`
	ItemListID    *string  `json:"item_list_id,omitempty"`
	ItemListName  *string  `json:"item_list_name,omitempty"`
	Items         []Item   `json:"items,omitempty"`
	SearchTerm    *string  `json:"search_term,omitempty"`
	FormID        *string  `json:"form_id,omitempty"`
	FormAction    *string  `json:"form_action,omitempty"`
}

// Item is one canonical line item.
type Item struct {
	ItemID       string  `json:"item_id,omitempty"`
	ItemName     string  `json:"item_name,omitempty"`
	ItemBrand    string  `json:"item_brand,omitempty"`
	ItemCategory string  `json:"item_category,omitempty"`
	ItemVariant  string  `json:"item_variant,omitempty"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
	Index        int     `json:"index"`
	ItemListName string  `json:"item_list_name,omitempty"`
	Coupon       string  `json:"coupon,omitempty"`
	Discount     float64 `json:"discount"`
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

// OptionalString returns nil for the empty string and a pointer otherwise.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
