package storefront

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

// Amount is a decimal quantity as it arrived on the wire. It accepts a JSON
// string, number or null and keeps the raw text; numeric interpretation is
// left to the normalizer so malformed input never fails decoding.
type Amount string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	*a = Amount(rawScalar(b))
	return nil
}

// ID is an identifier that may arrive as a JSON string or number.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	*id = ID(rawScalar(b))
	return nil
}

// String returns the identifier text.
func (id ID) String() string { return string(id) }

// Quantity is a line quantity. Strings and fractional numbers are accepted
// and rounded to the nearest whole unit; anything unparsable decodes as zero.
type Quantity int

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(rawScalar(b), 64)
	if err != nil || math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
		*q = 0
		return nil //nolint:nilerr // tolerant decoding
	}
	*q = Quantity(math.Round(f))
	return nil
}

// rawScalar unquotes JSON strings, maps null to "" and returns any other
// token verbatim.
func rawScalar(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return ""
	}
	if b[0] == '"' {
		if s, err := strconv.Unquote(string(b)); err == nil {
			return s
		}
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			return s
		}
		return ""
	}
	return string(b)
}

// Money is a monetary amount. On the wire it is usually
// {"amount": ..., "currencyCode": ...} but a bare string or number is
// accepted as the amount.
type Money struct {
	Amount       Amount `json:"amount"`
	CurrencyCode string `json:"currencyCode,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Money) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		type plain Money
		var p plain
		if err := json.Unmarshal(trimmed, &p); err != nil {
			// A mistyped member only loses that member; anything else
			// degrades to a zero amount.
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				*m = Money{}
				return nil //nolint:nilerr // tolerant decoding
			}
		}
		*m = Money(p)
		return nil
	}
	*m = Money{Amount: Amount(rawScalar(trimmed))}
	return nil
}

// Product is the catalog product a variant belongs to.
type Product struct {
	ID     ID     `json:"id,omitempty"`
	Title  string `json:"title,omitempty"`
	Vendor string `json:"vendor,omitempty"`
	Type   string `json:"type,omitempty"`
}

// ProductVariant is a purchasable variant of a product.
type ProductVariant struct {
	ID      ID       `json:"id,omitempty"`
	Title   string   `json:"title,omitempty"`
	SKU     string   `json:"sku,omitempty"`
	Price   *Money   `json:"price,omitempty"`
	Product *Product `json:"product,omitempty"`
}

// CartLineCost holds the cost of a cart line.
type CartLineCost struct {
	TotalAmount *Money `json:"totalAmount,omitempty"`
}

// DiscountApplication is a discount applied to a checkout.
type DiscountApplication struct {
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
	Code  string `json:"code,omitempty"`
	Value *Money `json:"value,omitempty"`
}

// DiscountCodeType marks applications created from a discount code.
const DiscountCodeType = "DISCOUNT_CODE"

// DiscountAllocation is the share of a discount allocated to one line.
type DiscountAllocation struct {
	Amount              *Money               `json:"amount,omitempty"`
	Code                string               `json:"code,omitempty"`
	DiscountApplication *DiscountApplication `json:"discountApplication,omitempty"`
}

// CartLine is one line of a cart. Older payloads nest the variant under
// "variant" instead of "merchandise".
type CartLine struct {
	Title               string               `json:"title,omitempty"`
	Merchandise         *ProductVariant      `json:"merchandise,omitempty"`
	Variant             *ProductVariant      `json:"variant,omitempty"`
	Quantity            Quantity             `json:"quantity,omitempty"`
	Cost                *CartLineCost        `json:"cost,omitempty"`
	DiscountAllocations []DiscountAllocation `json:"discountAllocations,omitempty"`
}

// CartCost holds the cost of a cart.
type CartCost struct {
	TotalAmount *Money `json:"totalAmount,omitempty"`
}

// Cart is a shopping cart.
type Cart struct {
	ID    ID         `json:"id,omitempty"`
	Lines []CartLine `json:"lines,omitempty"`
	Cost  *CartCost  `json:"cost,omitempty"`
}

// Collection is a catalog listing.
type Collection struct {
	ID              ID               `json:"id,omitempty"`
	Title           string           `json:"title,omitempty"`
	ProductVariants []ProductVariant `json:"productVariants,omitempty"`
}

// CheckoutLineItem is one line of a checkout.
type CheckoutLineItem struct {
	ID                  ID                   `json:"id,omitempty"`
	Title               string               `json:"title,omitempty"`
	Quantity            Quantity             `json:"quantity,omitempty"`
	Variant             *ProductVariant      `json:"variant,omitempty"`
	DiscountAllocations []DiscountAllocation `json:"discountAllocations,omitempty"`
}

// ShippingLine is the shipping charge of a checkout.
type ShippingLine struct {
	Price *Money `json:"price,omitempty"`
}

// Order is created when a checkout completes.
type Order struct {
	ID ID `json:"id,omitempty"`
}

// DeliveryOption is a delivery method chosen at checkout.
type DeliveryOption struct {
	Title string `json:"title,omitempty"`
	Type  string `json:"type,omitempty"`
}

// Delivery holds the selected delivery options.
type Delivery struct {
	SelectedDeliveryOptions []DeliveryOption `json:"selectedDeliveryOptions,omitempty"`
}

// Transaction is a payment attempt on a checkout.
type Transaction struct {
	Gateway string `json:"gateway,omitempty"`
	Amount  *Money `json:"amount,omitempty"`
}

// Checkout is a checkout at any stage of the funnel.
type Checkout struct {
	Token                string                `json:"token,omitempty"`
	CurrencyCode         string                `json:"currencyCode,omitempty"`
	TotalPrice           *Money                `json:"totalPrice,omitempty"`
	SubtotalPrice        *Money                `json:"subtotalPrice,omitempty"`
	TotalTax             *Money                `json:"totalTax,omitempty"`
	ShippingLine         *ShippingLine         `json:"shippingLine,omitempty"`
	DiscountApplications []DiscountApplication `json:"discountApplications,omitempty"`
	LineItems            []CheckoutLineItem    `json:"lineItems,omitempty"`
	Order                *Order                `json:"order,omitempty"`
	Delivery             *Delivery             `json:"delivery,omitempty"`
	Transactions         []Transaction         `json:"transactions,omitempty"`
}
