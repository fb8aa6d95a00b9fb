package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/okian/pixelrelay/internal/domain/storefront"
)

// Namespacing prefixes of storefront global identifiers.
const (
	ProductPrefix        = "gid://shopify/Product/"
	ProductVariantPrefix = "gid://shopify/ProductVariant/"
	OrderPrefix          = "gid://shopify/Order/"
	CollectionPrefix     = "gid://shopify/Collection/"
)

// FallbackCurrency is used when neither the event nor the store names one.
const FallbackCurrency = "NZD"

// PageLocation resolves the page URL: sandboxed document, then sandboxed
// window, then the live context, then fallback.
func PageLocation(e *storefront.Event, fallback string) string {
	if e == nil {
		return fallback
	}
	if c := e.Context; c != nil {
		if d := c.Document; d != nil && d.Location != nil && d.Location.Href != "" {
			return d.Location.Href
		}
		if w := c.Window; w != nil && w.Location != nil && w.Location.Href != "" {
			return w.Location.Href
		}
	}
	if e.Live != nil && e.Live.Location != "" {
		return e.Live.Location
	}
	return fallback
}

// PageReferrer resolves the referrer: sandboxed document, then live context.
func PageReferrer(e *storefront.Event, fallback string) string {
	if e == nil {
		return fallback
	}
	if c := e.Context; c != nil && c.Document != nil && c.Document.Referrer != "" {
		return c.Document.Referrer
	}
	if e.Live != nil && e.Live.Referrer != "" {
		return e.Live.Referrer
	}
	return fallback
}

// PageTitle resolves the title: sandboxed document, then live context.
func PageTitle(e *storefront.Event, fallback string) string {
	if e == nil {
		return fallback
	}
	if c := e.Context; c != nil && c.Document != nil && c.Document.Title != "" {
		return c.Document.Title
	}
	if e.Live != nil && e.Live.Title != "" {
		return e.Live.Title
	}
	return fallback
}

// Amount converts a numeric-like value to float64. Absent, empty, malformed
// and non-finite inputs yield 0. It never panics.
func Amount(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		return parseAmount(string(x))
	case string:
		return parseAmount(x)
	case storefront.Amount:
		return parseAmount(string(x))
	case storefront.Money:
		return parseAmount(string(x.Amount))
	case *storefront.Money:
		if x == nil {
			return 0
		}
		return parseAmount(string(x.Amount))
	default:
		return 0
	}
}

func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Currency resolves the currency code: checkout, then cart total, then cart
// line cost, then storeDefault, then FallbackCurrency.
func Currency(e *storefront.Event, storeDefault string) string {
	if e != nil && e.Data != nil {
		d := e.Data
		if d.Checkout != nil && d.Checkout.CurrencyCode != "" {
			return d.Checkout.CurrencyCode
		}
		if d.Cart != nil && d.Cart.Cost != nil && d.Cart.Cost.TotalAmount != nil &&
			d.Cart.Cost.TotalAmount.CurrencyCode != "" {
			return d.Cart.Cost.TotalAmount.CurrencyCode
		}
		if d.CartLine != nil && d.CartLine.Cost != nil && d.CartLine.Cost.TotalAmount != nil &&
			d.CartLine.Cost.TotalAmount.CurrencyCode != "" {
			return d.CartLine.Cost.TotalAmount.CurrencyCode
		}
	}
	if storeDefault != "" {
		return storeDefault
	}
	return FallbackCurrency
}

// StripGID removes prefix from id when present and returns id unchanged otherwise.
func StripGID(id, prefix string) string {
	if rest, ok := strings.CutPrefix(id, prefix); ok {
		return rest
	}
	return id
}

// ExtractIdentifier strips prefix from id, falling back to fallback (usually
// a SKU) when id is empty.
func ExtractIdentifier(id storefront.ID, prefix, fallback string) string {
	if s := StripGID(id.String(), prefix); s != "" {
		return s
	}
	return fallback
}
