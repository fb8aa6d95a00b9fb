package normalize

import (
	"strings"

	"github.com/okian/pixelrelay/internal/domain/analytics"
	"github.com/okian/pixelrelay/internal/domain/storefront"
)

// LineKind tags the source shape of a Line.
type LineKind int

// Line shapes.
const (
	// CatalogLine is a cart or catalog line wrapping a variant in
	// "merchandise" (or "variant" on older payloads).
	CatalogLine LineKind = iota + 1
	// CheckoutLine is a checkout line item with a flat "variant".
	CheckoutLine
)

func (k LineKind) String() string {
	switch k {
	case CatalogLine:
		return "catalog-line"
	case CheckoutLine:
		return "checkout-line"
	default:
		return "unknown"
	}
}

// Line is one raw line record of either shape. Exactly one of Catalog and
// Checkout is set, as indicated by Kind.
type Line struct {
	Kind     LineKind
	Catalog  *storefront.CartLine
	Checkout *storefront.CheckoutLineItem
}

// CatalogLines wraps cart lines.
func CatalogLines(lines []storefront.CartLine) []Line {
	out := make([]Line, len(lines))
	for i := range lines {
		out[i] = Line{Kind: CatalogLine, Catalog: &lines[i]}
	}
	return out
}

// VariantLines wraps bare product variants (collection listings, product
// views) as catalog lines without a quantity.
func VariantLines(variants ...storefront.ProductVariant) []Line {
	out := make([]Line, len(variants))
	for i := range variants {
		out[i] = Line{Kind: CatalogLine, Catalog: &storefront.CartLine{Merchandise: &variants[i]}}
	}
	return out
}

// CheckoutLines wraps checkout line items.
func CheckoutLines(items []storefront.CheckoutLineItem) []Line {
	out := make([]Line, len(items))
	for i := range items {
		out[i] = Line{Kind: CheckoutLine, Checkout: &items[i]}
	}
	return out
}

// BuildItems converts lines into canonical items in input order. Index is
// the zero-based input position. Catalog lines with neither id nor name are
// dropped; checkout lines are always kept. listName, when non-empty, is
// applied to every item.
func BuildItems(lines []Line, listName string) []analytics.Item {
	items := make([]analytics.Item, 0, len(lines))
	for i, l := range lines {
		switch {
		case l.Kind == CatalogLine && l.Catalog != nil:
			it := catalogItem(l.Catalog, i)
			if it.ItemID == "" && it.ItemName == "" {
				continue
			}
			it.ItemListName = listName
			items = append(items, it)
		case l.Kind == CheckoutLine && l.Checkout != nil:
			it := checkoutItem(l.Checkout, i)
			it.ItemListName = listName
			items = append(items, it)
		}
	}
	return items
}

func catalogItem(line *storefront.CartLine, index int) analytics.Item {
	merch := line.Merchandise
	if merch == nil {
		merch = line.Variant
	}
	var product *storefront.Product
	if merch != nil {
		product = merch.Product
	}

	it := analytics.Item{
		ItemName: firstNonEmpty(line.Title, productTitle(product), variantTitle(merch)),
		Quantity: quantity(line.Quantity),
		Index:    index,
		Discount: allocatedDiscount(line.DiscountAllocations),
	}
	if product != nil {
		it.ItemID = StripGID(product.ID.String(), ProductPrefix)
		it.ItemBrand = product.Vendor
		it.ItemCategory = product.Type
	}
	if merch != nil {
		if it.ItemID == "" {
			it.ItemID = merch.SKU
		}
		it.ItemVariant = distinctVariant(merch.Title, productTitle(product))
		it.Price = Amount(merch.Price)
	}
	if it.Price == 0 && line.Variant != nil {
		it.Price = Amount(line.Variant.Price)
	}
	return it
}

func checkoutItem(line *storefront.CheckoutLineItem, index int) analytics.Item {
	v := line.Variant
	var product *storefront.Product
	if v != nil {
		product = v.Product
	}

	it := analytics.Item{
		ItemName: firstNonEmpty(line.Title, productTitle(product), variantTitle(v)),
		Quantity: quantity(line.Quantity),
		Index:    index,
		Coupon:   allocationCodes(line.DiscountAllocations),
		Discount: allocatedDiscount(line.DiscountAllocations),
	}
	if v != nil {
		it.ItemID = ExtractIdentifier(v.ID, ProductVariantPrefix, v.SKU)
		it.ItemVariant = distinctVariant(v.Title, productTitle(product))
		it.Price = Amount(v.Price)
	}
	if product != nil {
		it.ItemBrand = product.Vendor
		it.ItemCategory = product.Type
	}
	return it
}

// quantity defaults absent or zero quantities to 1.
func quantity(q storefront.Quantity) int {
	if q == 0 {
		return 1
	}
	return int(q)
}

func allocatedDiscount(allocs []storefront.DiscountAllocation) float64 {
	var sum float64
	for _, a := range allocs {
		sum += Amount(a.Amount)
	}
	return sum
}

// allocationCodes joins the non-empty discount codes allocated to one line.
// An allocation without its own code falls back to the title of a
// discount-code application.
func allocationCodes(allocs []storefront.DiscountAllocation) string {
	codes := make([]string, 0, len(allocs))
	for _, a := range allocs {
		code := a.Code
		if code == "" && a.DiscountApplication != nil && a.DiscountApplication.Type == storefront.DiscountCodeType {
			code = firstNonEmpty(a.DiscountApplication.Title, a.DiscountApplication.Code)
		}
		if code != "" {
			codes = append(codes, code)
		}
	}
	return strings.Join(codes, ",")
}

// distinctVariant returns the variant title unless it repeats the product title.
func distinctVariant(variant, product string) string {
	if variant == product {
		return ""
	}
	return variant
}

func productTitle(p *storefront.Product) string {
	if p == nil {
		return ""
	}
	return p.Title
}

func variantTitle(v *storefront.ProductVariant) string {
	if v == nil {
		return ""
	}
	return v.Title
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
