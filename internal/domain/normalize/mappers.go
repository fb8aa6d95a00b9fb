package normalize

import (
	"strings"

	"github.com/okian/pixelrelay/internal/domain/analytics"
	"github.com/okian/pixelrelay/internal/domain/storefront"
)

// CartAddPath is the form action that the add-to-cart mapping already covers.
const CartAddPath = "/cart/add"

// DefaultAffiliation labels purchases when no store name is configured.
const DefaultAffiliation = "Shopify Store"

// Mapper translates one storefront event into a canonical analytics event.
// A false result means the event is deliberately suppressed.
type Mapper func(e *storefront.Event) (analytics.Event, bool)

// Normalizer holds the store-level settings the mappers read. Its methods
// are pure and safe for concurrent use.
type Normalizer struct {
	Affiliation  string
	ShopCurrency string
	// PageLocation is used when neither the event nor the live context
	// carries a URL.
	PageLocation string
}

// New returns a Normalizer with defaults applied.
func New(affiliation, shopCurrency, pageLocation string) *Normalizer {
	if affiliation == "" {
		affiliation = DefaultAffiliation
	}
	return &Normalizer{
		Affiliation:  affiliation,
		ShopCurrency: shopCurrency,
		PageLocation: pageLocation,
	}
}

// Mappers returns every mapper keyed by storefront event name.
func (n *Normalizer) Mappers() map[string]Mapper {
	return map[string]Mapper{
		storefront.PageViewed:                    n.PageView,
		storefront.CollectionViewed:              n.ViewItemList,
		storefront.ProductViewed:                 n.ViewItem,
		storefront.ProductAddedToCart:            n.AddToCart,
		storefront.CartViewed:                    n.ViewCart,
		storefront.ProductRemovedFromCart:        n.RemoveFromCart,
		storefront.CheckoutStarted:               n.BeginCheckout,
		storefront.CheckoutShippingInfoSubmitted: n.AddShippingInfo,
		storefront.PaymentInfoSubmitted:          n.AddPaymentInfo,
		storefront.CheckoutCompleted:             n.Purchase,
		storefront.SearchSubmitted:               n.ViewSearchResults,
		storefront.FormSubmitted:                 n.FormSubmit,
	}
}

func (n *Normalizer) base(name string, e *storefront.Event) analytics.Event {
	return analytics.Event{
		Name:         name,
		PageLocation: PageLocation(e, n.PageLocation),
	}
}

func (n *Normalizer) withTitle(ev *analytics.Event, e *storefront.Event) {
	ev.PageTitle = analytics.OptionalString(PageTitle(e, ""))
}

func (n *Normalizer) currency(e *storefront.Event) *string {
	return analytics.String(Currency(e, n.ShopCurrency))
}

func data(e *storefront.Event) *storefront.Data {
	if e == nil || e.Data == nil {
		return &storefront.Data{}
	}
	return e.Data
}

// PageView maps page_viewed.
func (n *Normalizer) PageView(e *storefront.Event) (analytics.Event, bool) {
	ev := n.base(analytics.PageView, e)
	ev.PageReferrer = analytics.OptionalString(PageReferrer(e, ""))
	n.withTitle(&ev, e)
	return ev, true
}

// ViewItemList maps collection_viewed.
func (n *Normalizer) ViewItemList(e *storefront.Event) (analytics.Event, bool) {
	ev := n.base(analytics.ViewItemList, e)
	n.withTitle(&ev, e)
	c := data(e).Collection
	if c == nil {
		return ev, true
	}
	ev.ItemListID = analytics.OptionalString(StripGID(c.ID.String(), CollectionPrefix))
	ev.ItemListName = analytics.OptionalString(c.Title)
	ev.Items = BuildItems(VariantLines(c.ProductVariants...), c.Title)
	return ev, true
}

// ViewItem maps product_viewed.
func (n *Normalizer) ViewItem(e *storefront.Event) (analytics.Event, bool) {
	ev := n.base(analytics.ViewItem, e)
	n.withTitle(&ev, e)
	ev.Currency = n.currency(e)
	v := data(e).ProductVariant
	if v == nil {
		ev.Value = analytics.Float(0)
		return ev, true
	}
	ev.Value = analytics.Float(Amount(v.Price))
	ev.Items = BuildItems(VariantLines(*v), "")
	return ev, true
}

// AddToCart maps product_added_to_cart.
func (n *Normalizer) AddToCart(e *storefront.Event) (analytics.Event, bool) {
	return n.cartLineEvent(analytics.AddToCart, e), true
}

// RemoveFromCart maps product_removed_from_cart.
func (n *Normalizer) RemoveFromCart(e *storefront.Event) (analytics.Event, bool) {
	return n.cartLineEvent(analytics.RemoveFromCart, e), true
}

func (n *Normalizer) cartLineEvent(name string, e *storefront.Event) analytics.Event {
	ev := n.base(name, e)
	ev.Currency = n.currency(e)
	line := data(e).CartLine
	if line == nil {
		ev.Value = analytics.Float(0)
		return ev
	}
	var total *storefront.Money
	if line.Cost != nil {
		total = line.Cost.TotalAmount
	}
	ev.Value = analytics.Float(Amount(total))
	ev.Items = BuildItems(CatalogLines([]storefront.CartLine{*line}), "")
	return ev
}

// ViewCart maps cart_viewed.
func (n *Normalizer) ViewCart(e *storefront.Event) (analytics.Event, bool) {
	ev := n.base(analytics.ViewCart, e)
	ev.Currency = n.currency(e)
	cart := data(e).Cart
	if cart == nil {
		ev.Value = analytics.Float(0)
		return ev, true
	}
	var total *storefront.Money
	if cart.Cost != nil {
		total = cart.Cost.TotalAmount
	}
	ev.Value = analytics.Float(Amount(total))
	ev.Items = BuildItems(CatalogLines(cart.Lines), "")
	return ev, true
}

// checkoutEvent fills the fields shared by every checkout funnel step.
func (n *Normalizer) checkoutEvent(name string, e *storefront.Event) (analytics.Event, *storefront.Checkout) {
	ev := n.base(name, e)
	ev.Currency = n.currency(e)
	co := data(e).Checkout
	if co == nil {
		ev.Value = analytics.Float(0)
		return ev, &storefront.Checkout{}
	}
	ev.Value = analytics.Float(Amount(co.TotalPrice))
	ev.Coupon = Coupons(co.DiscountApplications)
	ev.Items = BuildItems(CheckoutLines(co.LineItems), "")
	return ev, co
}

// BeginCheckout maps checkout_started.
func (n *Normalizer) BeginCheckout(e *storefront.Event) (analytics.Event, bool) {
	ev, _ := n.checkoutEvent(analytics.BeginCheckout, e)
	return ev, true
}

// AddShippingInfo maps checkout_shipping_info_submitted.
func (n *Normalizer) AddShippingInfo(e *storefront.Event) (analytics.Event, bool) {
	ev, co := n.checkoutEvent(analytics.AddShippingInfo, e)
	if co.Delivery != nil && len(co.Delivery.SelectedDeliveryOptions) > 0 {
		ev.ShippingTier = analytics.OptionalString(co.Delivery.SelectedDeliveryOptions[0].Title)
	}
	return ev, true
}

// AddPaymentInfo maps payment_info_submitted.
func (n *Normalizer) AddPaymentInfo(e *storefront.Event) (analytics.Event, bool) {
	ev, co := n.checkoutEvent(analytics.AddPaymentInfo, e)
	if len(co.Transactions) > 0 {
		ev.PaymentType = analytics.OptionalString(co.Transactions[0].Gateway)
	}
	return ev, true
}

// Purchase maps checkout_completed. The transaction id is the order id
// without its namespace, else the checkout token; it is omitted when both
// are absent.
func (n *Normalizer) Purchase(e *storefront.Event) (analytics.Event, bool) {
	ev, co := n.checkoutEvent(analytics.Purchase, e)
	ev.TransactionID = analytics.OptionalString(TransactionID(co))
	ev.Tax = analytics.Float(Amount(co.TotalTax))
	var shipping *storefront.Money
	if co.ShippingLine != nil {
		shipping = co.ShippingLine.Price
	}
	ev.Shipping = analytics.Float(Amount(shipping))
	ev.Affiliation = analytics.String(n.Affiliation)
	return ev, true
}

// TransactionID resolves the purchase transaction id for co.
func TransactionID(co *storefront.Checkout) string {
	if co == nil {
		return ""
	}
	if co.Order != nil {
		if id := StripGID(co.Order.ID.String(), OrderPrefix); id != "" {
			return id
		}
	}
	return co.Token
}

// ViewSearchResults maps search_submitted.
func (n *Normalizer) ViewSearchResults(e *storefront.Event) (analytics.Event, bool) {
	ev := n.base(analytics.ViewSearchResults, e)
	n.withTitle(&ev, e)
	if sr := data(e).SearchResult; sr != nil {
		ev.SearchTerm = analytics.OptionalString(sr.Query)
	}
	return ev, true
}

// FormSubmit maps form_submitted. Add-to-cart form posts are suppressed.
func (n *Normalizer) FormSubmit(e *storefront.Event) (analytics.Event, bool) {
	el := data(e).Element
	if el != nil && strings.Contains(el.Action, CartAddPath) {
		return analytics.Event{}, false
	}
	ev := n.base(analytics.FormSubmit, e)
	n.withTitle(&ev, e)
	if el != nil {
		ev.FormID = analytics.OptionalString(el.ID)
		ev.FormAction = analytics.OptionalString(el.Action)
	}
	return ev, true
}
