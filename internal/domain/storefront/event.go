// Package storefront models the raw lifecycle events emitted by a storefront
// web pixel. Every nested field is optional: payloads differ per event name
// and are frequently partially populated, so readers must tolerate nil.
package storefront

// Event names delivered by the storefront.
const (
	PageViewed                    = "page_viewed"
	CollectionViewed              = "collection_viewed"
	ProductViewed                 = "product_viewed"
	ProductAddedToCart            = "product_added_to_cart"
	CartViewed                    = "cart_viewed"
	ProductRemovedFromCart        = "product_removed_from_cart"
	CheckoutStarted               = "checkout_started"
	CheckoutShippingInfoSubmitted = "checkout_shipping_info_submitted"
	PaymentInfoSubmitted          = "payment_info_submitted"
	CheckoutCompleted             = "checkout_completed"
	SearchSubmitted               = "search_submitted"
	FormSubmitted                 = "form_submitted"
)

// Event is one storefront lifecycle event.
type Event struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ClientID  string   `json:"clientId"`
	Timestamp string   `json:"timestamp,omitempty"`
	Context   *Context `json:"context,omitempty"`
	Data      *Data    `json:"data,omitempty"`

	// Live is the browsing context observed by the receiving side, used when
	// the sandboxed context carries nothing. It is never decoded from a payload.
	Live *Browsing `json:"-"`
}

// Context is the sandboxed browsing context captured with the event.
type Context struct {
	Document *Document `json:"document,omitempty"`
	Window   *Window   `json:"window,omitempty"`
}

// Document mirrors the subset of the DOM document the pixel exposes.
type Document struct {
	Location *Location `json:"location,omitempty"`
	Referrer string    `json:"referrer,omitempty"`
	Title    string    `json:"title,omitempty"`
}

// Window mirrors the subset of the DOM window the pixel exposes.
type Window struct {
	Location *Location `json:"location,omitempty"`
}

// Location holds a page URL.
type Location struct {
	Href string `json:"href,omitempty"`
}

// Browsing is a flat live browsing context.
type Browsing struct {
	Location string
	Referrer string
	Title    string
}

// Data is the union of every event payload. Exactly which members are set
// depends on the event name.
type Data struct {
	Checkout       *Checkout       `json:"checkout,omitempty"`
	Cart           *Cart           `json:"cart,omitempty"`
	CartLine       *CartLine       `json:"cartLine,omitempty"`
	ProductVariant *ProductVariant `json:"productVariant,omitempty"`
	Collection     *Collection     `json:"collection,omitempty"`
	SearchResult   *SearchResult   `json:"searchResult,omitempty"`
	Element        *FormElement    `json:"element,omitempty"`
}

// SearchResult carries the submitted search query.
type SearchResult struct {
	Query string `json:"query,omitempty"`
}

// FormElement describes a submitted form.
type FormElement struct {
	ID     string `json:"id,omitempty"`
	Action string `json:"action,omitempty"`
}

// CustomerPrivacy is the consent snapshot carried by a consent notification.
type CustomerPrivacy struct {
	AnalyticsProcessingAllowed   bool `json:"analyticsProcessingAllowed"`
	MarketingAllowed             bool `json:"marketingAllowed"`
	PreferencesProcessingAllowed bool `json:"preferencesProcessingAllowed"`
	SaleOfDataAllowed            bool `json:"saleOfDataAllowed"`
}

// ConsentNotification is delivered when the visitor's consent changes.
type ConsentNotification struct {
	CustomerPrivacy CustomerPrivacy `json:"customerPrivacy"`
}
