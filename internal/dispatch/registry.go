// Package dispatch routes storefront events to their mapping function and
// hands the result to a sink.
package dispatch

import (
	"sort"

	"github.com/okian/pixelrelay/internal/domain/analytics"
	"github.com/okian/pixelrelay/internal/domain/normalize"
	"github.com/okian/pixelrelay/internal/domain/storefront"
)

// Category groups mappings behind one configuration toggle.
type Category string

// Categories.
const (
	PageViews  Category = "page_views"
	Ecommerce  Category = "ecommerce"
	Search     Category = "search"
	FormSubmit Category = "form_submit"
)

// Toggles enables whole categories of mappings.
type Toggles struct {
	PageViews  bool
	Ecommerce  bool
	Search     bool
	FormSubmit bool
}

// AllEnabled turns every category on.
func AllEnabled() Toggles {
	return Toggles{PageViews: true, Ecommerce: true, Search: true, FormSubmit: true}
}

// Enabled reports whether c is switched on.
func (t Toggles) Enabled(c Category) bool {
	switch c {
	case PageViews:
		return t.PageViews
	case Ecommerce:
		return t.Ecommerce
	case Search:
		return t.Search
	case FormSubmit:
		return t.FormSubmit
	default:
		return false
	}
}

// Entry binds one storefront event to its canonical mapping.
type Entry struct {
	Source   string
	Target   string
	Category Category
	Mapper   normalize.Mapper
}

// routes lists every known mapping; NewRegistry filters it by toggles.
var routes = []struct {
	source   string
	target   string
	category Category
}{
	{storefront.PageViewed, analytics.PageView, PageViews},
	{storefront.CollectionViewed, analytics.ViewItemList, Ecommerce},
	{storefront.ProductViewed, analytics.ViewItem, Ecommerce},
	{storefront.ProductAddedToCart, analytics.AddToCart, Ecommerce},
	{storefront.CartViewed, analytics.ViewCart, Ecommerce},
	{storefront.ProductRemovedFromCart, analytics.RemoveFromCart, Ecommerce},
	{storefront.CheckoutStarted, analytics.BeginCheckout, Ecommerce},
	{storefront.CheckoutShippingInfoSubmitted, analytics.AddShippingInfo, Ecommerce},
	{storefront.PaymentInfoSubmitted, analytics.AddPaymentInfo, Ecommerce},
	{storefront.CheckoutCompleted, analytics.Purchase, Ecommerce},
	{storefront.SearchSubmitted, analytics.ViewSearchResults, Search},
	{storefront.FormSubmitted, analytics.FormSubmit, FormSubmit},
}

// Registry is an immutable table of enabled mappings keyed by source event.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry registers the mappers of n for every enabled category.
func NewRegistry(n *normalize.Normalizer, toggles Toggles) *Registry {
	mappers := n.Mappers()
	r := &Registry{entries: make(map[string]Entry, len(routes))}
	for _, rt := range routes {
		if !toggles.Enabled(rt.category) {
			continue
		}
		m, ok := mappers[rt.source]
		if !ok {
			continue
		}
		r.entries[rt.source] = Entry{Source: rt.source, Target: rt.target, Category: rt.category, Mapper: m}
	}
	return r
}

// Lookup returns the entry for a storefront event name.
func (r *Registry) Lookup(source string) (Entry, bool) {
	e, ok := r.entries[source]
	return e, ok
}

// Entries returns every registered entry ordered by source name.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Len returns the number of registered entries.
func (r *Registry) Len() int { return len(r.entries) }
