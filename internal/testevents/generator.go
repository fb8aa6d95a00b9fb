package testevents

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/pixelrelay/internal/domain/storefront"
)

const shopURL = "https://demo-store.test"

// scenario builds one storefront event body for index i.
type scenario func(i int) *storefront.Data

// scenarios cycles through every supported event plus an unknown one and a
// cart-add form post, so each outcome shows up in a run.
var scenarios = []struct {
	name  string
	build scenario
}{
	{storefront.PageViewed, func(int) *storefront.Data { return nil }},
	{storefront.CollectionViewed, func(i int) *storefront.Data {
		return &storefront.Data{Collection: &storefront.Collection{
			ID:              storefront.ID(fmt.Sprintf("gid://shopify/Collection/%d", i%5)),
			Title:           "Collection " + strconv.Itoa(i%5),
			ProductVariants: []storefront.ProductVariant{variant(i), variant(i + 1)},
		}}
	}},
	{storefront.ProductViewed, func(i int) *storefront.Data {
		v := variant(i)
		return &storefront.Data{ProductVariant: &v}
	}},
	{storefront.ProductAddedToCart, func(i int) *storefront.Data {
		l := cartLine(i)
		return &storefront.Data{CartLine: &l}
	}},
	{storefront.CartViewed, func(i int) *storefront.Data {
		return &storefront.Data{Cart: &storefront.Cart{
			Lines: []storefront.CartLine{cartLine(i), cartLine(i + 1)},
			Cost:  &storefront.CartCost{TotalAmount: money(i, 2)},
		}}
	}},
	{storefront.ProductRemovedFromCart, func(i int) *storefront.Data {
		l := cartLine(i)
		return &storefront.Data{CartLine: &l}
	}},
	{storefront.CheckoutStarted, func(i int) *storefront.Data { return &storefront.Data{Checkout: checkout(i)} }},
	{storefront.CheckoutShippingInfoSubmitted, func(i int) *storefront.Data { return &storefront.Data{Checkout: checkout(i)} }},
	{storefront.PaymentInfoSubmitted, func(i int) *storefront.Data { return &storefront.Data{Checkout: checkout(i)} }},
	{storefront.CheckoutCompleted, func(i int) *storefront.Data { return &storefront.Data{Checkout: checkout(i)} }},
	{storefront.SearchSubmitted, func(i int) *storefront.Data {
		return &storefront.Data{SearchResult: &storefront.SearchResult{Query: "query " + strconv.Itoa(i)}}
	}},
	{storefront.FormSubmitted, func(i int) *storefront.Data {
		action := "/contact"
		if i%2 == 0 {
			action = "/cart/add"
		}
		return &storefront.Data{Element: &storefront.FormElement{ID: "form-" + strconv.Itoa(i), Action: action}}
	}},
	{"alert_displayed", func(int) *storefront.Data { return nil }},
}

func money(i, qty int) *storefront.Money {
	cents := (i%50+1)*100 + 95
	return &storefront.Money{
		Amount:       storefront.Amount(fmt.Sprintf("%d.%02d", cents*qty/100, cents*qty%100)),
		CurrencyCode: "NZD",
	}
}

func variant(i int) storefront.ProductVariant {
	return storefront.ProductVariant{
		ID:    storefront.ID(fmt.Sprintf("gid://shopify/ProductVariant/%d", 1000+i)),
		Title: []string{"Small", "Medium", "Large"}[i%3],
		SKU:   "SKU-" + strconv.Itoa(i),
		Price: money(i, 1),
		Product: &storefront.Product{
			ID:     storefront.ID(fmt.Sprintf("gid://shopify/Product/%d", 100+i%20)),
			Title:  "Product " + strconv.Itoa(i%20),
			Vendor: "Demo Vendor",
			Type:   "Apparel",
		},
	}
}

func cartLine(i int) storefront.CartLine {
	v := variant(i)
	qty := i%3 + 1
	return storefront.CartLine{
		Merchandise: &v,
		Quantity:    storefront.Quantity(qty),
		Cost:        &storefront.CartLineCost{TotalAmount: money(i, qty)},
	}
}

func checkout(i int) *storefront.Checkout {
	v := variant(i)
	co := &storefront.Checkout{
		Token:         uuid.NewString(),
		CurrencyCode:  "NZD",
		TotalPrice:    money(i, 2),
		SubtotalPrice: money(i, 2),
		TotalTax:      &storefront.Money{Amount: "1.50"},
		ShippingLine:  &storefront.ShippingLine{Price: &storefront.Money{Amount: "5.00"}},
		LineItems:     []storefront.CheckoutLineItem{{Title: v.Product.Title, Quantity: 2, Variant: &v}},
		Order:         &storefront.Order{ID: storefront.ID(fmt.Sprintf("gid://shopify/Order/%d", 5000+i))},
		Delivery:      &storefront.Delivery{SelectedDeliveryOptions: []storefront.DeliveryOption{{Title: "Standard"}}},
		Transactions:  []storefront.Transaction{{Gateway: "manual"}},
	}
	if i%4 == 0 {
		co.DiscountApplications = []storefront.DiscountApplication{{Type: storefront.DiscountCodeType, Title: "WELCOME10"}}
	}
	return co
}

// GenerateEvents builds n storefront events cycling through every scenario.
// Roughly duplicateRatio of them reuse the id of an earlier event.
func GenerateEvents(n int, duplicateRatio float64) []storefront.Event {
	events := make([]storefront.Event, 0, n)
	dupEvery := 0
	if duplicateRatio > 0 && duplicateRatio < 1 {
		dupEvery = int(1 / duplicateRatio)
	}
	clients := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}

	for i := 0; i < n; i++ {
		if dupEvery > 0 && i > 0 && i%dupEvery == 0 {
			events = append(events, events[i-1])
			continue
		}
		sc := scenarios[i%len(scenarios)]
		events = append(events, storefront.Event{
			ID:       uuid.NewString(),
			Name:     sc.name,
			ClientID: clients[i%len(clients)],
			Context: &storefront.Context{Document: &storefront.Document{
				Location: &storefront.Location{Href: fmt.Sprintf("%s/pages/%d", shopURL, i)},
				Title:    "Demo page " + strconv.Itoa(i),
			}},
			Data: sc.build(i),
		})
	}
	return events
}
