package normalize

import (
	"encoding/json"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pixelrelay/internal/domain/analytics"
	"github.com/okian/pixelrelay/internal/domain/storefront"
)

func decodeEvent(raw string) *storefront.Event {
	var e storefront.Event
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		panic(err)
	}
	return &e
}

func TestAmount(t *testing.T) {
	Convey("Amount tolerates every numeric-like input", t, func() {
		So(Amount("12.50"), ShouldEqual, 12.5)
		So(Amount(12.5), ShouldEqual, 12.5)
		So(Amount(3), ShouldEqual, 3.0)
		So(Amount(json.Number("7.25")), ShouldEqual, 7.25)
		So(Amount(storefront.Amount("1.10")), ShouldEqual, 1.1)
		So(Amount(&storefront.Money{Amount: "4"}), ShouldEqual, 4.0)
		So(Amount(storefront.Money{Amount: "5"}), ShouldEqual, 5.0)
		So(Amount("-3.5"), ShouldEqual, -3.5)

		Convey("and degrades malformed input to zero", func() {
			So(Amount(nil), ShouldEqual, 0)
			So(Amount(""), ShouldEqual, 0)
			So(Amount("   "), ShouldEqual, 0)
			So(Amount("abc"), ShouldEqual, 0)
			So(Amount("NaN"), ShouldEqual, 0)
			So(Amount(math.Inf(1)), ShouldEqual, 0)
			So(Amount((*storefront.Money)(nil)), ShouldEqual, 0)
			So(Amount(struct{}{}), ShouldEqual, 0)
		})
	})
}

func TestCurrency(t *testing.T) {
	Convey("Currency picks the first non-empty source", t, func() {
		e := &storefront.Event{Data: &storefront.Data{
			Checkout: &storefront.Checkout{CurrencyCode: "USD"},
			Cart:     &storefront.Cart{Cost: &storefront.CartCost{TotalAmount: &storefront.Money{CurrencyCode: "EUR"}}},
		}}
		So(Currency(e, "AUD"), ShouldEqual, "USD")

		e.Data.Checkout = nil
		So(Currency(e, "AUD"), ShouldEqual, "EUR")

		e.Data.Cart = nil
		e.Data.CartLine = &storefront.CartLine{Cost: &storefront.CartLineCost{TotalAmount: &storefront.Money{CurrencyCode: "GBP"}}}
		So(Currency(e, "AUD"), ShouldEqual, "GBP")

		e.Data.CartLine = nil
		So(Currency(e, "AUD"), ShouldEqual, "AUD")
		So(Currency(e, ""), ShouldEqual, FallbackCurrency)
		So(Currency(nil, ""), ShouldEqual, "NZD")
	})
}

func TestExtractIdentifier(t *testing.T) {
	Convey("ExtractIdentifier strips known prefixes", t, func() {
		So(ExtractIdentifier("gid://shopify/Product/123", ProductPrefix, "SKU"), ShouldEqual, "123")
		So(ExtractIdentifier("plain-42", ProductPrefix, "SKU"), ShouldEqual, "plain-42")
		So(ExtractIdentifier("", ProductPrefix, "SKU-1"), ShouldEqual, "SKU-1")
		So(StripGID("gid://shopify/Order/789", OrderPrefix), ShouldEqual, "789")
	})
}

func TestPageFields(t *testing.T) {
	Convey("Page fields fall back from document to window to live context", t, func() {
		e := &storefront.Event{
			Context: &storefront.Context{
				Window: &storefront.Window{Location: &storefront.Location{Href: "https://shop/w"}},
			},
			Live: &storefront.Browsing{Location: "https://shop/live", Referrer: "https://ref", Title: "Live"},
		}
		So(PageLocation(e, "d"), ShouldEqual, "https://shop/w")
		So(PageReferrer(e, ""), ShouldEqual, "https://ref")
		So(PageTitle(e, ""), ShouldEqual, "Live")

		e.Context.Document = &storefront.Document{Location: &storefront.Location{Href: "https://shop/doc"}, Title: "Doc"}
		So(PageLocation(e, "d"), ShouldEqual, "https://shop/doc")
		So(PageTitle(e, ""), ShouldEqual, "Doc")

		So(PageLocation(&storefront.Event{}, "https://default"), ShouldEqual, "https://default")
		So(PageLocation(nil, "x"), ShouldEqual, "x")
	})
}

func TestCoupons(t *testing.T) {
	Convey("Coupons", t, func() {
		Convey("keeps only discount codes, preferring titles", func() {
			got := Coupons([]storefront.DiscountApplication{
				{Type: "DISCOUNT_CODE", Title: "SAVE10", Code: "save10"},
				{Type: "AUTOMATIC", Title: "Summer"},
				{Type: "DISCOUNT_CODE", Code: "FREESHIP"},
			})
			So(got, ShouldNotBeNil)
			So(*got, ShouldEqual, "SAVE10,FREESHIP")
		})

		Convey("is absent for automatic-only or empty input", func() {
			So(Coupons([]storefront.DiscountApplication{{Type: "AUTOMATIC", Title: "Summer"}}), ShouldBeNil)
			So(Coupons(nil), ShouldBeNil)
			So(Coupons([]storefront.DiscountApplication{{Type: "DISCOUNT_CODE"}}), ShouldBeNil)
		})
	})
}

func TestBuildItems(t *testing.T) {
	Convey("BuildItems", t, func() {
		Convey("treats absent input as empty", func() {
			So(BuildItems(nil, ""), ShouldBeEmpty)
		})

		Convey("maps catalog lines in order and drops anonymous ones", func() {
			lines := []storefront.CartLine{
				{
					Quantity: 3,
					Merchandise: &storefront.ProductVariant{
						Title: "Large",
						Price: &storefront.Money{Amount: "10.00"},
						Product: &storefront.Product{
							ID: "gid://shopify/Product/1", Title: "Shirt", Vendor: "Acme", Type: "Tops",
						},
					},
					DiscountAllocations: []storefront.DiscountAllocation{
						{Amount: &storefront.Money{Amount: "1.5"}},
						{Amount: &storefront.Money{Amount: "0.5"}},
					},
				},
				{},
				{
					Variant: &storefront.ProductVariant{
						SKU: "SKU-2", Title: "Mug", Price: &storefront.Money{Amount: "4"},
						Product: &storefront.Product{Title: "Mug"},
					},
				},
			}
			items := BuildItems(CatalogLines(lines), "Featured")
			So(len(items), ShouldEqual, 2)

			So(items[0].ItemID, ShouldEqual, "1")
			So(items[0].ItemName, ShouldEqual, "Shirt")
			So(items[0].ItemBrand, ShouldEqual, "Acme")
			So(items[0].ItemCategory, ShouldEqual, "Tops")
			So(items[0].ItemVariant, ShouldEqual, "Large")
			So(items[0].Price, ShouldEqual, 10.0)
			So(items[0].Quantity, ShouldEqual, 3)
			So(items[0].Discount, ShouldEqual, 2.0)
			So(items[0].Index, ShouldEqual, 0)
			So(items[0].ItemListName, ShouldEqual, "Featured")

			So(items[1].ItemID, ShouldEqual, "SKU-2")
			So(items[1].ItemVariant, ShouldBeEmpty)
			So(items[1].Quantity, ShouldEqual, 1)
			So(items[1].Index, ShouldEqual, 2)
		})

		Convey("maps checkout lines with per-line coupons and no filter", func() {
			lines := []storefront.CheckoutLineItem{
				{
					Title:    "Shirt",
					Quantity: 2,
					Variant: &storefront.ProductVariant{
						ID: "gid://shopify/ProductVariant/55", Title: "Shirt",
						Price:   &storefront.Money{Amount: "29.95"},
						Product: &storefront.Product{Title: "Shirt"},
					},
					DiscountAllocations: []storefront.DiscountAllocation{
						{Code: "A", Amount: &storefront.Money{Amount: "1"}},
						{Amount: &storefront.Money{Amount: "2"}},
						{Code: "B"},
					},
				},
				{},
			}
			items := BuildItems(CheckoutLines(lines), "")
			So(len(items), ShouldEqual, 2)
			So(items[0].ItemID, ShouldEqual, "55")
			So(items[0].ItemVariant, ShouldBeEmpty)
			So(items[0].Coupon, ShouldEqual, "A,B")
			So(items[0].Discount, ShouldEqual, 3.0)
			So(items[1].Quantity, ShouldEqual, 1)
			So(items[1].Coupon, ShouldBeEmpty)
		})
	})
}

func TestFormSubmit(t *testing.T) {
	n := New("", "", "https://default")

	Convey("Form submission", t, func() {
		Convey("is suppressed for add-to-cart posts", func() {
			_, ok := n.FormSubmit(&storefront.Event{Data: &storefront.Data{Element: &storefront.FormElement{Action: "/cart/add"}}})
			So(ok, ShouldBeFalse)
		})

		Convey("is emitted for other forms", func() {
			ev, ok := n.FormSubmit(&storefront.Event{Data: &storefront.Data{Element: &storefront.FormElement{ID: "contact_form", Action: "/contact"}}})
			So(ok, ShouldBeTrue)
			So(ev.Name, ShouldEqual, analytics.FormSubmit)
			So(*ev.FormID, ShouldEqual, "contact_form")
			So(*ev.FormAction, ShouldEqual, "/contact")
			So(ev.PageLocation, ShouldEqual, "https://default")
		})
	})
}

func TestPurchase(t *testing.T) {
	n := New("Kiwi Store", "", "")

	Convey("Given a completed checkout", t, func() {
		e := decodeEvent(`{
			"id": "evt-1",
			"name": "checkout_completed",
			"data": {"checkout": {
				"currencyCode": "NZD",
				"token": "tok-1",
				"totalPrice": {"amount": "59.90", "currencyCode": "NZD"},
				"order": {"id": "gid://shopify/Order/789"},
				"lineItems": [{
					"title": "Shirt",
					"quantity": 2,
					"variant": {"id": "gid://shopify/ProductVariant/11", "price": {"amount": "29.95"}}
				}]
			}}
		}`)

		ev, ok := n.Purchase(e)
		So(ok, ShouldBeTrue)

		Convey("the purchase carries totals and items", func() {
			So(ev.Name, ShouldEqual, analytics.Purchase)
			So(*ev.TransactionID, ShouldEqual, "789")
			So(*ev.Currency, ShouldEqual, "NZD")
			So(*ev.Value, ShouldEqual, 59.90)
			So(*ev.Tax, ShouldEqual, 0)
			So(*ev.Affiliation, ShouldEqual, "Kiwi Store")
			So(ev.Coupon, ShouldBeNil)
			So(len(ev.Items), ShouldEqual, 1)
			So(ev.Items[0].Price, ShouldEqual, 29.95)
			So(ev.Items[0].Quantity, ShouldEqual, 2)
		})

		Convey("the coupon key is omitted when no code applies", func() {
			raw, err := json.Marshal(ev)
			So(err, ShouldBeNil)
			So(string(raw), ShouldNotContainSubstring, `"coupon"`)
		})

		Convey("the token is used without an order", func() {
			e.Data.Checkout.Order = nil
			ev, _ := n.Purchase(e)
			So(*ev.TransactionID, ShouldEqual, "tok-1")
		})

		Convey("the transaction id is omitted without order or token", func() {
			e.Data.Checkout.Order = nil
			e.Data.Checkout.Token = ""
			ev, _ := n.Purchase(e)
			So(ev.TransactionID, ShouldBeNil)
		})
	})
}

func TestMappersTolerateEmptyEvents(t *testing.T) {
	n := New("", "", "https://default")

	Convey("Every mapper handles an event without data", t, func() {
		for name, m := range n.Mappers() {
			ev, ok := m(&storefront.Event{Name: name})
			So(ok, ShouldBeTrue)
			So(ev.Name, ShouldNotBeEmpty)
			So(ev.PageLocation, ShouldEqual, "https://default")
		}
		So(len(n.Mappers()), ShouldEqual, 12)
	})
}

func TestCatalogMappers(t *testing.T) {
	n := New("", "AUD", "")

	Convey("Collection views list every variant", t, func() {
		e := &storefront.Event{Data: &storefront.Data{Collection: &storefront.Collection{
			ID:    "gid://shopify/Collection/9",
			Title: "Summer",
			ProductVariants: []storefront.ProductVariant{
				{Product: &storefront.Product{ID: "gid://shopify/Product/1", Title: "Hat"}},
				{Product: &storefront.Product{ID: "gid://shopify/Product/2", Title: "Cap"}},
			},
		}}}
		ev, _ := n.ViewItemList(e)
		So(*ev.ItemListID, ShouldEqual, "9")
		So(*ev.ItemListName, ShouldEqual, "Summer")
		So(len(ev.Items), ShouldEqual, 2)
		So(ev.Items[1].ItemID, ShouldEqual, "2")
		So(ev.Items[1].ItemListName, ShouldEqual, "Summer")
	})

	Convey("Add to cart values the line cost", t, func() {
		e := decodeEvent(`{"name":"product_added_to_cart","data":{"cartLine":{
			"quantity": "2",
			"cost": {"totalAmount": {"amount": 20, "currencyCode": "USD"}},
			"merchandise": {"title":"Red","price":{"amount":"10"},"product":{"id":"gid://shopify/Product/5","title":"Tee"}}
		}}}`)
		ev, ok := n.AddToCart(e)
		So(ok, ShouldBeTrue)
		So(*ev.Currency, ShouldEqual, "USD")
		So(*ev.Value, ShouldEqual, 20.0)
		So(ev.Items[0].ItemID, ShouldEqual, "5")
		So(ev.Items[0].Quantity, ShouldEqual, 2)
		So(ev.Items[0].ItemVariant, ShouldEqual, "Red")
	})

	Convey("Product views default to the store currency", t, func() {
		ev, _ := n.ViewItem(&storefront.Event{Data: &storefront.Data{ProductVariant: &storefront.ProductVariant{
			Price: &storefront.Money{Amount: "15"}, Product: &storefront.Product{Title: "Bag"},
		}}})
		So(*ev.Currency, ShouldEqual, "AUD")
		So(*ev.Value, ShouldEqual, 15.0)
		So(ev.Items[0].Quantity, ShouldEqual, 1)
	})

	Convey("Checkout steps carry shipping tier and payment type", t, func() {
		co := &storefront.Checkout{
			Delivery:     &storefront.Delivery{SelectedDeliveryOptions: []storefront.DeliveryOption{{Title: "Express"}}},
			Transactions: []storefront.Transaction{{Gateway: "stripe"}},
		}
		e := &storefront.Event{Data: &storefront.Data{Checkout: co}}
		ship, _ := n.AddShippingInfo(e)
		So(*ship.ShippingTier, ShouldEqual, "Express")
		pay, _ := n.AddPaymentInfo(e)
		So(*pay.PaymentType, ShouldEqual, "stripe")
	})

	Convey("Search results carry the query", t, func() {
		ev, _ := n.ViewSearchResults(&storefront.Event{Data: &storefront.Data{SearchResult: &storefront.SearchResult{Query: "boots"}}})
		So(*ev.SearchTerm, ShouldEqual, "boots")
	})
}
