package normalize

import (
	"strings"

	"github.com/okian/pixelrelay/internal/domain/storefront"
)

// Coupons joins the codes of discount-code applications, preferring the
// display title over the raw code. Automatic and script discounts are
// ignored. It returns nil, not an empty string, when apps is absent or no
// code remains, so the coupon key is omitted downstream.
func Coupons(apps []storefront.DiscountApplication) *string {
	if len(apps) == 0 {
		return nil
	}
	codes := make([]string, 0, len(apps))
	for _, a := range apps {
		if a.Type != storefront.DiscountCodeType {
			continue
		}
		if c := firstNonEmpty(a.Title, a.Code); c != "" {
			codes = append(codes, c)
		}
	}
	if len(codes) == 0 {
		return nil
	}
	joined := strings.Join(codes, ",")
	return &joined
}
