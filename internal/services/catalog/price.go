package catalog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NairaSign prefixes displayed prices.
const NairaSign = "₦"

var (
	// ErrNegativePrice rejects prices below zero.
	ErrNegativePrice = errors.New("price must not be negative")
	// ErrInvalidPrice rejects prices that are not decimal naira amounts.
	ErrInvalidPrice = errors.New("price must be a naira amount with at most two decimals")
)

var pricePrinter = message.NewPrinter(language.English)

// FormatPrice renders kobo as a grouped naira amount, for example ₦4,500 or
// ₦1,250.50.
func FormatPrice(kobo int64) string {
	sign := ""
	if kobo < 0 {
		sign = "-"
		kobo = -kobo
	}
	naira, rest := kobo/100, kobo%100
	if rest == 0 {
		return sign + NairaSign + pricePrinter.Sprintf("%d", naira)
	}
	return sign + NairaSign + pricePrinter.Sprintf("%d", naira) + fmt.Sprintf(".%02d", rest)
}

// PriceLabel returns the display price of p, or "" when it has none.
func (p Product) PriceLabel() string {
	if !p.HasPrice {
		return ""
	}
	return FormatPrice(p.PriceKobo)
}

// ParsePrice parses a decimal naira amount into kobo. An empty string means
// no price.
func ParsePrice(raw string) (kobo int64, ok bool, err error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	s = strings.TrimPrefix(s, NairaSign)
	if s == "" {
		return 0, false, nil
	}
	if strings.HasPrefix(s, "-") {
		return 0, false, ErrNegativePrice
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (frac == "" || len(frac) > 2) {
		return 0, false, ErrInvalidPrice
	}
	naira, err := strconv.ParseUint(whole, 10, 64)
	if err != nil || naira > math.MaxInt64/100-1 {
		return 0, false, ErrInvalidPrice
	}
	var sub uint64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		if sub, err = strconv.ParseUint(frac, 10, 8); err != nil {
			return 0, false, ErrInvalidPrice
		}
	}
	return int64(naira)*100 + int64(sub), true, nil
}
