package models

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

type (
	// PriceInCents ...
	PriceInCents int64
)

var (
	regexPriceToken = regexp.MustCompile(`^\s*(-{0,1})\$?([0-9]*)((\.([0-9]{1,2})){0,1})\s*$`)
)

// ParsePriceInCents parses tokens like "4", ".4", "1.40", "-0.1" or "$12.95".
func ParsePriceInCents(tok string) (PriceInCents, bool) {
	m := regexPriceToken.FindStringSubmatch(tok)
	if m == nil || (m[2] == "" && m[5] == "") {
		return 0, false
	}
	sign, dollarsStr, centsStr := m[1], m[2], m[5]
	dollars, _ := strconv.ParseInt(dollarsStr, 10, 64)
	cents, _ := strconv.ParseInt(centsStr, 10, 64)
	if len(centsStr) == 1 {
		cents *= 10
	}
	price := PriceInCents(cents + 100*dollars)
	if sign == "-" {
		price = -price
	}
	return price, true
}

// MustParsePriceInCents ...
func MustParsePriceInCents(tok string) PriceInCents {
	price, ok := ParsePriceInCents(tok)
	if !ok {
		panic(fmt.Errorf("%q does not match pattern %q", tok, regexPriceToken.String()))
	}
	return price
}

// PriceFromFloat converts a decimal amount such as 16.5 to cents, rounding
// half away from zero.
func PriceFromFloat(f float64) PriceInCents {
	return PriceInCents(math.Round(f * 100))
}

// Float returns the amount in whole currency units.
func (p PriceInCents) Float() float64 {
	return float64(p) / 100
}

func (p PriceInCents) String() string {
	i := int64(p)
	var s string
	if i < 0 {
		i = -i
		s += "-"
	}
	s += fmt.Sprintf("%d.", i/100)
	mod := i % 100
	if mod < 10 {
		s += "0"
	}
	s += fmt.Sprintf("%d", mod)
	return s
}

// Share returns price*n/d in cents, rounded half away from zero. It is the
// amount owed for n units of an item whose d units cost price in total.
func Share(price PriceInCents, n, d int) PriceInCents {
	if d <= 0 || n == 0 {
		return 0
	}
	num := int64(price) * int64(n)
	den := int64(d)
	q, r := num/den, num%den
	if r < 0 {
		r = -r
	}
	if 2*r >= den {
		if num < 0 {
			q--
		} else {
			q++
		}
	}
	return PriceInCents(q)
}
