// Package methods manages the payment-method registry: an open, externally
// configurable set of method codes with display names. The balance engine
// never hardcodes the set beyond the built-in fallback defaults.
package methods

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Method is one configured payment method.
type Method struct {
	Code     string
	Name     string
	Active   bool
	Position int
}

// DefaultCodes is the built-in fallback used when the registry store is
// unavailable or empty.
var DefaultCodes = []string{"cash", "electronic-wallet", "bank-transfer", "card"}

var titleCaser = cases.Title(language.English)

// FallbackName derives a display name from a method code, e.g.
// "electronic-wallet" becomes "Electronic Wallet".
func FallbackName(code string) string {
	return titleCaser.String(strings.ReplaceAll(code, "-", " "))
}

// Defaults returns the fallback method set.
func Defaults() []Method {
	out := make([]Method, 0, len(DefaultCodes))
	for i, code := range DefaultCodes {
		out = append(out, Method{Code: code, Name: FallbackName(code), Active: true, Position: i})
	}
	return out
}
