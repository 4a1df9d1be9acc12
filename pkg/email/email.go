// Package email derives presentable account fields from raw addresses.
package email

import (
	"strings"
	"unicode"
)

// DeriveDisplayName builds a display name from the local part of an email
// address: "maja.nouri@example.com" becomes "Maja Nouri". Addresses whose
// local part carries nothing usable fall back to "Guest".
func DeriveDisplayName(address string) string {
	localPart := address
	if at := strings.IndexByte(address, '@'); at > 0 {
		localPart = address[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "Guest"
	}

	for i, part := range parts {
		parts[i] = capitalize(part)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
