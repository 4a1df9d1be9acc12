package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		expected string
	}{
		{
			name:     "dotted local part",
			address:  "maja.nouri@example.com",
			expected: "Maja Nouri",
		},
		{
			name:     "single word",
			address:  "alex@example.com",
			expected: "Alex",
		},
		{
			name:     "underscores and hyphens",
			address:  "jae_min-park@example.com",
			expected: "Jae Min Park",
		},
		{
			name:     "plus tag kept as a part",
			address:  "nina+workshops@example.com",
			expected: "Nina Workshops",
		},
		{
			name:     "already capitalized",
			address:  "Robin@example.com",
			expected: "Robin",
		},
		{
			name:     "no at sign",
			address:  "plainname",
			expected: "Plainname",
		},
		{
			name:     "empty local part",
			address:  "...@example.com",
			expected: "Guest",
		},
		{
			name:     "empty address",
			address:  "",
			expected: "Guest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveDisplayName(tt.address))
		})
	}
}
