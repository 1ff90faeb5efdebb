package spam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ipv4 zeroes last octet", "203.0.113.42", "203.0.113.0"},
		{"ipv4 already anonymized", "203.0.113.0", "203.0.113.0"},
		{"ipv4 with whitespace", " 198.51.100.7 ", "198.51.100.0"},
		{"ipv6 keeps /48", "2001:db8:85a3:8d3:1319:8a2e:370:7348", "2001:db8:85a3::"},
		{"ipv6 loopback", "::1", "::"},
		{"empty", "", ""},
		{"hostname", "example.com", ""},
		{"garbage", "not an ip", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, AnonymizeIP(tt.in))
		})
	}
}

func TestAnonymizeIP_SameSubnetCollapses(t *testing.T) {
	t.Parallel()

	// Two addresses in the same /24 become indistinguishable.
	assert.Equal(t, AnonymizeIP("203.0.113.1"), AnonymizeIP("203.0.113.254"))
	assert.NotEqual(t, AnonymizeIP("203.0.113.1"), AnonymizeIP("203.0.114.1"))
}
