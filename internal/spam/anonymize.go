package spam

import (
	"net"
	"strings"
)

// AnonymizeIP strips the host portion of an address before it is stored or
// hashed: IPv4 keeps a /24 (last octet zeroed), IPv6 keeps a /48. Returns ""
// for anything that does not parse as an IP.
func AnonymizeIP(ip string) string {
	if ip == "" {
		return ""
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return ""
	}

	if v4 := parsed.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}
	return parsed.Mask(net.CIDRMask(48, 128)).String()
}
