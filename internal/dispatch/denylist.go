package dispatch

import (
	"fmt"
	"net"
)

// ParseCIDRList parses a list of CIDR strings ("10.0.0.0/8",
// "::1/128") into *net.IPNet values, for use as a service's deny4 or
// deny6 list.
func ParseCIDRList(cidrs []string) ([]*net.IPNet, error) {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", c, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// Denied reports whether addr (a dotted IPv4 or colon-form IPv6
// address, with or without a port) matches any configured deny rule.
// Localhost bypasses the beep/notice machinery elsewhere in the
// dispatcher but is still subject to deny, per spec §4.I.
func (s *Service) Denied(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	list := s.DenyIPv4
	if ip.To4() == nil {
		list = s.DenyIPv6
	}
	for _, n := range list {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
