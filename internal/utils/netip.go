package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// HostNoPort strips the port from "ip:port" or "[v6]:port". Other input is
// returned unchanged.
func HostNoPort(s string) string {
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return s
}

// ClientAddr resolves the address of the caller. With trustProxy, X-Real-IP
// wins, then the right-most X-Forwarded-For entry: both are written by the
// trusted proxy itself, while earlier X-Forwarded-For entries come from the
// client. Otherwise only RemoteAddr is used. An unparsable address yields the
// zero Addr.
func ClientAddr(r *http.Request, trustProxy bool) netip.Addr {
	if trustProxy {
		xff := r.Header.Get("X-Forwarded-For")
		if i := strings.LastIndexByte(xff, ','); i >= 0 {
			xff = xff[i+1:]
		}
		for _, v := range []string{r.Header.Get("X-Real-IP"), xff} {
			if addr, ok := parseAddr(v); ok {
				return addr
			}
		}
	}
	addr, _ := parseAddr(r.RemoteAddr)
	return addr
}

func parseAddr(s string) (netip.Addr, bool) {
	s = HostNoPort(strings.TrimSpace(s))
	if s == "" {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// IPMatcher matches addresses against a list of prefixes. A bare IP is a
// single-address prefix.
type IPMatcher struct {
	prefixes []netip.Prefix
}

// NewIPMatcher parses list and returns the entries it could not understand.
func NewIPMatcher(list []string) (*IPMatcher, []string) {
	m := &IPMatcher{}
	var invalid []string
	for _, raw := range list {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			m.prefixes = append(m.prefixes, p.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(s); err == nil {
			addr = addr.Unmap()
			m.prefixes = append(m.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		invalid = append(invalid, s)
	}
	return m, invalid
}

func (m *IPMatcher) IsEmpty() bool {
	return len(m.prefixes) == 0
}

// Allow reports whether addr falls in any prefix. The zero Addr never matches.
func (m *IPMatcher) Allow(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	for _, p := range m.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
