package clientip

import (
	"net"
	"net/http"
	"strings"
)

// DefaultHeaders is the header priority used by GetIP.
var DefaultHeaders = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// Resolver extracts the client address from a request, consulting the
// configured proxy headers in order before RemoteAddr.
type Resolver struct {
	headers []string
}

// NewResolver creates a resolver that trusts the given headers. With no
// headers only RemoteAddr is used, which is the safe choice when the service
// is exposed without a proxy.
func NewResolver(headers ...string) *Resolver {
	return &Resolver{headers: headers}
}

var defaultResolver = NewResolver(DefaultHeaders...)

// GetIP resolves the client address with DefaultHeaders.
func GetIP(r *http.Request) string {
	return defaultResolver.IP(r)
}

// IP returns the normalized client address or "" when none is parseable.
func (res *Resolver) IP(r *http.Request) string {
	for _, h := range res.headers {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		// X-Forwarded-For style lists: first valid entry wins.
		for part := range strings.SplitSeq(v, ",") {
			if ip := parseIP(part); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}
