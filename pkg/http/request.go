package http

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPConfig holds configuration for IP extraction and validation
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies
}

// proxySet is IPConfig with its CIDRs parsed. Invalid ranges are dropped.
type proxySet []netip.Prefix

func newProxySet(config *IPConfig) proxySet {
	if config == nil {
		return nil
	}
	set := make(proxySet, 0, len(config.TrustedProxies))
	for _, cidr := range config.TrustedProxies {
		if p, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err == nil {
			set = append(set, p.Masked())
		}
	}
	return set
}

func (s proxySet) contains(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range s {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP walks X-Forwarded-For from the right and returns the first hop
// that is not one of our proxies. Entries left of that hop are written by
// the client and are not trusted.
func (s proxySet) clientIP(r *http.Request) string {
	remote := remoteHost(r.RemoteAddr)
	if len(s) == 0 || !s.contains(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		oldest := ""
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				break
			}
			if !s.contains(hop) {
				return hop
			}
			oldest = hop
		}
		if oldest != "" {
			return oldest
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}
	return remote
}

// ExtractClientIP returns the caller's address. Forwarding headers are
// honoured only when the direct peer is a trusted proxy.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	return newProxySet(config).clientIP(r)
}

func remoteHost(addr string) string {
	if addr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

type clientInfoKey struct{}

// ClientInfo identifies the caller of a request for attempt logging
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// WithClientInfo stores info in ctx
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// ClientInfoFromContext returns the stored client info, or a zero value
func ClientInfoFromContext(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}

// ClientInfoMiddleware records the client IP and user agent on the request
// context. Proxy ranges are parsed once here.
func ClientInfoMiddleware(config *IPConfig) func(http.Handler) http.Handler {
	proxies := newProxySet(config)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithClientInfo(r.Context(), ClientInfo{
				IPAddress: proxies.clientIP(r),
				UserAgent: r.UserAgent(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
