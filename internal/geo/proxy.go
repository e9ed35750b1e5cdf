package geo

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a cached geolocation body stays valid.
// Visitor IP assignments move slowly; a day keeps results fresh enough.
const DefaultCacheTTL = 24 * time.Hour

// maxCacheEntries bounds the per-IP cache. Reaching the cap flushes the
// whole cache rather than evicting one entry at a time; a full cache on
// a collector this size means a scan, not organic traffic.
const maxCacheEntries = 4096

// CacheProxy is an http.Handler that fronts the upstream geolocation
// API on behalf of landing pages. It caches the raw upstream response
// per client IP so repeated page loads from one visitor cost a single
// upstream call, which keeps the free-tier rate limit workable.
// Entries expire after a TTL and the cache is bounded in size.
type CacheProxy struct {
	// client performs upstream requests.
	client *http.Client

	// endpoint is the upstream resolution URL.
	endpoint string

	// logger for structured logging.
	logger *slog.Logger

	// ttl is the lifetime of a cached entry.
	ttl time.Duration

	// now reports the current time, replaceable in tests.
	now func() time.Time

	mu sync.RWMutex
	// cache maps client IP to the raw upstream JSON body.
	cache map[string]cacheEntry
}

// cacheEntry is a cached upstream body with its expiry deadline.
type cacheEntry struct {
	body    []byte
	expires time.Time
}

// ProxyOption configures a CacheProxy.
type ProxyOption func(*CacheProxy)

// WithProxyHTTPClient sets the HTTP client used for upstream requests.
func WithProxyHTTPClient(client *http.Client) ProxyOption {
	return func(p *CacheProxy) {
		p.client = client
	}
}

// WithProxyLogger sets a custom logger for the proxy.
func WithProxyLogger(logger *slog.Logger) ProxyOption {
	return func(p *CacheProxy) {
		p.logger = logger
	}
}

// WithProxyCacheTTL sets how long cached geolocation bodies stay valid.
func WithProxyCacheTTL(ttl time.Duration) ProxyOption {
	return func(p *CacheProxy) {
		p.ttl = ttl
	}
}

// NewCacheProxy creates a caching proxy against the given upstream endpoint.
func NewCacheProxy(endpoint string, opts ...ProxyOption) *CacheProxy {
	p := &CacheProxy{
		endpoint: endpoint,
		client:   http.DefaultClient,
		ttl:      DefaultCacheTTL,
		now:      time.Now,
		cache:    make(map[string]cacheEntry),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// ServeHTTP serves a cached upstream body when available, otherwise
// performs one upstream request and caches a successful result.
// Upstream rate limiting is passed through as 429 so clients apply
// their own fallback; other upstream failures become 502.
func (p *CacheProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}

	clientIP := clientAddress(r)

	p.mu.RLock()
	cached, ok := p.cache[clientIP]
	p.mu.RUnlock()
	if ok && p.now().Before(cached.expires) {
		writeJSONBody(w, cached.body)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, p.endpoint, nil)
	if err != nil {
		http.Error(w, `{"error":"geolocation unavailable"}`, http.StatusBadGateway)
		return
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("geolocation upstream failed", "error", err)
		http.Error(w, `{"error":"geolocation unavailable"}`, http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Debug("geolocation upstream returned non-success status", "status", resp.StatusCode)
		http.Error(w, `{"error":"geolocation unavailable"}`, http.StatusBadGateway)
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil || !json.Valid(body) {
		http.Error(w, `{"error":"geolocation unavailable"}`, http.StatusBadGateway)
		return
	}

	p.mu.Lock()
	if len(p.cache) >= maxCacheEntries {
		p.cache = make(map[string]cacheEntry)
	}
	p.cache[clientIP] = cacheEntry{body: body, expires: p.now().Add(p.ttl)}
	p.mu.Unlock()

	writeJSONBody(w, body)
}

// clientAddress extracts the client IP, honoring the first
// X-Forwarded-For hop when the collector sits behind a reverse proxy.
func clientAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSONBody writes a cached or fresh JSON body with the right content type.
func writeJSONBody(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
