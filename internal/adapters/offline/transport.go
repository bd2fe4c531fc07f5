// Package offline provides an HTTP transport that keeps the client usable without a network.
//
// API calls are network-first with a cached fallback; everything else is
// cache-first. Responses replayed from the cache carry the X-From-Cache header.
package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// FromCacheHeader marks responses replayed from a bucket.
const FromCacheHeader = "X-From-Cache"

// DefaultVersion is the cache generation used when none is configured.
const DefaultVersion = "v1"

// DefaultAPIPatterns are the path fragments that select the network-first strategy.
var DefaultAPIPatterns = []string{"/emails", "/kanban", "/gmail", "/search", "/auth/me", "/mailboxes", "/statistics"}

const offlineMessage = "You are currently offline. Please check your internet connection."

// Options configures a Transport.
type Options struct {
	Version     string
	APIPatterns []string
	// OfflineURL is the document served when a static request fails. Defaults to /offline on the request host.
	OfflineURL string
	Clock      func() time.Time
}

// Transport is an http.RoundTripper implementing the offline cache strategy.
type Transport struct {
	base     http.RoundTripper
	store    Store
	version  string
	patterns []string
	offline  string
	clock    func() time.Time
}

// New wraps base with the cache strategy backed by store.
func New(base http.RoundTripper, store Store, opts Options) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if store == nil {
		store = NewMemoryStore()
	}
	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = DefaultVersion
	}
	patterns := opts.APIPatterns
	if len(patterns) == 0 {
		patterns = DefaultAPIPatterns
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Transport{
		base:     base,
		store:    store,
		version:  version,
		patterns: slices.Clone(patterns),
		offline:  strings.TrimSpace(opts.OfflineURL),
		clock:    clock,
	}
}

// StaticBucket names the cache-first bucket for the current version.
func (t *Transport) StaticBucket() string {
	return "mailkan-" + t.version
}

// APIBucket names the network-first bucket for the current version.
func (t *Transport) APIBucket() string {
	return "mailkan-api-" + t.version
}

// IsAPIRequest reports whether u is served network-first.
func (t *Transport) IsAPIRequest(u *url.URL) bool {
	for _, p := range t.patterns {
		if strings.Contains(u.Path, p) {
			return true
		}
	}
	return false
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.IsAPIRequest(req.URL) {
		return t.networkFirst(req)
	}
	return t.cacheFirst(req)
}

func (t *Transport) networkFirst(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	resp, err := t.base.RoundTrip(req)
	if err == nil {
		if req.Method == http.MethodGet && resp.StatusCode == http.StatusOK {
			return t.storeResponse(ctx, t.APIBucket(), req, resp)
		}
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	log.Debug("network failed, trying api cache", "url", req.URL.String(), "err", err)
	if req.Method == http.MethodGet {
		entry, ok, lookupErr := t.store.GetEntry(ctx, t.APIBucket(), cacheKey(req.URL))
		if lookupErr != nil {
			log.Warn("api cache lookup failed", "err", lookupErr)
		}
		if ok {
			out := entryResponse(req, entry)
			out.Header.Set(FromCacheHeader, "true")
			return out, nil
		}
	}
	return offlineJSON(req), nil
}

func (t *Transport) cacheFirst(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if req.Method == http.MethodGet {
		entry, ok, err := t.store.GetEntry(ctx, t.StaticBucket(), cacheKey(req.URL))
		if err != nil {
			log.Warn("static cache lookup failed", "err", err)
		}
		if ok {
			return entryResponse(req, entry), nil
		}
	}
	resp, err := t.base.RoundTrip(req)
	if err == nil {
		if req.Method == http.MethodGet && resp.StatusCode == http.StatusOK {
			return t.storeResponse(ctx, t.StaticBucket(), req, resp)
		}
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	log.Debug("network failed for static request", "url", req.URL.String(), "err", err)
	if offlineURL, parseErr := url.Parse(t.offlineURLFor(req.URL)); parseErr == nil {
		entry, ok, lookupErr := t.store.GetEntry(ctx, t.StaticBucket(), cacheKey(offlineURL))
		if lookupErr != nil {
			log.Warn("offline document lookup failed", "err", lookupErr)
		}
		if ok {
			return entryResponse(req, entry), nil
		}
	}
	return textResponse(req, http.StatusServiceUnavailable, "Offline - No cached version available"), nil
}

func (t *Transport) offlineURLFor(u *url.URL) string {
	if t.offline != "" {
		return t.offline
	}
	return u.Scheme + "://" + u.Host + "/offline"
}

// storeResponse buffers resp, writes it to bucket, and hands back an unread copy.
func (t *Transport) storeResponse(ctx context.Context, bucket string, req *http.Request, resp *http.Response) (*http.Response, error) {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	entry := Entry{
		Key:      cacheKey(req.URL),
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: t.clock().UTC(),
	}
	if err := t.store.PutEntry(ctx, bucket, entry); err != nil {
		log.Warn("failed to cache response", "bucket", bucket, "url", entry.Key, "err", err)
	}
	return resp, nil
}

// Activate deletes every bucket that does not belong to the current version.
func (t *Transport) Activate(ctx context.Context) ([]string, error) {
	names, err := t.store.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cache buckets: %w", err)
	}
	var purged []string
	for _, name := range names {
		if name == t.StaticBucket() || name == t.APIBucket() {
			continue
		}
		if err := t.store.DeleteBucket(ctx, name); err != nil {
			return purged, fmt.Errorf("delete cache bucket %q: %w", name, err)
		}
		log.Info("deleted stale cache bucket", "bucket", name)
		purged = append(purged, name)
	}
	return purged, nil
}

// ClearAll deletes every bucket.
func (t *Transport) ClearAll(ctx context.Context) error {
	names, err := t.store.ListBuckets(ctx)
	if err != nil {
		return fmt.Errorf("list cache buckets: %w", err)
	}
	for _, name := range names {
		if err := t.store.DeleteBucket(ctx, name); err != nil {
			return fmt.Errorf("delete cache bucket %q: %w", name, err)
		}
	}
	return nil
}

// Precache fetches urls over the network and stores every 200 response in the
// static bucket. It returns how many were stored.
func (t *Transport) Precache(ctx context.Context, urls []string) (int, error) {
	var (
		stored int
		errs   []error
	)
	for _, raw := range urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("precache %s: %w", raw, err))
			continue
		}
		req.Header.Set("Cache-Control", "no-cache")
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			errs = append(errs, fmt.Errorf("precache %s: %w", raw, err))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			errs = append(errs, fmt.Errorf("precache %s: status %d", raw, resp.StatusCode))
			continue
		}
		out, err := t.storeResponse(ctx, t.StaticBucket(), req, resp)
		if err != nil {
			errs = append(errs, fmt.Errorf("precache %s: %w", raw, err))
			continue
		}
		_ = out.Body.Close()
		stored++
	}
	return stored, errors.Join(errs...)
}

func cacheKey(u *url.URL) string {
	return u.Scheme + "://" + u.Host + u.RequestURI()
}

func entryResponse(req *http.Request, entry Entry) *http.Response {
	header := entry.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", entry.Status, http.StatusText(entry.Status)),
		StatusCode:    entry.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}
}

func offlineJSON(req *http.Request) *http.Response {
	body, _ := json.Marshal(map[string]any{
		"error":   "Offline",
		"message": offlineMessage,
		"cached":  false,
	})
	resp := entryResponse(req, Entry{Status: http.StatusServiceUnavailable, Body: body})
	resp.Header.Set("Content-Type", "application/json")
	return resp
}

func textResponse(req *http.Request, status int, text string) *http.Response {
	resp := entryResponse(req, Entry{Status: status, Body: []byte(text)})
	resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
	return resp
}
