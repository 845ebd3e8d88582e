package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPPeerClient implements PeerClient over the node's own JSON/HTTP API
// (spec.md section 6: GET /list-cache, GET /cache-meta, GET /get-cache-file).
type HTTPPeerClient struct {
	httpClient *http.Client
}

// NewHTTPPeerClient builds a PeerClient with a shared HTTP client.
func NewHTTPPeerClient() *HTTPPeerClient {
	return &HTTPPeerClient{httpClient: &http.Client{}}
}

type listCacheResponse struct {
	Files []string `json:"files"`
}

func (c *HTTPPeerClient) ListCache(ctx context.Context, peer string) ([]string, error) {
	var out listCacheResponse
	if err := c.getJSON(ctx, fmt.Sprintf("http://%s/list-cache", peer), &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

type cacheMetaResponse struct {
	Filename string  `json:"filename"`
	Mtime    float64 `json:"mtime"`
}

func (c *HTTPPeerClient) CacheMeta(ctx context.Context, peer, filename string) (time.Time, bool, error) {
	u := fmt.Sprintf("http://%s/cache-meta?filename=%s", peer, url.QueryEscape(filename))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return time.Time{}, false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return time.Time{}, false, err
	}
	defer resp.Body.Close()

	if isNotFound(resp.StatusCode) {
		return time.Time{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return time.Time{}, false, fmt.Errorf("cache-meta for %s returned status %d", filename, resp.StatusCode)
	}

	var out cacheMetaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return time.Time{}, false, fmt.Errorf("decode cache-meta: %w", err)
	}

	sec := int64(out.Mtime)
	nsec := int64((out.Mtime - float64(sec)) * 1e9)
	return time.Unix(sec, nsec), true, nil
}

func (c *HTTPPeerClient) GetCacheFile(ctx context.Context, peer, filename string) ([]byte, error) {
	u := fmt.Sprintf("http://%s/get-cache-file?filename=%s", peer, url.QueryEscape(filename))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get-cache-file for %s returned status %d", filename, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (c *HTTPPeerClient) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request to %s returned status %d", u, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
