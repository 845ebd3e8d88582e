// transport/http_client.go
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"pricecache/raft"
)

// HTTPClient implements raft.RPCClient over JSON/HTTP. It keeps a single
// *http.Client with a shared transport so connections to peers are reused
// across calls, the same role the teacher's per-address grpc.ClientConn
// pool played.
type HTTPClient struct {
	httpClient *http.Client
}

// NewHTTPClient builds an HTTP-backed RPC client. dialTimeout bounds
// connection setup only; per-call deadlines come from the context passed
// to each method, matching the spec's per-RPC timeout budgets.
func NewHTTPClient(dialTimeout time.Duration) *HTTPClient {
	dialer := &net.Dialer{Timeout: dialTimeout}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 8,
		DialContext:         dialer.DialContext,
	}
	return &HTTPClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   0, // timeouts come from the request context
		},
	}
}

func (c *HTTPClient) RequestVote(ctx context.Context, peer string, req *raft.RequestVoteRequest) (*raft.RequestVoteResponse, error) {
	var resp raft.RequestVoteResponse
	if err := c.post(ctx, peer, "/raft/request_vote", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) AppendEntries(ctx context.Context, peer string, req *raft.AppendEntriesRequest) (*raft.AppendEntriesResponse, error) {
	var resp raft.AppendEntriesResponse
	if err := c.post(ctx, peer, "/raft/append_entries", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Health(ctx context.Context, peer string) (*raft.HealthResponse, error) {
	url := fmt.Sprintf("http://%s/health", peer)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out raft.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) post(ctx context.Context, peer, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("http://%s%s", peer, path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peer %s returned status %d", peer, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
