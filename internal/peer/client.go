package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Client fetches peer chains for consensus and broadcasts blocks/policies to
// peers, all best-effort: a failed broadcast is logged and dropped, never
// retried within the same gossip cycle and never allowed to roll back the
// caller's own state (§4.8, §5's "outbound HTTP never holds the chain lock").
type Client struct {
	hc  *http.Client
	log *logrus.Logger
}

// NewClient builds a gossip/consensus Client with timeout as its default
// per-request budget (callers may further bound via context).
func NewClient(timeout time.Duration, log *logrus.Logger) *Client {
	return &Client{hc: &http.Client{Timeout: timeout}, log: log}
}

type chainResponse struct {
	Chain      []json.RawMessage `json:"chain"`
	Difficulty int               `json:"difficulty"`
}

// FetchChain implements ledger.Fetcher over HTTP by calling peer's GET /.
func (c *Client) FetchChain(ctx context.Context, peer string) ([]json.RawMessage, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, peer+"/", nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("peer: %s returned status %d", peer, resp.StatusCode)
	}
	var out chainResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, err
	}
	return out.Chain, out.Difficulty, nil
}

// postJSON posts body as JSON to url, the shared transport for GossipPolicy
// and GossipBlock below. It reports a transport error or a non-2xx status so
// the caller can log it; the gossip callers never surface it further.
func (c *Client) postJSON(ctx context.Context, url string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("peer: %s returned status %d", url, resp.StatusCode)
	}
	return nil
}

// GossipPolicy broadcasts p to every peer's /add-policy, logging but never
// surfacing per-peer failures (§4.8).
func (c *Client) GossipPolicy(ctx context.Context, peers []string, p any) {
	for _, peer := range peers {
		if err := c.postJSON(ctx, peer+"/add-policy", p); err != nil && c.log != nil {
			c.log.WithError(err).WithField("peer", peer).Warn("peer: gossip policy failed")
		}
	}
}

// GossipBlock announces a newly mined block to every peer's /add-block,
// logging but never surfacing per-peer failures (§4.8).
func (c *Client) GossipBlock(ctx context.Context, peers []string, block any) {
	for _, peer := range peers {
		if err := c.postJSON(ctx, peer+"/add-block", block); err != nil && c.log != nil {
			c.log.WithError(err).WithField("peer", peer).Warn("peer: gossip block failed")
		}
	}
}

// AnnounceSelf registers this node with target by calling its GET
// /register-peer, implementing the "register-with-node" half of §4.8's
// mutual-registration handshake. target identifies the caller by the TCP
// connection's source address, not a declared URL, so selfURL is unused on
// the wire; it is kept so announce failures can be logged against this
// node's own identity.
func (c *Client) AnnounceSelf(ctx context.Context, target, selfURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"/register-peer", nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("peer: %s returned status %d", target, resp.StatusCode)
	}
	return nil
}

type checkAuthResponse struct {
	Result bool `json:"result"`
}

// CheckAuthWithPeer asks peer whether it considers jwt valid, for the
// delegated /check-auth fallback of §4.9 step 3.
func (c *Client) CheckAuthWithPeer(ctx context.Context, peer, jwt string) (bool, error) {
	buf, err := json.Marshal(map[string]string{"jwt": jwt})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, peer+"/check-auth", bytes.NewReader(buf))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("peer: %s returned status %d", peer, resp.StatusCode)
	}
	var out checkAuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Result, nil
}
