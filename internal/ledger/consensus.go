package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// perPeerTimeout bounds a single peer's chain fetch (§4.7): a stalled or
// unreachable peer must never block consensus resolution past this budget.
const perPeerTimeout = 2500 * time.Millisecond

// StartupTimeout bounds the whole best-effort sync a node attempts against
// its configured peers before falling back to its freshly-seeded local
// chain (§4.7, supplemented: the source runs this implicitly at process
// start; this implementation makes the deadline explicit).
const StartupTimeout = 5 * time.Second

// Fetcher retrieves a peer's full chain and difficulty. internal/peer
// implements this over HTTP; tests can substitute an in-memory fake.
type Fetcher interface {
	FetchChain(ctx context.Context, peer string) ([]json.RawMessage, int, error)
}

// ResolveConflicts implements the longest-chain rule of §4.7: every peer is
// queried, each bounded by perPeerTimeout, and the longest chain that also
// passes full validation replaces the local one. Ties, including every peer
// being unreachable or invalid, keep the local chain; the comparison is a
// strict `>`, never `>=`.
func (c *Chain) ResolveConflicts(ctx context.Context, peers []string, f Fetcher, log *logrus.Logger) (bool, error) {
	c.mu.RLock()
	localLen := len(c.blocks)
	localDifficulty := c.difficulty
	c.mu.RUnlock()

	var bestRaw []json.RawMessage
	bestLen := localLen
	bestDifficulty := localDifficulty

	for _, peer := range peers {
		peerCtx, cancel := context.WithTimeout(ctx, perPeerTimeout)
		raw, difficulty, err := f.FetchChain(peerCtx, peer)
		cancel()
		if err != nil {
			if log != nil {
				log.WithError(err).WithField("peer", peer).Warn("consensus: peer fetch failed")
			}
			continue
		}
		if len(raw) <= bestLen {
			continue
		}
		blocks, err := parseChain(raw)
		if err != nil {
			if log != nil {
				log.WithError(err).WithField("peer", peer).Warn("consensus: peer chain unparsable")
			}
			continue
		}
		if err := IsChainValid(blocks, difficulty); err != nil {
			if log != nil {
				log.WithError(err).WithField("peer", peer).Warn("consensus: peer chain invalid")
			}
			continue
		}
		bestRaw = raw
		bestLen = len(raw)
		bestDifficulty = difficulty
	}

	if bestRaw == nil {
		return false, nil
	}

	if err := c.CreateBlockchainFromRequest(bestRaw); err != nil {
		return false, err
	}
	c.mu.Lock()
	c.difficulty = bestDifficulty
	c.mu.Unlock()
	return true, nil
}

func parseChain(raw []json.RawMessage) ([]*Block, error) {
	blocks := make([]*Block, 0, len(raw))
	for _, r := range raw {
		b := &Block{}
		if err := json.Unmarshal(r, b); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
