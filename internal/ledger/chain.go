package ledger

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"policyledger/internal/contracts"
	"policyledger/internal/policy"
)

// MACContractName is the well-known name the mining algorithm resolves via
// find_contract on the current head block (§4.5 step 2).
const MACContractName = "MAC"

// Chain is the ordered block sequence with difficulty and mempool of §3.
// A single exclusive lock protects mining, block admission, and chain
// replacement per §5; reads go through RLock.
type Chain struct {
	mu         sync.RWMutex
	blocks     []*Block
	difficulty int
	pending    *mempool
	invoker    contracts.Invoker
	manager    *contracts.Manager
	log        *logrus.Logger
}

// NewChain seeds a fresh chain with a genesis block carrying macHeader as
// its sole contract (§3's "Contracts are introduced via genesis").
func NewChain(difficulty int, invoker contracts.Invoker, manager *contracts.Manager, log *logrus.Logger, macHeader contracts.ContractHeader) (*Chain, error) {
	c := &Chain{
		difficulty: difficulty,
		pending:    newMempool(),
		invoker:    invoker,
		manager:    manager,
		log:        log,
	}
	genesis := &Block{
		Header: Header{Index: 0, Timestamp: time.Now().UTC(), PreviousHash: "0"},
		Body:   NewEmptyBody(),
	}
	genesis.Body.ContractHeader = []contracts.ContractHeader{macHeader}
	if err := mineProof(genesis, 0, difficulty); err != nil {
		return nil, err
	}
	c.blocks = []*Block{genesis}
	return c, nil
}

// Difficulty returns the chain's configured PoW difficulty.
func (c *Chain) Difficulty() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.difficulty
}

// Head returns the current last block.
func (c *Chain) Head() *Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

// Len returns the number of blocks in the chain.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// Blocks returns a shallow copy of the block pointer slice. Callers must not
// mutate the blocks themselves outside the chain lock.
func (c *Chain) Blocks() []*Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// AddPolicy appends a policy to the mempool if it is not an exact duplicate
// of one already pending (§4.4). The caller in internal/httpapi gossips the
// policy to peers through internal/peer after this returns, outside any lock.
func (c *Chain) AddPolicy(p policy.Policy) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.Add(p)
}

// MempoolLen reports the current mempool depth (used by the /healthz
// endpoint).
func (c *Chain) MempoolLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending.Len()
}
