package ledger

import (
	"fmt"
	"time"

	"policyledger/internal/contracts"
)

// mineProof searches for the smallest next_proof satisfying the difficulty
// target and stores it on block (§4.5 step 5). prevProof is 0 for genesis.
func mineProof(block *Block, prevProof uint64, difficulty int) error {
	var nextProof uint64
	for {
		hash, err := PowHash(prevProof, nextProof, block.Header.Index, block.Body)
		if err != nil {
			return err
		}
		if MeetsDifficulty(hash, difficulty) {
			block.Header.Proof = nextProof
			return nil
		}
		nextProof++
	}
}

// Mine runs the full mining algorithm of §4.5: it drains the mempool into a
// candidate block by invoking the MAC contract for each pending policy,
// then searches for a valid proof and appends the candidate. On any
// contract error the candidate is discarded and both chain and mempool are
// left unchanged (§7).
func (c *Chain) Mine() (*Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := c.pending.Snapshot()
	if len(pending) == 0 {
		return nil, ErrNoTransactions
	}

	head := c.blocks[len(c.blocks)-1]
	mac, err := head.FindContract(MACContractName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContractNotFound, err)
	}
	if c.manager != nil {
		if err := c.manager.EnsureNotPaused(mac.ContractAddress); err != nil {
			return nil, err
		}
	}

	candidate := &Block{
		Header: Header{
			Index:        head.Header.Index + 1,
			Timestamp:    time.Now().UTC(),
			PreviousHash: mustHash(head),
		},
		Body: DeepCopyBody(head.Body),
	}

	for _, tx := range pending {
		if err := c.invoker.Invoke(mac.ContractBytecode, tx, candidate); err != nil {
			return nil, fmt.Errorf("%w: contract error: %v", ErrInvalidChain, err)
		}
	}

	if err := mineProof(candidate, head.Header.Proof, c.difficulty); err != nil {
		return nil, err
	}

	c.blocks = append(c.blocks, candidate)
	c.pending.Clear()
	if c.log != nil {
		c.log.WithField("index", candidate.Header.Index).Info("mined block")
	}
	return candidate, nil
}

func mustHash(b *Block) string {
	h, err := b.Hash()
	if err != nil {
		// Hash() only fails on JSON marshal errors, which cannot happen for
		// a block already accepted onto the chain.
		panic(fmt.Sprintf("ledger: hashing accepted block: %v", err))
	}
	return h
}

// AddBlock validates new against the current head and, on success, appends
// it and materializes its policy delta (§4.6). On validation failure the
// chain is left unchanged.
func (c *Chain) AddBlock(newBlock *Block, apply func(*Block) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	head := c.blocks[len(c.blocks)-1]
	if err := IsBlockValid(head, newBlock, c.difficulty); err != nil {
		return err
	}
	if err := contracts.ValidateUnique(newBlock.Body.ContractHeader); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChain, err)
	}
	c.blocks = append(c.blocks, newBlock)
	if apply != nil {
		return apply(newBlock)
	}
	return nil
}
