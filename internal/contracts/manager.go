package contracts

import (
	"fmt"
	"sync"
)

// Manager provides administrative lifecycle operations for deployed
// contracts: transfer-ownership, pause, unpause. Mining checks the MAC's
// paused flag before invoking it, so a paused MAC blocks blocks mined after
// the pause; contracts reached through host_invoke_contract are not checked.
// Pausing never rewrites history, since the ledger is append-only.
type Manager struct {
	mu     sync.RWMutex
	owners map[string]string
	paused map[string]bool
}

// NewManager constructs an empty contract manager.
func NewManager() *Manager {
	return &Manager{
		owners: make(map[string]string),
		paused: make(map[string]bool),
	}
}

// TransferOwnership assigns a new owner for the contract at addr.
func (m *Manager) TransferOwnership(addr, newOwner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[addr] = newOwner
}

// OwnerOf returns the currently recorded owner, or "" if none was set.
func (m *Manager) OwnerOf(addr string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owners[addr]
}

// Pause marks a contract address as paused.
func (m *Manager) Pause(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused[addr] = true
}

// Unpause clears a contract address's paused flag.
func (m *Manager) Unpause(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.paused, addr)
}

// EnsureNotPaused returns an error if addr has been paused.
func (m *Manager) EnsureNotPaused(addr string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.paused[addr] {
		return fmt.Errorf("%w: contract %s is paused", ErrContractError, addr)
	}
	return nil
}
