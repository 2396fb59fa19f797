package bribe

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"pairRouter/internal/ledger"
)

// Directory links pools to their reward notifier. The link is a ledger record
// and is resolved on every lookup.
type Directory struct {
	store   *ledger.Store
	address common.Address

	mu        sync.RWMutex
	notifiers map[common.Address]RewardNotifier
}

// NewDirectory binds a directory deployed at address.
func NewDirectory(store *ledger.Store, address common.Address) *Directory {
	return &Directory{
		store:     store,
		address:   address,
		notifiers: make(map[common.Address]RewardNotifier),
	}
}

// Address returns the directory address.
func (d *Directory) Address() common.Address { return d.address }

// Register links pool to notifier, replacing any previous link.
func (d *Directory) Register(pool common.Address, notifier RewardNotifier) {
	d.mu.Lock()
	d.notifiers[notifier.Address()] = notifier
	d.mu.Unlock()
	d.store.SetRecord(targetKey(d.address, pool), notifier.Address())
}

// Unregister removes pool's link.
func (d *Directory) Unregister(pool common.Address) {
	d.store.SetRecord(targetKey(d.address, pool), common.Address{})
}

// RewardTarget resolves the notifier for pool. A zero link means none.
func (d *Directory) RewardTarget(pool common.Address) (RewardNotifier, bool) {
	rec, ok := d.store.Record(targetKey(d.address, pool))
	if !ok {
		return nil, false
	}
	target := rec.(common.Address)
	if target == (common.Address{}) {
		return nil, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	notifier, ok := d.notifiers[target]
	return notifier, ok
}

func targetKey(directory, pool common.Address) string {
	return "bribes/" + directory.Hex() + "/" + pool.Hex()
}
