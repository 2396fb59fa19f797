package token

import (
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Token is the transfer collaborator used by pools and the router. Transfers
// report failure by returning false; callers must re-read balances rather than
// trust the requested amount.
type Token interface {
	Address() common.Address
	Symbol() string
	Decimals() uint8
	BalanceOf(owner common.Address) *uint256.Int
	Transfer(caller, to common.Address, amount *uint256.Int) bool
	TransferFrom(caller, from, to common.Address, amount *uint256.Int) bool
	Approve(caller, spender common.Address, amount *uint256.Int) bool
}

// DeriveAddress maps a human label onto a stable 20-byte address.
func DeriveAddress(namespace, label string) common.Address {
	hash := crypto.Keccak256([]byte(namespace), []byte(strings.ToLower(strings.TrimSpace(label))))
	return common.BytesToAddress(hash[12:])
}

// Directory resolves token addresses to their collaborators.
type Directory struct {
	mu     sync.RWMutex
	tokens map[common.Address]Token
}

// NewDirectory returns an empty token directory.
func NewDirectory() *Directory {
	return &Directory{tokens: make(map[common.Address]Token)}
}

// Register adds t, replacing any token at the same address.
func (d *Directory) Register(t Token) {
	d.mu.Lock()
	d.tokens[t.Address()] = t
	d.mu.Unlock()
}

// Token looks a token up by address.
func (d *Directory) Token(address common.Address) (Token, bool) {
	d.mu.RLock()
	t, ok := d.tokens[address]
	d.mu.RUnlock()
	return t, ok
}

// BySymbol returns the first registered token with a matching symbol.
func (d *Directory) BySymbol(symbol string) (Token, bool) {
	for _, t := range d.All() {
		if strings.EqualFold(t.Symbol(), symbol) {
			return t, true
		}
	}
	return nil, false
}

// All returns the registered tokens ordered by address.
func (d *Directory) All() []Token {
	d.mu.RLock()
	out := make([]Token, 0, len(d.tokens))
	for _, t := range d.tokens {
		out = append(out, t)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address().Hex() < out[j].Address().Hex()
	})
	return out
}
