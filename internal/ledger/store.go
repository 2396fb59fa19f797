package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairRouter/internal/amm"
	"pairRouter/internal/model"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Clock returns the ledger timestamp in unix seconds.
type Clock func() uint64

// WallClock reads the system time.
func WallClock() uint64 {
	return uint64(time.Now().Unix())
}

type allowanceKey struct {
	token   common.Address
	owner   common.Address
	spender common.Address
}

// Store is the host ledger: a token balance book, native balances, a keyed
// record store for contract state and an event log. Every mutation made inside
// Atomic is journaled and undone if the call fails.
//
// Records must be value types (or be replaced wholesale on every write) so a
// restored record is never aliased by later mutations.
type Store struct {
	balances   map[common.Address]map[common.Address]uint256.Int
	supply     map[common.Address]uint256.Int
	allowances map[allowanceKey]uint256.Int
	native     map[common.Address]uint256.Int
	records    map[string]interface{}

	events []model.Event
	seq    uint64

	journal []func()
	depth   int
	clock   Clock
}

// NewStore returns an empty ledger. A nil clock uses wall time.
func NewStore(clock Clock) *Store {
	if clock == nil {
		clock = WallClock
	}
	return &Store{
		balances:   make(map[common.Address]map[common.Address]uint256.Int),
		supply:     make(map[common.Address]uint256.Int),
		allowances: make(map[allowanceKey]uint256.Int),
		native:     make(map[common.Address]uint256.Int),
		records:    make(map[string]interface{}),
		clock:      clock,
	}
}

// Timestamp returns the current ledger time.
func (s *Store) Timestamp() uint64 {
	return s.clock()
}

// Atomic runs fn as one unit: if fn returns an error (or panics) every change
// it made to the store is rolled back. Calls nest.
func (s *Store) Atomic(fn func() error) (err error) {
	point := len(s.journal)
	s.depth++
	defer func() {
		s.depth--
		if r := recover(); r != nil {
			s.rollback(point)
			panic(r)
		}
		if err != nil {
			s.rollback(point)
			return
		}
		if s.depth == 0 {
			s.journal = s.journal[:0]
		}
	}()
	return fn()
}

// InTransaction reports whether the caller is inside Atomic.
func (s *Store) InTransaction() bool {
	return s.depth > 0
}

func (s *Store) rollback(point int) {
	for i := len(s.journal) - 1; i >= point; i-- {
		s.journal[i]()
	}
	s.journal = s.journal[:point]
}

func (s *Store) remember(undo func()) {
	if s.InTransaction() {
		s.journal = append(s.journal, undo)
	}
}

// BalanceOf returns a copy of owner's balance of token.
func (s *Store) BalanceOf(token, owner common.Address) *uint256.Int {
	bal := s.balances[token][owner]
	return new(uint256.Int).Set(&bal)
}

// TotalSupply returns a copy of the minted supply of token.
func (s *Store) TotalSupply(token common.Address) *uint256.Int {
	supply := s.supply[token]
	return new(uint256.Int).Set(&supply)
}

func (s *Store) setBalance(token, owner common.Address, value *uint256.Int) {
	holders, ok := s.balances[token]
	if !ok {
		holders = make(map[common.Address]uint256.Int)
		s.balances[token] = holders
	}
	prev, existed := holders[owner]
	s.remember(func() {
		if existed {
			holders[owner] = prev
		} else {
			delete(holders, owner)
		}
	})
	holders[owner] = *value
}

func (s *Store) setSupply(token common.Address, value *uint256.Int) {
	prev, existed := s.supply[token]
	s.remember(func() {
		if existed {
			s.supply[token] = prev
		} else {
			delete(s.supply, token)
		}
	})
	s.supply[token] = *value
}

// Move transfers amount of token between two holders.
func (s *Store) Move(token, from, to common.Address, amount *uint256.Int) error {
	fromBal := s.BalanceOf(token, from)
	if fromBal.Lt(amount) {
		return fmt.Errorf("%s has %s of %s, needs %s: %w", from.Hex(), fromBal.Dec(), token.Hex(), amount.Dec(), ErrInsufficientBalance)
	}
	if from == to {
		return nil
	}
	toBal, err := amm.Add(s.BalanceOf(token, to), amount)
	if err != nil {
		return err
	}
	s.setBalance(token, from, fromBal.Sub(fromBal, amount))
	s.setBalance(token, to, toBal)
	return nil
}

// Mint creates amount of token for to.
func (s *Store) Mint(token, to common.Address, amount *uint256.Int) error {
	supply, err := amm.Add(s.TotalSupply(token), amount)
	if err != nil {
		return err
	}
	bal, err := amm.Add(s.BalanceOf(token, to), amount)
	if err != nil {
		return err
	}
	s.setSupply(token, supply)
	s.setBalance(token, to, bal)
	return nil
}

// Burn destroys amount of token held by from.
func (s *Store) Burn(token, from common.Address, amount *uint256.Int) error {
	bal := s.BalanceOf(token, from)
	if bal.Lt(amount) {
		return fmt.Errorf("burn %s from %s: %w", amount.Dec(), from.Hex(), ErrInsufficientBalance)
	}
	supply, err := amm.Sub(s.TotalSupply(token), amount)
	if err != nil {
		return err
	}
	s.setBalance(token, from, bal.Sub(bal, amount))
	s.setSupply(token, supply)
	return nil
}

// Allowance returns how much spender may move on owner's behalf.
func (s *Store) Allowance(token, owner, spender common.Address) *uint256.Int {
	allowance := s.allowances[allowanceKey{token: token, owner: owner, spender: spender}]
	return new(uint256.Int).Set(&allowance)
}

// SetAllowance overwrites an allowance.
func (s *Store) SetAllowance(token, owner, spender common.Address, amount *uint256.Int) {
	key := allowanceKey{token: token, owner: owner, spender: spender}
	prev, existed := s.allowances[key]
	s.remember(func() {
		if existed {
			s.allowances[key] = prev
		} else {
			delete(s.allowances, key)
		}
	})
	s.allowances[key] = *amount
}

// SpendAllowance consumes amount of an allowance. An all-ones allowance is
// treated as unlimited.
func (s *Store) SpendAllowance(token, owner, spender common.Address, amount *uint256.Int) error {
	allowance := s.Allowance(token, owner, spender)
	if allowance.Eq(maxUint256) {
		return nil
	}
	if allowance.Lt(amount) {
		return fmt.Errorf("%s allows %s %s of %s, needs %s: %w", owner.Hex(), spender.Hex(), allowance.Dec(), token.Hex(), amount.Dec(), ErrInsufficientAllowance)
	}
	s.SetAllowance(token, owner, spender, allowance.Sub(allowance, amount))
	return nil
}

var maxUint256 = new(uint256.Int).SetAllOne()

// MaxAmount is the unlimited allowance value.
func MaxAmount() *uint256.Int {
	return maxUint256.Clone()
}

// NativeBalanceOf returns the native-asset balance of owner.
func (s *Store) NativeBalanceOf(owner common.Address) *uint256.Int {
	bal := s.native[owner]
	return new(uint256.Int).Set(&bal)
}

func (s *Store) setNative(owner common.Address, value *uint256.Int) {
	prev, existed := s.native[owner]
	s.remember(func() {
		if existed {
			s.native[owner] = prev
		} else {
			delete(s.native, owner)
		}
	})
	s.native[owner] = *value
}

// CreditNative adds native value to owner out of thin air (genesis funding).
func (s *Store) CreditNative(owner common.Address, amount *uint256.Int) error {
	bal, err := amm.Add(s.NativeBalanceOf(owner), amount)
	if err != nil {
		return err
	}
	s.setNative(owner, bal)
	return nil
}

// MoveNative transfers native value.
func (s *Store) MoveNative(from, to common.Address, amount *uint256.Int) error {
	fromBal := s.NativeBalanceOf(from)
	if fromBal.Lt(amount) {
		return fmt.Errorf("%s has %s native, needs %s: %w", from.Hex(), fromBal.Dec(), amount.Dec(), ErrInsufficientBalance)
	}
	if from == to {
		return nil
	}
	toBal, err := amm.Add(s.NativeBalanceOf(to), amount)
	if err != nil {
		return err
	}
	s.setNative(from, fromBal.Sub(fromBal, amount))
	s.setNative(to, toBal)
	return nil
}

// Record returns the contract record stored under key.
func (s *Store) Record(key string) (interface{}, bool) {
	value, ok := s.records[key]
	return value, ok
}

// SetRecord stores a contract record under key.
func (s *Store) SetRecord(key string, value interface{}) {
	prev, existed := s.records[key]
	s.remember(func() {
		if existed {
			s.records[key] = prev
		} else {
			delete(s.records, key)
		}
	})
	s.records[key] = value
}

// Emit appends an event to the log. Events emitted inside a failed Atomic call
// are discarded with the rest of its changes.
func (s *Store) Emit(address common.Address, name string, payload interface{}) {
	n, seq := len(s.events), s.seq
	s.remember(func() {
		s.events = s.events[:n]
		s.seq = seq
	})
	s.seq++
	s.events = append(s.events, model.Event{
		Seq:       s.seq,
		Timestamp: s.Timestamp(),
		Address:   address.Hex(),
		EventName: name,
		Decoded:   payload,
	})
}

// TakeEvents returns and clears the committed event log. It returns nil while
// a transaction is open.
func (s *Store) TakeEvents() []model.Event {
	if s.InTransaction() {
		return nil
	}
	events := s.events
	s.events = nil
	return events
}
