package pair

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairRouter/internal/amm"
	"pairRouter/internal/model"
)

// PeriodSize is the minimum spacing in seconds between two observations.
const PeriodSize = 1800

var ErrNotEnoughObservations = errors.New("not enough observations")

// Observation is a checkpoint of the reserve accumulators.
type Observation struct {
	Timestamp          uint64
	Reserve0Cumulative uint256.Int
	Reserve1Cumulative uint256.Int
}

// update writes new reserves, advancing the accumulators by the time the old
// reserves were in force. Accumulators wrap modulo 2^256; readers only ever
// take differences.
func (p *Pair) update(st State, balance0, balance1 *uint256.Int) {
	now := p.store.Timestamp()
	if now > st.BlockTimestampLast && !st.Reserve0.IsZero() && !st.Reserve1.IsZero() {
		elapsed := uint256.NewInt(now - st.BlockTimestampLast)
		st.Reserve0CumulativeLast.Add(&st.Reserve0CumulativeLast, new(uint256.Int).Mul(&st.Reserve0, elapsed))
		st.Reserve1CumulativeLast.Add(&st.Reserve1CumulativeLast, new(uint256.Int).Mul(&st.Reserve1, elapsed))
	}

	n := len(st.Observations)
	if n == 0 || now-st.Observations[n-1].Timestamp > PeriodSize {
		observations := make([]Observation, n, n+1)
		copy(observations, st.Observations)
		st.Observations = append(observations, Observation{
			Timestamp:          now,
			Reserve0Cumulative: st.Reserve0CumulativeLast,
			Reserve1Cumulative: st.Reserve1CumulativeLast,
		})
	}

	st.Reserve0.Set(balance0)
	st.Reserve1.Set(balance1)
	if now > st.BlockTimestampLast {
		st.BlockTimestampLast = now
	}
	p.setState(st)

	p.store.Emit(p.cfg.Address, model.EventSync, model.SyncEventData{
		Reserve0: balance0.Dec(),
		Reserve1: balance1.Dec(),
	})
}

// Observations returns a copy of the recorded checkpoints.
func (p *Pair) Observations() []Observation {
	st := p.state()
	out := make([]Observation, len(st.Observations))
	copy(out, st.Observations)
	return out
}

// CurrentCumulativeReserves projects the accumulators to the current ledger
// time without writing anything.
func (p *Pair) CurrentCumulativeReserves() (*uint256.Int, *uint256.Int, uint64) {
	st := p.state()
	now := p.store.Timestamp()
	c0 := new(uint256.Int).Set(&st.Reserve0CumulativeLast)
	c1 := new(uint256.Int).Set(&st.Reserve1CumulativeLast)
	if now > st.BlockTimestampLast {
		elapsed := uint256.NewInt(now - st.BlockTimestampLast)
		c0.Add(c0, new(uint256.Int).Mul(&st.Reserve0, elapsed))
		c1.Add(c1, new(uint256.Int).Mul(&st.Reserve1, elapsed))
	} else {
		now = st.BlockTimestampLast
	}
	return c0, c1, now
}

// Current quotes amountIn against the time-weighted reserves since the last
// observation.
func (p *Pair) Current(tokenIn common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	observations := p.state().Observations
	if len(observations) == 0 {
		return nil, ErrNotEnoughObservations
	}
	c0, c1, now := p.CurrentCumulativeReserves()
	last := observations[len(observations)-1]
	if now == last.Timestamp {
		if len(observations) < 2 {
			return nil, ErrNotEnoughObservations
		}
		last = observations[len(observations)-2]
	}
	to := Observation{Timestamp: now}
	to.Reserve0Cumulative.Set(c0)
	to.Reserve1Cumulative.Set(c1)
	return p.quoteBetween(last, to, tokenIn, amountIn)
}

// Quote averages the time-weighted quote over the last granularity
// observation windows.
func (p *Pair) Quote(tokenIn common.Address, amountIn *uint256.Int, granularity int) (*uint256.Int, error) {
	observations := p.state().Observations
	if granularity <= 0 || len(observations) < granularity+1 {
		return nil, fmt.Errorf("%d windows requested, %d observations: %w", granularity, len(observations), ErrNotEnoughObservations)
	}
	total := new(uint256.Int)
	for i := len(observations) - 1 - granularity; i < len(observations)-1; i++ {
		out, err := p.quoteBetween(observations[i], observations[i+1], tokenIn, amountIn)
		if err != nil {
			return nil, err
		}
		if total, err = amm.Add(total, out); err != nil {
			return nil, err
		}
	}
	return total.Div(total, uint256.NewInt(uint64(granularity))), nil
}

func (p *Pair) quoteBetween(from, to Observation, tokenIn common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	if to.Timestamp <= from.Timestamp {
		return nil, ErrNotEnoughObservations
	}
	elapsed := uint256.NewInt(to.Timestamp - from.Timestamp)
	pool := p.PoolState()
	pool.Reserve0 = new(uint256.Int).Sub(&to.Reserve0Cumulative, &from.Reserve0Cumulative)
	pool.Reserve0.Div(pool.Reserve0, elapsed)
	pool.Reserve1 = new(uint256.Int).Sub(&to.Reserve1Cumulative, &from.Reserve1Cumulative)
	pool.Reserve1.Div(pool.Reserve1, elapsed)
	return amm.QuoteOut(pool, amountIn, tokenIn)
}
