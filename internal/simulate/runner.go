package simulate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pairRouter/internal/bribe"
	"pairRouter/internal/ledger"
	"pairRouter/internal/model"
	"pairRouter/internal/pair"
	"pairRouter/internal/registry"
	"pairRouter/internal/router"
	"pairRouter/internal/storage"
	"pairRouter/internal/token"
)

const defaultNativeSymbol = "WETH"

// Options configures the deployment a scenario runs against.
type Options struct {
	StartTime uint64
	Registry  registry.Config
	Router    router.Config
	// BribeDirectory is the address of the pool-to-bribe directory. Zero
	// derives one.
	BribeDirectory common.Address
	Sinks          []storage.Sink
	Logger         *zap.Logger
}

// StepResult reports what one step did.
type StepResult struct {
	Index     int      `json:"index"`
	Op        string   `json:"op"`
	Timestamp uint64   `json:"timestamp"`
	Amounts   []string `json:"amounts,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Runner deploys a scenario's tokens, registry, bribe directory and router on
// a fresh ledger and plays its steps.
type Runner struct {
	scenario Scenario
	clock    *ledger.ManualClock
	store    *ledger.Store
	tokens   *token.Directory
	weth     *token.WrappedNative
	registry *registry.Registry
	bribes   *bribe.Directory
	router   *router.Router
	sinks    []storage.Sink
	logger   *zap.Logger
}

// NewRunner validates sc and deploys it on a ledger starting at opts.StartTime.
func NewRunner(sc Scenario, opts Options) (*Runner, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clock := ledger.NewManualClock(opts.StartTime)
	store := ledger.NewStore(clock.Now)
	tokens := token.NewDirectory()

	nativeSymbol := sc.NativeSymbol
	if nativeSymbol == "" {
		nativeSymbol = defaultNativeSymbol
	}
	weth := token.NewWrappedNative(store, token.DeriveAddress("token", nativeSymbol), nativeSymbol)
	tokens.Register(weth)

	directoryAddr := opts.BribeDirectory
	if directoryAddr == (common.Address{}) {
		directoryAddr = token.DeriveAddress("contract", "bribes")
	}
	bribes := bribe.NewDirectory(store, directoryAddr)
	reg := registry.New(store, tokens, opts.Registry, logger.Named("registry"))
	rt, err := router.New(store, opts.Router, router.Collaborators{
		Pools:   reg,
		Tokens:  tokens,
		Wrapped: weth,
		Bribes:  bribes,
	}, logger.Named("router"))
	if err != nil {
		return nil, fmt.Errorf("deploy router: %w", err)
	}

	r := &Runner{
		scenario: sc,
		clock:    clock,
		store:    store,
		tokens:   tokens,
		weth:     weth,
		registry: reg,
		bribes:   bribes,
		router:   rt,
		sinks:    opts.Sinks,
		logger:   logger,
	}
	if err := r.deploy(); err != nil {
		return nil, err
	}
	return r, nil
}

// deploy funds accounts, mints token balances and approves the router for
// every account.
func (r *Runner) deploy() error {
	accounts := make(map[string]bool)
	for _, acc := range r.scenario.Accounts {
		name := normalizeName(acc.Name)
		accounts[name] = true
		if acc.Native == "" {
			continue
		}
		amount, err := parseAmount(acc.Native)
		if err != nil {
			return fmt.Errorf("account %s native: %w", name, err)
		}
		if err := r.store.CreditNative(AccountAddress(name), amount); err != nil {
			return fmt.Errorf("fund %s: %w", name, err)
		}
	}

	erc20s := []*token.ERC20{r.weth.ERC20}
	for _, spec := range r.scenario.Tokens {
		symbol := strings.ToUpper(strings.TrimSpace(spec.Symbol))
		decimals := spec.Decimals
		if decimals == 0 {
			decimals = 18
		}
		t := token.NewERC20(r.store, token.DeriveAddress("token", symbol), token.Config{
			Symbol:         symbol,
			Decimals:       decimals,
			TransferFeeBps: spec.TransferFeeBps,
		})
		r.tokens.Register(t)
		erc20s = append(erc20s, t)

		holders := make([]string, 0, len(spec.Balances))
		for holder := range spec.Balances {
			holders = append(holders, holder)
		}
		sort.Strings(holders)
		for _, holder := range holders {
			name := normalizeName(holder)
			accounts[name] = true
			amount, err := parseAmount(spec.Balances[holder])
			if err != nil {
				return fmt.Errorf("token %s balance of %s: %w", symbol, name, err)
			}
			if err := t.Mint(AccountAddress(name), amount); err != nil {
				return fmt.Errorf("mint %s to %s: %w", symbol, name, err)
			}
		}
	}

	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, t := range erc20s {
			t.Approve(AccountAddress(name), r.router.Address(), ledger.MaxAmount())
		}
	}
	r.logger.Info("scenario deployed",
		zap.String("scenario", r.scenario.Name),
		zap.Int("tokens", len(erc20s)),
		zap.Int("accounts", len(names)),
		zap.String("router", r.router.Address().Hex()),
		zap.String("registry", r.registry.Address().Hex()),
	)
	return nil
}

// Run plays every step in order. A step failing without expect_error stops the
// run. Events are drained to the sinks after each step.
func (r *Runner) Run(ctx context.Context) ([]StepResult, error) {
	if err := r.flush(ctx); err != nil {
		return nil, err
	}

	results := make([]StepResult, 0, len(r.scenario.Steps))
	for i, step := range r.scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		amounts, err := r.apply(step)
		result := StepResult{Index: i, Op: step.Op, Timestamp: r.clock.Now()}
		for _, amount := range amounts {
			if amount == nil {
				continue
			}
			result.Amounts = append(result.Amounts, amount.Dec())
		}

		switch {
		case step.ExpectError != "" && err == nil:
			return results, fmt.Errorf("step %d (%s): expected error containing %q", i, step.Op, step.ExpectError)
		case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
			return results, fmt.Errorf("step %d (%s): unexpected error: %w", i, step.Op, err)
		case step.ExpectError != "":
			result.Error = err.Error()
		case err != nil:
			return results, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		results = append(results, result)

		r.logger.Info("step applied",
			zap.Int("index", i),
			zap.String("op", step.Op),
			zap.Strings("amounts", result.Amounts),
			zap.String("error", result.Error),
		)
		if err := r.flush(ctx); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (r *Runner) flush(ctx context.Context) error {
	events := r.store.TakeEvents()
	if len(events) == 0 {
		return nil
	}
	for _, sink := range r.sinks {
		if err := sink.PutEventBatch(ctx, events); err != nil {
			return fmt.Errorf("write events: %w", err)
		}
	}
	return nil
}

func (r *Runner) apply(step Step) ([]*uint256.Int, error) {
	caller := AccountAddress(normalizeName(step.Account))
	to := caller
	if step.To != "" {
		to = AccountAddress(normalizeName(step.To))
	}
	deadline := r.deadline(step.Deadline)

	switch step.Op {
	case OpAdvanceTime:
		return []*uint256.Int{uint256.NewInt(r.clock.Advance(step.Seconds))}, nil

	case OpAddLiquidity:
		tokenA, tokenB, err := r.tokenPair(step)
		if err != nil {
			return nil, err
		}
		amounts, err := parseAmounts(step.AmountA, step.AmountB, step.MinA, step.MinB)
		if err != nil {
			return nil, err
		}
		a, b, liq, err := r.router.AddLiquidity(caller, tokenA, tokenB, step.Stable, amounts[0], amounts[1], amounts[2], amounts[3], to, deadline)
		return []*uint256.Int{a, b, liq}, err

	case OpAddLiquidityNative:
		t, err := r.token(step.TokenA)
		if err != nil {
			return nil, err
		}
		amounts, err := parseAmounts(step.AmountA, step.AmountB, step.MinA, step.MinB)
		if err != nil {
			return nil, err
		}
		a, native, liq, err := r.router.AddLiquidityNative(caller, t.Address(), step.Stable, amounts[0], amounts[2], amounts[3], amounts[1], to, deadline)
		return []*uint256.Int{a, native, liq}, err

	case OpRemoveLiquidity, OpRemoveLiquidityNative:
		tokenA, tokenB, err := r.tokenPair(step)
		if err != nil {
			return nil, err
		}
		p, err := r.pair(tokenA, tokenB, step.Stable)
		if err != nil {
			return nil, err
		}
		liquidity := p.BalanceOf(caller)
		if step.Liquidity != "all" {
			if liquidity, err = parseAmount(step.Liquidity); err != nil {
				return nil, err
			}
		}
		mins, err := parseAmounts(step.MinA, step.MinB)
		if err != nil {
			return nil, err
		}
		// the approval only stands if the removal does
		var a, b *uint256.Int
		err = r.store.Atomic(func() error {
			p.Approve(caller, r.router.Address(), liquidity)
			var err error
			if step.Op == OpRemoveLiquidityNative {
				a, b, err = r.router.RemoveLiquidityNative(caller, tokenA, step.Stable, liquidity, mins[0], mins[1], to, deadline)
			} else {
				a, b, err = r.router.RemoveLiquidity(caller, tokenA, tokenB, step.Stable, liquidity, mins[0], mins[1], to, deadline)
			}
			return err
		})
		return []*uint256.Int{a, b}, err

	case OpSwap, OpSwapFromNative, OpSwapToNative:
		route, err := r.route(step.Path, step.Curves)
		if err != nil {
			return nil, err
		}
		amounts, err := parseAmounts(step.AmountIn, step.MinOut)
		if err != nil {
			return nil, err
		}
		var out *uint256.Int
		switch step.Op {
		case OpSwapFromNative:
			out, err = r.router.ExecuteSwapFromNative(caller, amounts[0], route, amounts[1], to, deadline)
		case OpSwapToNative:
			out, err = r.router.ExecuteSwapToNative(caller, route, amounts[0], amounts[1], to, deadline)
		default:
			out, err = r.router.ExecuteSwap(caller, route, amounts[0], amounts[1], to, deadline)
		}
		return []*uint256.Int{amounts[0], out}, err

	case OpRegisterBribe:
		tokenA, tokenB, err := r.tokenPair(step)
		if err != nil {
			return nil, err
		}
		pool, ok := r.registry.GetPool(tokenA, tokenB, step.Stable)
		if !ok {
			return nil, fmt.Errorf("no %s pool for %s/%s", model.CurveOf(step.Stable), step.TokenA, step.TokenB)
		}
		label := step.Bribe
		if label == "" {
			label = "bribe/" + pool.Hex()
		}
		b := bribe.New(r.store, token.DeriveAddress("contract", label), r.tokens)
		r.bribes.Register(pool, b)
		r.logger.Info("bribe registered", zap.String("pool", pool.Hex()), zap.String("bribe", b.Address().Hex()))
		return nil, nil

	case OpWrap, OpUnwrap:
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return nil, err
		}
		if step.Op == OpUnwrap {
			return []*uint256.Int{amount}, r.weth.Unwrap(caller, amount)
		}
		return []*uint256.Int{amount}, r.weth.Wrap(caller, amount)

	case OpSync:
		tokenA, tokenB, err := r.tokenPair(step)
		if err != nil {
			return nil, err
		}
		p, err := r.pair(tokenA, tokenB, step.Stable)
		if err != nil {
			return nil, err
		}
		return nil, p.Sync(caller)
	}
	return nil, fmt.Errorf("unknown op %q", step.Op)
}

// deadline resolves a deadline relative to the current ledger time.
func (r *Runner) deadline(offset int64) uint64 {
	now := r.clock.Now()
	if offset < 0 {
		back := uint64(-offset)
		if back > now {
			return 0
		}
		return now - back
	}
	return now + uint64(offset)
}

func (r *Runner) token(symbol string) (token.Token, error) {
	t, ok := r.tokens.BySymbol(strings.TrimSpace(symbol))
	if !ok {
		return nil, fmt.Errorf("unknown token %q", symbol)
	}
	return t, nil
}

func (r *Runner) tokenPair(step Step) (common.Address, common.Address, error) {
	a, err := r.token(step.TokenA)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	b, err := r.token(step.TokenB)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return a.Address(), b.Address(), nil
}

func (r *Runner) pair(tokenA, tokenB common.Address, stable bool) (*pair.Pair, error) {
	pool, ok := r.registry.GetPool(tokenA, tokenB, stable)
	if !ok {
		return nil, fmt.Errorf("no %s pool for %s/%s", model.CurveOf(stable), tokenA.Hex(), tokenB.Hex())
	}
	p, ok := r.registry.Pair(pool)
	if !ok {
		return nil, fmt.Errorf("pool %s not deployed", pool.Hex())
	}
	return p, nil
}

// route turns a token path into hops. A single curve applies to every hop.
func (r *Runner) route(path, curves []string) ([]model.Hop, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("path needs at least two tokens")
	}
	if len(curves) > 1 && len(curves) != len(path)-1 {
		return nil, fmt.Errorf("%d curves for %d hops", len(curves), len(path)-1)
	}
	hops := make([]model.Hop, 0, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		from, err := r.token(path[i])
		if err != nil {
			return nil, err
		}
		to, err := r.token(path[i+1])
		if err != nil {
			return nil, err
		}
		curve := ""
		switch {
		case len(curves) == 1:
			curve = curves[0]
		case len(curves) > 1:
			curve = curves[i]
		}
		kind, err := model.ParseCurveKind(curve)
		if err != nil {
			return nil, err
		}
		hops = append(hops, model.Hop{From: from.Address(), To: to.Address(), Stable: kind.Stable()})
	}
	return hops, nil
}

// Balance returns account's balance of the token with symbol, or its native
// value when symbol is "native".
func (r *Runner) Balance(account, symbol string) (*uint256.Int, error) {
	addr := AccountAddress(normalizeName(account))
	if symbol == "native" {
		return r.store.NativeBalanceOf(addr), nil
	}
	t, err := r.token(symbol)
	if err != nil {
		return nil, err
	}
	return t.BalanceOf(addr), nil
}

// Snapshot captures every token and pool, with each pool's linked bribe.
func (r *Runner) Snapshot() storage.Snapshot {
	snap := storage.Snapshot{Timestamp: r.clock.Now()}
	for _, t := range r.tokens.All() {
		switch v := t.(type) {
		case *token.ERC20:
			snap.Tokens = append(snap.Tokens, v.Meta())
		case *token.WrappedNative:
			snap.Tokens = append(snap.Tokens, v.Meta())
		}
	}
	for _, p := range r.registry.Pairs() {
		pool := p.Snapshot()
		if target, ok := r.bribes.RewardTarget(p.Address()); ok {
			pool.Bribe = target.Address().Hex()
		}
		snap.Pools = append(snap.Pools, pool)
	}
	return snap
}

// AccountAddress derives the address of a named scenario account.
func AccountAddress(name string) common.Address {
	return token.DeriveAddress("account", name)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// parseAmount reads a non-negative integer in base units. Scientific
// notation such as 1e18 is accepted. Empty means zero.
func parseAmount(input string) (*uint256.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return new(uint256.Int), nil
	}
	d, err := decimal.NewFromString(input)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", input, err)
	}
	if d.IsNegative() || !d.IsInteger() {
		return nil, fmt.Errorf("amount %q must be a non-negative integer", input)
	}
	amount, overflow := uint256.FromBig(d.BigInt())
	if overflow {
		return nil, fmt.Errorf("amount %q overflows 256 bits", input)
	}
	return amount, nil
}

func parseAmounts(inputs ...string) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(inputs))
	for i, input := range inputs {
		amount, err := parseAmount(input)
		if err != nil {
			return nil, err
		}
		out[i] = amount
	}
	return out, nil
}
