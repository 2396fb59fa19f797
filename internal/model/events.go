package model

// TransferEventData is the payload of token and LP transfers.
type TransferEventData struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// ApprovalEventData is the payload of allowance changes.
type ApprovalEventData struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// SwapEventData is the payload of a pool swap.
type SwapEventData struct {
	Sender     string `json:"sender"`
	To         string `json:"to"`
	Amount0In  string `json:"amount0_in"`
	Amount1In  string `json:"amount1_in"`
	Amount0Out string `json:"amount0_out"`
	Amount1Out string `json:"amount1_out"`
}

// MintEventData is the payload of a liquidity mint.
type MintEventData struct {
	Sender    string `json:"sender"`
	To        string `json:"to"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
	Liquidity string `json:"liquidity"`
}

// BurnEventData is the payload of a liquidity burn.
type BurnEventData struct {
	Sender    string `json:"sender"`
	To        string `json:"to"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
	Liquidity string `json:"liquidity"`
}

// SyncEventData carries the reserves after an update.
type SyncEventData struct {
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
}

// PoolCreatedEventData is emitted by the registry.
type PoolCreatedEventData struct {
	Token0 string `json:"token0"`
	Token1 string `json:"token1"`
	Stable bool   `json:"stable"`
	Pool   string `json:"pool"`
	FeeBps uint64 `json:"fee_bps"`
	Index  int    `json:"index"`
}

// RewardNotifiedEventData is emitted by a bribe when rewards arrive.
type RewardNotifiedEventData struct {
	From   string `json:"from"`
	Token  string `json:"token"`
	Epoch  uint64 `json:"epoch"`
	Amount string `json:"amount"`
}

// WrapEventData is emitted by the wrapped native token.
type WrapEventData struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}
