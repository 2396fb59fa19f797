package model

// PoolSnapshot is a serializable view of a pool at a point in time.
type PoolSnapshot struct {
	Address            string `json:"address"`
	Token0             string `json:"token0"`
	Token1             string `json:"token1"`
	Stable             bool   `json:"stable"`
	FeeBps             uint64 `json:"fee_bps"`
	Reserve0           string `json:"reserve0"`
	Reserve1           string `json:"reserve1"`
	TotalSupply        string `json:"total_supply"`
	Reserve0Cumulative string `json:"reserve0_cumulative"`
	Reserve1Cumulative string `json:"reserve1_cumulative"`
	BlockTimestampLast uint64 `json:"block_timestamp_last"`
	Bribe              string `json:"bribe,omitempty"`
}
