package model

import "encoding/json"

// Event names emitted into the ledger log.
const (
	EventTransfer       = "Transfer"
	EventApproval       = "Approval"
	EventMint           = "Mint"
	EventBurn           = "Burn"
	EventSwap           = "Swap"
	EventSync           = "Sync"
	EventPoolCreated    = "PoolCreated"
	EventRewardNotified = "NotifyReward"
	EventDeposit        = "Deposit"
	EventWithdrawal     = "Withdrawal"
)

// Event is one entry of the ledger event log.
type Event struct {
	Seq       uint64      `json:"seq"`
	Timestamp uint64      `json:"timestamp"`
	Address   string      `json:"address"`
	EventName string      `json:"event_name"`
	Decoded   interface{} `json:"decoded"`
}

// EventRecord is the JSON form of Event used when reading logs back.
type EventRecord struct {
	Seq       uint64          `json:"seq"`
	Timestamp uint64          `json:"timestamp"`
	Address   string          `json:"address"`
	EventName string          `json:"event_name"`
	Decoded   json.RawMessage `json:"decoded"`
}
