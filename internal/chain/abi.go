package chain

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Solidly-style pair views. metadata() returns the decimals as scale factors
// (10**decimals).
const pairABIJSON = `[
  {"inputs": [], "name": "metadata", "outputs": [
    {"name": "dec0", "type": "uint256"},
    {"name": "dec1", "type": "uint256"},
    {"name": "r0", "type": "uint256"},
    {"name": "r1", "type": "uint256"},
    {"name": "st", "type": "bool"},
    {"name": "t0", "type": "address"},
    {"name": "t1", "type": "address"}
  ], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getReserves", "outputs": [
    {"name": "_reserve0", "type": "uint256"},
    {"name": "_reserve1", "type": "uint256"},
    {"name": "_blockTimestampLast", "type": "uint256"}
  ], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "stable", "outputs": [{"type": "bool"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

var (
	pairABI     abi.ABI
	pairABIOnce sync.Once
	pairABIErr  error

	erc20ABI     abi.ABI
	erc20ABIOnce sync.Once
	erc20ABIErr  error
)

// PairABI returns the parsed pair ABI.
func PairABI() (abi.ABI, error) {
	pairABIOnce.Do(func() {
		pairABI, pairABIErr = abi.JSON(strings.NewReader(pairABIJSON))
	})
	return pairABI, pairABIErr
}

func erc20ABIInstance() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}
