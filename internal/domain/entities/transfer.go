package entities

import (
	"github.com/shopspring/decimal"
)

// TransferKind discriminates the shapes a TransferEvent can take
type TransferKind string

const (
	TransferNative TransferKind = "native"
	TransferToken  TransferKind = "token"
	TransferBatch  TransferKind = "batch"
)

// LamportsPerSOL is the native currency scale
const LamportsPerSOL = 1_000_000_000

// TransferLeg is a single resolved token movement inside a batch transfer
type TransferLeg struct {
	Amount decimal.Decimal `json:"amount"`
	Mint   string          `json:"mint"`
	Token  TokenInfo       `json:"token"`
	From   string          `json:"from"`
	To     string          `json:"to"`
}

// TransferEvent is the normalized form of a TRANSFER transaction.
//
// Native events carry Amount in lamports with From/To set. Token events carry
// the token amount, Mint and Token. Batch events carry Transfers only.
type TransferEvent struct {
	Kind      TransferKind    `json:"kind"`
	Timestamp int64           `json:"timestamp"`
	Signature string          `json:"signature"` // display form, truncated
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from,omitempty"`
	To        string          `json:"to,omitempty"`
	Mint      string          `json:"mint,omitempty"`
	Token     *TokenInfo      `json:"token,omitempty"`
	Transfers []TransferLeg   `json:"transfers,omitempty"`
}

// SOLAmount converts a native event amount to SOL
func (e *TransferEvent) SOLAmount() decimal.Decimal {
	return e.Amount.Shift(-9)
}

// SwapToken is one side of a swap that moved an SPL token
type SwapToken struct {
	Mint     string          `json:"mint"`
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Decimals int             `json:"decimals"`
}

// SwapEvent is the normalized form of a SWAP transaction. A nil Sold or
// Bought side means that side was native SOL.
type SwapEvent struct {
	Wallet          string     `json:"wallet"`
	Timestamp       int64      `json:"timestamp"`
	Signature       string     `json:"signature"`
	Sold            *SwapToken `json:"sold_token,omitempty"`
	Bought          *SwapToken `json:"bought_token,omitempty"`
	ContractAddress string     `json:"contract_address,omitempty"`
	DEX             string     `json:"dex"`
	TxURL           string     `json:"tx_url"`
	NativeChange    int64      `json:"native_change"` // fee payer lamport delta
}
