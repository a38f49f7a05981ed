package entities

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

// ErrEmptyBody is returned by DecodeBatch for a blank payload
var ErrEmptyBody = errors.New("empty request body")

// Helius transaction types handled specially by the pipeline
const (
	TxTypeTransfer = "TRANSFER"
	TxTypeSwap     = "SWAP"
	TxTypeUnknown  = "Unknown"
)

// RawTransaction is one Helius enhanced transaction as received by the webhook.
// Every field is optional on the wire; decoding keeps the zero value or the
// documented default for anything absent or of the wrong type.
type RawTransaction struct {
	Signature       string           `json:"signature"`
	Timestamp       int64            `json:"timestamp"`
	Type            string           `json:"type"`
	FeePayer        string           `json:"feePayer"`
	Description     string           `json:"description"`
	Source          string           `json:"source"`
	AccountData     []AccountData    `json:"accountData"`
	TokenTransfers  []TokenTransfer  `json:"tokenTransfers"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers"`

	// DroppedLegs counts list entries skipped because they could not be decoded
	DroppedLegs int `json:"-"`
}

// AccountData is the per-account balance delta of a transaction
type AccountData struct {
	Account             string `json:"account"`
	NativeBalanceChange int64  `json:"nativeBalanceChange"`
}

// RawTokenAmount carries the base-unit amount and precision of a leg
type RawTokenAmount struct {
	TokenAmount string `json:"tokenAmount"`
	Decimals    int    `json:"decimals"`
}

// TokenTransfer is one SPL token movement within a transaction
type TokenTransfer struct {
	FromUserAccount  string          `json:"fromUserAccount"`
	ToUserAccount    string          `json:"toUserAccount"`
	FromTokenAccount string          `json:"fromTokenAccount"`
	ToTokenAccount   string          `json:"toTokenAccount"`
	Mint             string          `json:"mint"`
	TokenAmount      decimal.Decimal `json:"tokenAmount"`
	TokenStandard    string          `json:"tokenStandard"`
	RawTokenAmount   *RawTokenAmount `json:"rawTokenAmount,omitempty"`
}

// LegDecimals returns the precision reported for the leg, or DefaultDecimals
func (t TokenTransfer) LegDecimals() int {
	if t.RawTokenAmount != nil {
		return t.RawTokenAmount.Decimals
	}
	return DefaultDecimals
}

// NativeTransfer is one lamport movement within a transaction
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}

// UnmarshalJSON decodes field by field so that a single malformed value or
// list entry does not discard the whole transaction.
func (t *RawTransaction) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := sonic.Unmarshal(data, &fields); err != nil {
		return err
	}

	*t = RawTransaction{}
	decodeField(fields, "signature", &t.Signature)
	decodeField(fields, "timestamp", &t.Timestamp)
	decodeField(fields, "type", &t.Type)
	decodeField(fields, "feePayer", &t.FeePayer)
	decodeField(fields, "description", &t.Description)
	decodeField(fields, "source", &t.Source)

	t.AccountData, t.DroppedLegs = decodeLegs[AccountData](fields["accountData"], t.DroppedLegs)
	t.TokenTransfers, t.DroppedLegs = decodeLegs[TokenTransfer](fields["tokenTransfers"], t.DroppedLegs)
	t.NativeTransfers, t.DroppedLegs = decodeLegs[NativeTransfer](fields["nativeTransfers"], t.DroppedLegs)

	return nil
}

// TypeOrDefault returns the transaction type or "Unknown"
func (t *RawTransaction) TypeOrDefault() string {
	if t.Type == "" {
		return TxTypeUnknown
	}
	return t.Type
}

// FeePayerOrDefault returns the fee payer or "Unknown"
func (t *RawTransaction) FeePayerOrDefault() string {
	if t.FeePayer == "" {
		return TxTypeUnknown
	}
	return t.FeePayer
}

func decodeField(fields map[string]json.RawMessage, key string, dst interface{}) {
	raw, ok := fields[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return
	}
	_ = sonic.Unmarshal(raw, dst)
}

func decodeLegs[T any](raw json.RawMessage, dropped int) ([]T, int) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, dropped
	}

	var entries []json.RawMessage
	if err := sonic.Unmarshal(raw, &entries); err != nil {
		return nil, dropped + 1
	}

	legs := make([]T, 0, len(entries))
	for _, entry := range entries {
		var leg T
		if err := sonic.Unmarshal(entry, &leg); err != nil {
			dropped++
			continue
		}
		legs = append(legs, leg)
	}
	return legs, dropped
}

// DecodeBatch decodes a webhook body holding either one transaction object or
// an array of them. Items that fail to decode are skipped and counted.
func DecodeBatch(body []byte) ([]RawTransaction, int, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, 0, ErrEmptyBody
	}

	var items []json.RawMessage
	if trimmed[0] == '[' {
		if err := sonic.Unmarshal(trimmed, &items); err != nil {
			return nil, 0, err
		}
	} else {
		var single json.RawMessage
		if err := sonic.Unmarshal(trimmed, &single); err != nil {
			return nil, 0, err
		}
		items = []json.RawMessage{single}
	}

	txs := make([]RawTransaction, 0, len(items))
	skipped := 0
	for _, item := range items {
		var tx RawTransaction
		if err := sonic.Unmarshal(item, &tx); err != nil {
			skipped++
			continue
		}
		txs = append(txs, tx)
	}
	return txs, skipped, nil
}
