package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
)

// Common test addresses (valid base58 public keys)
const (
	AliceAddress   = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	BobAddress     = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	CharlieAddress = "HN7cABqLq46Es1jh92dQQisAq662SmxELLLsHHe4YWrH"

	BonkMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	JUPMint  = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"

	TestSignature = "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"
)

// CreateTestWallet creates a monitored wallet with default values
func CreateTestWallet(opts ...WalletOption) entities.Wallet {
	w := entities.Wallet{
		Address:     AliceAddress,
		Alias:       "alice",
		LastChecked: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC).Unix(),
		Tokens:      "[]",
	}

	for _, opt := range opts {
		opt(&w)
	}

	return w
}

type WalletOption func(*entities.Wallet)

func WithAddress(addr string) WalletOption {
	return func(w *entities.Wallet) {
		w.Address = addr
	}
}

func WithAlias(alias string) WalletOption {
	return func(w *entities.Wallet) {
		w.Alias = alias
	}
}

func WithActivity(lastActivityAt int64, txCount int64) WalletOption {
	return func(w *entities.Wallet) {
		w.LastActivityAt = lastActivityAt
		w.TxCount = txCount
	}
}

func WithSnapshot(lastAssetCheck int64, solBalance float64, tokens []entities.TokenHolding) WalletOption {
	return func(w *entities.Wallet) {
		w.LastAssetCheck = lastAssetCheck
		w.SolBalance = solBalance
		encoded, _ := entities.EncodeHoldings(tokens)
		w.Tokens = encoded
	}
}

// CreateTestTransaction creates a webhook transaction with default values
func CreateTestTransaction(opts ...TransactionOption) entities.RawTransaction {
	tx := entities.RawTransaction{
		Signature: TestSignature,
		Timestamp: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC).Unix(),
		Type:      entities.TxTypeUnknown,
		FeePayer:  AliceAddress,
		Source:    "SYSTEM_PROGRAM",
	}

	for _, opt := range opts {
		opt(&tx)
	}

	return tx
}

type TransactionOption func(*entities.RawTransaction)

func TxWithType(txType string) TransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.Type = txType
	}
}

func TxWithSignature(sig string) TransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.Signature = sig
	}
}

func TxWithFeePayer(addr string) TransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.FeePayer = addr
	}
}

func TxWithDescription(desc string) TransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.Description = desc
	}
}

func TxWithSource(source string) TransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.Source = source
	}
}

func TxWithNativeChange(account string, lamports int64) TransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.AccountData = append(tx.AccountData, entities.AccountData{
			Account:             account,
			NativeBalanceChange: lamports,
		})
	}
}

func TxWithNativeTransfer(from, to string, lamports int64) TransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.NativeTransfers = append(tx.NativeTransfers, entities.NativeTransfer{
			FromUserAccount: from,
			ToUserAccount:   to,
			Amount:          lamports,
		})
	}
}

// TxWithTokenTransfer appends a token leg. amount is the UI amount as a
// decimal string and may be negative.
func TxWithTokenTransfer(from, to, mint, amount string, decimals int) TransactionOption {
	return func(tx *entities.RawTransaction) {
		tx.TokenTransfers = append(tx.TokenTransfers, entities.TokenTransfer{
			FromUserAccount: from,
			ToUserAccount:   to,
			Mint:            mint,
			TokenAmount:     decimal.RequireFromString(amount),
			RawTokenAmount:  &entities.RawTokenAmount{Decimals: decimals},
		})
	}
}

// CreateTestHolding creates a token holding from a raw base unit amount
func CreateTestHolding(mint, symbol string, raw int64, decimals int) entities.TokenHolding {
	return entities.TokenHolding{
		Mint:      mint,
		Name:      symbol + " Token",
		Symbol:    symbol,
		RawAmount: decimal.NewFromInt(raw),
		Decimals:  decimals,
	}
}

// PointerTo returns a pointer to v
func PointerTo[T any](v T) *T {
	return &v
}
