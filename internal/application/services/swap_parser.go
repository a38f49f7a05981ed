package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
)

const (
	defaultDEX    = "Unknown DEX"
	txURLTemplate = "https://solscan.io/tx/%s"
)

// SwapParser normalizes SWAP transactions
type SwapParser struct {
	resolver TokenResolver
	logger   *zap.Logger
}

// NewSwapParser creates a new swap parser
func NewSwapParser(resolver TokenResolver, logger *zap.Logger) *SwapParser {
	return &SwapParser{
		resolver: resolver,
		logger:   logger,
	}
}

// Parse builds a swap event from tx, or returns nil when tx is not a swap or
// cannot be interpreted. Leg selection is positional: leg 0 is the sold side
// when negative and leg 1 the bought side when positive. A nil side was
// native SOL.
func (p *SwapParser) Parse(ctx context.Context, tx *entities.RawTransaction) (event *entities.SwapEvent) {
	if tx == nil || tx.Type != entities.TxTypeSwap {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Swap parsing panicked",
				zap.String("signature", tx.Signature),
				zap.Any("panic", r),
			)
			event = nil
		}
	}()

	legs := tx.TokenTransfers

	var sold, bought *entities.SwapToken
	if len(legs) > 0 && legs[0].TokenAmount.IsNegative() {
		if legs[0].Mint == "" {
			p.logMalformed(tx, "sold leg has no mint")
			return nil
		}
		sold = p.swapToken(ctx, legs[0])
		sold.Amount = sold.Amount.Abs()
	}
	if len(legs) > 1 && legs[1].TokenAmount.IsPositive() {
		if legs[1].Mint == "" {
			p.logMalformed(tx, "bought leg has no mint")
			return nil
		}
		bought = p.swapToken(ctx, legs[1])
	}

	dex := tx.Source
	if dex == "" {
		dex = defaultDEX
	}

	return &entities.SwapEvent{
		Wallet:          tx.FeePayer,
		Timestamp:       tx.Timestamp,
		Signature:       tx.Signature,
		Sold:            sold,
		Bought:          bought,
		ContractAddress: SelectContractAddress(tx),
		DEX:             dex,
		TxURL:           fmt.Sprintf(txURLTemplate, tx.Signature),
		NativeChange:    nativeChangeOf(tx.AccountData, tx.FeePayer),
	}
}

func (p *SwapParser) swapToken(ctx context.Context, leg entities.TokenTransfer) *entities.SwapToken {
	info := p.resolver.Resolve(ctx, leg.Mint)
	return &entities.SwapToken{
		Mint:     leg.Mint,
		Symbol:   info.Symbol,
		Name:     info.Name,
		Amount:   leg.TokenAmount,
		Decimals: leg.LegDecimals(),
	}
}

func (p *SwapParser) logMalformed(tx *entities.RawTransaction, reason string) {
	p.logger.Warn("Malformed swap payload",
		zap.String("signature", tx.Signature),
		zap.String("reason", reason),
	)
}

// SelectContractAddress picks the mint a swap is about.
//
// When the fee payer sent or received SOL the first mint is the traded
// token. Otherwise, when the legs carry at least two distinct mints, the
// second leg's mint is taken as the acquired token even if it repeats the
// first. Returns "" when nothing applies.
func SelectContractAddress(tx *entities.RawTransaction) string {
	mints := make([]string, 0, len(tx.TokenTransfers))
	for _, leg := range tx.TokenTransfers {
		if leg.Mint != "" {
			mints = append(mints, leg.Mint)
		}
	}
	if len(mints) == 0 {
		return ""
	}

	solSent, solReceived := false, false
	if tx.FeePayer != "" {
		for _, nt := range tx.NativeTransfers {
			if nt.FromUserAccount == tx.FeePayer {
				solSent = true
			}
			if nt.ToUserAccount == tx.FeePayer {
				solReceived = true
			}
		}
	}

	if solSent || solReceived {
		return mints[0]
	}

	for _, mint := range mints[1:] {
		if mint != mints[0] {
			return mints[1]
		}
	}
	return ""
}

func nativeChangeOf(accounts []entities.AccountData, account string) int64 {
	if account == "" {
		return 0
	}
	for _, acc := range accounts {
		if acc.Account == account {
			return acc.NativeBalanceChange
		}
	}
	return 0
}
