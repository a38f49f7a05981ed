package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
)

const unknownParty = "Unknown"

// TokenResolver resolves a mint to its display identity. Implementations
// must not fail; unresolvable mints yield entities.UnknownToken.
type TokenResolver interface {
	Resolve(ctx context.Context, mint string) entities.TokenInfo
}

// TransferParser normalizes TRANSFER transactions
type TransferParser struct {
	resolver TokenResolver
	logger   *zap.Logger
}

// NewTransferParser creates a new transfer parser
func NewTransferParser(resolver TokenResolver, logger *zap.Logger) *TransferParser {
	return &TransferParser{
		resolver: resolver,
		logger:   logger,
	}
}

// Parse builds a transfer event from tx. It never fails: missing fields take
// their defaults.
//
//   - no token legs and a nonzero native change: native event
//   - exactly one token leg: token event
//   - anything else: batch event, legs resolved concurrently
func (p *TransferParser) Parse(ctx context.Context, tx *entities.RawTransaction) *entities.TransferEvent {
	event := &entities.TransferEvent{
		Timestamp: tx.Timestamp,
		Signature: DisplaySignature(tx.Signature),
	}

	legs := tx.TokenTransfers

	if len(legs) == 0 && hasNativeChange(tx.AccountData) {
		event.Kind = entities.TransferNative
		event.Amount, event.From, event.To = summarizeNative(tx.AccountData)
		return event
	}

	if len(legs) == 1 {
		leg := legs[0]
		token := p.resolver.Resolve(ctx, leg.Mint)

		event.Kind = entities.TransferToken
		event.Amount = leg.TokenAmount
		event.Mint = leg.Mint
		event.Token = &token
		event.From = orUnknown(leg.FromUserAccount)
		event.To = orUnknown(leg.ToUserAccount)
		return event
	}

	event.Kind = entities.TransferBatch
	event.Transfers = iter.Map(legs, func(leg *entities.TokenTransfer) entities.TransferLeg {
		return entities.TransferLeg{
			Amount: leg.TokenAmount,
			Mint:   leg.Mint,
			Token:  p.resolver.Resolve(ctx, leg.Mint),
			From:   orUnknown(leg.FromUserAccount),
			To:     orUnknown(leg.ToUserAccount),
		}
	})

	p.logger.Debug("Parsed batch transfer",
		zap.String("signature", tx.Signature),
		zap.Int("legs", len(event.Transfers)),
	)

	return event
}

func hasNativeChange(accounts []entities.AccountData) bool {
	for _, acc := range accounts {
		if acc.NativeBalanceChange != 0 {
			return true
		}
	}
	return false
}

// summarizeNative sums the absolute value of every nonzero change. Debit and
// credit are both counted, so a plain A->B transfer reports twice the amount
// moved.
func summarizeNative(accounts []entities.AccountData) (decimal.Decimal, string, string) {
	var total int64
	from, to := "", ""

	for _, acc := range accounts {
		change := acc.NativeBalanceChange
		switch {
		case change < 0:
			total -= change
			if from == "" {
				from = acc.Account
			}
		case change > 0:
			total += change
			if to == "" {
				to = acc.Account
			}
		}
	}

	return decimal.NewFromInt(total), orUnknown(from), orUnknown(to)
}

// DisplaySignature shortens a transaction signature to its first 10
// characters followed by "..."
func DisplaySignature(signature string) string {
	if len(signature) > 10 {
		signature = signature[:10]
	}
	return signature + "..."
}

func orUnknown(s string) string {
	if s == "" {
		return unknownParty
	}
	return s
}
