package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
)

// AddressSource lists the monitored wallet addresses
type AddressSource interface {
	GetAllAddresses(ctx context.Context) ([]string, error)
}

// ClassifiedTransaction is the wallet a transaction is attributed to and its
// type. An empty WalletAddress means no monitored wallet was identified.
type ClassifiedTransaction struct {
	WalletAddress string
	TxType        string
}

// Classifier attributes webhook transactions to monitored wallets
type Classifier struct {
	addresses AddressSource
	logger    *zap.Logger
}

// NewClassifier creates a new classifier
func NewClassifier(addresses AddressSource, logger *zap.Logger) *Classifier {
	return &Classifier{
		addresses: addresses,
		logger:    logger,
	}
}

// Classify returns the wallet and type of tx. The fee payer is used except
// for TRANSFER transactions, where the wallet is mined from the description
// because transfers are often paid for by an unrelated account.
func (c *Classifier) Classify(ctx context.Context, tx *entities.RawTransaction) (ClassifiedTransaction, error) {
	result := ClassifiedTransaction{
		WalletAddress: tx.FeePayerOrDefault(),
		TxType:        tx.TypeOrDefault(),
	}

	if result.TxType != entities.TxTypeTransfer {
		return result, nil
	}

	monitored, err := c.addresses.GetAllAddresses(ctx)
	if err != nil {
		return ClassifiedTransaction{}, fmt.Errorf("failed to load monitored addresses: %w", err)
	}

	result.WalletAddress = MatchDescription(tx.Description, monitored)
	if result.WalletAddress == "" {
		c.logger.Debug("No monitored address in transfer description",
			zap.String("signature", tx.Signature),
		)
	}

	return result, nil
}

// MatchDescription returns the first monitored address mentioned in a
// free-text description. Words are compared lower-cased with trailing
// punctuation removed; the stored form of the address is returned.
func MatchDescription(description string, monitored []string) string {
	if description == "" || len(monitored) == 0 {
		return ""
	}

	index := make(map[string]string, len(monitored))
	for _, addr := range monitored {
		key := normalizeWord(addr)
		if key == "" {
			continue
		}
		if _, exists := index[key]; !exists {
			index[key] = addr
		}
	}

	for _, word := range strings.Fields(description) {
		if addr, ok := index[normalizeWord(word)]; ok {
			return addr
		}
	}
	return ""
}

func normalizeWord(s string) string {
	return strings.TrimRight(strings.ToLower(s), ".,!?")
}
