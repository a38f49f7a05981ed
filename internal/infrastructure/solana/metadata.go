/*
 * Copyright (c) 2024 Bima Kharisma Wicaksana
 * GitHub: https://github.com/bimakw
 *
 * Licensed under MIT License with Attribution Requirement.
 * See LICENSE file for details.
 */

package solana

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/metrics"
)

// MetaplexProgramID is the Metaplex Token Metadata program
var MetaplexProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// Metadata account layout: key(1) + update authority(32) + mint(32) + name
// length prefix(4) + name(32) + symbol length(4) + symbol(10)
const (
	nameOffset   = 68
	nameSize     = 32
	symbolOffset = nameOffset + nameSize
	symbolSize   = 10
)

// ErrMetadataTooShort is returned when account data cannot hold name and symbol
var ErrMetadataTooShort = errors.New("metadata account data too short")

// AccountFetcher loads raw account data
type AccountFetcher interface {
	GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
}

// TokenCache caches resolved token metadata
type TokenCache interface {
	Get(ctx context.Context, mint string) (entities.TokenInfo, bool)
	Set(ctx context.Context, mint string, info entities.TokenInfo)
}

// MetadataResolver resolves SPL token names and symbols from Metaplex
// metadata accounts
type MetadataResolver struct {
	fetcher AccountFetcher
	cache   TokenCache
	logger  *zap.Logger
}

// NewMetadataResolver creates a new metadata resolver. cache may be nil.
func NewMetadataResolver(fetcher AccountFetcher, cache TokenCache, logger *zap.Logger) *MetadataResolver {
	return &MetadataResolver{
		fetcher: fetcher,
		cache:   cache,
		logger:  logger,
	}
}

// Resolve returns the display name and symbol of mint. It never fails: any
// lookup or decode problem yields "Unknown Token"/"UNK".
func (r *MetadataResolver) Resolve(ctx context.Context, mint string) entities.TokenInfo {
	if r.cache != nil {
		if info, ok := r.cache.Get(ctx, mint); ok {
			metrics.MetadataLookupsTotal.WithLabelValues("cache").Inc()
			return info
		}
	}

	info, err := r.fetch(ctx, mint)
	if err != nil {
		r.logger.Warn("Failed to resolve token metadata, using fallback",
			zap.String("mint", mint),
			zap.Error(err),
		)
		metrics.MetadataLookupsTotal.WithLabelValues("fallback").Inc()
		info = entities.UnknownToken()
	} else {
		metrics.MetadataLookupsTotal.WithLabelValues("chain").Inc()
	}

	// Do not poison the cache when the request itself was cancelled.
	if r.cache != nil && ctx.Err() == nil {
		r.cache.Set(ctx, mint, info)
	}

	return info
}

func (r *MetadataResolver) fetch(ctx context.Context, mint string) (entities.TokenInfo, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return entities.TokenInfo{}, fmt.Errorf("invalid mint: %w", err)
	}

	pda, err := DeriveMetadataAddress(mintKey)
	if err != nil {
		return entities.TokenInfo{}, err
	}

	data, err := r.fetcher.GetAccountData(ctx, pda)
	if err != nil {
		return entities.TokenInfo{}, err
	}

	return DecodeMetadata(data)
}

// DeriveMetadataAddress derives the Metaplex metadata PDA for a mint
func DeriveMetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte("metadata"),
			MetaplexProgramID.Bytes(),
			mint.Bytes(),
		},
		MetaplexProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive metadata address: %w", err)
	}
	return pda, nil
}

// DecodeMetadata extracts the name and symbol from a metadata account.
// Blank fields are replaced with the fallback values.
func DecodeMetadata(data []byte) (entities.TokenInfo, error) {
	if len(data) < symbolOffset+4 {
		return entities.TokenInfo{}, fmt.Errorf("%w: %d bytes", ErrMetadataTooShort, len(data))
	}

	name := cleanString(trimZeros(data[nameOffset:symbolOffset]))

	symbolLen := int(binary.LittleEndian.Uint32(data[symbolOffset : symbolOffset+4]))
	start := symbolOffset + 4
	end := start + symbolSize
	if end > len(data) {
		end = len(data)
	}
	symbolBytes := data[start:end]
	if symbolLen < len(symbolBytes) {
		symbolBytes = symbolBytes[:symbolLen]
	}
	symbol := cleanString(symbolBytes)

	info := entities.UnknownToken()
	if name != "" {
		info.Name = name
	}
	if symbol != "" {
		info.Symbol = symbol
	}
	return info, nil
}

func trimZeros(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}

// cleanString decodes UTF-8 dropping invalid sequences and NUL bytes
func cleanString(b []byte) string {
	s := strings.ToValidUTF8(string(b), "")
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}
