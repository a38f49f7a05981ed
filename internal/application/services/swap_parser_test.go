package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
	"github.com/bimakw/wallet-watcher/internal/testutil"
)

func swapTx(opts ...testutil.TransactionOption) entities.RawTransaction {
	base := []testutil.TransactionOption{
		testutil.TxWithType(entities.TxTypeSwap),
		testutil.TxWithFeePayer(testutil.AliceAddress),
		testutil.TxWithSource("JUPITER"),
	}
	return testutil.CreateTestTransaction(append(base, opts...)...)
}

func TestSelectContractAddress(t *testing.T) {
	tests := []struct {
		name     string
		tx       entities.RawTransaction
		expected string
	}{
		{
			name: "sol sent picks first mint",
			tx: swapTx(
				testutil.TxWithNativeTransfer(testutil.AliceAddress, testutil.CharlieAddress, 1000),
				testutil.TxWithTokenTransfer(testutil.CharlieAddress, testutil.AliceAddress, testutil.BonkMint, "5", 5),
			),
			expected: testutil.BonkMint,
		},
		{
			name: "sol received picks first mint",
			tx: swapTx(
				testutil.TxWithNativeTransfer(testutil.CharlieAddress, testutil.AliceAddress, 1000),
				testutil.TxWithTokenTransfer(testutil.AliceAddress, testutil.CharlieAddress, testutil.USDCMint, "-5", 6),
				testutil.TxWithTokenTransfer(testutil.CharlieAddress, testutil.AliceAddress, testutil.BonkMint, "5", 5),
			),
			expected: testutil.USDCMint,
		},
		{
			name: "token to token picks second mint",
			tx: swapTx(
				testutil.TxWithTokenTransfer(testutil.AliceAddress, testutil.CharlieAddress, testutil.USDCMint, "-5", 6),
				testutil.TxWithTokenTransfer(testutil.CharlieAddress, testutil.AliceAddress, testutil.BonkMint, "5", 5),
			),
			expected: testutil.BonkMint,
		},
		{
			name: "repeated mint still takes the second leg",
			tx: swapTx(
				testutil.TxWithTokenTransfer(testutil.AliceAddress, testutil.CharlieAddress, testutil.USDCMint, "-5", 6),
				testutil.TxWithTokenTransfer(testutil.AliceAddress, testutil.CharlieAddress, testutil.USDCMint, "-1", 6),
				testutil.TxWithTokenTransfer(testutil.CharlieAddress, testutil.AliceAddress, testutil.JUPMint, "5", 6),
			),
			expected: testutil.USDCMint,
		},
		{
			name: "one mint repeated has no contract",
			tx: swapTx(
				testutil.TxWithTokenTransfer(testutil.AliceAddress, testutil.CharlieAddress, testutil.USDCMint, "-5", 6),
				testutil.TxWithTokenTransfer(testutil.CharlieAddress, testutil.AliceAddress, testutil.USDCMint, "5", 6),
			),
			expected: "",
		},
		{
			name: "single mint without native side",
			tx: swapTx(
				testutil.TxWithTokenTransfer(testutil.AliceAddress, testutil.CharlieAddress, testutil.USDCMint, "-5", 6),
			),
			expected: "",
		},
		{
			name: "native transfers of other accounts are ignored",
			tx: swapTx(
				testutil.TxWithNativeTransfer(testutil.BobAddress, testutil.CharlieAddress, 1000),
				testutil.TxWithTokenTransfer(testutil.AliceAddress, testutil.CharlieAddress, testutil.USDCMint, "-5", 6),
			),
			expected: "",
		},
		{
			name:     "no token legs",
			tx:       swapTx(testutil.TxWithNativeTransfer(testutil.AliceAddress, testutil.CharlieAddress, 1000)),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SelectContractAddress(&tt.tx))
		})
	}
}

func TestSwapParser_Parse(t *testing.T) {
	ctx := context.Background()
	p := NewSwapParser(newTestResolver(), zap.NewNop())

	t.Run("token to token", func(t *testing.T) {
		tx := swapTx(
			testutil.TxWithNativeChange(testutil.AliceAddress, -5000),
			testutil.TxWithTokenTransfer(testutil.AliceAddress, testutil.CharlieAddress, testutil.USDCMint, "-25.5", 6),
			testutil.TxWithTokenTransfer(testutil.CharlieAddress, testutil.AliceAddress, testutil.BonkMint, "1000000", 5),
		)

		event := p.Parse(ctx, &tx)
		require.NotNil(t, event)

		require.NotNil(t, event.Sold)
		assert.Equal(t, "USDC", event.Sold.Symbol)
		assert.Equal(t, "25.5", event.Sold.Amount.String())
		assert.Equal(t, 6, event.Sold.Decimals)

		require.NotNil(t, event.Bought)
		assert.Equal(t, "BONK", event.Bought.Symbol)
		assert.Equal(t, 5, event.Bought.Decimals)

		assert.Equal(t, testutil.BonkMint, event.ContractAddress)
		assert.Equal(t, "JUPITER", event.DEX)
		assert.Equal(t, "https://solscan.io/tx/"+testutil.TestSignature, event.TxURL)
		assert.Equal(t, testutil.AliceAddress, event.Wallet)
		assert.Equal(t, int64(-5000), event.NativeChange)
	})

	t.Run("sol to token leaves sold side empty", func(t *testing.T) {
		tx := swapTx(
			testutil.TxWithNativeTransfer(testutil.AliceAddress, testutil.CharlieAddress, 1_000_000_000),
			testutil.TxWithTokenTransfer(testutil.CharlieAddress, testutil.AliceAddress, testutil.BonkMint, "42", 5),
		)

		event := p.Parse(ctx, &tx)
		require.NotNil(t, event)
		assert.Nil(t, event.Sold)
		assert.Nil(t, event.Bought, "bought side is positional and only leg 1 qualifies")
		assert.Equal(t, testutil.BonkMint, event.ContractAddress)
	})

	t.Run("missing decimals default to nine", func(t *testing.T) {
		tx := swapTx(testutil.TxWithTokenTransfer(testutil.AliceAddress, testutil.CharlieAddress, testutil.USDCMint, "-1", 6))
		tx.TokenTransfers[0].RawTokenAmount = nil

		event := p.Parse(ctx, &tx)
		require.NotNil(t, event)
		require.NotNil(t, event.Sold)
		assert.Equal(t, entities.DefaultDecimals, event.Sold.Decimals)
	})

	t.Run("missing source uses default dex", func(t *testing.T) {
		tx := swapTx(testutil.TxWithSource(""))

		event := p.Parse(ctx, &tx)
		require.NotNil(t, event)
		assert.Equal(t, "Unknown DEX", event.DEX)
	})

	t.Run("not a swap", func(t *testing.T) {
		tx := testutil.CreateTestTransaction(testutil.TxWithType(entities.TxTypeTransfer))
		assert.Nil(t, p.Parse(ctx, &tx))
		assert.Nil(t, p.Parse(ctx, nil))
	})

	t.Run("selected leg without mint is malformed", func(t *testing.T) {
		tx := swapTx(testutil.TxWithTokenTransfer(testutil.AliceAddress, testutil.CharlieAddress, "", "-1", 6))
		assert.Nil(t, p.Parse(ctx, &tx))
	})

	t.Run("resolver panic yields nil", func(t *testing.T) {
		panicky := NewSwapParser(panicResolver{}, zap.NewNop())
		tx := swapTx(testutil.TxWithTokenTransfer(testutil.AliceAddress, testutil.CharlieAddress, testutil.USDCMint, "-1", 6))
		assert.Nil(t, panicky.Parse(ctx, &tx))
	})
}

type panicResolver struct{}

func (panicResolver) Resolve(ctx context.Context, mint string) entities.TokenInfo {
	panic("resolver exploded")
}
