package revenue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	solstub "pokeball-ops/internal/solana/stub"
	quotestub "pokeball-ops/internal/swapapi/stub"
)

const (
	testSolBalls = "SoLBaLLsMint1111111111111111111111111111111"
	testUSDC     = "USDCMint11111111111111111111111111111111111"
	testReserve  = "ReserveMint1111111111111111111111111111111"
	testTreasury = "Treasury111111111111111111111111111111111111"
)

func newTestOrchestrator(chain *solstub.GameClient, quotes *quotestub.QuoteService) *SwapOrchestrator {
	return NewSwapOrchestrator(SwapOptions{
		Chain:          chain,
		Quotes:         quotes,
		SourceMint:     testSolBalls,
		DestMint:       testUSDC,
		Threshold:      100_000_000,
		WithdrawBuffer: 1,
		SlippageBps:    100,
	})
}

func TestSwapOrchestrator_BelowThreshold(t *testing.T) {
	chain := solstub.NewGameClient()
	chain.GameBalance = 99_999_999
	quotes := quotestub.NewQuoteService()

	outcome, err := newTestOrchestrator(chain, quotes).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, outcome.Skipped)
	assert.Equal(t, SkipBelowThreshold, outcome.SkipReason)
	assert.Nil(t, outcome.Result)
	assert.Equal(t, 0, chain.CallCount("WithdrawFromGame"))
	assert.Empty(t, quotes.Quotes())
}

func TestSwapOrchestrator_AtThreshold(t *testing.T) {
	chain := solstub.NewGameClient()
	chain.GameBalance = 100_000_000
	quotes := quotestub.NewQuoteService()
	quotes.RateNum, quotes.RateDenom = 1, 50

	outcome, err := newTestOrchestrator(chain, quotes).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)

	assert.False(t, outcome.Skipped)
	assert.Equal(t, uint64(99_999_999), outcome.Result.AmountSpent)
	assert.Equal(t, uint64(99_999_999/50), outcome.Result.AmountReceived)
	assert.Equal(t, "StubAMM", outcome.Result.RouteDescription)
	assert.NotEmpty(t, outcome.Result.TransactionRef)
	assert.Equal(t, uint64(1), chain.GameBalance)

	require.Len(t, quotes.Quotes(), 1)
	assert.Equal(t, testSolBalls, quotes.Quotes()[0].InputMint)
	assert.Equal(t, testUSDC, quotes.Quotes()[0].OutputMint)
	assert.Equal(t, 1, chain.CallCount("SignAndSubmit"))
}

func TestSwapOrchestrator_WithdrawFailure(t *testing.T) {
	chain := solstub.NewGameClient()
	chain.GameBalance = 500_000_000
	chain.Hook = func(method string, _ int) error {
		if method == "WithdrawFromGame" {
			return errors.New("simulation failed")
		}
		return nil
	}
	quotes := quotestub.NewQuoteService()

	_, err := newTestOrchestrator(chain, quotes).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "withdraw revenue")
	assert.Empty(t, quotes.Quotes())
}

func TestSwapOrchestrator_QuoteFailure(t *testing.T) {
	chain := solstub.NewGameClient()
	chain.GameBalance = 500_000_000
	quotes := quotestub.NewQuoteService()
	quotes.QuoteErr[testUSDC] = errors.New("no route")

	_, err := newTestOrchestrator(chain, quotes).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get quote")
	assert.Equal(t, 0, chain.CallCount("SignAndSubmit"))
}

func TestSwapOrchestrator_SubmitFailure(t *testing.T) {
	chain := solstub.NewGameClient()
	chain.GameBalance = 500_000_000
	chain.Hook = func(method string, _ int) error {
		if method == "SignAndSubmit" {
			return errors.New("blockhash expired")
		}
		return nil
	}

	_, err := newTestOrchestrator(chain, quotestub.NewQuoteService()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submit swap transaction")
}

func TestSwapOrchestrator_BalanceEqualsBuffer(t *testing.T) {
	chain := solstub.NewGameClient()
	chain.GameBalance = 1
	o := NewSwapOrchestrator(SwapOptions{
		Chain:          chain,
		Quotes:         quotestub.NewQuoteService(),
		Threshold:      0,
		WithdrawBuffer: 1,
	})

	outcome, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
	assert.Equal(t, SkipNothingToSwap, outcome.SkipReason)
}
