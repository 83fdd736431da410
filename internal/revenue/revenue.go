package revenue

import (
	"context"
	"fmt"
	"io"
	"log"

	"pokeball-ops/internal/domain"
)

// Chain is the subset of the chain client used by the revenue phases.
type Chain interface {
	// GameAssetBalance returns the SolBalls held by the game account.
	GameAssetBalance(ctx context.Context) (uint64, error)

	// WithdrawFromGame moves amount SolBalls from the game to the operator.
	WithdrawFromGame(ctx context.Context, amount uint64) (string, error)

	// TransferAsset sends amount of mint from the operator to the owner "to".
	TransferAsset(ctx context.Context, mint, to string, amount uint64) (string, error)

	// SignAndSubmit signs a serialized transaction as the operator and waits for confirmation.
	SignAndSubmit(ctx context.Context, rawTx []byte) (string, error)

	// OperatorPublicKey returns the operator's base58 address.
	OperatorPublicKey() string
}

// QuoteService prices and builds swaps through an external aggregator.
type QuoteService interface {
	Quote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*domain.SwapQuote, error)
	BuildSwapTransaction(ctx context.Context, quote *domain.SwapQuote, userPublicKey string) ([]byte, error)
}

// executeSwap runs quote -> build -> sign/submit once. No retries.
func executeSwap(ctx context.Context, chain Chain, quotes QuoteService, inputMint, outputMint string, amount uint64, slippageBps int) (*domain.SwapQuote, string, error) {
	quote, err := quotes.Quote(ctx, inputMint, outputMint, amount, slippageBps)
	if err != nil {
		return nil, "", fmt.Errorf("get quote: %w", err)
	}

	rawTx, err := quotes.BuildSwapTransaction(ctx, quote, chain.OperatorPublicKey())
	if err != nil {
		return nil, "", fmt.Errorf("build swap transaction: %w", err)
	}

	sig, err := chain.SignAndSubmit(ctx, rawTx)
	if err != nil {
		return nil, "", fmt.Errorf("submit swap transaction: %w", err)
	}

	return quote, sig, nil
}

func discardLogger(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return log.New(io.Discard, "", 0)
}
