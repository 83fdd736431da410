package revenue

import (
	"context"
	"fmt"
	"log"

	"pokeball-ops/internal/domain"
)

// Skip reasons reported by the swap phase.
const (
	SkipBelowThreshold = "below threshold"
	SkipNothingToSwap  = "balance does not exceed withdraw buffer"
)

// SwapOptions configures SwapOrchestrator.
type SwapOptions struct {
	Chain  Chain
	Quotes QuoteService

	SourceMint     string // in-game token (SolBalls)
	DestMint       string // stable asset (USDC)
	Threshold      uint64 // minimum game balance before swapping
	WithdrawBuffer uint64 // left in the game account to absorb rounding
	SlippageBps    int

	Logger *log.Logger
}

// SwapOrchestrator withdraws game revenue and swaps it for the stable asset.
type SwapOrchestrator struct {
	chain  Chain
	quotes QuoteService

	sourceMint     string
	destMint       string
	threshold      uint64
	withdrawBuffer uint64
	slippageBps    int

	logger *log.Logger
}

// NewSwapOrchestrator creates a SwapOrchestrator.
func NewSwapOrchestrator(opts SwapOptions) *SwapOrchestrator {
	return &SwapOrchestrator{
		chain:          opts.Chain,
		quotes:         opts.Quotes,
		sourceMint:     opts.SourceMint,
		destMint:       opts.DestMint,
		threshold:      opts.Threshold,
		withdrawBuffer: opts.WithdrawBuffer,
		slippageBps:    opts.SlippageBps,
		logger:         discardLogger(opts.Logger),
	}
}

// SwapOutcome is the result of one swap phase. Result is nil when Skipped.
type SwapOutcome struct {
	Result      *domain.RevenueSwapResult `json:"result,omitempty"`
	GameBalance uint64                    `json:"game_balance"`
	Skipped     bool                      `json:"skipped,omitempty"`
	SkipReason  string                    `json:"skip_reason,omitempty"`
}

// Run executes read -> gate -> withdraw -> quote -> build -> sign/submit.
// A below-threshold balance is reported as a skip, not an error. Any failure
// from the withdrawal onward is returned and the phase is not retried.
func (o *SwapOrchestrator) Run(ctx context.Context) (*SwapOutcome, error) {
	balance, err := o.chain.GameAssetBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("read game balance: %w", err)
	}

	outcome := &SwapOutcome{GameBalance: balance}

	if !ShouldSwap(balance, o.threshold) {
		o.logger.Printf("Game balance %s below threshold %s, skipping swap",
			domain.FormatUnits(balance, domain.SolBallsDecimals),
			domain.FormatUnits(o.threshold, domain.SolBallsDecimals))
		outcome.Skipped = true
		outcome.SkipReason = SkipBelowThreshold
		return outcome, nil
	}

	if balance <= o.withdrawBuffer {
		outcome.Skipped = true
		outcome.SkipReason = SkipNothingToSwap
		return outcome, nil
	}
	amount := balance - o.withdrawBuffer

	o.logger.Printf("Withdrawing %s SolBalls from game", domain.FormatUnits(amount, domain.SolBallsDecimals))
	withdrawSig, err := o.chain.WithdrawFromGame(ctx, amount)
	if err != nil {
		return nil, fmt.Errorf("withdraw revenue: %w", err)
	}
	o.logger.Printf("Withdraw confirmed: %s", withdrawSig)

	quote, swapSig, err := executeSwap(ctx, o.chain, o.quotes, o.sourceMint, o.destMint, amount, o.slippageBps)
	if err != nil {
		return nil, err
	}

	o.logger.Printf("Swapped %s SolBalls -> %s USDC via %s (%s)",
		domain.FormatUnits(amount, domain.SolBallsDecimals),
		domain.FormatUnits(quote.OutAmount, domain.USDCDecimals),
		quote.RouteLabel, swapSig)

	outcome.Result = &domain.RevenueSwapResult{
		AmountSpent:      amount,
		AmountReceived:   quote.OutAmount,
		TransactionRef:   swapSig,
		RouteDescription: quote.RouteLabel,
	}
	return outcome, nil
}
