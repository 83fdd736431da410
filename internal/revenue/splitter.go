package revenue

import (
	"context"
	"fmt"
	"log"

	"pokeball-ops/internal/domain"
)

// SplitterOptions configures ProceedsSplitter.
type SplitterOptions struct {
	Chain  Chain
	Quotes QuoteService

	StableMint      string // asset being split (USDC)
	ReserveMint     string // asset the reserve bucket is converted into
	TreasuryWallet  string
	TreasuryPercent int
	ReservePercent  int
	SlippageBps     int

	Logger *log.Logger
}

// ProceedsSplitter distributes swap proceeds across treasury, reserve and retained buckets.
type ProceedsSplitter struct {
	chain  Chain
	quotes QuoteService

	stableMint      string
	reserveMint     string
	treasuryWallet  string
	treasuryPercent int
	reservePercent  int
	slippageBps     int

	logger *log.Logger
}

// NewProceedsSplitter creates a ProceedsSplitter.
func NewProceedsSplitter(opts SplitterOptions) *ProceedsSplitter {
	return &ProceedsSplitter{
		chain:           opts.Chain,
		quotes:          opts.Quotes,
		stableMint:      opts.StableMint,
		reserveMint:     opts.ReserveMint,
		treasuryWallet:  opts.TreasuryWallet,
		treasuryPercent: opts.TreasuryPercent,
		reservePercent:  opts.ReservePercent,
		slippageBps:     opts.SlippageBps,
		logger:          discardLogger(opts.Logger),
	}
}

// Split applies ComputeSplit to total and moves the money.
// The treasury transfer is mandatory: its failure aborts the phase.
// The reserve conversion is best-effort: its failure leaves ReserveConversionRef nil.
// The retained bucket stays in the operator account.
func (s *ProceedsSplitter) Split(ctx context.Context, total uint64) (*domain.SplitResult, error) {
	split := ComputeSplit(total, s.treasuryPercent, s.reservePercent)

	result := &domain.SplitResult{
		TreasuryAmount: split.Treasury,
		RetainedAmount: split.Retained,
		ReserveAmount:  split.Reserve,
	}

	s.logger.Printf("Splitting %s USDC: treasury=%s reserve=%s retained=%s",
		domain.FormatUnits(total, domain.USDCDecimals),
		domain.FormatUnits(split.Treasury, domain.USDCDecimals),
		domain.FormatUnits(split.Reserve, domain.USDCDecimals),
		domain.FormatUnits(split.Retained, domain.USDCDecimals))

	if split.Treasury > 0 {
		sig, err := s.chain.TransferAsset(ctx, s.stableMint, s.treasuryWallet, split.Treasury)
		if err != nil {
			return nil, fmt.Errorf("treasury transfer: %w", err)
		}
		result.TreasuryTransactionRef = sig
		s.logger.Printf("Treasury transfer confirmed: %s", sig)
	}

	if split.Reserve > 0 {
		_, sig, err := executeSwap(ctx, s.chain, s.quotes, s.stableMint, s.reserveMint, split.Reserve, s.slippageBps)
		if err != nil {
			s.logger.Printf("WARN: reserve conversion failed, keeping %s USDC unconverted: %v",
				domain.FormatUnits(split.Reserve, domain.USDCDecimals), err)
		} else {
			result.ReserveConversionRef = &sig
			s.logger.Printf("Reserve conversion confirmed: %s", sig)
		}
	}

	return result, nil
}
