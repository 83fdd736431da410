// Package stub provides an in-memory quote service for tests.
package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"pokeball-ops/internal/domain"
)

// QuoteService is a fake aggregator. Quotes are priced at Rate output units
// per input unit (integer division by RateDenom).
type QuoteService struct {
	mu sync.Mutex

	RateNum   uint64
	RateDenom uint64
	Route     string

	// QuoteErr and BuildErr, when set, fail the matching call for the given output mint.
	QuoteErr map[string]error
	BuildErr map[string]error

	quotes []domain.SwapQuote
}

// NewQuoteService creates a 1:1 QuoteService.
func NewQuoteService() *QuoteService {
	return &QuoteService{
		RateNum:   1,
		RateDenom: 1,
		Route:     "StubAMM",
		QuoteErr:  make(map[string]error),
		BuildErr:  make(map[string]error),
	}
}

// Quote implements the quote call.
func (s *QuoteService) Quote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*domain.SwapQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.QuoteErr[outputMint]; err != nil {
		return nil, err
	}

	q := domain.SwapQuote{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		InAmount:    amount,
		OutAmount:   amount * s.RateNum / s.RateDenom,
		SlippageBps: slippageBps,
		RouteLabel:  s.Route,
	}
	raw, err := json.Marshal(map[string]interface{}{
		"inputMint":  inputMint,
		"outputMint": outputMint,
		"inAmount":   fmt.Sprint(q.InAmount),
		"outAmount":  fmt.Sprint(q.OutAmount),
	})
	if err != nil {
		return nil, err
	}
	q.Raw = raw

	s.quotes = append(s.quotes, q)
	return &q, nil
}

// BuildSwapTransaction returns a fake serialized transaction tagged with the output mint.
func (s *QuoteService) BuildSwapTransaction(ctx context.Context, quote *domain.SwapQuote, userPublicKey string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.BuildErr[quote.OutputMint]; err != nil {
		return nil, err
	}
	return []byte("swap:" + quote.OutputMint), nil
}

// Quotes returns all quotes served so far.
func (s *QuoteService) Quotes() []domain.SwapQuote {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.SwapQuote, len(s.quotes))
	copy(out, s.quotes)
	return out
}
