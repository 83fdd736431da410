// Package gacha buys collectible packs from the external pack service.
//
// A purchase walks three named states: Generated (the service issued a pack
// and a payment transaction), Submitted (the payment is confirmed on-chain
// and reported back) and Opened (the pack revealed its collectible). The
// pauses between states are configured through StepDelays and executed by a
// Sleeper so tests run without real timers.
package gacha

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"pokeball-ops/internal/domain"
)

// Signer pays for packs. The chain client satisfies it.
type Signer interface {
	OperatorPublicKey() string
	SignAndSubmit(ctx context.Context, rawTx []byte) (string, error)
}

// Service buys a single pack.
type Service interface {
	PurchasePack(ctx context.Context, signer Signer) (*domain.PackPurchase, error)
}

// StepDelays are the pauses taken after entering each state.
type StepDelays struct {
	AfterGenerate time.Duration `yaml:"after_generate"`
	AfterSubmit   time.Duration `yaml:"after_submit"`
}

// DefaultStepDelays gives the pack service time to index payments and mints.
var DefaultStepDelays = StepDelays{
	AfterGenerate: 2 * time.Second,
	AfterSubmit:   5 * time.Second,
}

// Sleeper pauses between purchase steps.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper sleeps on a real timer and returns early when ctx is done.
type TimerSleeper struct{}

// Sleep implements Sleeper.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PurchasePacks buys count packs one at a time. A failed pack is logged and
// skipped; the returned slice holds only the successful purchases.
func PurchasePacks(ctx context.Context, svc Service, signer Signer, count int, logger *log.Logger) []domain.PackPurchase {
	logger = orDiscard(logger)

	var out []domain.PackPurchase
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			logger.Printf("Pack purchase interrupted after %d/%d: %v", i, count, ctx.Err())
			break
		}
		p, err := svc.PurchasePack(ctx, signer)
		if err != nil {
			logger.Printf("Pack %d/%d failed: %v", i+1, count, err)
			continue
		}
		logger.Printf("Pack %d/%d opened: pack=%s asset=%s", i+1, count, p.PackID, p.AssetID)
		out = append(out, *p)
	}
	return out
}

// StateError reports the state a purchase had reached when it failed.
type StateError struct {
	PackID string
	State  domain.PackState
	Err    error
}

func (e *StateError) Error() string {
	if e.PackID == "" {
		return fmt.Sprintf("pack purchase failed before generation: %v", e.Err)
	}
	return fmt.Sprintf("pack %s failed in state %s: %v", e.PackID, e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

func orDiscard(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return log.New(io.Discard, "", 0)
}
