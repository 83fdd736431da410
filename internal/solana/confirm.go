package solana

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Confirmation defaults.
const (
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 2 * time.Second
)

// ErrConfirmTimeout is returned when a transaction is not confirmed in time.
var ErrConfirmTimeout = errors.New("transaction not confirmed before timeout")

// TransactionError carries the on-chain error of a failed transaction.
type TransactionError struct {
	Signature string
	Err       interface{}
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

// Confirmer waits until a submitted transaction is confirmed.
type Confirmer interface {
	Confirm(ctx context.Context, signature string) error
}

// StatusReader is the subset of HTTPClient used by PollingConfirmer.
type StatusReader interface {
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*SignatureStatus, error)
}

// PollingConfirmer polls getSignatureStatuses.
type PollingConfirmer struct {
	rpc      StatusReader
	interval time.Duration
	timeout  time.Duration
}

// NewPollingConfirmer creates a PollingConfirmer. Zero durations use defaults.
func NewPollingConfirmer(rpc StatusReader, interval, timeout time.Duration) *PollingConfirmer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	return &PollingConfirmer{rpc: rpc, interval: interval, timeout: timeout}
}

// Confirm polls until the signature reaches confirmed or finalized, fails, or times out.
func (p *PollingConfirmer) Confirm(ctx context.Context, signature string) error {
	deadline := time.NewTimer(p.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		done, err := p.check(ctx, signature)
		if done {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%s: %w", signature, ErrConfirmTimeout)
		case <-ticker.C:
		}
	}
}

// check reports whether the signature reached a terminal state. Transient
// RPC errors are not terminal.
func (p *PollingConfirmer) check(ctx context.Context, signature string) (bool, error) {
	statuses, err := p.rpc.GetSignatureStatuses(ctx, signature)
	if err != nil || len(statuses) == 0 || statuses[0] == nil {
		return false, nil
	}
	st := statuses[0]
	if st.Err != nil {
		return true, &TransactionError{Signature: signature, Err: st.Err}
	}
	switch st.ConfirmationStatus {
	case "confirmed", "finalized":
		return true, nil
	}
	return false, nil
}

// SignatureSubscriber is the subset of WSClient used by WSConfirmer.
type SignatureSubscriber interface {
	SubscribeSignature(ctx context.Context, signature string) (<-chan SignatureNotification, func(), error)
}

// WSConfirmer waits for a signatureNotification and falls back to polling
// when the subscription fails or the socket drops.
type WSConfirmer struct {
	ws       SignatureSubscriber
	fallback *PollingConfirmer
	timeout  time.Duration
}

// NewWSConfirmer creates a WSConfirmer.
func NewWSConfirmer(ws SignatureSubscriber, fallback *PollingConfirmer) *WSConfirmer {
	return &WSConfirmer{ws: ws, fallback: fallback, timeout: fallback.timeout}
}

// Confirm waits for the notification. A status poll runs alongside, covering
// transactions that confirmed before the subscription was registered.
func (w *WSConfirmer) Confirm(ctx context.Context, signature string) error {
	ch, cancel, err := w.ws.SubscribeSignature(ctx, signature)
	if err != nil {
		return w.fallback.Confirm(ctx, signature)
	}
	defer cancel()

	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(w.fallback.interval)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-ch:
			if !ok {
				return w.fallback.Confirm(ctx, signature)
			}
			if n.Err != nil {
				return &TransactionError{Signature: signature, Err: n.Err}
			}
			return nil
		case <-ticker.C:
			if done, err := w.fallback.check(ctx, signature); done {
				return err
			}
		case <-deadline.C:
			return fmt.Errorf("%s: %w", signature, ErrConfirmTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
