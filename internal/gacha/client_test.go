package gacha

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokeball-ops/internal/domain"
	solstub "pokeball-ops/internal/solana/stub"
)

type recordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

type packServer struct {
	t          *testing.T
	submitCode int
	openCalls  int
}

func (p *packServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/packs/generate", func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(p.t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(p.t, "Bearer key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{
			"packId":             "pack-1",
			"paymentTransaction": base64.StdEncoding.EncodeToString([]byte("pay:" + req.Wallet)),
		})
	})
	mux.HandleFunc("/packs/submit", func(w http.ResponseWriter, r *http.Request) {
		if p.submitCode != 0 {
			w.WriteHeader(p.submitCode)
			w.Write([]byte("payment not found"))
			return
		}
		var req submitRequest
		require.NoError(p.t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(p.t, "pack-1", req.PackID)
		assert.NotEmpty(p.t, req.Signature)
		json.NewEncoder(w).Encode(map[string]string{"packId": req.PackID, "status": "submitted"})
	})
	mux.HandleFunc("/packs/open", func(w http.ResponseWriter, r *http.Request) {
		p.openCalls++
		json.NewEncoder(w).Encode(map[string]string{"packId": "pack-1", "assetId": "AssetMint111"})
	})
	return mux
}

func TestClient_PurchasePack(t *testing.T) {
	ps := &packServer{t: t}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	sleeper := &recordingSleeper{}
	signer := solstub.NewGameClient()
	client := NewClient(ClientOptions{
		BaseURL: server.URL,
		APIKey:  "key",
		Delays:  StepDelays{AfterGenerate: time.Second, AfterSubmit: 3 * time.Second},
		Sleeper: sleeper,
	})

	p, err := client.PurchasePack(context.Background(), signer)
	require.NoError(t, err)

	assert.Equal(t, "pack-1", p.PackID)
	assert.Equal(t, "AssetMint111", p.AssetID)
	assert.Equal(t, domain.PackStateOpened, p.State)
	assert.NotEmpty(t, p.PaymentTxRef)
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, sleeper.sleeps)

	calls := signer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "SignAndSubmit", calls[0].Method)
	assert.Equal(t, []byte("pay:"+signer.Operator), calls[0].Args[0])
}

func TestClient_PurchasePack_SubmitFails(t *testing.T) {
	ps := &packServer{t: t, submitCode: http.StatusNotFound}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	client := NewClient(ClientOptions{BaseURL: server.URL, APIKey: "key", Sleeper: &recordingSleeper{}})

	_, err := client.PurchasePack(context.Background(), solstub.NewGameClient())
	require.Error(t, err)

	var stateErr *StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "pack-1", stateErr.PackID)
	assert.Equal(t, domain.PackStateGenerated, stateErr.State)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, 0, ps.openCalls)
}

func TestClient_PurchasePack_PaymentFails(t *testing.T) {
	ps := &packServer{t: t}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	signer := solstub.NewGameClient()
	signer.Hook = func(method string, _ int) error {
		return errors.New("insufficient funds")
	}
	client := NewClient(ClientOptions{BaseURL: server.URL, APIKey: "key", Sleeper: &recordingSleeper{}})

	_, err := client.PurchasePack(context.Background(), signer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pay: insufficient funds")
}

func TestClient_PurchasePack_CancelledDuringDelay(t *testing.T) {
	ps := &packServer{t: t}
	server := httptest.NewServer(ps.handler())
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(ClientOptions{
		BaseURL: server.URL,
		APIKey:  "key",
		Sleeper: sleeperFunc(func(context.Context, time.Duration) error {
			cancel()
			return context.Canceled
		}),
	})

	_, err := client.PurchasePack(ctx, solstub.NewGameClient())
	require.ErrorIs(t, err, context.Canceled)
}

type sleeperFunc func(context.Context, time.Duration) error

func (f sleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

func TestTimerSleeper(t *testing.T) {
	require.NoError(t, TimerSleeper{}.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, TimerSleeper{}.Sleep(ctx, time.Hour), context.Canceled)
}
