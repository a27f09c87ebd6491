// Package stream ingests launch events from the pump.fun websocket feed.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/models"
)

// launchEvent is the newToken message shape on the PumpPortal feed.
type launchEvent struct {
	Mint         string  `json:"mint"`
	Name         string  `json:"name"`
	Symbol       string  `json:"symbol"`
	MarketCapSol float64 `json:"marketCapSol"`
	SolInPool    float64 `json:"vSolInBondingCurve"`
	TxType       string  `json:"txType"`
}

// Firehose maintains a websocket subscription to new-token events and
// buffers them for the next scan cycle. It implements providers.Connector:
// Discover drains the buffer, so streamed launches enter the pipeline
// through the same correlate/enrich/score path as polled ones.
type Firehose struct {
	url     string
	bufferN int

	mu      sync.Mutex
	pending []*models.TokenCandidate
	dropped int
}

// NewFirehose creates a firehose for the given websocket endpoint.
func NewFirehose(url string, bufferN int) *Firehose {
	if bufferN <= 0 {
		bufferN = 256
	}
	return &Firehose{url: url, bufferN: bufferN}
}

func (f *Firehose) Name() string { return "stream" }

// Discover drains buffered launch events. No network call happens here;
// the subscription goroutine fills the buffer between cycles.
func (f *Firehose) Discover(_ context.Context) ([]*models.TokenCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.pending
	f.pending = nil
	if f.dropped > 0 {
		log.Warn().Int("dropped", f.dropped).Msg("Stream buffer overflowed between cycles")
		f.dropped = 0
	}
	return out, nil
}

// Run keeps the subscription alive until the context ends, reconnecting
// with exponential backoff after any disconnect.
func (f *Firehose) Run(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = time.Minute
	policy.MaxElapsedTime = 0 // retry forever

	operation := func() error {
		if err := f.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			log.Warn().Err(err).Str("url", f.url).Msg("Stream disconnected, reconnecting")
			return err
		}
		return nil
	}
	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

// consume holds one websocket session: subscribe, then read until error.
func (f *Firehose) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := map[string]string{"method": "subscribeNewToken"}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	log.Info().Str("url", f.url).Msg("Launch event stream subscribed")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.handle(raw)
	}
}

func (f *Firehose) handle(raw []byte) {
	var evt launchEvent
	if err := json.Unmarshal(raw, &evt); err != nil || evt.Mint == "" {
		return
	}
	if evt.TxType != "" && evt.TxType != "create" {
		return
	}

	now := time.Now()
	cand := models.NewTokenCandidate(evt.Mint, evt.Symbol, evt.Name, "stream", now)
	cand.Stage = models.StagePreLaunch
	cand.LastUpdated = now

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) >= f.bufferN {
		// Oldest-first drop keeps the freshest launches.
		f.pending = f.pending[1:]
		f.dropped++
	}
	f.pending = append(f.pending, cand)
}

// PendingCount returns how many events await the next cycle.
func (f *Firehose) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}
