// Package poller periodically fetches a configured endpoint, detects
// whether its body has changed since the previous successful fetch, and
// notifies registered listeners in registration order when it has.
package poller

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/coachpo/meltica/errs"
	"github.com/coachpo/meltica/internal/telemetry"
)

const (
	component = "poller"

	fetchTimeout        = 5 * time.Second
	initialBackoff      = 1 * time.Second
	maxBackoff          = 10 * time.Second
	backoffMultiplier   = 2.0
	timeSinceNeverValue = time.Duration(math.MaxInt64)
)

// State is one of the poller's lifecycle states (§4.3).
type State string

const (
	StateInitializing State = "INITIALIZING"
	StatePolling      State = "POLLING"
	StateBackingOff   State = "BACKING_OFF"
	StateError        State = "ERROR"
)

// Listener receives decoded snapshot bodies whenever the poller detects a
// change. A listener that returns an error fails the whole poll cycle: the
// checksum has already been updated by the time listeners run, so the same
// body is never retried, even though the cycle counts as a failure for
// backoff purposes.
type Listener interface {
	OnChange(ctx context.Context, url string, payload string) error
}

// Poller implements the endpoint-polling contract of §4.3.
type Poller struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   *log.Logger
	metrics  *telemetry.Metrics

	listenersMu sync.Mutex
	listeners   []Listener

	stateMu           sync.Mutex
	state             State
	lastChecksum      string
	lastSuccessWallMS int64
	hasSucceeded      bool

	stopCh chan struct{}
	doneCh chan struct{}
	runMu  sync.Mutex
}

// New constructs a Poller targeting url, fetching at the given interval (0
// means continuous polling back-to-back).
func New(url string, interval time.Duration, logger *log.Logger, metrics *telemetry.Metrics) *Poller {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Poller{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: fetchTimeout},
		logger:   logger,
		metrics:  metrics,
		state:    StateInitializing,
	}
}

// AddListener registers a listener. Registration order determines
// notification order.
func (p *Poller) AddListener(l Listener) {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	p.listeners = append(p.listeners, l)
}

// RemoveListener removes l if registered. Removing an absent listener is a
// no-op.
func (p *Poller) RemoveListener(l Listener) {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	for i, existing := range p.listeners {
		if existing == l {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return
		}
	}
}

func (p *Poller) snapshotListeners() []Listener {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	out := make([]Listener, len(p.listeners))
	copy(out, p.listeners)
	return out
}

// State returns the poller's current lifecycle state.
func (p *Poller) State() State {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state
}

// TimeSinceLastSuccessMS returns the milliseconds elapsed since the last
// successful fetch, or a sentinel "effectively infinite" value until the
// first success.
func (p *Poller) TimeSinceLastSuccessMS() int64 {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if !p.hasSucceeded {
		return int64(timeSinceNeverValue / time.Millisecond)
	}
	return time.Now().UnixMilli() - p.lastSuccessWallMS
}

func (p *Poller) setState(s State) {
	p.stateMu.Lock()
	p.state = s
	p.stateMu.Unlock()
}

// Start begins polling in a background goroutine. It returns once the loop
// has started; call Stop to terminate it.
func (p *Poller) Start(ctx context.Context) {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.stopCh != nil {
		return // already running
	}
	p.stateMu.Lock()
	p.state = StatePolling
	p.stateMu.Unlock()

	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.run(ctx, p.stopCh, p.doneCh)
}

// Stop requests termination, idempotently, interrupting any in-progress
// sleep and waiting for the in-flight fetch (if any) to complete. Start may
// be called again afterwards, resuming from INITIALIZING with fresh backoff
// and checksum state.
func (p *Poller) Stop() {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.stopCh == nil {
		return
	}
	close(p.stopCh)
	<-p.doneCh
	p.stopCh = nil
	p.doneCh = nil

	p.stateMu.Lock()
	p.state = StateInitializing
	p.lastChecksum = ""
	p.hasSucceeded = false
	p.stateMu.Unlock()
}

// newDeterministicBackoff configures the exponential backoff to reproduce
// §4.3's exact sequence: 1000ms doubling to a 10000ms cap, with no jitter.
func newDeterministicBackoff() *backoff.ExponentialBackOff {
	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.InitialInterval = initialBackoff
	backoffCfg.MaxInterval = maxBackoff
	backoffCfg.Multiplier = backoffMultiplier
	backoffCfg.RandomizationFactor = 0
	return backoffCfg
}

func (p *Poller) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	backoffCfg := newDeterministicBackoff()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		err := p.cycle(ctx)
		if err != nil {
			p.logger.Printf("poller: cycle failed: %v", err)
			if p.metrics != nil {
				p.metrics.PollFailure()
			}
			p.setState(StateError)

			sleep := backoffCfg.NextBackOff()
			if sleep == backoff.Stop {
				sleep = maxBackoff
			}
			p.setState(StateBackingOff)
			if p.metrics != nil {
				p.metrics.PollBackoffEngaged()
			}
			if !p.sleep(stopCh, sleep) {
				return
			}
			continue
		}

		if p.metrics != nil {
			p.metrics.PollSuccess()
		}
		backoffCfg.Reset()
		p.setState(StatePolling)

		if p.interval > 0 {
			if !p.sleep(stopCh, p.interval) {
				return
			}
		}
	}
}

// sleep waits for d, or returns false early if stopCh fires.
func (p *Poller) sleep(stopCh <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-stopCh:
		return false
	case <-timer.C:
		return true
	}
}

// cycle performs one fetch-and-notify pass.
func (p *Poller) cycle(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	body, err := p.fetch(reqCtx)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(body)
	checksum := hex.EncodeToString(sum[:])

	p.stateMu.Lock()
	changed := checksum != p.lastChecksum
	p.stateMu.Unlock()
	if !changed {
		p.markSuccess()
		return nil
	}

	p.stateMu.Lock()
	p.lastChecksum = checksum
	p.stateMu.Unlock()

	payload := string(body)
	for _, listener := range p.snapshotListeners() {
		if err := listener.OnChange(ctx, p.url, payload); err != nil {
			return errs.New(component, errs.KindFetchFailed,
				errs.WithMessage("listener rejected snapshot"), errs.WithCause(err))
		}
	}

	p.markSuccess()
	return nil
}

func (p *Poller) markSuccess() {
	p.stateMu.Lock()
	p.lastSuccessWallMS = time.Now().UnixMilli()
	p.hasSucceeded = true
	p.stateMu.Unlock()
}

func (p *Poller) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, errs.New(component, errs.KindFetchFailed, errs.WithMessage("build request"), errs.WithCause(err))
	}
	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errs.New(component, errs.KindTimeout, errs.WithMessage("fetch timed out"), errs.WithCause(err))
		}
		return nil, errs.New(component, errs.KindFetchFailed, errs.WithMessage("request failed"), errs.WithCause(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.New(component, errs.KindFetchFailed, errs.WithMessage("unexpected status"))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(component, errs.KindFetchFailed, errs.WithMessage("read body"), errs.WithCause(err))
	}
	return body, nil
}
