package syncer

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/tama-audit/auditor/internal/logging"
)

// ProbeFunc checks whether the origin is reachable.
type ProbeFunc func(ctx context.Context) error

// OriginProbe returns a probe that issues a HEAD request to the origin.
// A nil client falls back to http.DefaultClient.
func OriginProbe(client *http.Client, origin string) ProbeFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, origin, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	}
}

// Watcher polls the origin and translates offline-to-online transitions
// into connectivity-regained signals for every registered tag.
type Watcher struct {
	coord    *Coordinator
	probe    ProbeFunc
	interval time.Duration
	timeout  time.Duration
	log      logging.Logger

	mu     sync.Mutex // ticks may come from both the poll loop and manual probes
	online bool
}

// NewWatcher builds a watcher that starts in the offline state, so the
// first successful probe delivers a signal and pending work queued before
// startup is flushed.
func NewWatcher(coord *Coordinator, probe ProbeFunc, interval, timeout time.Duration, log logging.Logger) *Watcher {
	return &Watcher{
		coord:    coord,
		probe:    probe,
		interval: interval,
		timeout:  timeout,
		log:      log.With("component", "watcher"),
	}
}

// Online reports the last observed connectivity state.
func (w *Watcher) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online
}

// Tick runs a single probe and dispatches signals on an offline-to-online
// edge. Exposed for tests and for hosts with their own scheduling.
func (w *Watcher) Tick(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	err := w.probe(probeCtx)
	cancel()

	w.mu.Lock()
	if err != nil {
		if w.online {
			w.online = false
			w.log.Info(ctx, "connectivity lost")
		}
		w.mu.Unlock()
		return
	}

	regained := !w.online
	w.online = true
	w.mu.Unlock()

	if regained {
		w.log.Info(ctx, "connectivity regained")
		for _, tag := range w.coord.Tags() {
			_ = w.coord.ConnectivityRegained(ctx, tag)
		}
	}
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}
