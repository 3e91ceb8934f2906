package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"dtracker/models"
)

// Scanner runs one SLA breach detection pass.
type Scanner interface {
	Scan(ctx context.Context) (*models.ScanResult, error)
}

// SLAWorker is a background worker that periodically scans for SLA breaches
type SLAWorker struct {
	scanner  Scanner
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
}

// NewSLAWorker creates a new SLA worker
func NewSLAWorker(scanner Scanner, interval time.Duration) *SLAWorker {
	return &SLAWorker{
		scanner:  scanner,
		interval: interval,
	}
}

// Start starts the SLA worker
// The worker runs in a separate goroutine and scans immediately, then once per interval
func (w *SLAWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		log.Warn().Str("component", "sla_worker").Msg("SLA worker is already running")
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.stopChan = make(chan struct{})
	w.running = true
	log.Info().Str("component", "sla_worker").Dur("interval", w.interval).Msg("SLA worker started")

	w.wg.Add(1)
	go w.run(ctx, w.stopChan)
}

// Stop stops the worker and waits for an in-flight scan to finish.
func (w *SLAWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopChan)
	w.cancel()
	w.running = false
	w.mu.Unlock()

	w.wg.Wait()
	log.Info().Str("component", "sla_worker").Msg("SLA worker stopped")
}

// run is the main worker loop
func (w *SLAWorker) run(ctx context.Context, stop <-chan struct{}) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.scan(ctx)

	for {
		select {
		case <-ticker.C:
			w.scan(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// scan runs one pass. Errors are logged; the next tick retries.
func (w *SLAWorker) scan(ctx context.Context) {
	start := time.Now()
	result, err := w.scanner.Scan(ctx)
	if err != nil {
		log.Error().Err(err).Str("component", "sla_worker").Msg("SLA scan failed")
		return
	}
	if result.LockHeld {
		log.Debug().Str("component", "sla_worker").Msg("SLA scan already running elsewhere")
		return
	}
	log.Debug().
		Str("component", "sla_worker").
		Str("scan_id", result.ScanID).
		Dur("duration", time.Since(start)).
		Int("notified", result.Notified()).
		Msg("SLA scan completed")
}
