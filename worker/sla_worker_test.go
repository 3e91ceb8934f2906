package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dtracker/models"
)

type countingScanner struct {
	calls int32
	err   error
}

func (s *countingScanner) Scan(context.Context) (*models.ScanResult, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return &models.ScanResult{ScanID: "test"}, nil
}

func TestSLAWorker_ScansPeriodically(t *testing.T) {
	scanner := &countingScanner{}
	w := NewSLAWorker(scanner, 10*time.Millisecond)

	w.Start(context.Background())
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&scanner.calls) >= 3
	}, time.Second, 5*time.Millisecond)
	w.Stop()

	calls := atomic.LoadInt32(&scanner.calls)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, atomic.LoadInt32(&scanner.calls), "no scans after Stop")
}

func TestSLAWorker_KeepsRunningAfterErrors(t *testing.T) {
	scanner := &countingScanner{err: errors.New("db down")}
	w := NewSLAWorker(scanner, 10*time.Millisecond)

	w.Start(context.Background())
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&scanner.calls) >= 2
	}, time.Second, 5*time.Millisecond)
	w.Stop()
}

func TestSLAWorker_StopsOnContextCancel(t *testing.T) {
	scanner := &countingScanner{}
	w := NewSLAWorker(scanner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&scanner.calls) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	w.Stop()
	w.Stop()
}
