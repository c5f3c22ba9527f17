package sink

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-research/internal/model"
)

// Dispatcher appends entries in the background. Each entry gets its own
// goroutine and a context detached from the request that produced it.
// Failures are logged and dropped.
type Dispatcher struct {
	sink    Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher returns a Dispatcher bounding each append by timeout.
func NewDispatcher(s Sink, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{sink: s, timeout: timeout}
}

// Dispatch schedules entry and returns immediately.
func (d *Dispatcher) Dispatch(entry model.LogEntry) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.append(entry); err != nil {
			zap.L().Error("sink: append failed",
				zap.String("sink", d.sink.Name()),
				zap.String("entry_id", entry.ID),
				zap.Error(err),
			)
		}
	}()
}

// Append writes entry synchronously under the dispatcher's timeout.
func (d *Dispatcher) Append(entry model.LogEntry) error {
	return d.append(entry)
}

func (d *Dispatcher) append(entry model.LogEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("sink: panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	if err := d.sink.Append(ctx, entry); err != nil {
		return err
	}
	zap.L().Debug("sink: entry appended",
		zap.String("sink", d.sink.Name()),
		zap.String("entry_id", entry.ID),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Wait blocks until every dispatched entry has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "sink: drain dispatcher")
	}
}
