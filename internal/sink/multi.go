package sink

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/opportunity-research/internal/model"
)

// Multi fans each entry out to every member concurrently. A failing member
// does not stop the others.
type Multi struct {
	sinks []Sink
}

// NewMulti combines sinks.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

func (m *Multi) Append(ctx context.Context, e model.LogEntry) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, s := range m.sinks {
		g.Go(func() error {
			if err := s.Append(ctx, e); err != nil {
				mu.Lock()
				errs = append(errs, eris.Wrapf(err, "sink %s", s.Name()))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, eris.Wrapf(err, "close %s", s.Name()))
		}
	}
	return errors.Join(errs...)
}
