package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"LevRecon/internal/domain/models"
	"LevRecon/internal/domain/repository"
	applogger "LevRecon/pkg/logger"

	"github.com/sony/gobreaker"
)

// SinkError carries the failures of one fan-out, keyed by sink name.
type SinkError struct {
	Failed map[string]error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%d sink(s) failed", len(e.Failed))
}

func (e *SinkError) Unwrap() []error {
	out := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		out = append(out, err)
	}
	return out
}

type guardedSink struct {
	sink    repository.ResultSink
	breaker *gobreaker.CircuitBreaker
}

// MultiSink fans reports out to every sink concurrently. Each sink sits
// behind its own circuit breaker so one failing sink never blocks the others.
type MultiSink struct {
	sinks   []guardedSink
	timeout time.Duration
	log     *applogger.Logger
}

// NewMultiSink wraps sinks. A breaker opens after maxFailures consecutive
// failures and half-opens after openTimeout.
func NewMultiSink(maxFailures uint32, openTimeout, callTimeout time.Duration, log *applogger.Logger, sinks ...repository.ResultSink) *MultiSink {
	if maxFailures == 0 {
		maxFailures = 5
	}
	if log == nil {
		log = applogger.Nop()
	}
	m := &MultiSink{timeout: callTimeout, log: log}
	for _, s := range sinks {
		if s == nil {
			continue
		}
		name := s.Name()
		m.sinks = append(m.sinks, guardedSink{
			sink: s,
			breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:        name,
				MaxRequests: 1,
				Timeout:     openTimeout,
				ReadyToTrip: func(c gobreaker.Counts) bool {
					return c.ConsecutiveFailures >= maxFailures
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					log.Warn("sink breaker state changed",
						applogger.String("sink", name),
						applogger.String("from", from.String()),
						applogger.String("to", to.String()))
				},
			}),
		})
	}
	return m
}

var _ repository.ResultSink = (*MultiSink)(nil)

func (m *MultiSink) Name() string { return "multi" }

// Names lists the wrapped sinks.
func (m *MultiSink) Names() []string {
	out := make([]string, len(m.sinks))
	for i, g := range m.sinks {
		out[i] = g.sink.Name()
	}
	return out
}

// State returns the breaker state of the named sink.
func (m *MultiSink) State(name string) (gobreaker.State, bool) {
	for _, g := range m.sinks {
		if g.sink.Name() == name {
			return g.breaker.State(), true
		}
	}
	return gobreaker.StateClosed, false
}

// Publish returns a *SinkError when any sink failed or was short-circuited.
func (m *MultiSink) Publish(ctx context.Context, summary models.RunSummary, reports []models.SymbolReport) error {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed = make(map[string]error)
	)
	for _, g := range m.sinks {
		wg.Add(1)
		go func(g guardedSink) {
			defer wg.Done()
			_, err := g.breaker.Execute(func() (interface{}, error) {
				cctx := ctx
				if m.timeout > 0 {
					var cancel context.CancelFunc
					cctx, cancel = context.WithTimeout(ctx, m.timeout)
					defer cancel()
				}
				return nil, g.sink.Publish(cctx, summary, reports)
			})
			if err == nil {
				return
			}
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				err = fmt.Errorf("%s: %w", g.sink.Name(), err)
			}
			m.log.Error("sink publish failed",
				applogger.String("sink", g.sink.Name()),
				applogger.String("run_id", summary.RunID),
				applogger.Error(err))
			mu.Lock()
			failed[g.sink.Name()] = err
			mu.Unlock()
		}(g)
	}
	wg.Wait()

	if len(failed) > 0 {
		return &SinkError{Failed: failed}
	}
	return nil
}
