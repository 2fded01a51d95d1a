package server

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"syscall"
	"time"

	xhttp "LevRecon/pkg/http"
	pkgkafka "LevRecon/pkg/kafka"
	applogger "LevRecon/pkg/logger"
)

type closer struct {
	name string
	c    io.Closer
}

// App owns the long-running parts of the service: the Kafka consumer, the
// HTTP server and the infrastructure clients closed on shutdown.
type App struct {
	log             *applogger.Logger
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	handlers        []pkgkafka.MessageHandler
	closers         []closer
	shutdownTimeout time.Duration
}

// New creates an App. consumer may be nil when Kafka ingestion is disabled.
func New(log *applogger.Logger, httpServer *xhttp.Server, consumer *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{
		log:             log,
		httpServer:      httpServer,
		consumer:        consumer,
		handlers:        handlers,
		shutdownTimeout: 15 * time.Second,
	}
}

// SetShutdownTimeout bounds the whole shutdown sequence.
func (a *App) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		a.shutdownTimeout = d
	}
}

// OnShutdown registers c to be closed after the consumer and HTTP server
// stop. Closers run in reverse registration order.
func (a *App) OnShutdown(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, closer{name: name, c: c})
	}
}

// Run starts every component and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Start(); err != nil {
		return errors.Join(err, a.Shutdown(context.Background()))
	}
	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start launches the consumer and the HTTP server without blocking.
func (a *App) Start() error {
	if a.consumer != nil && len(a.handlers) > 0 {
		topics := make([]string, 0, len(a.handlers))
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.log.Info("ingestion started", applogger.Strings("topics", topics))
	}
	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown stops intake first so no run starts mid-teardown, then the HTTP
// server, then the registered closers.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.shutdownTimeout)
	defer cancel()
	a.log.Info("shutting down")

	var errs []error
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Error("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	// flush pending anomalies while the producer is still open
	a.log.RemoveCollector()
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("component", c.name), applogger.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
