package runtime

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

type ServiceCtx struct {
	deps            *dependencies
	extraOptions    []DependencyOption
	shutdownChannel chan os.Signal
	serverCtx       context.Context
	serverStopFunc  context.CancelFunc
	serverReady     chan struct{}
}

func New(opts ...ServiceOption) *ServiceCtx {
	ctx := &ServiceCtx{
		shutdownChannel: make(chan os.Signal, 1),
	}

	for _, opt := range opts {
		opt(ctx)
	}

	return ctx
}

func (c *ServiceCtx) Run() {
	if err := c.build(); err != nil {
		log.Fatalf("failed to build service: %v", err)
	}

	c.startService()
	c.shutdownHook()
	c.monitorConfigChanges()

	// Waits for one of the following shutdown conditions to happen.
	select {
	case <-c.serverCtx.Done():
	case <-c.shutdownChannel:
		defer close(c.shutdownChannel)
	}

	c.shutdown()
}

func (c *ServiceCtx) build() error {
	c.serverCtx, c.serverStopFunc = context.WithCancel(context.Background())

	deps, err := initializeDependencies(c.serverCtx, c.extraOptions...)
	if err != nil {
		c.serverStopFunc()

		return err
	}

	c.deps = deps

	return nil
}

func (c *ServiceCtx) startService() {
	var listening sync.WaitGroup

	listening.Add(1)
	go c.serveHTTP(&listening)

	if c.deps.infra.grpcServer != nil {
		listening.Add(1)
		go c.serveGRPC(&listening)

		go c.deps.infra.grpcHealth.Run(c.serverCtx)
	}

	if c.serverReady != nil {
		go func() {
			listening.Wait()
			close(c.serverReady)
		}()
	}
}

func (c *ServiceCtx) serveHTTP(listening *sync.WaitGroup) {
	addr := c.deps.config.HTTPServer.Address()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", addr, err)
	}

	c.deps.infra.logger.Info().
		Str("address", addr).
		Msg("starting the http server")

	listening.Done()

	if err := c.deps.infra.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		c.deps.infra.logger.Error().Err(err).Msg("http server stopped unexpectedly")
		c.serverStopFunc()
	}
}

func (c *ServiceCtx) serveGRPC(listening *sync.WaitGroup) {
	addr := c.deps.config.GRPCServer.Address()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", addr, err)
	}

	c.deps.infra.logger.Info().
		Str("address", addr).
		Msg("starting the gRPC server")

	listening.Done()

	if err := c.deps.infra.grpcServer.Serve(listener); err != nil {
		c.deps.infra.logger.Error().Err(err).Msg("gRPC server stopped unexpectedly")
		c.serverStopFunc()
	}
}

func (c *ServiceCtx) monitorConfigChanges() {
	if c.deps.configLoader == nil {
		return
	}

	c.deps.configLoader.WatchConfigSignals(c.serverCtx)
}

func (c *ServiceCtx) shutdownHook() {
	signal.Notify(c.shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
}

func (c *ServiceCtx) shutdown() {
	c.deps.infra.logger.Info().Msg("shutting down service...")

	// Cancel context that underlying processes would start cleanup.
	c.serverStopFunc()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.deps.config.HTTPServer.ShutdownTimeout)
	defer cancel()

	go func() {
		<-shutdownCtx.Done()

		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			c.deps.infra.logger.Error().Msg("graceful shutdown timed out.. forcing exit.")
			os.Exit(1)
		}
	}()

	c.cleanup(shutdownCtx)

	c.deps.infra.logger.Info().Msg("service shutdown complete")
}

// WaitForServer blocks until every server is listening.
// Instantiate the service with WithWaitingForServer to use it.
//
// Example:
//
//	srv := runtime.New(runtime.WithWaitingForServer())
//	go srv.Run()
//
//	srv.WaitForServer()
func (c *ServiceCtx) WaitForServer() {
	if c.serverReady != nil {
		<-c.serverReady
	}
}

func (c *ServiceCtx) cleanup(shutdownCtx context.Context) {
	c.deps.infra.logger.Info().Msg("cleaning up resources...")

	for i := len(c.deps.cleanups) - 1; i >= 0; i-- {
		resource := c.deps.cleanups[i]

		if err := resource.fn(shutdownCtx); err != nil {
			c.deps.infra.logger.Error().
				Err(err).
				Str("resource", resource.resource).
				Msg("failed to shutdown the resource gracefully")
		}
	}

	c.deps.infra.logger.Info().Msg("cleanup completed")
}
