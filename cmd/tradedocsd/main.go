// Command tradedocsd watches the inbox directory, queues new documents for
// processing and serves gRPC health checks.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/joseph-ayodele/tradedocs/internal/async"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/ingest"
	"github.com/joseph-ayodele/tradedocs/internal/server"
)

const (
	healthInterval = 10 * time.Second
	inboxDebounce  = 500 * time.Millisecond
	drainTimeout   = 30 * time.Second
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := common.NewLogger(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("tradedocsd exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	queue := async.NewProcessorQueue(app.Processor, logger,
		async.WithWorkers(cfg.Worker.Workers),
		async.WithQueueSize(cfg.Worker.QueueSize),
		async.WithProcessTimeout(cfg.Worker.ProcessTimeout),
	)

	g := server.NewGRPC(app.DB, logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return err
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := g.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr <- err
		}
	}()
	go g.WatchDB(ctx, healthInterval)

	inboxErr := make(chan error, 1)
	if cfg.Storage.InboxDir != "" {
		enqueue := func(ctx context.Context, documentID uuid.UUID) error {
			return queue.Enqueue(ctx, async.Job{
				DocumentID:    documentID,
				Kind:          async.KindProcess,
				ThenExtract:   true,
				Deterministic: cfg.LLM.UseMock,
			})
		}
		inbox := ingest.NewInbox(app.Ingest, cfg.Storage.InboxDir, enqueue, logger)
		go func() { inboxErr <- inbox.Run(ctx, inboxDebounce) }()
	} else {
		logger.Info("tradedocsd.inbox.disabled", "reason", "INBOX_DIR not set")
	}

	logger.Info("tradedocsd.started", "grpc_addr", cfg.Server.GRPCAddr, "inbox", cfg.Storage.InboxDir)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = err
	case err := <-inboxErr:
		if !errors.Is(err, context.Canceled) {
			runErr = err
		}
	}

	logger.Info("tradedocsd.stopping")
	g.Stop()

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	queue.Shutdown(drainCtx)
	logger.Info("tradedocsd.stopped")
	return runErr
}
